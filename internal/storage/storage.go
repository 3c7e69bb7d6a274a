// Package storage keeps the files produced by guichet: background exports
// and archived backend reports.
//
// Two providers implement Storage:
// - LocalStorage: a directory on disk, for development and single-host setups
// - S3Storage: any S3-compatible bucket (Cloudflare R2 by default)
package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// Interface Definition
// =============================================================================

// Storage defines the interface for file storage operations.
type Storage interface {
	// Put stores data at key. It fails with ErrKeyExists when the key is
	// taken, unless opts.Overwrite is set.
	Put(ctx context.Context, key string, data io.Reader, opts PutOptions) error

	// Get returns the object at key. The caller closes the reader.
	// Returns ErrNotFound if the key doesn't exist.
	Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)

	// Delete removes the object at key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// URL returns a download URL for key. Presigned URLs expire after expires.
	URL(ctx context.Context, key string, expires time.Duration) (string, error)

	// Exists reports whether an object is stored at key.
	Exists(ctx context.Context, key string) (bool, error)
}

// =============================================================================
// Data Types
// =============================================================================

// PutOptions configures how an object is stored.
type PutOptions struct {
	// ContentType of the object; detected from the key when empty.
	ContentType string

	// MaxSize in bytes, 0 for no limit. Larger objects fail with ErrTooLarge.
	MaxSize int64

	// Overwrite allows replacing an existing object at the same key.
	Overwrite bool

	// Filename is the name offered when the object is downloaded.
	Filename string
}

// ObjectInfo contains metadata about a stored object.
type ObjectInfo struct {
	Key          string
	Size         int64
	ContentType  string
	LastModified time.Time
	ETag         string
}

// =============================================================================
// Configuration
// =============================================================================

const (
	// ProviderLocal identifies the local filesystem storage provider.
	ProviderLocal = "local"

	// ProviderR2 identifies the Cloudflare R2 storage provider.
	ProviderR2 = "r2"
)

// Config selects and configures a provider.
type Config struct {
	Provider string
	Local    LocalConfig
	S3       S3Config
}

// LocalConfig holds configuration for local filesystem storage.
type LocalConfig struct {
	// BasePath is the root directory, e.g. "./storage".
	BasePath string

	// BaseURL is the URL prefix files are served under, e.g. "http://localhost:8080/files".
	BaseURL string
}

// S3Config holds configuration for an S3-compatible bucket.
type S3Config struct {
	// AccountID builds the R2 endpoint when Endpoint is empty.
	AccountID string

	// Endpoint overrides the bucket endpoint, e.g. a MinIO server.
	Endpoint string

	AccessKeyID     string
	SecretAccessKey string
	BucketName      string

	// PublicURL serves objects without signing when set.
	PublicURL string

	// Region defaults to "auto", which R2 expects.
	Region string
}

// New builds the configured provider.
func New(cfg Config, logger *slog.Logger) (Storage, error) {
	switch cfg.Provider {
	case ProviderLocal, "":
		return NewLocalStorage(cfg.Local, logger)
	case ProviderR2:
		return NewS3Storage(cfg.S3, logger)
	default:
		return nil, fmt.Errorf("unknown storage provider %q", cfg.Provider)
	}
}

// =============================================================================
// Keys
// =============================================================================

// ExportKey returns the key of a background export.
// Format: exports/{entity}/{jobID}.{ext}
//
// Example: "exports/engins/123e4567-e89b-12d3-a456-426614174000.csv"
func ExportKey(entity string, jobID uuid.UUID, ext string) string {
	return fmt.Sprintf("exports/%s/%s.%s", keySegment(entity), jobID, strings.TrimPrefix(ext, "."))
}

// ReportKey returns the key an archived backend report is stored under.
// Format: reports/{entity}/{name}/{yyyymmdd-hhmmss}-{uuid}.pdf
func ReportKey(entity, name string, at time.Time) string {
	return fmt.Sprintf("reports/%s/%s/%s-%s.pdf",
		keySegment(entity), keySegment(name), at.UTC().Format("20060102-150405"), uuid.New())
}

// keySegment keeps a path segment to lowercase letters, digits and dashes.
func keySegment(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	if b.Len() == 0 {
		return "misc"
	}
	return b.String()
}

// validateKey rejects empty keys and path traversal.
func validateKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") {
		return ErrInvalidKey
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." || part == "." || part == "" {
			return ErrInvalidKey
		}
	}
	return nil
}
