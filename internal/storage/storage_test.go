package storage

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/aws/smithy-go"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DukeRupert/guichet/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newLocal(t *testing.T) *LocalStorage {
	t.Helper()
	s, err := NewLocalStorage(LocalConfig{BasePath: t.TempDir(), BaseURL: "http://localhost:8080/files/"}, discardLogger())
	require.NoError(t, err)
	return s
}

func TestExportKey(t *testing.T) {
	id := uuid.MustParse("123e4567-e89b-12d3-a456-426614174000")
	assert.Equal(t, "exports/engins/123e4567-e89b-12d3-a456-426614174000.csv", ExportKey("engins", id, "csv"))
	assert.Equal(t, "exports/misc/123e4567-e89b-12d3-a456-426614174000.pdf", ExportKey("", id, ".pdf"))
	assert.Equal(t, "exports/----a-b/123e4567-e89b-12d3-a456-426614174000.csv", ExportKey("../A B", id, "csv"))
}

func TestReportKey(t *testing.T) {
	at := time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)
	key := ReportKey("Engins", "inventaire", at)
	assert.True(t, strings.HasPrefix(key, "reports/engins/inventaire/20240315-103000-"), key)
	assert.True(t, strings.HasSuffix(key, ".pdf"))
	assert.NoError(t, validateKey(key))
}

func TestValidateKey(t *testing.T) {
	for _, key := range []string{"", "/abs", "a/../b", "a//b", "./a", "a/"} {
		assert.ErrorIs(t, validateKey(key), ErrInvalidKey, key)
	}
	assert.NoError(t, validateKey("exports/engins/x.csv"))
}

func TestLocalStorage_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newLocal(t)
	key := "exports/engins/one.csv"

	require.NoError(t, s.Put(ctx, key, strings.NewReader("a;b"), PutOptions{}))

	ok, err := s.Exists(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)

	rc, info, err := s.Get(ctx, key)
	require.NoError(t, err)
	defer rc.Close()
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "a;b", string(body))
	assert.Equal(t, int64(3), info.Size)
	assert.Equal(t, "text/csv; charset=utf-8", info.ContentType)

	url, err := s.URL(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/files/exports/engins/one.csv", url)

	require.NoError(t, s.Delete(ctx, key))
	require.NoError(t, s.Delete(ctx, key))
	ok, err = s.Exists(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLocalStorage_Overwrite(t *testing.T) {
	ctx := context.Background()
	s := newLocal(t)
	key := "reports/engins/r.pdf"

	require.NoError(t, s.Put(ctx, key, strings.NewReader("1"), PutOptions{}))
	err := s.Put(ctx, key, strings.NewReader("2"), PutOptions{})
	assert.True(t, IsKeyExists(err))

	require.NoError(t, s.Put(ctx, key, strings.NewReader("2"), PutOptions{Overwrite: true}))
	rc, _, err := s.Get(ctx, key)
	require.NoError(t, err)
	defer rc.Close()
	body, _ := io.ReadAll(rc)
	assert.Equal(t, "2", string(body))
}

func TestLocalStorage_MaxSize(t *testing.T) {
	ctx := context.Background()
	s := newLocal(t)

	err := s.Put(ctx, "exports/big.csv", strings.NewReader("123456"), PutOptions{MaxSize: 3})
	assert.True(t, IsTooLarge(err))

	ok, err := s.Exists(ctx, "exports/big.csv")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLocalStorage_Errors(t *testing.T) {
	ctx := context.Background()
	s := newLocal(t)

	_, _, err := s.Get(ctx, "missing.csv")
	assert.True(t, IsNotFound(err))

	err = s.Put(ctx, "../escape.csv", strings.NewReader("x"), PutOptions{})
	assert.ErrorIs(t, err, ErrInvalidKey)

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	assert.ErrorIs(t, s.Put(canceled, "a.csv", strings.NewReader("x"), PutOptions{}), context.Canceled)
}

func TestNew(t *testing.T) {
	s, err := New(Config{Provider: ProviderLocal, Local: LocalConfig{BasePath: t.TempDir()}}, discardLogger())
	require.NoError(t, err)
	assert.IsType(t, &LocalStorage{}, s)

	s, err = New(Config{Provider: ProviderR2, S3: S3Config{AccountID: "acct", BucketName: "exports"}}, discardLogger())
	require.NoError(t, err)
	assert.IsType(t, &S3Storage{}, s)

	_, err = New(Config{Provider: ProviderR2}, discardLogger())
	assert.Error(t, err)

	_, err = New(Config{Provider: "ftp"}, discardLogger())
	assert.Error(t, err)
}

func TestS3Storage_PublicURL(t *testing.T) {
	s, err := NewS3Storage(S3Config{AccountID: "acct", BucketName: "exports", PublicURL: "https://files.example.com/"}, discardLogger())
	require.NoError(t, err)

	url, err := s.URL(context.Background(), "exports/engins/a.csv", 0)
	require.NoError(t, err)
	assert.Equal(t, "https://files.example.com/exports/engins/a.csv", url)

	_, err = s.URL(context.Background(), "../a.csv", 0)
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestWrapS3Error(t *testing.T) {
	assert.ErrorIs(t, wrapS3Error(&smithy.GenericAPIError{Code: "NoSuchKey"}), ErrNotFound)
	assert.ErrorIs(t, wrapS3Error(&smithy.GenericAPIError{Code: "AccessDenied"}), ErrAccessDenied)

	other := errors.New("boom")
	assert.ErrorIs(t, wrapS3Error(other), other)
}

func TestDetectContentType(t *testing.T) {
	assert.Equal(t, "text/plain", DetectContentType("text/plain", "a.pdf", nil))
	assert.Equal(t, "application/pdf", DetectContentType("", "a.pdf", nil))
	assert.Equal(t, "text/csv; charset=utf-8", DetectContentType("", "a.CSV", nil))
	assert.Equal(t, "application/pdf", DetectContentType("", "blob", strings.NewReader("%PDF-1.4\n")))
	assert.Equal(t, "application/octet-stream", DetectContentType("", "blob", nil))

	assert.True(t, IsPDF("application/pdf; qs=1"))
	assert.True(t, IsExport("text/csv; charset=utf-8"))
	assert.False(t, IsExport("image/png"))
}

func TestContentDisposition(t *testing.T) {
	assert.Equal(t, "", contentDisposition(""))
	assert.Equal(t, "attachment; filename=engins-20240315.csv", contentDisposition("engins-20240315.csv"))
}

func TestDomainError(t *testing.T) {
	assert.Nil(t, DomainError("op", nil))
	assert.Equal(t, domain.ENOTFOUND, domain.ErrorCode(DomainError("op", &StorageError{Op: "Get", Err: ErrNotFound})))
	assert.Equal(t, domain.EINVALID, domain.ErrorCode(DomainError("op", ErrInvalidKey)))
	assert.Equal(t, domain.ECONFLICT, domain.ErrorCode(DomainError("op", ErrKeyExists)))
	assert.Equal(t, domain.EFORBIDDEN, domain.ErrorCode(DomainError("op", ErrAccessDenied)))
	assert.Equal(t, domain.EINTERNAL, domain.ErrorCode(DomainError("op", errors.New("disk"))))
}
