package storage

import (
	"errors"
	"fmt"

	"github.com/DukeRupert/guichet/internal/domain"
)

var (
	// ErrNotFound is returned when a requested object doesn't exist.
	ErrNotFound = errors.New("object not found")

	// ErrKeyExists is returned when a key is taken and overwrite is disabled.
	ErrKeyExists = errors.New("object already exists at this key")

	// ErrInvalidKey is returned for empty keys and path traversal attempts.
	ErrInvalidKey = errors.New("invalid storage key")

	// ErrTooLarge is returned when an object exceeds PutOptions.MaxSize.
	ErrTooLarge = errors.New("object exceeds maximum size")

	// ErrAccessDenied is returned when the provider refuses the operation.
	ErrAccessDenied = errors.New("access denied")
)

// StorageError records the operation and key of a failure.
// It supports errors.Is against the sentinel errors.
type StorageError struct {
	Op  string // "Put", "Get", "Delete", ...
	Key string
	Err error
}

func (e *StorageError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("storage %s %q: %v", e.Op, e.Key, e.Err)
	}
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// IsNotFound returns true if the error indicates an object was not found.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsKeyExists returns true if the error indicates a key already exists.
func IsKeyExists(err error) bool {
	return errors.Is(err, ErrKeyExists)
}

// IsTooLarge returns true if the error indicates an object was too large.
func IsTooLarge(err error) bool {
	return errors.Is(err, ErrTooLarge)
}

// DomainError translates a storage failure into an application error.
func DomainError(op string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return domain.Wrap(err, domain.ENOTFOUND, op, "Fichier introuvable.")
	case errors.Is(err, ErrInvalidKey):
		return domain.Wrap(err, domain.EINVALID, op, "Nom de fichier invalide.")
	case errors.Is(err, ErrKeyExists):
		return domain.Wrap(err, domain.ECONFLICT, op, "Le fichier existe déjà.")
	case errors.Is(err, ErrTooLarge):
		return domain.Wrap(err, domain.EINVALID, op, "Fichier trop volumineux.")
	case errors.Is(err, ErrAccessDenied):
		return domain.Wrap(err, domain.EFORBIDDEN, op, "Accès au fichier refusé.")
	default:
		return domain.Internal(err, op, "storage failure")
	}
}
