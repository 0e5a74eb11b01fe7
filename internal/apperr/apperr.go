// Package apperr defines the error kinds shared by the stash stores and the
// allocation ledger. Callers match kinds with errors.Is against the sentinels.
package apperr

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// Sentinel error kinds.
var (
	ErrNotFound          = errors.New("not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrValidation        = errors.New("validation failed")
	ErrStorage           = errors.New("storage failure")
)

// Kind is a short name for an error's category, used in API responses and logs.
type Kind string

const (
	KindNotFound          Kind = "not_found"
	KindInsufficientStock Kind = "insufficient_stock"
	KindValidation        Kind = "validation"
	KindStorage           Kind = "storage"
	KindUnknown           Kind = "unknown"
)

// KindOf classifies err. Errors that match no sentinel are KindUnknown.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrInsufficientStock):
		return KindInsufficientStock
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrStorage):
		return KindStorage
	default:
		return KindUnknown
	}
}

// NotFound returns an ErrNotFound-kind error for the named entity.
func NotFound(entity string, id any) error {
	return fmt.Errorf("%s %v: %w", entity, id, ErrNotFound)
}

// Validationf returns an ErrValidation-kind error with a formatted reason.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrValidation)
}

// Storage wraps a database or blob store failure for op. gorm.ErrRecordNotFound
// is translated to ErrNotFound so callers see one not-found kind regardless of
// which layer produced it. A nil err returns nil.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return &storageError{op: op, err: err}
}

type storageError struct {
	op  string
	err error
}

func (e *storageError) Error() string { return e.op + ": " + e.err.Error() }

func (e *storageError) Unwrap() []error { return []error{ErrStorage, e.err} }

// InsufficientStockError reports an allocation that exceeds what is available.
type InsufficientStockError struct {
	YarnID    uint
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for yarn %d: requested %d, only %d available",
		e.YarnID, e.Requested, e.Available)
}

// Is reports ErrInsufficientStock as this error's kind.
func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}
