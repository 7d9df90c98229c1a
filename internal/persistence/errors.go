package persistence

import "errors"

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("persistence: not found")
	// ErrDuplicate is returned when a unique constraint is violated.
	ErrDuplicate = errors.New("persistence: duplicate record")
	// ErrConstraintViolation is returned when a check or required-field constraint fails.
	ErrConstraintViolation = errors.New("persistence: constraint violation")
	// ErrForeignKeyViolation is returned when a referenced row does not exist.
	ErrForeignKeyViolation = errors.New("persistence: foreign key violation")

	// ErrSoldOut is returned by Reserve when the item has no servings left.
	ErrSoldOut = errors.New("persistence: item sold out")
	// ErrQuotaExceeded is returned by Reserve when the caller already holds the
	// per-item claim limit.
	ErrQuotaExceeded = errors.New("persistence: claim quota exceeded")
	// ErrNothingToGrant is returned by Reserve when the clamped grant collapses
	// to zero after re-validation.
	ErrNothingToGrant = errors.New("persistence: nothing to grant")
)
