package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks malformed or missing input. Never retried.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound marks a missing row or identity.
	ErrNotFound = errors.New("not found")
	// ErrConflict marks a business-rule or uniqueness violation.
	ErrConflict = errors.New("conflict")
	// ErrInvalidReference marks a foreign-key violation on write.
	ErrInvalidReference = errors.New("invalid reference")
	// ErrForbidden marks a principal without the required role.
	ErrForbidden = errors.New("forbidden")
	// ErrUnauthenticated marks a missing, invalid or revoked token.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrDuplicate is a unique-constraint violation.
	ErrDuplicate = fmt.Errorf("%w: duplicate key", ErrConflict)
	// ErrInUse is a foreign-key violation raised while deleting a referenced row.
	ErrInUse = fmt.Errorf("%w: row is still referenced", ErrConflict)
)

// PartialFailureError reports a multi-step write where an earlier step committed
// and a later one did not. Stored state needs manual reconciliation.
type PartialFailureError struct {
	Operation  string
	ContractID string
	Cause      error
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("%s partially committed (contract %s): %v", e.Operation, e.ContractID, e.Cause)
}

func (e *PartialFailureError) Unwrap() error {
	return e.Cause
}

// IsPartialFailure reports whether err carries a PartialFailureError.
func IsPartialFailure(err error) bool {
	var pf *PartialFailureError
	return errors.As(err, &pf)
}
