package repository

import (
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/aryan0dhankhar/aptlease/internal/domain"
)

const (
	pqUniqueViolation     = pq.ErrorCode("23505")
	pqForeignKeyViolation = pq.ErrorCode("23503")
	pqNumericOutOfRange   = pq.ErrorCode("22003")
)

// classifyWrite maps constraint violations raised by INSERT/UPDATE onto domain errors,
// keeping the driver error in the chain for logging.
func classifyWrite(op string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqUniqueViolation:
			return fmt.Errorf("%s: %w: %w", op, domain.ErrDuplicate, err)
		case pqForeignKeyViolation:
			return fmt.Errorf("%s: %w: %w", op, domain.ErrInvalidReference, err)
		case pqNumericOutOfRange:
			return fmt.Errorf("%s: %w: numeric value out of range: %w", op, domain.ErrValidation, err)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

// classifyDelete maps a foreign-key violation on DELETE to ErrInUse
func classifyDelete(op string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == pqForeignKeyViolation {
		return fmt.Errorf("%s: %w: %w", op, domain.ErrInUse, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
