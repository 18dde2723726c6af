package database

import (
	"strings"

	"github.com/lib/pq"
	"github.com/stocklot/stocklot-backend/pkg/errors"
)

// MapPQError converts a PostgreSQL error to an AppError with meaningful messages.
// Returns nil if the error is not a pq.Error.
func MapPQError(err error) *errors.AppError {
	pqErr, ok := err.(*pq.Error)
	if !ok {
		return nil
	}

	switch pqErr.Code {
	// Check constraint violation (23514)
	case "23514":
		return mapCheckConstraint(pqErr)

	// Unique constraint violation (23505)
	case "23505":
		return errors.Conflict(formatConstraintMessage(pqErr))

	// Foreign key violation (23503)
	case "23503":
		return errors.BadRequest("referenced record does not exist")

	// Not null violation (23502)
	case "23502":
		col := pqErr.Column
		if col == "" {
			col = "required field"
		}
		return errors.Validation(map[string]string{
			col: "must not be empty",
		})

	// Lock not available (55P03) - bounded lock_timeout expired while waiting
	// on a lot row
	case "55P03":
		return errors.Concurrency("lot is locked by another operation, retry")

	// Serialization failure (40001) / deadlock detected (40P01)
	case "40001", "40P01":
		return errors.Concurrency("concurrent modification detected, retry")

	default:
		return nil
	}
}

// mapCheckConstraint maps specific CHECK constraint names to user-friendly messages.
func mapCheckConstraint(pqErr *pq.Error) *errors.AppError {
	constraint := pqErr.Constraint

	switch {
	case strings.Contains(constraint, "quantity_non_negative"):
		return errors.InsufficientQuantity("requested", "available")

	case strings.Contains(constraint, "status_valid"):
		return errors.Validation(map[string]string{
			"status": "must be one of: available, reserved, split, depleted, scrapped",
		})

	case strings.Contains(constraint, "source_type_valid"):
		return errors.Validation(map[string]string{
			"source_type": "must be one of: purchase, production, adjustment, split",
		})

	default:
		return errors.BadRequest("data validation failed: " + constraint)
	}
}

// formatConstraintMessage creates a user-friendly message for unique constraint violations.
func formatConstraintMessage(pqErr *pq.Error) string {
	constraint := pqErr.Constraint

	switch {
	case strings.Contains(constraint, "lot_number"):
		return "a lot with this lot number already exists"
	case strings.Contains(constraint, "processed_document_items"):
		return "this document item has already been processed"
	case strings.Contains(constraint, "internal_code"):
		return "a product with this internal code already exists"
	default:
		return "a record with these values already exists"
	}
}
