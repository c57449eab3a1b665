package database

import (
	"strings"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"github.com/medflow/medflow-timesheet/pkg/errors"
)

// MapStoreError converts a driver constraint error to an AppError with a meaningful message.
// Returns nil if the error is not a recognised constraint violation.
func MapStoreError(err error) *errors.AppError {
	if appErr := MapPQError(err); appErr != nil {
		return appErr
	}
	return mapSQLiteError(err)
}

// MapPQError converts a PostgreSQL error to an AppError with meaningful messages.
// Returns nil if the error is not a pq.Error.
func MapPQError(err error) *errors.AppError {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return nil
	}

	switch pqErr.Code {
	// Check constraint violation (23514)
	case "23514":
		return mapCheckConstraint(pqErr.Constraint)

	// Unique constraint violation (23505)
	case "23505":
		return errors.Conflict(formatConstraintMessage(pqErr.Constraint))

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

	default:
		return nil
	}
}

// sqlite reports constraint names inside the message text, e.g.
// "UNIQUE constraint failed: timesheets.employee_id, timesheets.start_date".
func mapSQLiteError(err error) *errors.AppError {
	var liteErr sqlite3.Error
	if !errors.As(err, &liteErr) {
		return nil
	}

	msg := liteErr.Error()
	switch liteErr.ExtendedCode {
	case sqlite3.ErrConstraintCheck:
		return mapCheckConstraint(msg)
	case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
		return errors.Conflict(formatConstraintMessage(msg))
	case sqlite3.ErrConstraintForeignKey:
		return errors.BadRequest("referenced record does not exist")
	case sqlite3.ErrConstraintNotNull:
		col := "required field"
		if i := strings.LastIndex(msg, "."); i >= 0 && i+1 < len(msg) {
			col = msg[i+1:]
		}
		return errors.Validation(map[string]string{
			col: "must not be empty",
		})
	default:
		return nil
	}
}

// mapCheckConstraint maps specific CHECK constraint names to user-friendly messages.
func mapCheckConstraint(constraint string) *errors.AppError {
	switch {
	case strings.Contains(constraint, "timesheets_dates_valid"):
		return errors.Validation(map[string]string{
			"end_date": "must not be before start_date",
		})

	case strings.Contains(constraint, "timesheets_docstatus_valid"):
		return errors.Validation(map[string]string{
			"docstatus": "must be one of: 0 (draft), 1 (submitted), 2 (cancelled)",
		})

	case strings.Contains(constraint, "timesheet_details_hours_valid"):
		return errors.Validation(map[string]string{
			"hours": "must not be negative",
		})

	default:
		return errors.BadRequest("data validation failed: " + constraint)
	}
}

// formatConstraintMessage creates a user-friendly message for unique constraint violations.
func formatConstraintMessage(constraint string) string {
	switch {
	case strings.Contains(constraint, "employees_user_id") || strings.Contains(constraint, "employees.user_id"):
		return "another employee is already linked to this user"
	case strings.Contains(constraint, "timesheets_pkey") || strings.Contains(constraint, "timesheets.id"):
		return "a timesheet with this id already exists"
	default:
		return "a record with these values already exists"
	}
}
