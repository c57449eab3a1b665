package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/medflow/medflow-timesheet/pkg/database"
	"github.com/medflow/medflow-timesheet/pkg/errors"
)

// Employee is the local copy of a staff-service employee
type Employee struct {
	ID            string     `db:"id" json:"id"`
	UserID        *string    `db:"user_id" json:"user_id,omitempty"`
	FirstName     string     `db:"first_name" json:"first_name"`
	LastName      string     `db:"last_name" json:"last_name"`
	HolidayListID *string    `db:"holiday_list_id" json:"holiday_list_id,omitempty"`
	Status        string     `db:"status" json:"status"`
	DeletedAt     *time.Time `db:"deleted_at" json:"-"`
}

// FullName returns first and last name
func (e *Employee) FullName() string {
	if e.LastName == "" {
		return e.FirstName
	}
	return e.FirstName + " " + e.LastName
}

// EmployeeRepository handles employee persistence
type EmployeeRepository struct {
	db *database.DB
}

// NewEmployeeRepository creates a new employee repository
func NewEmployeeRepository(db *database.DB) *EmployeeRepository {
	return &EmployeeRepository{db: db}
}

const employeeColumns = `id, user_id, first_name, last_name, holiday_list_id, status, deleted_at`

// GetByID returns an active employee
func (r *EmployeeRepository) GetByID(ctx context.Context, id string) (*Employee, error) {
	var emp Employee
	query := r.db.Rebind(`SELECT ` + employeeColumns + ` FROM employees WHERE id = ? AND deleted_at IS NULL`)

	if err := r.db.GetContext(ctx, &emp, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("employee")
		}
		return nil, fmt.Errorf("get employee %s: %w", id, err)
	}

	return &emp, nil
}

// GetByUserID returns the active employee linked to a user account
func (r *EmployeeRepository) GetByUserID(ctx context.Context, userID string) (*Employee, error) {
	var emp Employee
	query := r.db.Rebind(`SELECT ` + employeeColumns + ` FROM employees WHERE user_id = ? AND deleted_at IS NULL`)

	if err := r.db.GetContext(ctx, &emp, query, userID); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("employee")
		}
		return nil, fmt.Errorf("get employee for user %s: %w", userID, err)
	}

	return &emp, nil
}

// Exists reports whether an active employee with the id exists
func (r *EmployeeRepository) Exists(ctx context.Context, id string) (bool, error) {
	var count int
	query := r.db.Rebind(`SELECT COUNT(*) FROM employees WHERE id = ? AND deleted_at IS NULL`)

	if err := r.db.GetContext(ctx, &count, query, id); err != nil {
		return false, fmt.Errorf("check employee %s: %w", id, err)
	}

	return count > 0, nil
}

// HolidayListID returns the holiday list assigned to the employee, or nil
func (r *EmployeeRepository) HolidayListID(ctx context.Context, employeeID string) (*string, error) {
	emp, err := r.GetByID(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	return emp.HolidayListID, nil
}

// Upsert creates or refreshes an employee from a staff event.
// An existing holiday list assignment is kept when the incoming one is nil.
func (r *EmployeeRepository) Upsert(ctx context.Context, emp *Employee) error {
	if emp.Status == "" {
		emp.Status = "Active"
	}

	query := r.db.Rebind(`
		INSERT INTO employees (id, user_id, first_name, last_name, holiday_list_id, status, deleted_at)
		VALUES (?, ?, ?, ?, ?, ?, NULL)
		ON CONFLICT (id) DO UPDATE SET
			user_id = COALESCE(excluded.user_id, employees.user_id),
			first_name = excluded.first_name,
			last_name = excluded.last_name,
			holiday_list_id = COALESCE(excluded.holiday_list_id, employees.holiday_list_id),
			status = excluded.status,
			deleted_at = NULL
	`)

	_, err := r.db.ExecContext(ctx, query,
		emp.ID, emp.UserID, emp.FirstName, emp.LastName, emp.HolidayListID, emp.Status,
	)
	if err != nil {
		if appErr := database.MapStoreError(err); appErr != nil {
			return appErr
		}
		return fmt.Errorf("upsert employee %s: %w", emp.ID, err)
	}
	return nil
}

// SoftDelete marks an employee as deleted. Unknown ids are ignored.
func (r *EmployeeRepository) SoftDelete(ctx context.Context, id string, at time.Time) error {
	query := r.db.Rebind(`UPDATE employees SET status = 'Left', deleted_at = ? WHERE id = ? AND deleted_at IS NULL`)

	if _, err := r.db.ExecContext(ctx, query, at, id); err != nil {
		return fmt.Errorf("delete employee %s: %w", id, err)
	}
	return nil
}
