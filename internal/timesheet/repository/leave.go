package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/medflow/medflow-timesheet/pkg/database"
)

// LeaveApplication is an employee's approved or pending time off
type LeaveApplication struct {
	ID             string     `db:"id"`
	FromDate       time.Time  `db:"from_date"`
	ToDate         time.Time  `db:"to_date"`
	HalfDay        bool       `db:"half_day"`
	HalfDayDate    *time.Time `db:"half_day_date"`
	TotalLeaveDays float64    `db:"total_leave_days"`
}

// MarshalJSON renders dates as YYYY-MM-DD
func (l LeaveApplication) MarshalJSON() ([]byte, error) {
	var halfDayDate *string
	if l.HalfDayDate != nil {
		s := l.HalfDayDate.Format(dateLayout)
		halfDayDate = &s
	}

	return json.Marshal(struct {
		Name           string  `json:"name"`
		FromDate       string  `json:"from_date"`
		ToDate         string  `json:"to_date"`
		HalfDay        bool    `json:"half_day"`
		HalfDayDate    *string `json:"half_day_date"`
		TotalLeaveDays float64 `json:"total_leave_days"`
	}{
		Name:           l.ID,
		FromDate:       l.FromDate.Format(dateLayout),
		ToDate:         l.ToDate.Format(dateLayout),
		HalfDay:        l.HalfDay,
		HalfDayDate:    halfDayDate,
		TotalLeaveDays: l.TotalLeaveDays,
	})
}

const dateLayout = "2006-01-02"

// LeaveRepository reads leave applications
type LeaveRepository struct {
	db *database.DB
}

// NewLeaveRepository creates a new leave repository
func NewLeaveRepository(db *database.DB) *LeaveRepository {
	return &LeaveRepository{db: db}
}

// ListForEmployee returns the Approved or Open, non-cancelled leave applications
// overlapping [from, to], ordered by from and to date.
func (r *LeaveRepository) ListForEmployee(ctx context.Context, employeeID string, from, to time.Time) ([]LeaveApplication, error) {
	query := r.db.Rebind(`
		SELECT id, from_date, to_date, half_day, half_day_date, total_leave_days
		FROM leave_applications
		WHERE employee_id = ?
			AND from_date <= ?
			AND to_date >= ?
			AND docstatus IN (0, 1)
			AND status IN ('Approved', 'Open')
		ORDER BY from_date, to_date
	`)

	leaves := []LeaveApplication{}
	if err := r.db.SelectContext(ctx, &leaves, query, employeeID, to, from); err != nil {
		return nil, fmt.Errorf("list leaves for %s: %w", employeeID, err)
	}

	return leaves, nil
}
