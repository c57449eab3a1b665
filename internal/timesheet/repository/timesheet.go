package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/medflow/medflow-timesheet/pkg/database"
	"github.com/medflow/medflow-timesheet/pkg/errors"
)

// Timesheet document states
const (
	DocStatusDraft     = 0
	DocStatusSubmitted = 1
	DocStatusCancelled = 2
)

// Timesheet is a weekly record of hours worked by one employee
type Timesheet struct {
	ID         string     `db:"id" json:"name"`
	EmployeeID string     `db:"employee_id" json:"employee"`
	StartDate  time.Time  `db:"start_date" json:"start_date"`
	EndDate    time.Time  `db:"end_date" json:"end_date"`
	DocStatus  int        `db:"docstatus" json:"docstatus"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updated_at"`
	Details    []LogEntry `db:"-" json:"time_logs"`
}

// LogEntry is one logged time record of a timesheet
type LogEntry struct {
	ID          string     `db:"id" json:"name"`
	TimesheetID string     `db:"timesheet_id" json:"timesheet"`
	TaskID      *string    `db:"task_id" json:"task,omitempty"`
	Hours       float64    `db:"hours" json:"hours"`
	Description string     `db:"description" json:"description"`
	FromTime    *time.Time `db:"from_time" json:"from_time,omitempty"`
	ToTime      *time.Time `db:"to_time" json:"to_time,omitempty"`
}

// TimesheetRepository handles timesheet persistence
type TimesheetRepository struct {
	db *database.DB
}

// NewTimesheetRepository creates a new timesheet repository
func NewTimesheetRepository(db *database.DB) *TimesheetRepository {
	return &TimesheetRepository{db: db}
}

// ListLogEntries returns the log entries of the employee's non-cancelled timesheets
// whose start date is one of dates.
func (r *TimesheetRepository) ListLogEntries(ctx context.Context, employeeID string, dates []time.Time) ([]LogEntry, error) {
	if len(dates) == 0 {
		return []LogEntry{}, nil
	}

	query, args, err := sqlx.In(`
		SELECT d.id, d.timesheet_id, d.task_id, d.hours, d.description, d.from_time, d.to_time
		FROM timesheet_details d
		JOIN timesheets t ON t.id = d.timesheet_id
		WHERE t.employee_id = ? AND t.docstatus != ? AND t.start_date IN (?)
		ORDER BY t.start_date, d.from_time, d.id
	`, employeeID, DocStatusCancelled, dates)
	if err != nil {
		return nil, fmt.Errorf("build log entry query: %w", err)
	}

	entries := []LogEntry{}
	if err := r.db.SelectContext(ctx, &entries, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list log entries for %s: %w", employeeID, err)
	}

	return entries, nil
}

// GetByID returns a timesheet with its log entries
func (r *TimesheetRepository) GetByID(ctx context.Context, id string) (*Timesheet, error) {
	var ts Timesheet
	query := r.db.Rebind(`
		SELECT id, employee_id, start_date, end_date, docstatus, created_at, updated_at
		FROM timesheets WHERE id = ?
	`)

	if err := r.db.GetContext(ctx, &ts, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("timesheet")
		}
		return nil, fmt.Errorf("get timesheet %s: %w", id, err)
	}

	ts.Details = []LogEntry{}
	detailQuery := r.db.Rebind(`
		SELECT id, timesheet_id, task_id, hours, description, from_time, to_time
		FROM timesheet_details WHERE timesheet_id = ?
		ORDER BY from_time, id
	`)
	if err := r.db.SelectContext(ctx, &ts.Details, detailQuery, id); err != nil {
		return nil, fmt.Errorf("list details of timesheet %s: %w", id, err)
	}

	return &ts, nil
}

// Create inserts a timesheet and its log entries in one transaction.
// IDs are generated for the timesheet and for entries that have none.
func (r *TimesheetRepository) Create(ctx context.Context, ts *Timesheet) error {
	if ts.ID == "" {
		ts.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	ts.CreatedAt = now
	ts.UpdatedAt = now

	err := r.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		query := tx.Rebind(`
			INSERT INTO timesheets (id, employee_id, start_date, end_date, docstatus, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`)
		if _, err := tx.ExecContext(ctx, query,
			ts.ID, ts.EmployeeID, ts.StartDate, ts.EndDate, ts.DocStatus, ts.CreatedAt, ts.UpdatedAt,
		); err != nil {
			return err
		}
		return insertDetails(ctx, tx, ts)
	})
	if err != nil {
		return mapWriteError(err, "create timesheet")
	}
	return nil
}

// Update replaces the dates and log entries of a timesheet
func (r *TimesheetRepository) Update(ctx context.Context, ts *Timesheet) error {
	ts.UpdatedAt = time.Now().UTC()

	err := r.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		query := tx.Rebind(`UPDATE timesheets SET start_date = ?, end_date = ?, updated_at = ? WHERE id = ?`)
		result, err := tx.ExecContext(ctx, query, ts.StartDate, ts.EndDate, ts.UpdatedAt, ts.ID)
		if err != nil {
			return err
		}
		if rows, _ := result.RowsAffected(); rows == 0 {
			return errors.NotFound("timesheet")
		}

		if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM timesheet_details WHERE timesheet_id = ?`), ts.ID); err != nil {
			return err
		}
		return insertDetails(ctx, tx, ts)
	})
	if err != nil {
		return mapWriteError(err, "update timesheet "+ts.ID)
	}
	return nil
}

// UpdateDocStatus moves a timesheet to another document state
func (r *TimesheetRepository) UpdateDocStatus(ctx context.Context, id string, docStatus int) error {
	query := r.db.Rebind(`UPDATE timesheets SET docstatus = ?, updated_at = ? WHERE id = ?`)

	result, err := r.db.ExecContext(ctx, query, docStatus, time.Now().UTC(), id)
	if err != nil {
		return mapWriteError(err, "update status of timesheet "+id)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return errors.NotFound("timesheet")
	}
	return nil
}

func insertDetails(ctx context.Context, tx *sqlx.Tx, ts *Timesheet) error {
	query := tx.Rebind(`
		INSERT INTO timesheet_details (id, timesheet_id, task_id, hours, description, from_time, to_time)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)

	for i := range ts.Details {
		d := &ts.Details[i]
		if d.ID == "" {
			d.ID = uuid.New().String()
		}
		d.TimesheetID = ts.ID

		if _, err := tx.ExecContext(ctx, query,
			d.ID, d.TimesheetID, d.TaskID, d.Hours, d.Description, d.FromTime, d.ToTime,
		); err != nil {
			return err
		}
	}
	return nil
}

func mapWriteError(err error, op string) error {
	var appErr *errors.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	if mapped := database.MapStoreError(err); mapped != nil {
		return mapped
	}
	return fmt.Errorf("%s: %w", op, err)
}
