package service

import (
	"context"
	"time"

	"github.com/medflow/medflow-timesheet/internal/timesheet/repository"
)

// The service depends on these narrow views of the repositories so report logic can
// be exercised against in-memory fakes.

// EmployeeStore resolves employees
type EmployeeStore interface {
	Exists(ctx context.Context, id string) (bool, error)
	GetByUserID(ctx context.Context, userID string) (*repository.Employee, error)
	HolidayListID(ctx context.Context, employeeID string) (*string, error)
}

// LogEntryStore lists logged time
type LogEntryStore interface {
	ListLogEntries(ctx context.Context, employeeID string, dates []time.Time) ([]repository.LogEntry, error)
}

// TaskStore loads task metadata in bulk
type TaskStore interface {
	GetByIDs(ctx context.Context, ids []string) ([]repository.Task, error)
}

// LeaveStore lists leave applications
type LeaveStore interface {
	ListForEmployee(ctx context.Context, employeeID string, from, to time.Time) ([]repository.LeaveApplication, error)
}

// HolidayStore lists holidays of a holiday list
type HolidayStore interface {
	ListBetween(ctx context.Context, holidayListID string, from, to time.Time) ([]repository.Holiday, error)
}

// TimesheetStore persists timesheets
type TimesheetStore interface {
	GetByID(ctx context.Context, id string) (*repository.Timesheet, error)
	Create(ctx context.Context, ts *repository.Timesheet) error
	Update(ctx context.Context, ts *repository.Timesheet) error
	UpdateDocStatus(ctx context.Context, id string, docStatus int) error
}
