package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/medflow/medflow-timesheet/pkg/database"
)

// Seeder inserts rows straight into the timesheet tables. Records the service only
// reads (tasks, projects, leaves, holidays) have no repository writer, so tests
// create them here.
type Seeder struct {
	db *database.DB
}

// NewSeeder creates a seeder for db
func NewSeeder(db *database.DB) *Seeder {
	return &Seeder{db: db}
}

func (s *Seeder) exec(t *testing.T, query string, args ...any) {
	t.Helper()
	if _, err := s.db.ExecContext(context.Background(), s.db.Rebind(query), args...); err != nil {
		t.Fatalf("seed failed: %v\n%s", err, query)
	}
}

// Employee inserts an active employee. userID and holidayListID may be empty.
func (s *Seeder) Employee(t *testing.T, id, firstName, userID, holidayListID string) {
	t.Helper()
	s.exec(t, `INSERT INTO employees (id, user_id, first_name, last_name, holiday_list_id, status) VALUES (?, ?, ?, '', ?, 'Active')`,
		id, nullable(userID), firstName, nullable(holidayListID))
}

// Project inserts a project
func (s *Seeder) Project(t *testing.T, id, name string) {
	t.Helper()
	s.exec(t, `INSERT INTO projects (id, project_name) VALUES (?, ?)`, id, name)
}

// Task inserts a task. projectID may be empty.
func (s *Seeder) Task(t *testing.T, id, subject, projectID string, expected, actual float64) {
	t.Helper()
	s.exec(t, `INSERT INTO tasks (id, subject, project_id, expected_time, actual_time, status) VALUES (?, ?, ?, ?, ?, 'Open')`,
		id, subject, nullable(projectID), expected, actual)
}

// Timesheet inserts a timesheet header
func (s *Seeder) Timesheet(t *testing.T, id, employeeID string, start, end time.Time, docStatus int) {
	t.Helper()
	s.exec(t, `INSERT INTO timesheets (id, employee_id, start_date, end_date, docstatus) VALUES (?, ?, ?, ?, ?)`,
		id, employeeID, start, end, docStatus)
}

// LogEntry inserts a timesheet detail. taskID may be empty for unassigned time.
func (s *Seeder) LogEntry(t *testing.T, id, timesheetID, taskID string, hours float64, description string) {
	t.Helper()
	s.exec(t, `INSERT INTO timesheet_details (id, timesheet_id, task_id, hours, description) VALUES (?, ?, ?, ?, ?)`,
		id, timesheetID, nullable(taskID), hours, description)
}

// Leave inserts a leave application
func (s *Seeder) Leave(t *testing.T, id, employeeID string, from, to time.Time, halfDay bool, status string, docStatus int) {
	t.Helper()
	days := to.Sub(from).Hours()/24 + 1
	if halfDay {
		days = 0.5
	}
	var halfDayDate *time.Time
	if halfDay {
		halfDayDate = &from
	}
	s.exec(t, `INSERT INTO leave_applications (id, employee_id, from_date, to_date, half_day, half_day_date, total_leave_days, status, docstatus) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, employeeID, from, to, halfDay, halfDayDate, days, status, docStatus)
}

// Holiday inserts a holiday into a list
func (s *Seeder) Holiday(t *testing.T, id, holidayListID string, date time.Time, description string, weeklyOff bool) {
	t.Helper()
	s.exec(t, `INSERT INTO holidays (id, holiday_list_id, holiday_date, description, weekly_off) VALUES (?, ?, ?, ?, ?)`,
		id, holidayListID, date, description, weeklyOff)
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
