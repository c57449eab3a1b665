package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/medflow/medflow-timesheet/internal/timesheet/calendar"
	"github.com/medflow/medflow-timesheet/internal/timesheet/repository"
	"github.com/medflow/medflow-timesheet/pkg/errors"
	"github.com/medflow/medflow-timesheet/pkg/messaging"
)

type fakeEmployees struct {
	employees map[string]*repository.Employee
	existsErr error
}

func newFakeEmployees(emps ...*repository.Employee) *fakeEmployees {
	f := &fakeEmployees{employees: map[string]*repository.Employee{}}
	for _, e := range emps {
		f.employees[e.ID] = e
	}
	return f
}

func (f *fakeEmployees) Exists(_ context.Context, id string) (bool, error) {
	if f.existsErr != nil {
		return false, f.existsErr
	}
	_, ok := f.employees[id]
	return ok, nil
}

func (f *fakeEmployees) GetByUserID(_ context.Context, userID string) (*repository.Employee, error) {
	for _, e := range f.employees {
		if e.UserID != nil && *e.UserID == userID {
			return e, nil
		}
	}
	return nil, errors.NotFound("employee")
}

func (f *fakeEmployees) HolidayListID(_ context.Context, employeeID string) (*string, error) {
	e, ok := f.employees[employeeID]
	if !ok {
		return nil, errors.NotFound("employee")
	}
	return e.HolidayListID, nil
}

type loggedTime struct {
	employeeID string
	start      time.Time
	entry      repository.LogEntry
}

type fakeLogEntries struct {
	logs  []loggedTime
	calls int
	err   error
}

func (f *fakeLogEntries) add(employeeID string, start time.Time, entry repository.LogEntry) {
	f.logs = append(f.logs, loggedTime{employeeID: employeeID, start: start, entry: entry})
}

func (f *fakeLogEntries) ListLogEntries(_ context.Context, employeeID string, dates []time.Time) ([]repository.LogEntry, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}

	wanted := make(map[string]bool, len(dates))
	for _, d := range dates {
		wanted[calendar.FormatDate(d)] = true
	}

	entries := []repository.LogEntry{}
	for _, l := range f.logs {
		if l.employeeID == employeeID && wanted[calendar.FormatDate(l.start)] {
			entries = append(entries, l.entry)
		}
	}
	return entries, nil
}

type fakeTasks struct {
	tasks map[string]repository.Task
	calls int
	ids   [][]string
}

func newFakeTasks(tasks ...repository.Task) *fakeTasks {
	f := &fakeTasks{tasks: map[string]repository.Task{}}
	for _, t := range tasks {
		f.tasks[t.ID] = t
	}
	return f
}

func (f *fakeTasks) GetByIDs(_ context.Context, ids []string) ([]repository.Task, error) {
	f.calls++
	f.ids = append(f.ids, ids)

	result := []repository.Task{}
	for _, id := range ids {
		if t, ok := f.tasks[id]; ok {
			result = append(result, t)
		}
	}
	return result, nil
}

type fakeLeaves struct {
	leaves   []repository.LeaveApplication
	from, to time.Time
}

func (f *fakeLeaves) ListForEmployee(_ context.Context, _ string, from, to time.Time) ([]repository.LeaveApplication, error) {
	f.from, f.to = from, to
	return f.leaves, nil
}

type fakeHolidays struct {
	holidays []repository.Holiday
	listID   string
}

func (f *fakeHolidays) ListBetween(_ context.Context, holidayListID string, _, _ time.Time) ([]repository.Holiday, error) {
	f.listID = holidayListID
	return f.holidays, nil
}

type fakeTimesheets struct {
	timesheets map[string]*repository.Timesheet
}

func newFakeTimesheets() *fakeTimesheets {
	return &fakeTimesheets{timesheets: map[string]*repository.Timesheet{}}
}

func (f *fakeTimesheets) GetByID(_ context.Context, id string) (*repository.Timesheet, error) {
	ts, ok := f.timesheets[id]
	if !ok {
		return nil, errors.NotFound("timesheet")
	}
	cp := *ts
	return &cp, nil
}

func (f *fakeTimesheets) Create(_ context.Context, ts *repository.Timesheet) error {
	if ts.ID == "" {
		ts.ID = "TS-" + calendar.FormatDate(ts.StartDate)
	}
	cp := *ts
	f.timesheets[ts.ID] = &cp
	return nil
}

func (f *fakeTimesheets) Update(_ context.Context, ts *repository.Timesheet) error {
	if _, ok := f.timesheets[ts.ID]; !ok {
		return errors.NotFound("timesheet")
	}
	cp := *ts
	f.timesheets[ts.ID] = &cp
	return nil
}

func (f *fakeTimesheets) UpdateDocStatus(_ context.Context, id string, docStatus int) error {
	ts, ok := f.timesheets[id]
	if !ok {
		return errors.NotFound("timesheet")
	}
	ts.DocStatus = docStatus
	return nil
}

type publishedEvent struct {
	Type string
	Data json.RawMessage
}

// recordingPublisher is a messaging.EventPublisher that keeps what it publishes
type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

var _ messaging.EventPublisher = (*recordingPublisher)(nil)

func (p *recordingPublisher) Publish(_ context.Context, eventType string, data interface{}) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{Type: eventType, Data: raw})
	return nil
}

// failingCache fails every operation
type failingCache struct {
	err error
}

func (c failingCache) Get(context.Context, string, string, any) (bool, error) { return false, c.err }
func (c failingCache) Set(context.Context, string, string, any) error        { return c.err }
func (c failingCache) Delete(context.Context, string, string) error          { return c.err }

func date(s string) time.Time {
	d, err := calendar.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func strPtr(s string) *string {
	return &s
}
