package service

import (
	"context"
	"time"

	"github.com/medflow/medflow-timesheet/internal/timesheet/calendar"
	"github.com/medflow/medflow-timesheet/internal/timesheet/events"
	"github.com/medflow/medflow-timesheet/internal/timesheet/repository"
	"github.com/medflow/medflow-timesheet/pkg/errors"
	"github.com/medflow/medflow-timesheet/pkg/logger"
)

// TimesheetService handles timesheet writes. Every write drops the cached report
// week it touches and publishes a timesheet event for other replicas.
type TimesheetService struct {
	timesheets  TimesheetStore
	employees   EmployeeStore
	invalidator *Invalidator
	publisher   *events.TimesheetEventPublisher
	logger      *logger.Logger
}

// NewTimesheetService creates a new timesheet service. publisher may be nil.
func NewTimesheetService(
	timesheets TimesheetStore,
	employees EmployeeStore,
	invalidator *Invalidator,
	publisher *events.TimesheetEventPublisher,
	log *logger.Logger,
) *TimesheetService {
	return &TimesheetService{
		timesheets:  timesheets,
		employees:   employees,
		invalidator: invalidator,
		publisher:   publisher,
		logger:      log,
	}
}

// GetByID returns a timesheet with its log entries
func (s *TimesheetService) GetByID(ctx context.Context, id string) (*repository.Timesheet, error) {
	return s.timesheets.GetByID(ctx, id)
}

// Create creates a draft timesheet
func (s *TimesheetService) Create(ctx context.Context, ts *repository.Timesheet) error {
	ok, err := s.employees.Exists(ctx, ts.EmployeeID)
	if err != nil {
		return err
	}
	if !ok {
		return errors.NotFound("employee")
	}

	if err := normalizeDates(ts); err != nil {
		return err
	}
	ts.DocStatus = repository.DocStatusDraft

	if err := s.timesheets.Create(ctx, ts); err != nil {
		return err
	}

	if err := s.invalidator.Invalidate(ctx, ts.EmployeeID, ts.StartDate); err != nil {
		return err
	}
	s.publisher.PublishTimesheetCreated(ctx, ts)

	s.logger.Info().
		Str("timesheet_id", ts.ID).
		Str("employee_id", ts.EmployeeID).
		Time("start_date", ts.StartDate).
		Msg("timesheet created")

	return nil
}

// Update replaces the dates and log entries of a draft timesheet. When the start
// date moves to another week both weeks are invalidated.
func (s *TimesheetService) Update(ctx context.Context, ts *repository.Timesheet) error {
	existing, err := s.timesheets.GetByID(ctx, ts.ID)
	if err != nil {
		return err
	}
	if existing.DocStatus != repository.DocStatusDraft {
		return errors.Conflict("only draft timesheets can be modified")
	}

	ts.EmployeeID = existing.EmployeeID
	ts.DocStatus = existing.DocStatus
	ts.CreatedAt = existing.CreatedAt
	if err := normalizeDates(ts); err != nil {
		return err
	}

	if err := s.timesheets.Update(ctx, ts); err != nil {
		return err
	}

	if err := s.invalidator.Invalidate(ctx, ts.EmployeeID, ts.StartDate); err != nil {
		return err
	}

	var previousStart *time.Time
	if !existing.StartDate.Equal(ts.StartDate) {
		previousStart = &existing.StartDate
		if err := s.invalidator.Invalidate(ctx, ts.EmployeeID, existing.StartDate); err != nil {
			return err
		}
	}
	s.publisher.PublishTimesheetUpdated(ctx, ts, previousStart)

	s.logger.Info().
		Str("timesheet_id", ts.ID).
		Str("employee_id", ts.EmployeeID).
		Msg("timesheet updated")

	return nil
}

// Submit submits a draft timesheet
func (s *TimesheetService) Submit(ctx context.Context, id string) (*repository.Timesheet, error) {
	ts, err := s.transition(ctx, id, repository.DocStatusDraft, repository.DocStatusSubmitted,
		"only draft timesheets can be submitted")
	if err != nil {
		return nil, err
	}

	s.publisher.PublishTimesheetSubmitted(ctx, ts)
	s.logger.Info().Str("timesheet_id", ts.ID).Msg("timesheet submitted")
	return ts, nil
}

// Cancel cancels a submitted timesheet. Its hours no longer count in reports.
func (s *TimesheetService) Cancel(ctx context.Context, id string) (*repository.Timesheet, error) {
	ts, err := s.transition(ctx, id, repository.DocStatusSubmitted, repository.DocStatusCancelled,
		"only submitted timesheets can be cancelled")
	if err != nil {
		return nil, err
	}

	s.publisher.PublishTimesheetCancelled(ctx, ts)
	s.logger.Info().Str("timesheet_id", ts.ID).Msg("timesheet cancelled")
	return ts, nil
}

func (s *TimesheetService) transition(ctx context.Context, id string, from, to int, conflict string) (*repository.Timesheet, error) {
	ts, err := s.timesheets.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if ts.DocStatus != from {
		return nil, errors.Conflict(conflict)
	}

	if err := s.timesheets.UpdateDocStatus(ctx, id, to); err != nil {
		return nil, err
	}
	ts.DocStatus = to

	if err := s.invalidator.Invalidate(ctx, ts.EmployeeID, ts.StartDate); err != nil {
		return nil, err
	}
	return ts, nil
}

// normalizeDates truncates the dates to civil dates. A missing end date defaults
// to the start date.
func normalizeDates(ts *repository.Timesheet) error {
	if ts.StartDate.IsZero() {
		return errors.Validation(map[string]string{"start_date": "this field is required"})
	}
	ts.StartDate = calendar.Date(ts.StartDate)
	if ts.EndDate.IsZero() {
		ts.EndDate = ts.StartDate
	}
	ts.EndDate = calendar.Date(ts.EndDate)

	if ts.EndDate.Before(ts.StartDate) {
		return errors.Validation(map[string]string{"end_date": "must not be before start_date"})
	}
	return nil
}
