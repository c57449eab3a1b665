package events

import (
	"context"
	"time"

	"github.com/medflow/medflow-timesheet/internal/timesheet/calendar"
	"github.com/medflow/medflow-timesheet/internal/timesheet/repository"
	"github.com/medflow/medflow-timesheet/pkg/logger"
	"github.com/medflow/medflow-timesheet/pkg/messaging"
)

// Source is the event source name of this service
const Source = "timesheet-service"

// TimesheetEventPublisher publishes timesheet events. A nil publisher drops events,
// which is how the service runs with RabbitMQ disabled.
type TimesheetEventPublisher struct {
	publisher messaging.EventPublisher
	logger    *logger.Logger
}

// NewTimesheetEventPublisher creates a publisher on the timesheet exchange
func NewTimesheetEventPublisher(rmq *messaging.RabbitMQ, log *logger.Logger) (*TimesheetEventPublisher, error) {
	publisher, err := messaging.NewPublisher(rmq, messaging.ExchangeTimesheetEvents, Source, log)
	if err != nil {
		return nil, err
	}

	return NewTimesheetEventPublisherWith(publisher, log), nil
}

// NewTimesheetEventPublisherWith wraps an existing messaging.EventPublisher
func NewTimesheetEventPublisherWith(publisher messaging.EventPublisher, log *logger.Logger) *TimesheetEventPublisher {
	return &TimesheetEventPublisher{
		publisher: publisher,
		logger:    log,
	}
}

// PublishTimesheetCreated publishes a timesheet created event
func (p *TimesheetEventPublisher) PublishTimesheetCreated(ctx context.Context, ts *repository.Timesheet) {
	p.publishChanged(ctx, messaging.EventTimesheetCreated, ts, nil)
}

// PublishTimesheetUpdated publishes a timesheet updated event. previousStart is set
// when the update moved the timesheet to another start date.
func (p *TimesheetEventPublisher) PublishTimesheetUpdated(ctx context.Context, ts *repository.Timesheet, previousStart *time.Time) {
	p.publishChanged(ctx, messaging.EventTimesheetUpdated, ts, previousStart)
}

// PublishTimesheetSubmitted publishes a timesheet submitted event
func (p *TimesheetEventPublisher) PublishTimesheetSubmitted(ctx context.Context, ts *repository.Timesheet) {
	p.publishChanged(ctx, messaging.EventTimesheetSubmitted, ts, nil)
}

// PublishTimesheetCancelled publishes a timesheet cancelled event
func (p *TimesheetEventPublisher) PublishTimesheetCancelled(ctx context.Context, ts *repository.Timesheet) {
	p.publishChanged(ctx, messaging.EventTimesheetCancelled, ts, nil)
}

// PublishCacheInvalidate asks every running service to drop the week containing date.
// Unlike the timesheet events the error is returned, since the caller is an operator.
func (p *TimesheetEventPublisher) PublishCacheInvalidate(ctx context.Context, employeeID string, date time.Time, requestedBy string) error {
	if p == nil {
		return nil
	}

	data := messaging.CacheInvalidateEvent{
		EmployeeID:  employeeID,
		Date:        calendar.FormatDate(date),
		RequestedBy: requestedBy,
	}

	return p.publisher.Publish(ctx, messaging.EventCacheInvalidate, data)
}

func (p *TimesheetEventPublisher) publishChanged(ctx context.Context, eventType string, ts *repository.Timesheet, previousStart *time.Time) {
	if p == nil {
		return
	}

	data := messaging.TimesheetChangedEvent{
		TimesheetID: ts.ID,
		EmployeeID:  ts.EmployeeID,
		StartDate:   calendar.FormatDate(ts.StartDate),
		DocStatus:   ts.DocStatus,
	}
	if previousStart != nil {
		prev := calendar.FormatDate(*previousStart)
		data.PreviousStartDate = &prev
	}

	if err := p.publisher.Publish(ctx, eventType, data); err != nil {
		p.logger.Error().Err(err).
			Str("timesheet_id", ts.ID).
			Str("event_type", eventType).
			Msg("failed to publish timesheet event")
	}
}
