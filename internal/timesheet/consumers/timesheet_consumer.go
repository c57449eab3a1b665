package consumers

import (
	"context"
	"fmt"

	"github.com/medflow/medflow-timesheet/internal/timesheet/calendar"
	"github.com/medflow/medflow-timesheet/internal/timesheet/service"
	"github.com/medflow/medflow-timesheet/pkg/logger"
	"github.com/medflow/medflow-timesheet/pkg/messaging"
)

// TimesheetEventConsumer drops cached report weeks when timesheets change elsewhere
type TimesheetEventConsumer struct {
	consumer    *messaging.Consumer
	invalidator *service.Invalidator
	logger      *logger.Logger
}

// NewTimesheetEventConsumer creates a consumer on queue. With the memory cache backend
// every replica needs its own queue so that each process sees every event; perInstance
// then makes the queue live only as long as this process's connection.
func NewTimesheetEventConsumer(
	rmq *messaging.RabbitMQ,
	queue string,
	perInstance bool,
	invalidator *service.Invalidator,
	log *logger.Logger,
) (*TimesheetEventConsumer, error) {
	newConsumer := messaging.NewConsumer
	if perInstance {
		newConsumer = messaging.NewInstanceConsumer
	}

	consumer, err := newConsumer(rmq, queue, log)
	if err != nil {
		return nil, err
	}

	if err := consumer.Subscribe(messaging.ExchangeTimesheetEvents, "timesheet.#"); err != nil {
		return nil, err
	}

	return newTimesheetEventConsumer(consumer, invalidator, log), nil
}

func newTimesheetEventConsumer(consumer *messaging.Consumer, invalidator *service.Invalidator, log *logger.Logger) *TimesheetEventConsumer {
	c := &TimesheetEventConsumer{
		consumer:    consumer,
		invalidator: invalidator,
		logger:      log,
	}

	consumer.RegisterHandler(messaging.EventTimesheetCreated, c.handleTimesheetChanged)
	consumer.RegisterHandler(messaging.EventTimesheetUpdated, c.handleTimesheetChanged)
	consumer.RegisterHandler(messaging.EventTimesheetSubmitted, c.handleTimesheetChanged)
	consumer.RegisterHandler(messaging.EventTimesheetCancelled, c.handleTimesheetChanged)
	consumer.RegisterHandler(messaging.EventCacheInvalidate, c.handleCacheInvalidate)

	return c
}

// Start starts consuming messages
func (c *TimesheetEventConsumer) Start(ctx context.Context) error {
	return c.consumer.Start(ctx)
}

func (c *TimesheetEventConsumer) handleTimesheetChanged(ctx context.Context, event *messaging.Event) error {
	var data messaging.TimesheetChangedEvent
	if err := event.UnmarshalData(&data); err != nil {
		return messaging.Permanent(err)
	}

	c.logger.Debug().
		Str("event_type", event.Type).
		Str("timesheet_id", data.TimesheetID).
		Str("employee_id", data.EmployeeID).
		Msg("received timesheet event")

	if err := c.invalidate(ctx, data.EmployeeID, data.StartDate); err != nil {
		return err
	}
	if data.PreviousStartDate != nil {
		return c.invalidate(ctx, data.EmployeeID, *data.PreviousStartDate)
	}
	return nil
}

func (c *TimesheetEventConsumer) handleCacheInvalidate(ctx context.Context, event *messaging.Event) error {
	var data messaging.CacheInvalidateEvent
	if err := event.UnmarshalData(&data); err != nil {
		return messaging.Permanent(err)
	}

	c.logger.Info().
		Str("employee_id", data.EmployeeID).
		Str("date", data.Date).
		Str("requested_by", data.RequestedBy).
		Msg("received cache invalidation request")

	return c.invalidate(ctx, data.EmployeeID, data.Date)
}

func (c *TimesheetEventConsumer) invalidate(ctx context.Context, employeeID, date string) error {
	if employeeID == "" {
		return messaging.Permanent(fmt.Errorf("event without employee_id"))
	}
	d, err := calendar.ParseDate(date)
	if err != nil {
		return messaging.Permanent(fmt.Errorf("invalid date %q: %w", date, err))
	}
	return c.invalidator.Invalidate(ctx, employeeID, d)
}
