package consumers

import (
	"context"
	"strings"
	"time"

	"github.com/medflow/medflow-timesheet/internal/timesheet/repository"
	"github.com/medflow/medflow-timesheet/pkg/errors"
	"github.com/medflow/medflow-timesheet/pkg/logger"
	"github.com/medflow/medflow-timesheet/pkg/messaging"
)

// EmployeeEventConsumer keeps the local employee directory in sync with the staff service
type EmployeeEventConsumer struct {
	consumer     *messaging.Consumer
	employeeRepo *repository.EmployeeRepository
	logger       *logger.Logger
}

// NewEmployeeEventConsumer creates a new employee event consumer
func NewEmployeeEventConsumer(
	rmq *messaging.RabbitMQ,
	employeeRepo *repository.EmployeeRepository,
	log *logger.Logger,
) (*EmployeeEventConsumer, error) {
	consumer, err := messaging.NewConsumer(rmq, "timesheet-service.staff-events", log)
	if err != nil {
		return nil, err
	}

	if err := consumer.Subscribe(messaging.ExchangeStaffEvents, "staff.employee.#"); err != nil {
		return nil, err
	}

	return newEmployeeEventConsumer(consumer, employeeRepo, log), nil
}

func newEmployeeEventConsumer(consumer *messaging.Consumer, employeeRepo *repository.EmployeeRepository, log *logger.Logger) *EmployeeEventConsumer {
	c := &EmployeeEventConsumer{
		consumer:     consumer,
		employeeRepo: employeeRepo,
		logger:       log,
	}

	consumer.RegisterHandler(messaging.EventEmployeeCreated, c.handleEmployeeCreated)
	consumer.RegisterHandler(messaging.EventEmployeeUpdated, c.handleEmployeeUpdated)
	consumer.RegisterHandler(messaging.EventEmployeeDeleted, c.handleEmployeeDeleted)

	return c
}

// Start starts consuming messages
func (c *EmployeeEventConsumer) Start(ctx context.Context) error {
	return c.consumer.Start(ctx)
}

func (c *EmployeeEventConsumer) handleEmployeeCreated(ctx context.Context, event *messaging.Event) error {
	var data messaging.EmployeeCreatedEvent
	if err := event.UnmarshalData(&data); err != nil {
		return messaging.Permanent(err)
	}

	c.logger.Info().
		Str("employee_id", data.EmployeeID).
		Str("name", data.Name).
		Msg("received employee created event")

	firstName, lastName := splitName(data.Name)
	return c.employeeRepo.Upsert(ctx, &repository.Employee{
		ID:        data.EmployeeID,
		UserID:    data.UserID,
		FirstName: firstName,
		LastName:  lastName,
	})
}

func (c *EmployeeEventConsumer) handleEmployeeUpdated(ctx context.Context, event *messaging.Event) error {
	var data messaging.EmployeeUpdatedEvent
	if err := event.UnmarshalData(&data); err != nil {
		return messaging.Permanent(err)
	}

	c.logger.Info().
		Str("employee_id", data.EmployeeID).
		Msg("received employee updated event")

	existing, err := c.employeeRepo.GetByID(ctx, data.EmployeeID)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return nil // not known locally, ignore
		}
		return err
	}

	if name, ok := changedTo(data.Fields, "name"); ok {
		existing.FirstName, existing.LastName = splitName(name)
	}
	if firstName, ok := changedTo(data.Fields, "first_name"); ok {
		existing.FirstName = firstName
	}
	if lastName, ok := changedTo(data.Fields, "last_name"); ok {
		existing.LastName = lastName
	}
	if userID, ok := changedTo(data.Fields, "user_id"); ok {
		existing.UserID = &userID
	}
	if holidayList, ok := changedTo(data.Fields, "holiday_list_id"); ok {
		existing.HolidayListID = &holidayList
	}
	if status, ok := changedTo(data.Fields, "status"); ok {
		existing.Status = status
	}

	return c.employeeRepo.Upsert(ctx, existing)
}

func (c *EmployeeEventConsumer) handleEmployeeDeleted(ctx context.Context, event *messaging.Event) error {
	var data messaging.EmployeeDeletedEvent
	if err := event.UnmarshalData(&data); err != nil {
		return messaging.Permanent(err)
	}

	c.logger.Info().
		Str("employee_id", data.EmployeeID).
		Msg("received employee deleted event")

	return c.employeeRepo.SoftDelete(ctx, data.EmployeeID, time.Now().UTC())
}

// changedTo reads the new value of a changed field. Fields arrive as
// {"field": {"from": old, "to": new}}.
func changedTo(fields map[string]any, key string) (string, bool) {
	change, ok := fields[key].(map[string]any)
	if !ok {
		return "", false
	}
	value, ok := change["to"].(string)
	return value, ok
}

func splitName(name string) (string, string) {
	first, last, _ := strings.Cut(strings.TrimSpace(name), " ")
	return first, strings.TrimSpace(last)
}
