package messaging_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/medflow/medflow-timesheet/pkg/logger"
	"github.com/medflow/medflow-timesheet/pkg/messaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encode(t *testing.T, eventType string, data any) []byte {
	t.Helper()
	event, err := messaging.NewEvent(eventType, "test", "corr-1", data)
	require.NoError(t, err)
	body, err := json.Marshal(event)
	require.NoError(t, err)
	return body
}

func TestDispatch_RoutesByEventType(t *testing.T) {
	c := messaging.NewDispatcher("test-queue", logger.Nop())

	var got messaging.TimesheetChangedEvent
	c.RegisterHandler(messaging.EventTimesheetUpdated, func(ctx context.Context, event *messaging.Event) error {
		return event.UnmarshalData(&got)
	})

	body := encode(t, messaging.EventTimesheetUpdated, messaging.TimesheetChangedEvent{
		TimesheetID: "TS-0001",
		EmployeeID:  "HR-EMP-00001",
		StartDate:   "2026-10-19",
	})

	assert.Equal(t, messaging.OutcomeAck, c.Dispatch(context.Background(), body, 0))
	assert.Equal(t, "HR-EMP-00001", got.EmployeeID)
	assert.Equal(t, "2026-10-19", got.StartDate)
}

func TestDispatch_UnknownTypeIsAcked(t *testing.T) {
	c := messaging.NewDispatcher("test-queue", logger.Nop())

	body := encode(t, "timesheet.archived", map[string]string{})

	assert.Equal(t, messaging.OutcomeAck, c.Dispatch(context.Background(), body, 0))
}

func TestDispatch_MalformedIsRejected(t *testing.T) {
	c := messaging.NewDispatcher("test-queue", logger.Nop())

	assert.Equal(t, messaging.OutcomeReject, c.Dispatch(context.Background(), []byte("{"), 0))
}

func TestDispatch_FailureRequeuesUntilBudgetSpent(t *testing.T) {
	c := messaging.NewDispatcher("test-queue", logger.Nop())
	c.RegisterHandler(messaging.EventTimesheetCreated, func(ctx context.Context, event *messaging.Event) error {
		return fmt.Errorf("cache unavailable")
	})

	body := encode(t, messaging.EventTimesheetCreated, messaging.TimesheetChangedEvent{EmployeeID: "HR-EMP-00001"})

	assert.Equal(t, messaging.OutcomeRequeue, c.Dispatch(context.Background(), body, 0))
	assert.Equal(t, messaging.OutcomeRequeue, c.Dispatch(context.Background(), body, messaging.MaxDeliveryAttempts-1))
	assert.Equal(t, messaging.OutcomeReject, c.Dispatch(context.Background(), body, messaging.MaxDeliveryAttempts))
}

func TestDispatch_CarriesCorrelationID(t *testing.T) {
	c := messaging.NewDispatcher("test-queue", logger.Nop())

	var seen string
	c.RegisterHandler(messaging.EventCacheInvalidate, func(ctx context.Context, event *messaging.Event) error {
		seen = event.CorrelationID
		return nil
	})

	c.Dispatch(context.Background(), encode(t, messaging.EventCacheInvalidate, messaging.CacheInvalidateEvent{}), 0)

	assert.Equal(t, "corr-1", seen)
}

func TestDispatch_PermanentFailureIsRejected(t *testing.T) {
	c := messaging.NewDispatcher("test-queue", logger.Nop())
	c.RegisterHandler(messaging.EventTimesheetCreated, func(ctx context.Context, event *messaging.Event) error {
		return fmt.Errorf("handle: %w", messaging.Permanent(fmt.Errorf("invalid date")))
	})

	body := encode(t, messaging.EventTimesheetCreated, messaging.TimesheetChangedEvent{EmployeeID: "HR-EMP-00001"})

	assert.Equal(t, messaging.OutcomeReject, c.Dispatch(context.Background(), body, 0))
}

func TestPermanent(t *testing.T) {
	assert.NoError(t, messaging.Permanent(nil))

	err := messaging.Permanent(fmt.Errorf("bad payload"))
	assert.True(t, messaging.IsPermanent(err))
	assert.EqualError(t, err, "bad payload")
	assert.False(t, messaging.IsPermanent(fmt.Errorf("timeout")))
}
