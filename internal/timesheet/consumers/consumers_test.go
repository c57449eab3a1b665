package consumers

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/medflow/medflow-timesheet/internal/timesheet/repository"
	"github.com/medflow/medflow-timesheet/internal/timesheet/service"
	"github.com/medflow/medflow-timesheet/pkg/cache"
	"github.com/medflow/medflow-timesheet/pkg/logger"
	"github.com/medflow/medflow-timesheet/pkg/messaging"
	"github.com/medflow/medflow-timesheet/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func eventBody(t *testing.T, eventType string, data any) []byte {
	t.Helper()
	event, err := messaging.NewEvent(eventType, "test", "corr-1", data)
	require.NoError(t, err)
	body, err := json.Marshal(event)
	require.NoError(t, err)
	return body
}

func seedWeeks(t *testing.T, c *cache.Memory, employeeID string, keys ...string) {
	t.Helper()
	for _, key := range keys {
		require.NoError(t, c.Set(context.Background(), cache.Namespace(employeeID), key, map[string]float64{"total_hours": 1}))
	}
}

func newTimesheetDispatcher(c cache.Cache) *messaging.Consumer {
	log := logger.Nop()
	dispatcher := messaging.NewDispatcher("timesheet-service.timesheet-events.test", log)
	newTimesheetEventConsumer(dispatcher, service.NewInvalidator(c, time.Monday, log), log)
	return dispatcher
}

func TestTimesheetEventConsumer_InvalidatesWeek(t *testing.T) {
	ctx := context.Background()
	c := cache.NewMemory()
	seedWeeks(t, c, "HR-EMP-00001", "2024-01-15-2024-01-21", "2024-01-08-2024-01-14")
	dispatcher := newTimesheetDispatcher(c)

	for _, eventType := range []string{
		messaging.EventTimesheetCreated,
		messaging.EventTimesheetSubmitted,
		messaging.EventTimesheetCancelled,
	} {
		t.Run(eventType, func(t *testing.T) {
			outcome := dispatcher.Dispatch(ctx, eventBody(t, eventType, messaging.TimesheetChangedEvent{
				TimesheetID: "TS-1",
				EmployeeID:  "HR-EMP-00001",
				StartDate:   "2024-01-17",
			}), 0)
			assert.Equal(t, messaging.OutcomeAck, outcome)
		})
	}

	var entry map[string]float64
	hit, err := c.Get(ctx, cache.Namespace("HR-EMP-00001"), "2024-01-15-2024-01-21", &entry)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 1, c.Len(cache.Namespace("HR-EMP-00001")), "other weeks stay cached")
}

func TestTimesheetEventConsumer_UpdateInvalidatesPreviousWeek(t *testing.T) {
	c := cache.NewMemory()
	seedWeeks(t, c, "HR-EMP-00001", "2024-01-15-2024-01-21", "2024-01-08-2024-01-14", "2024-01-01-2024-01-07")
	dispatcher := newTimesheetDispatcher(c)

	previous := "2024-01-09"
	outcome := dispatcher.Dispatch(context.Background(), eventBody(t, messaging.EventTimesheetUpdated, messaging.TimesheetChangedEvent{
		TimesheetID:       "TS-1",
		EmployeeID:        "HR-EMP-00001",
		StartDate:         "2024-01-15",
		PreviousStartDate: &previous,
	}), 0)

	assert.Equal(t, messaging.OutcomeAck, outcome)
	assert.Equal(t, 1, c.Len(cache.Namespace("HR-EMP-00001")))
}

func TestTimesheetEventConsumer_CacheInvalidate(t *testing.T) {
	c := cache.NewMemory()
	seedWeeks(t, c, "HR-EMP-00002", "2024-01-15-2024-01-21")
	dispatcher := newTimesheetDispatcher(c)

	outcome := dispatcher.Dispatch(context.Background(), eventBody(t, messaging.EventCacheInvalidate, messaging.CacheInvalidateEvent{
		EmployeeID:  "HR-EMP-00002",
		Date:        "2024-01-21",
		RequestedBy: "Administrator",
	}), 0)

	assert.Equal(t, messaging.OutcomeAck, outcome)
	assert.Zero(t, c.Len(cache.Namespace("HR-EMP-00002")))
}

func TestTimesheetEventConsumer_MalformedEvents(t *testing.T) {
	ctx := context.Background()
	dispatcher := newTimesheetDispatcher(cache.NewMemory())

	assert.Equal(t, messaging.OutcomeReject, dispatcher.Dispatch(ctx, []byte("not json"), 0))

	// Payloads that can never succeed go to the DLQ on the first delivery.
	badDate := eventBody(t, messaging.EventCacheInvalidate, messaging.CacheInvalidateEvent{EmployeeID: "HR-EMP-00001", Date: "21/01/2024"})
	assert.Equal(t, messaging.OutcomeReject, dispatcher.Dispatch(ctx, badDate, 0))

	badStart := eventBody(t, messaging.EventTimesheetUpdated, messaging.TimesheetChangedEvent{EmployeeID: "HR-EMP-00001", StartDate: "not-a-date"})
	assert.Equal(t, messaging.OutcomeReject, dispatcher.Dispatch(ctx, badStart, 0))

	noEmployee := eventBody(t, messaging.EventTimesheetCreated, messaging.TimesheetChangedEvent{StartDate: "2024-01-15"})
	assert.Equal(t, messaging.OutcomeReject, dispatcher.Dispatch(ctx, noEmployee, 0))

	wrongShape := eventBody(t, messaging.EventTimesheetCreated, map[string]int{"employee_id": 7})
	assert.Equal(t, messaging.OutcomeReject, dispatcher.Dispatch(ctx, wrongShape, 0))

	unknown := eventBody(t, "timesheet.archived", map[string]string{})
	assert.Equal(t, messaging.OutcomeAck, dispatcher.Dispatch(ctx, unknown, 0))
}

type unavailableCache struct{}

func (unavailableCache) Get(context.Context, string, string, any) (bool, error) {
	return false, fmt.Errorf("cache unavailable")
}
func (unavailableCache) Set(context.Context, string, string, any) error {
	return fmt.Errorf("cache unavailable")
}
func (unavailableCache) Delete(context.Context, string, string) error {
	return fmt.Errorf("cache unavailable")
}

func TestTimesheetEventConsumer_CacheOutageIsRetried(t *testing.T) {
	ctx := context.Background()
	dispatcher := newTimesheetDispatcher(unavailableCache{})

	body := eventBody(t, messaging.EventTimesheetSubmitted, messaging.TimesheetChangedEvent{
		TimesheetID: "TS-1",
		EmployeeID:  "HR-EMP-00001",
		StartDate:   "2024-01-15",
	})

	assert.Equal(t, messaging.OutcomeRequeue, dispatcher.Dispatch(ctx, body, 0))
	assert.Equal(t, messaging.OutcomeReject, dispatcher.Dispatch(ctx, body, messaging.MaxDeliveryAttempts))
}

func newEmployeeDispatcher(t *testing.T) (*messaging.Consumer, *repository.EmployeeRepository) {
	t.Helper()
	db := testutil.NewSQLiteDB(t, repository.Schema())
	repo := repository.NewEmployeeRepository(db)

	log := logger.Nop()
	dispatcher := messaging.NewDispatcher("timesheet-service.staff-events.test", log)
	newEmployeeEventConsumer(dispatcher, repo, log)
	return dispatcher, repo
}

func TestEmployeeEventConsumer_Lifecycle(t *testing.T) {
	ctx := context.Background()
	dispatcher, repo := newEmployeeDispatcher(t)

	userID := "user-1"
	outcome := dispatcher.Dispatch(ctx, eventBody(t, messaging.EventEmployeeCreated, messaging.EmployeeCreatedEvent{
		EmployeeID: "HR-EMP-00001",
		UserID:     &userID,
		Name:       "Max Mustermann",
	}), 0)
	require.Equal(t, messaging.OutcomeAck, outcome)

	emp, err := repo.GetByUserID(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "HR-EMP-00001", emp.ID)
	assert.Equal(t, "Max", emp.FirstName)
	assert.Equal(t, "Mustermann", emp.LastName)
	assert.Equal(t, "Active", emp.Status)

	outcome = dispatcher.Dispatch(ctx, eventBody(t, messaging.EventEmployeeUpdated, messaging.EmployeeUpdatedEvent{
		EmployeeID: "HR-EMP-00001",
		Fields: map[string]any{
			"last_name":       map[string]any{"from": "Mustermann", "to": "Musterfrau"},
			"holiday_list_id": map[string]any{"from": nil, "to": "HL-2024"},
			"phone":           map[string]any{"from": "1", "to": "2"},
		},
	}), 0)
	require.Equal(t, messaging.OutcomeAck, outcome)

	emp, err = repo.GetByID(ctx, "HR-EMP-00001")
	require.NoError(t, err)
	assert.Equal(t, "Max Musterfrau", emp.FullName())

	holidayList, err := repo.HolidayListID(ctx, "HR-EMP-00001")
	require.NoError(t, err)
	require.NotNil(t, holidayList)
	assert.Equal(t, "HL-2024", *holidayList)

	outcome = dispatcher.Dispatch(ctx, eventBody(t, messaging.EventEmployeeDeleted, messaging.EmployeeDeletedEvent{
		EmployeeID: "HR-EMP-00001",
	}), 0)
	require.Equal(t, messaging.OutcomeAck, outcome)

	exists, err := repo.Exists(ctx, "HR-EMP-00001")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestEmployeeEventConsumer_UpdateUnknownEmployee(t *testing.T) {
	ctx := context.Background()
	dispatcher, repo := newEmployeeDispatcher(t)

	outcome := dispatcher.Dispatch(ctx, eventBody(t, messaging.EventEmployeeUpdated, messaging.EmployeeUpdatedEvent{
		EmployeeID: "HR-EMP-00404",
		Fields:     map[string]any{"name": map[string]any{"to": "Nobody"}},
	}), 0)
	assert.Equal(t, messaging.OutcomeAck, outcome)

	exists, err := repo.Exists(ctx, "HR-EMP-00404")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestSplitName(t *testing.T) {
	tests := []struct {
		name, first, last string
	}{
		{"Max Mustermann", "Max", "Mustermann"},
		{"Anna Maria Schmidt", "Anna", "Maria Schmidt"},
		{" Cher ", "Cher", ""},
		{"", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first, last := splitName(tt.name)
			assert.Equal(t, tt.first, first)
			assert.Equal(t, tt.last, last)
		})
	}
}
