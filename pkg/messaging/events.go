package messaging

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types
const (
	// Timesheet events, published by every writer of timesheet records
	EventTimesheetCreated   = "timesheet.created"
	EventTimesheetUpdated   = "timesheet.updated"
	EventTimesheetSubmitted = "timesheet.submitted"
	EventTimesheetCancelled = "timesheet.cancelled"

	// Operator request to drop one cached week on every replica
	EventCacheInvalidate = "timesheet.cache.invalidate"

	// Staff events, consumed to keep the local employee directory in sync
	EventEmployeeCreated = "staff.employee.created"
	EventEmployeeUpdated = "staff.employee.updated"
	EventEmployeeDeleted = "staff.employee.deleted"
)

// Exchange names
const (
	ExchangeTimesheetEvents = "timesheet.events"
	ExchangeStaffEvents     = "staff.events"
)

// Event is the base event structure
type Event struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlation_id"`
	Data          json.RawMessage `json:"data"`
}

// NewEvent creates a new event with the given type and data
func NewEvent(eventType, source, correlationID string, data interface{}) (*Event, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:            GenerateEventID(),
		Type:          eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		CorrelationID: correlationID,
		Data:          dataBytes,
	}, nil
}

// UnmarshalData unmarshals the event data into the provided struct
func (e *Event) UnmarshalData(v interface{}) error {
	return json.Unmarshal(e.Data, v)
}

// Timesheet Events

// TimesheetChangedEvent is published whenever a timesheet is created, updated,
// submitted or cancelled. Dates use the 2006-01-02 layout.
type TimesheetChangedEvent struct {
	TimesheetID string `json:"timesheet_id"`
	EmployeeID  string `json:"employee_id"`
	StartDate   string `json:"start_date"`
	// PreviousStartDate is set on updates that moved the timesheet to another week
	PreviousStartDate *string `json:"previous_start_date,omitempty"`
	DocStatus         int     `json:"docstatus"`
}

// CacheInvalidateEvent asks every replica to drop the week containing Date
type CacheInvalidateEvent struct {
	EmployeeID  string `json:"employee_id"`
	Date        string `json:"date"`
	RequestedBy string `json:"requested_by,omitempty"`
}

// Staff Events

// EmployeeCreatedEvent is published by the staff service when an employee is created
type EmployeeCreatedEvent struct {
	EmployeeID string  `json:"employee_id"`
	UserID     *string `json:"user_id,omitempty"`
	Name       string  `json:"name"`
}

// EmployeeUpdatedEvent is published by the staff service when an employee is updated
type EmployeeUpdatedEvent struct {
	EmployeeID string         `json:"employee_id"`
	Fields     map[string]any `json:"fields"`
}

// EmployeeDeletedEvent is published by the staff service when an employee is deleted
type EmployeeDeletedEvent struct {
	EmployeeID string `json:"employee_id"`
}

// GenerateEventID generates a unique event ID
func GenerateEventID() string {
	return uuid.NewString()
}
