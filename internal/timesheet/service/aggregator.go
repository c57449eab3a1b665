package service

import (
	"context"
	"fmt"
	"time"

	"github.com/medflow/medflow-timesheet/internal/timesheet/repository"
	"github.com/medflow/medflow-timesheet/pkg/logger"
)

// TaskEntry is the hours logged against one task within a week
type TaskEntry struct {
	TaskID        string                `json:"name"`
	Subject       string                `json:"subject"`
	ProjectID     *string               `json:"project"`
	ProjectName   *string               `json:"project_name"`
	ExpectedHours float64               `json:"expected_time"`
	ActualHours   float64               `json:"actual_time"`
	Status        string                `json:"status"`
	LogEntries    []repository.LogEntry `json:"data"`
}

// Hours sums the hours of the task's log entries
func (t *TaskEntry) Hours() float64 {
	var total float64
	for _, e := range t.LogEntries {
		total += e.Hours
	}
	return total
}

// Aggregator groups logged time by task
type Aggregator struct {
	entries LogEntryStore
	tasks   TaskStore
	logger  *logger.Logger
}

// NewAggregator creates a new aggregator
func NewAggregator(entries LogEntryStore, tasks TaskStore, log *logger.Logger) *Aggregator {
	return &Aggregator{
		entries: entries,
		tasks:   tasks,
		logger:  log,
	}
}

// Aggregate returns the employee's hours on the given dates grouped by task, and the
// total of all logged hours. Entries without a task, or whose task no longer exists,
// count toward the total but are left out of the breakdown.
func (a *Aggregator) Aggregate(ctx context.Context, employeeID string, dates []time.Time) (map[string]*TaskEntry, float64, error) {
	tasks := make(map[string]*TaskEntry)

	entries, err := a.entries.ListLogEntries(ctx, employeeID, dates)
	if err != nil {
		return nil, 0, fmt.Errorf("aggregate hours for %s: %w", employeeID, err)
	}
	if len(entries) == 0 {
		return tasks, 0, nil
	}

	var total float64
	grouped := make(map[string][]repository.LogEntry)
	var ids []string

	for _, e := range entries {
		total += e.Hours
		if e.TaskID == nil || *e.TaskID == "" {
			continue
		}
		if _, seen := grouped[*e.TaskID]; !seen {
			ids = append(ids, *e.TaskID)
		}
		grouped[*e.TaskID] = append(grouped[*e.TaskID], e)
	}

	if len(ids) == 0 {
		return tasks, total, nil
	}

	meta, err := a.tasks.GetByIDs(ctx, ids)
	if err != nil {
		return nil, 0, fmt.Errorf("load tasks for %s: %w", employeeID, err)
	}

	for _, t := range meta {
		tasks[t.ID] = &TaskEntry{
			TaskID:        t.ID,
			Subject:       t.Subject,
			ProjectID:     t.ProjectID,
			ProjectName:   t.ProjectName,
			ExpectedHours: t.ExpectedTime,
			ActualHours:   t.ActualTime,
			Status:        t.Status,
			LogEntries:    grouped[t.ID],
		}
	}

	if len(tasks) < len(ids) {
		for _, id := range ids {
			if _, ok := tasks[id]; !ok {
				a.logger.Debug().
					Str("employee_id", employeeID).
					Str("task_id", id).
					Msg("logged time references unknown task")
			}
		}
	}

	return tasks, total, nil
}
