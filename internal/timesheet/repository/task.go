package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/medflow/medflow-timesheet/pkg/database"
)

// Task is the project task logged hours are booked against
type Task struct {
	ID           string  `db:"id" json:"name"`
	Subject      string  `db:"subject" json:"subject"`
	ProjectID    *string `db:"project_id" json:"project,omitempty"`
	ProjectName  *string `db:"project_name" json:"project_name,omitempty"`
	ExpectedTime float64 `db:"expected_time" json:"expected_time"`
	ActualTime   float64 `db:"actual_time" json:"actual_time"`
	Status       string  `db:"status" json:"status"`
}

// TaskRepository reads task metadata
type TaskRepository struct {
	db *database.DB
}

// NewTaskRepository creates a new task repository
func NewTaskRepository(db *database.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// GetByIDs returns the tasks with the given ids in one query. Unknown ids are
// simply absent from the result.
func (r *TaskRepository) GetByIDs(ctx context.Context, ids []string) ([]Task, error) {
	if len(ids) == 0 {
		return []Task{}, nil
	}

	query, args, err := sqlx.In(`
		SELECT t.id, t.subject, t.project_id, p.project_name, t.expected_time, t.actual_time, t.status
		FROM tasks t
		LEFT JOIN projects p ON p.id = t.project_id
		WHERE t.id IN (?)
	`, ids)
	if err != nil {
		return nil, fmt.Errorf("build task query: %w", err)
	}

	tasks := []Task{}
	if err := r.db.SelectContext(ctx, &tasks, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("get tasks: %w", err)
	}

	return tasks, nil
}
