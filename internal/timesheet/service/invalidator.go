package service

import (
	"context"
	"fmt"
	"time"

	"github.com/medflow/medflow-timesheet/internal/timesheet/calendar"
	"github.com/medflow/medflow-timesheet/pkg/cache"
	"github.com/medflow/medflow-timesheet/pkg/logger"
)

// Invalidator drops cached report weeks
type Invalidator struct {
	cache    cache.Cache
	bucketer calendar.Bucketer
	logger   *logger.Logger
}

// NewInvalidator creates an invalidator for weeks beginning on weekStart
func NewInvalidator(c cache.Cache, weekStart time.Weekday, log *logger.Logger) *Invalidator {
	return &Invalidator{
		cache:    c,
		bucketer: calendar.NewBucketer(weekStart),
		logger:   log,
	}
}

// Invalidate deletes the employee's cached entry for the week containing date.
// Invalidating a week that is not cached is a no-op.
func (i *Invalidator) Invalidate(ctx context.Context, employeeID string, date time.Time) error {
	start, end := i.bucketer.Bounds(date)
	namespace := cache.Namespace(employeeID)
	key := calendar.CacheKey(start, end)

	if err := i.cache.Delete(ctx, namespace, key); err != nil {
		return fmt.Errorf("invalidate %s/%s: %w", namespace, key, err)
	}

	i.logger.Info().
		Str("employee_id", employeeID).
		Str("key", key).
		Msg("report week invalidated")

	return nil
}

