package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/medflow/medflow-timesheet/pkg/database"
)

// ReportCacheRepository is a cache.Cache backed by the report_cache table, shared by
// every replica and the operator CLI.
type ReportCacheRepository struct {
	db *database.DB
}

// NewReportCacheRepository creates a new report cache repository
func NewReportCacheRepository(db *database.DB) *ReportCacheRepository {
	return &ReportCacheRepository{db: db}
}

// Get loads and decodes an entry; a missing row is a miss, not an error
func (r *ReportCacheRepository) Get(ctx context.Context, namespace, key string, dest any) (bool, error) {
	var value string
	query := r.db.Rebind(`SELECT value FROM report_cache WHERE namespace = ? AND cache_key = ?`)

	if err := r.db.GetContext(ctx, &value, query, namespace, key); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("read cache entry %s/%s: %w", namespace, key, err)
	}

	if err := json.Unmarshal([]byte(value), dest); err != nil {
		return false, fmt.Errorf("decode cache entry %s/%s: %w", namespace, key, err)
	}
	return true, nil
}

// Set creates or replaces an entry
func (r *ReportCacheRepository) Set(ctx context.Context, namespace, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode cache entry %s/%s: %w", namespace, key, err)
	}

	query := r.db.Rebind(`
		INSERT INTO report_cache (namespace, cache_key, value, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (namespace, cache_key)
		DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`)

	if _, err := r.db.ExecContext(ctx, query, namespace, key, string(raw), time.Now().UTC()); err != nil {
		return fmt.Errorf("write cache entry %s/%s: %w", namespace, key, err)
	}
	return nil
}

// Delete removes an entry; deleting a missing entry is a no-op
func (r *ReportCacheRepository) Delete(ctx context.Context, namespace, key string) error {
	query := r.db.Rebind(`DELETE FROM report_cache WHERE namespace = ? AND cache_key = ?`)

	if _, err := r.db.ExecContext(ctx, query, namespace, key); err != nil {
		return fmt.Errorf("delete cache entry %s/%s: %w", namespace, key, err)
	}
	return nil
}
