package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/medflow/medflow-timesheet/pkg/database"
)

// Holiday is a non-working date of a holiday list
type Holiday struct {
	Date        time.Time `db:"holiday_date"`
	Description string    `db:"description"`
	WeeklyOff   bool      `db:"weekly_off"`
}

// MarshalJSON renders the date as YYYY-MM-DD
func (h Holiday) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		HolidayDate string `json:"holiday_date"`
		Description string `json:"description"`
		WeeklyOff   bool   `json:"weekly_off"`
	}{h.Date.Format(dateLayout), h.Description, h.WeeklyOff})
}

// HolidayRepository reads holiday lists
type HolidayRepository struct {
	db *database.DB
}

// NewHolidayRepository creates a new holiday repository
func NewHolidayRepository(db *database.DB) *HolidayRepository {
	return &HolidayRepository{db: db}
}

// ListBetween returns the holidays of a list with from <= date <= to
func (r *HolidayRepository) ListBetween(ctx context.Context, holidayListID string, from, to time.Time) ([]Holiday, error) {
	query := r.db.Rebind(`
		SELECT holiday_date, description, weekly_off
		FROM holidays
		WHERE holiday_list_id = ? AND holiday_date >= ? AND holiday_date <= ?
		ORDER BY holiday_date
	`)

	holidays := []Holiday{}
	if err := r.db.SelectContext(ctx, &holidays, query, holidayListID, from, to); err != nil {
		return nil, fmt.Errorf("list holidays of %s: %w", holidayListID, err)
	}

	return holidays, nil
}
