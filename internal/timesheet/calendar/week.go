// Package calendar partitions dates into report weeks.
package calendar

import (
	"encoding/json"
	"fmt"
	"time"
)

// DateLayout is the layout of dates in cache keys and on the wire
const DateLayout = "2006-01-02"

// LabelThisWeek is the label of the week that contains today
const LabelThisWeek = "This Week"

const labelLayout = "Jan 02"

// Date truncates t to its civil date at midnight UTC
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD string into a civil date
func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

// FormatDate formats a civil date as YYYY-MM-DD
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// WeekBucket is one report week
type WeekBucket struct {
	StartDate time.Time
	EndDate   time.Time
	Label     string
	// Dates holds every day of [StartDate, EndDate] ascending, or only weekdays
	// when weekends are skipped.
	Dates []time.Time
}

// CacheKey returns "{start}-{end}", the key the week's report entry is cached under
func (w WeekBucket) CacheKey() string {
	return CacheKey(w.StartDate, w.EndDate)
}

// CacheKey formats a week range as a cache key
func CacheKey(start, end time.Time) string {
	return FormatDate(start) + "-" + FormatDate(end)
}

// Contains reports whether d falls within [StartDate, EndDate]
func (w WeekBucket) Contains(d time.Time) bool {
	d = Date(d)
	return !d.Before(w.StartDate) && !d.After(w.EndDate)
}

type weekBucketJSON struct {
	StartDate string   `json:"start_date"`
	EndDate   string   `json:"end_date"`
	Key       string   `json:"key"`
	Dates     []string `json:"dates"`
}

// MarshalJSON renders dates as YYYY-MM-DD and the label as "key"
func (w WeekBucket) MarshalJSON() ([]byte, error) {
	dates := make([]string, len(w.Dates))
	for i, d := range w.Dates {
		dates[i] = FormatDate(d)
	}
	return json.Marshal(weekBucketJSON{
		StartDate: FormatDate(w.StartDate),
		EndDate:   FormatDate(w.EndDate),
		Key:       w.Label,
		Dates:     dates,
	})
}

// UnmarshalJSON is the inverse of MarshalJSON
func (w *WeekBucket) UnmarshalJSON(data []byte) error {
	var raw weekBucketJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	start, err := ParseDate(raw.StartDate)
	if err != nil {
		return err
	}
	end, err := ParseDate(raw.EndDate)
	if err != nil {
		return err
	}

	dates := make([]time.Time, 0, len(raw.Dates))
	for _, s := range raw.Dates {
		d, err := ParseDate(s)
		if err != nil {
			return err
		}
		dates = append(dates, d)
	}

	*w = WeekBucket{StartDate: start, EndDate: end, Label: raw.Key, Dates: dates}
	return nil
}

// Bucketer computes week buckets for a configured first day of the week
type Bucketer struct {
	WeekStart time.Weekday
}

// NewBucketer creates a Bucketer whose weeks begin on weekStart
func NewBucketer(weekStart time.Weekday) Bucketer {
	return Bucketer{WeekStart: weekStart}
}

// Bounds returns the first and last day of the week containing anchor
func (b Bucketer) Bounds(anchor time.Time) (time.Time, time.Time) {
	anchor = Date(anchor)
	offset := (int(anchor.Weekday()) - int(b.WeekStart) + 7) % 7
	start := anchor.AddDate(0, 0, -offset)
	return start, start.AddDate(0, 0, 6)
}

// Week returns the bucket of the week containing anchor. today decides whether the
// week is labelled "This Week".
//
// With skipWeekends the label ends two days before EndDate, which is Friday only
// for Monday-based weeks.
func (b Bucketer) Week(anchor, today time.Time, skipWeekends bool) WeekBucket {
	start, end := b.Bounds(anchor)
	bucket := WeekBucket{StartDate: start, EndDate: end}

	if bucket.Contains(today) {
		bucket.Label = LabelThisWeek
	} else {
		labelEnd := end
		if skipWeekends {
			labelEnd = end.AddDate(0, 0, -2)
		}
		bucket.Label = start.Format(labelLayout) + " - " + labelEnd.Format(labelLayout)
	}

	bucket.Dates = make([]time.Time, 0, 7)
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if skipWeekends && (d.Weekday() == time.Saturday || d.Weekday() == time.Sunday) {
			continue
		}
		bucket.Dates = append(bucket.Dates, d)
	}

	return bucket
}
