package calendar_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/medflow/medflow-timesheet/internal/timesheet/calendar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := calendar.ParseDate(s)
	require.NoError(t, err)
	return d
}

func TestWeek_MondayStart(t *testing.T) {
	b := calendar.NewBucketer(time.Monday)
	today := date(t, "2026-10-19")

	w := b.Week(date(t, "2026-10-08"), today, false)

	assert.Equal(t, "2026-10-05", calendar.FormatDate(w.StartDate))
	assert.Equal(t, "2026-10-11", calendar.FormatDate(w.EndDate))
	assert.Equal(t, "Oct 05 - Oct 11", w.Label)
	assert.Equal(t, "2026-10-05-2026-10-11", w.CacheKey())
	require.Len(t, w.Dates, 7)
	assert.Equal(t, w.StartDate, w.Dates[0])
	assert.Equal(t, w.EndDate, w.Dates[6])
}

func TestWeek_ThisWeekLabel(t *testing.T) {
	b := calendar.NewBucketer(time.Monday)

	w := b.Week(date(t, "2026-10-21"), date(t, "2026-10-25"), false)

	assert.Equal(t, calendar.LabelThisWeek, w.Label)
}

func TestWeek_SkipWeekends(t *testing.T) {
	b := calendar.NewBucketer(time.Monday)

	w := b.Week(date(t, "2026-10-08"), date(t, "2026-10-19"), true)

	assert.Equal(t, "Oct 05 - Oct 09", w.Label)
	require.Len(t, w.Dates, 5)
	for _, d := range w.Dates {
		assert.NotEqual(t, time.Saturday, d.Weekday())
		assert.NotEqual(t, time.Sunday, d.Weekday())
	}
	// bounds are unchanged, only the enumeration skips days
	assert.Equal(t, "2026-10-11", calendar.FormatDate(w.EndDate))
}

func TestWeek_SundayStart(t *testing.T) {
	b := calendar.NewBucketer(time.Sunday)

	w := b.Week(date(t, "2026-10-08"), date(t, "2026-10-19"), false)

	assert.Equal(t, "2026-10-04", calendar.FormatDate(w.StartDate))
	assert.Equal(t, "2026-10-10", calendar.FormatDate(w.EndDate))
}

func TestWeek_AcrossYearBoundary(t *testing.T) {
	b := calendar.NewBucketer(time.Monday)

	w := b.Week(date(t, "2027-01-01"), date(t, "2026-10-19"), false)

	assert.Equal(t, "2026-12-28", calendar.FormatDate(w.StartDate))
	assert.Equal(t, "2027-01-03", calendar.FormatDate(w.EndDate))
	assert.Equal(t, "Dec 28 - Jan 03", w.Label)
}

func TestWeek_ContainsAnchorForEveryDay(t *testing.T) {
	today := date(t, "2026-10-19")
	for _, start := range []time.Weekday{time.Sunday, time.Monday, time.Saturday} {
		b := calendar.NewBucketer(start)
		for d := date(t, "2026-01-01"); d.Before(date(t, "2027-01-01")); d = d.AddDate(0, 0, 1) {
			w := b.Week(d, today, false)
			require.False(t, d.Before(w.StartDate), "start after anchor %s", d)
			require.False(t, d.After(w.EndDate), "end before anchor %s", d)
			require.Equal(t, start, w.StartDate.Weekday())
			require.Len(t, w.Dates, 7)
		}
	}
}

func TestWeek_SameWeekSameBounds(t *testing.T) {
	b := calendar.NewBucketer(time.Monday)
	today := date(t, "2026-10-19")
	ref := b.Week(date(t, "2026-10-12"), today, false)

	for d := date(t, "2026-10-12"); !d.After(date(t, "2026-10-18")); d = d.AddDate(0, 0, 1) {
		w := b.Week(d, today, false)
		assert.Equal(t, ref.StartDate, w.StartDate)
		assert.Equal(t, ref.EndDate, w.EndDate)
	}
}

func TestWeek_IgnoresTimeOfDayAndZone(t *testing.T) {
	b := calendar.NewBucketer(time.Monday)
	loc := time.FixedZone("CEST", 2*60*60)
	anchor := time.Date(2026, 10, 11, 23, 30, 0, 0, loc)

	w := b.Week(anchor, date(t, "2026-10-19"), false)

	assert.Equal(t, "2026-10-05", calendar.FormatDate(w.StartDate))
	assert.Equal(t, time.UTC, w.StartDate.Location())
}

func TestWeekBucket_JSON(t *testing.T) {
	b := calendar.NewBucketer(time.Monday)
	w := b.Week(date(t, "2026-10-08"), date(t, "2026-10-19"), true)

	raw, err := json.Marshal(w)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"start_date": "2026-10-05",
		"end_date": "2026-10-11",
		"key": "Oct 05 - Oct 09",
		"dates": ["2026-10-05", "2026-10-06", "2026-10-07", "2026-10-08", "2026-10-09"]
	}`, string(raw))

	var back calendar.WeekBucket
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, w, back)
}
