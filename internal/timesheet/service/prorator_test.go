package service

import (
	"testing"
	"time"

	"github.com/medflow/medflow-timesheet/internal/timesheet/calendar"
	"github.com/medflow/medflow-timesheet/internal/timesheet/repository"
	"github.com/stretchr/testify/assert"
)

func TestDeduction(t *testing.T) {
	today := date("2024-01-17")
	week := calendar.NewBucketer(time.Monday).Week(date("2024-01-15"), today, false)
	workWeek := calendar.NewBucketer(time.Monday).Week(date("2024-01-15"), today, true)

	holidays := NewHolidaySet([]repository.Holiday{
		{Date: date("2024-01-16"), Description: "Founders Day"},
	})

	tests := []struct {
		name     string
		week     calendar.WeekBucket
		leaves   []repository.LeaveApplication
		holidays HolidaySet
		want     float64
	}{
		{
			name:   "no leaves",
			week:   week,
			leaves: nil,
			want:   0,
		},
		{
			name: "leave entirely before the week",
			week: week,
			leaves: []repository.LeaveApplication{
				{ID: "L1", FromDate: date("2024-01-01"), ToDate: date("2024-01-14")},
			},
			want: 0,
		},
		{
			name: "leave entirely after the week",
			week: week,
			leaves: []repository.LeaveApplication{
				{ID: "L1", FromDate: date("2024-01-22"), ToDate: date("2024-01-23")},
			},
			want: 0,
		},
		{
			name: "half day is half the norm",
			week: week,
			leaves: []repository.LeaveApplication{
				{ID: "L1", FromDate: date("2024-01-17"), ToDate: date("2024-01-17"), HalfDay: true},
			},
			want: 4,
		},
		{
			name: "half day on a holiday is still half the norm",
			week: week,
			leaves: []repository.LeaveApplication{
				{ID: "L1", FromDate: date("2024-01-16"), ToDate: date("2024-01-16"), HalfDay: true},
			},
			holidays: holidays,
			want:     4,
		},
		{
			name: "full days inside the week",
			week: week,
			leaves: []repository.LeaveApplication{
				{ID: "L1", FromDate: date("2024-01-15"), ToDate: date("2024-01-17")},
			},
			want: 24,
		},
		{
			name: "holidays are not deducted",
			week: week,
			leaves: []repository.LeaveApplication{
				{ID: "L1", FromDate: date("2024-01-15"), ToDate: date("2024-01-17")},
			},
			holidays: holidays,
			want:     16,
		},
		{
			name: "leave spanning the week boundary counts only days in the week",
			week: week,
			leaves: []repository.LeaveApplication{
				{ID: "L1", FromDate: date("2024-01-10"), ToDate: date("2024-01-16")},
			},
			want: 16,
		},
		{
			name: "weekends skipped",
			week: workWeek,
			leaves: []repository.LeaveApplication{
				{ID: "L1", FromDate: date("2024-01-19"), ToDate: date("2024-01-28")},
			},
			want: 8,
		},
		{
			name: "leaves are summed",
			week: week,
			leaves: []repository.LeaveApplication{
				{ID: "L1", FromDate: date("2024-01-15"), ToDate: date("2024-01-15")},
				{ID: "L2", FromDate: date("2024-01-18"), ToDate: date("2024-01-18"), HalfDay: true},
			},
			want: 12,
		},
		{
			name: "week without dates",
			week: calendar.WeekBucket{StartDate: date("2024-01-15"), EndDate: date("2024-01-21")},
			leaves: []repository.LeaveApplication{
				{ID: "L1", FromDate: date("2024-01-15"), ToDate: date("2024-01-21")},
			},
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Deduction(tt.week, tt.leaves, tt.holidays, 8))
		})
	}
}

func TestHolidaySet_IgnoresTimeOfDay(t *testing.T) {
	set := NewHolidaySet([]repository.Holiday{
		{Date: time.Date(2024, 1, 16, 0, 0, 0, 0, time.FixedZone("", 0))},
	})

	assert.True(t, set.Contains(date("2024-01-16")))
	assert.False(t, set.Contains(date("2024-01-17")))
}
