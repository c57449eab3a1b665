package service

import (
	"time"

	"github.com/medflow/medflow-timesheet/internal/timesheet/calendar"
	"github.com/medflow/medflow-timesheet/internal/timesheet/repository"
)

// HolidaySet holds holiday dates formatted as YYYY-MM-DD
type HolidaySet map[string]struct{}

// NewHolidaySet indexes holidays by date
func NewHolidaySet(holidays []repository.Holiday) HolidaySet {
	set := make(HolidaySet, len(holidays))
	for _, h := range holidays {
		set[calendar.FormatDate(h.Date)] = struct{}{}
	}
	return set
}

// Contains reports whether d is a holiday
func (s HolidaySet) Contains(d time.Time) bool {
	_, ok := s[calendar.FormatDate(d)]
	return ok
}

// Deduction converts the leave falling within the week into hours.
//
// A half-day leave is worth dailyNorm/2 whatever its dates. Any other leave is worth
// dailyNorm for each of the week's dates it covers that is not a holiday.
func Deduction(week calendar.WeekBucket, leaves []repository.LeaveApplication, holidays HolidaySet, dailyNorm float64) float64 {
	if len(week.Dates) == 0 {
		return 0
	}
	first := week.Dates[0]
	last := week.Dates[len(week.Dates)-1]

	var hours float64
	for _, l := range leaves {
		from := calendar.Date(l.FromDate)
		to := calendar.Date(l.ToDate)
		if from.After(last) || to.Before(first) {
			continue
		}

		if l.HalfDay {
			hours += dailyNorm / 2
			continue
		}

		for _, d := range week.Dates {
			if d.Before(from) || d.After(to) || holidays.Contains(d) {
				continue
			}
			hours += dailyNorm
		}
	}

	return hours
}
