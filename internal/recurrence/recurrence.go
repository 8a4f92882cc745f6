// Package recurrence computes due dates for recurring tasks.
//
// All functions are pure: the caller passes the zone explicitly and no
// function consults time.Local.
package recurrence

import (
	"time"

	cwerrors "github.com/abatilo/clockwork/internal/errors"
	"github.com/abatilo/clockwork/internal/task"
)

// Period returns the nominal gap in days for day-based frequencies, and 0 for
// monthly.
func Period(f task.Frequency) int {
	switch f {
	case task.FrequencyDaily:
		return 1
	case task.FrequencyEvery2Days:
		return 2
	case task.FrequencyEvery3Days:
		return 3
	case task.FrequencyWeekly:
		return 7
	case task.FrequencyBiweekly:
		return 14
	default:
		return 0
	}
}

// NextDueDate advances anchor by one period of f.
//
// The computation starts from noon of the anchor in loc and uses calendar
// addition, so crossing a DST transition never moves the result to a
// neighbouring day. Monthly recurrence clamps to the last day of the target
// month (Jan 31 -> Feb 28/29).
func NextDueDate(anchor task.Date, f task.Frequency, loc *time.Location) task.Date {
	if loc == nil {
		loc = time.UTC
	}

	if f == task.FrequencyMonthly {
		year, month := anchor.Year, anchor.Month+1
		if month > time.December {
			year, month = year+1, time.January
		}
		day := min(anchor.Day, daysIn(year, month))
		return task.DateOf(time.Date(year, month, day, 12, 0, 0, 0, loc).In(loc))
	}

	days := Period(f)
	if days == 0 {
		// Unknown frequencies never stall the schedule.
		days = 1
	}
	return task.DateOf(anchor.In(loc).AddDate(0, 0, days).In(loc))
}

// EffectiveDueDate shifts nextDue by the snooze offset. The offset is a plain
// day count, not a calendar operation, so no zone is involved.
func EffectiveDueDate(nextDue task.Date, offsetDays int) task.Date {
	return nextDue.AddDays(offsetDays)
}

// Today renders now as a civil date in loc.
func Today(now time.Time, loc *time.Location) task.Date {
	if loc == nil {
		loc = time.UTC
	}
	return task.DateOf(now.In(loc))
}

// DaysUntil returns how many days remain until due, negative when overdue.
func DaysUntil(today, due task.Date) int {
	return today.DaysUntil(due)
}

// LoadLocation resolves an IANA zone id. An empty name is UTC.
func LoadLocation(name string) (*time.Location, error) {
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, cwerrors.ValidationError{Field: "timezone", Reason: err.Error()}
	}
	return loc, nil
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 12, 0, 0, 0, time.UTC).Day()
}
