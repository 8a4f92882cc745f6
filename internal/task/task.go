package task

import (
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	cwerrors "github.com/abatilo/clockwork/internal/errors"
)

const (
	MaxNameLength  = 50
	MaxNotesLength = 500
)

// Frequency is how often a clockwork recurs.
type Frequency string

const (
	FrequencyDaily      Frequency = "daily"
	FrequencyEvery2Days Frequency = "every_2_days"
	FrequencyEvery3Days Frequency = "every_3_days"
	FrequencyWeekly     Frequency = "weekly"
	FrequencyBiweekly   Frequency = "biweekly"
	FrequencyMonthly    Frequency = "monthly"
)

// Frequencies lists every valid frequency in display order.
func Frequencies() []Frequency {
	return []Frequency{
		FrequencyDaily,
		FrequencyEvery2Days,
		FrequencyEvery3Days,
		FrequencyWeekly,
		FrequencyBiweekly,
		FrequencyMonthly,
	}
}

// IsValidFrequency checks if a frequency string is valid.
func IsValidFrequency(f Frequency) bool {
	return slices.Contains(Frequencies(), f)
}

// ParseFrequency accepts canonical names plus the legacy "alternate" and
// "every3days" spellings.
func ParseFrequency(s string) (Frequency, error) {
	normalized := strings.ToLower(strings.TrimSpace(s))
	switch normalized {
	case "alternate", "every2days", "every-2-days":
		return FrequencyEvery2Days, nil
	case "every3days", "every-3-days":
		return FrequencyEvery3Days, nil
	}
	f := Frequency(normalized)
	if !IsValidFrequency(f) {
		return "", cwerrors.ValidationError{
			Field:  "frequency",
			Reason: s + " (valid: daily, every_2_days, every_3_days, weekly, biweekly, monthly)",
		}
	}
	return f, nil
}

// Label returns the human-readable frequency name.
func (f Frequency) Label() string {
	switch f {
	case FrequencyDaily:
		return "Daily"
	case FrequencyEvery2Days:
		return "Every 2 days"
	case FrequencyEvery3Days:
		return "Every 3 days"
	case FrequencyWeekly:
		return "Weekly"
	case FrequencyBiweekly:
		return "Bi-weekly"
	case FrequencyMonthly:
		return "Monthly"
	default:
		return string(f)
	}
}

// Task is a recurring task (a "clockwork").
// History slices are most-recent-first and only ever grow at the front.
type Task struct {
	ID               string    `yaml:"id"                json:"id"`
	Name             string    `yaml:"name"              json:"name"`
	Icon             string    `yaml:"icon,omitempty"    json:"icon"`
	Color            string    `yaml:"color,omitempty"   json:"color"`
	Frequency        Frequency `yaml:"frequency"         json:"frequency"`
	StartDate        Date      `yaml:"start_date"        json:"startDate"`
	EndDate          *Date     `yaml:"end_date,omitempty" json:"endDate"`
	NextDue          Date      `yaml:"next_due"          json:"nextDue"`
	DueDateOffset    int       `yaml:"due_date_offset"   json:"dueDateOffset"`
	LastCompleted    *Date     `yaml:"last_completed,omitempty" json:"lastCompleted"`
	Streak           int       `yaml:"streak"            json:"streak"`
	CompletedDates   []Date    `yaml:"completed_dates"   json:"completedDates"`
	SkippedDates     []Date    `yaml:"skipped_dates"     json:"skippedDates"`
	MissedDates      []Date    `yaml:"missed_dates"      json:"missedDates"`
	RemindersEnabled bool      `yaml:"reminders_enabled" json:"remindersEnabled"`
	Notes            string    `yaml:"-"                 json:"notes,omitempty"` // Stored as markdown body

	// Local bookkeeping, never sent to the remote.
	Synced    bool      `yaml:"synced"     json:"-"`
	Remote    bool      `yaml:"remote"     json:"-"`
	CreatedAt time.Time `yaml:"created_at" json:"-"`
	UpdatedAt time.Time `yaml:"updated_at" json:"-"`
}

// EffectiveDueDate is NextDue shifted by the snooze offset.
func (t *Task) EffectiveDueDate() Date {
	return t.NextDue.AddDays(t.DueDateOffset)
}

// Clone returns a deep copy so callers can mutate without aliasing store state.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	c := *t
	c.EndDate = cloneDatePtr(t.EndDate)
	c.LastCompleted = cloneDatePtr(t.LastCompleted)
	c.CompletedDates = slices.Clone(t.CompletedDates)
	c.SkippedDates = slices.Clone(t.SkippedDates)
	c.MissedDates = slices.Clone(t.MissedDates)
	c.Normalize()
	return &c
}

// Normalize replaces nil history slices with empty ones.
func (t *Task) Normalize() {
	if t.CompletedDates == nil {
		t.CompletedDates = []Date{}
	}
	if t.SkippedDates == nil {
		t.SkippedDates = []Date{}
	}
	if t.MissedDates == nil {
		t.MissedDates = []Date{}
	}
}

// Validate checks the user-editable invariants of a task.
func (t *Task) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return cwerrors.ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if utf8.RuneCountInString(t.Name) > MaxNameLength {
		return cwerrors.ValidationError{Field: "name", Reason: "must be at most 50 characters"}
	}
	if utf8.RuneCountInString(t.Notes) > MaxNotesLength {
		return cwerrors.ValidationError{Field: "notes", Reason: "must be at most 500 characters"}
	}
	if !IsValidFrequency(t.Frequency) {
		return cwerrors.ValidationError{Field: "frequency", Reason: string(t.Frequency)}
	}
	if t.StartDate.IsZero() {
		return cwerrors.ValidationError{Field: "start_date", Reason: "is required"}
	}
	if t.EndDate != nil && !t.EndDate.IsZero() && t.EndDate.Before(t.StartDate) {
		return cwerrors.ValidationError{Field: "end_date", Reason: "must not be before start_date"}
	}
	return nil
}

func cloneDatePtr(d *Date) *Date {
	if d == nil {
		return nil
	}
	c := *d
	return &c
}
