package task

import (
	"time"

	cwerrors "github.com/abatilo/clockwork/internal/errors"
)

// Fields is a partial set of user-editable task fields.
// nil pointer => "no change". A zero EndDate clears it.
type Fields struct {
	Name             *string    `json:"name,omitempty"`
	Icon             *string    `json:"icon,omitempty"`
	Color            *string    `json:"color,omitempty"`
	Frequency        *Frequency `json:"frequency,omitempty"`
	StartDate        *Date      `json:"startDate,omitempty"`
	EndDate          *Date      `json:"endDate,omitempty"`
	RemindersEnabled *bool      `json:"remindersEnabled,omitempty"`
	Notes            *string    `json:"notes,omitempty"`
}

// IsEmpty reports whether no field is set.
func (f Fields) IsEmpty() bool {
	return f.Name == nil && f.Icon == nil && f.Color == nil && f.Frequency == nil &&
		f.StartDate == nil && f.EndDate == nil && f.RemindersEnabled == nil && f.Notes == nil
}

// Apply patches t in place. It does not touch NextDue or the histories.
func (f Fields) Apply(t *Task) {
	if f.Name != nil {
		t.Name = *f.Name
	}
	if f.Icon != nil {
		t.Icon = *f.Icon
	}
	if f.Color != nil {
		t.Color = *f.Color
	}
	if f.Frequency != nil {
		t.Frequency = *f.Frequency
	}
	if f.StartDate != nil {
		t.StartDate = *f.StartDate
	}
	if f.EndDate != nil {
		if f.EndDate.IsZero() {
			t.EndDate = nil
		} else {
			end := *f.EndDate
			t.EndDate = &end
		}
	}
	if f.RemindersEnabled != nil {
		t.RemindersEnabled = *f.RemindersEnabled
	}
	if f.Notes != nil {
		t.Notes = *f.Notes
	}
}

// New builds a fresh task from creation fields. Name, frequency and start date
// are required; the result is validated before it is returned.
func New(id string, f Fields, now time.Time) (*Task, error) {
	if f.Name == nil {
		return nil, cwerrors.ValidationError{Field: "name", Reason: "is required"}
	}
	if f.Frequency == nil {
		return nil, cwerrors.ValidationError{Field: "frequency", Reason: "is required"}
	}
	if f.StartDate == nil || f.StartDate.IsZero() {
		return nil, cwerrors.ValidationError{Field: "start_date", Reason: "is required"}
	}

	t := &Task{
		ID:        id,
		CreatedAt: now,
		UpdatedAt: now,
	}
	f.Apply(t)
	t.NextDue = t.StartDate
	t.Normalize()

	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}
