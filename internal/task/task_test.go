//nolint:testpackage // Tests require internal access for thorough testing
package task

import (
	"errors"
	"strings"
	"testing"
	"time"

	cwerrors "github.com/abatilo/clockwork/internal/errors"
)

func strPtr(s string) *string { return &s }

func freqPtr(f Frequency) *Frequency { return &f }

func datePtr(s string) *Date {
	d := MustParseDate(s)
	return &d
}

func TestParseFrequency(t *testing.T) {
	tests := []struct {
		input string
		want  Frequency
		valid bool
	}{
		{"daily", FrequencyDaily, true},
		{"every_2_days", FrequencyEvery2Days, true},
		{"alternate", FrequencyEvery2Days, true},
		{"every3days", FrequencyEvery3Days, true},
		{"Weekly", FrequencyWeekly, true},
		{"biweekly", FrequencyBiweekly, true},
		{"monthly", FrequencyMonthly, true},
		{"yearly", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseFrequency(tt.input)
			if tt.valid && err != nil {
				t.Fatalf("ParseFrequency(%q) unexpected error: %v", tt.input, err)
			}
			if !tt.valid {
				var verr cwerrors.ValidationError
				if !errors.As(err, &verr) {
					t.Fatalf("ParseFrequency(%q) error = %v, want ValidationError", tt.input, err)
				}
				return
			}
			if got != tt.want {
				t.Errorf("ParseFrequency(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNewTask(t *testing.T) {
	now := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	got, err := New("abcd", Fields{
		Name:      strPtr("Water Plants"),
		Frequency: freqPtr(FrequencyEvery3Days),
		StartDate: datePtr("2026-01-05"),
	}, now)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if got.NextDue != MustParseDate("2026-01-05") {
		t.Errorf("NextDue = %s, want 2026-01-05", got.NextDue)
	}
	if got.Streak != 0 || got.DueDateOffset != 0 || got.Synced {
		t.Errorf("unexpected initial state: %+v", got)
	}
	if got.CompletedDates == nil || got.SkippedDates == nil || got.MissedDates == nil {
		t.Error("history slices should be empty, not nil")
	}
}

func TestValidate(t *testing.T) {
	base := func() *Task {
		return &Task{Name: "Stretch", Frequency: FrequencyDaily, StartDate: MustParseDate("2026-01-01")}
	}

	tests := []struct {
		name   string
		mutate func(*Task)
		field  string
	}{
		{"valid", func(*Task) {}, ""},
		{"empty name", func(tk *Task) { tk.Name = "  " }, "name"},
		{"long name", func(tk *Task) { tk.Name = strings.Repeat("x", 51) }, "name"},
		{"fifty rune name", func(tk *Task) { tk.Name = strings.Repeat("é", 50) }, ""},
		{"long notes", func(tk *Task) { tk.Notes = strings.Repeat("n", 501) }, "notes"},
		{"bad frequency", func(tk *Task) { tk.Frequency = "hourly" }, "frequency"},
		{"end before start", func(tk *Task) { tk.EndDate = datePtr("2025-12-31") }, "end_date"},
		{"end equals start", func(tk *Task) { tk.EndDate = datePtr("2026-01-01") }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tk := base()
			tt.mutate(tk)
			err := tk.Validate()
			if tt.field == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			var verr cwerrors.ValidationError
			if !errors.As(err, &verr) || verr.Field != tt.field {
				t.Fatalf("Validate() = %v, want ValidationError on %s", err, tt.field)
			}
		})
	}
}

func TestFieldsApplyClearsEndDate(t *testing.T) {
	tk := &Task{EndDate: datePtr("2026-02-01")}
	Fields{EndDate: &Date{}}.Apply(tk)
	if tk.EndDate != nil {
		t.Errorf("EndDate = %v, want nil", tk.EndDate)
	}
}

func TestCloneIsDeep(t *testing.T) {
	orig := &Task{CompletedDates: []Date{MustParseDate("2026-01-02")}, EndDate: datePtr("2026-03-01")}
	c := orig.Clone()
	c.CompletedDates[0] = MustParseDate("1999-01-01")
	c.EndDate.Day = 9

	if orig.CompletedDates[0] != MustParseDate("2026-01-02") {
		t.Error("Clone shares history backing array")
	}
	if orig.EndDate.Day != 1 {
		t.Error("Clone shares EndDate pointer")
	}
}

func TestStatusAt(t *testing.T) {
	today := MustParseDate("2026-01-10")
	tests := []struct {
		name      string
		nextDue   string
		offset    int
		end       *Date
		stopAtEnd bool
		want      Status
	}{
		{"overdue", "2026-01-09", 0, nil, false, StatusOverdue},
		{"due today", "2026-01-10", 0, nil, false, StatusDueToday},
		{"upcoming", "2026-01-11", 0, nil, false, StatusUpcoming},
		{"snoozed out of overdue", "2026-01-08", 3, nil, false, StatusUpcoming},
		{"past end ignored", "2026-01-09", 0, datePtr("2026-01-05"), false, StatusOverdue},
		{"past end stops", "2026-01-09", 0, datePtr("2026-01-05"), true, StatusEnded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tk := &Task{NextDue: MustParseDate(tt.nextDue), DueDateOffset: tt.offset, EndDate: tt.end}
			if got := StatusAt(tk, today, tt.stopAtEnd); got != tt.want {
				t.Errorf("StatusAt() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestStatusOrder(t *testing.T) {
	if StatusOrder(StatusOverdue) >= StatusOrder(StatusDueToday) {
		t.Error("Overdue should sort before DueToday")
	}
	if StatusOrder(StatusDueToday) >= StatusOrder(StatusUpcoming) {
		t.Error("DueToday should sort before Upcoming")
	}
}

func TestHistory(t *testing.T) {
	tk := &Task{
		CompletedDates: []Date{MustParseDate("2026-01-05"), MustParseDate("2026-01-01")},
		SkippedDates:   []Date{MustParseDate("2026-01-03")},
		MissedDates:    []Date{MustParseDate("2026-01-07")},
	}

	got := History(tk)
	want := []string{"2026-01-07", "2026-01-05", "2026-01-03", "2026-01-01"}
	if len(got) != len(want) {
		t.Fatalf("History length = %d, want %d", len(got), len(want))
	}
	for i, w := range want {
		if got[i].Date.String() != w {
			t.Errorf("History[%d] = %s, want %s", i, got[i].Date, w)
		}
	}
	if got[0].Outcome != OutcomeMissed {
		t.Errorf("History[0].Outcome = %s, want missed", got[0].Outcome)
	}
}

func TestUnionDates(t *testing.T) {
	a := []Date{MustParseDate("2026-01-04"), MustParseDate("2026-01-01")}
	b := []Date{MustParseDate("2026-01-07"), MustParseDate("2026-01-04")}

	got := UnionDates(a, b)
	want := []string{"2026-01-07", "2026-01-04", "2026-01-01"}
	if len(got) != len(want) {
		t.Fatalf("UnionDates = %v, want %v", got, want)
	}
	for i, w := range want {
		if got[i].String() != w {
			t.Errorf("UnionDates[%d] = %s, want %s", i, got[i], w)
		}
	}
}

func TestGenerateID(t *testing.T) {
	now := time.Now()

	id := GenerateID("Water Plants", now, func(_ string) bool { return false })
	if len(id) < minIDLength || len(id) > maxIDLength {
		t.Errorf("ID length out of range: %s", id)
	}

	// Should grow past collisions
	taken := map[string]bool{}
	grown := GenerateID("Water Plants", now, func(candidate string) bool {
		if len(candidate) < minIDLength+2 {
			taken[candidate] = true
			return true
		}
		return false
	})
	if len(grown) != minIDLength+2 {
		t.Errorf("expected ID to grow to %d chars, got %q", minIDLength+2, grown)
	}
}
