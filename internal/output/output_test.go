package output

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/abatilo/clockwork/internal/agenda"
	"github.com/abatilo/clockwork/internal/reconcile"
	"github.com/abatilo/clockwork/internal/task"
)

func sample() *task.Task {
	return &task.Task{
		ID:             "k3f",
		Name:           "Water plants",
		Icon:           "🪴",
		Frequency:      task.FrequencyEvery3Days,
		StartDate:      task.MustParseDate("2026-01-01"),
		NextDue:        task.MustParseDate("2026-01-08"),
		DueDateOffset:  1,
		Streak:         2,
		CompletedDates: []task.Date{task.MustParseDate("2026-01-05"), task.MustParseDate("2026-01-02")},
		MissedDates:    []task.Date{task.MustParseDate("2026-01-03")},
	}
}

func TestJSONTaskIncludesDerivedFields(t *testing.T) {
	today := task.MustParseDate("2026-01-10")
	out := NewJSONFormatter().FormatTaskList(Rows([]*task.Task{sample()}, today, false))

	var decoded []map[string]any
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, out)
	}
	if len(decoded) != 1 {
		t.Fatalf("got %d tasks", len(decoded))
	}
	got := decoded[0]
	if got["status"] != "overdue" || got["effectiveDue"] != "2026-01-09" {
		t.Errorf("derived fields = %v, %v", got["status"], got["effectiveDue"])
	}
	if got["synced"] != false || got["nextDue"] != "2026-01-08" {
		t.Errorf("task fields = %v", got)
	}
}

func TestHumanHistory(t *testing.T) {
	out := NewHumanFormatter().FormatHistory(sample())
	lines := strings.Split(strings.TrimSpace(out), "\n")
	want := []string{"2026-01-05  completed", "2026-01-03  missed", "2026-01-02  completed"}
	if len(lines) != len(want)+1 {
		t.Fatalf("unexpected output:\n%s", out)
	}
	for i, w := range want {
		if strings.TrimSpace(lines[i+1]) != w {
			t.Errorf("line %d = %q, want %q", i+1, lines[i+1], w)
		}
	}
}

func TestHumanAgenda(t *testing.T) {
	a := agenda.Build([]*task.Task{sample()}, task.MustParseDate("2026-01-10"), false)
	out := NewHumanFormatter().FormatAgenda(a)
	if !strings.Contains(out, "Overdue (1)") || !strings.Contains(out, "[!] [k3f]") {
		t.Errorf("agenda output:\n%s", out)
	}
}

func TestHumanDivergencePrompt(t *testing.T) {
	out := NewHumanFormatter().FormatDivergence(&reconcile.Divergence{UserID: "alice", RemoteCount: 3, LocalCount: 2, Pending: true})
	for _, policy := range []string{"import", "merge", "fresh"} {
		if !strings.Contains(out, "clockwork resolve "+policy) {
			t.Errorf("prompt missing %s:\n%s", policy, out)
		}
	}
}

func TestFormatError(t *testing.T) {
	err := errors.New("boom")
	if got := NewHumanFormatter().FormatError(err); got != "Error: boom\n" {
		t.Errorf("human = %q", got)
	}
	if got := NewJSONFormatter().FormatError(err); !strings.Contains(got, `"error": "boom"`) {
		t.Errorf("json = %q", got)
	}
}
