//nolint:testpackage // Tests require internal access for thorough testing
package storage

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	cwerrors "github.com/abatilo/clockwork/internal/errors"
	"github.com/abatilo/clockwork/internal/task"
)

func TestParseMarkdown(t *testing.T) {
	content := []byte(`---
id: abc123
name: Water plants
frequency: every_3_days
start_date: 2026-01-01
next_due: 2026-01-10
due_date_offset: 2
streak: 4
completed_dates:
  - 2026-01-07
  - 2026-01-04
skipped_dates: []
missed_dates: []
reminders_enabled: true
synced: false
created_at: 2026-01-01T09:00:00Z
---

Use the blue can.
`)

	tk, err := ParseMarkdown(content)
	if err != nil {
		t.Fatalf("ParseMarkdown failed: %v", err)
	}

	if tk.ID != "abc123" {
		t.Errorf("ID = %q, want %q", tk.ID, "abc123")
	}
	if tk.Frequency != task.FrequencyEvery3Days {
		t.Errorf("Frequency = %q", tk.Frequency)
	}
	if tk.NextDue.String() != "2026-01-10" || tk.DueDateOffset != 2 {
		t.Errorf("NextDue/offset = %s/%d", tk.NextDue, tk.DueDateOffset)
	}
	if len(tk.CompletedDates) != 2 || tk.CompletedDates[0].String() != "2026-01-07" {
		t.Errorf("CompletedDates = %v", tk.CompletedDates)
	}
	if tk.Notes != "Use the blue can." {
		t.Errorf("Notes = %q, want %q", tk.Notes, "Use the blue can.")
	}
	if tk.MissedDates == nil {
		t.Error("MissedDates should be normalized to empty")
	}
}

func TestParseMarkdownRejectsMalformed(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"no frontmatter", "just text\n"},
		{"unclosed", "---\nid: x\n"},
		{"bad frequency", "---\nid: x\nname: n\nfrequency: hourly\n---\n"},
		{"missing id", "---\nname: n\nfrequency: daily\n---\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseMarkdown([]byte(tt.content)); err == nil {
				t.Error("expected parse error")
			}
		})
	}
}

func TestSerializeMarkdownRoundTrip(t *testing.T) {
	end := task.MustParseDate("2026-12-31")
	orig := &task.Task{
		ID:            "abc123",
		Name:          "Stretch",
		Frequency:     task.FrequencyMonthly,
		StartDate:     task.MustParseDate("2026-01-31"),
		EndDate:       &end,
		NextDue:       task.MustParseDate("2026-02-28"),
		DueDateOffset: -1,
		MissedDates:   []task.Date{task.MustParseDate("2026-01-31")},
		Notes:         "Line one\nLine two",
		Remote:        true,
		CreatedAt:     time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC),
	}
	orig.Normalize()

	data, err := SerializeMarkdown(orig)
	if err != nil {
		t.Fatalf("SerializeMarkdown failed: %v", err)
	}
	parsed, err := ParseMarkdown(data)
	if err != nil {
		t.Fatalf("ParseMarkdown failed: %v", err)
	}

	if parsed.EndDate == nil || *parsed.EndDate != end {
		t.Errorf("Round-trip EndDate = %v, want %s", parsed.EndDate, end)
	}
	if parsed.NextDue != orig.NextDue || parsed.DueDateOffset != -1 {
		t.Errorf("Round-trip NextDue = %s offset %d", parsed.NextDue, parsed.DueDateOffset)
	}
	if parsed.Notes != orig.Notes {
		t.Errorf("Round-trip Notes = %q, want %q", parsed.Notes, orig.Notes)
	}
	if !parsed.Remote || parsed.Synced {
		t.Errorf("Round-trip bookkeeping = synced %v remote %v", parsed.Synced, parsed.Remote)
	}
	if !parsed.CreatedAt.Equal(orig.CreatedAt) {
		t.Errorf("Round-trip CreatedAt = %v", parsed.CreatedAt)
	}
}

func TestFileStoreInit(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "tasks"))

	if store.IsInitialized() {
		t.Error("Store should not be initialized yet")
	}
	if _, err := store.All(); !errors.As(err, new(cwerrors.NotInitializedError)) {
		t.Errorf("All() before init = %v, want NotInitializedError", err)
	}
	if err := store.Init(false); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if err := store.Init(false); !errors.As(err, new(cwerrors.AlreadyInitializedError)) {
		t.Errorf("second Init = %v, want AlreadyInitializedError", err)
	}
	if err := store.Init(true); err != nil {
		t.Errorf("forced Init = %v", err)
	}
}

// stores returns one fresh instance of each backend.
func stores(t *testing.T) map[string]LocalStore {
	t.Helper()

	fs := NewFileStore(filepath.Join(t.TempDir(), "tasks"))
	if err := fs.Init(false); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	sq, err := NewSQLiteStore(filepath.Join(t.TempDir(), "clockwork.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	t.Cleanup(func() { sq.Close() })

	return map[string]LocalStore{
		"file":   fs,
		"sqlite": sq,
		"memory": NewMemoryStore(),
	}
}

func newTask(id string, created time.Time) *task.Task {
	tk := &task.Task{
		ID:        id,
		Name:      "Task " + id,
		Frequency: task.FrequencyDaily,
		StartDate: task.MustParseDate("2026-01-01"),
		NextDue:   task.MustParseDate("2026-01-01"),
		CreatedAt: created,
		UpdatedAt: created,
	}
	tk.Normalize()
	return tk
}

func TestLocalStoreContract(t *testing.T) {
	created := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)

	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			if err := store.Put(newTask("bbbb", created.Add(time.Minute))); err != nil {
				t.Fatalf("Put failed: %v", err)
			}
			if err := store.Put(newTask("aaaa", created)); err != nil {
				t.Fatalf("Put failed: %v", err)
			}

			got, err := store.Get("aaaa")
			if err != nil {
				t.Fatalf("Get failed: %v", err)
			}
			if got.Name != "Task aaaa" || got.Synced {
				t.Errorf("Get = %+v", got)
			}
			if !store.Exists("aaaa") || store.Exists("zzzz") {
				t.Error("Exists mismatch")
			}

			if _, err := store.Get("zzzz"); !errors.As(err, new(cwerrors.TaskNotFoundError)) {
				t.Errorf("Get missing = %v, want TaskNotFoundError", err)
			}

			all, err := store.All()
			if err != nil {
				t.Fatalf("All failed: %v", err)
			}
			if len(all) != 2 || all[0].ID != "aaaa" || all[1].ID != "bbbb" {
				t.Fatalf("All order = %v", ids(all))
			}

			updated, err := store.Update("aaaa", func(tk *task.Task) error {
				tk.Synced = true
				tk.CompletedDates = task.PushFront(tk.CompletedDates, task.MustParseDate("2026-01-02"))
				return nil
			})
			if err != nil {
				t.Fatalf("Update failed: %v", err)
			}
			if !updated.Synced || len(updated.CompletedDates) != 1 {
				t.Errorf("Update result = %+v", updated)
			}

			dirty, err := Dirty(store)
			if err != nil {
				t.Fatalf("Dirty failed: %v", err)
			}
			if len(dirty) != 1 || dirty[0].ID != "bbbb" {
				t.Errorf("Dirty = %v, want [bbbb]", ids(dirty))
			}

			if _, err := store.Update("zzzz", func(*task.Task) error { return nil }); !errors.As(err, new(cwerrors.TaskNotFoundError)) {
				t.Errorf("Update missing = %v, want TaskNotFoundError", err)
			}

			unchanged, err := store.Update("bbbb", func(*task.Task) error { return ErrUnchanged })
			if err != nil || unchanged.ID != "bbbb" {
				t.Errorf("Update unchanged = %v, %v", unchanged, err)
			}

			if err := store.Delete("bbbb"); err != nil {
				t.Fatalf("Delete failed: %v", err)
			}
			if err := store.Delete("bbbb"); !errors.As(err, new(cwerrors.TaskNotFoundError)) {
				t.Errorf("second Delete = %v, want TaskNotFoundError", err)
			}

			if err := store.Clear(); err != nil {
				t.Fatalf("Clear failed: %v", err)
			}
			if all, _ := store.All(); len(all) != 0 {
				t.Errorf("after Clear, All = %v", ids(all))
			}
		})
	}
}

func TestUpdateSerializesPerRecord(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			if err := store.Put(newTask("cccc", time.Now())); err != nil {
				t.Fatalf("Put failed: %v", err)
			}

			const writers = 20
			var wg sync.WaitGroup
			for range writers {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if _, err := store.Update("cccc", func(tk *task.Task) error {
						tk.Streak++
						return nil
					}); err != nil {
						t.Errorf("Update failed: %v", err)
					}
				}()
			}
			wg.Wait()

			got, err := store.Get("cccc")
			if err != nil {
				t.Fatalf("Get failed: %v", err)
			}
			if got.Streak != writers {
				t.Errorf("Streak = %d, want %d (lost update)", got.Streak, writers)
			}
		})
	}
}

// storePairs returns two independent handles per durable backend, opened on
// the same path the way two processes would open them.
func storePairs(t *testing.T) map[string][2]LocalStore {
	t.Helper()

	dir := filepath.Join(t.TempDir(), "tasks")
	fa := NewFileStore(dir)
	if err := fa.Init(false); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	dbPath := filepath.Join(t.TempDir(), "clockwork.db")
	sa, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	t.Cleanup(func() { sa.Close() })
	sb, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	t.Cleanup(func() { sb.Close() })

	return map[string][2]LocalStore{
		"file":   {fa, NewFileStore(dir)},
		"sqlite": {sa, sb},
	}
}

func TestUpdateSerializesAcrossHandles(t *testing.T) {
	missed := task.MustParseDate("2026-01-05")
	completed := task.MustParseDate("2026-01-06")

	for name, pair := range storePairs(t) {
		t.Run(name, func(t *testing.T) {
			sweeper, cli := pair[0], pair[1]
			if err := sweeper.Put(newTask("eeee", time.Now())); err != nil {
				t.Fatalf("Put failed: %v", err)
			}

			done := make(chan error, 1)
			_, err := sweeper.Update("eeee", func(tk *task.Task) error {
				// The other handle's completion starts while this miss is
				// being written and must wait for it.
				go func() {
					_, err := cli.Update("eeee", func(tk *task.Task) error {
						tk.CompletedDates = task.PushFront(tk.CompletedDates, completed)
						tk.Streak++
						return nil
					})
					done <- err
				}()
				time.Sleep(50 * time.Millisecond)
				tk.MissedDates = task.PushFront(tk.MissedDates, missed)
				tk.Streak = 0
				return nil
			})
			if err != nil {
				t.Fatalf("sweeper Update failed: %v", err)
			}
			if err := <-done; err != nil {
				t.Fatalf("cli Update failed: %v", err)
			}

			got, err := sweeper.Get("eeee")
			if err != nil {
				t.Fatalf("Get failed: %v", err)
			}
			if len(got.MissedDates) != 1 || len(got.CompletedDates) != 1 || got.Streak != 1 {
				t.Errorf("missed=%v completed=%v streak=%d, want both histories and streak 1",
					got.MissedDates, got.CompletedDates, got.Streak)
			}
		})
	}
}

func TestFileStoreKeepsNotesWhitespace(t *testing.T) {
	fs := NewFileStore(filepath.Join(t.TempDir(), "tasks"))
	if err := fs.Init(false); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	for _, notes := range []string{"  indented", "trailing newline\n", "\n\nleading blank lines", "tab\t"} {
		tk := newTask("ffff", time.Now())
		tk.Notes = notes
		if err := fs.Put(tk); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		got, err := fs.Get("ffff")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if got.Notes != notes {
			t.Errorf("Notes = %q, want %q", got.Notes, notes)
		}
	}
}

func TestSubscribe(t *testing.T) {
	store := NewMemoryStore()
	changes, stop := store.Subscribe(8)
	defer stop()

	if err := store.Put(newTask("dddd", time.Now())); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := store.Delete("dddd"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	want := []Change{{Op: OpPut, ID: "dddd"}, {Op: OpDelete, ID: "dddd"}}
	for _, w := range want {
		select {
		case got := <-changes:
			if got != w {
				t.Errorf("change = %+v, want %+v", got, w)
			}
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for %+v", w)
		}
	}

	stop()
	if _, ok := <-changes; ok {
		t.Error("channel should be closed after stop")
	}
}

func TestOpenUnknownBackend(t *testing.T) {
	_, closeFn, err := Open("etcd", t.TempDir())
	if !errors.As(err, new(cwerrors.ValidationError)) {
		t.Errorf("Open(etcd) = %v, want ValidationError", err)
	}
	if closeFn == nil {
		t.Error("close function must never be nil")
	}
}

func ids(tasks []*task.Task) []string {
	out := make([]string, len(tasks))
	for i, tk := range tasks {
		out[i] = tk.ID
	}
	return out
}
