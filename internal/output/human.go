package output

import (
	"fmt"
	"sort"
	"strings"

	"github.com/abatilo/clockwork/internal/agenda"
	"github.com/abatilo/clockwork/internal/reconcile"
	"github.com/abatilo/clockwork/internal/reminder"
	"github.com/abatilo/clockwork/internal/sweeper"
	"github.com/abatilo/clockwork/internal/task"
)

// HumanFormatter formats output for human-readable terminal display.
type HumanFormatter struct{}

// NewHumanFormatter creates a new HumanFormatter.
func NewHumanFormatter() *HumanFormatter {
	return &HumanFormatter{}
}

// FormatTask formats a single task for display.
func (f *HumanFormatter) FormatTask(r Row) string {
	t := r.Task
	var sb strings.Builder

	fmt.Fprintf(&sb, "[%s] %s\n", t.ID, displayName(t))
	fmt.Fprintf(&sb, "  Status:    %s\n", r.Status)
	fmt.Fprintf(&sb, "  Repeats:   %s\n", t.Frequency.Label())
	fmt.Fprintf(&sb, "  Due:       %s\n", dueText(t))
	fmt.Fprintf(&sb, "  Streak:    %d\n", t.Streak)
	fmt.Fprintf(&sb, "  Started:   %s\n", t.StartDate)
	if t.EndDate != nil {
		fmt.Fprintf(&sb, "  Ends:      %s\n", *t.EndDate)
	}
	if t.LastCompleted != nil {
		fmt.Fprintf(&sb, "  Last done: %s\n", *t.LastCompleted)
	}
	fmt.Fprintf(&sb, "  History:   %d done, %d skipped, %d missed\n",
		len(t.CompletedDates), len(t.SkippedDates), len(t.MissedDates))
	if t.RemindersEnabled {
		sb.WriteString("  Reminders: on\n")
	}
	if !t.Synced {
		sb.WriteString("  Sync:      pending\n")
	}
	if t.Notes != "" {
		sb.WriteString("\n")
		sb.WriteString(t.Notes)
		sb.WriteString("\n")
	}

	return sb.String()
}

// FormatTaskList formats a list of tasks for display.
func (f *HumanFormatter) FormatTaskList(rows []Row) string {
	if len(rows) == 0 {
		return "No clockworks found.\n"
	}

	var sb strings.Builder
	for _, r := range rows {
		sb.WriteString(f.formatTaskLine(r))
	}
	return sb.String()
}

// formatTaskLine formats a single task as a compact one-liner.
func (f *HumanFormatter) formatTaskLine(r Row) string {
	t := r.Task
	sync := ""
	if !t.Synced {
		sync = " ~"
	}
	return fmt.Sprintf("%s [%s] %s  (%s, due %s, streak %d)%s\n",
		statusIcon(r.Status), t.ID, displayName(t), t.Frequency.Label(), dueText(t), t.Streak, sync)
}

func statusIcon(s task.Status) string {
	switch s {
	case task.StatusOverdue:
		return "[!]"
	case task.StatusDueToday:
		return "[*]"
	case task.StatusUpcoming:
		return "[ ]"
	case task.StatusEnded:
		return "[-]"
	default:
		return "[?]"
	}
}

func displayName(t *task.Task) string {
	if t.Icon == "" {
		return t.Name
	}
	return t.Icon + " " + t.Name
}

func dueText(t *task.Task) string {
	due := t.EffectiveDueDate().String()
	switch {
	case t.DueDateOffset > 0:
		return fmt.Sprintf("%s, snoozed %+dd", due, t.DueDateOffset)
	case t.DueDateOffset < 0:
		return fmt.Sprintf("%s, pulled in %dd", due, -t.DueDateOffset)
	default:
		return due
	}
}

// FormatAgenda formats the day view.
func (f *HumanFormatter) FormatAgenda(a *agenda.Agenda) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Today is %s\n", a.Today)

	section := func(title string, status task.Status, tasks []*task.Task) {
		if len(tasks) == 0 {
			return
		}
		fmt.Fprintf(&sb, "\n%s (%d)\n", title, len(tasks))
		for _, t := range tasks {
			sb.WriteString("  ")
			sb.WriteString(f.formatTaskLine(Row{Task: t, Status: status}))
		}
	}
	section("Overdue", task.StatusOverdue, a.Overdue)
	section("Due today", task.StatusDueToday, a.DueToday)
	section("Upcoming", task.StatusUpcoming, a.Upcoming)
	section("Ended", task.StatusEnded, a.Ended)

	if a.Counts.Total == 0 {
		sb.WriteString("\nNo clockworks yet. Add one with `clockwork add`.\n")
	} else if a.Counts.Overdue == 0 && a.Counts.DueToday == 0 {
		sb.WriteString("\nAll caught up.\n")
	}
	return sb.String()
}

// FormatHistory formats a task's merged timeline.
func (f *HumanFormatter) FormatHistory(t *task.Task) string {
	entries := task.History(t)
	if len(entries) == 0 {
		return fmt.Sprintf("No history for [%s] %s.\n", t.ID, t.Name)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] %s\n", t.ID, displayName(t))
	for _, e := range entries {
		fmt.Fprintf(&sb, "  %s  %s\n", e.Date, e.Outcome)
	}
	return sb.String()
}

// FormatSweep formats a sweep result.
func (f *HumanFormatter) FormatSweep(r sweeper.Result) string {
	s := fmt.Sprintf("Swept %d clockworks: %d missed", r.Scanned, r.Missed)
	if r.Failed > 0 {
		s += fmt.Sprintf(", %d failed", r.Failed)
	}
	if r.Pending > 0 {
		s += fmt.Sprintf(", %d still overdue", r.Pending)
	}
	return s + ".\n"
}

// FormatReminders formats a reminder check.
func (f *HumanFormatter) FormatReminders(r reminder.CheckResult) string {
	if r.Throttled {
		return "Reminders were sent recently; skipping.\n"
	}
	if len(r.Sent) == 0 {
		return "Nothing to remind.\n"
	}
	var sb strings.Builder
	for _, n := range r.Sent {
		fmt.Fprintf(&sb, "%s: %s\n", n.Title, n.Body)
	}
	return sb.String()
}

// FormatPush formats a push result.
func (f *HumanFormatter) FormatPush(r reconcile.PushResult) string {
	if r.Pushed == 0 {
		return "Nothing to sync.\n"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Synced %d of %d clockworks.\n", len(r.Synced), r.Pushed)
	if len(r.Changed) > 0 {
		fmt.Fprintf(&sb, "  %d changed during sync and will go next time: %s\n",
			len(r.Changed), strings.Join(r.Changed, ", "))
	}
	ids := make([]string, 0, len(r.Failed))
	for id := range r.Failed {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		fmt.Fprintf(&sb, "  failed [%s]: %s\n", id, r.Failed[id])
	}
	return sb.String()
}

// FormatDivergence formats the outcome of a sign-in check.
func (f *HumanFormatter) FormatDivergence(d *reconcile.Divergence) string {
	if d == nil {
		return "Signed in.\n"
	}
	if !d.Pending {
		return fmt.Sprintf("Signed in as %s. The server had no clockworks; local data was uploaded.\n", d.UserID)
	}
	return fmt.Sprintf(`Signed in as %s. The server already has %d clockworks (%d on this device).
Choose how to reconcile before syncing resumes:
  clockwork resolve import   replace local data with the server's
  clockwork resolve merge    combine both, keeping all history
  clockwork resolve fresh    replace the server's data with local
`, d.UserID, d.RemoteCount, d.LocalCount)
}

// FormatResolve formats a resolution result.
func (f *HumanFormatter) FormatResolve(r *reconcile.ResolveResult) string {
	var sb strings.Builder
	switch r.Policy {
	case reconcile.PolicyImport:
		fmt.Fprintf(&sb, "Imported %d clockworks from the server.\n", r.Imported)
	case reconcile.PolicyMerge:
		fmt.Fprintf(&sb, "Merged %d clockworks and added %d from the server.\n", r.Merged, r.Adopted)
	case reconcile.PolicyFresh:
		fmt.Fprintf(&sb, "Cleared %d clockworks from the server.\n", r.RemoteDeleted)
	}
	if r.Push != nil {
		sb.WriteString(f.FormatPush(*r.Push))
	}
	if r.PushError != "" {
		fmt.Fprintf(&sb, "Sync did not complete: %s\n", r.PushError)
	}
	return sb.String()
}

// FormatStatus formats the combined status view.
func (f *HumanFormatter) FormatStatus(s Status) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Today:     %s (%s)\n", s.Today, s.Timezone)
	fmt.Fprintf(&sb, "Store:     %s\n", s.Store)
	fmt.Fprintf(&sb, "Agenda:    %d overdue, %d due today, %d upcoming\n",
		s.Agenda.Overdue, s.Agenda.DueToday, s.Agenda.Upcoming)

	if s.Remote == "" {
		sb.WriteString("Sync:      off (no remote configured)\n")
		return sb.String()
	}
	if s.RemoteError != "" {
		fmt.Fprintf(&sb, "Remote:    %s (unreachable: %s)\n", s.Remote, s.RemoteError)
	} else {
		fmt.Fprintf(&sb, "Remote:    %s\n", s.Remote)
	}
	if s.Sync.UserID == "" {
		sb.WriteString("Account:   signed out\n")
	} else {
		fmt.Fprintf(&sb, "Account:   %s\n", s.Sync.UserID)
	}
	fmt.Fprintf(&sb, "Sync:      %s, %d pending\n", s.Sync.State, s.Sync.Dirty)
	if s.Sync.LastSyncTime != nil {
		fmt.Fprintf(&sb, "Last sync: %s\n", s.Sync.LastSyncTime.Local().Format("2006-01-02 15:04"))
	}
	if s.Sync.ResolutionPending {
		sb.WriteString("Action:    run `clockwork resolve <import|merge|fresh>`\n")
	}
	return sb.String()
}

// FormatError formats an error for display.
func (f *HumanFormatter) FormatError(err error) string {
	return fmt.Sprintf("Error: %s\n", err.Error())
}

// FormatMessage formats a simple message.
func (f *HumanFormatter) FormatMessage(msg string) string {
	return msg + "\n"
}
