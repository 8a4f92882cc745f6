package output

import (
	"encoding/json"

	"github.com/abatilo/clockwork/internal/agenda"
	"github.com/abatilo/clockwork/internal/reconcile"
	"github.com/abatilo/clockwork/internal/reminder"
	"github.com/abatilo/clockwork/internal/sweeper"
	"github.com/abatilo/clockwork/internal/task"
)

// JSONFormatter formats output as JSON.
type JSONFormatter struct{}

// marshalJSON marshals a value to indented JSON with a trailing newline.
func marshalJSON(v any) string {
	data, _ := json.MarshalIndent(v, "", "  ")
	return string(data) + "\n"
}

// NewJSONFormatter creates a new JSONFormatter.
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

// taskJSON is the wire form of a task plus the fields derived for display.
type taskJSON struct {
	*task.Task
	Status       task.Status `json:"status"`
	EffectiveDue task.Date   `json:"effectiveDue"`
	Synced       bool        `json:"synced"`
}

func toTaskJSON(r Row) taskJSON {
	return taskJSON{
		Task:         r.Task,
		Status:       r.Status,
		EffectiveDue: r.Task.EffectiveDueDate(),
		Synced:       r.Task.Synced,
	}
}

// FormatTask formats a single task as JSON.
func (f *JSONFormatter) FormatTask(r Row) string {
	return marshalJSON(toTaskJSON(r))
}

// FormatTaskList formats a list of tasks as JSON.
func (f *JSONFormatter) FormatTaskList(rows []Row) string {
	jsonTasks := make([]taskJSON, len(rows))
	for i, r := range rows {
		jsonTasks[i] = toTaskJSON(r)
	}
	return marshalJSON(jsonTasks)
}

func (f *JSONFormatter) FormatAgenda(a *agenda.Agenda) string {
	return marshalJSON(a)
}

type historyJSON struct {
	ID      string              `json:"id"`
	Name    string              `json:"name"`
	Entries []task.HistoryEntry `json:"entries"`
}

func (f *JSONFormatter) FormatHistory(t *task.Task) string {
	return marshalJSON(historyJSON{ID: t.ID, Name: t.Name, Entries: task.History(t)})
}

func (f *JSONFormatter) FormatSweep(r sweeper.Result) string {
	return marshalJSON(r)
}

func (f *JSONFormatter) FormatReminders(r reminder.CheckResult) string {
	return marshalJSON(r)
}

func (f *JSONFormatter) FormatPush(r reconcile.PushResult) string {
	return marshalJSON(r)
}

func (f *JSONFormatter) FormatDivergence(d *reconcile.Divergence) string {
	if d == nil {
		return marshalJSON(struct{}{})
	}
	return marshalJSON(d)
}

func (f *JSONFormatter) FormatResolve(r *reconcile.ResolveResult) string {
	return marshalJSON(r)
}

func (f *JSONFormatter) FormatStatus(s Status) string {
	return marshalJSON(s)
}

// errorJSON is the JSON representation of an error.
type errorJSON struct {
	Error string `json:"error"`
}

// FormatError formats an error as JSON.
func (f *JSONFormatter) FormatError(err error) string {
	return marshalJSON(errorJSON{Error: err.Error()})
}

// messageJSON is the JSON representation of a message.
type messageJSON struct {
	Message string `json:"message"`
}

// FormatMessage formats a simple message as JSON.
func (f *JSONFormatter) FormatMessage(msg string) string {
	return marshalJSON(messageJSON{Message: msg})
}
