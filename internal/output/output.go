package output

import (
	"github.com/abatilo/clockwork/internal/agenda"
	"github.com/abatilo/clockwork/internal/reconcile"
	"github.com/abatilo/clockwork/internal/reminder"
	"github.com/abatilo/clockwork/internal/sweeper"
	"github.com/abatilo/clockwork/internal/task"
)

// Formatter defines the interface for output formatting.
type Formatter interface {
	FormatTask(r Row) string
	FormatTaskList(rows []Row) string
	FormatAgenda(a *agenda.Agenda) string
	FormatHistory(t *task.Task) string
	FormatSweep(r sweeper.Result) string
	FormatReminders(r reminder.CheckResult) string
	FormatPush(r reconcile.PushResult) string
	FormatDivergence(d *reconcile.Divergence) string
	FormatResolve(r *reconcile.ResolveResult) string
	FormatStatus(s Status) string
	FormatError(err error) string
	FormatMessage(msg string) string
}

// Row is a task with its status on the day it is shown.
type Row struct {
	Task   *task.Task
	Status task.Status
}

// Rows derives the status of every task on today.
func Rows(tasks []*task.Task, today task.Date, stopAtEnd bool) []Row {
	rows := make([]Row, len(tasks))
	for i, t := range tasks {
		rows[i] = Row{Task: t, Status: task.StatusAt(t, today, stopAtEnd)}
	}
	return rows
}

// Status is the combined view printed by `clockwork status`.
type Status struct {
	Today    task.Date `json:"today"`
	Timezone string    `json:"timezone"`
	Store    string    `json:"store"`
	Remote   string    `json:"remote,omitempty"`
	// RemoteError is set when the health check failed.
	RemoteError string           `json:"remoteError,omitempty"`
	Agenda      agenda.Counts    `json:"agenda"`
	Sync        reconcile.Status `json:"sync"`
}
