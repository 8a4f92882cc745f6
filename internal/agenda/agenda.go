// Package agenda groups tasks by how urgent they are on a given day.
package agenda

import (
	"sort"
	"strings"

	"github.com/abatilo/clockwork/internal/task"
)

// Counts summarizes an agenda.
type Counts struct {
	Overdue  int `json:"overdue"`
	DueToday int `json:"dueToday"`
	Upcoming int `json:"upcoming"`
	Ended    int `json:"ended,omitempty"`
	Total    int `json:"total"`
}

// Agenda is the day view of a set of tasks.
type Agenda struct {
	Today    task.Date    `json:"today"`
	Overdue  []*task.Task `json:"overdue"`
	DueToday []*task.Task `json:"dueToday"`
	Upcoming []*task.Task `json:"upcoming"`
	Ended    []*task.Task `json:"ended,omitempty"`
	Counts   Counts       `json:"counts"`
}

// Build groups tasks by their status on today. Ended tasks are only
// separated out when stopAtEnd is set; otherwise they fall into the group
// their effective due date puts them in.
func Build(tasks []*task.Task, today task.Date, stopAtEnd bool) *Agenda {
	a := &Agenda{
		Today:    today,
		Overdue:  []*task.Task{},
		DueToday: []*task.Task{},
		Upcoming: []*task.Task{},
	}
	for _, t := range tasks {
		switch task.StatusAt(t, today, stopAtEnd) {
		case task.StatusOverdue:
			a.Overdue = append(a.Overdue, t)
		case task.StatusDueToday:
			a.DueToday = append(a.DueToday, t)
		case task.StatusUpcoming:
			a.Upcoming = append(a.Upcoming, t)
		case task.StatusEnded:
			a.Ended = append(a.Ended, t)
		}
	}
	for _, group := range [][]*task.Task{a.Overdue, a.DueToday, a.Upcoming, a.Ended} {
		Sort(group)
	}
	a.Counts = Counts{
		Overdue:  len(a.Overdue),
		DueToday: len(a.DueToday),
		Upcoming: len(a.Upcoming),
		Ended:    len(a.Ended),
		Total:    len(tasks),
	}
	return a
}

// Actionable returns the overdue tasks followed by the ones due today.
func (a *Agenda) Actionable() []*task.Task {
	out := make([]*task.Task, 0, len(a.Overdue)+len(a.DueToday))
	out = append(out, a.Overdue...)
	return append(out, a.DueToday...)
}

// Sort orders tasks by effective due date, then name, then id.
func Sort(tasks []*task.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		return taskLess(tasks[i], tasks[j])
	})
}

func taskLess(a, b *task.Task) bool {
	if c := a.EffectiveDueDate().Compare(b.EffectiveDueDate()); c != 0 {
		return c < 0
	}
	na, nb := strings.ToLower(a.Name), strings.ToLower(b.Name)
	if na != nb {
		return na < nb
	}
	return a.ID < b.ID
}
