package task

// Status is the progression state of a task, derived from its due date and
// today's date. It is never stored.
type Status string

const (
	StatusUpcoming Status = "upcoming"
	StatusDueToday Status = "due_today"
	StatusOverdue  Status = "overdue"
	StatusEnded    Status = "ended"
)

// IsValidStatus checks if a status string is valid.
func IsValidStatus(s Status) bool {
	switch s {
	case StatusUpcoming, StatusDueToday, StatusOverdue, StatusEnded:
		return true
	default:
		return false
	}
}

// StatusAt derives the status of t on the given day. When stopAtEnd is set a
// task whose anchor has moved past its end date is ended.
func StatusAt(t *Task, today Date, stopAtEnd bool) Status {
	if stopAtEnd && PastEnd(t) {
		return StatusEnded
	}
	switch effective := t.EffectiveDueDate(); effective.Compare(today) {
	case -1:
		return StatusOverdue
	case 0:
		return StatusDueToday
	default:
		return StatusUpcoming
	}
}

// PastEnd reports whether the next occurrence falls after the end date.
func PastEnd(t *Task) bool {
	return t.EndDate != nil && !t.EndDate.IsZero() && t.NextDue.After(*t.EndDate)
}

// StatusOrder returns the sort order for a status (lower = more urgent).
func StatusOrder(s Status) int {
	switch s {
	case StatusOverdue:
		return 0
	case StatusDueToday:
		return 1
	case StatusUpcoming:
		return 2
	case StatusEnded:
		return 3
	default:
		return 4
	}
}
