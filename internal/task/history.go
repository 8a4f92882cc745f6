package task

import (
	"slices"
	"sort"
)

// Outcome is what happened to one scheduled occurrence.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeMissed    Outcome = "missed"
)

// HistoryEntry is one row of a task's merged timeline.
type HistoryEntry struct {
	Date    Date    `json:"date"`
	Outcome Outcome `json:"outcome"`
}

// History merges the three history sequences into one timeline, newest first.
// Entries on the same date keep completed, skipped, missed order.
func History(t *Task) []HistoryEntry {
	entries := make([]HistoryEntry, 0, len(t.CompletedDates)+len(t.SkippedDates)+len(t.MissedDates))
	for _, d := range t.CompletedDates {
		entries = append(entries, HistoryEntry{Date: d, Outcome: OutcomeCompleted})
	}
	for _, d := range t.SkippedDates {
		entries = append(entries, HistoryEntry{Date: d, Outcome: OutcomeSkipped})
	}
	for _, d := range t.MissedDates {
		entries = append(entries, HistoryEntry{Date: d, Outcome: OutcomeMissed})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Date.After(entries[j].Date)
	})
	return entries
}

// UnionDates merges two most-recent-first date sequences into a set, newest
// first, with duplicates removed.
func UnionDates(a, b []Date) []Date {
	seen := make(map[Date]bool, len(a)+len(b))
	out := make([]Date, 0, len(a)+len(b))
	for _, d := range slices.Concat(a, b) {
		if seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, d)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].After(out[j])
	})
	return out
}

// PushFront prepends d to dates without mutating the original backing array.
func PushFront(dates []Date, d Date) []Date {
	out := make([]Date, 0, len(dates)+1)
	out = append(out, d)
	return append(out, dates...)
}
