package analytics

import (
	"sort"
	"time"

	"partnerdash/api/models"
)

// Filter selects entries for a dashboard view. Zero fields match everything.
type Filter struct {
	Start  time.Time
	End    time.Time
	Action string
	Page   string
}

func (f Filter) Match(e models.LogEntry) bool {
	if !f.Start.IsZero() && e.Timestamp.Before(f.Start) {
		return false
	}
	if !f.End.IsZero() && e.Timestamp.After(f.End) {
		return false
	}
	if f.Action != "" && e.Action != f.Action {
		return false
	}
	if f.Page != "" && e.Page != f.Page {
		return false
	}
	return true
}

// Apply returns the matching entries sorted by timestamp. Persisted logs
// are not guaranteed to be ordered, so the sort is always applied.
func (f Filter) Apply(entries []models.LogEntry) []models.LogEntry {
	out := make([]models.LogEntry, 0, len(entries))
	for _, e := range entries {
		if f.Match(e) {
			out = append(out, e)
		}
	}
	sortByTime(out)
	return out
}

func sortByTime(entries []models.LogEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.Before(entries[j].Timestamp)
	})
}
