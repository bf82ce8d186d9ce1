// Package analytics derives dashboard statistics from usage log entries.
// Every function is a pure function of its input slice.
package analytics

import (
	"math"
	"sort"

	"partnerdash/api/models"
)

const (
	// TopPagesLimit caps the TopPages result.
	TopPagesLimit = 10
	// HeatmapGrid is the cell size, in pixels, used to snap archived clicks.
	HeatmapGrid = 20.0
)

type pageAcc struct {
	page    string
	views   int
	users   map[string]struct{}
	totalMs int64
}

// pageStats groups page_view entries by page in first-appearance order.
// Exit entries add dwell time but are not counted as views.
func pageStats(entries []models.LogEntry) ([]*pageAcc, map[string]*pageAcc) {
	var order []*pageAcc
	byPage := make(map[string]*pageAcc)
	for _, e := range entries {
		if e.Action != models.ActionPageView {
			continue
		}
		acc, ok := byPage[e.Page]
		if !ok {
			acc = &pageAcc{page: e.Page, users: make(map[string]struct{})}
			byPage[e.Page] = acc
			order = append(order, acc)
		}
		acc.users[e.UserID] = struct{}{}
		if e.IsExit() {
			if e.Duration != nil {
				acc.totalMs += *e.Duration
			}
			continue
		}
		acc.views++
	}
	return order, byPage
}

func (a *pageAcc) avgSeconds() int64 {
	if a == nil || a.views == 0 {
		return 0
	}
	return int64(math.Round(float64(a.totalMs) / float64(a.views) / 1000))
}

// TopPages ranks pages by view count, ties in first-appearance order.
func TopPages(entries []models.LogEntry) []models.PageStats {
	order, _ := pageStats(entries)
	out := make([]models.PageStats, 0, len(order))
	for _, acc := range order {
		out = append(out, models.PageStats{
			Page:           acc.page,
			Views:          acc.views,
			UniqueUsers:    len(acc.users),
			AvgTimeSeconds: acc.avgSeconds(),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Views > out[j].Views })
	if len(out) > TopPagesLimit {
		out = out[:TopPagesLimit]
	}
	return out
}

func snap(v float64) float64 {
	return math.Round(v/HeatmapGrid) * HeatmapGrid
}

type bucketKey struct {
	page string
	x, y float64
}

// ClickHeatmap snaps logged clicks to a 20px grid and groups the resulting
// buckets per page. Pages appear in order of their first click.
func ClickHeatmap(entries []models.LogEntry) []models.PageHeatmapData {
	_, views := pageStats(entries)

	var pages []*models.PageHeatmapData
	byPage := make(map[string]*models.PageHeatmapData)
	index := make(map[bucketKey]int)

	for _, e := range entries {
		if e.Action != models.ActionClick || e.Coordinates == nil {
			continue
		}
		hm, ok := byPage[e.Page]
		if !ok {
			acc := views[e.Page]
			hm = &models.PageHeatmapData{Page: e.Page, Buckets: []models.ClickBucket{}, AvgTimeSeconds: acc.avgSeconds()}
			if acc != nil {
				hm.UniqueUsers = len(acc.users)
			}
			byPage[e.Page] = hm
			pages = append(pages, hm)
		}
		hm.TotalClicks++

		key := bucketKey{page: e.Page, x: snap(e.Coordinates.X), y: snap(e.Coordinates.Y)}
		if i, ok := index[key]; ok {
			hm.Buckets[i].Clicks++
			continue
		}
		index[key] = len(hm.Buckets)
		hm.Buckets = append(hm.Buckets, models.ClickBucket{
			X:         key.x,
			Y:         key.y,
			Clicks:    1,
			Page:      e.Page,
			Element:   e.Element,
			Timestamp: e.Timestamp,
		})
	}

	out := make([]models.PageHeatmapData, 0, len(pages))
	for _, hm := range pages {
		out = append(out, *hm)
	}
	return out
}

// AverageSessionDuration sums durations per session and averages over the
// sessions that carry at least one duration, in whole seconds.
func AverageSessionDuration(entries []models.LogEntry) int64 {
	totals := make(map[string]int64)
	for _, e := range entries {
		if e.Duration == nil {
			continue
		}
		totals[e.SessionID] += *e.Duration
	}
	if len(totals) == 0 {
		return 0
	}
	var sum int64
	for _, ms := range totals {
		sum += ms
	}
	return int64(math.Round(float64(sum) / float64(len(totals)) / 1000))
}

// HourlyActivity counts entries by hour of day in each timestamp's location.
func HourlyActivity(entries []models.LogEntry) [24]int {
	var hours [24]int
	for _, e := range entries {
		hours[e.Timestamp.Hour()]++
	}
	return hours
}

// ActionDistribution counts entries per action.
func ActionDistribution(entries []models.LogEntry) map[string]int {
	out := make(map[string]int)
	for _, e := range entries {
		out[e.Action]++
	}
	return out
}

// ActionCounts is ActionDistribution sorted by count, then action name.
func ActionCounts(entries []models.LogEntry) []models.ActionCount {
	dist := ActionDistribution(entries)
	out := make([]models.ActionCount, 0, len(dist))
	for action, n := range dist {
		out = append(out, models.ActionCount{Action: action, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count == out[j].Count {
			return out[i].Action < out[j].Action
		}
		return out[i].Count > out[j].Count
	})
	return out
}

// UniqueVisitors counts distinct user ids.
func UniqueVisitors(entries []models.LogEntry) int {
	seen := make(map[string]struct{})
	for _, e := range entries {
		seen[e.UserID] = struct{}{}
	}
	return len(seen)
}

// Sessions derives per-session boundaries from the first and last entry of
// each session id; input order does not matter.
func Sessions(entries []models.LogEntry) []models.SessionSummary {
	byID := make(map[string]*models.SessionSummary)
	var order []string
	for _, e := range entries {
		s, ok := byID[e.SessionID]
		if !ok {
			s = &models.SessionSummary{SessionID: e.SessionID, UserID: e.UserID, Start: e.Timestamp, End: e.Timestamp}
			byID[e.SessionID] = s
			order = append(order, e.SessionID)
		}
		s.Entries++
		if e.Timestamp.Before(s.Start) {
			s.Start = e.Timestamp
		}
		if e.Timestamp.After(s.End) {
			s.End = e.Timestamp
		}
		if e.IsExit() && e.Duration != nil {
			s.DurationSeconds += *e.Duration
		}
	}

	out := make([]models.SessionSummary, 0, len(order))
	for _, id := range order {
		s := *byID[id]
		s.DurationSeconds = int64(math.Round(float64(s.DurationSeconds) / 1000))
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}

// Summarize computes every statistic for entries.
func Summarize(entries []models.LogEntry) models.UsageSummary {
	return models.UsageSummary{
		TotalEntries:              len(entries),
		UniqueVisitors:            UniqueVisitors(entries),
		AverageSessionDurationSec: AverageSessionDuration(entries),
		TopPages:                  TopPages(entries),
		HourlyActivity:            HourlyActivity(entries),
		Actions:                   ActionCounts(entries),
	}
}
