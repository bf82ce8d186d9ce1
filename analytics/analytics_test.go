package analytics

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"partnerdash/api/models"
)

var base = time.Date(2026, 4, 2, 0, 0, 0, 0, time.UTC)

func view(page, user, session string, at time.Duration) models.LogEntry {
	return models.LogEntry{
		ID:        fmt.Sprintf("%s-%s-%d", page, user, at),
		UserID:    user,
		SessionID: session,
		Timestamp: base.Add(at),
		Action:    models.ActionPageView,
		Page:      page,
	}
}

func exit(page, user, session string, at time.Duration, ms int64) models.LogEntry {
	e := view(page, user, session, at)
	e.ID += "-exit"
	e.Duration = &ms
	e.Metadata = map[string]any{models.MetaType: models.MetaTypeExit}
	return e
}

func click(page, user string, x, y float64, at time.Duration) models.LogEntry {
	return models.LogEntry{
		ID:          fmt.Sprintf("c-%v-%v-%d", x, y, at),
		UserID:      user,
		SessionID:   "s-" + user,
		Timestamp:   base.Add(at),
		Action:      models.ActionClick,
		Page:        page,
		Element:     "button",
		Coordinates: &models.Coordinates{X: x, Y: y},
	}
}

func TestTopPagesOrdering(t *testing.T) {
	var entries []models.LogEntry
	for i := 0; i < 3; i++ {
		entries = append(entries, view("/b", "u1", "s1", time.Duration(i)*time.Minute))
	}
	for i := 0; i < 10; i++ {
		entries = append(entries, view("/a", fmt.Sprintf("u%d", i%4), "s1", time.Hour+time.Duration(i)*time.Minute))
	}
	entries = append(entries, view("/c", "u1", "s1", 2*time.Hour))
	entries = append(entries, view("/d", "u1", "s1", 2*time.Hour))
	entries = append(entries, exit("/a", "u1", "s1", 3*time.Hour, 25000))

	top := TopPages(entries)
	require.Len(t, top, 4)
	assert.Equal(t, "/a", top[0].Page)
	assert.Equal(t, 10, top[0].Views)
	assert.Equal(t, 4, top[0].UniqueUsers)
	assert.Equal(t, int64(3), top[0].AvgTimeSeconds) // 25000ms / 10 views = 2.5s
	assert.Equal(t, "/b", top[1].Page)
	// Ties keep first-appearance order.
	assert.Equal(t, "/c", top[2].Page)
	assert.Equal(t, "/d", top[3].Page)
}

func TestTopPagesTruncates(t *testing.T) {
	var entries []models.LogEntry
	for i := 0; i < 15; i++ {
		entries = append(entries, view(fmt.Sprintf("/p%d", i), "u", "s", time.Duration(i)))
	}
	assert.Len(t, TopPages(entries), TopPagesLimit)
}

func TestClickHeatmapSnapsToGrid(t *testing.T) {
	entries := []models.LogEntry{
		view("/home", "u1", "s1", 0),
		view("/home", "u2", "s2", 0),
		exit("/home", "u1", "s1", time.Minute, 8000),
		click("/home", "u1", 101, 99, time.Second),
		click("/home", "u1", 109, 91, 2*time.Second),
		click("/home", "u2", 111, 100, 3*time.Second),
		click("/pricing", "u2", 0, 0, 4*time.Second),
		{Action: models.ActionClick, Page: "/home"}, // no coordinates
	}

	maps := ClickHeatmap(entries)
	require.Len(t, maps, 2)

	home := maps[0]
	assert.Equal(t, "/home", home.Page)
	assert.Equal(t, 3, home.TotalClicks)
	assert.Equal(t, 2, home.UniqueUsers)
	assert.Equal(t, int64(4), home.AvgTimeSeconds)
	require.Len(t, home.Buckets, 2)
	assert.Equal(t, models.ClickBucket{X: 100, Y: 100, Clicks: 2, Page: "/home", Element: "button", Timestamp: base.Add(time.Second)}, home.Buckets[0])
	assert.Equal(t, 120.0, home.Buckets[1].X)
	assert.Equal(t, 100.0, home.Buckets[1].Y)

	pricing := maps[1]
	assert.Equal(t, 0, pricing.UniqueUsers)
	assert.Equal(t, int64(0), pricing.AvgTimeSeconds)
	assert.Equal(t, 1, pricing.TotalClicks)
}

func TestAverageSessionDuration(t *testing.T) {
	entries := []models.LogEntry{
		exit("/a", "u1", "s1", 0, 4000),
		exit("/b", "u1", "s1", time.Minute, 6000),
		exit("/a", "u2", "s2", 0, 2000),
		view("/a", "u3", "s3", 0),
	}
	// s1 = 10s, s2 = 2s, s3 has no durations.
	assert.Equal(t, int64(6), AverageSessionDuration(entries))
	assert.Equal(t, int64(0), AverageSessionDuration(nil))
}

func TestHourlyActivity(t *testing.T) {
	var entries []models.LogEntry
	for h := 0; h < 30; h++ {
		entries = append(entries, view("/a", "u", "s", time.Duration(h)*time.Hour))
	}
	hours := HourlyActivity(entries)
	assert.Len(t, hours, 24)
	sum := 0
	for _, n := range hours {
		sum += n
	}
	assert.Equal(t, len(entries), sum)
	assert.Equal(t, 2, hours[0])
	assert.Equal(t, 1, hours[23])

	assert.Equal(t, [24]int{}, HourlyActivity(nil))
}

func TestActionDistributionAndVisitors(t *testing.T) {
	entries := []models.LogEntry{
		view("/a", "u1", "s1", 0),
		click("/a", "u1", 1, 1, 0),
		click("/a", "u2", 1, 1, 0),
		{UserID: models.AnonymousUser, Action: models.ActionSearch},
	}
	assert.Equal(t, map[string]int{"page_view": 1, "click": 2, "search": 1}, ActionDistribution(entries))
	assert.Equal(t, []models.ActionCount{{Action: "click", Count: 2}, {Action: "page_view", Count: 1}, {Action: "search", Count: 1}}, ActionCounts(entries))
	assert.Equal(t, 3, UniqueVisitors(entries))
	assert.Equal(t, 0, UniqueVisitors(nil))
}

func TestSessionsIgnoreInputOrder(t *testing.T) {
	entries := []models.LogEntry{
		exit("/a", "u1", "s1", 10*time.Minute, 3000),
		view("/a", "u1", "s1", 0),
		view("/x", "u2", "s0", -time.Hour),
		exit("/b", "u1", "s1", 20*time.Minute, 1600),
	}
	sessions := Sessions(entries)
	require.Len(t, sessions, 2)
	assert.Equal(t, "s0", sessions[0].SessionID)

	s1 := sessions[1]
	assert.Equal(t, base, s1.Start)
	assert.Equal(t, base.Add(20*time.Minute), s1.End)
	assert.Equal(t, 3, s1.Entries)
	assert.Equal(t, int64(5), s1.DurationSeconds)
}

func TestSummarizeIsDeterministic(t *testing.T) {
	entries := []models.LogEntry{
		view("/a", "u1", "s1", 0),
		click("/a", "u1", 5, 5, time.Second),
		exit("/a", "u1", "s1", time.Minute, 60000),
	}
	first := Summarize(entries)
	second := Summarize(entries)
	assert.Equal(t, first, second)
	assert.Equal(t, 3, first.TotalEntries)
	assert.Equal(t, int64(60), first.AverageSessionDurationSec)

	empty := Summarize(nil)
	assert.Equal(t, 0, empty.TotalEntries)
	assert.Empty(t, empty.TopPages)
}

func TestFilterApplySortsAndMatches(t *testing.T) {
	entries := []models.LogEntry{
		click("/a", "u1", 0, 0, 3*time.Hour),
		view("/a", "u1", "s1", time.Hour),
		view("/b", "u1", "s1", 2*time.Hour),
		view("/a", "u1", "s1", 5*time.Hour),
	}
	got := Filter{Start: base.Add(30 * time.Minute), End: base.Add(4 * time.Hour), Page: "/a"}.Apply(entries)
	require.Len(t, got, 2)
	assert.Equal(t, models.ActionPageView, got[0].Action)
	assert.Equal(t, models.ActionClick, got[1].Action)

	got = Filter{Action: models.ActionPageView}.Apply(entries)
	assert.Len(t, got, 3)
	assert.True(t, got[0].Timestamp.Before(got[1].Timestamp))
}
