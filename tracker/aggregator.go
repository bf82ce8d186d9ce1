package tracker

import (
	"math"
	"time"

	"partnerdash/api/models"
)

// ClickProximity is the per-axis distance, in pixels, under which a click
// joins an existing bucket.
const ClickProximity = 20.0

// ClickAggregator accumulates live click buckets for the current process.
// It is not persisted and not safe for concurrent use.
type ClickAggregator struct {
	buckets []models.ClickBucket
	byPage  map[string][]int
}

func NewClickAggregator() *ClickAggregator {
	return &ClickAggregator{byPage: make(map[string][]int)}
}

// Add counts a click at (x, y) on page. The first bucket of that page within
// ClickProximity on both axes wins; otherwise a new bucket is created.
func (a *ClickAggregator) Add(page string, x, y float64, element string, ts time.Time) models.ClickBucket {
	for _, i := range a.byPage[page] {
		b := &a.buckets[i]
		if math.Abs(b.X-x) < ClickProximity && math.Abs(b.Y-y) < ClickProximity {
			b.Clicks++
			return *b
		}
	}
	a.buckets = append(a.buckets, models.ClickBucket{
		X:         x,
		Y:         y,
		Clicks:    1,
		Page:      page,
		Element:   element,
		Timestamp: ts,
	})
	idx := len(a.buckets) - 1
	a.byPage[page] = append(a.byPage[page], idx)
	return a.buckets[idx]
}

// Buckets returns a copy of all buckets in creation order.
func (a *ClickAggregator) Buckets() []models.ClickBucket {
	return append([]models.ClickBucket(nil), a.buckets...)
}

func (a *ClickAggregator) Len() int { return len(a.buckets) }
