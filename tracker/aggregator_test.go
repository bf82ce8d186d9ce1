package tracker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"partnerdash/api/models"
)

func TestClickAggregatorProximity(t *testing.T) {
	a := NewClickAggregator()
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	a.Add("/home", 100, 100, "div", t0)
	b := a.Add("/home", 110, 115, "span", t0.Add(time.Second))
	assert.Equal(t, 2, b.Clicks)
	assert.Equal(t, "div", b.Element, "element is fixed at creation")
	assert.Equal(t, t0, b.Timestamp, "timestamp is fixed at creation")

	a.Add("/home", 200, 200, "div", t0)
	// Exactly 20px away is outside the threshold.
	a.Add("/home", 120, 100, "div", t0)
	// Same coordinates on another page never merge.
	a.Add("/reports", 100, 100, "div", t0)

	buckets := a.Buckets()
	require.Len(t, buckets, 4)
	assert.Equal(t, []int{2, 1, 1, 1}, []int{buckets[0].Clicks, buckets[1].Clicks, buckets[2].Clicks, buckets[3].Clicks})
	assert.Equal(t, "/reports", buckets[3].Page)
}

func TestClickAggregatorFirstMatchWins(t *testing.T) {
	a := NewClickAggregator()
	now := time.Now()
	a.Add("/p", 0, 0, "", now)
	a.Add("/p", 30, 0, "", now)
	// Within range of both buckets; the earlier one takes it.
	a.Add("/p", 15, 0, "", now)

	buckets := a.Buckets()
	require.Len(t, buckets, 2)
	assert.Equal(t, 2, buckets[0].Clicks)
	assert.Equal(t, 1, buckets[1].Clicks)
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		target models.EventTarget
		want   string
	}{
		{models.EventTarget{ID: "buy", ClassName: "btn  primary", TagName: "BUTTON"}, "#buy.btn.primarybutton"},
		{models.EventTarget{ClassName: "card", TagName: "DIV"}, ".carddiv"},
		{models.EventTarget{ID: "logo", TagName: "img"}, "#logoimg"},
		{models.EventTarget{TagName: "A"}, "a"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Describe(tt.target))
	}
}
