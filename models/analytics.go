// models/analytics.go
package models

import "time"

type PageStats struct {
	Page           string `json:"page"`
	Views          int    `json:"views"`
	UniqueUsers    int    `json:"uniqueUsers"`
	AvgTimeSeconds int64  `json:"avgTimeSeconds"`
}

type PageHeatmapData struct {
	Page           string        `json:"page"`
	TotalClicks    int           `json:"totalClicks"`
	UniqueUsers    int           `json:"uniqueUsers"`
	AvgTimeSeconds int64         `json:"avgTimeSeconds"`
	Buckets        []ClickBucket `json:"buckets"`
}

type SessionSummary struct {
	SessionID       string    `json:"sessionId"`
	UserID          string    `json:"userId"`
	Start           time.Time `json:"start"`
	End             time.Time `json:"end"`
	Entries         int       `json:"entries"`
	DurationSeconds int64     `json:"durationSeconds"`
}

type ActionCount struct {
	Action string `json:"action"`
	Count  int    `json:"count"`
}

// UsageSummary bundles every derived statistic for one filtered slice.
type UsageSummary struct {
	TotalEntries              int           `json:"totalEntries"`
	UniqueVisitors            int           `json:"uniqueVisitors"`
	AverageSessionDurationSec int64         `json:"averageSessionDurationSec"`
	TopPages                  []PageStats   `json:"topPages"`
	HourlyActivity            [24]int       `json:"hourlyActivity"`
	Actions                   []ActionCount `json:"actions"`
}

type TopPathResult struct {
	PagePath string `json:"pagePath"`
	Count    uint64 `json:"count"`
}
