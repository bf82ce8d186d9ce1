// models/usage.go
package models

import "time"

// Well-known actions. Action is open-ended; custom values are allowed.
const (
	ActionPageView   = "page_view"
	ActionClick      = "click"
	ActionScroll     = "scroll"
	ActionHover      = "hover"
	ActionFormSubmit = "form_submit"
	ActionSearch     = "search"
	ActionDownload   = "download"
)

// AnonymousUser stamps entries recorded without a known user.
const AnonymousUser = "anonymous"

// MetaType is the metadata key carrying the page_view subtype.
const (
	MetaType        = "type"
	MetaTypeExit    = "exit"
	MetaScrollDepth = "scrollDepth"
)

type Coordinates struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// LogEntry is one recorded user interaction.
type LogEntry struct {
	ID          string         `json:"id"`
	UserID      string         `json:"userId"`
	SessionID   string         `json:"sessionId"`
	Timestamp   time.Time      `json:"timestamp"`
	Action      string         `json:"action"`
	Page        string         `json:"page"`
	Element     string         `json:"element,omitempty"`
	Coordinates *Coordinates   `json:"coordinates,omitempty"`
	Duration    *int64         `json:"duration,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	UserAgent   string         `json:"userAgent"`
}

// IsExit reports whether the entry is a page_view recorded when leaving a page.
func (e LogEntry) IsExit() bool {
	if e.Action != ActionPageView || e.Metadata == nil {
		return false
	}
	t, _ := e.Metadata[MetaType].(string)
	return t == MetaTypeExit
}

// ClickBucket aggregates nearby clicks on one page.
type ClickBucket struct {
	X         float64   `json:"x"`
	Y         float64   `json:"y"`
	Clicks    int       `json:"clicks"`
	Page      string    `json:"page"`
	Element   string    `json:"element,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Sample modes for TrackingConfiguration.SampleMode.
const (
	SampleModeSession = "session"
	SampleModeEvent   = "event"
)

// TrackingConfiguration is the live capture configuration.
type TrackingConfiguration struct {
	Enabled         bool     `json:"enabled"`
	TrackClicks     bool     `json:"trackClicks"`
	TrackScrolls    bool     `json:"trackScrolls"`
	TrackHovers     bool     `json:"trackHovers"`
	ExcludeElements []string `json:"excludeElements"`
	SampleRate      float64  `json:"sampleRate"`
	SampleMode      string   `json:"sampleMode"`
}

// TrackingConfigPatch carries a partial update; nil fields are left untouched.
type TrackingConfigPatch struct {
	Enabled         *bool     `json:"enabled,omitempty"`
	TrackClicks     *bool     `json:"trackClicks,omitempty"`
	TrackScrolls    *bool     `json:"trackScrolls,omitempty"`
	TrackHovers     *bool     `json:"trackHovers,omitempty"`
	ExcludeElements *[]string `json:"excludeElements,omitempty"`
	SampleRate      *float64  `json:"sampleRate,omitempty"`
	SampleMode      *string   `json:"sampleMode,omitempty"`
}

// Interaction event types accepted by POST /api/track.
const (
	InteractionNavigate = "navigate"
	InteractionClick    = "click"
	InteractionHover    = "hover"
	InteractionScroll   = "scroll"
	InteractionUnload   = "unload"
	InteractionCustom   = "custom"
)

// EventTarget describes the DOM element an interaction hit.
type EventTarget struct {
	ID        string `json:"id,omitempty"`
	ClassName string `json:"className,omitempty"`
	TagName   string `json:"tagName"`
}

// InteractionEvent is the wire form of a raw browser event forwarded by the
// dashboard front end.
type InteractionEvent struct {
	Type           string         `json:"type" binding:"required"`
	Page           string         `json:"page,omitempty"`
	Target         *EventTarget   `json:"target,omitempty"`
	X              *float64       `json:"x,omitempty"`
	Y              *float64       `json:"y,omitempty"`
	ScrollY        float64        `json:"scrollY,omitempty"`
	ScrollHeight   float64        `json:"scrollHeight,omitempty"`
	ViewportHeight float64        `json:"viewportHeight,omitempty"`
	Action         string         `json:"action,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	UserAgent      string         `json:"userAgent,omitempty"`
}
