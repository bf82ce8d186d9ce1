// Package tracker captures user interactions into the usage log.
package tracker

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"partnerdash/api/metrics"
	"partnerdash/api/models"
	"partnerdash/api/store"
	"partnerdash/api/utils"
)

const (
	DefaultScrollDebounce = 100 * time.Millisecond
	storeTimeout          = 5 * time.Second
)

// Drop reasons reported to metrics.
const (
	dropDisabled      = "disabled"
	dropToggledOff    = "toggled_off"
	dropSampledOut    = "sampled_out"
	dropExcluded      = "excluded"
	dropMalformed     = "malformed"
	dropNotScrollable = "not_scrollable"
	dropStoreError    = "store_error"
)

// actionCustom gates custom events, which ignore the per-kind toggles.
const actionCustom = "custom"

// Tracker turns interaction events into log entries. It owns the page
// lifecycle (Idle or Active(page, start)) and the live click buckets.
// Every exported method may be called from any goroutine; recording is
// serialized so events are handled one at a time.
type Tracker struct {
	mu sync.Mutex

	logs    *store.LogStore
	config  *Controller
	env     Environment
	logger  *zap.Logger
	metrics *metrics.Metrics

	clock  func() time.Time
	random func() float64
	newID  func() string

	sessionID string
	sampled   bool

	clicks *ClickAggregator
	scroll *debouncer

	attached bool
	recorded atomic.Uint64

	active    bool
	page      string
	pageStart time.Time
}

type Option func(*Tracker)

func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.clock = now }
}

// WithRandom sets the source of uniform draws in [0,1) used for sampling.
func WithRandom(random func() float64) Option {
	return func(t *Tracker) { t.random = random }
}

func WithIDGenerator(newID func() string) Option {
	return func(t *Tracker) { t.newID = newID }
}

func WithSessionID(id string) Option {
	return func(t *Tracker) { t.sessionID = id }
}

func WithLogger(logger *zap.Logger) Option {
	return func(t *Tracker) {
		if logger != nil {
			t.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(t *Tracker) { t.metrics = m }
}

func WithScrollDebounce(wait time.Duration) Option {
	return func(t *Tracker) {
		if wait > 0 {
			t.scroll.wait = wait
		}
	}
}

// New builds a tracker. In session sample mode the sampling decision is
// drawn here, once, and holds for the tracker's lifetime.
func New(logs *store.LogStore, config *Controller, env Environment, opts ...Option) *Tracker {
	t := &Tracker{
		logs:   logs,
		config: config,
		env:    env,
		logger: zap.NewNop(),
		clock:  func() time.Time { return time.Now().UTC() },
		random: rand.Float64,
		newID:  func() string { return uuid.New().String() },
		clicks: NewClickAggregator(),
	}
	t.scroll = newDebouncer(DefaultScrollDebounce, t.RecordScroll)
	for _, opt := range opts {
		opt(t)
	}
	if t.sessionID == "" {
		id, err := utils.GenerateSessionID()
		if err != nil {
			id = fmt.Sprintf("session_%d", t.clock().UnixNano())
			t.logger.Error("failed to generate session id, using clock fallback",
				zap.String("session_id", id), zap.Error(err))
		}
		t.sessionID = id
	}

	rate := config.Snapshot().SampleRate
	t.sampled = rate >= 1 || t.random() < rate
	t.logger = t.logger.With(zap.String("session_id", t.sessionID))
	if !t.sampled {
		t.logger.Debug("tracker sampled out for this session", zap.Float64("sample_rate", rate))
	}
	return t
}

func (t *Tracker) SessionID() string { return t.sessionID }

// Sampled reports the construction-time sampling decision.
func (t *Tracker) Sampled() bool { return t.sampled }

// Attached reports whether listeners are subscribed.
func (t *Tracker) Attached() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.attached
}

// Recorded returns the number of entries this tracker has persisted.
func (t *Tracker) Recorded() uint64 { return t.recorded.Load() }

// Attach subscribes to src and records the initial page view. Nothing is
// attached when tracking is disabled at call time; calling Attach again once
// tracking is enabled attaches then. Attach after a successful attach is a
// no-op that reports true.
func (t *Tracker) Attach(src EventSource) bool {
	t.mu.Lock()
	if t.attached {
		t.mu.Unlock()
		return true
	}
	if !t.config.Snapshot().Enabled {
		t.mu.Unlock()
		t.logger.Debug("tracking disabled, listeners not attached")
		return false
	}
	t.attached = true
	t.mu.Unlock()

	src.OnClick(func(ev PointerEvent) { t.RecordClick(ev.Target, ev.X, ev.Y) })
	src.OnHover(func(ev PointerEvent) { t.RecordHover(ev.Target, ev.X, ev.Y) })
	src.OnScroll(t.scroll.trigger)
	src.OnNavigate(func(string) { t.RecordPageView() })
	src.OnUnload(t.Teardown)
	t.RecordPageView()
	return true
}

// RecordClick logs a click and counts it in the live click buckets.
func (t *Tracker) RecordClick(target models.EventTarget, x, y float64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	el, ok := t.admitTarget(models.ActionClick, target)
	if !ok {
		return
	}
	now := t.clock()
	page := t.env.CurrentPage()
	t.append(models.LogEntry{
		Timestamp:   now,
		Action:      models.ActionClick,
		Page:        page,
		Element:     el,
		Coordinates: &models.Coordinates{X: x, Y: y},
	})
	t.clicks.Add(page, x, y, el, now)
	t.metrics.SetClickBuckets(t.clicks.Len())
}

// RecordHover logs a hover; hovers do not feed the click buckets.
func (t *Tracker) RecordHover(target models.EventTarget, x, y float64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	el, ok := t.admitTarget(models.ActionHover, target)
	if !ok {
		return
	}
	t.append(models.LogEntry{
		Timestamp:   t.clock(),
		Action:      models.ActionHover,
		Page:        t.env.CurrentPage(),
		Element:     el,
		Coordinates: &models.Coordinates{X: x, Y: y},
	})
}

// RecordScroll logs scroll depth as a rounded percentage of the scrollable
// height. Pages that cannot scroll are skipped.
func (t *Tracker) RecordScroll(v Viewport) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.admit(models.ActionScroll) {
		return
	}
	scrollable := v.ScrollHeight - v.ViewportHeight
	if scrollable <= 0 || math.IsNaN(v.ScrollY) {
		t.metrics.Drop(dropNotScrollable)
		return
	}
	depth := int(math.Round(v.ScrollY / scrollable * 100))
	depth = max(0, min(100, depth))
	t.append(models.LogEntry{
		Timestamp: t.clock(),
		Action:    models.ActionScroll,
		Page:      t.env.CurrentPage(),
		Metadata:  map[string]any{models.MetaScrollDepth: depth},
	})
}

// RecordCustomEvent logs a semantic event such as form_submit or search.
// It is subject only to the master switch and sampling.
func (t *Tracker) RecordCustomEvent(action string, metadata map[string]any) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if action == "" {
		t.metrics.Drop(dropMalformed)
		return
	}
	if !t.admit(actionCustom) {
		return
	}
	var meta map[string]any
	if len(metadata) > 0 {
		meta = make(map[string]any, len(metadata))
		for k, v := range metadata {
			meta[k] = v
		}
	}
	t.append(models.LogEntry{
		Timestamp: t.clock(),
		Action:    action,
		Page:      t.env.CurrentPage(),
		Metadata:  meta,
	})
}

// ClickBuckets returns the live click buckets in creation order.
func (t *Tracker) ClickBuckets() []models.ClickBucket {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.clicks.Buckets()
}

// admit applies the master switch, the per-kind toggle and sampling.
func (t *Tracker) admit(kind string) bool {
	cfg := t.config.Snapshot()
	if !cfg.Enabled {
		t.metrics.Drop(dropDisabled)
		return false
	}
	switch kind {
	case models.ActionClick:
		if !cfg.TrackClicks {
			t.metrics.Drop(dropToggledOff)
			return false
		}
	case models.ActionScroll:
		if !cfg.TrackScrolls {
			t.metrics.Drop(dropToggledOff)
			return false
		}
	case models.ActionHover:
		if !cfg.TrackHovers {
			t.metrics.Drop(dropToggledOff)
			return false
		}
	}
	if !t.inSample(cfg, kind) {
		t.metrics.Drop(dropSampledOut)
		return false
	}
	return true
}

// inSample keeps page lifecycle entries out of per-event sampling so dwell
// durations stay consistent.
func (t *Tracker) inSample(cfg models.TrackingConfiguration, kind string) bool {
	if cfg.SampleMode != models.SampleModeEvent {
		return t.sampled
	}
	if kind == models.ActionPageView || cfg.SampleRate >= 1 {
		return true
	}
	return t.random() < cfg.SampleRate
}

func (t *Tracker) admitTarget(kind string, target models.EventTarget) (string, bool) {
	if target.TagName == "" {
		t.metrics.Drop(dropMalformed)
		return "", false
	}
	if !t.admit(kind) {
		return "", false
	}
	if t.config.IsExcluded(target.TagName) {
		t.metrics.Drop(dropExcluded)
		return "", false
	}
	return Describe(target), true
}

// append stamps identity fields onto e and persists it. Failures are logged
// and never reach the caller. t.mu must be held.
func (t *Tracker) append(e models.LogEntry) {
	e.ID = t.newID()
	e.SessionID = t.sessionID
	e.UserID = t.env.CurrentUser()
	if e.UserID == "" {
		e.UserID = models.AnonymousUser
	}
	e.UserAgent = t.env.UserAgent()

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	if err := t.logs.Append(ctx, e); err != nil {
		t.metrics.Drop(dropStoreError)
		t.logger.Warn("failed to record usage entry",
			zap.String("action", e.Action),
			zap.String("page", e.Page),
			zap.Error(err))
		return
	}
	t.recorded.Add(1)
	t.metrics.RecordEntry(e.Action)
}
