// handlers/track_handlers.go
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"partnerdash/api/metrics"
	"partnerdash/api/models"
	"partnerdash/api/tracker"
	"partnerdash/api/utils"
)

// A client names its browsing session with the X-Session-ID header or the
// usage_session cookie. Requests without one get a fresh id in the cookie.
const (
	SessionHeader             = "X-Session-ID"
	SessionCookie             = "usage_session"
	DefaultSessionIdleTimeout = 30 * time.Minute
	maxSessionIDLen           = 128
)

// TrackerFactory builds the tracker for a new client session. env is the
// session's own bus.
type TrackerFactory func(sessionID string, env tracker.Environment) *tracker.Tracker

// clientSession is one browsing instance: its own bus, tracker and page
// lifecycle. mu serializes batches so user, page and user agent on the bus
// stay consistent for one batch.
type clientSession struct {
	mu      sync.Mutex
	id      string
	bus     *tracker.Bus
	tracker *tracker.Tracker
	ended   bool
}

// end tears the session down once. mu must be held.
func (s *clientSession) end() {
	if s.ended {
		return
	}
	s.ended = true
	s.tracker.Teardown()
}

// TrackingHandlers is the platform shell for the tracker: it replays browser
// interaction events onto the bus of the client's session.
type TrackingHandlers struct {
	Config  *tracker.Controller
	Metrics *metrics.Metrics

	newTracker TrackerFactory
	sessions   *utils.SessionStore[*clientSession]
	logger     *zap.Logger
}

// NewTrackingHandlers builds the tracking endpoints. Sessions idle for
// longer than idle are torn down by ExpireIdle.
func NewTrackingHandlers(newTracker TrackerFactory, cfg *tracker.Controller, idle time.Duration, logger *zap.Logger) *TrackingHandlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TrackingHandlers{
		Config:     cfg,
		newTracker: newTracker,
		sessions:   utils.NewSessionStore[*clientSession](idle),
		logger:     logger,
	}
}

var (
	errMalformedEvent = errors.New("malformed interaction event")
	errSessionEnded   = errors.New("session ended earlier in the batch")
)

// outcome of one dispatched event that wrote nothing synchronously.
type outcome int

const (
	outcomeIgnored outcome = iota
	outcomeQueued
)

type batchResult struct {
	SessionID string `json:"sessionId"`
	Accepted  int    `json:"accepted"`
	Queued    int    `json:"queued"`
	Ignored   int    `json:"ignored"`
	Rejected  int    `json:"rejected"`
}

// TrackEvents replays a batch of events for the caller's session. An event
// is accepted when handling it wrote at least one entry, queued when it is a
// scroll waiting on the debouncer, ignored when tracking filtered it out and
// rejected when it is malformed.
func (h *TrackingHandlers) TrackEvents(c *gin.Context) {
	var events []models.InteractionEvent
	if err := c.ShouldBindJSON(&events); err != nil {
		h.logger.Info("error binding interaction events", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if len(events) == 0 {
		c.Status(http.StatusOK)
		return
	}

	id, ok := sessionIDFromRequest(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid session id"})
		return
	}
	if id == "" {
		var err error
		if id, err = utils.GenerateSessionID(); err != nil {
			h.logger.Error("failed to generate session id", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start session"})
			return
		}
		c.SetCookie(SessionCookie, id, 0, "/", "", false, true)
	}

	sess := h.lockSession(id, initialPage(events))
	defer sess.mu.Unlock()

	sess.bus.SetUser(userIDFromContext(c))
	requestUA := c.Request.UserAgent()
	res := batchResult{SessionID: id}
	for i, ev := range events {
		ua := ev.UserAgent
		if ua == "" {
			ua = requestUA
		}
		sess.bus.SetUserAgent(ua)

		before := sess.tracker.Recorded()
		out, err := h.dispatch(sess, ev)
		switch {
		case err != nil:
			h.logger.Debug("skipping interaction event",
				zap.String("session_id", id), zap.Int("index", i), zap.String("type", ev.Type), zap.Error(err))
			res.Rejected++
		case sess.tracker.Recorded() > before:
			res.Accepted++
		case out == outcomeQueued:
			res.Queued++
		default:
			res.Ignored++
		}
	}

	c.JSON(http.StatusAccepted, res)
}

// lockSession returns the live session for id with its lock held, creating
// it when absent or when the one found ended while we waited.
func (h *TrackingHandlers) lockSession(id, page string) *clientSession {
	for {
		sess, created := h.sessions.GetOrCreate(id, func() *clientSession {
			bus := tracker.NewBus(page)
			return &clientSession{id: id, bus: bus, tracker: h.newTracker(id, bus)}
		})
		if created {
			h.logger.Info("tracking session started", zap.String("session_id", id), zap.String("page", page))
			h.Metrics.SetActiveSessions(h.sessions.Len())
		}
		sess.mu.Lock()
		if !sess.ended {
			return sess
		}
		sess.mu.Unlock()
	}
}

// dispatch validates ev, attaches the tracker if tracking has become enabled
// and emits ev on the session bus. sess.mu must be held.
func (h *TrackingHandlers) dispatch(sess *clientSession, ev models.InteractionEvent) (outcome, error) {
	if sess.ended {
		return outcomeIgnored, errSessionEnded
	}
	switch ev.Type {
	case models.InteractionNavigate:
		if ev.Page == "" {
			return outcomeIgnored, errMalformedEvent
		}
		sess.tracker.Attach(sess.bus)
		sess.bus.Navigate(ev.Page)
	case models.InteractionClick, models.InteractionHover:
		if ev.Target == nil || ev.X == nil || ev.Y == nil {
			return outcomeIgnored, errMalformedEvent
		}
		sess.tracker.Attach(sess.bus)
		syncPage(sess.bus, ev.Page)
		pe := tracker.PointerEvent{Target: *ev.Target, X: *ev.X, Y: *ev.Y}
		if ev.Type == models.InteractionClick {
			sess.bus.Click(pe)
		} else {
			sess.bus.Hover(pe)
		}
	case models.InteractionScroll:
		attached := sess.tracker.Attach(sess.bus)
		syncPage(sess.bus, ev.Page)
		sess.bus.Scroll(tracker.Viewport{
			ScrollY:        ev.ScrollY,
			ScrollHeight:   ev.ScrollHeight,
			ViewportHeight: ev.ViewportHeight,
		})
		if attached {
			return outcomeQueued, nil
		}
	case models.InteractionUnload:
		sess.bus.Unload()
		h.endSession(sess, "unload")
	case models.InteractionCustom:
		if ev.Action == "" {
			return outcomeIgnored, errMalformedEvent
		}
		sess.tracker.Attach(sess.bus)
		syncPage(sess.bus, ev.Page)
		sess.tracker.RecordCustomEvent(ev.Action, ev.Metadata)
	default:
		return outcomeIgnored, errMalformedEvent
	}
	return outcomeIgnored, nil
}

// endSession tears sess down and drops it from the registry. sess.mu must
// be held.
func (h *TrackingHandlers) endSession(sess *clientSession, reason string) {
	sess.end()
	if cur, ok := h.sessions.GetSession(sess.id); ok && cur == sess {
		h.sessions.DeleteSession(sess.id)
	}
	h.Metrics.SetActiveSessions(h.sessions.Len())
	h.logger.Info("tracking session ended", zap.String("session_id", sess.id), zap.String("reason", reason))
}

// ExpireIdle tears down sessions idle past the timeout and returns how many
// ended.
func (h *TrackingHandlers) ExpireIdle() int {
	expired := h.sessions.Expire()
	for _, sess := range expired {
		sess.mu.Lock()
		sess.end()
		sess.mu.Unlock()
		h.logger.Info("tracking session ended", zap.String("session_id", sess.id), zap.String("reason", "idle"))
	}
	if len(expired) > 0 {
		h.Metrics.SetActiveSessions(h.sessions.Len())
	}
	return len(expired)
}

// RunExpiry calls ExpireIdle every interval until ctx is done.
func (h *TrackingHandlers) RunExpiry(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.ExpireIdle()
		}
	}
}

// Shutdown records the final exit entry of every live session.
func (h *TrackingHandlers) Shutdown() {
	sessions := h.sessions.Drain()
	for _, sess := range sessions {
		sess.mu.Lock()
		sess.end()
		sess.mu.Unlock()
	}
	h.Metrics.SetActiveSessions(0)
	h.logger.Info("tracking sessions closed", zap.Int("count", len(sessions)))
}

// syncPage navigates first when an event reports a page the bus is not on.
func syncPage(bus *tracker.Bus, page string) {
	if page != "" && page != bus.CurrentPage() {
		bus.Navigate(page)
	}
}

// initialPage is where a new session starts: the first page the batch names.
func initialPage(events []models.InteractionEvent) string {
	for _, ev := range events {
		if ev.Page != "" {
			return ev.Page
		}
	}
	return "/"
}

// sessionIDFromRequest returns the client session id, "" when none is sent,
// and false when the one sent is unusable.
func sessionIDFromRequest(c *gin.Context) (string, bool) {
	id := strings.TrimSpace(c.GetHeader(SessionHeader))
	if id == "" {
		if v, err := c.Cookie(SessionCookie); err == nil {
			id = strings.TrimSpace(v)
		}
	}
	if len(id) > maxSessionIDLen {
		return "", false
	}
	return id, true
}

// session looks up the caller's live session without creating one.
func (h *TrackingHandlers) session(c *gin.Context) (*clientSession, bool) {
	id, ok := sessionIDFromRequest(c)
	if !ok || id == "" {
		return nil, false
	}
	return h.sessions.GetSession(id)
}

// GetConfig returns the live configuration, plus the caller's session id
// and sampling decision when the caller has a live session.
func (h *TrackingHandlers) GetConfig(c *gin.Context) {
	body := gin.H{"config": h.Config.Snapshot()}
	if sess, ok := h.session(c); ok {
		body["sessionId"] = sess.id
		body["sampled"] = sess.tracker.Sampled()
	}
	c.JSON(http.StatusOK, body)
}

func (h *TrackingHandlers) PatchConfig(c *gin.Context) {
	var patch models.TrackingConfigPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	cfg, err := h.Config.Apply(patch)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.logger.Info("tracking configuration updated",
		zap.String("by", userIDFromContext(c)),
		zap.Bool("enabled", cfg.Enabled),
		zap.Float64("sample_rate", cfg.SampleRate))
	c.JSON(http.StatusOK, cfg)
}

// LiveHeatmap returns the in-memory click buckets of the caller's session,
// or of every live session when the caller has none. ?page narrows it.
func (h *TrackingHandlers) LiveHeatmap(c *gin.Context) {
	var buckets []models.ClickBucket
	if sess, ok := h.session(c); ok {
		buckets = sess.tracker.ClickBuckets()
	} else {
		h.sessions.Each(func(_ string, sess *clientSession) {
			buckets = append(buckets, sess.tracker.ClickBuckets()...)
		})
	}

	page := c.Query("page")
	out := make([]models.ClickBucket, 0, len(buckets))
	for _, b := range buckets {
		if page == "" || b.Page == page {
			out = append(out, b)
		}
	}
	c.JSON(http.StatusOK, out)
}
