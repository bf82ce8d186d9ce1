package tracker

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"

	"partnerdash/api/models"
)

var (
	ErrInvalidSampleRate = errors.New("sample rate must be within [0,1]")
	ErrInvalidSampleMode = errors.New("unknown sample mode")
)

// Controller owns the live TrackingConfiguration. Callers read snapshots and
// mutate through Apply; the internal state is never handed out.
type Controller struct {
	mu       sync.RWMutex
	cfg      models.TrackingConfiguration
	excluded map[string]struct{}
}

func NewController(initial models.TrackingConfiguration) (*Controller, error) {
	if err := validate(initial.SampleRate, initial.SampleMode); err != nil {
		return nil, err
	}
	c := &Controller{}
	c.set(initial)
	return c, nil
}

// Snapshot returns a copy of the current configuration.
func (c *Controller) Snapshot() models.TrackingConfiguration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := c.cfg
	out.ExcludeElements = append([]string(nil), c.cfg.ExcludeElements...)
	return out
}

// Apply validates p as a whole and then applies every non-nil field.
func (c *Controller) Apply(p models.TrackingConfigPatch) (models.TrackingConfiguration, error) {
	c.mu.Lock()
	next := c.cfg
	if p.Enabled != nil {
		next.Enabled = *p.Enabled
	}
	if p.TrackClicks != nil {
		next.TrackClicks = *p.TrackClicks
	}
	if p.TrackScrolls != nil {
		next.TrackScrolls = *p.TrackScrolls
	}
	if p.TrackHovers != nil {
		next.TrackHovers = *p.TrackHovers
	}
	if p.SampleRate != nil {
		next.SampleRate = *p.SampleRate
	}
	if p.SampleMode != nil {
		next.SampleMode = *p.SampleMode
	}
	if p.ExcludeElements != nil {
		next.ExcludeElements = *p.ExcludeElements
	}
	if err := validate(next.SampleRate, next.SampleMode); err != nil {
		c.mu.Unlock()
		return models.TrackingConfiguration{}, err
	}
	c.set(next)
	out := c.cfg
	out.ExcludeElements = append([]string(nil), c.cfg.ExcludeElements...)
	c.mu.Unlock()
	return out, nil
}

func (c *Controller) SetEnabled(enabled bool) {
	_, _ = c.Apply(models.TrackingConfigPatch{Enabled: &enabled})
}

// IsExcluded reports whether events on elements with this tag are dropped.
func (c *Controller) IsExcluded(tag string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.excluded[strings.ToLower(tag)]
	return ok
}

// set must be called with mu held or before c is shared.
func (c *Controller) set(cfg models.TrackingConfiguration) {
	if cfg.SampleMode == "" {
		cfg.SampleMode = models.SampleModeSession
	}
	excluded := make(map[string]struct{}, len(cfg.ExcludeElements))
	tags := make([]string, 0, len(cfg.ExcludeElements))
	for _, tag := range cfg.ExcludeElements {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}
		if _, dup := excluded[tag]; dup {
			continue
		}
		excluded[tag] = struct{}{}
		tags = append(tags, tag)
	}
	cfg.ExcludeElements = tags
	c.cfg = cfg
	c.excluded = excluded
}

func validate(rate float64, mode string) error {
	if math.IsNaN(rate) || rate < 0 || rate > 1 {
		return fmt.Errorf("%w: %v", ErrInvalidSampleRate, rate)
	}
	switch mode {
	case "", models.SampleModeSession, models.SampleModeEvent:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidSampleMode, mode)
	}
}
