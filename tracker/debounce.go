package tracker

import (
	"sync"
	"time"
)

// debouncer runs fn with the latest value once no trigger has arrived for
// wait. Every trigger cancels and restarts the timer.
type debouncer struct {
	mu      sync.Mutex
	wait    time.Duration
	fn      func(Viewport)
	timer   *time.Timer
	pending Viewport
	gen     uint64
}

func newDebouncer(wait time.Duration, fn func(Viewport)) *debouncer {
	return &debouncer{wait: wait, fn: fn}
}

func (d *debouncer) trigger(v Viewport) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pending = v
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
	}
	gen := d.gen
	d.timer = time.AfterFunc(d.wait, func() { d.fire(gen) })
}

func (d *debouncer) fire(gen uint64) {
	d.mu.Lock()
	if gen != d.gen {
		// Superseded by a later trigger or stop.
		d.mu.Unlock()
		return
	}
	v := d.pending
	d.timer = nil
	d.mu.Unlock()
	d.fn(v)
}

func (d *debouncer) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
