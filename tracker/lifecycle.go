package tracker

import "partnerdash/api/models"

// RecordPageView handles a page-view notification. A change of page closes
// the previous page with an exit entry carrying its dwell time and opens the
// new one; a repeat for the current page does nothing.
func (t *Tracker) RecordPageView() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.admit(models.ActionPageView) {
		return
	}
	page := t.env.CurrentPage()
	if t.active && page == t.page {
		return
	}
	if t.active {
		t.exitLocked()
	}
	now := t.clock()
	t.append(models.LogEntry{
		Timestamp: now,
		Action:    models.ActionPageView,
		Page:      page,
	})
	t.active = true
	t.page = page
	t.pageStart = now
}

// Teardown records the final exit entry and returns to Idle. It is the
// last-chance hook for process shutdown; delivery is best effort.
func (t *Tracker) Teardown() {
	t.scroll.stop()

	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.active {
		return
	}
	if t.admit(models.ActionPageView) {
		t.exitLocked()
	}
	t.active = false
	t.page = ""
}

// CurrentPage returns the tracked page and whether the tracker is Active.
func (t *Tracker) CurrentPage() (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.page, t.active
}

func (t *Tracker) exitLocked() {
	now := t.clock()
	d := now.Sub(t.pageStart).Milliseconds()
	t.append(models.LogEntry{
		Timestamp: now,
		Action:    models.ActionPageView,
		Page:      t.page,
		Duration:  &d,
		Metadata:  map[string]any{models.MetaType: models.MetaTypeExit},
	})
}
