package store

import "partnerdash/api/models"

// entryRing is a bounded FIFO of log entries. Pushing onto a full ring
// overwrites the oldest entry in O(1).
type entryRing struct {
	buf  []models.LogEntry
	head int
	size int
}

func newEntryRing(capacity int) *entryRing {
	if capacity < 1 {
		capacity = 1
	}
	return &entryRing{buf: make([]models.LogEntry, capacity)}
}

// push appends e and reports whether an older entry was evicted.
func (r *entryRing) push(e models.LogEntry) bool {
	if r.size < len(r.buf) {
		r.buf[(r.head+r.size)%len(r.buf)] = e
		r.size++
		return false
	}
	r.buf[r.head] = e
	r.head = (r.head + 1) % len(r.buf)
	return true
}

func (r *entryRing) len() int { return r.size }

// slice returns the entries oldest first. The result never aliases the ring.
func (r *entryRing) slice() []models.LogEntry {
	out := make([]models.LogEntry, 0, r.size)
	for i := 0; i < r.size; i++ {
		out = append(out, r.buf[(r.head+i)%len(r.buf)])
	}
	return out
}

func (r *entryRing) reset() {
	clear(r.buf)
	r.head = 0
	r.size = 0
}
