package store

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"partnerdash/api/models"
)

func TestEntryRingEvictsOldest(t *testing.T) {
	r := newEntryRing(3)
	for i := 0; i < 5; i++ {
		evicted := r.push(models.LogEntry{ID: fmt.Sprint(i)})
		assert.Equal(t, i >= 3, evicted, "push %d", i)
	}
	assert.Equal(t, 3, r.len())

	var ids []string
	for _, e := range r.slice() {
		ids = append(ids, e.ID)
	}
	assert.Equal(t, []string{"2", "3", "4"}, ids)

	r.reset()
	assert.Equal(t, 0, r.len())
	assert.Empty(t, r.slice())
}
