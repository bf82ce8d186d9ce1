package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"partnerdash/api/database"
	"partnerdash/api/metrics"
	"partnerdash/api/models"
)

func entry(i int, ts time.Time) models.LogEntry {
	return models.LogEntry{
		ID:        fmt.Sprintf("e-%04d", i),
		UserID:    "u1",
		SessionID: "s1",
		Timestamp: ts.Add(time.Duration(i) * time.Second),
		Action:    models.ActionClick,
		Page:      "/dashboard",
		UserAgent: "test-agent",
	}
}

func TestLogStoreEmptyWhenAbsent(t *testing.T) {
	s := NewLogStore(NewMemoryBlobStore())
	entries, err := s.ReadAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries)

	data, err := s.Export(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

func TestLogStoreCapKeepsMostRecent(t *testing.T) {
	ctx := context.Background()
	m := metrics.New(prometheus.NewRegistry())
	s := NewLogStore(NewMemoryBlobStore(), WithLogStoreMetrics(m))
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	const total = DefaultLogLimit + 25
	for i := 0; i < total; i++ {
		require.NoError(t, s.Append(ctx, entry(i, base)))
	}

	entries, err := s.ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, entries, DefaultLogLimit)
	assert.Equal(t, "e-0025", entries[0].ID)
	assert.Equal(t, fmt.Sprintf("e-%04d", total-1), entries[len(entries)-1].ID)
	for i := 1; i < len(entries); i++ {
		assert.True(t, entries[i-1].Timestamp.Before(entries[i].Timestamp))
	}
	assert.Equal(t, 25.0, testutil.ToFloat64(m.LogEvictions))
	assert.Len(t, s.Recent(), DefaultLogLimit)
}

func TestLogStoreCustomLimit(t *testing.T) {
	ctx := context.Background()
	s := NewLogStore(NewMemoryBlobStore(), WithLogLimit(3), WithLogKey("k"))
	base := time.Now().UTC()
	for i := 0; i < 5; i++ {
		require.NoError(t, s.Append(ctx, entry(i, base)))
	}
	n, err := s.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestLogStoreCorruptContent(t *testing.T) {
	ctx := context.Background()
	blobs := NewMemoryBlobStore()
	require.NoError(t, blobs.Put(ctx, DefaultLogKey, []byte(`{"not":"a list"`)))
	s := NewLogStore(blobs)

	_, err := s.ReadAll(ctx)
	assert.ErrorIs(t, err, ErrCorruptLog)

	_, err = s.Export(ctx)
	assert.ErrorIs(t, err, ErrCorruptLog)

	err = s.Append(ctx, entry(0, time.Now()))
	assert.ErrorIs(t, err, ErrCorruptLog)

	raw, ok, err := blobs.Get(ctx, DefaultLogKey)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `{"not":"a list"`, string(raw), "corrupt content must not be overwritten")
}

func TestLogStoreClear(t *testing.T) {
	ctx := context.Background()
	s := NewLogStore(NewMemoryBlobStore())
	require.NoError(t, s.Append(ctx, entry(1, time.Now())))

	require.NoError(t, s.Clear(ctx))
	entries, err := s.ReadAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Empty(t, s.Recent())

	require.NoError(t, s.Clear(ctx))
}

func TestLogStoreExportRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewLogStore(NewMemoryBlobStore())
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	click := entry(1, base)
	click.Element = "#buy.btn.primarybutton"
	click.Coordinates = &models.Coordinates{X: 120, Y: 48}
	exit := entry(2, base)
	exit.Action = models.ActionPageView
	d := int64(5000)
	exit.Duration = &d
	exit.Metadata = map[string]any{models.MetaType: models.MetaTypeExit}
	scroll := entry(3, base)
	scroll.Action = models.ActionScroll
	scroll.Metadata = map[string]any{models.MetaScrollDepth: 40}

	for _, e := range []models.LogEntry{click, exit, scroll} {
		require.NoError(t, s.Append(ctx, e))
	}

	all, err := s.ReadAll(ctx)
	require.NoError(t, err)
	data, err := s.Export(ctx)
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n  {")

	parsed, err := DecodeEntries(data)
	require.NoError(t, err)
	assert.Equal(t, all, parsed)
	assert.True(t, parsed[1].IsExit())
	assert.Equal(t, int64(5000), *parsed[1].Duration)
}

func TestExportFilename(t *testing.T) {
	ts := time.Date(2026, 10, 14, 23, 30, 0, 0, time.UTC)
	assert.Equal(t, "usage-logs-2026-10-14.json", ExportFilename(ts))
}

func TestSQLiteBlobStore(t *testing.T) {
	ctx := context.Background()
	client, err := database.NewSQLiteDB(filepath.Join(t.TempDir(), "usage.db"))
	require.NoError(t, err)
	t.Cleanup(client.Close)

	blobs, err := NewSQLBlobStore(ctx, client.DB, DialectSQLite)
	require.NoError(t, err)

	_, ok, err := blobs.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, blobs.Put(ctx, "k", []byte("one")))
	require.NoError(t, blobs.Put(ctx, "k", []byte("two")))
	v, ok, err := blobs.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "two", string(v))

	s := NewLogStore(blobs)
	require.NoError(t, s.Append(ctx, entry(7, time.Now().UTC())))
	entries, err := s.ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "e-0007", entries[0].ID)

	require.NoError(t, blobs.Delete(ctx, "k"))
	_, ok, err = blobs.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRebindPostgres(t *testing.T) {
	s := &SQLBlobStore{dialect: DialectPostgres}
	assert.Equal(t, "SELECT a FROM t WHERE k = $1 AND v = $2", s.rebind("SELECT a FROM t WHERE k = ? AND v = ?"))
	s.dialect = DialectSQLite
	assert.Equal(t, "k = ?", s.rebind("k = ?"))
}
