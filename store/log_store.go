// store/log_store.go
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"partnerdash/api/metrics"
	"partnerdash/api/models"
)

const (
	DefaultLogKey   = "usageLogs"
	DefaultLogLimit = 1000
)

// ErrCorruptLog is wrapped by every error caused by persisted content that
// does not decode as a list of log entries.
var ErrCorruptLog = errors.New("usage log is corrupt")

// LogStore is the capped, append-only usage log. The persisted list lives in
// one blob; entries beyond the limit are discarded oldest first.
type LogStore struct {
	mu      sync.Mutex
	blobs   BlobStore
	key     string
	limit   int
	recent  *entryRing
	logger  *zap.Logger
	metrics *metrics.Metrics
}

type LogStoreOption func(*LogStore)

func WithLogKey(key string) LogStoreOption {
	return func(s *LogStore) { s.key = key }
}

func WithLogLimit(limit int) LogStoreOption {
	return func(s *LogStore) {
		if limit > 0 {
			s.limit = limit
		}
	}
}

func WithLogStoreLogger(logger *zap.Logger) LogStoreOption {
	return func(s *LogStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithLogStoreMetrics(m *metrics.Metrics) LogStoreOption {
	return func(s *LogStore) { s.metrics = m }
}

func NewLogStore(blobs BlobStore, opts ...LogStoreOption) *LogStore {
	s := &LogStore{
		blobs:  blobs,
		key:    DefaultLogKey,
		limit:  DefaultLogLimit,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.recent = newEntryRing(s.limit)
	return s
}

// Limit returns the retention cap.
func (s *LogStore) Limit() int { return s.limit }

// Append adds entry to the in-memory and persisted lists. The persisted
// read-modify-write is not atomic across processes sharing the backend.
func (s *LogStore) Append(ctx context.Context, entry models.LogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	persisted, err := s.load(ctx)
	if err != nil {
		s.metrics.StoreError("append")
		return err
	}

	r := newEntryRing(s.limit)
	evicted := 0
	for _, e := range persisted {
		if r.push(e) {
			evicted++
		}
	}
	if r.push(entry) {
		evicted++
	}

	data, err := json.Marshal(r.slice())
	if err != nil {
		s.metrics.StoreError("append")
		return fmt.Errorf("failed to encode usage log: %w", err)
	}
	if err := s.blobs.Put(ctx, s.key, data); err != nil {
		s.metrics.StoreError("append")
		return fmt.Errorf("failed to persist usage log: %w", err)
	}
	s.recent.push(entry)

	if evicted > 0 {
		s.logger.Debug("usage log trimmed", zap.Int("evicted", evicted), zap.Int("limit", s.limit))
	}
	s.metrics.Evicted(evicted)
	s.metrics.SetLogEntries(r.len())
	return nil
}

// ReadAll returns the persisted list. A missing blob yields an empty list.
func (s *LogStore) ReadAll(ctx context.Context) ([]models.LogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries, err := s.load(ctx)
	if err != nil {
		s.metrics.StoreError("read")
		return nil, err
	}
	return entries, nil
}

// Len returns the number of persisted entries.
func (s *LogStore) Len(ctx context.Context) (int, error) {
	entries, err := s.ReadAll(ctx)
	if err != nil {
		return 0, err
	}
	return len(entries), nil
}

// Recent returns the entries appended by this process, oldest first.
func (s *LogStore) Recent() []models.LogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recent.slice()
}

// Clear irreversibly empties both the in-memory and the persisted log.
func (s *LogStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.blobs.Delete(ctx, s.key); err != nil {
		s.metrics.StoreError("clear")
		return fmt.Errorf("failed to clear usage log: %w", err)
	}
	s.recent.reset()
	s.metrics.SetLogEntries(0)
	s.logger.Info("usage log cleared", zap.String("key", s.key))
	return nil
}

// Export renders the persisted list as indented JSON.
func (s *LogStore) Export(ctx context.Context) ([]byte, error) {
	entries, err := s.ReadAll(ctx)
	if err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode usage log export: %w", err)
	}
	return data, nil
}

// ExportFilename names the download for an export taken at t.
func ExportFilename(t time.Time) string {
	return fmt.Sprintf("usage-logs-%s.json", t.UTC().Format("2006-01-02"))
}

// DecodeEntries parses an exported or persisted usage log.
func DecodeEntries(data []byte) ([]models.LogEntry, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return []models.LogEntry{}, nil
	}
	var entries []models.LogEntry
	if err := json.Unmarshal(trimmed, &entries); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptLog, err)
	}
	if entries == nil {
		entries = []models.LogEntry{}
	}
	return entries, nil
}

func (s *LogStore) load(ctx context.Context) ([]models.LogEntry, error) {
	data, ok, err := s.blobs.Get(ctx, s.key)
	if err != nil {
		return nil, fmt.Errorf("failed to load usage log: %w", err)
	}
	if !ok {
		return []models.LogEntry{}, nil
	}
	return DecodeEntries(data)
}
