// Package decisions persists emitted decision events in a write-ahead log.
package decisions

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/gowal"
	"github.com/vadiminshakov/trendsignal/internal/domain"
)

const (
	DefaultDir   = "./wal/decisions"
	segmentLimit = 100
	maxSegments  = 10

	decisionKeyPrefix = "decision_"
)

var errNotInitialized = errors.New("decision store is not initialized")

// WALStore persists decision events in a WAL.
type WALStore struct {
	wal *gowal.Wal
	mu  sync.RWMutex
}

// NewWALStore initializes a WAL-backed decision store.
func NewWALStore(dir string) (*WALStore, error) {
	if dir == "" {
		dir = DefaultDir
	}

	cfg := gowal.Config{
		Dir:              dir,
		Prefix:           "decision_",
		SegmentThreshold: segmentLimit,
		MaxSegments:      maxSegments,
		IsInSyncDiskMode: true,
	}

	wal, err := gowal.NewWAL(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "init decision WAL")
	}

	return &WALStore{wal: wal}, nil
}

// Save appends the event and returns its index.
func (s *WALStore) Save(event domain.DecisionEvent) (uint64, error) {
	if s == nil || s.wal == nil {
		return 0, errNotInitialized
	}
	if event.ID == "" {
		return 0, errors.New("decision event id is required")
	}
	if !event.Action.IsValid() {
		return 0, errors.Errorf("decision event has invalid action %q", event.Action)
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return 0, errors.Wrap(err, "marshal decision event")
	}

	key := decisionKeyPrefix + string(event.Source)

	s.mu.Lock()
	defer s.mu.Unlock()

	nextIndex := s.wal.CurrentIndex() + 1
	if err := s.wal.Write(nextIndex, key, payload); err != nil {
		return 0, errors.Wrap(err, "write decision event")
	}
	return nextIndex, nil
}

// EventsAfter returns all decision events written after the provided WAL index.
// Entries already dropped by segment rotation are skipped.
func (s *WALStore) EventsAfter(index uint64) ([]domain.DecisionEventRecord, error) {
	if s == nil || s.wal == nil {
		return nil, errNotInitialized
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	current := s.wal.CurrentIndex()
	if current <= index {
		return nil, nil
	}

	records := make([]domain.DecisionEventRecord, 0, current-index)
	for idx := index + 1; idx <= current; idx++ {
		key, payload, err := s.wal.Get(idx)
		if err != nil || !strings.HasPrefix(key, decisionKeyPrefix) {
			continue
		}

		var event domain.DecisionEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			return nil, errors.Wrapf(err, "decode decision event %d", idx)
		}
		records = append(records, domain.DecisionEventRecord{Index: idx, Event: event})
	}

	return records, nil
}

// Last returns up to n most recent events, oldest first.
func (s *WALStore) Last(n int) ([]domain.DecisionEventRecord, error) {
	if n <= 0 {
		return nil, nil
	}
	current := s.CurrentIndex()
	from := uint64(0)
	if current > uint64(n) {
		from = current - uint64(n)
	}
	return s.EventsAfter(from)
}

// CurrentIndex returns the latest WAL index stored.
func (s *WALStore) CurrentIndex() uint64 {
	if s == nil || s.wal == nil {
		return 0
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.wal.CurrentIndex()
}

// Close closes the underlying WAL.
func (s *WALStore) Close() error {
	if s == nil || s.wal == nil {
		return errNotInitialized
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.wal.Close()
}
