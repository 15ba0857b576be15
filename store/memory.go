package store

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	hits   []time.Time
	window time.Duration
}

// Memory is an in-process Store. Each key keeps the ordered timestamps of its
// admitted requests; stale timestamps are pruned lazily whenever the key is
// checked.
//
// Counters are not shared between processes. Run a single instance, or use
// Redis when several replicas serve the same clients.
type Memory struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
	now     func() time.Time
	every   time.Duration
	stopCh  chan struct{}
	once    sync.Once
}

// MemoryOption configures a Memory store.
type MemoryOption func(*Memory)

// WithClock replaces time.Now. Intended for tests.
func WithClock(now func() time.Time) MemoryOption {
	return func(m *Memory) {
		m.now = now
	}
}

// WithSweepInterval sets how often idle keys are evicted (default: one minute).
func WithSweepInterval(d time.Duration) MemoryOption {
	return func(m *Memory) {
		m.every = d
	}
}

// NewMemory creates a Memory store. A background goroutine evicts keys whose
// newest timestamp has left the window, which keeps the map bounded by the
// clients seen within one window. Call Close to stop it.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		entries: make(map[string]*memoryEntry),
		now:     time.Now,
		every:   time.Minute,
		stopCh:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}

	go m.sweep()
	return m
}

func (m *Memory) Allow(_ context.Context, key string, limit int64, window time.Duration) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	entry, ok := m.entries[key]
	if !ok {
		entry = &memoryEntry{}
		m.entries[key] = entry
	}
	entry.window = window
	entry.hits = prune(entry.hits, now.Add(-window))

	if int64(len(entry.hits)) >= limit {
		return Result{
			Allowed: false,
			Count:   int64(len(entry.hits)),
			ResetIn: resetIn(entry.hits, now, window),
		}, nil
	}

	entry.hits = append(entry.hits, now)
	return Result{
		Allowed: true,
		Count:   int64(len(entry.hits)),
		ResetIn: resetIn(entry.hits, now, window),
	}, nil
}

// Close stops the eviction goroutine. It is safe to call more than once.
func (m *Memory) Close() error {
	m.once.Do(func() {
		close(m.stopCh)
	})
	return nil
}

// prune drops timestamps at or before cutoff. hits is ordered, so the kept
// suffix is shifted to the front of the same backing array.
func prune(hits []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(hits) && !hits[i].After(cutoff) {
		i++
	}
	if i == 0 {
		return hits
	}
	return append(hits[:0], hits[i:]...)
}

func resetIn(hits []time.Time, now time.Time, window time.Duration) time.Duration {
	if len(hits) == 0 {
		return 0
	}
	return max(0, hits[0].Add(window).Sub(now))
}

// evictIdle removes keys with no timestamp left inside their window.
func (m *Memory) evictIdle() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for key, entry := range m.entries {
		n := len(entry.hits)
		if n == 0 || !entry.hits[n-1].After(now.Add(-entry.window)) {
			delete(m.entries, key)
		}
	}
}

func (m *Memory) sweep() {
	ticker := time.NewTicker(m.every)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.evictIdle()
		case <-m.stopCh:
			return
		}
	}
}
