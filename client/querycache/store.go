// Package querycache holds client-side read models in an explicit keyed
// store so optimistic writes, rollbacks, and refetch fencing operate on
// named regions instead of ad hoc per-view state.
package querycache

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// ErrWrongType reports a cached value that does not match the type the
// caller asked for. It means two call sites disagree about a region's shape.
var ErrWrongType = errors.New("querycache: cached value has unexpected type")

// fetchAttempts bounds read fetches at one call plus two retries.
const fetchAttempts = 3

// Key addresses one cache region. Segments join with "/" into the normalized
// lookup key, so a shorter key acts as the prefix of every window under it.
type Key []string

func (k Key) String() string {
	return strings.Join(k, "/")
}

// Entry is one cached read view plus its freshness metadata.
type Entry struct {
	Value     any
	FetchedAt time.Time
	TTL       time.Duration
	Stale     bool
}

func (e Entry) fresh(now time.Time) bool {
	if e.Stale {
		return false
	}
	if e.TTL <= 0 {
		return true
	}
	return now.Sub(e.FetchedAt) < e.TTL
}

// Store is a keyed, TTL-bounded cache of server read models. Values are
// replaced whole by reducers, never mutated in place, which keeps snapshots
// restorable verbatim after a failed optimistic write.
type Store struct {
	mu      sync.Mutex
	entries map[string]Entry
	epochs  map[string]uint64
	cancels map[string]context.CancelFunc
	flight  singleflight.Group
	now     func() time.Time
}

type Option func(*Store)

// WithClock overrides the freshness clock.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

func NewStore(opts ...Option) *Store {
	store := &Store{
		entries: make(map[string]Entry),
		epochs:  make(map[string]uint64),
		cancels: make(map[string]context.CancelFunc),
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

// Get returns the entry at key when it is present and fresh.
func (s *Store) Get(key Key) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key.String()]
	if !ok || !entry.fresh(s.now()) {
		cacheMisses.Inc()
		return Entry{}, false
	}
	cacheHits.Inc()
	return entry, true
}

// Peek returns the entry at key regardless of freshness.
func (s *Store) Peek(key Key) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key.String()]
	return entry, ok
}

// Set installs a value at key with a fresh timestamp.
func (s *Store) Set(key Key, value any, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key.String()] = Entry{Value: value, FetchedAt: s.now(), TTL: ttl}
}

// Apply rewrites the value at key through fn. The reducer returns the
// replacement value and whether anything changed; freshness metadata is
// kept so an optimistic rewrite does not look like a new server read.
func (s *Store) Apply(key Key, fn func(value any) (any, bool)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	normalized := key.String()
	entry, ok := s.entries[normalized]
	if !ok {
		return false
	}
	value, changed := fn(entry.Value)
	if !changed {
		return false
	}
	entry.Value = value
	s.entries[normalized] = entry
	return true
}

// ApplyPrefix rewrites every entry under prefix through fn and reports how
// many entries changed.
func (s *Store) ApplyPrefix(prefix Key, fn func(key string, value any) (any, bool)) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := 0
	for normalized, entry := range s.entries {
		if !underPrefix(normalized, prefix.String()) {
			continue
		}
		value, ok := fn(normalized, entry.Value)
		if !ok {
			continue
		}
		entry.Value = value
		s.entries[normalized] = entry
		changed++
	}
	return changed
}

// MarkStale flags every entry under prefix so the next read refetches it.
// It returns the number of entries marked.
func (s *Store) MarkStale(prefix Key) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	marked := 0
	for normalized, entry := range s.entries {
		if !underPrefix(normalized, prefix.String()) || entry.Stale {
			continue
		}
		entry.Stale = true
		s.entries[normalized] = entry
		marked++
	}
	return marked
}

// Snapshot copies every entry under prefix, keyed by normalized key.
func (s *Store) Snapshot(prefix Key) map[string]Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := make(map[string]Entry)
	for normalized, entry := range s.entries {
		if underPrefix(normalized, prefix.String()) {
			snapshot[normalized] = entry
		}
	}
	return snapshot
}

// Restore writes snapshot entries back verbatim, freshness metadata included.
func (s *Store) Restore(snapshot map[string]Entry) {
	if len(snapshot) == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for normalized, entry := range snapshot {
		s.entries[normalized] = entry
	}
	cacheRestores.Inc()
}

// Fence bumps the epoch of every region under prefix and cancels any
// registered in-flight fetch, so a read started before the fence can never
// install its result over a later optimistic write. It returns the number
// of regions fenced.
func (s *Store) Fence(prefix Key) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	normalizedPrefix := prefix.String()
	fenced := make(map[string]struct{})
	for normalized := range s.entries {
		if underPrefix(normalized, normalizedPrefix) {
			fenced[normalized] = struct{}{}
		}
	}
	for normalized := range s.epochs {
		if underPrefix(normalized, normalizedPrefix) {
			fenced[normalized] = struct{}{}
		}
	}
	for normalized, cancel := range s.cancels {
		if !underPrefix(normalized, normalizedPrefix) {
			continue
		}
		fenced[normalized] = struct{}{}
		cancel()
		delete(s.cancels, normalized)
	}
	for normalized := range fenced {
		s.epochs[normalized]++
	}
	return len(fenced)
}

// Fetch returns the fresh cached value at key, or fills the region through
// fn. Concurrent fetches of the same key share one flight. A fetch whose
// region was fenced while in flight does not install its result; the caller
// gets whatever the region holds after the fence instead.
func (s *Store) Fetch(
	ctx context.Context,
	key Key,
	ttl time.Duration,
	fn func(ctx context.Context) (any, error),
) (any, error) {
	normalized := key.String()

	s.mu.Lock()
	if entry, ok := s.entries[normalized]; ok && entry.fresh(s.now()) {
		s.mu.Unlock()
		cacheHits.Inc()
		return entry.Value, nil
	}
	s.mu.Unlock()
	cacheMisses.Inc()

	value, err, _ := s.flight.Do(normalized, func() (any, error) {
		fetchCtx, cancel := context.WithCancel(ctx)
		defer cancel()

		s.mu.Lock()
		epoch := s.epochs[normalized]
		s.cancels[normalized] = cancel
		s.mu.Unlock()

		started := time.Now()
		value, err := fetchWithRetry(fetchCtx, fn)
		cacheFetchDuration.Observe(time.Since(started).Seconds())

		s.mu.Lock()
		delete(s.cancels, normalized)
		fencedMidFlight := s.epochs[normalized] != epoch
		if err == nil && !fencedMidFlight {
			s.entries[normalized] = Entry{Value: value, FetchedAt: s.now(), TTL: ttl}
		}
		current, hasCurrent := s.entries[normalized]
		s.mu.Unlock()

		if err != nil {
			return nil, err
		}
		if fencedMidFlight {
			cacheFencedFetches.Inc()
			if hasCurrent {
				return current.Value, nil
			}
		}
		return value, nil
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}

func fetchWithRetry(ctx context.Context, fn func(ctx context.Context) (any, error)) (any, error) {
	var lastErr error
	for attempt := 0; attempt < fetchAttempts; attempt++ {
		value, err := fn(ctx)
		if err == nil {
			return value, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	return nil, lastErr
}

func underPrefix(normalized string, prefix string) bool {
	if prefix == "" {
		return true
	}
	return normalized == prefix || strings.HasPrefix(normalized, prefix+"/")
}
