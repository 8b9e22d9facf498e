package querycache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestGetHonorsTTL(t *testing.T) {
	clock := newManualClock()
	store := NewStore(WithClock(clock.Now))
	key := Key{"suggestions", "list"}

	store.Set(key, "cached", 30*time.Second)
	entry, ok := store.Get(key)
	if !ok || entry.Value != "cached" {
		t.Fatalf("expected fresh entry, got %+v found=%v", entry, ok)
	}

	clock.Advance(31 * time.Second)
	if _, ok := store.Get(key); ok {
		t.Fatal("expected expired entry to miss")
	}
	if _, ok := store.Peek(key); !ok {
		t.Fatal("expected expired entry to remain visible to Peek")
	}
}

func TestMarkStaleForcesRefetch(t *testing.T) {
	store := NewStore()
	store.Set(Key{"suggestions", "paginated", "20", "0"}, "window-a", time.Minute)
	store.Set(Key{"suggestions", "paginated", "20", "20"}, "window-b", time.Minute)
	store.Set(Key{"suggestions", "detail", "42"}, "detail", time.Minute)

	marked := store.MarkStale(Key{"suggestions", "paginated"})
	if marked != 2 {
		t.Fatalf("expected two windows marked, got %d", marked)
	}
	if _, ok := store.Get(Key{"suggestions", "paginated", "20", "0"}); ok {
		t.Fatal("expected stale window to miss")
	}
	if _, ok := store.Get(Key{"suggestions", "detail", "42"}); !ok {
		t.Fatal("expected untouched region to stay fresh")
	}
}

func TestSnapshotRestoresVerbatim(t *testing.T) {
	store := NewStore()
	listKey := Key{"suggestions", "list"}
	detailKey := Key{"suggestions", "detail", "42"}
	store.Set(listKey, []int{5}, time.Minute)
	store.Set(detailKey, 5, time.Minute)

	snapshot := store.Snapshot(Key{"suggestions"})
	if len(snapshot) != 2 {
		t.Fatalf("expected two snapshotted entries, got %d", len(snapshot))
	}

	store.Apply(listKey, func(any) (any, bool) { return []int{6}, true })
	store.Apply(detailKey, func(any) (any, bool) { return 6, true })
	store.Restore(snapshot)

	entry, _ := store.Get(detailKey)
	if entry.Value != 5 {
		t.Fatalf("expected restored value 5, got %v", entry.Value)
	}
	list, _ := Value[[]int](store, listKey)
	if len(list) != 1 || list[0] != 5 {
		t.Fatalf("expected restored list [5], got %v", list)
	}
}

func TestFenceRejectsInFlightFetch(t *testing.T) {
	store := NewStore()
	key := Key{"suggestions", "list"}

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})
	var fetched any
	var fetchErr error

	go func() {
		defer close(done)
		fetched, fetchErr = store.Fetch(context.Background(), key, time.Minute,
			func(context.Context) (any, error) {
				close(started)
				<-release
				return "server-read", nil
			})
	}()

	<-started
	if fenced := store.Fence(key); fenced == 0 {
		t.Fatal("expected the in-flight fetch's region to be fenced")
	}
	store.Set(key, "optimistic", time.Minute)
	close(release)
	<-done

	if fetchErr != nil {
		t.Fatalf("fetch failed: %v", fetchErr)
	}
	if fetched != "optimistic" {
		t.Fatalf("expected fenced fetch to yield the region's current value, got %v", fetched)
	}
	entry, ok := store.Get(key)
	if !ok || entry.Value != "optimistic" {
		t.Fatalf("expected optimistic value to survive the fetch, got %+v", entry)
	}
}

func TestFenceCancelsFetchContext(t *testing.T) {
	store := NewStore()
	key := Key{"reviews", "detail", "1"}

	started := make(chan struct{})
	done := make(chan struct{})
	var fetchErr error

	go func() {
		defer close(done)
		_, fetchErr = store.Fetch(context.Background(), key, time.Minute,
			func(ctx context.Context) (any, error) {
				close(started)
				<-ctx.Done()
				return nil, ctx.Err()
			})
	}()

	<-started
	store.Fence(key)
	<-done

	if !errors.Is(fetchErr, context.Canceled) {
		t.Fatalf("expected canceled fetch, got %v", fetchErr)
	}
	if _, ok := store.Peek(key); ok {
		t.Fatal("expected nothing installed by the canceled fetch")
	}
}

func TestFetchRetriesBoundedTimes(t *testing.T) {
	store := NewStore()
	calls := 0
	value, err := store.Fetch(context.Background(), Key{"polls", "list"}, time.Minute,
		func(context.Context) (any, error) {
			calls++
			if calls < 3 {
				return nil, errors.New("transient")
			}
			return "recovered", nil
		})
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if value != "recovered" || calls != 3 {
		t.Fatalf("expected recovery on third call, got value=%v calls=%d", value, calls)
	}

	calls = 0
	_, err = store.Fetch(context.Background(), Key{"polls", "detail", "9"}, time.Minute,
		func(context.Context) (any, error) {
			calls++
			return nil, errors.New("down")
		})
	if err == nil || calls != fetchAttempts {
		t.Fatalf("expected failure after %d attempts, got err=%v calls=%d", fetchAttempts, err, calls)
	}
}

func TestFetchStopsRetryingAfterCancel(t *testing.T) {
	store := NewStore()
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := store.Fetch(ctx, Key{"polls", "list"}, time.Minute,
		func(context.Context) (any, error) {
			calls++
			cancel()
			return nil, errors.New("interrupted")
		})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected a single attempt after cancellation, got %d", calls)
	}
}

func TestFetchServesFreshEntryWithoutCalling(t *testing.T) {
	store := NewStore()
	key := Key{"suggestions", "list"}
	store.Set(key, "cached", time.Minute)

	value, err := store.Fetch(context.Background(), key, time.Minute,
		func(context.Context) (any, error) {
			t.Fatal("fetch function must not run for a fresh entry")
			return nil, nil
		})
	if err != nil || value != "cached" {
		t.Fatalf("expected cached value, got %v err=%v", value, err)
	}
}

func TestApplyPrefixCountsChangedEntries(t *testing.T) {
	store := NewStore()
	store.Set(Key{"polls", "list"}, 1, time.Minute)
	store.Set(Key{"polls", "detail", "9"}, 2, time.Minute)
	store.Set(Key{"reviews", "queue"}, 3, time.Minute)

	changed := store.ApplyPrefix(Key{"polls"}, func(_ string, value any) (any, bool) {
		count, ok := value.(int)
		if !ok || count != 2 {
			return value, false
		}
		return count + 10, true
	})
	if changed != 1 {
		t.Fatalf("expected one patched entry, got %d", changed)
	}
	entry, _ := store.Get(Key{"polls", "detail", "9"})
	if entry.Value != 12 {
		t.Fatalf("expected patched value 12, got %v", entry.Value)
	}
}

func TestTypedHelpers(t *testing.T) {
	store := NewStore()
	key := Key{"suggestions", "detail", "42"}
	store.Set(key, 5, time.Minute)

	if updated := Update(store, key, func(count int) int { return count + 1 }); !updated {
		t.Fatal("expected typed update to apply")
	}
	count, ok := Value[int](store, key)
	if !ok || count != 6 {
		t.Fatalf("expected 6, got %d found=%v", count, ok)
	}
	if _, ok := Value[string](store, key); ok {
		t.Fatal("expected type mismatch to miss")
	}

	_, err := FetchAs[string](context.Background(), store, key, time.Minute,
		func(context.Context) (string, error) { return "", nil })
	if !errors.Is(err, ErrWrongType) {
		t.Fatalf("expected ErrWrongType, got %v", err)
	}
}
