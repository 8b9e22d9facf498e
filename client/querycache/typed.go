package querycache

import (
	"context"
	"time"
)

// Value returns the cached value at key when it is fresh and typed as T.
func Value[T any](s *Store, key Key) (T, bool) {
	var zero T
	entry, ok := s.Get(key)
	if !ok {
		return zero, false
	}
	typed, ok := entry.Value.(T)
	if !ok {
		return zero, false
	}
	return typed, true
}

// Update rewrites the typed value at key. Entries holding another shape are
// left alone.
func Update[T any](s *Store, key Key, fn func(T) T) bool {
	return s.Apply(key, func(value any) (any, bool) {
		typed, ok := value.(T)
		if !ok {
			return value, false
		}
		return fn(typed), true
	})
}

// FetchAs fills the region through fn and returns the value typed as T.
func FetchAs[T any](
	ctx context.Context,
	s *Store,
	key Key,
	ttl time.Duration,
	fn func(ctx context.Context) (T, error),
) (T, error) {
	var zero T
	value, err := s.Fetch(ctx, key, ttl, func(ctx context.Context) (any, error) {
		return fn(ctx)
	})
	if err != nil {
		return zero, err
	}
	typed, ok := value.(T)
	if !ok {
		return zero, ErrWrongType
	}
	return typed, nil
}
