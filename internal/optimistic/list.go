// Package optimistic keeps a locally cached list that reflects mutations
// immediately and converges with the source of truth afterwards: apply the
// change locally, run it remotely, roll back to the pre-change snapshot on
// failure, and refetch on every outcome.
package optimistic

import (
	"context"
	"fmt"
	"sync"
	"time"
)

type Fetcher[T any] func(ctx context.Context) ([]T, error)

type Op struct {
	Kind      string
	Key       string
	StartedAt time.Time
}

type List[T any] struct {
	mu      sync.RWMutex
	items   []T
	loaded  bool
	pending []Op
	key     func(T) string
	fetch   Fetcher[T]
}

func NewList[T any](key func(T) string, fetch func(ctx context.Context) ([]T, error)) *List[T] {
	return &List[T]{key: key, fetch: fetch}
}

// Items returns the current local view, fetching once if nothing is cached.
func (l *List[T]) Items(ctx context.Context) ([]T, error) {
	l.mu.RLock()
	loaded := l.loaded
	items := append([]T{}, l.items...)
	l.mu.RUnlock()
	if loaded {
		return items, nil
	}
	return l.Refresh(ctx)
}

// Refresh replaces the local view with the authoritative list.
func (l *List[T]) Refresh(ctx context.Context) ([]T, error) {
	items, err := l.fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("refresh list: %w", err)
	}
	l.mu.Lock()
	l.items = append([]T{}, items...)
	l.loaded = true
	l.mu.Unlock()
	return items, nil
}

func (l *List[T]) Pending() []Op {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]Op{}, l.pending...)
}

// Remove drops the item with the given key locally, then runs remote.
// A failed remote call restores the snapshot taken before the removal.
// The list is refetched whatever happened. Only the remote error is returned.
func (l *List[T]) Remove(ctx context.Context, key string, remote func(ctx context.Context) error) error {
	op := Op{Kind: "remove", Key: key, StartedAt: time.Now()}

	l.mu.Lock()
	snapshot := append([]T{}, l.items...)
	kept := make([]T, 0, len(l.items))
	for _, it := range l.items {
		if l.key(it) != key {
			kept = append(kept, it)
		}
	}
	l.items = kept
	l.pending = append(l.pending, op)
	l.mu.Unlock()

	err := remote(ctx)

	l.mu.Lock()
	l.dropPending(op)
	if err != nil {
		l.items = snapshot
	}
	l.mu.Unlock()

	// A failed refresh keeps the local view as it is.
	_, _ = l.Refresh(ctx)
	return err
}

func (l *List[T]) dropPending(op Op) {
	for i, p := range l.pending {
		if p == op {
			l.pending = append(l.pending[:i], l.pending[i+1:]...)
			return
		}
	}
}
