package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Loader is a read-through TTL cache. On a miss the value is rebuilt by the
// caller's load function; concurrent misses for one key share a single load.
type Loader struct {
	backend Backend
	ttl     time.Duration
	group   singleflight.Group
	observe func(key string, hit bool)

	mu          sync.Mutex
	generations map[string]uint64
}

type Option func(*Loader)

// WithObserver registers a callback invoked on every lookup.
func WithObserver(fn func(key string, hit bool)) Option {
	return func(l *Loader) {
		l.observe = fn
	}
}

func NewLoader(backend Backend, ttl time.Duration, opts ...Option) *Loader {
	l := &Loader{
		backend:     backend,
		ttl:         ttl,
		observe:     func(string, bool) {},
		generations: make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Invalidate drops the given keys so the next read reloads them. Loads
// already in flight for those keys no longer store their result, and new
// readers do not join them.
func (l *Loader) Invalidate(ctx context.Context, keys ...string) error {
	l.mu.Lock()
	for _, key := range keys {
		l.generations[key]++
		l.group.Forget(key)
	}
	l.mu.Unlock()
	return l.backend.Delete(ctx, keys...)
}

func (l *Loader) generation(key string) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.generations[key]
}

// Fetch returns the cached value for key, loading and storing it on a miss.
// Backend read or write failures degrade to a direct load. The shared load
// runs detached from the caller's cancellation since other callers may be
// waiting on it.
func Fetch[T any](ctx context.Context, l *Loader, key string, load func(context.Context) (T, error)) (T, error) {
	var zero T

	if raw, ok, err := l.backend.Get(ctx, key); err == nil && ok {
		var value T
		if err := json.Unmarshal(raw, &value); err == nil {
			l.observe(key, true)
			return value, nil
		}
	}
	l.observe(key, false)

	v, err, _ := l.group.Do(key, func() (any, error) {
		loadCtx := context.WithoutCancel(ctx)
		gen := l.generation(key)

		value, err := load(loadCtx)
		if err != nil {
			return nil, err
		}
		if l.generation(key) != gen {
			return value, nil
		}
		if raw, err := json.Marshal(value); err == nil {
			_ = l.backend.Set(loadCtx, key, raw, l.ttl)
		}
		return value, nil
	})
	if err != nil {
		return zero, err
	}

	value, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("cache: unexpected value type %T for %s", v, key)
	}
	return value, nil
}
