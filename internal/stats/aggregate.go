package stats

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// aggregate caches one fetched value. Concurrent requests share the fetch in
// flight. A completed fetch is served from cache for the freshness window,
// and for the cool-down even after failing. Forced requests always start a
// new fetch; results of fetches that started earlier than the stored one are
// dropped.
type aggregate[T any] struct {
	group singleflight.Group

	mu            sync.Mutex
	value         T
	err           error
	has           bool
	done          bool
	fetchedAt     time.Time
	cooldownUntil time.Time
	started       uint64
	stored        uint64
}

type fetchPolicy struct {
	now       func() time.Time
	freshness time.Duration
	cooldown  time.Duration
}

type result[T any] struct {
	value T
	seq   uint64
}

func (a *aggregate[T]) get(ctx context.Context, force bool, p fetchPolicy, fetch func(context.Context) (T, error)) (T, error) {
	a.mu.Lock()
	if !force && a.done {
		t := p.now()
		if t.Before(a.cooldownUntil) {
			v, err := a.value, a.err
			if a.has {
				err = nil
			}
			a.mu.Unlock()
			return v, err
		}
		if a.has && a.err == nil && t.Sub(a.fetchedAt) < p.freshness {
			v := a.value
			a.mu.Unlock()
			return v, nil
		}
	}
	a.mu.Unlock()

	if force {
		a.group.Forget("fetch")
	}
	ch := a.group.DoChan("fetch", func() (any, error) {
		a.mu.Lock()
		a.started++
		seq := a.started
		a.mu.Unlock()

		// The fetch outlives the caller that started it.
		v, err := fetch(context.WithoutCancel(ctx))

		a.mu.Lock()
		defer a.mu.Unlock()
		if seq >= a.stored {
			a.stored = seq
			a.done = true
			a.err = err
			if err == nil {
				a.value = v
				a.has = true
				a.fetchedAt = p.now()
			}
			a.cooldownUntil = p.now().Add(p.cooldown)
		}
		return result[T]{value: v, seq: seq}, err
	})

	select {
	case r := <-ch:
		res, _ := r.Val.(result[T])
		return res.value, r.Err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// invalidate makes the next request fetch again
func (a *aggregate[T]) invalidate() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.fetchedAt = time.Time{}
	a.cooldownUntil = time.Time{}
}
