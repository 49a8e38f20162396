package ranking

import (
	"context"
	"errors"
	"slices"
	"sync"
)

type call struct {
	done chan struct{}
	keys []string
	err  error
}

// inflight lets concurrent misses for one cache key share a single computation.
type inflight struct {
	mu    sync.Mutex
	calls map[string]*call
}

func newInflight() *inflight {
	return &inflight{calls: make(map[string]*call)}
}

// do runs fn once per key at a time. Callers arriving while fn runs wait for
// its result; shared reports whether the caller waited. A waiter whose leader
// was canceled runs fn itself unless its own context is done too.
func (f *inflight) do(ctx context.Context, key string, fn func(context.Context) ([]string, error)) (keys []string, shared bool, err error) {
	f.mu.Lock()
	if c, ok := f.calls[key]; ok {
		f.mu.Unlock()
		select {
		case <-c.done:
		case <-ctx.Done():
			return nil, true, ctx.Err()
		}
		if c.err != nil && isContextErr(c.err) && ctx.Err() == nil {
			keys, err = fn(ctx)
			return keys, false, err
		}
		return slices.Clone(c.keys), true, c.err
	}
	c := &call{done: make(chan struct{})}
	f.calls[key] = c
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		delete(f.calls, key)
		f.mu.Unlock()
		close(c.done)
	}()
	c.keys, c.err = fn(ctx)
	return c.keys, false, c.err
}

// pending is the number of computations in progress.
func (f *inflight) pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
