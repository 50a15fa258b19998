// Package dataloader implements a per-request batching and caching loader.
//
// A Loader collects the keys requested through Load until Dispatch is
// called, then fetches all of them with one call to its BatchFunc. Callers
// receive a Thunk that blocks until the value is available. Coalescing is
// driven by explicit Dispatch calls rather than a timer: the executor
// dispatches once per resolution depth, so every key requested by sibling
// fields at that depth lands in the same batch.
//
// A Loader caches results for its lifetime. Create a new Loader (or a new
// set of loaders) for every operation; never share one across requests.
//
// Example:
//
//	users := dataloader.New("user", func(ctx context.Context, ids []string) ([]*model.User, error) {
//	    return st.Users().FindByIDs(ctx, ids)
//	})
//	a := users.Load(ctx, "u1")
//	b := users.Load(ctx, "u2")
//	users.Dispatch(ctx) // one FindByIDs call with [u1 u2]
//	u1, err := a()
package dataloader

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hanpama/inkgraph/internal/eventbus"
	"github.com/hanpama/inkgraph/internal/events"
)

// BatchFunc fetches values for keys. The returned slice must be positionally
// aligned with keys; a missing key maps to the zero value of V.
type BatchFunc[K comparable, V any] func(ctx context.Context, keys []K) ([]V, error)

// Thunk blocks until a loaded value is available.
type Thunk[V any] func() (V, error)

type options struct {
	batchTimeout time.Duration
	maxBatch     int
	concurrency  int
}

// Option configures a Loader.
type Option func(*options)

// WithBatchTimeout bounds every call to the BatchFunc. 0 disables the bound.
func WithBatchTimeout(d time.Duration) Option { return func(o *options) { o.batchTimeout = d } }

// WithMaxBatch splits a dispatch into fetches of at most n keys. 0 means
// unlimited.
func WithMaxBatch(n int) Option { return func(o *options) { o.maxBatch = n } }

// WithConcurrency limits how many split fetches run at once. Default 4.
func WithConcurrency(n int) Option { return func(o *options) { o.concurrency = n } }

type entry[K comparable, V any] struct {
	done  chan struct{}
	batch *batch[K, V]
	value V
	err   error
}

type batch[K comparable, V any] struct {
	keys    []K
	entries []*entry[K, V]
}

// Loader batches and caches lookups of V by K.
type Loader[K comparable, V any] struct {
	name  string
	fetch BatchFunc[K, V]
	opts  options

	mu      sync.Mutex
	cache   map[K]*entry[K, V]
	pending *batch[K, V]
}

// New creates a Loader. name identifies the loader in emitted events.
func New[K comparable, V any](name string, fetch BatchFunc[K, V], opts ...Option) *Loader[K, V] {
	o := options{concurrency: 4}
	for _, f := range opts {
		f(&o)
	}
	return &Loader[K, V]{
		name:  name,
		fetch: fetch,
		opts:  o,
		cache: make(map[K]*entry[K, V]),
	}
}

// Name returns the loader name.
func (l *Loader[K, V]) Name() string { return l.name }

// Load registers key for the next batch and returns a Thunk for its value.
// Loading a key that is already cached returns a Thunk over the cached entry.
//
// Calling the Thunk before the batch was dispatched dispatches it
// immediately. If ctx ends while waiting, the Thunk returns ctx.Err().
func (l *Loader[K, V]) Load(ctx context.Context, key K) Thunk[V] {
	l.mu.Lock()
	e, ok := l.cache[key]
	if !ok {
		if l.pending == nil {
			l.pending = &batch[K, V]{}
		}
		e = &entry[K, V]{done: make(chan struct{}), batch: l.pending}
		l.pending.keys = append(l.pending.keys, key)
		l.pending.entries = append(l.pending.entries, e)
		l.cache[key] = e
	}
	l.mu.Unlock()
	return func() (V, error) { return l.wait(ctx, e) }
}

// LoadMany loads every key and returns a Thunk over the aligned values. The
// first failure is returned as the Thunk's error.
func (l *Loader[K, V]) LoadMany(ctx context.Context, keys []K) Thunk[[]V] {
	thunks := make([]Thunk[V], len(keys))
	for i, k := range keys {
		thunks[i] = l.Load(ctx, k)
	}
	return func() ([]V, error) {
		out := make([]V, len(thunks))
		for i, th := range thunks {
			v, err := th()
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	}
}

// Prime stores value for key unless key is already cached.
func (l *Loader[K, V]) Prime(key K, value V) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.cache[key]; ok {
		return
	}
	e := &entry[K, V]{done: make(chan struct{}), value: value}
	close(e.done)
	l.cache[key] = e
}

// Clear evicts key from the cache. A pending load for key still completes.
func (l *Loader[K, V]) Clear(key K) {
	l.mu.Lock()
	delete(l.cache, key)
	l.mu.Unlock()
}

// Pending reports the number of keys waiting for the next dispatch.
func (l *Loader[K, V]) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.pending == nil {
		return 0
	}
	return len(l.pending.keys)
}

// Dispatch fetches every key queued since the previous dispatch. It returns
// once all values of the batch are available.
func (l *Loader[K, V]) Dispatch(ctx context.Context) {
	l.mu.Lock()
	b := l.pending
	l.pending = nil
	l.mu.Unlock()
	if b != nil {
		l.run(ctx, b)
	}
}

func (l *Loader[K, V]) wait(ctx context.Context, e *entry[K, V]) (V, error) {
	select {
	case <-e.done:
		return e.value, e.err
	default:
	}

	l.mu.Lock()
	b := l.pending
	owned := b != nil && e.batch == b
	if owned {
		l.pending = nil
	}
	l.mu.Unlock()
	if owned {
		l.run(ctx, b)
	}

	select {
	case <-e.done:
		return e.value, e.err
	case <-ctx.Done():
		var zero V
		return zero, ctx.Err()
	}
}

func (l *Loader[K, V]) run(ctx context.Context, b *batch[K, V]) {
	size := l.opts.maxBatch
	if size <= 0 || size >= len(b.keys) {
		l.fetchChunk(ctx, b.keys, b.entries)
		return
	}
	g := new(errgroup.Group)
	if l.opts.concurrency > 0 {
		g.SetLimit(l.opts.concurrency)
	}
	for lo := 0; lo < len(b.keys); lo += size {
		hi := min(lo+size, len(b.keys))
		keys, entries := b.keys[lo:hi], b.entries[lo:hi]
		g.Go(func() error {
			l.fetchChunk(ctx, keys, entries)
			return nil
		})
	}
	_ = g.Wait()
}

func (l *Loader[K, V]) fetchChunk(ctx context.Context, keys []K, entries []*entry[K, V]) {
	start := time.Now()
	values, err := l.call(ctx, keys)
	if err == nil && len(values) != len(keys) {
		err = fmt.Errorf("dataloader %s: batch function returned %d values for %d keys", l.name, len(values), len(keys))
	}
	eventbus.Publish(ctx, events.LoaderBatch{
		Loader:   l.name,
		Keys:     len(keys),
		Start:    start,
		Duration: time.Since(start),
		Err:      err,
	})

	if err != nil {
		l.mu.Lock()
		for i, k := range keys {
			if l.cache[k] == entries[i] {
				delete(l.cache, k)
			}
		}
		l.mu.Unlock()
		for _, e := range entries {
			e.err = err
			close(e.done)
		}
		return
	}
	for i, e := range entries {
		e.value = values[i]
		close(e.done)
	}
}

func (l *Loader[K, V]) call(ctx context.Context, keys []K) (values []V, err error) {
	if l.opts.batchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.opts.batchTimeout)
		defer cancel()
	}
	defer func() {
		if r := recover(); r != nil {
			values, err = nil, fmt.Errorf("dataloader %s: panic in batch function: %v", l.name, r)
		}
	}()
	return l.fetch(ctx, keys)
}
