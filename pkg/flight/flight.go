// Package flight provides in-process building blocks: a Group that coalesces
// concurrent calls for the same key and a Map whose entries expire.
package flight

import (
	"errors"
	"sync"
	"time"
)

// ErrPanicked is what waiters receive when the call they joined panicked.
var ErrPanicked = errors.New("flight: in-flight call panicked")

type job[V any] struct {
	val  V
	err  error
	dups int
	done chan struct{}
}

// Group coalesces concurrent work per key. Results are not retained once
// every waiter has returned.
type Group[K comparable, V any] struct {
	mu      sync.Mutex
	pending map[K]*job[V]
}

// Do runs fn once for all callers that arrive while a call for k is in flight.
// shared reports whether the result was handed to more than one caller.
func (g *Group[K, V]) Do(k K, fn func() (V, error)) (v V, err error, shared bool) {
	g.mu.Lock()
	if g.pending == nil {
		g.pending = make(map[K]*job[V])
	}

	// Join existing in-flight job if any.
	if j, ok := g.pending[k]; ok {
		j.dups++
		g.mu.Unlock()
		<-j.done
		return j.val, j.err, true
	}

	j := &job[V]{err: ErrPanicked, done: make(chan struct{})}
	g.pending[k] = j
	g.mu.Unlock()

	// Release waiters and forget the key even if fn panics.
	defer func() {
		g.mu.Lock()
		close(j.done)
		delete(g.pending, k)
		g.mu.Unlock()
	}()

	v, err = fn()
	j.val, j.err = v, err

	g.mu.Lock()
	shared = j.dups > 0
	g.mu.Unlock()
	return v, err, shared
}

type entry[V any] struct {
	val      V
	deadline time.Time // zero => never expires
}

// Map is a concurrency-safe map whose entries expire after a fixed TTL.
// Expired entries are invisible to readers and dropped lazily.
type Map[K comparable, V any] struct {
	mu      sync.RWMutex
	entries map[K]*entry[V]
	ttl     time.Duration
	now     func() time.Time
}

// NewMap creates a Map. ttl <= 0 keeps entries forever; now defaults to time.Now.
func NewMap[K comparable, V any](ttl time.Duration, now func() time.Time) *Map[K, V] {
	if now == nil {
		now = time.Now
	}
	return &Map[K, V]{
		entries: make(map[K]*entry[V]),
		ttl:     ttl,
		now:     now,
	}
}

func (m *Map[K, V]) live(e *entry[V], at time.Time) bool {
	return e.deadline.IsZero() || at.Before(e.deadline)
}

func (m *Map[K, V]) deadline(at time.Time) time.Time {
	if m.ttl <= 0 {
		return time.Time{}
	}
	return at.Add(m.ttl)
}

func (m *Map[K, V]) Get(k K) (V, bool) {
	now := m.now()
	m.mu.RLock()
	e, ok := m.entries[k]
	var val V
	live := ok && m.live(e, now)
	if live {
		val = e.val
	}
	m.mu.RUnlock()
	if live {
		return val, true
	}
	if ok {
		m.mu.Lock()
		if cur, ok := m.entries[k]; ok && cur == e {
			delete(m.entries, k)
		}
		m.mu.Unlock()
	}
	var zero V
	return zero, false
}

// Set stores v under k, replacing any previous value and restarting its TTL.
func (m *Map[K, V]) Set(k K, v V) {
	now := m.now()
	m.mu.Lock()
	m.entries[k] = &entry[V]{val: v, deadline: m.deadline(now)}
	m.mu.Unlock()
}

// SetIfAbsent stores v only when k has no live entry and reports whether it did.
func (m *Map[K, V]) SetIfAbsent(k K, v V) bool {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[k]; ok && m.live(e, now) {
		return false
	}
	m.entries[k] = &entry[V]{val: v, deadline: m.deadline(now)}
	return true
}

// Update atomically replaces the value under k with fn's result. fn sees the
// current live value, or ok == false. The TTL is kept for live entries.
func (m *Map[K, V]) Update(k K, fn func(cur V, ok bool) V) V {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[k]
	if ok && m.live(e, now) {
		e.val = fn(e.val, true)
		return e.val
	}
	var zero V
	e = &entry[V]{val: fn(zero, false), deadline: m.deadline(now)}
	m.entries[k] = e
	return e.val
}

// DeleteFunc removes every entry, live or expired, for which fn returns true.
func (m *Map[K, V]) DeleteFunc(fn func(K, V) bool) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for k, e := range m.entries {
		if fn(k, e.val) {
			delete(m.entries, k)
			n++
		}
	}
	return n
}

// Len counts live entries.
func (m *Map[K, V]) Len() int {
	now := m.now()
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, e := range m.entries {
		if m.live(e, now) {
			n++
		}
	}
	return n
}
