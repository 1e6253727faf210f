// Package state keeps per-user conversation sessions in memory.
//
// A Store serializes access per user: telebot runs every update on its own
// goroutine, so two messages from the same user could otherwise race on one
// session. Sessions idle for longer than the TTL are evicted by Sweep and a
// late update for an evicted user starts from a fresh value.
package state

import (
	"context"
	"sync"
	"time"
)

// Options configure a Store.
type Options[T any] struct {
	// TTL is the idle time after which a session is dropped. Zero keeps sessions forever.
	TTL time.Duration
	// New builds the value for a user without a live session.
	New func() T
	// OnEvict is called with the number of sessions dropped for idleness.
	OnEvict func(n int)
	// Now overrides the clock in tests.
	Now func() time.Time
}

type entry[T any] struct {
	mu      sync.Mutex
	value   T
	touched time.Time
	refs    int
}

// Store maps Telegram user ids to session values of type T.
type Store[T any] struct {
	opts Options[T]

	mu      sync.Mutex
	entries map[int64]*entry[T]
}

// NewStore returns an empty store.
func NewStore[T any](opts Options[T]) *Store[T] {
	if opts.New == nil {
		opts.New = func() T {
			var zero T
			return zero
		}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Store[T]{opts: opts, entries: make(map[int64]*entry[T])}
}

// Do runs fn with exclusive access to the user's session.
// Calls for the same user never overlap; calls for different users run in parallel.
func (s *Store[T]) Do(userID int64, fn func(*T) error) error {
	e, expired := s.acquire(userID)
	defer s.release(e)

	e.mu.Lock()
	defer e.mu.Unlock()
	if expired {
		e.value = s.opts.New()
		s.evicted(1)
	}
	return fn(&e.value)
}

func (s *Store[T]) acquire(userID int64) (*entry[T], bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.opts.Now()
	e, ok := s.entries[userID]
	if !ok {
		e = &entry[T]{value: s.opts.New(), touched: now}
		s.entries[userID] = e
	}
	expired := ok && e.refs == 0 && s.stale(e, now)
	e.refs++
	return e, expired
}

func (s *Store[T]) release(e *entry[T]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e.refs--
	e.touched = s.opts.Now()
}

func (s *Store[T]) stale(e *entry[T], now time.Time) bool {
	return s.opts.TTL > 0 && now.Sub(e.touched) > s.opts.TTL
}

func (s *Store[T]) evicted(n int) {
	if n > 0 && s.opts.OnEvict != nil {
		s.opts.OnEvict(n)
	}
}

// Reset drops the user's session. The next Do starts from a fresh value.
func (s *Store[T]) Reset(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[userID]; ok && e.refs == 0 {
		delete(s.entries, userID)
	}
}

// Len reports how many sessions are held.
func (s *Store[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Sweep drops idle sessions and returns how many were removed.
func (s *Store[T]) Sweep() int {
	s.mu.Lock()
	now := s.opts.Now()
	n := 0
	for id, e := range s.entries {
		if e.refs == 0 && s.stale(e, now) {
			delete(s.entries, id)
			n++
		}
	}
	s.mu.Unlock()
	s.evicted(n)
	return n
}

// Run sweeps every interval until ctx is done.
func (s *Store[T]) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 || s.opts.TTL <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.Sweep()
		}
	}
}
