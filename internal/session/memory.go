package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"
)

type entry[T any] struct {
	v        T
	lastSeen time.Time
}

// MemoryStore is an in-process Store. With a non-zero TTL, entries not
// read or written for TTL are dropped by Sweep.
type MemoryStore[T any] struct {
	// OnEvict, if set, receives values dropped because they expired:
	// by Get on a late read, or by the Janitor.
	OnEvict func(T)

	mu  sync.RWMutex
	m   map[string]*entry[T]
	ttl time.Duration
	now func() time.Time
}

func NewMemoryStore[T any](ttl time.Duration) *MemoryStore[T] {
	return &MemoryStore[T]{m: map[string]*entry[T]{}, ttl: ttl, now: time.Now}
}

func (s *MemoryStore[T]) Get(_ context.Context, id string) (T, bool, error) {
	var zero T
	s.mu.Lock()
	e, ok := s.m[id]
	if !ok {
		s.mu.Unlock()
		return zero, false, nil
	}
	if s.expired(e) {
		delete(s.m, id)
		s.mu.Unlock()
		s.evict(e.v)
		return zero, false, nil
	}
	e.lastSeen = s.now()
	s.mu.Unlock()
	return e.v, true, nil
}

func (s *MemoryStore[T]) Put(_ context.Context, id string, v T) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[id] = &entry[T]{v: v, lastSeen: s.now()}
	return nil
}

func (s *MemoryStore[T]) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, id)
	return nil
}

func (s *MemoryStore[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.m)
}

func (s *MemoryStore[T]) NewID() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// Sweep removes expired entries and returns their values so the caller can
// release what they hold.
func (s *MemoryStore[T]) Sweep() []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	var evicted []T
	for id, e := range s.m {
		if s.expired(e) {
			evicted = append(evicted, e.v)
			delete(s.m, id)
		}
	}
	return evicted
}

// Janitor calls Sweep every interval until ctx is done, passing each
// evicted value to OnEvict.
func (s *MemoryStore[T]) Janitor(ctx context.Context, interval time.Duration) {
	if s.ttl <= 0 || interval <= 0 {
		return
	}
	tick := time.NewTicker(interval)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			for _, v := range s.Sweep() {
				s.evict(v)
			}
		}
	}
}

func (s *MemoryStore[T]) evict(v T) {
	if s.OnEvict != nil {
		s.OnEvict(v)
	}
}

func (s *MemoryStore[T]) expired(e *entry[T]) bool {
	return s.ttl > 0 && s.now().Sub(e.lastSeen) > s.ttl
}
