package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Memory is a process-local Admitter.  A single mutex guards the map; at
// the request rates of a dining room contention is not a concern.
type Memory struct {
	mu   sync.Mutex
	last map[string]time.Time
	now  func() time.Time
}

// NewMemory returns an empty in-memory admitter using the wall clock.
func NewMemory() *Memory {
	return &Memory{last: make(map[string]time.Time), now: time.Now}
}

// Admit admits key when it was never admitted or its last admission is at
// least window old.  Admitted entries are evicted once window has passed
// unless the key was admitted again in the meantime.
func (m *Memory) Admit(_ context.Context, key string, window time.Duration) (Decision, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if prev, ok := m.last[key]; ok {
		if elapsed := now.Sub(prev); elapsed < window {
			return Decision{RetryAfter: retryAfter(window - elapsed)}, nil
		}
	}
	m.last[key] = now
	time.AfterFunc(window, func() { m.evict(key, now) })
	return Decision{Allowed: true}, nil
}

func (m *Memory) evict(key string, stamp time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.last[key]; ok && cur.Equal(stamp) {
		delete(m.last, key)
	}
}

// Len returns the number of tracked keys.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.last)
}
