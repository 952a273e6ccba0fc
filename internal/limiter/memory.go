package limiter

import (
	"context"
	"sync"
	"time"
)

const memorySweepInterval = 5 * time.Minute

type memoryEntry struct {
	fails        int
	updatedAt    time.Time
	blockedUntil time.Time
}

// Memory is a process-local limiter. A background goroutine drops stale entries
// until Close is called.
type Memory struct {
	policy Policy
	now    func() time.Time

	mu      sync.Mutex
	entries map[string]memoryEntry

	stopCh chan struct{}
	done   chan struct{}
	once   sync.Once
}

// NewMemory constructs an in-memory limiter and starts its sweeper.
func NewMemory(p Policy) *Memory {
	return newMemory(p, time.Now, memorySweepInterval)
}

func newMemory(p Policy, now func() time.Time, sweep time.Duration) *Memory {
	m := &Memory{
		policy:  p,
		now:     now,
		entries: make(map[string]memoryEntry),
		stopCh:  make(chan struct{}),
		done:    make(chan struct{}),
	}
	go m.sweepLoop(sweep)
	return m
}

func memoryKey(username string, ipHash []byte) string {
	return username + "\x00" + string(ipHash)
}

// Allow reports whether login is currently allowed and a retry-after duration.
func (m *Memory) Allow(_ context.Context, username string, ipHash []byte) (bool, time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[memoryKey(username, ipHash)]
	if !ok {
		return true, 0, nil
	}
	if d := e.blockedUntil.Sub(m.now()); d > 0 {
		return false, d, nil
	}
	return true, 0, nil
}

// Success resets counters for (username, ip).
func (m *Memory) Success(_ context.Context, username string, ipHash []byte) error {
	m.mu.Lock()
	delete(m.entries, memoryKey(username, ipHash))
	m.mu.Unlock()
	return nil
}

// Failure records a failed attempt; may set a block until a future time.
func (m *Memory) Failure(_ context.Context, username string, ipHash []byte) (bool, time.Duration, error) {
	now := m.now()
	key := memoryKey(username, ipHash)

	m.mu.Lock()
	defer m.mu.Unlock()

	e := m.entries[key]
	if now.Sub(e.updatedAt) > m.policy.Window {
		e.fails = 0
	}
	e.fails++
	e.updatedAt = now
	blocked := e.fails >= m.policy.MaxFails
	if blocked {
		e.blockedUntil = now.Add(m.policy.BlockFor)
	}
	m.entries[key] = e
	if blocked {
		return true, m.policy.BlockFor, nil
	}
	return false, 0, nil
}

func (m *Memory) sweepLoop(every time.Duration) {
	defer close(m.done)
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.cleanup(m.now())
		case <-m.stopCh:
			return
		}
	}
}

func (m *Memory) cleanup(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, e := range m.entries {
		if now.Sub(e.updatedAt) > m.policy.Window && !now.Before(e.blockedUntil) {
			delete(m.entries, key)
		}
	}
}

// Close stops the sweeper and waits for it to exit.
func (m *Memory) Close() {
	m.once.Do(func() { close(m.stopCh) })
	<-m.done
}
