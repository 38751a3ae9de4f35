package limiter

import (
	"context"
	"sync"
	"time"
)

// Memory is the single-instance limiter used when no redis is configured.
type Memory struct {
	cfg Config
	now func() time.Time

	mu      sync.Mutex
	entries map[string]*memoryEntry
}

type memoryEntry struct {
	count     int
	expiresAt time.Time
}

func NewMemory(cfg Config) *Memory {
	return &Memory{
		cfg:     cfg.withDefaults(),
		now:     time.Now,
		entries: make(map[string]*memoryEntry),
	}
}

// entry returns the live entry for key, dropping it if its window has passed.
// Caller holds mu.
func (l *Memory) entry(key string) *memoryEntry {
	e, ok := l.entries[key]
	if !ok {
		return nil
	}
	if !l.now().Before(e.expiresAt) {
		delete(l.entries, key)
		return nil
	}
	return e
}

func (l *Memory) Check(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if e := l.entry(key); e != nil && e.count >= l.cfg.MaxAttempts {
		return ErrLimited
	}
	return nil
}

func (l *Memory) RecordFailure(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	e := l.entry(key)
	if e == nil {
		e = &memoryEntry{expiresAt: l.now().Add(l.cfg.Window)}
		l.entries[key] = e
	}
	e.count++
	if e.count >= l.cfg.MaxAttempts {
		return ErrLimited
	}
	return nil
}

func (l *Memory) Reset(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, key)
	return nil
}

// Prune drops expired entries; the housekeeping loop calls it so abandoned
// keys don't accumulate.
func (l *Memory) Prune() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	n := 0
	now := l.now()
	for k, e := range l.entries {
		if !now.Before(e.expiresAt) {
			delete(l.entries, k)
			n++
		}
	}
	return n
}
