package cache

import (
	"context"
	"sync"
	"time"
)

// Store is a byte-oriented key/value cache with a fixed entry TTL.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, val []byte) error
	Delete(ctx context.Context, key string) error
}

// Memory is a process-local Store.
type Memory struct {
	mu  sync.RWMutex
	ttl time.Duration
	m   map[string]entry
	now func() time.Time
}

type entry struct {
	val []byte
	exp time.Time
}

func NewMemory(ttl time.Duration) *Memory {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}

	return &Memory{
		ttl: ttl,
		m:   make(map[string]entry),
		now: time.Now,
	}
}

func (c *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	now := c.now()
	c.mu.RLock()
	e, ok := c.m[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}

	if now.After(e.exp) {
		c.evictExpired(key, now)
		return nil, false, nil
	}

	return e.val, true, nil
}

func (c *Memory) Set(_ context.Context, key string, val []byte) error {
	c.mu.Lock()
	c.m[key] = entry{val: val, exp: c.now().Add(c.ttl)}
	c.mu.Unlock()
	return nil
}

func (c *Memory) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	delete(c.m, key)
	c.mu.Unlock()
	return nil
}

// evictExpired deletes key only if the stored entry is still expired, so a
// Set that landed after the read is kept.
func (c *Memory) evictExpired(key string, now time.Time) {
	c.mu.Lock()
	if e, ok := c.m[key]; ok && now.After(e.exp) {
		delete(c.m, key)
	}
	c.mu.Unlock()
}
