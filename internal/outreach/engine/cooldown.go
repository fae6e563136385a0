package engine

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// CooldownStore remembers keys for a limited time.
type CooldownStore interface {
	// Active reports whether key is still cooling down.
	Active(ctx context.Context, key string) (bool, error)
	// Acquire starts a cooldown for key. It returns false when one was
	// already running, in which case nothing changes.
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// MemoryCooldown is a process-local CooldownStore. Expired entries are
// dropped by Prune, which Run calls periodically.
type MemoryCooldown struct {
	mu      sync.Mutex
	expires map[string]time.Time
	now     func() time.Time
}

func NewMemoryCooldown() *MemoryCooldown {
	return &MemoryCooldown{
		expires: make(map[string]time.Time),
		now:     time.Now,
	}
}

func (m *MemoryCooldown) Active(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	until, ok := m.expires[key]
	return ok && m.now().Before(until), nil
}

func (m *MemoryCooldown) Acquire(_ context.Context, key string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if until, ok := m.expires[key]; ok && now.Before(until) {
		return false, nil
	}
	m.expires[key] = now.Add(ttl)
	return true, nil
}

// Prune removes expired entries and returns how many were removed.
func (m *MemoryCooldown) Prune() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for key, until := range m.expires {
		if !now.Before(until) {
			delete(m.expires, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked keys, expired or not.
func (m *MemoryCooldown) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.expires)
}

// Run prunes on every interval until ctx is done.
func (m *MemoryCooldown) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Prune()
		}
	}
}

const redisCooldownPrefix = "outreach:cooldown:"

// RedisCooldown shares cooldowns between processes. Keys expire in Redis.
type RedisCooldown struct {
	client redis.Cmdable
}

func NewRedisCooldown(client redis.Cmdable) *RedisCooldown {
	return &RedisCooldown{client: client}
}

func (r *RedisCooldown) Active(ctx context.Context, key string) (bool, error) {
	n, err := r.client.Exists(ctx, redisCooldownPrefix+key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *RedisCooldown) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return r.client.SetNX(ctx, redisCooldownPrefix+key, time.Now().Unix(), ttl).Result()
}
