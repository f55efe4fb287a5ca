package pool

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Key identifies a pool bucket. Sandboxes are only reusable for the same
// image and network setting; a warm sandbox with networking off must never
// serve a function that expects networking on.
type Key struct {
	Image          string
	NetworkEnabled bool
}

// String renders the stats form "image|net=bool".
func (k Key) String() string {
	return fmt.Sprintf("%s|net=%t", k.Image, k.NetworkEnabled)
}

// Destroyer disposes of sandboxes the pool no longer wants.
type Destroyer interface {
	DestroySandbox(ctx context.Context, id string) error
}

// Config tunes the warm pool. Zero values use the defaults.
type Config struct {
	MaxSize      int
	IdleTimeout  time.Duration
	ReapInterval time.Duration
}

const (
	defaultMaxSize      = 10
	defaultIdleTimeout  = 5 * time.Minute
	defaultReapInterval = 30 * time.Second
)

type entry struct {
	id        string
	idleSince time.Time
}

// Pool keeps warm sandboxes ready for reuse, bucketed by Key. Within a
// bucket the most recently released sandbox is handed out first. When the
// pool is full, the globally oldest idle sandbox is evicted regardless of
// its bucket. Sandboxes are always destroyed outside the lock so a slow
// engine call never blocks acquires.
type Pool struct {
	destroyer Destroyer

	maxSize      int
	idleTimeout  time.Duration
	reapInterval time.Duration

	mu      sync.Mutex
	entries map[Key][]entry
	size    int
	closed  bool
}

// New creates a Pool. Call Run in a goroutine to start the idle reaper.
func New(d Destroyer, cfg Config) *Pool {
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = defaultMaxSize
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = defaultIdleTimeout
	}
	if cfg.ReapInterval <= 0 {
		cfg.ReapInterval = defaultReapInterval
	}
	return &Pool{
		destroyer:    d,
		maxSize:      cfg.MaxSize,
		idleTimeout:  cfg.IdleTimeout,
		reapInterval: cfg.ReapInterval,
		entries:      make(map[Key][]entry),
	}
}

// Acquire pops the most recently released sandbox for key. The sandbox is
// handed out as-is: if it died while idle, the exec will fail and the
// caller destroys it then.
func (p *Pool) Acquire(key Key) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	list := p.entries[key]
	if len(list) == 0 {
		return "", false
	}
	e := list[len(list)-1]
	list = list[:len(list)-1]
	if len(list) == 0 {
		delete(p.entries, key)
	} else {
		p.entries[key] = list
	}
	p.size--
	return e.id, true
}

// Release returns a sandbox to the pool. When the pool is full, the
// globally oldest idle sandbox is evicted to make room. After Shutdown
// the sandbox is destroyed instead of pooled.
func (p *Pool) Release(key Key, id string) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		p.destroy(id)
		return
	}

	var evicted string
	if p.size >= p.maxSize {
		evicted = p.evictOldestLocked()
	}
	p.entries[key] = append(p.entries[key], entry{id: id, idleSince: time.Now()})
	p.size++
	p.mu.Unlock()

	if evicted != "" {
		p.destroy(evicted)
	}
}

// evictOldestLocked removes the entry with the oldest idleSince across
// all keys and returns its id. Caller holds the lock.
func (p *Pool) evictOldestLocked() string {
	var oldestKey Key
	oldestIdx := -1
	var oldest time.Time
	for k, list := range p.entries {
		for i, e := range list {
			if oldestIdx == -1 || e.idleSince.Before(oldest) {
				oldestKey, oldestIdx, oldest = k, i, e.idleSince
			}
		}
	}
	if oldestIdx == -1 {
		return ""
	}
	list := p.entries[oldestKey]
	id := list[oldestIdx].id
	list = append(list[:oldestIdx], list[oldestIdx+1:]...)
	if len(list) == 0 {
		delete(p.entries, oldestKey)
	} else {
		p.entries[oldestKey] = list
	}
	p.size--
	return id
}

// Reap destroys every sandbox that has sat idle longer than the idle
// timeout and drops emptied buckets.
func (p *Pool) Reap() {
	now := time.Now()

	p.mu.Lock()
	var evicted []string
	for k, list := range p.entries {
		kept := list[:0]
		for _, e := range list {
			if now.Sub(e.idleSince) > p.idleTimeout {
				evicted = append(evicted, e.id)
			} else {
				kept = append(kept, e)
			}
		}
		if len(kept) == 0 {
			delete(p.entries, k)
		} else {
			p.entries[k] = kept
		}
		p.size -= len(list) - len(kept)
	}
	p.mu.Unlock()

	for _, id := range evicted {
		p.destroy(id)
	}
	if len(evicted) > 0 {
		zap.L().Debug("reaped idle sandboxes", zap.Int("count", len(evicted)))
	}
}

// Run reaps on the configured interval until ctx is cancelled.
func (p *Pool) Run(ctx context.Context) {
	ticker := time.NewTicker(p.reapInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Reap()
		}
	}
}

// Stats returns the idle sandbox count per "image|net=bool" key.
func (p *Pool) Stats() map[string]int {
	p.mu.Lock()
	defer p.mu.Unlock()
	stats := make(map[string]int, len(p.entries))
	for k, list := range p.entries {
		stats[k.String()] = len(list)
	}
	return stats
}

// Size returns the total number of idle sandboxes.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.size
}

// Max returns the configured capacity.
func (p *Pool) Max() int {
	return p.maxSize
}

// Shutdown drains and destroys every pooled sandbox. Safe to call more
// than once; a Release racing with Shutdown destroys its sandbox instead
// of re-pooling it.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	var ids []string
	for _, list := range p.entries {
		for _, e := range list {
			ids = append(ids, e.id)
		}
	}
	p.entries = make(map[Key][]entry)
	p.size = 0
	p.mu.Unlock()

	for _, id := range ids {
		p.destroy(id)
	}
}

// destroy disposes of a sandbox, detached from any request context.
func (p *Pool) destroy(id string) {
	if err := p.destroyer.DestroySandbox(context.Background(), id); err != nil {
		zap.L().Warn("failed to destroy sandbox", zap.String("id", id), zap.Error(err))
	}
}
