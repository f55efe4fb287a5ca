package pool_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clowdy/internal/pool"
)

type fakeDestroyer struct {
	mu        sync.Mutex
	destroyed []string
}

func (f *fakeDestroyer) DestroySandbox(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.destroyed = append(f.destroyed, id)
	return nil
}

func (f *fakeDestroyer) ids() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.destroyed...)
}

func TestAcquire_EmptyPool(t *testing.T) {
	p := pool.New(&fakeDestroyer{}, pool.Config{})
	_, ok := p.Acquire(pool.Key{Image: "img"})
	assert.False(t, ok)
}

func TestReleaseAcquire_LIFO(t *testing.T) {
	p := pool.New(&fakeDestroyer{}, pool.Config{})
	key := pool.Key{Image: "img"}

	p.Release(key, "a")
	time.Sleep(time.Millisecond)
	p.Release(key, "b")

	id, ok := p.Acquire(key)
	require.True(t, ok)
	assert.Equal(t, "b", id)

	id, ok = p.Acquire(key)
	require.True(t, ok)
	assert.Equal(t, "a", id)

	_, ok = p.Acquire(key)
	assert.False(t, ok)
}

func TestAcquire_KeysDoNotMix(t *testing.T) {
	p := pool.New(&fakeDestroyer{}, pool.Config{})

	p.Release(pool.Key{Image: "img", NetworkEnabled: false}, "no-net")

	_, ok := p.Acquire(pool.Key{Image: "img", NetworkEnabled: true})
	assert.False(t, ok)
	_, ok = p.Acquire(pool.Key{Image: "other", NetworkEnabled: false})
	assert.False(t, ok)

	id, ok := p.Acquire(pool.Key{Image: "img", NetworkEnabled: false})
	require.True(t, ok)
	assert.Equal(t, "no-net", id)
}

func TestRelease_EvictsGlobalOldestWhenFull(t *testing.T) {
	d := &fakeDestroyer{}
	p := pool.New(d, pool.Config{MaxSize: 2})

	p.Release(pool.Key{Image: "a"}, "oldest")
	time.Sleep(time.Millisecond)
	p.Release(pool.Key{Image: "b"}, "middle")
	time.Sleep(time.Millisecond)
	p.Release(pool.Key{Image: "a"}, "newest")

	assert.Equal(t, []string{"oldest"}, d.ids())
	assert.Equal(t, 2, p.Size())

	// The eviction crossed buckets: "b" kept its entry.
	id, ok := p.Acquire(pool.Key{Image: "b"})
	require.True(t, ok)
	assert.Equal(t, "middle", id)
}

func TestRelease_CapNeverExceeded(t *testing.T) {
	d := &fakeDestroyer{}
	p := pool.New(d, pool.Config{MaxSize: 10})

	for i := 0; i < 25; i++ {
		p.Release(pool.Key{Image: "img"}, string(rune('a'+i)))
	}

	assert.Equal(t, 10, p.Size())
	assert.Len(t, d.ids(), 15)
}

func TestReap_OnlyExpiredEntries(t *testing.T) {
	d := &fakeDestroyer{}
	p := pool.New(d, pool.Config{IdleTimeout: 50 * time.Millisecond})
	key := pool.Key{Image: "img"}

	p.Release(key, "stale")
	time.Sleep(70 * time.Millisecond)
	p.Release(key, "fresh")

	p.Reap()

	assert.Equal(t, []string{"stale"}, d.ids())
	id, ok := p.Acquire(key)
	require.True(t, ok)
	assert.Equal(t, "fresh", id)
}

func TestReap_DropsEmptyBuckets(t *testing.T) {
	d := &fakeDestroyer{}
	p := pool.New(d, pool.Config{IdleTimeout: 10 * time.Millisecond})

	p.Release(pool.Key{Image: "img"}, "only")
	time.Sleep(30 * time.Millisecond)
	p.Reap()

	assert.Empty(t, p.Stats())
	assert.Equal(t, 0, p.Size())
}

func TestStats_KeyFormat(t *testing.T) {
	p := pool.New(&fakeDestroyer{}, pool.Config{})

	p.Release(pool.Key{Image: "clowdy-python-runtime", NetworkEnabled: false}, "a")
	p.Release(pool.Key{Image: "clowdy-python-runtime", NetworkEnabled: false}, "b")
	p.Release(pool.Key{Image: "clowdy-project-x:12ab34cd", NetworkEnabled: true}, "c")

	stats := p.Stats()
	assert.Equal(t, map[string]int{
		"clowdy-python-runtime|net=false":    2,
		"clowdy-project-x:12ab34cd|net=true": 1,
	}, stats)
}

func TestShutdown_DrainsAndIsIdempotent(t *testing.T) {
	d := &fakeDestroyer{}
	p := pool.New(d, pool.Config{})

	p.Release(pool.Key{Image: "a"}, "one")
	p.Release(pool.Key{Image: "b"}, "two")

	p.Shutdown()
	assert.ElementsMatch(t, []string{"one", "two"}, d.ids())
	assert.Equal(t, 0, p.Size())

	p.Shutdown()
	assert.Len(t, d.ids(), 2)

	// A release after shutdown must not re-pool the sandbox.
	p.Release(pool.Key{Image: "a"}, "late")
	assert.Equal(t, 0, p.Size())
	assert.Contains(t, d.ids(), "late")
}

func TestRun_ReapsOnInterval(t *testing.T) {
	d := &fakeDestroyer{}
	p := pool.New(d, pool.Config{IdleTimeout: 10 * time.Millisecond, ReapInterval: 20 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	p.Release(pool.Key{Image: "img"}, "idle")
	time.Sleep(100 * time.Millisecond)

	assert.Equal(t, []string{"idle"}, d.ids())
}
