package catalog

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// DefaultTTL is how long a snapshot is served without contacting upstream.
const DefaultTTL = time.Hour

// SnapshotMirror keeps a copy of the last good snapshot outside the process.
type SnapshotMirror interface {
	Save(ctx context.Context, s *Snapshot) error
	// Load returns nil, nil when nothing is stored.
	Load(ctx context.Context) (*Snapshot, error)
}

// CacheOptions configures a Cache.
type CacheOptions struct {
	TTL    time.Duration
	Mirror SnapshotMirror
	Now    func() time.Time
}

// Cache holds the single catalog snapshot. Reads are lock-free; refreshes
// are serialized so at most one upstream fetch is in flight, and callers
// that waited on a refresh reuse its outcome instead of fetching again.
type Cache struct {
	upstream Upstream
	mirror   SnapshotMirror
	ttl      time.Duration
	now      func() time.Time
	logger   *zap.Logger

	snapshot atomic.Pointer[Snapshot]
	attempts atomic.Uint64

	refreshMu sync.Mutex
	lastErr   error
}

// NewCache creates an empty cache; the first Get fetches from upstream.
func NewCache(upstream Upstream, opts CacheOptions, logger *zap.Logger) *Cache {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Cache{
		upstream: upstream,
		mirror:   opts.Mirror,
		ttl:      opts.TTL,
		now:      opts.Now,
		logger:   logger,
	}
}

// Get returns the current snapshot, refreshing it when older than the TTL.
// A failed refresh falls back to the previous snapshot; ErrUpstreamUnavailable
// is returned only when there is none.
func (c *Cache) Get(ctx context.Context) (*Snapshot, error) {
	if s := c.snapshot.Load(); s != nil && c.fresh(s) {
		return s, nil
	}

	seen := c.attempts.Load()
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	if s := c.snapshot.Load(); s != nil && c.fresh(s) {
		return s, nil
	}
	// Another caller attempted a refresh while we waited.
	if c.attempts.Load() != seen {
		if s := c.snapshot.Load(); s != nil {
			return s, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, c.lastErr)
	}
	return c.refreshLocked(ctx)
}

// Invalidate forces the next Get to refresh.
func (c *Cache) Invalidate() {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()
	if s := c.snapshot.Load(); s != nil {
		stale := *s
		stale.FetchedAt = time.Time{}
		c.snapshot.Store(&stale)
	}
}

func (c *Cache) fresh(s *Snapshot) bool {
	return c.now().Sub(s.FetchedAt) < c.ttl
}

func (c *Cache) refreshLocked(ctx context.Context) (*Snapshot, error) {
	defer c.attempts.Add(1)

	levels, err := c.upstream.FetchPrograms(ctx)
	if err == nil {
		s := &Snapshot{Levels: levels, FetchedAt: c.now()}
		c.snapshot.Store(s)
		c.lastErr = nil
		c.logger.Info("catalog snapshot refreshed", zap.Int("programs", len(s.Programs())))
		c.saveMirror(ctx, s)
		return s, nil
	}

	c.lastErr = err
	if prev := c.snapshot.Load(); prev != nil {
		c.logger.Warn("catalog refresh failed, serving stale snapshot",
			zap.Time("fetched_at", prev.FetchedAt), zap.Error(err))
		return prev, nil
	}

	if mirrored := c.loadMirror(ctx); mirrored != nil {
		c.logger.Warn("catalog refresh failed, serving mirrored snapshot",
			zap.Time("fetched_at", mirrored.FetchedAt), zap.Error(err))
		c.snapshot.Store(mirrored)
		return mirrored, nil
	}

	c.logger.Error("catalog unavailable", zap.Error(err))
	return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
}

func (c *Cache) saveMirror(ctx context.Context, s *Snapshot) {
	if c.mirror == nil {
		return
	}
	if err := c.mirror.Save(ctx, s); err != nil {
		c.logger.Warn("catalog mirror save failed", zap.Error(err))
	}
}

func (c *Cache) loadMirror(ctx context.Context) *Snapshot {
	if c.mirror == nil {
		return nil
	}
	s, err := c.mirror.Load(ctx)
	if err != nil {
		c.logger.Warn("catalog mirror load failed", zap.Error(err))
		return nil
	}
	return s
}
