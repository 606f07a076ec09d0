package query

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rustyeddy/stockwatch/housewatch"
	"github.com/rustyeddy/stockwatch/metrics"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// DefaultTTL is the staleness threshold of the dataset cache.
const DefaultTTL = 5 * time.Minute

// Source produces a full dataset. *housewatch.Client implements it.
type Source interface {
	FetchTransactions(ctx context.Context) ([]housewatch.Trade, error)
}

// Cache holds the last successfully fetched dataset in a single slot.
//
// A dataset older than the TTL is never returned; the caller that notices it
// refreshes. A failed refresh leaves the slot untouched so the next caller
// tries again. Concurrent callers that miss share one in-flight fetch.
//
// Returned slices are shared between callers and must not be modified.
type Cache struct {
	src     Source
	ttl     time.Duration
	now     func() time.Time
	log     *zap.Logger
	metrics *metrics.Metrics

	mu        sync.RWMutex
	dataset   []housewatch.Trade
	fetchedAt time.Time
	loaded    bool

	group singleflight.Group
}

type CacheOption func(*Cache)

func WithTTL(d time.Duration) CacheOption {
	return func(c *Cache) {
		if d > 0 {
			c.ttl = d
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) CacheOption {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

func WithCacheLogger(l *zap.Logger) CacheOption {
	return func(c *Cache) {
		if l != nil {
			c.log = l
		}
	}
}

func WithCacheMetrics(m *metrics.Metrics) CacheOption {
	return func(c *Cache) {
		c.metrics = m
	}
}

func NewCache(src Source, opts ...CacheOption) *Cache {
	c := &Cache{
		src: src,
		ttl: DefaultTTL,
		now: time.Now,
		log: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TTL returns the staleness threshold.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// Dataset returns the cached dataset, refreshing it when it is missing or
// older than the TTL.
func (c *Cache) Dataset(ctx context.Context) ([]housewatch.Trade, error) {
	if ds, ok := c.fresh(); ok {
		c.metrics.CacheHit()
		return ds, nil
	}
	c.metrics.CacheMiss()

	// The shared fetch outlives any single caller; the feed client's own
	// timeout bounds it.
	flight := c.group.DoChan("dataset", func() (any, error) {
		if ds, ok := c.fresh(); ok {
			return ds, nil
		}
		return c.refresh(context.WithoutCancel(ctx))
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-flight:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]housewatch.Trade), nil
	}
}

// Invalidate empties the slot so the next call fetches.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dataset = nil
	c.fetchedAt = time.Time{}
	c.loaded = false
}

// FetchedAt reports when the cached dataset was fetched and whether one is
// held at all.
func (c *Cache) FetchedAt() (time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.fetchedAt, c.loaded
}

func (c *Cache) fresh() ([]housewatch.Trade, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.loaded || c.now().Sub(c.fetchedAt) > c.ttl {
		return nil, false
	}
	return c.dataset, true
}

func (c *Cache) refresh(ctx context.Context) ([]housewatch.Trade, error) {
	start := c.now()
	ds, err := c.src.FetchTransactions(ctx)
	elapsed := c.now().Sub(start)
	if err != nil {
		c.metrics.ObserveFetch(fetchOutcome(err), elapsed)
		c.log.Warn("dataset refresh failed", zap.Error(err), zap.Duration("elapsed", elapsed))
		return nil, err
	}
	if ds == nil {
		ds = []housewatch.Trade{}
	}

	c.mu.Lock()
	c.dataset = ds
	c.fetchedAt = c.now()
	c.loaded = true
	c.mu.Unlock()

	c.metrics.ObserveFetch("ok", elapsed)
	c.log.Info("dataset refreshed", zap.Int("records", len(ds)), zap.Duration("elapsed", elapsed))
	return ds, nil
}

func fetchOutcome(err error) string {
	var fe *housewatch.FetchError
	if errors.As(err, &fe) {
		return fe.Kind.String()
	}
	return "error"
}
