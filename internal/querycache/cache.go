// Package querycache is a keyed read-through cache for the three list
// resources the client renders: batches, job descriptions and the dashboard
// aggregate. Entries go stale only through explicit invalidation; there is
// no time-to-live.
package querycache

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"cvscreen/internal/api"
)

// Resource tags the cacheable server resources.
type Resource string

const (
	Batches   Resource = "batches"
	JDs       Resource = "jds"
	Dashboard Resource = "dashboard"
)

// Key identifies one cache entry: a resource plus its canonicalized
// pagination parameters. Unpaginated resources use zero values.
type Key struct {
	Resource Resource
	Page     int
	PageSize int
}

// Fetcher performs the underlying network reads.
type Fetcher interface {
	ListBatches(ctx context.Context, page, pageSize int) (api.BatchPage, error)
	ListJDs(ctx context.Context, page, pageSize int) (api.JDPage, error)
	Dashboard(ctx context.Context) (api.DashboardAggregate, error)
}

type entry struct {
	version uint64
	value   any
}

// Cache caches fetch results per key and de-duplicates concurrent in-flight
// requests for the same key. Invalidation bumps a per-resource version
// instead of deleting entries, so a late response from a superseded flight
// lands harmlessly under its old version.
type Cache struct {
	fetch Fetcher

	mu       sync.Mutex
	versions map[Resource]uint64
	entries  map[Key]entry
	group    singleflight.Group
}

func New(f Fetcher) *Cache {
	return &Cache{
		fetch:    f,
		versions: make(map[Resource]uint64),
		entries:  make(map[Key]entry),
	}
}

// Invalidate marks the given resources stale. The next read for any key of
// those resources refetches; reads for other resources are untouched.
// Failed mutations must not call this.
func (c *Cache) Invalidate(resources ...Resource) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range resources {
		c.versions[r]++
	}
}

// read returns the cached value for key when fresh, otherwise fetches it.
// The flight key includes the resource version so a read issued after an
// invalidation never joins a stale in-flight request.
func (c *Cache) read(ctx context.Context, key Key, fn func(context.Context) (any, error)) (any, error) {
	c.mu.Lock()
	ver := c.versions[key.Resource]
	if e, ok := c.entries[key]; ok && e.version == ver {
		c.mu.Unlock()
		return e.value, nil
	}
	c.mu.Unlock()

	flightKey := fmt.Sprintf("%s|p%d|s%d|v%d", key.Resource, key.Page, key.PageSize, ver)
	v, err, _ := c.group.Do(flightKey, func() (any, error) {
		val, err := fn(ctx)
		if err != nil {
			// Prior cached values for this key stay as they were.
			return nil, err
		}
		c.mu.Lock()
		c.entries[key] = entry{version: ver, value: val}
		c.mu.Unlock()
		return val, nil
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

// FetchBatches returns one page of batches, from cache when fresh.
func (c *Cache) FetchBatches(ctx context.Context, page, pageSize int) (api.BatchPage, error) {
	key := Key{Resource: Batches, Page: page, PageSize: pageSize}
	v, err := c.read(ctx, key, func(ctx context.Context) (any, error) {
		return c.fetch.ListBatches(ctx, page, pageSize)
	})
	if err != nil {
		return api.BatchPage{}, err
	}
	return v.(api.BatchPage), nil
}

// FetchJDs returns one page of job descriptions, from cache when fresh.
func (c *Cache) FetchJDs(ctx context.Context, page, pageSize int) (api.JDPage, error) {
	key := Key{Resource: JDs, Page: page, PageSize: pageSize}
	v, err := c.read(ctx, key, func(ctx context.Context) (any, error) {
		return c.fetch.ListJDs(ctx, page, pageSize)
	})
	if err != nil {
		return api.JDPage{}, err
	}
	return v.(api.JDPage), nil
}

// FetchDashboard returns the dashboard aggregate, from cache when fresh.
func (c *Cache) FetchDashboard(ctx context.Context) (api.DashboardAggregate, error) {
	key := Key{Resource: Dashboard}
	v, err := c.read(ctx, key, func(ctx context.Context) (any, error) {
		return c.fetch.Dashboard(ctx)
	})
	if err != nil {
		return api.DashboardAggregate{}, err
	}
	return v.(api.DashboardAggregate), nil
}

// Warm prefetches the first page of every resource concurrently. Used when
// a view needs all three at once.
func (c *Cache) Warm(ctx context.Context, page, pageSize int) error {
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := c.FetchBatches(gCtx, page, pageSize)
		return err
	})
	g.Go(func() error {
		_, err := c.FetchJDs(gCtx, page, pageSize)
		return err
	})
	g.Go(func() error {
		_, err := c.FetchDashboard(gCtx)
		return err
	})
	return g.Wait()
}
