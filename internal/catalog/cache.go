// Package catalog caches the company/model -> specification mapping that
// drives the cascading vehicle selectors.
package catalog

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/voltroute/voltroute/internal/models"
)

// Fetcher loads the catalog from the remote API.
type Fetcher interface {
	FetchCatalog(ctx context.Context) (models.Catalog, error)
}

// Cache holds the catalog in memory, refreshing lazily after the TTL
// expires. A failed fetch is logged and leaves the cache as it was: the
// selectors stay empty (or stale) but the service remains usable.
type Cache struct {
	fetcher Fetcher
	logger  *zap.Logger
	ttl     time.Duration

	mu        sync.RWMutex
	catalog   models.Catalog
	fetchedAt time.Time
}

// NewCache creates a cache over the given fetcher.
func NewCache(fetcher Fetcher, ttl time.Duration, logger *zap.Logger) *Cache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Cache{
		fetcher: fetcher,
		logger:  logger,
		ttl:     ttl,
	}
}

// Load returns the current catalog, fetching it when empty or expired.
func (c *Cache) Load(ctx context.Context) models.Catalog {
	c.mu.RLock()
	catalog := c.catalog
	fresh := catalog != nil && time.Since(c.fetchedAt) < c.ttl
	c.mu.RUnlock()

	if fresh {
		return catalog
	}

	fetched, err := c.fetcher.FetchCatalog(ctx)
	if err != nil {
		// Recoverable: keep whatever we had.
		c.logger.Error("Failed to load vehicle catalog", zap.Error(err))
		return catalog
	}

	c.mu.Lock()
	c.catalog = fetched
	c.fetchedAt = time.Now()
	c.mu.Unlock()

	return fetched
}

// Companies lists the known companies, sorted.
func (c *Cache) Companies(ctx context.Context) []string {
	catalog := c.Load(ctx)

	companies := make([]string, 0, len(catalog))
	for company := range catalog {
		companies = append(companies, company)
	}
	sort.Strings(companies)
	return companies
}

// Models lists the models for a company, sorted. Unknown companies yield
// an empty list; dependent selectors reset to their placeholder state.
func (c *Cache) Models(ctx context.Context, company string) []string {
	catalog := c.Load(ctx)

	entries, ok := catalog[company]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(entries))
	for model := range entries {
		names = append(names, model)
	}
	sort.Strings(names)
	return names
}

// SpecsFor returns the specs for a (company, model) pair.
func (c *Cache) SpecsFor(ctx context.Context, company, model string) (models.VehicleSpecs, bool) {
	catalog := c.Load(ctx)

	entries, ok := catalog[company]
	if !ok {
		return models.VehicleSpecs{}, false
	}
	specs, ok := entries[model]
	return specs, ok
}

// Valid reports whether the pair still exists, so a model selected before
// a company change can be detected as stale.
func (c *Cache) Valid(ctx context.Context, company, model string) bool {
	_, ok := c.SpecsFor(ctx, company, model)
	return ok
}
