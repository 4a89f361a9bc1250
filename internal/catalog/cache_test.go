package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/voltroute/voltroute/internal/models"
)

type fakeFetcher struct {
	catalog models.Catalog
	err     error
	calls   int
}

func (f *fakeFetcher) FetchCatalog(ctx context.Context) (models.Catalog, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.catalog, nil
}

func testCatalog() models.Catalog {
	return models.Catalog{
		"Tata": {
			"Nexon EV": {BatteryCapacity: 40.5, Range: 465},
			"Tiago EV": {BatteryCapacity: 24, Range: 315},
		},
		"Mahindra": {
			"XUV400": {BatteryCapacity: 39.4, Range: 456},
		},
	}
}

func TestCacheFetchesOnce(t *testing.T) {
	fetcher := &fakeFetcher{catalog: testCatalog()}
	cache := NewCache(fetcher, time.Hour, zap.NewNop())
	ctx := context.Background()

	cache.Load(ctx)
	cache.Load(ctx)
	cache.Companies(ctx)

	if fetcher.calls != 1 {
		t.Errorf("fetched %d times within TTL, want 1", fetcher.calls)
	}
}

func TestCacheCompaniesAndModelsSorted(t *testing.T) {
	cache := NewCache(&fakeFetcher{catalog: testCatalog()}, time.Hour, zap.NewNop())
	ctx := context.Background()

	companies := cache.Companies(ctx)
	if len(companies) != 2 || companies[0] != "Mahindra" || companies[1] != "Tata" {
		t.Errorf("companies = %v", companies)
	}

	names := cache.Models(ctx, "Tata")
	if len(names) != 2 || names[0] != "Nexon EV" || names[1] != "Tiago EV" {
		t.Errorf("models = %v", names)
	}

	if got := cache.Models(ctx, "Nope"); got != nil {
		t.Errorf("unknown company models = %v, want nil", got)
	}
}

func TestCacheSpecsAndValidity(t *testing.T) {
	cache := NewCache(&fakeFetcher{catalog: testCatalog()}, time.Hour, zap.NewNop())
	ctx := context.Background()

	specs, ok := cache.SpecsFor(ctx, "Tata", "Nexon EV")
	if !ok || specs.BatteryCapacity != 40.5 || specs.Range != 465 {
		t.Errorf("specs = %+v ok=%v", specs, ok)
	}

	// A model selected before the company changed is now stale.
	if cache.Valid(ctx, "Mahindra", "Nexon EV") {
		t.Error("stale (company, model) pair reported valid")
	}
	if !cache.Valid(ctx, "Mahindra", "XUV400") {
		t.Error("valid pair reported invalid")
	}
}

func TestCacheFetchFailureLeavesCacheEmpty(t *testing.T) {
	fetcher := &fakeFetcher{err: errors.New("connection refused")}
	cache := NewCache(fetcher, time.Hour, zap.NewNop())
	ctx := context.Background()

	if got := cache.Load(ctx); got != nil {
		t.Errorf("catalog = %v, want nil after failed fetch", got)
	}
	if got := cache.Companies(ctx); len(got) != 0 {
		t.Errorf("companies = %v, want empty", got)
	}
}

func TestCacheFetchFailureKeepsStaleCatalog(t *testing.T) {
	fetcher := &fakeFetcher{catalog: testCatalog()}
	cache := NewCache(fetcher, time.Nanosecond, zap.NewNop())
	ctx := context.Background()

	cache.Load(ctx)
	time.Sleep(time.Millisecond)

	fetcher.err = errors.New("connection refused")
	got := cache.Load(ctx)
	if len(got) != 2 {
		t.Errorf("stale catalog dropped on failed refresh: %v", got)
	}
}
