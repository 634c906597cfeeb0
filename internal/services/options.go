package services

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"ausflug-backend/internal/models"

	"golang.org/x/sync/singleflight"
)

// RegionSource loads the region list of one country
type RegionSource interface {
	Regions(ctx context.Context, country string) ([]models.Option, error)
}

// StaticRegions serves the built-in region tables
type StaticRegions struct{}

// Regions returns the built-in regions of country
func (StaticRegions) Regions(_ context.Context, country string) ([]models.Option, error) {
	regions, ok := models.Regions[country]
	if !ok {
		return nil, fmt.Errorf("%w: unknown country %s", ErrNotFound, country)
	}
	return regions, nil
}

// RegionDirectory caches region lists per country until invalidated.
// Concurrent lookups of the same uncached country share one load.
type RegionDirectory struct {
	source RegionSource
	group  singleflight.Group

	mu    sync.RWMutex
	cache map[string][]models.Option
}

// NewRegionDirectory creates a directory over source
func NewRegionDirectory(source RegionSource) *RegionDirectory {
	return &RegionDirectory{
		source: source,
		cache:  make(map[string][]models.Option),
	}
}

// Lookup returns the regions of a country code
func (d *RegionDirectory) Lookup(ctx context.Context, country string) ([]models.Option, error) {
	country = strings.ToUpper(strings.TrimSpace(country))

	d.mu.RLock()
	regions, ok := d.cache[country]
	d.mu.RUnlock()
	if ok {
		return regions, nil
	}

	v, err, _ := d.group.Do(country, func() (interface{}, error) {
		regions, err := d.source.Regions(ctx, country)
		if err != nil {
			return nil, err
		}
		d.mu.Lock()
		d.cache[country] = regions
		d.mu.Unlock()
		return regions, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]models.Option), nil
}

// Invalidate drops the cached regions of country
func (d *RegionDirectory) Invalidate(country string) {
	country = strings.ToUpper(strings.TrimSpace(country))
	d.mu.Lock()
	delete(d.cache, country)
	d.mu.Unlock()
}

// Cantons returns the Swiss cantons
func (d *RegionDirectory) Cantons(ctx context.Context) ([]models.Option, error) {
	return d.Lookup(ctx, models.DefaultCountry)
}
