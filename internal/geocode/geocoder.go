// Package geocode resolves place names to coordinates, caching answers so a
// branch is looked up at most once per validity window.
package geocode

import (
	"context"
	"log"
	"time"

	"heekkr/internal/entity"
)

const DefaultTTL = 30 * 24 * time.Hour

// Source performs the actual lookup, e.g. the Kakao Local API.
type Source interface {
	SearchKeyword(ctx context.Context, keyword string) (entity.Coordinate, error)
}

type Entry struct {
	Coordinate entity.Coordinate
	FetchedAt  time.Time
}

// Cache stores lookups by keyword. Get reports ok=false on a miss.
type Cache interface {
	Get(ctx context.Context, keyword string) (entry Entry, ok bool, err error)
	Put(ctx context.Context, keyword string, entry Entry) error
}

type Geocoder struct {
	source Source
	cache  Cache
	ttl    time.Duration
	now    func() time.Time
}

func NewGeocoder(source Source, cache Cache, ttl time.Duration) *Geocoder {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if cache == nil {
		cache = NewMemoryCache()
	}
	return &Geocoder{source: source, cache: cache, ttl: ttl, now: time.Now}
}

// Lookup returns the coordinate for keyword, or nil when it cannot be
// determined. Failures are logged and never returned.
func (g *Geocoder) Lookup(ctx context.Context, keyword string) *entity.Coordinate {
	if keyword == "" {
		return nil
	}

	entry, ok, err := g.cache.Get(ctx, keyword)
	if err != nil {
		log.Printf("geocode: cache read failed keyword=%q err=%v", keyword, err)
	}
	if ok && g.now().Sub(entry.FetchedAt) < g.ttl {
		c := entry.Coordinate
		return &c
	}

	if g.source == nil {
		return nil
	}
	coord, err := g.source.SearchKeyword(ctx, keyword)
	if err != nil {
		log.Printf("geocode: lookup failed keyword=%q err=%v", keyword, err)
		return nil
	}

	if err := g.cache.Put(ctx, keyword, Entry{Coordinate: coord, FetchedAt: g.now()}); err != nil {
		log.Printf("geocode: cache write failed keyword=%q err=%v", keyword, err)
	}
	return &coord
}
