// Package federation fans a client request out to every relevant resolver
// and merges what comes back.
//
// Each resolver runs in its own goroutine under its own deadline. A resolver
// that errors, panics or overruns contributes nothing and the rest of the
// request carries on. Workers never share mutable state: each hands its
// result to the single channel of the call that launched it.
package federation

import (
	"context"
	"time"

	"heekkr/internal/entity"
)

const (
	DefaultListTimeout        = 5 * time.Second
	DefaultSearchTimeout      = 15 * time.Second
	DefaultGeocodeConcurrency = 8
)

// SearchResponse is one resolver's batch of a streamed search.
type SearchResponse struct {
	ResolverID string                `json:"resolver_id"`
	Entities   []entity.SearchEntity `json:"entities"`
}

// Geocoder enriches libraries of resolvers implementing resolver.Locator.
type Geocoder interface {
	Lookup(ctx context.Context, keyword string) *entity.Coordinate
}

type Options struct {
	ListTimeout        time.Duration
	SearchTimeout      time.Duration
	Geocoder           Geocoder
	GeocodeConcurrency int
}

func (o Options) withDefaults() Options {
	if o.ListTimeout <= 0 {
		o.ListTimeout = DefaultListTimeout
	}
	if o.SearchTimeout <= 0 {
		o.SearchTimeout = DefaultSearchTimeout
	}
	if o.GeocodeConcurrency <= 0 {
		o.GeocodeConcurrency = DefaultGeocodeConcurrency
	}
	return o
}
