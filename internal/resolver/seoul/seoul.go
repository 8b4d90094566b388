// Package seoul registers the Seoul district library networks served by
// this deployment.
package seoul

import (
	"fmt"

	"heekkr/internal/config"
	ecoapi "heekkr/internal/platform/eco"
	"heekkr/internal/resolver"
	"heekkr/internal/resolver/eco"
)

const (
	SeochoID = "seoul-seocho"
	NowonID  = "seoul-nowon"
)

type Backend struct {
	ID           string
	BaseURL      string
	SearchPrefix string
}

func Backends(cfg config.Config) []Backend {
	return []Backend{
		{ID: SeochoID, BaseURL: cfg.SeochoBaseURL, SearchPrefix: "서울특별시 서초구"},
		{ID: NowonID, BaseURL: cfg.NowonBaseURL, SearchPrefix: "서울특별시 노원구"},
	}
}

// Resolvers builds one eco resolver per backend, in registration order.
func Resolvers(cfg config.Config) ([]resolver.Resolver, error) {
	opts := ecoapi.Options{
		UserAgent:   cfg.UserAgent,
		RPS:         cfg.UpstreamRPS,
		MaxRetries:  cfg.UpstreamMaxRetries,
		InsecureTLS: cfg.EcoInsecureTLS,
	}

	backends := Backends(cfg)
	resolvers := make([]resolver.Resolver, 0, len(backends))
	for _, b := range backends {
		client, err := ecoapi.NewClient(b.ID, b.BaseURL, opts)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", b.ID, err)
		}
		resolvers = append(resolvers, eco.New(b.ID, b.SearchPrefix, client))
	}
	return resolvers, nil
}

func NewRegistry(cfg config.Config) (*resolver.StaticRegistry, error) {
	resolvers, err := Resolvers(cfg)
	if err != nil {
		return nil, err
	}
	return resolver.NewRegistry(resolvers...)
}
