package resolver

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

var ErrInvalidID = errors.New("invalid resolver id")

// StaticRegistry is built once at startup and never changes afterwards, so
// it is safe for concurrent use without locking.
type StaticRegistry struct {
	resolvers []Resolver
}

// NewRegistry validates that ids are non-empty, free of the namespace
// separator and unique. Registration order is kept.
func NewRegistry(resolvers ...Resolver) (*StaticRegistry, error) {
	seen := make(map[string]bool, len(resolvers))
	for _, r := range resolvers {
		id := r.ID()
		if id == "" || strings.Contains(id, Separator) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidID, id)
		}
		if seen[id] {
			return nil, fmt.Errorf("%w: duplicate %q", ErrInvalidID, id)
		}
		seen[id] = true
	}
	return &StaticRegistry{resolvers: slices.Clone(resolvers)}, nil
}

func (r *StaticRegistry) Resolvers() []Resolver {
	return slices.Clone(r.resolvers)
}

// Lookup finds a registered resolver by id.
func (r *StaticRegistry) Lookup(id string) (Resolver, bool) {
	for _, res := range r.resolvers {
		if res.ID() == id {
			return res, true
		}
	}
	return nil, false
}

func (r *StaticRegistry) Len() int {
	return len(r.resolvers)
}
