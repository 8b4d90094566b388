package resolver

import (
	"context"

	"heekkr/internal/entity"
)

//go:generate mockgen -destination=mocks/mock_resolver.go -package=mocks heekkr/internal/resolver Resolver,Registry

// Resolver adapts one library backend to the canonical model.
//
// ListLibraries returns every library the backend exposes, with ids already
// namespaced under ID(). Search receives only ids that belong to this
// resolver and returns matches for the keyword.
type Resolver interface {
	ID() string
	ListLibraries(ctx context.Context) ([]entity.Library, error)
	Search(ctx context.Context, keyword string, libraryIDs []string) ([]entity.SearchEntity, error)
}

// Locator is implemented by resolvers whose libraries can be geocoded. It
// returns the place name to look up, or "" to skip the library.
type Locator interface {
	PlaceName(lib entity.Library) string
}

// Registry is the fixed set of resolvers the server federates.
type Registry interface {
	Resolvers() []Resolver
}
