// Package eco adapts library sites running the "eco" catalog software to the
// resolver contract. Many Korean municipal library networks share it, so a
// concrete backend only supplies its id, base URL and the administrative
// area used to geocode its branches.
package eco

import (
	"context"
	"fmt"
	"log"

	"heekkr/internal/entity"
	ecoapi "heekkr/internal/platform/eco"
	"heekkr/internal/resolver"
)

// allLibraries is the pseudo branch meaning "the whole network".
const allLibraries = "ALL"

type Catalog interface {
	Libraries(ctx context.Context) ([]ecoapi.LibraryInfo, error)
	Search(ctx context.Context, keyword string, manageCodes []string) ([]ecoapi.BookItem, error)
	BookDetailURL(b ecoapi.BookItem) string
}

type Resolver struct {
	id           string
	searchPrefix string
	catalog      Catalog
}

// New builds a resolver. searchPrefix is prepended to branch names to form
// geocoding keywords, e.g. "서울특별시 서초구".
func New(id, searchPrefix string, catalog Catalog) *Resolver {
	return &Resolver{id: id, searchPrefix: searchPrefix, catalog: catalog}
}

func (r *Resolver) ID() string {
	return r.id
}

func (r *Resolver) PlaceName(lib entity.Library) string {
	if r.searchPrefix == "" {
		return lib.Name
	}
	return r.searchPrefix + " " + lib.Name
}

func (r *Resolver) ListLibraries(ctx context.Context) ([]entity.Library, error) {
	infos, err := r.catalog.Libraries(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: list libraries: %w", r.id, err)
	}

	libraries := make([]entity.Library, 0, len(infos))
	for _, info := range infos {
		if info.ManageCode == allLibraries || info.ManageCode == "" {
			continue
		}
		libraries = append(libraries, entity.Library{
			ID:         resolver.Namespace(r.id, info.ManageCode),
			Name:       info.LibName,
			ResolverID: r.id,
		})
	}
	return libraries, nil
}

func (r *Resolver) Search(ctx context.Context, keyword string, libraryIDs []string) ([]entity.SearchEntity, error) {
	codes := make([]string, 0, len(libraryIDs))
	for _, id := range libraryIDs {
		code, ok := resolver.StripNamespace(r.id, id)
		if !ok {
			log.Printf("eco: ignoring foreign library id resolver=%s library_id=%s", r.id, id)
			continue
		}
		codes = append(codes, code)
	}
	if len(codes) == 0 {
		return []entity.SearchEntity{}, nil
	}

	items, err := r.catalog.Search(ctx, keyword, codes)
	if err != nil {
		return nil, fmt.Errorf("%s: search %q: %w", r.id, keyword, err)
	}
	return r.toEntities(items), nil
}

// toEntities maps each result row to its own entity with the single copy
// that row describes. Backend order is kept.
func (r *Resolver) toEntities(items []ecoapi.BookItem) []entity.SearchEntity {
	entities := make([]entity.SearchEntity, 0, len(items))
	for _, item := range items {
		entities = append(entities, entity.SearchEntity{
			Book: entity.Book{
				ISBN:        item.ISBN,
				Title:       item.Title,
				Author:      optional(item.Author),
				Publisher:   optional(item.Publisher),
				PublishDate: publishDate(item.PubYear),
			},
			HoldingSummaries: []entity.HoldingSummary{{
				LibraryID:  resolver.Namespace(r.id, item.ManageCode),
				Location:   optional(item.RegCodeDesc),
				CallNumber: optional(item.CallNo),
				Status:     holdingStatus(item),
			}},
			URL: r.catalog.BookDetailURL(item),
		})
	}
	return entities
}
