package federation

import (
	"context"
	"log"
	"runtime/debug"
	"slices"
	"strings"
	"sync"
	"time"

	"heekkr/internal/entity"
	"heekkr/internal/resolver"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

const instrumentationName = "heekkr/internal/federation"

const (
	opListLibraries = "list_libraries"
	opSearch        = "search"
)

type Service struct {
	registry resolver.Registry
	opts     Options
	tracer   trace.Tracer
	calls    metric.Int64Counter
	failures metric.Int64Counter
}

func NewService(registry resolver.Registry, opts Options) *Service {
	meter := otel.Meter(instrumentationName)
	calls, err := meter.Int64Counter("federation.resolver.calls",
		metric.WithDescription("Resolver invocations by operation"))
	if err != nil {
		log.Printf("federation: cannot create calls counter: %v", err)
		calls = noop.Int64Counter{}
	}
	failures, err := meter.Int64Counter("federation.resolver.failures",
		metric.WithDescription("Resolver invocations that contributed nothing"))
	if err != nil {
		log.Printf("federation: cannot create failures counter: %v", err)
		failures = noop.Int64Counter{}
	}

	return &Service{
		registry: registry,
		opts:     opts.withDefaults(),
		tracer:   otel.Tracer(instrumentationName),
		calls:    calls,
		failures: failures,
	}
}

// ListLibraries asks every registered resolver for its libraries and waits
// for all of them, each bounded by the list timeout. Failed resolvers are
// missing from the result; the call itself never fails. Libraries are
// grouped by resolver in registration order.
func (s *Service) ListLibraries(ctx context.Context) []entity.Library {
	resolvers := s.registry.Resolvers()

	type contribution struct {
		index     int
		libraries []entity.Library
	}
	results := make(chan contribution, len(resolvers))
	for i, r := range resolvers {
		go func(i int, r resolver.Resolver) {
			results <- contribution{index: i, libraries: s.listOne(ctx, r)}
		}(i, r)
	}

	byResolver := make([][]entity.Library, len(resolvers))
	for range resolvers {
		c := <-results
		byResolver[c.index] = c.libraries
	}

	libraries := make([]entity.Library, 0)
	for _, libs := range byResolver {
		libraries = append(libraries, libs...)
	}
	return libraries
}

func (s *Service) listOne(ctx context.Context, r resolver.Resolver) []entity.Library {
	id := r.ID()
	ctx, span := s.tracer.Start(ctx, "federation.list_libraries.resolver",
		trace.WithAttributes(attribute.String("resolver.id", id)))
	defer span.End()

	start := time.Now()
	libs, err := guardedCall(ctx, s.opts.ListTimeout, func(ctx context.Context) ([]entity.Library, error) {
		libs, err := r.ListLibraries(ctx)
		if err != nil {
			return nil, err
		}
		libs = tagLibraries(id, libs)
		if loc, ok := r.(resolver.Locator); ok && s.opts.Geocoder != nil {
			s.locate(ctx, id, loc, libs)
		}
		return libs, nil
	})
	s.record(ctx, span, opListLibraries, id, err)
	if err != nil {
		log.Printf("federation: list libraries failed resolver=%s kind=%s duration_ms=%d err=%v",
			id, resolver.Kind(err), time.Since(start).Milliseconds(), err)
		return nil
	}

	span.SetAttributes(attribute.Int("libraries.count", len(libs)))
	return libs
}

// locate fills in missing coordinates. Lookups run concurrently and write
// only their own slot, so library order is unchanged. A lookup that panics
// leaves its coordinate empty.
func (s *Service) locate(ctx context.Context, resolverID string, loc resolver.Locator, libs []entity.Library) {
	var g errgroup.Group
	g.SetLimit(s.opts.GeocodeConcurrency)
	for i := range libs {
		if libs[i].Coordinate != nil {
			continue
		}
		g.Go(func() error {
			defer func() {
				if p := recover(); p != nil {
					log.Printf("federation: geocode panicked resolver=%s library_id=%s panic=%v\n%s",
						resolverID, libs[i].ID, p, debug.Stack())
				}
			}()
			name := loc.PlaceName(libs[i])
			if name == "" {
				return nil
			}
			libs[i].Coordinate = s.opts.Geocoder.Lookup(ctx, name)
			return nil
		})
	}
	_ = g.Wait()
}

// Search streams one SearchResponse per resolver that owns at least one of
// libraryIDs, in completion order. A blank term matches nothing and
// launches no workers. The channel is closed once every launched
// worker has finished, failed or timed out. Cancelling ctx cancels all
// workers still running.
func (s *Service) Search(ctx context.Context, term string, libraryIDs []string) <-chan SearchResponse {
	var work []assignment
	if strings.TrimSpace(term) != "" {
		work = partition(s.registry.Resolvers(), libraryIDs)
	}

	// One slot per worker: a worker never blocks on a slow consumer.
	out := make(chan SearchResponse, len(work))

	var wg sync.WaitGroup
	for _, a := range work {
		wg.Add(1)
		go func(a assignment) {
			defer wg.Done()
			if res, ok := s.searchOne(ctx, term, a); ok {
				out <- res
			}
		}(a)
	}
	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}

func (s *Service) searchOne(ctx context.Context, term string, a assignment) (SearchResponse, bool) {
	id := a.resolver.ID()
	ctx, span := s.tracer.Start(ctx, "federation.search.resolver", trace.WithAttributes(
		attribute.String("resolver.id", id),
		attribute.String("search.term", term),
		attribute.Int("search.library_ids", len(a.libraryIDs)),
	))
	defer span.End()

	start := time.Now()
	entities, err := guardedCall(ctx, s.opts.SearchTimeout, func(ctx context.Context) ([]entity.SearchEntity, error) {
		return a.resolver.Search(ctx, term, slices.Clone(a.libraryIDs))
	})
	s.record(ctx, span, opSearch, id, err)
	if err != nil {
		log.Printf("federation: search failed resolver=%s kind=%s term=%q duration_ms=%d err=%v",
			id, resolver.Kind(err), term, time.Since(start).Milliseconds(), err)
		return SearchResponse{}, false
	}

	span.SetAttributes(attribute.Int("search.entities", len(entities)))
	return SearchResponse{ResolverID: id, Entities: claimHoldings(id, entities)}, true
}

func (s *Service) record(ctx context.Context, span trace.Span, op, resolverID string, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("resolver.id", resolverID),
		attribute.String("operation", op),
	}
	s.calls.Add(ctx, 1, metric.WithAttributes(attrs...))
	if err == nil {
		return
	}

	kind := resolver.Kind(err)
	s.failures.Add(ctx, 1, metric.WithAttributes(append(attrs, attribute.String("kind", kind))...))
	span.RecordError(err)
	span.SetStatus(codes.Error, kind)
}

// tagLibraries namespaces ids the resolver left bare and stamps the owner.
func tagLibraries(resolverID string, libs []entity.Library) []entity.Library {
	tagged := slices.Clone(libs)
	for i := range tagged {
		if !resolver.Owns(resolverID, tagged[i].ID) {
			tagged[i].ID = resolver.Namespace(resolverID, tagged[i].ID)
		}
		tagged[i].ResolverID = resolverID
	}
	return tagged
}

// claimHoldings puts every holding under the namespace of the resolver that
// produced it, so a backend can never speak for another backend's library.
func claimHoldings(resolverID string, entities []entity.SearchEntity) []entity.SearchEntity {
	claimed := make([]entity.SearchEntity, len(entities))
	for i, e := range entities {
		e.HoldingSummaries = slices.Clone(e.HoldingSummaries)
		for j := range e.HoldingSummaries {
			if !resolver.Owns(resolverID, e.HoldingSummaries[j].LibraryID) {
				e.HoldingSummaries[j].LibraryID = resolver.Namespace(resolverID, e.HoldingSummaries[j].LibraryID)
			}
		}
		claimed[i] = e
	}
	return claimed
}
