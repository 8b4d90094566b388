package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"heekkr/internal/config"
	"heekkr/internal/federation"
	"heekkr/internal/geocode"
	"heekkr/internal/httpx"
	"heekkr/internal/platform/kakao"
	"heekkr/internal/platform/telemetry"
	"heekkr/internal/resolver"
	"heekkr/internal/resolver/seoul"
	"heekkr/internal/store"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

func main() {
	_ = godotenv.Load(".env.local")

	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	resolverFlag := &cli.StringFlag{
		Name:  "resolver",
		Usage: "resolver to query directly",
		Value: seoul.SeochoID,
	}

	return &cli.App{
		Name:  "heekkr",
		Usage: "federated search over public library catalogs",
		Commands: []*cli.Command{
			{
				Name:      "serve",
				Usage:     "run the federation server",
				ArgsUsage: "[address]",
				Action:    serve,
			},
			{
				Name:   "libraries",
				Usage:  "list the libraries of one resolver",
				Flags:  []cli.Flag{resolverFlag},
				Action: listLibraries,
			},
			{
				Name:      "search",
				Usage:     "search one resolver",
				ArgsUsage: "<keyword>",
				Flags: []cli.Flag{
					resolverFlag,
					&cli.StringSliceFlag{
						Name:    "library",
						Aliases: []string{"l"},
						Usage:   "library id to search (repeatable, default: all of the resolver's libraries)",
					},
				},
				Action: search,
			},
		},
	}
}

func serve(c *cli.Context) error {
	cfg := config.Load()
	addr := cfg.Addr
	if c.Args().Len() > 0 {
		addr = c.Args().First()
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, "heekkr", cfg.OTLPEndpoint)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			log.Printf("tracing shutdown: %v", err)
		}
	}()

	var (
		cache geocode.Cache = geocode.NewMemoryCache()
		ready               = func(context.Context) error { return nil }
	)
	if cfg.DatabaseDSN != "" {
		pool, err := openDB(ctx, cfg.DatabaseDSN)
		if err != nil {
			return err
		}
		defer pool.Close()

		repo := store.NewGeocodePG(pool)
		cache = repo
		ready = repo.Ping
		go pruneGeocodeCache(ctx, repo, cfg.GeocodeCacheTTL)
	}

	var source geocode.Source
	if cfg.KakaoAPIKey != "" {
		source = kakao.NewClient(cfg.KakaoAPIKey, 10)
	} else {
		log.Println("KAKAO_API_KEY not set, geocoding limited to cached entries")
	}

	registry, err := seoul.NewRegistry(cfg)
	if err != nil {
		return err
	}

	svc := federation.NewService(registry, federation.Options{
		ListTimeout:   cfg.ListTimeout,
		SearchTimeout: cfg.SearchTimeout,
		Geocoder:      geocode.NewGeocoder(source, cache, cfg.GeocodeCacheTTL),
	})
	rateLimit := httpx.NewRateLimitMiddleware(cfg.RateLimitRPS, cfg.RateLimitBurst)
	defer rateLimit.Stop()

	handler := withMiddleware(
		newRouter(federation.NewHTTPHandler(svc, cfg.RequestTimeout), readiness(registry, ready)),
		cfg, rateLimit,
	)

	httpServer := &http.Server{
		Handler:      handler,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 10*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting server on %s resolvers=%d", ln.Addr(), registry.Len())
		errCh <- httpServer.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Println("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func readiness(registry *resolver.StaticRegistry, ping func(context.Context) error) func(context.Context) error {
	return func(ctx context.Context) error {
		if registry.Len() == 0 {
			return errors.New("no resolvers registered")
		}
		return ping(ctx)
	}
}

func listLibraries(c *cli.Context) error {
	r, err := pickResolver(c.String("resolver"))
	if err != nil {
		return err
	}

	libraries, err := r.ListLibraries(c.Context)
	if err != nil {
		return err
	}
	return printJSON(c.App.Writer, libraries)
}

func search(c *cli.Context) error {
	keyword := strings.TrimSpace(c.Args().First())
	if keyword == "" {
		return errors.New("search: keyword is required")
	}

	r, err := pickResolver(c.String("resolver"))
	if err != nil {
		return err
	}

	ids := c.StringSlice("library")
	if len(ids) == 0 {
		libraries, err := r.ListLibraries(c.Context)
		if err != nil {
			return err
		}
		for _, lib := range libraries {
			ids = append(ids, lib.ID)
		}
	}

	entities, err := r.Search(c.Context, keyword, ids)
	if err != nil {
		return err
	}
	return printJSON(c.App.Writer, entities)
}

func pickResolver(id string) (resolver.Resolver, error) {
	registry, err := seoul.NewRegistry(config.Load())
	if err != nil {
		return nil, err
	}
	r, ok := registry.Lookup(id)
	if !ok {
		return nil, fmt.Errorf("unknown resolver %q", id)
	}
	return r, nil
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func openDB(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("cannot create db pool: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("cannot ping database (%s): %w", redactDSN(dsn), err)
	}
	log.Println("database connection OK")
	return pool, nil
}

// pruneGeocodeCache drops entries well past their validity once a day.
func pruneGeocodeCache(ctx context.Context, repo *store.GeocodePG, ttl time.Duration) {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := repo.DeleteOlderThan(ctx, time.Now().Add(-2*ttl))
			if err != nil {
				log.Printf("geocode: prune failed err=%v", err)
				continue
			}
			log.Printf("geocode: pruned entries=%d", n)
		}
	}
}

func redactDSN(dsn string) string {
	const marker = "://"
	start := strings.Index(dsn, marker)
	if start < 0 {
		return dsn
	}
	start += len(marker)
	end := strings.Index(dsn[start:], "@")
	if end < 0 {
		return dsn
	}
	return dsn[:start] + "***" + dsn[start+end:]
}
