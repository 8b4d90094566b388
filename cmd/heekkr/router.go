package main

import (
	"context"
	"net/http"
	"time"

	"heekkr/internal/config"
	"heekkr/internal/federation"
	"heekkr/internal/httpx"
)

const maxRequestBytes = 64 << 10

func newRouter(h *federation.HTTPHandler, ready func(context.Context) error) *http.ServeMux {
	router := http.NewServeMux()

	router.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		defer cancel()
		if err := ready(ctx); err != nil {
			http.Error(w, "not ready: "+err.Error(), http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	router.HandleFunc("GET /v1/libraries", h.Libraries)
	router.HandleFunc("GET /v1/search", h.Search)
	router.HandleFunc("POST /v1/search", h.Search)

	return router
}

// withMiddleware wraps the router, outermost first: request id, access log,
// panic recovery, headers, rate limit, body size.
func withMiddleware(next http.Handler, cfg config.Config, rateLimit *httpx.RateLimitMiddleware) http.Handler {
	h := httpx.RequestSizeLimitMiddleware(maxRequestBytes)(next)
	h = rateLimit.Middleware(h)
	h = httpx.CORSMiddleware(cfg.CORSOrigins)(h)
	h = httpx.SecurityHeadersMiddleware(cfg.EnableHSTS)(h)
	h = httpx.RecoveryMiddleware(h)
	h = httpx.AccessLogMiddleware(h)
	return httpx.RequestIDMiddleware(h)
}
