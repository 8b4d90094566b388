package federation

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"heekkr/internal/entity"
	"heekkr/internal/httpx"
)

const (
	DefaultRequestTimeout = 20 * time.Second
	streamContentType     = "application/x-ndjson"
)

type HTTPHandler struct {
	svc            *Service
	requestTimeout time.Duration
}

func NewHTTPHandler(svc *Service, requestTimeout time.Duration) *HTTPHandler {
	if requestTimeout <= 0 {
		requestTimeout = DefaultRequestTimeout
	}
	return &HTTPHandler{svc: svc, requestTimeout: requestTimeout}
}

type LibrariesResponse struct {
	Libraries []entity.Library `json:"libraries"`
}

type SearchRequest struct {
	Term       string   `json:"term" validate:"max=256"`
	LibraryIDs []string `json:"library_ids" validate:"max=500,dive,max=256"`
}

// Libraries handles GET /v1/libraries
// @Summary List libraries
// @Description Every library of every backend that answered in time. Never fails because of a backend.
// @Tags federation
// @Produce json
// @Success 200 {object} httpx.SuccessResponse{data=LibrariesResponse}
// @Router /v1/libraries [get]
func (h *HTTPHandler) Libraries(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	libraries := h.svc.ListLibraries(ctx)
	httpx.JSONSuccess(w, r, LibrariesResponse{Libraries: libraries}, map[string]interface{}{
		"count": len(libraries),
	})
}

// Search handles GET and POST /v1/search
// @Summary Search holdings
// @Description Streams newline-delimited JSON, one {"resolver_id","entities"} object per backend as it completes.
// @Tags federation
// @Accept json
// @Produce application/x-ndjson
// @Param request body SearchRequest false "Search request (POST)"
// @Param term query string false "Search term (GET)"
// @Param library_id query []string false "Library ids (GET)" collectionFormat(multi)
// @Success 200 {object} SearchResponse
// @Failure 400 {object} httpx.ErrorResponse
// @Router /v1/search [post]
func (h *HTTPHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query()
		req.Term = q.Get("term")
		req.LibraryIDs = q["library_id"]
	case http.MethodPost:
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpx.JSONError(w, r, http.StatusBadRequest, "BAD_REQUEST", "Invalid JSON body", nil)
			return
		}
	default:
		w.Header().Set("Allow", "GET, POST")
		httpx.JSONError(w, r, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		return
	}

	if details := httpx.ValidateStruct(req); len(details) > 0 {
		httpx.JSONError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid search request", details)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	stream := h.svc.Search(ctx, req.Term, req.LibraryIDs)

	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Now().Add(h.requestTimeout + 5*time.Second)); err != nil && !errors.Is(err, http.ErrNotSupported) {
		log.Printf("federation: cannot extend write deadline request_id=%s err=%v", httpx.RequestIDFrom(r), err)
	}

	w.Header().Set("Content-Type", streamContentType)
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	_ = rc.Flush()

	enc := json.NewEncoder(w)
	var sent int
	for res := range stream {
		if err := enc.Encode(res); err != nil {
			log.Printf("federation: stream write failed request_id=%s sent=%d err=%v", httpx.RequestIDFrom(r), sent, err)
			return
		}
		if err := rc.Flush(); err != nil {
			log.Printf("federation: stream flush failed request_id=%s err=%v", httpx.RequestIDFrom(r), err)
			return
		}
		sent++
	}
}
