package federation

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"heekkr/internal/entity"
	"heekkr/internal/httpx"
	"heekkr/internal/testutil"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeStream(t *testing.T, body string) []SearchResponse {
	t.Helper()
	out, err := testutil.DecodeNDJSON[SearchResponse](strings.NewReader(body))
	require.NoError(t, err)
	return out
}

func TestHTTPHandler_Libraries(t *testing.T) {
	ctrl := gomock.NewController(t)
	a, b := newResolver(ctrl, "a"), newResolver(ctrl, "b")
	a.EXPECT().ListLibraries(gomock.Any()).Return([]entity.Library{{ID: "a:1", Name: "A1"}}, nil)
	b.EXPECT().ListLibraries(gomock.Any()).Return(nil, context.DeadlineExceeded)

	handler := NewHTTPHandler(newService(t, Options{}, a, b), time.Second)

	w := httptest.NewRecorder()
	handler.Libraries(w, testutil.NewRequest(http.MethodGet, "/v1/libraries", nil))

	res := testutil.RecordHTTPResponse(w)
	assert.Equal(t, http.StatusOK, res.Code)
	testutil.AssertResponseBody(t, res.Body, "success", true)

	data := res.Body["data"].(map[string]interface{})
	libs := data["libraries"].([]interface{})
	require.Len(t, libs, 1)
	assert.Equal(t, "a:1", libs[0].(map[string]interface{})["id"])
	assert.Equal(t, "a", libs[0].(map[string]interface{})["resolver_id"])
}

func TestHTTPHandler_Libraries_AllBackendsDown(t *testing.T) {
	ctrl := gomock.NewController(t)
	a := newResolver(ctrl, "a")
	a.EXPECT().ListLibraries(gomock.Any()).Return(nil, context.DeadlineExceeded)

	w := httptest.NewRecorder()
	NewHTTPHandler(newService(t, Options{}, a), time.Second).Libraries(w, testutil.NewRequest(http.MethodGet, "/v1/libraries", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"libraries":[]`)
}

func TestHTTPHandler_Search(t *testing.T) {
	ctrl := gomock.NewController(t)
	a, b := newResolver(ctrl, "a"), newResolver(ctrl, "b")
	handler := NewHTTPHandler(newService(t, Options{}, a, b), time.Second)

	t.Run("post streams one line per resolver", func(t *testing.T) {
		a.EXPECT().Search(gomock.Any(), "dune", []string{"a:1"}).Return([]entity.SearchEntity{{Book: entity.Book{Title: "Dune"}, URL: "u"}}, nil)
		b.EXPECT().Search(gomock.Any(), "dune", []string{"b:2"}).Return(nil, nil)

		w := httptest.NewRecorder()
		handler.Search(w, testutil.NewRequest(http.MethodPost, "/v1/search", SearchRequest{
			Term:       "dune",
			LibraryIDs: []string{"a:1", "b:2", "ghost:3"},
		}))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/x-ndjson", w.Header().Get("Content-Type"))
		assert.True(t, w.Flushed)

		got := decodeStream(t, w.Body.String())
		assert.ElementsMatch(t, []string{"a", "b"}, resolverIDs(got))
		for _, res := range got {
			if res.ResolverID == "a" {
				require.Len(t, res.Entities, 1)
				assert.Equal(t, "Dune", res.Entities[0].Book.Title)
			} else {
				assert.Empty(t, res.Entities)
			}
		}
	})

	t.Run("get reads query parameters", func(t *testing.T) {
		a.EXPECT().Search(gomock.Any(), "해리포터", []string{"a:1", "a:2"}).Return([]entity.SearchEntity{}, nil)

		w := httptest.NewRecorder()
		handler.Search(w, httptest.NewRequest(http.MethodGet, "/v1/search?term=%ED%95%B4%EB%A6%AC%ED%8F%AC%ED%84%B0&library_id=a:1&library_id=a:2", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		got := decodeStream(t, w.Body.String())
		require.Len(t, got, 1)
		assert.Equal(t, "a", got[0].ResolverID)
	})

	t.Run("unknown ids give an empty stream", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.Search(w, testutil.NewRequest(http.MethodPost, "/v1/search", SearchRequest{Term: "dune", LibraryIDs: []string{"ghost:1"}}))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, strings.TrimSpace(w.Body.String()))
	})

	t.Run("blank term gives an empty stream", func(t *testing.T) {
		for _, term := range []string{"", "  "} {
			w := httptest.NewRecorder()
			handler.Search(w, testutil.NewRequest(http.MethodPost, "/v1/search", SearchRequest{Term: term, LibraryIDs: []string{"a:1", "b:2"}}))

			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, "application/x-ndjson", w.Header().Get("Content-Type"))
			assert.Empty(t, strings.TrimSpace(w.Body.String()))
		}
	})

	t.Run("overlong term is rejected", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.Search(w, testutil.NewRequest(http.MethodPost, "/v1/search", SearchRequest{Term: strings.Repeat("x", 257), LibraryIDs: []string{"a:1"}}))

		res := testutil.RecordHTTPResponse(w)
		testutil.AssertResponseCode(t, res.Code, http.StatusBadRequest)
		errBody := res.Body["error"].(map[string]interface{})
		assert.Equal(t, "VALIDATION_ERROR", errBody["code"])
	})

	t.Run("malformed json is rejected", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/v1/search", strings.NewReader("{"))
		handler.Search(w, r)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("other methods are rejected", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.Search(w, httptest.NewRequest(http.MethodDelete, "/v1/search", nil))

		assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
		assert.Equal(t, "GET, POST", w.Header().Get("Allow"))
	})
}

func TestHTTPHandler_Search_StreamsThroughServer(t *testing.T) {
	release := make(chan struct{})

	ctrl := gomock.NewController(t)
	fast, slow := newResolver(ctrl, "fast"), newResolver(ctrl, "slow")
	fast.EXPECT().Search(gomock.Any(), gomock.Any(), gomock.Any()).Return([]entity.SearchEntity{{URL: "fast"}}, nil)
	slow.EXPECT().Search(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(func(context.Context, string, []string) ([]entity.SearchEntity, error) {
		<-release
		return []entity.SearchEntity{{URL: "slow"}}, nil
	})

	handler := NewHTTPHandler(newService(t, Options{}, fast, slow), 5*time.Second)
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/search", handler.Search)
	srv := httptest.NewServer(httpx.RequestIDMiddleware(httpx.AccessLogMiddleware(mux)))
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/v1/search", "application/json",
		strings.NewReader(`{"term":"x","library_ids":["fast:1","slow:1"]}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	reader := bufio.NewReader(resp.Body)
	lines := make(chan string, 2)
	go func() {
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				close(lines)
				return
			}
			lines <- line
		}
	}()

	select {
	case line := <-lines:
		assert.Contains(t, line, `"resolver_id":"fast"`)
	case <-time.After(2 * time.Second):
		t.Fatal("first batch was not flushed while the slow backend was pending")
	}

	close(release)
	select {
	case line := <-lines:
		assert.Contains(t, line, `"resolver_id":"slow"`)
	case <-time.After(2 * time.Second):
		t.Fatal("slow batch never arrived")
	}
}

type deadlineRecorder struct {
	*httptest.ResponseRecorder
	err error
}

func (d deadlineRecorder) SetWriteDeadline(time.Time) error {
	return d.err
}

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := log.Writer()
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(prev) })
	return &buf
}

func TestHTTPHandler_Search_WriteDeadline(t *testing.T) {
	ctrl := gomock.NewController(t)
	a := newResolver(ctrl, "a")
	a.EXPECT().Search(gomock.Any(), "dune", []string{"a:1"}).Return([]entity.SearchEntity{}, nil).Times(2)
	handler := NewHTTPHandler(newService(t, Options{}, a), time.Second)

	t.Run("failure is logged and the stream still served", func(t *testing.T) {
		logs := captureLog(t)
		w := deadlineRecorder{ResponseRecorder: httptest.NewRecorder(), err: errors.New("connection hijacked")}
		handler.Search(w, httptest.NewRequest(http.MethodGet, "/v1/search?term=dune&library_id=a:1", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Len(t, decodeStream(t, w.Body.String()), 1)
		assert.Contains(t, logs.String(), "cannot extend write deadline")
		assert.Contains(t, logs.String(), "connection hijacked")
	})

	t.Run("unsupported writers stay quiet", func(t *testing.T) {
		logs := captureLog(t)
		w := httptest.NewRecorder()
		handler.Search(w, httptest.NewRequest(http.MethodGet, "/v1/search?term=dune&library_id=a:1", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.NotContains(t, logs.String(), "write deadline")
	})
}
