package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/kiranshivaraju/copydesk/internal/api"
	"github.com/kiranshivaraju/copydesk/internal/api/handler"
	mw "github.com/kiranshivaraju/copydesk/internal/api/middleware"
	"github.com/kiranshivaraju/copydesk/internal/cache"
	"github.com/kiranshivaraju/copydesk/internal/lifecycle"
	"github.com/kiranshivaraju/copydesk/internal/optimizer/mock"
	"github.com/kiranshivaraju/copydesk/internal/state"
	"github.com/kiranshivaraju/copydesk/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- counting cache ---

type countingCache struct {
	mu     sync.Mutex
	counts map[string]int64
}

func (c *countingCache) Set(_ context.Context, _ string, _ []byte, _ time.Duration) error { return nil }
func (c *countingCache) Get(_ context.Context, _ string) ([]byte, bool, error)            { return nil, false, nil }
func (c *countingCache) Ping(_ context.Context) error                                      { return nil }
func (c *countingCache) IncrWithExpiry(_ context.Context, key string, _ time.Duration) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.counts == nil {
		c.counts = map[string]int64{}
	}
	c.counts[key]++
	return c.counts[key], nil
}

// --- router fixture ---

type testServer struct {
	router  http.Handler
	store   *state.Store
	backend *mock.Backend
}

func newTestServer(t *testing.T, rl *mw.RateLimit) *testServer {
	t.Helper()
	client, backend := mock.NewMockClient()
	st := state.New()
	coord := lifecycle.New(client, st, lifecycle.Config{}, nil)

	router := api.NewRouter(api.Dependencies{
		RateLimit:      rl,
		HealthHandler:  handler.NewHealthHandler(),
		SessionHandler: handler.NewSessionHandler(coord),
		SubmitHandler:  handler.NewSubmitHandler(coord),
		SelectHandler:  handler.NewSelectHandler(coord),
		DeleteHandler:  handler.NewDeleteHandler(coord),
		RefreshHandler: handler.NewRefreshHandler(coord),
		EventsHandler:  handler.NewEventsHandler(coord),
	})
	return &testServer{router: router, store: st, backend: backend}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func dataOf(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var env struct {
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env.Data
}

// --- router tests ---

func TestRouter_HealthEndpoint(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(t, "GET", "/api/v1/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("Content-Type"))
}

func TestRouter_SubmitSelectDeleteFlow(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(t, "POST", "/api/v1/jobs", map[string]string{
		"title": "My Title", "content": "Some text.", "content_type": "article",
	})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	id := dataOf(t, w)["id"].(string)

	w = s.do(t, "GET", "/api/v1/session", nil)
	require.Equal(t, http.StatusOK, w.Code)
	sel := dataOf(t, w)["selected"].(map[string]any)
	assert.Equal(t, id, sel["id"])
	assert.Equal(t, "processing", sel["status"])

	s.backend.Complete(id)
	w = s.do(t, "POST", "/api/v1/jobs/"+id+"/select", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "completed", dataOf(t, w)["status"])

	w = s.do(t, "POST", "/api/v1/history/refresh", nil)
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Len(t, dataOf(t, w)["history"], 1)

	w = s.do(t, "DELETE", "/api/v1/jobs/"+id, nil)
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Nil(t, s.store.Selected())

	w = s.do(t, "DELETE", "/api/v1/jobs/"+id, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_SubmitValidation(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(t, "POST", "/api/v1/jobs", map[string]string{"title": " ", "content": "Some text."})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Nil(t, s.store.Selected())
}

func TestRouter_SelectUnknownJob(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(t, "POST", "/api/v1/jobs/nope/select", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_Events(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(t, "GET", "/api/v1/events?limit=5", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_RateLimitsIntents(t *testing.T) {
	s := newTestServer(t, mw.NewRateLimit(&countingCache{}, 2))
	s.backend.Put(models.Job{ID: "a", Status: models.JobStatusProcessing})

	for i := 0; i < 2; i++ {
		w := s.do(t, "POST", "/api/v1/jobs/a/select", nil)
		require.Equal(t, http.StatusOK, w.Code)
	}
	w := s.do(t, "POST", "/api/v1/jobs/a/select", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	// reads and other buckets are unaffected
	w = s.do(t, "GET", "/api/v1/session", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = s.do(t, "POST", "/api/v1/history/refresh", nil)
	assert.Equal(t, http.StatusAccepted, w.Code)
}

func TestRouter_CORS(t *testing.T) {
	router := api.NewRouter(api.Dependencies{
		CORSOrigins:    []string{"http://localhost:3000"},
		SessionHandler: handler.NewSessionHandler(state.New()),
	})

	req := httptest.NewRequest("OPTIONS", "/api/v1/session", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "GET")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest("GET", "/api/v1/session", nil)
	req.Header.Set("Origin", "http://evil.example.com")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouter_UnwiredHandlerIsNotImplemented(t *testing.T) {
	router := api.NewRouter(api.Dependencies{})

	req := httptest.NewRequest("GET", "/api/v1/session", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotImplemented, w.Code)
}

func TestRouter_NotFound(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(t, "GET", "/api/v1/nonexistent", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

var _ cache.Cache = (*countingCache)(nil)
