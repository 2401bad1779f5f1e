package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/your-org/suspectwatch/internal/config"
	"github.com/your-org/suspectwatch/internal/pose"
	"github.com/your-org/suspectwatch/internal/recognition"
)

func newTestRouter(t *testing.T, apiKey string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Default()
	m, err := recognition.NewMatcher(cfg.Scoring, nil)
	if err != nil {
		t.Fatal(err)
	}
	return NewRouter(RouterConfig{
		APIKey:  apiKey,
		Pose:    cfg.Pose,
		Matcher: m,
		Poses:   pose.NewRegistry(cfg.Pose.MaxSavedPoses, cfg.Pose.DistanceWeight),
	})
}

func TestRoutesRegistered(t *testing.T) {
	r := newTestRouter(t, "")

	have := map[string]bool{}
	for _, ri := range r.Routes() {
		have[ri.Method+" "+ri.Path] = true
	}

	for _, want := range []string{
		"GET /healthz",
		"GET /readyz",
		"GET /metrics",
		"POST /v1/suspects",
		"GET /v1/suspects/:id",
		"POST /v1/suspects/:id/photo",
		"PUT /v1/suspects/:id/embedding",
		"POST /v1/match",
		"POST /v1/compare",
		"POST /v1/observations",
		"GET /v1/sightings",
		"POST /v1/collections/:collection/documents",
		"DELETE /v1/collections/:collection/documents/:docId",
		"GET /v1/collections/:collection/documents/:docId/content",
		"POST /v1/poses/compare",
		"POST /v1/poses/joints",
		"POST /v1/poses/:session/capture",
		"POST /v1/poses/:session/match",
	} {
		if !have[want] {
			t.Errorf("route %q not registered", want)
		}
	}
	if have["GET /v1/ws"] {
		t.Error("ws route registered without a hub")
	}
}

func TestRouterAuthAndRequestID(t *testing.T) {
	r := newTestRouter(t, "secret")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusOK {
		t.Errorf("healthz: %d", w.Code)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID")
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/suspects", nil)
	req.Header.Set("X-Request-ID", "abc")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("unauthenticated /v1/suspects: %d", w.Code)
	}
	if got := w.Header().Get("X-Request-ID"); got != "abc" {
		t.Errorf("X-Request-ID = %q, want abc", got)
	}
}

func TestComparePoseWithoutStores(t *testing.T) {
	r := newTestRouter(t, "")

	req := httptest.NewRequest(http.MethodPost, "/v1/poses/compare",
		strings.NewReader(`{"current":[{"x":0,"y":0},{"x":1,"y":0}],"saved":[{"x":0,"y":0},{"x":1,"y":0}]}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK || w.Body.String() != `{"score":1}` {
		t.Errorf("compare: %d %s", w.Code, w.Body.String())
	}
}
