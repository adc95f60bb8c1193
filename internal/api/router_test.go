package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Harshitk-cp/thoughtgraph/internal/stack"
	"go.uber.org/zap"
)

func newTestApp(t *testing.T, keys ...string) *App {
	t.Helper()
	s, err := stack.Build(context.Background(), stack.Options{EmbeddingProvider: "trigram"}, zap.NewNop())
	if err != nil {
		t.Fatalf("build stack: %v", err)
	}
	t.Cleanup(s.Close)
	return NewApp(s, &Options{APIKeys: keys}, zap.NewNop())
}

func serve(app *App, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	app := newTestApp(t)
	rec := serve(app, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("expected a request id header")
	}
}

func TestReasonThroughRouter(t *testing.T) {
	app := newTestApp(t)
	body := `{"subject":"Alice","predicate":"knows","object":"Bob","source":"notes","commit":true}`
	rec := serve(app, httptest.NewRequest(http.MethodPost, "/v1/thoughts", strings.NewReader(body)))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = serve(app, httptest.NewRequest(http.MethodGet, "/v1/statements", nil))
	var list struct {
		Count int `json:"count"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&list); err != nil {
		t.Fatal(err)
	}
	if list.Count != 1 {
		t.Errorf("expected one committed statement, got %d", list.Count)
	}
}

func TestStatsAndMetrics(t *testing.T) {
	app := newTestApp(t)
	serve(app, httptest.NewRequest(http.MethodPost, "/v1/thoughts",
		bytes.NewBufferString(`{"subject":"A","predicate":"p","object":"B","source":"s"}`)))

	rec := serve(app, httptest.NewRequest(http.MethodGet, "/stats", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var stats map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&stats); err != nil {
		t.Fatal(err)
	}
	if stats["persistent"] != false {
		t.Errorf("expected an in-memory stack, got %v", stats["persistent"])
	}
	if n, _ := stats["request_count"].(float64); n < 1 {
		t.Errorf("expected requests to be counted, got %v", stats["request_count"])
	}

	rec = serve(app, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "thoughtgraph_reason_total") {
		t.Error("expected reasoning metrics to be exported")
	}
}

func TestAuthOnVersionedRoutes(t *testing.T) {
	app := newTestApp(t, "letmein")

	if rec := serve(app, httptest.NewRequest(http.MethodGet, "/v1/labels", nil)); rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without a key, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/labels", nil)
	req.Header.Set("Authorization", "Bearer letmein")
	if rec := serve(app, req); rec.Code != http.StatusOK {
		t.Errorf("expected 200 with a key, got %d", rec.Code)
	}

	if rec := serve(app, httptest.NewRequest(http.MethodGet, "/health", nil)); rec.Code != http.StatusOK {
		t.Errorf("health must not require a key, got %d", rec.Code)
	}
}
