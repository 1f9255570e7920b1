package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Krimson/dadguide/internal/app"
	"github.com/Krimson/dadguide/internal/metrics"
	"github.com/Krimson/dadguide/internal/storage"
)

func newTestServer(t *testing.T) (http.Handler, *metrics.Metrics) {
	t.Helper()

	now := time.Date(2026, 5, 20, 12, 0, 0, 0, time.UTC)
	m := metrics.New()
	store := storage.NewMemoryStore()
	manager, err := app.NewManager(store, app.Options{
		Metrics:      m,
		Now:          func() time.Time { return now },
		TickInterval: time.Hour,
	})
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	t.Cleanup(manager.Close)

	return NewRouter(RouterDeps{
		Handler: NewHTTPHandler(manager),
		Metrics: m,
		Stats:   store.GetStats,
	}), m
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode response %q: %v", rec.Body.String(), err)
	}
}

func onboard(t *testing.T, h http.Handler) {
	t.Helper()
	rec := do(t, h, http.MethodPost, "/api/profile", `{"lmpDate":"2026-01-01","partnerName":"Anna"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestHTTPHandler_Onboarding(t *testing.T) {
	h, _ := newTestServer(t)

	if rec := do(t, h, http.MethodGet, "/api/dashboard", ""); rec.Code != http.StatusConflict {
		t.Errorf("Expected 409 before onboarding, got %d", rec.Code)
	}
	if rec := do(t, h, http.MethodPost, "/api/profile", `{"lmpDate":"bad","partnerName":"Anna"}`); rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for invalid date, got %d", rec.Code)
	}

	rec := do(t, h, http.MethodPost, "/api/profile", `{"lmpDate":"2026-01-01","partnerName":"Anna"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var result app.OnboardingResult
	decode(t, rec, &result)
	if result.Profile.DueDate != "2026-10-08" {
		t.Errorf("Expected due date 2026-10-08, got %s", result.Profile.DueDate)
	}
	if result.Progress.Notification == nil || result.Progress.Notification.ID != "first_step" {
		t.Errorf("Expected first_step notification, got %+v", result.Progress.Notification)
	}

	if rec := do(t, h, http.MethodPost, "/api/profile", `{"lmpDate":"2026-01-01","partnerName":"Anna"}`); rec.Code != http.StatusConflict {
		t.Errorf("Expected 409 for repeated onboarding, got %d", rec.Code)
	}

	rec = do(t, h, http.MethodGet, "/api/dashboard", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var dashboard app.Dashboard
	decode(t, rec, &dashboard)
	if dashboard.Week != 20 {
		t.Errorf("Expected week 20, got %d", dashboard.Week)
	}
}

func TestHTTPHandler_MarkWeekRead(t *testing.T) {
	h, _ := newTestServer(t)
	onboard(t, h)

	tests := []struct {
		path string
		code int
	}{
		{"/api/weeks/abc/read", http.StatusBadRequest},
		{"/api/weeks/41/read", http.StatusBadRequest},
		{"/api/weeks/3/read", http.StatusOK},
	}
	for _, tt := range tests {
		if rec := do(t, h, http.MethodPost, tt.path, ""); rec.Code != tt.code {
			t.Errorf("%s: expected %d, got %d", tt.path, tt.code, rec.Code)
		}
	}

	rec := do(t, h, http.MethodGet, "/api/progress", "")
	var view app.ProgressView
	decode(t, rec, &view)
	if view.Progress.Points != 30 {
		t.Errorf("Expected 30 points, got %d", view.Progress.Points)
	}
	if len(view.Achievements) != 8 {
		t.Errorf("Expected 8 achievements, got %d", len(view.Achievements))
	}
}

func TestHTTPHandler_CelebrateMilestone(t *testing.T) {
	h, _ := newTestServer(t)
	onboard(t, h)

	if rec := do(t, h, http.MethodPost, "/api/milestones/unknown/celebrate", ""); rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", rec.Code)
	}

	rec := do(t, h, http.MethodPost, "/api/milestones/anatomy-scan/celebrate", `{"note":"Saw the profile"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var result app.ProgressResult
	decode(t, rec, &result)
	if result.Memory == nil || result.Progress.Points != 110 {
		t.Errorf("Unexpected result: %+v", result)
	}
}

func TestHTTPHandler_Contractions(t *testing.T) {
	h, _ := newTestServer(t)

	if rec := do(t, h, http.MethodPost, "/api/contractions/start", ""); rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	rec := do(t, h, http.MethodPost, "/api/contractions/stop", "")
	var result app.ContractionResult
	decode(t, rec, &result)
	if !result.Recorded {
		t.Errorf("Expected contraction to be recorded, got %+v", result)
	}

	rec = do(t, h, http.MethodGet, "/api/contractions/share", "")
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("Expected text/plain, got %s", ct)
	}
	if !strings.Contains(rec.Body.String(), "Contraction Log:") {
		t.Errorf("Unexpected share text: %q", rec.Body.String())
	}

	if rec := do(t, h, http.MethodPost, "/api/contractions/reset", `{"confirmed":false}`); rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 without confirmation, got %d", rec.Code)
	}
	if rec := do(t, h, http.MethodPost, "/api/contractions/reset", `{"confirmed":true}`); rec.Code != http.StatusOK {
		t.Errorf("Expected 200 with confirmation, got %d", rec.Code)
	}
}

func TestHTTPHandler_Checklist(t *testing.T) {
	h, _ := newTestServer(t)

	if rec := do(t, h, http.MethodPost, "/api/checklist/nope/toggle", ""); rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", rec.Code)
	}
	rec := do(t, h, http.MethodPost, "/api/checklist/docs1/toggle", "")
	var result app.ChecklistResult
	decode(t, rec, &result)
	if !result.Packed {
		t.Errorf("Expected docs1 to be packed, got %+v", result)
	}
}

func TestRouter_MetricsAndCORS(t *testing.T) {
	h, _ := newTestServer(t)

	rec := do(t, h, http.MethodOptions, "/api/progress", "")
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("Expected CORS headers on preflight")
	}

	do(t, h, http.MethodGet, "/api/contractions", "")
	rec = do(t, h, http.MethodGet, "/metrics", "")
	if !strings.Contains(rec.Body.String(), `route="/api/contractions"`) {
		t.Errorf("Expected route label in metrics output:\n%s", rec.Body.String())
	}
}

func TestRouter_DebugStats(t *testing.T) {
	h, _ := newTestServer(t)
	onboard(t, h)

	rec := do(t, h, http.MethodGet, "/debug/stats", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var body struct {
		Store struct {
			Backend string   `json:"backend"`
			Keys    []string `json:"keys"`
		} `json:"store"`
	}
	decode(t, rec, &body)
	if body.Store.Backend != "memory" || len(body.Store.Keys) == 0 {
		t.Errorf("Unexpected stats: %+v", body)
	}
}
