package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()

	m.ContractionRecorded()
	m.ContractionRecorded()
	m.AchievementUnlocked("first_step")
	m.PersistFailed("userProgress")
	m.SetProgress(180, 2)

	if got := testutil.ToFloat64(m.contractionsRecorded); got != 2 {
		t.Errorf("Expected 2 contractions, got %v", got)
	}
	if got := testutil.ToFloat64(m.achievementsUnlocked.WithLabelValues("first_step")); got != 1 {
		t.Errorf("Expected 1 unlock, got %v", got)
	}
	if got := testutil.ToFloat64(m.progressLevel); got != 2 {
		t.Errorf("Expected level 2, got %v", got)
	}
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.ObserveHTTP("/api/progress", http.MethodGet, http.StatusOK, 15*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `dadguide_http_requests_total{code="200",method="GET",route="/api/progress"} 1`) {
		t.Errorf("Expected request counter in output:\n%s", rec.Body.String())
	}
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	m.ContractionRecorded()
	m.LaborAlert()
	m.SetProgress(1, 1)
	m.ObserveHTTP("/", http.MethodGet, 200, time.Millisecond)
}
