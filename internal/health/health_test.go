package health

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
)

func check(t *testing.T, h *HealthServer, service string) grpc_health_v1.HealthCheckResponse_ServingStatus {
	t.Helper()
	resp, err := h.Check(context.Background(), &grpc_health_v1.HealthCheckRequest{Service: service})
	if err != nil {
		t.Fatalf("Check(%q) failed: %v", service, err)
	}
	return resp.GetStatus()
}

func TestHealthServer_Check(t *testing.T) {
	h := NewHealthServer()
	h.SetServingStatus(ServiceAPI)

	if got := check(t, h, ServiceAPI); got != grpc_health_v1.HealthCheckResponse_SERVING {
		t.Errorf("Expected SERVING, got %v", got)
	}

	_, err := h.Check(context.Background(), &grpc_health_v1.HealthCheckRequest{Service: "missing"})
	if status.Code(err) != codes.NotFound {
		t.Errorf("Expected NotFound, got %v", err)
	}

	h.SetNotServingStatus(ServiceAPI)
	if got := check(t, h, ""); got != grpc_health_v1.HealthCheckResponse_NOT_SERVING {
		t.Errorf("Expected overall NOT_SERVING, got %v", got)
	}
}

func TestHealthServer_Probe(t *testing.T) {
	h := NewHealthServer()
	var probeErr error
	h.AddProbe(ServiceStore, func(ctx context.Context) error { return probeErr })

	if got := check(t, h, ServiceStore); got != grpc_health_v1.HealthCheckResponse_SERVING {
		t.Errorf("Expected SERVING, got %v", got)
	}

	probeErr = errors.New("connection refused")
	if got := check(t, h, ServiceStore); got != grpc_health_v1.HealthCheckResponse_NOT_SERVING {
		t.Errorf("Expected NOT_SERVING after probe failure, got %v", got)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503, got %d", rec.Code)
	}
}
