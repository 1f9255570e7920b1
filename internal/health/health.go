package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
)

// Имена сервисов, о которых отчитывается HealthServer
const (
	ServiceAPI   = "dadguide.api"
	ServiceStore = "dadguide.store"
)

const probeTimeout = 2 * time.Second

// Probe проверяет зависимость, например доступность хранилища
type Probe func(ctx context.Context) error

// HealthServer реализует grpc_health_v1 и HTTP /healthz
type HealthServer struct {
	grpc_health_v1.UnimplementedHealthServer
	mu       sync.RWMutex
	services map[string]grpc_health_v1.HealthCheckResponse_ServingStatus
	probes   map[string]Probe
}

func NewHealthServer() *HealthServer {
	return &HealthServer{
		services: make(map[string]grpc_health_v1.HealthCheckResponse_ServingStatus),
		probes:   make(map[string]Probe),
	}
}

// AddProbe регистрирует проверку сервиса; она выполняется при каждом Check
func (h *HealthServer) AddProbe(service string, probe Probe) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.probes[service] = probe
	if _, ok := h.services[service]; !ok {
		h.services[service] = grpc_health_v1.HealthCheckResponse_SERVING
	}
}

func (h *HealthServer) Check(ctx context.Context, req *grpc_health_v1.HealthCheckRequest) (*grpc_health_v1.HealthCheckResponse, error) {
	service := req.GetService()

	if service == "" {
		overall := grpc_health_v1.HealthCheckResponse_SERVING
		for _, st := range h.Statuses(ctx) {
			if st != grpc_health_v1.HealthCheckResponse_SERVING {
				overall = grpc_health_v1.HealthCheckResponse_NOT_SERVING
			}
		}
		return &grpc_health_v1.HealthCheckResponse{Status: overall}, nil
	}

	servingStatus, exists := h.statusOf(ctx, service)
	if !exists {
		return nil, status.Error(codes.NotFound, "service not found")
	}

	return &grpc_health_v1.HealthCheckResponse{
		Status: servingStatus,
	}, nil
}

func (h *HealthServer) Watch(req *grpc_health_v1.HealthCheckRequest, stream grpc_health_v1.Health_WatchServer) error {
	response, err := h.Check(stream.Context(), req)
	if err != nil {
		return err
	}

	if err := stream.Send(response); err != nil {
		return err
	}

	<-stream.Context().Done()
	return stream.Context().Err()
}

func (h *HealthServer) SetServingStatus(service string) {
	h.setStatus(service, grpc_health_v1.HealthCheckResponse_SERVING)
}

func (h *HealthServer) SetNotServingStatus(service string) {
	h.setStatus(service, grpc_health_v1.HealthCheckResponse_NOT_SERVING)
}

// Statuses возвращает текущие статусы всех сервисов с учетом проверок
func (h *HealthServer) Statuses(ctx context.Context) map[string]grpc_health_v1.HealthCheckResponse_ServingStatus {
	h.mu.RLock()
	names := make([]string, 0, len(h.services))
	for name := range h.services {
		names = append(names, name)
	}
	h.mu.RUnlock()

	out := make(map[string]grpc_health_v1.HealthCheckResponse_ServingStatus, len(names))
	for _, name := range names {
		out[name], _ = h.statusOf(ctx, name)
	}
	return out
}

// ServeHTTP отдает статусы в JSON; 503, если что-то не обслуживается
func (h *HealthServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	statuses := h.Statuses(r.Context())

	names := make([]string, 0, len(statuses))
	for name := range statuses {
		names = append(names, name)
	}
	sort.Strings(names)

	code := http.StatusOK
	body := struct {
		Status   string            `json:"status"`
		Services map[string]string `json:"services"`
	}{Status: "ok", Services: make(map[string]string, len(names))}

	for _, name := range names {
		st := statuses[name]
		body.Services[name] = st.String()
		if st != grpc_health_v1.HealthCheckResponse_SERVING {
			code = http.StatusServiceUnavailable
			body.Status = "degraded"
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(body)
}

func (h *HealthServer) statusOf(ctx context.Context, service string) (grpc_health_v1.HealthCheckResponse_ServingStatus, bool) {
	h.mu.RLock()
	st, exists := h.services[service]
	probe := h.probes[service]
	h.mu.RUnlock()

	if !exists {
		return grpc_health_v1.HealthCheckResponse_SERVICE_UNKNOWN, false
	}
	if st != grpc_health_v1.HealthCheckResponse_SERVING || probe == nil {
		return st, true
	}

	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	if err := probe(probeCtx); err != nil {
		return grpc_health_v1.HealthCheckResponse_NOT_SERVING, true
	}
	return st, true
}

func (h *HealthServer) setStatus(service string, status grpc_health_v1.HealthCheckResponse_ServingStatus) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.services[service] = status
}
