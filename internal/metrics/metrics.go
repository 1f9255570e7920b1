// Package metrics собирает счетчики Prometheus. Все методы допускают
// nil-получатель, чтобы компоненты работали и без метрик.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "dadguide"

type Metrics struct {
	registry *prometheus.Registry

	contractionsRecorded prometheus.Counter
	laborAlerts          prometheus.Counter
	achievementsUnlocked *prometheus.CounterVec
	persistFailures      *prometheus.CounterVec
	contentRequests      *prometheus.CounterVec
	progressPoints       prometheus.Gauge
	progressLevel        prometheus.Gauge
	httpRequests         *prometheus.CounterVec
	httpDuration         *prometheus.HistogramVec
}

// New регистрирует метрики в собственном реестре
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		contractionsRecorded: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "contractions_recorded_total",
			Help:      "Contractions appended to the log.",
		}),
		laborAlerts: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "labor_alerts_total",
			Help:      "Times the 5-1-1 labor alert fired after a recorded contraction.",
		}),
		achievementsUnlocked: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "achievements_unlocked_total",
			Help:      "Newly unlocked achievements by id.",
		}, []string{"achievement"}),
		persistFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persist_failures_total",
			Help:      "Failed whole-record writes by storage key.",
		}, []string{"key"}),
		contentRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "content_requests_total",
			Help:      "Weekly content requests by result.",
		}, []string{"result"}),
		progressPoints: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "progress_points",
			Help:      "Current progress points.",
		}),
		progressLevel: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "progress_level",
			Help:      "Current progress level.",
		}),
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status code.",
		}, []string{"route", "method", "code"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}
}

// Handler отдает метрики в формате Prometheus
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ContractionRecorded() {
	if m == nil {
		return
	}
	m.contractionsRecorded.Inc()
}

func (m *Metrics) LaborAlert() {
	if m == nil {
		return
	}
	m.laborAlerts.Inc()
}

func (m *Metrics) AchievementUnlocked(id string) {
	if m == nil {
		return
	}
	m.achievementsUnlocked.WithLabelValues(id).Inc()
}

func (m *Metrics) PersistFailed(key string) {
	if m == nil {
		return
	}
	m.persistFailures.WithLabelValues(key).Inc()
}

// ContentRequest учитывает запрос материалов: ok, fallback или error
func (m *Metrics) ContentRequest(result string) {
	if m == nil {
		return
	}
	m.contentRequests.WithLabelValues(result).Inc()
}

func (m *Metrics) SetProgress(points, level int) {
	if m == nil {
		return
	}
	m.progressPoints.Set(float64(points))
	m.progressLevel.Set(float64(level))
}

// ObserveHTTP учитывает завершенный HTTP запрос
func (m *Metrics) ObserveHTTP(route, method string, code int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(code)).Inc()
	m.httpDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}
