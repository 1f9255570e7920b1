package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/Krimson/dadguide/internal/metrics"
	"github.com/Krimson/dadguide/internal/notify"
)

// RouterDeps - компоненты, которые обслуживает HTTP сервер
type RouterDeps struct {
	Handler *HTTPHandler
	Hub     *notify.Hub
	Metrics *metrics.Metrics
	Health  http.Handler
	// Stats - отладочная статистика хранилища, если оно ее отдает
	Stats func() map[string]interface{}
}

// StatsProvider - хранилище с отладочной статистикой
type StatsProvider interface {
	GetStats() map[string]interface{}
}

// NewRouter собирает маршруты API, websocket, Swagger UI, метрик и health
func NewRouter(deps RouterDeps) http.Handler {
	router := mux.NewRouter()
	router.Use(instrument(deps.Metrics))

	deps.Handler.RegisterRoutes(router)

	if deps.Hub != nil {
		router.HandleFunc("/ws", deps.Hub.HandleWebSocket)
	}
	if deps.Health != nil {
		router.Handle("/healthz", deps.Health).Methods("GET")
	}
	if deps.Metrics != nil {
		router.Handle("/metrics", deps.Metrics.Handler()).Methods("GET")
	}

	if deps.Stats != nil {
		router.HandleFunc("/debug/stats", func(w http.ResponseWriter, r *http.Request) {
			respondJSON(w, http.StatusOK, map[string]interface{}{
				"store":     deps.Stats(),
				"timestamp": time.Now().Format(time.RFC3339),
			})
		}).Methods("GET")
	}

	router.PathPrefix("/swagger/").Handler(httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
		httpSwagger.DeepLinking(true),
		httpSwagger.DocExpansion("list"),
		httpSwagger.DomID("swagger-ui"),
	))

	return enableCORS(router)
}

// statusRecorder запоминает код ответа для метрик
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func instrument(m *metrics.Metrics) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			route := "unknown"
			if current := mux.CurrentRoute(r); current != nil {
				if tmpl, err := current.GetPathTemplate(); err == nil {
					route = tmpl
				}
			}

			// websocket требует исходный ResponseWriter с Hijacker
			if route == "/ws" {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			m.ObserveHTTP(route, r.Method, rec.status, time.Since(start))
		})
	}
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			return
		}

		next.ServeHTTP(w, r)
	})
}
