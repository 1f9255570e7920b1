package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/Krimson/dadguide/internal/api"
	"github.com/Krimson/dadguide/internal/app"
	"github.com/Krimson/dadguide/internal/config"
	"github.com/Krimson/dadguide/internal/health"
	"github.com/Krimson/dadguide/internal/metrics"
	"github.com/Krimson/dadguide/internal/notify"

	_ "github.com/Krimson/dadguide/docs" // Swagger docs
)

// @title DadGuide API
// @version 1.0
// @description API трекера схваток и прогресса будущего отца.
// @description Замер схваток по правилу 5-1-1, достижения, вехи и сумка в роддом.

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /
// @schemes http

func main() {
	log.Printf("[INFO] Starting dadguide server...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[FATAL] Failed to load configuration: %v", err)
	}
	log.Printf("[INFO] Configuration loaded: http_port=%s grpc_port=%s store=%s content=%s",
		cfg.HTTPPort, cfg.GRPCPort, cfg.StoreBackend, cfg.ContentProvider)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := app.OpenStore(ctx, cfg)
	if err != nil {
		log.Fatalf("[FATAL] Failed to open store: %v", err)
	}
	defer store.Close()

	opts, err := app.OptionsFromConfig(cfg, store)
	if err != nil {
		log.Fatalf("[FATAL] Failed to configure application: %v", err)
	}

	hub := notify.NewHub()
	go hub.Run(ctx)

	m := metrics.New()
	opts.Metrics = m
	opts.Sink = notify.Fanout{notify.LogSink{}, hub}

	manager, err := app.NewManager(store, opts)
	if err != nil {
		log.Fatalf("[FATAL] Failed to create manager: %v", err)
	}
	defer manager.Close()

	if err := manager.Load(ctx); err != nil {
		// Состояние с ошибкой чтения начинается пустым
		log.Printf("[WARN] State loaded with errors: %v", err)
	}

	healthServer := health.NewHealthServer()
	healthServer.AddProbe(health.ServiceStore, func(ctx context.Context) error {
		_, _, err := store.Get(ctx, "healthz")
		return err
	})

	grpcServer := grpc.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	reflection.Register(grpcServer)

	address := fmt.Sprintf(":%s", cfg.GRPCPort)
	listener, err := net.Listen("tcp", address)
	if err != nil {
		log.Fatalf("[FATAL] Failed to listen on %s: %v", address, err)
	}

	deps := api.RouterDeps{
		Handler: api.NewHTTPHandler(manager),
		Hub:     hub,
		Metrics: m,
		Health:  healthServer,
	}
	if stats, ok := store.(api.StatsProvider); ok {
		deps.Stats = stats.GetStats
	}

	server := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      api.NewRouter(deps),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.ContentTimeout() + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErrChan := make(chan error, 2)
	go func() {
		log.Printf("[INFO] gRPC health server listening on %s", address)
		if err := grpcServer.Serve(listener); err != nil {
			serverErrChan <- fmt.Errorf("gRPC server error: %w", err)
		}
	}()
	go func() {
		log.Printf("[INFO] HTTP server listening on :%s", cfg.HTTPPort)
		log.Printf("[INFO] Swagger UI available at http://localhost:%s/swagger/index.html", cfg.HTTPPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	healthServer.SetServingStatus("")
	healthServer.SetServingStatus(health.ServiceAPI)

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrChan:
		log.Printf("[ERROR] Server error: %v", err)

	case sig := <-shutdownChan:
		log.Printf("[INFO] Received signal %v, starting graceful shutdown...", sig)
	}

	healthServer.SetNotServingStatus("")
	healthServer.SetNotServingStatus(health.ServiceAPI)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("[WARN] HTTP server forced to shutdown: %v", err)
	}
	grpcServer.GracefulStop()
	cancel()

	log.Printf("[INFO] Server stopped")
}
