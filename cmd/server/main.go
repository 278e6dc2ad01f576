package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/JohanDevl/Exams-Viewer/internal/api"
	"github.com/JohanDevl/Exams-Viewer/internal/infrastructure/config"
	"github.com/JohanDevl/Exams-Viewer/internal/persistence"
	"github.com/JohanDevl/Exams-Viewer/internal/service"
	"github.com/JohanDevl/Exams-Viewer/internal/store"

	_ "github.com/JohanDevl/Exams-Viewer/docs" // generated swagger docs
)

// @title           Exams Viewer statistics API
// @version         1.0
// @description     Study sessions, statistics, favorites and resume positions for the exam viewer.

// @host      localhost:8080
// @BasePath  /

func main() {
	cfg := config.Load()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	// ── Dependencies ────────────────────────────────────────────────
	kv, err := store.Open(cfg.StoreDriver, cfg.StorePath, cfg.StoreQuotaBytes)
	if err != nil {
		logger.Error("failed to open store", "driver", cfg.StoreDriver, "path", cfg.StorePath, "error", err)
		os.Exit(1)
	}
	defer kv.Close()

	gw := persistence.New(kv, persistence.Options{
		Codec:                cfg.StatsCodec,
		MaxBytes:             cfg.StatsMaxBytes,
		TrimSessions:         cfg.StatsTrimSessions,
		QuotaRetainSessions:  cfg.QuotaRetainSessions,
		QuotaFloorSessions:   cfg.QuotaFloorSessions,
		LoadMaxSessions:      cfg.LoadMaxSessions,
		ResumeTrimPositions:  persistence.DefaultOptions().ResumeTrimPositions,
		ResumeQuotaPositions: persistence.DefaultOptions().ResumeQuotaPositions,
	}, logger)

	ctx := context.Background()
	resets, err := gw.CheckIntegrity(ctx)
	if err != nil {
		logger.Error("integrity check failed", "error", err)
	}
	for _, r := range resets {
		if r.UserVisible {
			logger.Warn("stored data was corrupted and has been reset", "store", r.Store, "reason", r.Reason)
		}
	}

	tracker, _ := service.NewTracker(ctx, gw, logger)
	handler := api.NewHandler(tracker, logger)

	// ── Routes ──────────────────────────────────────────────────────
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "ok"}`))
	})
	mux.Handle("GET /metrics", promhttp.Handler())

	api.RegisterRoutes(mux, handler)

	// Swagger UI served at /swagger/
	mux.Handle("GET /swagger/", httpSwagger.WrapHandler)

	// ── Middleware chain: Logging → CORS → mux ──────────────────────
	logged := api.Logging(logger)(api.CORS(mux))

	// ── Server ──────────────────────────────────────────────────────
	server := &http.Server{
		Addr:              cfg.ServerAddress,
		Handler:           logged,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		logger.Info("shutting down server")
		if err := server.Shutdown(ctx); err != nil {
			logger.Error("server forced to shutdown", "error", err)
		}
	}()

	logger.Info("starting server", "address", cfg.ServerAddress, "store", cfg.StoreDriver)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server failed to start", "error", err)
		os.Exit(1)
	}
}
