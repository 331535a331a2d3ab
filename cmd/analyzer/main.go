// Command analyzer runs the incident analytics service: it connects to the
// incident store, starts the background purge worker, and serves the
// operational HTTP endpoints (/healthz, /readyz, /metrics, /admin/purge).
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/incident-analytics/internal/adapter/http"
	"github.com/couchcryptid/incident-analytics/internal/admin"
	"github.com/couchcryptid/incident-analytics/internal/config"
	"github.com/couchcryptid/incident-analytics/internal/observability"
	"github.com/couchcryptid/incident-analytics/internal/store"
)

// storeReadiness reports ready when the incident store answers a ping.
type storeReadiness struct {
	store *store.Client
}

func (s storeReadiness) CheckReadiness(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	client := store.NewClient(store.Config{
		URL:          cfg.InfluxURL,
		Token:        cfg.InfluxToken,
		Org:          cfg.InfluxOrg,
		Bucket:       cfg.IncidentBucket,
		QueryTimeout: cfg.QueryTimeout,
	}, logger, metrics)
	defer client.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	purger := admin.NewPurgeWorker(client, logger, metrics)
	purger.Start(ctx)

	srv := httpadapter.NewServer(cfg.HTTPAddr, storeReadiness{client}, purger, logger)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
}
