// @title                       Deposition Dashboard API
// @version                     1.0
// @description                 Synchronized state of the deposition apparatus, equipment commands and telemetry diagnostics.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "deposition_dashboard/docs"
	"deposition_dashboard/internal/config"
	"deposition_dashboard/internal/connection"
	"deposition_dashboard/internal/handlers"
	"deposition_dashboard/internal/logger"
	"deposition_dashboard/internal/metrics"
	"deposition_dashboard/internal/repository"
	"deposition_dashboard/internal/repository/db"
	"deposition_dashboard/internal/server"
	"deposition_dashboard/internal/service"
	"deposition_dashboard/internal/telemetry"
	"deposition_dashboard/internal/tui"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/pflag"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

const (
	shutdownTimeout = 10 * time.Second
	eventRetention  = 30 * 24 * time.Hour
	pruneInterval   = time.Hour
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error reading config: %v\n", err)
		os.Exit(2)
	}

	log := newLogger(cfg)
	defer func() { _ = log.Sync() }()

	sqlDB, err := openDB(cfg, log)
	if err != nil {
		log.Fatalw("failed to init sqlite", "err", err)
	}
	defer func() {
		if cerr := sqlDB.Close(); cerr != nil {
			log.Errorw("failed to close sqlite", "err", cerr)
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewTelemetry(reg)

	// wire dependencies
	repos := repository.NewRepository(sqlDB)
	client := telemetry.NewClient(
		telemetry.Config{
			URL:            cfg.Telemetry.URL,
			ReconnectDelay: cfg.Telemetry.ReconnectDelay,
			MergePolicy:    cfg.Telemetry.MergePolicy,
		},
		telemetry.Options{
			Dialer:  connection.WebSocketDialer{ReadTimeout: cfg.Telemetry.ReadTimeout},
			Logger:  log,
			Metrics: m,
			Events:  repos.EventRepo,
		},
	)
	services := service.NewService(repos, service.Deps{
		Telemetry: client,
		DB:        sqlDB,
		Metrics:   m,
		Log:       log,
		Version:   version,
		Commands:  service.EquipmentConfig{BaseURL: cfg.Commands.BaseURL, Timeout: cfg.Commands.Timeout},
		Auth:      service.AuthConfig{SigningKey: cfg.Auth.SigningKey, TokenTTL: cfg.Auth.TokenTTL},
		Simulator: cfg.Simulator.Enabled,
	})
	apiHandler := handlers.NewHandler(services, log, reg)

	// context for background goroutines
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv := &server.Server{}
	runHTTPServer(srv, cfg.Port, apiHandler, log)

	if services.Simulator != nil {
		log.Infow("simulator_enabled", "interval", cfg.Simulator.Interval.String(), "stream", "/sim/ws")
		go services.Simulator.Run(ctx, cfg.Simulator.Interval)
	}
	go pruneEvents(ctx, services, log)

	clientDone := make(chan struct{})
	go func() {
		defer close(clientDone)
		if err := client.Run(ctx); err != nil {
			log.Errorw("telemetry_client_failed", "err", err)
		}
	}()

	if cfg.TUI {
		go func() {
			if err := tui.Run(ctx, client.Hub()); err != nil {
				log.Errorw("tui_failed", "err", err)
			}
			// quitting the dashboard stops the process
			cancel()
		}()
	}

	waitForShutdown(ctx, cancel, srv, log)
	<-clientDone
}

// newLogger writes to stdout, or to the log file while the TUI owns the terminal.
func newLogger(cfg *config.AppConfig) *logger.Logger {
	if cfg.TUI {
		return logger.GetToFile(cfg.Log.Level, cfg.Log.File)
	}
	return logger.Get(cfg.Log.Level)
}

func openDB(cfg *config.AppConfig, log *logger.Logger) (*sql.DB, error) {
	log.Infow("opening database", "path", cfg.DBPath)
	return db.InitDB(cfg.DBPath)
}

// runHTTPServer runs the HTTP server in a separate goroutine.
func runHTTPServer(srv *server.Server, port string, handler *handlers.Handler, log *logger.Logger) {
	go func() {
		if err := srv.Run(port, handler.InitRoutes()); err != nil {
			log.Fatalw("error starting server", "err", err)
		}
	}()
}

// pruneEvents keeps the diagnostics log bounded.
func pruneEvents(ctx context.Context, services *service.Service, log *logger.Logger) {
	t := time.NewTicker(pruneInterval)
	defer t.Stop()
	for {
		n, err := services.Prune(ctx, eventRetention)
		switch {
		case err != nil && ctx.Err() == nil:
			log.Warnw("events_prune_failed", "err", err)
		case n > 0:
			log.Infow("events_pruned", "count", n)
		}
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}

// waitForShutdown blocks until a termination signal arrives or ctx ends,
// then stops background work and drains the HTTP server.
func waitForShutdown(ctx context.Context, cancel context.CancelFunc, srv *server.Server, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case <-quit:
	case <-ctx.Done():
	}

	log.Infow("shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("server forced to shutdown", "err", err)
	}
}
