package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	jsonfileadapter "clientdesk/internal/adapter/driven/jsonfile"
	postgresadapter "clientdesk/internal/adapter/driven/postgres"
	httphandler "clientdesk/internal/adapter/driving/http"
	"clientdesk/internal/config"
	"clientdesk/internal/domain/port/driven"
	"clientdesk/internal/secrets"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration (fail fast on missing required env vars).
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"store", cfg.Store,
		"data_dir", cfg.DataDir,
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Derive the secret cipher once; a blank key aborts startup here
	// rather than on the first request.
	cipher, err := secrets.New(cfg.SecretKey)
	if err != nil {
		return err
	}

	// 4. Wire the selected store variant.
	var store driven.ClientStore
	switch cfg.Store {
	case config.StorePostgres:
		db, err := postgresadapter.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer func() {
			if closeErr := db.Close(); closeErr != nil {
				slog.Error("error closing database", "error", closeErr)
			}
		}()
		store = postgresadapter.NewClientRepo(db, cipher, slog.Default())
		slog.Info("postgres store ready")
	default:
		fileStore, err := jsonfileadapter.NewStore(cfg.DataDir, cipher, slog.Default())
		if err != nil {
			return err
		}
		store = fileStore
		slog.Info("file store ready", "data_dir", cfg.DataDir)
	}

	// 5. Create HTTP handler and register routes.
	apiHandler := httphandler.NewHandler(store, slog.Default())
	handler := httphandler.NewServeMux(apiHandler, slog.Default())

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	slog.Info("clientdesk started", "listen_addr", cfg.ListenAddr, "store", cfg.Store)

	// 6. Wait for shutdown signal or server failure.
	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}
	slog.Info("shutting down")

	// 7. Graceful shutdown with 10s timeout to drain in-flight requests.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}
