package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quotation-backend/internal/bootstrap"
	"quotation-backend/internal/shared/config"
	"quotation-backend/internal/shared/server"
	"quotation-backend/internal/shared/storage/db"
	"quotation-backend/internal/shared/telemetry"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fatal("config.load_failed", err)
	}
	telemetry.SetLevel(cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		fatal("config.invalid", err)
	}
	if cfg.EphemeralSecret {
		telemetry.Warn("config.ephemeral_secret", map[string]any{
			"env":    cfg.Env,
			"detail": "JWT_SECRET unset; sessions will not survive a restart",
		})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.Build(ctx, cfg)
	if err != nil {
		fatal("bootstrap.failed", err)
	}
	defer app.Close()

	if app.DB != nil {
		if err := db.RunMigrations(ctx, app.DB); err != nil {
			fatal("migrations.failed", err)
		}
	}

	srv := &http.Server{
		Addr:              server.Addr(cfg.Port),
		Handler:           app.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		telemetry.Info("server.start", map[string]any{"addr": srv.Addr, "env": cfg.Env})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal("server.failed", err)
		}
	}()

	<-ctx.Done()
	telemetry.Info("server.shutdown", map[string]any{"timeout": shutdownTimeout.String()})
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		telemetry.Error("server.shutdown_failed", map[string]any{"err": err.Error()})
	}
}

func fatal(msg string, err error) {
	telemetry.Error(msg, map[string]any{"err": err.Error()})
	os.Exit(1)
}
