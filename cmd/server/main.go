package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/sheetflow/internal/application"
	"github.com/JonMunkholm/sheetflow/internal/config"
	"github.com/JonMunkholm/sheetflow/internal/logging"
	"github.com/JonMunkholm/sheetflow/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"upload_max_concurrent", cfg.Upload.MaxConcurrent,
		"llm_model", cfg.Pipeline.LLMModel,
		"warehouse", cfg.Warehouse.Driver,
		"email_tables", cfg.Mail.AttachmentTables,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := application.New(ctx, cfg, application.Options{})
	if err != nil {
		slog.Error("failed to start application", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	service := app.Service
	server := web.NewServer(service, cfg)

	// Background jobs stop with the signal context
	go service.StartSessionJanitor(ctx, cfg.Session.SweepInterval)

	// Returns after shutdown has drained uploads and in-flight requests
	if err := server.ListenAndServe(ctx, cfg.Server.Addr()); err != nil {
		slog.Error("server stopped", "error", err)
	}
}
