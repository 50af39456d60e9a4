// Package application assembles the service and its sinks from
// configuration. Both the HTTP server and the CLI start here.
package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/JonMunkholm/sheetflow/internal/charts"
	"github.com/JonMunkholm/sheetflow/internal/config"
	"github.com/JonMunkholm/sheetflow/internal/core"
	"github.com/JonMunkholm/sheetflow/internal/extract"
	"github.com/JonMunkholm/sheetflow/internal/mailer"
	"github.com/JonMunkholm/sheetflow/internal/rules"
	"github.com/JonMunkholm/sheetflow/internal/warehouse"
)

// Options adjust the wiring for non-server callers.
type Options struct {
	// Offline keeps the sheet-derived table titles and never calls the LLM.
	Offline bool

	// SkipWarehouse leaves the warehouse sink unconfigured even if a driver is set.
	SkipWarehouse bool
}

// App owns the service and the resources behind it.
type App struct {
	Config    *config.Config
	Service   *core.Service
	Warehouse warehouse.Warehouse
}

// New connects the configured sinks and builds the service.
func New(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	var titler extract.Titler
	if !opts.Offline {
		titler = extract.NewGeminiTitler(cfg.Pipeline.LLMModel, cfg.Pipeline.PreviewRows)
	}

	params := extract.DefaultDetectionParams()
	if cfg.Pipeline.MinTableCells > 0 {
		params.MinNonemptyCells = cfg.Pipeline.MinTableCells
	}

	app := &App{Config: cfg}

	var loader core.WarehouseLoader
	if !opts.SkipWarehouse && cfg.Warehouse.Enabled() {
		wh, err := warehouse.Open(ctx, WarehouseConfig(cfg.Warehouse))
		if err != nil {
			return nil, fmt.Errorf("open warehouse: %w", err)
		}
		app.Warehouse = wh
		loader = wh
		slog.Info("warehouse connected", "driver", cfg.Warehouse.Driver, "prefix", cfg.Warehouse.TablePrefix)
	}

	svc, err := core.NewService(ServiceConfig(cfg), core.ServiceDeps{
		Extractor:   extract.New(titler, params),
		Validator:   rules.NewValidator(),
		Transformer: rules.NewTransformer(),
		Warehouse:   loader,
		Mailer: mailer.New(mailer.Config{
			Host:           cfg.Mail.SMTPHost,
			Port:           cfg.Mail.SMTPPort,
			AttachmentName: cfg.Mail.AttachmentName,
		}),
		Charts: charts.New(),
	})
	if err != nil {
		_ = app.Close()
		return nil, fmt.Errorf("create service: %w", err)
	}
	app.Service = svc
	return app, nil
}

// Close releases the warehouse connection, if any.
func (a *App) Close() error {
	if a.Warehouse == nil {
		return nil
	}
	return a.Warehouse.Close()
}

// ServiceConfig maps configuration onto the service tunables.
func ServiceConfig(cfg *config.Config) core.ServiceConfig {
	return core.ServiceConfig{
		TempDir:          cfg.Upload.TempDir,
		UploadTimeout:    cfg.Upload.Timeout,
		WarehouseTimeout: cfg.Warehouse.Timeout,
		MailTimeout:      cfg.Mail.Timeout,
		SessionTTL:       cfg.Session.TTL,
		MaxConcurrent:    cfg.Upload.MaxConcurrent,
		MaxWait:          cfg.Upload.MaxWaitTime,
		EmailTables:      cfg.Mail.AttachmentTables,
	}
}

// WarehouseConfig maps configuration onto the warehouse backend settings.
func WarehouseConfig(cfg config.WarehouseConfig) warehouse.Config {
	return warehouse.Config{
		Driver:          cfg.Driver,
		URL:             cfg.URL,
		TablePrefix:     cfg.TablePrefix,
		MaxConns:        cfg.MaxConns,
		MinConns:        cfg.MinConns,
		MaxConnLifetime: cfg.MaxConnLifetime,
		MaxConnIdleTime: cfg.MaxConnIdleTime,
	}
}
