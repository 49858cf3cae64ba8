package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/dejobratic/orderflow/internal/auth"
	"github.com/dejobratic/orderflow/internal/catalogue"
	"github.com/dejobratic/orderflow/internal/config"
	"github.com/dejobratic/orderflow/internal/database"
	"github.com/dejobratic/orderflow/internal/diagnostics"
	"github.com/dejobratic/orderflow/internal/orders/adapters"
	"github.com/dejobratic/orderflow/internal/orders/adapters/memory"
	"github.com/dejobratic/orderflow/internal/orders/adapters/sqlstore"
	"github.com/dejobratic/orderflow/internal/orders/app"
	"github.com/dejobratic/orderflow/internal/orders/metrics"
	"github.com/dejobratic/orderflow/internal/orders/ports"
	"github.com/dejobratic/orderflow/internal/telemetry"
)

const meterName = "github.com/dejobratic/orderflow"

type diagnosticsSink interface {
	ports.DiagnosticsSink
	io.Closer
}

// runWithService builds the service for one command invocation, runs fn,
// and releases everything it opened.
func (o *RootOptions) runWithService(cmd *cobra.Command, fn func(context.Context, *app.Service) error) (err error) {
	ctx := cmd.Context()
	cfg := o.Config

	level, err := telemetry.ParseLevel(cfg.Telemetry.LogLevel)
	if err != nil {
		return WrapExitError(ExitValidation, "invalid log level", err)
	}
	logger := telemetry.NewLogger(cmd.ErrOrStderr(), level)

	tel, err := telemetry.Initialize(ctx, cfg.TelemetrySettings())
	if err != nil {
		return WrapExitError(ExitFailure, "initialize telemetry", err)
	}
	defer func() {
		if shutdownErr := tel.Shutdown(context.Background()); shutdownErr != nil {
			logger.Warn("telemetry shutdown failed", "error", shutdownErr)
		}
	}()

	meter := tel.Meter(meterName)
	orderMetrics, err := metrics.NewMetrics(meter)
	if err != nil {
		return WrapExitError(ExitFailure, "create order metrics", err)
	}
	dbMetrics, err := database.NewMetrics(meter)
	if err != nil {
		return WrapExitError(ExitFailure, "create database metrics", err)
	}

	cat, err := catalogue.Load(cfg.Orders.CataloguePath)
	if err != nil {
		return WrapExitError(ExitFailure, "load catalogue", err)
	}

	repo, closeRepo, err := openRepository(ctx, cfg.Store, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := closeRepo(); closeErr != nil {
			err = errors.Join(err, closeErr)
		}
	}()

	observed := adapters.NewObservableRepository(repo, dbMetrics)
	if cfg.Store.AutoMigrate {
		if err := observed.InitSchema(ctx); err != nil {
			return WrapExitError(ExitFailure, "initialize schema", err)
		}
	}

	sink, err := openDiagnostics(cfg.Orders.DiagnosticsPath, logger)
	if err != nil {
		return WrapExitError(ExitFailure, "open diagnostics", err)
	}
	defer func() {
		if closeErr := sink.Close(); closeErr != nil {
			logger.Warn("diagnostics close failed", "error", closeErr)
		}
	}()

	service, err := app.NewService(app.Dependencies{
		Repository:  observed,
		Catalogue:   cat,
		Clock:       o.clock,
		IDs:         o.ids,
		Authorizer:  auth.NewSharedCode(cfg.Orders.AuthCode),
		Diagnostics: sink,
		Logger:      logger,
		Metrics:     orderMetrics,
		Limits: app.Limits{
			MaxMessageLen: cfg.Orders.MaxMessageLen,
			MaxItems:      cfg.Orders.MaxItems,
			MaxQty:        cfg.Orders.MaxQty,
		},
	})
	if err != nil {
		return WrapExitError(ExitFailure, "create order service", err)
	}

	logger.Debug("orderflow command invoked", "command", cmd.Name(), "store", cfg.Store.Backend)
	return fn(ctx, service)
}

func openRepository(ctx context.Context, cfg config.StoreConfig, logger *slog.Logger) (ports.OrderRepository, func() error, error) {
	if cfg.Backend == config.BackendMemory {
		return memory.NewRepository(), func() error { return nil }, nil
	}

	db, err := database.Open(ctx, cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, nil, WrapExitError(ExitFailure, "open database", err)
	}
	logger.Debug("database opened", "driver", cfg.Driver)

	return sqlstore.New(db), func() error {
		if err := db.Close(); err != nil {
			return fmt.Errorf("close database: %w", err)
		}
		return nil
	}, nil
}

func openDiagnostics(path string, logger *slog.Logger) (diagnosticsSink, error) {
	if path == "" {
		return diagnostics.NewNoop(logger), nil
	}
	return diagnostics.OpenJSONLines(path, logger)
}
