package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dejobratic/orderflow/internal/clock"
	"github.com/dejobratic/orderflow/internal/config"
	"github.com/dejobratic/orderflow/internal/idgen"
	"github.com/dejobratic/orderflow/internal/orders/ports"
)

// RootOptions holds the configuration shared by every command. Global flags
// write straight into Config, so they override the environment.
type RootOptions struct {
	Config *config.Config

	clock ports.Clock
	ids   ports.IDGenerator
}

type Option func(*RootOptions)

// WithClock pins the clock, mainly for golden tests.
func WithClock(c ports.Clock) Option {
	return func(o *RootOptions) { o.clock = c }
}

// WithIDGenerator replaces the random order ID source.
func WithIDGenerator(ids ports.IDGenerator) Option {
	return func(o *RootOptions) { o.ids = ids }
}

// NewRootCommand creates the root command for the orderflow CLI.
func NewRootCommand(cfg *config.Config, opts ...Option) *cobra.Command {
	root := &RootOptions{
		Config: cfg,
		clock:  clock.System{},
		ids:    idgen.Random{},
	}
	for _, opt := range opts {
		opt(root)
	}

	cmd := &cobra.Command{
		Use:           "orderflow",
		Short:         "Accept, list and fulfill text message orders",
		Long:          "OrderFlow validates \"ORDER ...\" text messages against a catalogue, stores them, and lets an authorized operator fulfill them.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			if err := cfg.Validate(); err != nil {
				return WrapExitError(ExitValidation, "invalid configuration", err)
			}
			return nil
		},
	}
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return WrapExitError(ExitValidation, "invalid flags", err)
	})

	flags := cmd.PersistentFlags()
	flags.StringVar(&cfg.Store.DSN, "db", cfg.Store.DSN, "SQLite file path or PostgreSQL URL")
	flags.StringVar(&cfg.Store.Driver, "db-driver", cfg.Store.Driver, "database driver (sqlite3|pgx)")
	flags.StringVar(&cfg.Store.Backend, "store", cfg.Store.Backend, "order store (sql|memory)")
	flags.StringVar(&cfg.Orders.CataloguePath, "catalog", cfg.Orders.CataloguePath, "catalogue JSON or YAML file (default: built-in catalogue)")
	flags.StringVar(&cfg.Orders.AuthCode, "required-auth-code", cfg.Orders.AuthCode, "six digit code required to fulfill orders")
	flags.StringVar(&cfg.Telemetry.LogLevel, "log-level", cfg.Telemetry.LogLevel, "log level written to stderr (debug|info|warn|error)")
	flags.StringVar(&cfg.Orders.DiagnosticsPath, "diagnostics", cfg.Orders.DiagnosticsPath, "append diagnostics events to this JSON Lines file")

	cmd.AddCommand(NewPlaceCommand(root))
	cmd.AddCommand(NewShowCommand(root))
	cmd.AddCommand(NewListCommand(root))
	cmd.AddCommand(NewFulfillCommand(root))
	cmd.AddCommand(NewBatchCommand(root))

	return cmd
}

// Execute runs cmd and returns the process exit code. Errors that were not
// already reported on stdout are printed to stderr.
func Execute(cmd *cobra.Command) int {
	err := cmd.Execute()
	if err == nil {
		return ExitSuccess
	}

	var exitErr *ExitError
	if !errors.As(err, &exitErr) || !exitErr.silent() {
		fmt.Fprintf(cmd.ErrOrStderr(), "orderflow: %v\n", err)
	}
	return GetExitCode(err)
}
