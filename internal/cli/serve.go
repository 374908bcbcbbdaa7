package cli

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

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/roach88/shoal/internal/db"
	"github.com/roach88/shoal/internal/engine"
	"github.com/roach88/shoal/internal/schema"
	"github.com/roach88/shoal/internal/storage"
	"github.com/roach88/shoal/internal/storage/sqlite"
	"github.com/roach88/shoal/internal/transport"
)

// ValidStores lists the supported storage adapters.
var ValidStores = []string{"memory", "sqlite"}

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Addr        string
	Schema      string
	Store       string
	Database    string
	MetricsAddr string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the sync server",
		Long: `Start the shoal sync server.

The server loads table declarations from a CUE schema, initializes the
configured storage adapter, and listens for newline-delimited JSON
frames over TCP. Reopening a SQLite store resumes its revisions.

Flags other than --schema can also come from the environment as
SHOAL_<FLAG> (e.g. SHOAL_ADDR=:7420, SHOAL_METRICS_ADDR=:9090).

Examples:
  shoal serve --schema ./schema.cue
  shoal serve --schema ./schema --store sqlite --db ./shoal.db
  shoal serve --schema ./schema --metrics-addr :9090 --verbose`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			// Bind flags to viper so SHOAL_* environment variables
			// fill in anything not set on the command line.
			if err := viper.BindPFlags(cmd.Flags()); err != nil {
				return err
			}
			opts.Addr = viper.GetString("addr")
			opts.Store = viper.GetString("store")
			opts.Database = viper.GetString("db")
			opts.MetricsAddr = viper.GetString("metrics-addr")
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", ":7420", "listen address")
	cmd.Flags().StringVar(&opts.Schema, "schema", "", "path to CUE schema file or directory (required)")
	cmd.Flags().StringVar(&opts.Store, "store", "memory", "storage adapter (memory|sqlite)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required with --store sqlite)")
	cmd.Flags().StringVar(&opts.MetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	_ = cmd.MarkFlagRequired("schema")

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	s, err := schema.Load(opts.Schema)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load schema", err)
	}
	slog.Info("schema loaded", "path", opts.Schema, "tables", len(s.Tables))

	adapter, cleanup, err := openAdapter(opts)
	if err != nil {
		return err
	}
	defer cleanup()

	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	var dbOpts []db.Option
	if opts.Store == "sqlite" {
		// Reopening a durable store resumes its tables and revisions
		dbOpts = append(dbOpts, db.WithResume())
	}
	database := db.New(adapter, s, dbOpts...)
	if err := database.Init(ctx); err != nil {
		return WrapExitError(ExitCommandError, "failed to initialize database", err)
	}
	slog.Info("database ready", "store", opts.Store, "revision", database.Revision())

	eng := engine.New(database)
	srv := transport.New(eng, opts.Addr)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan) // Prevent signal handler leak

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	if opts.MetricsAddr != "" {
		stopMetrics := serveMetrics(opts.MetricsAddr)
		defer stopMetrics()
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Serving on %s. Press Ctrl-C to stop.\n", opts.Addr)

	err = srv.Serve(ctx)
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return WrapExitError(ExitFailure, "server error", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}

// openAdapter builds the storage adapter named by --store. The cleanup
// func closes durable stores and is a no-op for memory.
func openAdapter(opts *ServeOptions) (storage.Adapter, func(), error) {
	switch opts.Store {
	case "memory":
		return storage.NewMemory(), func() {}, nil

	case "sqlite":
		if opts.Database == "" {
			return nil, nil, NewExitError(ExitCommandError, "--db is required with --store sqlite")
		}
		st, err := sqlite.Open(opts.Database)
		if err != nil {
			return nil, nil, WrapExitError(ExitCommandError, "failed to open database", err)
		}
		cleanup := func() {
			if closeErr := st.Close(); closeErr != nil {
				slog.Error("error closing database", "error", closeErr)
			}
		}
		return st, cleanup, nil

	default:
		return nil, nil, NewExitError(ExitCommandError,
			fmt.Sprintf("invalid store %q: must be one of %v", opts.Store, ValidStores))
	}
}

// serveMetrics exposes /metrics on its own listener and returns a stop
// func for shutdown.
func serveMetrics(addr string) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", transport.MetricsHandler())
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		slog.Info("metrics listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server error", "error", err)
		}
	}()

	return func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("metrics shutdown error", "error", err)
		}
	}
}
