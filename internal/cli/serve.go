package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/calstore/internal/access"
	"github.com/roach88/calstore/internal/ipc"
	"github.com/roach88/calstore/internal/metrics"
	"github.com/roach88/calstore/internal/notify"
	"github.com/roach88/calstore/internal/reminder"
	"github.com/roach88/calstore/internal/server"
	"github.com/roach88/calstore/internal/store"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Database string

	// PeerFunc overrides how connection credentials are read (for testing).
	PeerFunc func(*net.UnixConn) (access.Peer, error)
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the calendar store daemon",
		Long: `Run the calendar store daemon.

Opens (or creates) the SQLite database, listens for clients on the RPC
socket, broadcasts reminders to subscribers on the reminder socket and,
when metrics_addr is set, exposes Prometheus metrics over HTTP.

Example:
  calstored serve --config /etc/calstore/config.cue
  calstored serve --db /tmp/cal.db --socket /tmp/cal.sock --verbose`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (overrides config)")

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	if opts.Database != "" {
		cfg.Database = opts.Database
	}
	setupLogging(cfg.LogLevel, opts.Verbose)

	slog.Info("opening database", "path", cfg.Database)
	if err := ensureDir(cfg.Database); err != nil {
		return WrapExitError(ExitCommandError, "failed to prepare database directory", err)
	}
	st, err := store.Open(cfg.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	if v, err := st.CurrentVersion(ctx); err == nil {
		metrics.SetChangeVersion(v)
	}

	notifier, err := notify.NewNotifier(cfg.NotifyDir)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to prepare notify directory", err)
	}

	srvOpts := []server.Option{server.WithNotifier(notifier)}
	if opts.PeerFunc != nil {
		srvOpts = append(srvOpts, server.WithPeerFunc(opts.PeerFunc))
	}
	srv := server.New(st, access.NewGate(cfg.Access, st), srvOpts...)

	ln, err := listen(cfg.Socket)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to listen", err)
	}
	reminderLn, err := listen(cfg.ReminderSocket)
	if err != nil {
		ln.Close()
		return WrapExitError(ExitCommandError, "failed to listen for reminder subscribers", err)
	}

	hub := reminder.NewHub()
	scheduler := reminder.NewScheduler(st, hub, time.Now, cfg.ReminderInterval, time.Local)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Serve(gctx, ln) })
	g.Go(func() error { return hub.Serve(gctx, reminderLn) })
	g.Go(func() error { return scheduler.Run(gctx) })
	if cfg.MetricsAddr != "" {
		g.Go(func() error { return serveMetrics(gctx, cfg.MetricsAddr) })
	}

	slog.Info("daemon started",
		"socket", cfg.Socket,
		"reminder_socket", cfg.ReminderSocket,
		"notify_dir", cfg.NotifyDir,
		"metrics", cfg.MetricsAddr,
	)
	fmt.Fprintf(cmd.OutOrStdout(), "calstore listening on %s\n", cfg.Socket)

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return WrapExitError(ExitFailure, "daemon error", err)
	}

	slog.Info("daemon stopped gracefully")
	return nil
}

// setupLogging installs the default text logger on stderr. --verbose
// forces debug regardless of the configured level.
func setupLogging(level string, verbose bool) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	if verbose {
		lvl = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}

func listen(path string) (*net.UnixListener, error) {
	if err := ensureDir(path); err != nil {
		return nil, err
	}
	return ipc.Listen(path)
}

func ensureDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0o755)
}

func serveMetrics(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics: %w", err)
	}
	return nil
}
