// Command agent-tuid is the daemon's entrypoint: it loads config,
// builds the session manager and RPC router, starts whichever
// transports are configured, and blocks until a shutdown signal drains
// them. It exposes only what the daemon needs to boot — the
// human-facing CLI front-end that drives it lives elsewhere.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/agent-tui/agent-tuid/internal/config"
	"github.com/agent-tui/agent-tuid/internal/daemon"
	"github.com/agent-tui/agent-tuid/internal/metrics"
	"github.com/agent-tui/agent-tuid/internal/rpc"
	"github.com/agent-tui/agent-tuid/internal/session"
	"github.com/agent-tui/agent-tuid/internal/tailnet"
	"github.com/agent-tui/agent-tuid/internal/transport/line"
	"github.com/agent-tui/agent-tuid/internal/transport/ws"
	"github.com/agent-tui/agent-tuid/internal/usecase"
)

// Version and Commit are set at build time via ldflags.
var (
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	logger := slog.New(newLogHandler())
	slog.SetDefault(logger)

	rootCmd := &cobra.Command{
		Use:     "agent-tuid",
		Short:   "headless terminal-multiplexer daemon",
		Version: Version,
		RunE:    runStart,
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newLogHandler picks a text handler for an attached terminal (this
// daemon is usually supervised, not run interactively, but the
// foreground/debug case still wants readable output) and a JSON handler
// otherwise, since a supervisor or log collector reading from a pipe
// wants structured lines rather than terminal-oriented text.
func newLogHandler() slog.Handler {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if term.IsTerminal(int(os.Stderr.Fd())) {
		return slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.NewJSONHandler(os.Stderr, opts)
}

func runStart(cmd *cobra.Command, args []string) error {
	logger := slog.Default()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	for _, w := range cfg.Warnings {
		logger.Warn(w)
	}

	lockPath := cfg.SocketPath + ".lock"
	lock, err := daemon.AcquireLock(lockPath)
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	defer lock.Release()

	if err := daemon.RemoveStaleSocket(cfg.SocketPath); err != nil {
		return fmt.Errorf("remove stale socket: %w", err)
	}

	manager := session.NewManagerWithLimit(cfg.MaxSessions)
	exec := usecase.New(manager)
	m := metrics.New()
	sup := daemon.New(manager, logger)

	router := rpc.NewRouter(exec, m, Version, Commit, sup.Done)
	router.SetShutdownRequester(sup.RequestShutdown)
	sup.WatchSignals()

	var transports []daemon.Transport

	lineSrv, err := line.New(cfg.SocketPath, router, logger)
	if err != nil {
		return fmt.Errorf("start local transport: %w", err)
	}
	transports = append(transports, lineSrv)
	go func() {
		if err := lineSrv.Serve(); err != nil {
			logger.Error("local transport exited", "error", err)
		}
	}()
	logger.Info("local transport listening", "socket", cfg.SocketPath)

	if !cfg.WSDisabled {
		wsSrv, err := ws.New(cfg, router, logger)
		if err != nil {
			return fmt.Errorf("start ws transport: %w", err)
		}
		transports = append(transports, wsSrv)
		if err := wsSrv.WriteStateFile(cfg.WSState); err != nil {
			logger.Warn("failed to write ws state file", "error", err)
		}
		go func() {
			if err := wsSrv.Serve(); err != nil {
				logger.Error("ws transport exited", "error", err)
			}
		}()
		logger.Info("ws transport listening", "addr", wsSrv.Addr().String())

		if cfg.TailscaleAuthKey != "" {
			tsClient, err := tailnet.New(&tailnet.Config{
				AuthKey:   cfg.TailscaleAuthKey,
				Hostname:  cfg.TailscaleHostname,
				Ephemeral: true,
			}, logger)
			if err != nil {
				logger.Warn("tailnet listener disabled", "error", err)
			} else if err := tsClient.Start(cmd.Context()); err != nil {
				logger.Warn("tailnet connect failed", "error", err)
			} else {
				defer tsClient.Close()
				logger.Info("joined tailnet", "hostname", tsClient.Hostname(), "ips", tsClient.TailscaleIPs())
			}
		}
	}

	<-waitForShutdown(sup)

	for _, t := range transports {
		if err := t.Close(); err != nil {
			logger.Warn("transport close error", "error", err)
		}
	}
	sup.Shutdown()
	if err := daemon.RemoveStaleSocket(cfg.SocketPath); err != nil {
		logger.Warn("failed to remove socket on exit", "error", err)
	}

	return nil
}

// waitForShutdown polls the supervisor's shutdown flag, set either by
// WatchSignals' goroutine or by an RPC "shutdown" call, and closes the
// returned channel once it flips.
func waitForShutdown(sup *daemon.Supervisor) <-chan struct{} {
	const pollInterval = 200 * time.Millisecond
	done := make(chan struct{})
	go func() {
		for !sup.Done() {
			time.Sleep(pollInterval)
		}
		close(done)
	}()
	return done
}
