package prizmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/prizm-dev/prizm/internal/config"
	"github.com/prizm-dev/prizm/internal/gatewayhttp"
	"github.com/prizm-dev/prizm/internal/runtimectx"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the prizmd gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

func runServe() error {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})))

	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return err
	}

	if !cfg.HasAnyProvider() {
		slog.Warn("no provider API key configured; chat turns will fail until one is set (PRIZM_ANTHROPIC_API_KEY, etc.)")
	}

	rt, err := runtimectx.New(cfg)
	if err != nil {
		slog.Error("failed to build runtime", "error", err)
		return err
	}
	defer rt.Close()

	server := gatewayhttp.NewServer(rt)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		slog.Info("graceful shutdown initiated", "signal", sig)
		server.BroadcastEvent(gatewayhttp.NewEventFrame("system:shutdown", "", nil))
		cancel()
	}()

	go func() {
		if err := rt.Run(ctx); err != nil {
			slog.Error("runtime error", "error", err)
		}
	}()

	slog.Info("prizmd starting",
		"version", Version,
		"protocol", protocolVersion,
		"addr", cfg.Gateway.Host, "port", cfg.Gateway.Port,
	)

	if err := server.Start(ctx); err != nil {
		slog.Error("gateway error", "error", err)
		return err
	}
	return nil
}
