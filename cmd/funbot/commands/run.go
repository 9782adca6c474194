package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/MEKXH/funbot/internal/audit"
	"github.com/MEKXH/funbot/internal/bus"
	"github.com/MEKXH/funbot/internal/channel"
	"github.com/MEKXH/funbot/internal/channel/discord"
	"github.com/MEKXH/funbot/internal/channel/telegram"
	"github.com/MEKXH/funbot/internal/config"
	"github.com/MEKXH/funbot/internal/dispatch"
	"github.com/MEKXH/funbot/internal/gateway"
	"github.com/MEKXH/funbot/internal/help"
	"github.com/MEKXH/funbot/internal/metrics"
)

func NewRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the bot on every enabled channel",
		RunE:  runServer,
	}
}

func runServer(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	msgBus := bus.NewMessageBus(100)
	runtimeMetrics := metrics.NewRecorder(cfg.DataPath())

	dispatcher := dispatch.NewFromConfig(cfg, msgBus)
	dispatcher.SetMetrics(runtimeMetrics)
	dispatcher.SetAuditWriter(audit.NewWriter(cfg.DataPath()))

	errCh := make(chan error, 2)
	go func() {
		if err := dispatcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- fmt.Errorf("dispatcher failed: %w", err)
		}
	}()

	chanMgr := channel.NewManager(msgBus)
	chanMgr.SetMetrics(runtimeMetrics)
	registerEnabledChannels(cfg, msgBus, chanMgr, dispatcher.HelpTrees())
	if len(chanMgr.Names()) == 0 && !cfg.Gateway.Enabled {
		slog.Warn("no channel or gateway enabled; nothing will receive commands")
	}

	chanMgr.StartAll(ctx)
	go chanMgr.RouteOutbound(ctx)

	var gatewayServer *gateway.Server
	if cfg.Gateway.Enabled {
		gatewayServer = gateway.New(cfg.Gateway, dispatcher)
		gatewayServer.SetMetrics(runtimeMetrics.Gatherer())
		go func() {
			if err := gatewayServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("gateway server failed: %w", err)
			}
		}()
	}

	fmt.Printf("funbot running. Channels: %s\n", describeChannels(chanMgr.Names()))
	if gatewayServer != nil {
		fmt.Printf("Gateway: http://%s\n", gatewayServer.Addr())
	}
	fmt.Println("Press Ctrl+C to stop.")

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
		slog.Error("server component failed", "error", runErr)
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	slog.Info("shutting down")
	chanMgr.StopAll(shutdownCtx)
	if gatewayServer != nil {
		if err := gatewayServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
			slog.Warn("gateway shutdown failed", "error", err)
		}
	}

	return runErr
}

// commandMenu is implemented by channels that publish the command list to
// the platform, such as the Telegram menu or Discord application commands.
type commandMenu interface {
	SetCommands(trees []*help.Node)
}

// registerEnabledChannels adds every enabled channel that has a token.
func registerEnabledChannels(cfg *config.Config, msgBus *bus.MessageBus, mgr *channel.Manager, trees []*help.Node) {
	var channels []channel.Channel
	for _, r := range buildChannelReports(cfg, metrics.Snapshot{}) {
		if !r.Enabled {
			continue
		}
		if !r.Ready {
			slog.Warn("channel enabled but not ready", "channel", r.Name, "reason", r.Problem)
			continue
		}
		switch r.Name {
		case "telegram":
			channels = append(channels, telegram.New(&cfg.Channels.Telegram, msgBus))
		case "discord":
			channels = append(channels, discord.New(&cfg.Channels.Discord, msgBus))
		}
	}

	for _, ch := range channels {
		if menu, ok := ch.(commandMenu); ok {
			menu.SetCommands(trees)
		}
		mgr.Register(ch)
	}
}

func describeChannels(names []string) string {
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, ", ")
}
