// Package dispatch turns inbound chat messages into slash-command replies.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/MEKXH/funbot/internal/audit"
	"github.com/MEKXH/funbot/internal/bus"
	"github.com/MEKXH/funbot/internal/command"
	"github.com/MEKXH/funbot/internal/config"
	"github.com/MEKXH/funbot/internal/cooldown"
	"github.com/MEKXH/funbot/internal/fetch"
	"github.com/MEKXH/funbot/internal/help"
	"github.com/MEKXH/funbot/internal/image"
	"github.com/MEKXH/funbot/internal/joke"
	"github.com/MEKXH/funbot/internal/metrics"
	"github.com/MEKXH/funbot/internal/quote"
)

const (
	defaultMaxConcurrent = 8
	notCommandHint       = "Commands start with `/`. Try /help."
)

// Dispatcher consumes inbound messages and publishes command replies.
type Dispatcher struct {
	bus      *bus.MessageBus
	commands *command.Registry
	recorder *metrics.Recorder
	auditLog *audit.Writer
	sem      chan struct{}
	wg       sync.WaitGroup
}

// New creates a dispatcher over an existing registry.
func New(msgBus *bus.MessageBus, registry *command.Registry) *Dispatcher {
	if registry == nil {
		registry = command.NewRegistry()
	}
	return &Dispatcher{
		bus:      msgBus,
		commands: registry,
		sem:      make(chan struct{}, defaultMaxConcurrent),
	}
}

// NewFromConfig creates a dispatcher with every built-in command registered.
func NewFromConfig(cfg *config.Config, msgBus *bus.MessageBus) *Dispatcher {
	registry := command.NewRegistry()
	RegisterDefaultCommands(registry, cfg)
	return New(msgBus, registry)
}

// RegisterDefaultCommands registers the built-in commands wired to the
// public APIs named in cfg.
func RegisterDefaultCommands(registry *command.Registry, cfg *config.Config) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	fetcher := fetch.NewClient(cfg.APIs.TimeoutDuration())
	imageCooldown := cooldown.New("image", time.Duration(cfg.Cooldown.ImageSeconds)*time.Second)

	registry.Register(&command.HelpCommand{})
	registry.Register(&command.PingCommand{})
	registry.Register(&command.VersionCommand{})
	registry.Register(&command.StatusCommand{})
	registry.Register(&command.ImageCommand{
		Source:   image.NewClient(fetcher, cfg.APIs.DogURL, cfg.APIs.CatURL),
		Cooldown: imageCooldown,
	})
	registry.Register(&command.JokeCommand{Source: joke.NewClient(fetcher, cfg.APIs.JokeURL)})
	registry.Register(&command.QuoteCommand{Source: quote.NewClient(fetcher, cfg.APIs.QuoteURL)})

	names := make([]string, 0)
	for _, cmd := range registry.List() {
		names = append(names, cmd.Name())
	}
	slog.Info("registered commands", "count", len(names), "commands", names)
}

// Commands returns the command registry.
func (d *Dispatcher) Commands() *command.Registry {
	return d.commands
}

// HelpTrees returns a freshly built help tree per registered command.
func (d *Dispatcher) HelpTrees() []*help.Node {
	cmds := d.commands.List()
	trees := make([]*help.Node, 0, len(cmds))
	for _, cmd := range cmds {
		trees = append(trees, cmd.Help())
	}
	return trees
}

// SetMetrics attaches a runtime metrics recorder for command stats.
func (d *Dispatcher) SetMetrics(recorder *metrics.Recorder) {
	d.recorder = recorder
}

// SetAuditWriter records every executed command to w.
func (d *Dispatcher) SetAuditWriter(w *audit.Writer) {
	d.auditLog = w
}

// Run consumes the inbound queue until ctx is done. Messages are handled
// concurrently, bounded by a fixed number of workers.
func (d *Dispatcher) Run(ctx context.Context) error {
	slog.Info("dispatcher started")
	defer d.wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-d.bus.Inbound():
			if !ok {
				return fmt.Errorf("inbound channel closed")
			}
			if msg == nil {
				slog.Warn("received nil inbound message")
				continue
			}
			if strings.TrimSpace(msg.RequestID) == "" {
				msg.RequestID = bus.NewRequestID()
			}

			select {
			case d.sem <- struct{}{}:
			case <-ctx.Done():
				return ctx.Err()
			}
			d.wg.Add(1)
			go func(in *bus.InboundMessage) {
				defer d.wg.Done()
				defer func() { <-d.sem }()
				out := d.handle(ctx, in)
				if out == nil && in.AwaitsReply {
					out = bus.NewReply(in, notCommandHint)
				}
				if out != nil {
					d.bus.PublishOutbound(out)
				}
			}(msg)
		}
	}
}

// handle runs the command named by msg. It returns nil for text that is not
// a registered command.
func (d *Dispatcher) handle(ctx context.Context, msg *bus.InboundMessage) *bus.OutboundMessage {
	cmd, args, ok := d.commands.Lookup(msg.Content)
	if !ok {
		slog.Debug("ignored non-command message", "request_id", msg.RequestID, "channel", msg.Channel, "chat_id", msg.ChatID)
		return nil
	}

	ctx = bus.WithRequestID(ctx, msg.RequestID)
	start := time.Now()
	result := cmd.Execute(ctx, args, command.Env{
		Channel:      msg.Channel,
		ChatID:       msg.ChatID,
		SenderID:     msg.SenderID,
		RequestID:    msg.RequestID,
		CooldownKey:  msg.CooldownKey(),
		Metrics:      d.recorder,
		ListCommands: d.commands.List,
	})
	duration := time.Since(start)

	logAttrs := []any{
		"request_id", msg.RequestID,
		"channel", msg.Channel,
		"chat_id", msg.ChatID,
		"command", cmd.Name(),
		"duration_ms", duration.Milliseconds(),
	}
	if d.recorder != nil {
		snapshot, metricErr := d.recorder.ObserveCommand(cmd.Name(), duration, result.Content, ctx.Err())
		if metricErr != nil {
			slog.Warn("record command metrics failed", "command", cmd.Name(), "error", metricErr)
		}
		counts := snapshot.Commands[cmd.Name()]
		logAttrs = append(logAttrs, "command_runs", counts.Runs, "command_failure_ratio", counts.FailureRatio())
	}
	outcome := metrics.Classify(result.Content, ctx.Err())
	_, errText := audit.Outcome(result.Content)
	if err := d.auditLog.Append(audit.Event{
		Time:       start.UTC(),
		RequestID:  msg.RequestID,
		Channel:    msg.Channel,
		ChatID:     msg.ChatID,
		SenderID:   msg.SenderID,
		Command:    cmd.Name(),
		Args:       args,
		Result:     string(outcome),
		DurationMs: duration.Milliseconds(),
		Error:      errText,
	}); err != nil {
		slog.Warn("append audit event failed", "request_id", msg.RequestID, "error", err)
	}

	switch outcome {
	case metrics.OutcomeError, metrics.OutcomeTimeout:
		slog.Warn("command failed", append(logAttrs, "result", string(outcome), "error", errText)...)
	default:
		slog.Info("command executed", append(logAttrs, "result", string(outcome))...)
	}

	out := bus.NewReply(msg, result.Content)
	out.Preformatted = result.Preformatted
	return out
}

// Reply runs one message outside the bus and returns the full reply.
// Text that is not a command gets a hint instead of silence.
func (d *Dispatcher) Reply(ctx context.Context, channel, chatID, senderID, content string) (*bus.OutboundMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(channel) == "" {
		channel = "cli"
	}
	if strings.TrimSpace(chatID) == "" {
		chatID = "direct"
	}
	if strings.TrimSpace(senderID) == "" {
		senderID = "user"
	}

	msg := &bus.InboundMessage{
		Channel:   channel,
		SenderID:  senderID,
		ChatID:    chatID,
		Content:   content,
		Timestamp: time.Now(),
		RequestID: bus.RequestIDFromContext(ctx),
	}
	if msg.RequestID == "" {
		msg.RequestID = bus.NewRequestID()
	}

	if out := d.handle(ctx, msg); out != nil {
		return out, nil
	}
	return bus.NewReply(msg, notCommandHint), nil
}

// Process is Reply for callers that only need the text, such as the gateway.
func (d *Dispatcher) Process(ctx context.Context, channel, chatID, senderID, content string) (string, error) {
	out, err := d.Reply(ctx, channel, chatID, senderID, content)
	if err != nil {
		return "", err
	}
	return out.Content, nil
}

// ProcessDirect processes a message directly (for CLI)
func (d *Dispatcher) ProcessDirect(ctx context.Context, content string) (string, error) {
	return d.Process(ctx, "cli", "direct", "user", content)
}
