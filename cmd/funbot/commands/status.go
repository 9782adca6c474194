package commands

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/MEKXH/funbot/internal/audit"
	"github.com/MEKXH/funbot/internal/config"
	"github.com/MEKXH/funbot/internal/image"
	"github.com/MEKXH/funbot/internal/joke"
	"github.com/MEKXH/funbot/internal/metrics"
	"github.com/MEKXH/funbot/internal/quote"
	"github.com/MEKXH/funbot/internal/version"
)

var (
	sectionStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#8E4EC6")).MarginTop(1)
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Width(14)
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#2E8B57"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#E5A50A"))
)

const recentCommandLimit = 5

func NewStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show funbot configuration and runtime status",
		RunE:  runStatus,
	}
	cmd.Flags().Bool("json", false, "Print status as JSON")
	return cmd
}

type statusPayload struct {
	GeneratedAt    time.Time         `json:"generated_at"`
	Version        string            `json:"version"`
	ConfigPath     string            `json:"config_path"`
	DataPath       string            `json:"data_path"`
	APIs           map[string]string `json:"apis"`
	Channels       map[string]string `json:"channels"`
	Gateway        string            `json:"gateway"`
	RuntimeMetrics metrics.Snapshot  `json:"runtime_metrics"`
	RecentCommands []audit.Event     `json:"recent_commands"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	snap, err := metrics.ReadSnapshot(cfg.DataPath())
	if err != nil {
		return fmt.Errorf("failed to read runtime metrics: %w", err)
	}

	asJSON := false
	if cmd != nil {
		asJSON, _ = cmd.Flags().GetBool("json")
	}
	if asJSON {
		return printStatusJSON(cfg, snap)
	}

	fmt.Println(headerStyle.Render("Funbot Status"))

	section("Config")
	row("Path:", config.ConfigPath())
	if _, err := os.Stat(config.ConfigPath()); err == nil {
		row("Status:", okStyle.Render("OK"))
	} else {
		row("Status:", warnStyle.Render("not found (run 'funbot init')"))
	}
	row("Data:", cfg.DataPath())
	row("Log level:", cfg.Log.Level)

	section("APIs")
	for _, api := range apiEndpoints(cfg) {
		row(api[0]+":", api[1])
	}
	row("Timeout:", cfg.APIs.TimeoutDuration().String())
	cooldownLine := "disabled"
	if cfg.Cooldown.ImageSeconds > 0 {
		cooldownLine = fmt.Sprintf("%ds per sender for /image", cfg.Cooldown.ImageSeconds)
	}
	row("Cooldown:", cooldownLine)

	section("Channels")
	for _, r := range buildChannelReports(cfg, snap) {
		line := r.state()
		switch line {
		case "ready":
			line = okStyle.Render(line)
		case "misconfigured":
			line = warnStyle.Render(line + " (" + r.Problem + ")")
		}
		row(r.Name+":", line)
	}

	section("Gateway")
	if cfg.Gateway.Enabled {
		row("Address:", fmt.Sprintf("http://%s:%d", cfg.Gateway.Host, cfg.Gateway.Port))
	} else {
		row("Address:", "disabled")
	}
	if cfg.Gateway.Token != "" {
		row("Auth:", "token configured")
	} else {
		row("Auth:", warnStyle.Render("no token (open)"))
	}

	section("Recent Commands")
	recent, err := audit.Recent(cfg.DataPath(), recentCommandLimit)
	if err != nil {
		slog.Warn("failed to read audit log", "error", err)
	}
	if len(recent) == 0 {
		fmt.Println("  none recorded")
	}
	for _, ev := range recent {
		line := fmt.Sprintf("/%s", ev.Command)
		if ev.Args != "" {
			line += " " + ev.Args
		}
		fmt.Printf("  %-28s %-8s %-10s %s\n", line, ev.Result, ev.Channel, humanize.Time(ev.Time))
	}

	section("Runtime Metrics")
	if !snap.HasData() {
		fmt.Println("  no runtime data yet")
		return nil
	}
	total := snap.Totals()
	sends := snap.SendTotals()
	fmt.Printf("  commands=%d failure_ratio=%.3f cooldowns=%d\n", total.Runs, total.FailureRatio(), total.Cooldowns)
	fmt.Printf("  latency_mean_ms=%.1f latency_p95_ms=%d latency_max_ms=%d\n",
		snap.Latency.MeanMs(), snap.Latency.P95Ms, snap.Latency.MaxMs)
	for _, name := range snap.CommandNames() {
		c := snap.Commands[name]
		fmt.Printf("  %-10s runs=%d errors=%d timeouts=%d cooldowns=%d\n", "/"+name, c.Runs, c.Errors, c.Timeouts, c.Cooldowns)
	}
	fmt.Printf("  sends=%d send_failure_ratio=%.3f\n", sends.Attempts, sends.FailureRatio())
	for _, name := range snap.ChannelNames() {
		c := snap.Sends[name]
		fmt.Printf("  %-10s sends=%d failures=%d\n", name, c.Attempts, c.Failures)
	}
	if !snap.UpdatedAt.IsZero() {
		fmt.Printf("  updated_at=%s (%s)\n", snap.UpdatedAt.Format(time.RFC3339), humanize.Time(snap.UpdatedAt))
	}

	return nil
}

func printStatusJSON(cfg *config.Config, snap metrics.Snapshot) error {
	payload := statusPayload{
		GeneratedAt:    time.Now().UTC(),
		Version:        version.Get().Version,
		ConfigPath:     config.ConfigPath(),
		DataPath:       cfg.DataPath(),
		APIs:           map[string]string{},
		Channels:       map[string]string{},
		Gateway:        "disabled",
		RuntimeMetrics: snap,
	}
	if recent, err := audit.Recent(cfg.DataPath(), recentCommandLimit); err == nil {
		payload.RecentCommands = recent
	}
	for _, api := range apiEndpoints(cfg) {
		payload.APIs[strings.ToLower(api[0])] = api[1]
	}
	for _, r := range buildChannelReports(cfg, snap) {
		payload.Channels[r.Name] = r.state()
	}
	if cfg.Gateway.Enabled {
		payload.Gateway = fmt.Sprintf("%s:%d", cfg.Gateway.Host, cfg.Gateway.Port)
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func apiEndpoints(cfg *config.Config) [][2]string {
	pick := func(v, def string) string {
		if strings.TrimSpace(v) == "" {
			return def
		}
		return v
	}
	return [][2]string{
		{"Dog", pick(cfg.APIs.DogURL, image.DefaultDogURL)},
		{"Cat", pick(cfg.APIs.CatURL, image.DefaultCatURL)},
		{"Joke", pick(cfg.APIs.JokeURL, joke.DefaultURL)},
		{"Quote", pick(cfg.APIs.QuoteURL, quote.DefaultURL)},
	}
}

func section(title string) {
	fmt.Println(sectionStyle.Render(title))
}

func row(label, value string) {
	fmt.Println("  " + labelStyle.Render(label) + value)
}
