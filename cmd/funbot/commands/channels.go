package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MEKXH/funbot/internal/config"
	"github.com/MEKXH/funbot/internal/metrics"
)

// supportedChannels is the fixed set of chat transports funbot can run.
var supportedChannels = []string{"telegram", "discord"}

func NewChannelsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "channels",
		Short: "Inspect and toggle the Telegram and Discord transports",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "One line per channel with readiness and delivery counts",
		RunE:  runChannelsList,
	}
	list.Flags().Bool("json", false, "Print channels as JSON")

	cmd.AddCommand(
		list,
		&cobra.Command{
			Use:   "status",
			Short: "Per-channel detail: allow list, slash command scope, deliveries",
			RunE:  runChannelsStatus,
		},
		&cobra.Command{
			Use:   "start <channel>",
			Short: "Enable a channel in config",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runChannelsSetEnabled(args[0], true)
			},
		},
		&cobra.Command{
			Use:   "stop <channel>",
			Short: "Disable a channel in config",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runChannelsSetEnabled(args[0], false)
			},
		},
	)
	return cmd
}

// channelReport joins a channel's config with what the last run delivered.
type channelReport struct {
	Name      string   `json:"name"`
	Enabled   bool     `json:"enabled"`
	Ready     bool     `json:"ready"`
	Problem   string   `json:"problem,omitempty"`
	Commands  string   `json:"slash_commands,omitempty"`
	AllowFrom []string `json:"allow_from,omitempty"`
	Sends     int64    `json:"sends"`
	Failures  int64    `json:"send_failures"`
}

func (r channelReport) state() string {
	switch {
	case !r.Enabled:
		return "disabled"
	case !r.Ready:
		return "misconfigured"
	default:
		return "ready"
	}
}

func loadChannelReports() ([]channelReport, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	snap, err := metrics.ReadSnapshot(cfg.DataPath())
	if err != nil {
		return nil, fmt.Errorf("failed to read runtime metrics: %w", err)
	}
	return buildChannelReports(cfg, snap), nil
}

func buildChannelReports(cfg *config.Config, snap metrics.Snapshot) []channelReport {
	reports := make([]channelReport, 0, len(supportedChannels))
	for _, name := range supportedChannels {
		r := channelReport{Name: name}
		var token string
		switch name {
		case "telegram":
			tg := cfg.Channels.Telegram
			r.Enabled, token, r.AllowFrom = tg.Enabled, tg.Token, tg.AllowFrom
		case "discord":
			dc := cfg.Channels.Discord
			r.Enabled, token, r.AllowFrom = dc.Enabled, dc.Token, dc.AllowFrom
			r.Commands = "off"
			if dc.RegisterCommands {
				r.Commands = "global"
				if guild := strings.TrimSpace(dc.GuildID); guild != "" {
					r.Commands = "guild " + guild
				}
			}
		}
		r.Ready = strings.TrimSpace(token) != ""
		if !r.Ready {
			r.Problem = "token not set"
		}
		sends := snap.Sends[name]
		r.Sends, r.Failures = sends.Attempts, sends.Failures
		reports = append(reports, r)
	}
	return reports
}

func runChannelsList(cmd *cobra.Command, args []string) error {
	reports, err := loadChannelReports()
	if err != nil {
		return err
	}
	asJSON := false
	if cmd != nil {
		asJSON, _ = cmd.Flags().GetBool("json")
	}
	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(reports)
	}
	writeChannelTable(os.Stdout, reports)
	return nil
}

func writeChannelTable(w io.Writer, reports []channelReport) {
	fmt.Fprintf(w, "%-10s %-14s %8s %8s\n", "CHANNEL", "STATE", "SENDS", "FAILED")
	for _, r := range reports {
		fmt.Fprintf(w, "%-10s %-14s %8d %8d\n", r.Name, r.state(), r.Sends, r.Failures)
	}
}

func runChannelsStatus(cmd *cobra.Command, args []string) error {
	reports, err := loadChannelReports()
	if err != nil {
		return err
	}
	for _, r := range reports {
		writeChannelDetail(os.Stdout, r)
	}
	return nil
}

func writeChannelDetail(w io.Writer, r channelReport) {
	fmt.Fprintf(w, "[%s] %s\n", r.Name, r.state())
	if r.Problem != "" {
		fmt.Fprintf(w, "  problem:    %s\n", r.Problem)
	}
	if r.Commands != "" {
		fmt.Fprintf(w, "  slash cmds: %s\n", r.Commands)
	}
	allow := "anyone"
	if len(r.AllowFrom) > 0 {
		allow = strings.Join(r.AllowFrom, ", ")
	}
	fmt.Fprintf(w, "  allow from: %s\n", allow)
	fmt.Fprintf(w, "  deliveries: %d sent, %d failed\n\n", r.Sends, r.Failures)
}

// runChannelsSetEnabled flips a channel in the config file. Enabling needs a
// token, otherwise the saved config would no longer validate.
func runChannelsSetEnabled(channelName string, enabled bool) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	name := strings.ToLower(strings.TrimSpace(channelName))
	var report *channelReport
	for _, r := range buildChannelReports(cfg, metrics.Snapshot{}) {
		if r.Name == name {
			report = &r
			break
		}
	}
	if report == nil {
		return fmt.Errorf("unknown channel %q (want one of %s)", channelName, strings.Join(supportedChannels, ", "))
	}
	if enabled && !report.Ready {
		return fmt.Errorf("cannot enable %s: %s", name, report.Problem)
	}

	switch name {
	case "telegram":
		cfg.Channels.Telegram.Enabled = enabled
	case "discord":
		cfg.Channels.Discord.Enabled = enabled
	}
	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Printf("%s is now %s.\n", name, map[bool]string{true: "enabled", false: "disabled"}[enabled])
	return nil
}
