package commands

import (
	"github.com/spf13/cobra"

	"github.com/MEKXH/funbot/internal/config"
)

var logLevelOverride string

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "funbot",
		Short: "Funbot - slash commands for dogs, cats, jokes and quotes",
		Long:  `Funbot answers slash commands on Telegram, Discord, a terminal chat and an HTTP gateway.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "init" || cmd.Name() == "version" {
				return configureLogger(config.DefaultConfig(), logLevelOverride, false)
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			return configureLogger(cfg, logLevelOverride, cmd.Name() == "chat" && len(args) == 0)
		},
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&logLevelOverride, "log-level", "", "Override log level (debug|info|warn|error)")

	cmd.AddCommand(
		NewInitCmd(),
		NewChatCmd(),
		NewRunCmd(),
		NewStatusCmd(),
		NewVersionCmd(),
		NewCommandsCmd(),
		NewFetchCmd(),
		NewChannelsCmd(),
	)

	return cmd
}
