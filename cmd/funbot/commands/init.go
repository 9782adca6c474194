package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/MEKXH/funbot/internal/config"
)

func NewInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize funbot configuration",
		RunE:  runInit,
	}
}

func runInit(cmd *cobra.Command, args []string) error {
	configPath := config.ConfigPath()

	if _, err := os.Stat(configPath); err == nil {
		fmt.Printf("Config already exists: %s\n", configPath)
		return nil
	}

	cfg := config.DefaultConfig()

	for _, dir := range []string{
		config.ConfigDir(),
		cfg.DataPath(),
		filepath.Join(cfg.DataPath(), "state"),
	} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Printf("funbot initialized!\n")
	fmt.Printf("Config: %s\n", configPath)
	fmt.Printf("Data:   %s\n", cfg.DataPath())
	fmt.Printf("\nNext steps:\n")
	fmt.Printf("1. Add a Telegram or Discord token to %s (or set FUNBOT_CHANNELS_TELEGRAM_TOKEN)\n", configPath)
	fmt.Printf("2. Run 'funbot chat' to try the commands locally\n")
	fmt.Printf("3. Run 'funbot run' to start the bot\n")

	return nil
}
