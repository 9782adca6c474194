package commands

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/MEKXH/funbot/internal/bus"
	"github.com/MEKXH/funbot/internal/command"
	"github.com/MEKXH/funbot/internal/config"
	"github.com/MEKXH/funbot/internal/dispatch"
)

var headerStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("#FAFAFA")).
	Background(lipgloss.Color("#8E4EC6")).
	Padding(0, 1)

func NewCommandsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "commands [name]",
		Short: "Print the help tree of the slash commands",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runCommands,
	}
}

func runCommands(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	trees := dispatch.NewFromConfig(cfg, bus.NewMessageBus(1)).HelpTrees()

	if len(args) == 1 {
		name := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(args[0])), "/")
		for _, tree := range trees {
			if tree.Name() == name {
				fmt.Println(tree.Render())
				return nil
			}
		}
		return fmt.Errorf("unknown command: %s", args[0])
	}

	fmt.Println(headerStyle.Render("Slash Commands"))
	fmt.Println()
	fmt.Println(command.OverviewOf(trees).Render())
	return nil
}

