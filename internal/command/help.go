package command

import (
	"context"
	"fmt"
	"strings"

	"github.com/MEKXH/funbot/internal/help"
)

// HelpCommand implements /help. It renders the help tree of one or all commands.
type HelpCommand struct{}

func (c *HelpCommand) Name() string        { return "help" }
func (c *HelpCommand) Description() string { return "Show help for the available commands" }

func (c *HelpCommand) Help() *help.Node {
	return help.New().
		SetName(c.Name()).
		SetDescription(c.Description()).
		AddOption(help.NewOption("command", "string", "Only show help for this command"))
}

func (c *HelpCommand) Execute(_ context.Context, args string, env Env) Result {
	var cmds []Command
	if env.ListCommands != nil {
		cmds = env.ListCommands()
	}

	name, _ := splitSubcommand(args)
	name = strings.TrimPrefix(name, "/")
	if name == "" {
		return helpResult(Overview(cmds))
	}
	for _, cmd := range cmds {
		if strings.EqualFold(cmd.Name(), name) {
			return helpResult(cmd.Help())
		}
	}
	return Result{Content: fmt.Sprintf("Unknown command `%s`. Try /help.", name)}
}

// Overview returns a tree whose subcommands are the help trees of cmds.
func Overview(cmds []Command) *help.Node {
	trees := make([]*help.Node, 0, len(cmds))
	for _, cmd := range cmds {
		trees = append(trees, cmd.Help())
	}
	return OverviewOf(trees)
}

// OverviewOf groups already built help trees under one root.
func OverviewOf(trees []*help.Node) *help.Node {
	root := help.New().SetName("commands").SetDescription("Available slash commands")
	for _, tree := range trees {
		root.AddChild(tree)
	}
	return root
}
