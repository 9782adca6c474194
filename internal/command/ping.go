package command

import (
	"context"

	"github.com/MEKXH/funbot/internal/help"
)

// PingCommand implements /ping.
type PingCommand struct{}

func (c *PingCommand) Name() string        { return "ping" }
func (c *PingCommand) Description() string { return "Ping the bot" }

func (c *PingCommand) Help() *help.Node {
	return help.New().SetName(c.Name()).SetDescription(c.Description())
}

func (c *PingCommand) Execute(_ context.Context, _ string, _ Env) Result {
	return Result{Content: "pong"}
}
