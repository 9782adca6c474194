package command

import (
	"context"

	"github.com/MEKXH/funbot/internal/help"
	"github.com/MEKXH/funbot/internal/joke"
)

// JokeSource is implemented by *joke.Client.
type JokeSource interface {
	Random(ctx context.Context) (string, error)
}

// JokeCommand implements /joke.
// Subcommands: random
type JokeCommand struct {
	Source JokeSource
}

func (c *JokeCommand) Name() string        { return "joke" }
func (c *JokeCommand) Description() string { return "Request a bad joke from the internet" }
func (c *JokeCommand) Help() *help.Node    { return joke.Help() }

func (c *JokeCommand) Execute(ctx context.Context, args string, _ Env) Result {
	sub, _ := splitSubcommand(args)
	if sub != "" && sub != "random" {
		return helpResult(c.Help())
	}

	text, err := c.Source.Random(ctx)
	if err != nil {
		return errorResult(err)
	}
	return Result{Content: text}
}
