package command

import (
	"context"

	"github.com/MEKXH/funbot/internal/help"
	"github.com/MEKXH/funbot/internal/quote"
)

// QuoteSource is implemented by *quote.Client.
type QuoteSource interface {
	Random(ctx context.Context, tag string) (quote.Quote, error)
}

// QuoteCommand implements /quote.
// Subcommands: random [tag]
type QuoteCommand struct {
	Source QuoteSource
}

func (c *QuoteCommand) Name() string        { return "quote" }
func (c *QuoteCommand) Description() string { return "Request a quote from the internet" }
func (c *QuoteCommand) Help() *help.Node    { return quote.Help() }

func (c *QuoteCommand) Execute(ctx context.Context, args string, _ Env) Result {
	sub, rest := splitSubcommand(args)
	if sub != "" && sub != "random" {
		return helpResult(c.Help())
	}

	q, err := c.Source.Random(ctx, rest)
	if err != nil {
		return errorResult(err)
	}
	return Result{Content: q.String()}
}
