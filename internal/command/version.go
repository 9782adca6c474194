package command

import (
	"context"

	"github.com/MEKXH/funbot/internal/help"
	"github.com/MEKXH/funbot/internal/version"
)

// VersionCommand implements /version.
type VersionCommand struct{}

func (c *VersionCommand) Name() string        { return "version" }
func (c *VersionCommand) Description() string { return "Show version information" }

func (c *VersionCommand) Help() *help.Node {
	return help.New().SetName(c.Name()).SetDescription(c.Description())
}

func (c *VersionCommand) Execute(_ context.Context, _ string, _ Env) Result {
	return Result{Content: version.Get().String()}
}
