package command

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/MEKXH/funbot/internal/help"
)

// StatusCommand implements /status and shows runtime metrics.
type StatusCommand struct{}

func (c *StatusCommand) Name() string        { return "status" }
func (c *StatusCommand) Description() string { return "Show runtime status" }

func (c *StatusCommand) Help() *help.Node {
	return help.New().SetName(c.Name()).SetDescription(c.Description())
}

func (c *StatusCommand) Execute(_ context.Context, _ string, env Env) Result {
	var sb strings.Builder
	sb.WriteString("**funbot status**\n\n")

	if env.ListCommands != nil {
		sb.WriteString(fmt.Sprintf("- **Commands:** %d registered\n", len(env.ListCommands())))
	}

	if env.Metrics == nil {
		sb.WriteString("- **Metrics:** unavailable\n")
		return Result{Content: sb.String()}
	}

	snap := env.Metrics.Snapshot()
	if !snap.HasData() {
		sb.WriteString("- **Metrics:** no data yet\n")
		return Result{Content: sb.String()}
	}
	total := snap.Totals()
	sends := snap.SendTotals()
	sb.WriteString(fmt.Sprintf("- Updated: `%s`\n", snap.UpdatedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("- Commands: %d runs, failed=%.1f%%, cooldowns=%d, p95=%dms\n",
		total.Runs, total.FailureRatio()*100, total.Cooldowns, snap.Latency.P95Ms))
	for _, name := range snap.CommandNames() {
		c := snap.Commands[name]
		sb.WriteString(fmt.Sprintf("  - /%s: %d runs, %d failed, %d cooldown\n", name, c.Runs, c.Failed(), c.Cooldowns))
	}
	sb.WriteString(fmt.Sprintf("- Channel: %d sends, fail=%.1f%%\n", sends.Attempts, sends.FailureRatio()*100))
	return Result{Content: sb.String()}
}
