package command

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/MEKXH/funbot/internal/help"
	"github.com/MEKXH/funbot/internal/metrics"
)

// Env carries per-invocation context for a slash command.
type Env struct {
	Channel   string
	ChatID    string
	SenderID  string
	RequestID string
	// CooldownKey identifies the sender for throttled commands.
	CooldownKey  string
	Metrics      *metrics.Recorder
	ListCommands func() []Command // for /help
}

// Result is the output of a slash command execution.
type Result struct {
	Content string
	// Preformatted is set for rendered help trees.
	Preformatted bool
}

// Command is the interface every slash command must implement.
type Command interface {
	// Name returns the command trigger without the leading slash (e.g. "joke").
	Name() string
	// Description returns a short human-readable summary.
	Description() string
	// Help returns a freshly built help tree for the command.
	Help() *help.Node
	// Execute runs the command. args is the trimmed text after the command name.
	Execute(ctx context.Context, args string, env Env) Result
}

// Registry holds registered slash commands and dispatches them.
type Registry struct {
	mu   sync.RWMutex
	cmds map[string]Command
}

// NewRegistry creates an empty command registry.
func NewRegistry() *Registry {
	return &Registry{cmds: make(map[string]Command)}
}

// Register adds a command. Panics on duplicate names.
func (r *Registry) Register(cmd Command) {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := strings.ToLower(cmd.Name())
	if _, dup := r.cmds[name]; dup {
		panic("command already registered: " + name)
	}
	r.cmds[name] = cmd
}

// Lookup parses raw user input. If it starts with "/" and matches a registered
// command, it returns the command, the remaining args, and true. Telegram's
// "/name@botname" form is accepted.
func (r *Registry) Lookup(content string) (Command, string, bool) {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "/") {
		return nil, "", false
	}
	body := content[1:]
	name, args, _ := strings.Cut(body, " ")
	name, _, _ = strings.Cut(name, "@")
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return nil, "", false
	}

	cmd, ok := r.Get(name)
	if !ok {
		return nil, "", false
	}
	return cmd, strings.TrimSpace(args), true
}

// Get returns the command registered under name.
func (r *Registry) Get(name string) (Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cmd, ok := r.cmds[strings.ToLower(strings.TrimSpace(name))]
	return cmd, ok
}

// List returns all registered commands sorted by name.
func (r *Registry) List() []Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Command, 0, len(r.cmds))
	for _, cmd := range r.cmds {
		out = append(out, cmd)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// splitSubcommand returns the lower-cased first word of args and the rest.
func splitSubcommand(args string) (string, string) {
	sub, rest, _ := strings.Cut(strings.TrimSpace(args), " ")
	return strings.ToLower(strings.TrimSpace(sub)), strings.TrimSpace(rest)
}

func helpResult(node *help.Node) Result {
	return Result{Content: node.Render(), Preformatted: true}
}

func errorResult(err error) Result {
	return Result{Content: "Error: " + err.Error()}
}
