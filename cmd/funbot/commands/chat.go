package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/MEKXH/funbot/internal/audit"
	"github.com/MEKXH/funbot/internal/bus"
	"github.com/MEKXH/funbot/internal/config"
	"github.com/MEKXH/funbot/internal/dispatch"
	"github.com/MEKXH/funbot/internal/metrics"
	"github.com/MEKXH/funbot/internal/render"
)

func NewChatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat [message]",
		Short: "Try funbot's slash commands in the terminal",
		RunE:  runChat,
	}
}

// replier is implemented by *dispatch.Dispatcher.
type replier interface {
	Reply(ctx context.Context, channel, chatID, senderID, content string) (*bus.OutboundMessage, error)
}

type responseRenderer interface {
	Render(string) (string, error)
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	if cmd != nil && cmd.Context() != nil {
		ctx = cmd.Context()
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	d := dispatch.NewFromConfig(cfg, bus.NewMessageBus(1))
	d.SetMetrics(metrics.NewRecorder(cfg.DataPath()))
	d.SetAuditWriter(audit.NewWriter(cfg.DataPath()))

	if len(args) > 0 {
		out, err := d.Reply(ctx, "cli", "direct", "user", strings.Join(args, " "))
		if err != nil {
			return err
		}
		fmt.Println(render.StripSpoilers(out.Content))
		return nil
	}

	m := newChatModel(ctx, d)
	_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}

var (
	userStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#8E4EC6"))
	botStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#2E8B57"))
	spoilerStyle = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("245"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#E5484D"))
	footerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	keyStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FAFAFA"))
)

type responseMsg struct {
	reply *bus.OutboundMessage
	err   error
}

type model struct {
	ctx      context.Context
	replier  replier
	renderer responseRenderer
	textarea textarea.Model
	viewport viewport.Model
	spinner  spinner.Model
	history  []string
	thinking bool
}

func newChatModel(ctx context.Context, r replier) model {
	ta := textarea.New()
	ta.Placeholder = "Type a command, e.g. /joke random"
	ta.ShowLineNumbers = false
	ta.SetHeight(1)
	ta.KeyMap.InsertNewline.SetEnabled(false)
	ta.Focus()

	vp := viewport.New(80, 20)
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := model{
		ctx:      ctx,
		replier:  r,
		textarea: ta,
		viewport: vp,
		spinner:  sp,
		history:  []string{botStyle.Render("funbot") + ": ready. Type /help to list the commands."},
	}
	m.renderer = newGlamourRenderer(80)
	m.viewport.SetContent(strings.Join(m.history, "\n\n"))
	return m
}

func newGlamourRenderer(width int) responseRenderer {
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(width))
	if err != nil {
		return nil
	}
	return r
}

func (m model) Init() tea.Cmd {
	return textarea.Blink
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyEsc, tea.KeyCtrlC:
			return m, tea.Quit
		case tea.KeyEnter:
			input := strings.TrimSpace(m.textarea.Value())
			if input == "" || m.thinking {
				return m, nil
			}
			m.textarea.Reset()
			m.appendHistory(userStyle.Render("you") + ": " + input)
			m.thinking = true
			return m, tea.Batch(m.spinner.Tick, m.ask(input))
		}
	case tea.WindowSizeMsg:
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-4, 1)
		m.textarea.SetWidth(msg.Width)
		m.renderer = newGlamourRenderer(max(msg.Width-4, 20))
		m.viewport.SetContent(strings.Join(m.history, "\n\n"))
	case responseMsg:
		m.thinking = false
		if msg.err != nil {
			m.appendHistory(errorStyle.Render("Error: " + msg.err.Error()))
			return m, nil
		}
		m.appendHistory(botStyle.Render("funbot") + ":\n" + formatReply(msg.reply, m.renderer))
		return m, nil
	case spinner.TickMsg:
		if !m.thinking {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m *model) appendHistory(entry string) {
	m.history = append(m.history, entry)
	m.viewport.SetContent(strings.Join(m.history, "\n\n"))
	m.viewport.GotoBottom()
}

func (m model) ask(input string) tea.Cmd {
	ctx, r := m.ctx, m.replier
	return func() tea.Msg {
		if r == nil {
			return responseMsg{err: fmt.Errorf("no command processor")}
		}
		reply, err := r.Reply(ctx, "cli", "direct", "user", input)
		return responseMsg{reply: reply, err: err}
	}
}

func (m model) View() string {
	status := ""
	if m.thinking {
		status = m.spinner.View() + " fetching...\n"
	}
	footer := footerStyle.Render(
		keyStyle.Render("Enter") + " Send  " +
			keyStyle.Render("/help") + " Commands  " +
			keyStyle.Render("Esc") + " Quit",
	)
	return m.viewport.View() + "\n" + status + m.textarea.View() + "\n" + footer
}

// formatReply renders a reply for the terminal. Help trees are kept verbatim
// inside a code block; other replies go through the markdown renderer.
func formatReply(reply *bus.OutboundMessage, r responseRenderer) string {
	if reply == nil {
		return ""
	}
	if reply.Preformatted {
		return renderMarkdown("```\n"+reply.Content+"\n```", r)
	}
	visible, hidden, hasSpoiler := renderResponseParts(reply.Content, r)
	if !hasSpoiler {
		return visible
	}
	return visible + "\n" + spoilerStyle.Render(hidden)
}

// renderResponseParts splits off a ||spoiler|| and renders both parts.
func renderResponseParts(content string, r responseRenderer) (visible, hidden string, hasSpoiler bool) {
	visibleRaw, hiddenRaw, hasSpoiler := render.SplitSpoiler(content)
	if !hasSpoiler {
		return renderMarkdown(content, r), "", false
	}
	return renderMarkdown(visibleRaw, r), renderMarkdown(hiddenRaw, r), true
}

func renderMarkdown(s string, r responseRenderer) string {
	if r == nil {
		return s
	}
	out, err := r.Render(s)
	if err != nil {
		return s
	}
	return strings.TrimRight(out, "\n")
}
