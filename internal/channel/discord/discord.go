package discord

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/patrickmn/go-cache"

	"github.com/MEKXH/funbot/internal/bus"
	"github.com/MEKXH/funbot/internal/channel"
	"github.com/MEKXH/funbot/internal/config"
	"github.com/MEKXH/funbot/internal/help"
)

const (
	maxMessageLen     = 2000
	maxDescriptionLen = 100
	// interactionTTL is how long Discord accepts edits to a deferred reply.
	interactionTTL = 15 * time.Minute
)

// Channel implements Discord bot channel.
type Channel struct {
	channel.BaseChannel
	cfg     *config.DiscordConfig
	session *discordgo.Session
	trees   []*help.Node
	mu      sync.RWMutex
	running bool
	// pending holds deferred slash-command interactions by request id
	// until answered or their token expires.
	pending *cache.Cache
}

// New creates a Discord channel.
func New(cfg *config.DiscordConfig, msgBus *bus.MessageBus) *Channel {
	return &Channel{
		BaseChannel: channel.NewBaseChannel(msgBus, cfg.AllowFrom),
		cfg:         cfg,
		pending:     cache.New(interactionTTL, interactionTTL),
	}
}

func (c *Channel) Name() string { return "discord" }

// SetCommands sets the help trees registered as application commands on Start.
func (c *Channel) SetCommands(trees []*help.Node) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.trees = trees
}

func (c *Channel) Start(ctx context.Context) error {
	if c.cfg == nil {
		return fmt.Errorf("missing discord config")
	}
	if strings.TrimSpace(c.cfg.Token) == "" {
		return fmt.Errorf("discord token is empty")
	}

	s, err := discordgo.New("Bot " + strings.TrimSpace(c.cfg.Token))
	if err != nil {
		return fmt.Errorf("create discord session: %w", err)
	}
	s.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentsDirectMessages | discordgo.IntentMessageContent
	s.AddHandler(c.handleMessage)
	s.AddHandler(c.handleInteraction)

	if err := s.Open(); err != nil {
		return fmt.Errorf("open discord session: %w", err)
	}

	c.mu.Lock()
	c.session = s
	c.running = true
	trees := c.trees
	c.mu.Unlock()

	if s.State != nil && s.State.User != nil {
		slog.Info("discord bot connected", "username", s.State.User.Username, "id", s.State.User.ID)
		if c.cfg.RegisterCommands && len(trees) > 0 {
			if err := c.registerCommands(s, s.State.User.ID, trees); err != nil {
				slog.Warn("discord command registration failed", "error", err)
			}
		}
	}
	return nil
}

func (c *Channel) registerCommands(s *discordgo.Session, appID string, trees []*help.Node) error {
	cmds := make([]*discordgo.ApplicationCommand, 0, len(trees))
	for _, tree := range trees {
		if cmd := applicationCommand(tree); cmd != nil {
			cmds = append(cmds, cmd)
		}
	}
	created, err := s.ApplicationCommandBulkOverwrite(appID, c.cfg.GuildID, cmds)
	if err != nil {
		return fmt.Errorf("overwrite application commands: %w", err)
	}
	slog.Info("discord application commands registered", "count", len(created), "guild_id", c.cfg.GuildID)
	return nil
}

func (c *Channel) Stop(ctx context.Context) error {
	c.mu.Lock()
	s := c.session
	c.session = nil
	c.running = false
	c.mu.Unlock()
	c.pending.Flush()
	if s != nil {
		_ = s.Close()
	}
	return nil
}

func (c *Channel) Send(ctx context.Context, msg *bus.OutboundMessage) error {
	c.mu.RLock()
	s := c.session
	running := c.running
	c.mu.RUnlock()
	interaction := c.takePending(msg.RequestID)
	if !running || s == nil {
		return fmt.Errorf("discord channel not running")
	}
	if strings.TrimSpace(msg.ChatID) == "" {
		return fmt.Errorf("discord chat id is empty")
	}

	content := formatContent(msg)
	done := make(chan error, 1)
	go func() {
		var err error
		switch {
		case interaction != nil:
			_, err = s.InteractionResponseEdit(interaction, &discordgo.WebhookEdit{Content: &content})
		case msg.ReplyTo != "":
			_, err = s.ChannelMessageSendReply(msg.ChatID, content, &discordgo.MessageReference{
				MessageID: msg.ReplyTo,
				ChannelID: msg.ChatID,
			})
		default:
			_, err = s.ChannelMessageSend(msg.ChatID, content)
		}
		done <- err
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		if err != nil {
			return fmt.Errorf("send discord message: %w", err)
		}
		return nil
	}
}

func (c *Channel) handleMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m == nil || m.Author == nil || m.Author.Bot {
		return
	}
	if s != nil && s.State != nil && s.State.User != nil && m.Author.ID == s.State.User.ID {
		return
	}

	content := strings.TrimSpace(m.Content)
	if content == "" {
		return
	}

	c.PublishInbound(&bus.InboundMessage{
		Channel:   c.Name(),
		SenderID:  senderID(m.Author),
		ChatID:    m.ChannelID,
		Content:   content,
		Timestamp: time.Now(),
		RequestID: bus.NewRequestID(),
		Metadata: map[string]any{
			"message_id": m.ID,
			"username":   m.Author.Username,
			"guild_id":   m.GuildID,
		},
	})
}

func (c *Channel) handleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i == nil || i.Interaction == nil || i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	user := i.User
	if i.Member != nil && i.Member.User != nil {
		user = i.Member.User
	}
	if user == nil {
		return
	}

	in := &bus.InboundMessage{
		Channel:     c.Name(),
		SenderID:    senderID(user),
		ChatID:      i.ChannelID,
		Content:     interactionContent(i.ApplicationCommandData()),
		Timestamp:   time.Now(),
		RequestID:   bus.NewRequestID(),
		AwaitsReply: true,
		Metadata: map[string]any{
			"interaction_id": i.ID,
			"username":       user.Username,
			"guild_id":       i.GuildID,
		},
	}
	if !c.IsAllowed(in.SenderID) {
		slog.Debug("unauthorized sender", "channel", c.Name(), "id", in.SenderID)
		return
	}

	if s != nil {
		err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		})
		if err != nil {
			slog.Warn("discord interaction ack failed", "request_id", in.RequestID, "error", err)
			return
		}
	}

	c.pending.SetDefault(in.RequestID, i.Interaction)
	c.PublishInbound(in)
}

func (c *Channel) takePending(requestID string) *discordgo.Interaction {
	if requestID == "" {
		return nil
	}
	v, ok := c.pending.Get(requestID)
	if !ok {
		return nil
	}
	c.pending.Delete(requestID)
	interaction, _ := v.(*discordgo.Interaction)
	return interaction
}

func senderID(u *discordgo.User) string {
	if u.Username == "" {
		return u.ID
	}
	return u.ID + "|" + u.Username
}

// formatContent fits a reply into one Discord message. Help trees go into a
// code block so their indentation survives.
func formatContent(msg *bus.OutboundMessage) string {
	content := msg.Content
	if msg.Preformatted {
		const fence = "```"
		budget := maxMessageLen - 2*len(fence) - 2
		return fence + "\n" + channel.Truncate(content, budget) + "\n" + fence
	}
	return channel.Truncate(content, maxMessageLen)
}

// interactionContent turns slash-command data back into "/name sub value" text.
func interactionContent(data discordgo.ApplicationCommandInteractionData) string {
	parts := []string{"/" + data.Name}
	var walk func(opts []*discordgo.ApplicationCommandInteractionDataOption)
	walk = func(opts []*discordgo.ApplicationCommandInteractionDataOption) {
		for _, opt := range opts {
			if opt == nil {
				continue
			}
			switch opt.Type {
			case discordgo.ApplicationCommandOptionSubCommand, discordgo.ApplicationCommandOptionSubCommandGroup:
				parts = append(parts, opt.Name)
				walk(opt.Options)
			default:
				if opt.Value != nil {
					parts = append(parts, fmt.Sprint(opt.Value))
				}
			}
		}
	}
	walk(data.Options)
	return strings.Join(parts, " ")
}

// applicationCommand converts a help tree into a chat input command.
// Children become sub-commands and grandchildren sub-command groups; deeper
// levels are not representable on Discord and are dropped.
func applicationCommand(node *help.Node) *discordgo.ApplicationCommand {
	if node == nil || strings.TrimSpace(node.Name()) == "" {
		return nil
	}
	cmd := &discordgo.ApplicationCommand{
		Type:        discordgo.ChatApplicationCommand,
		Name:        strings.ToLower(node.Name()),
		Description: description(node),
		Options:     typedOptions(node.Options()),
	}
	for _, child := range node.Children() {
		if sub := subCommand(child, 1); sub != nil {
			cmd.Options = append(cmd.Options, sub)
		}
	}
	return cmd
}

func subCommand(node *help.Node, level int) *discordgo.ApplicationCommandOption {
	if node == nil || strings.TrimSpace(node.Name()) == "" {
		return nil
	}
	opt := &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionSubCommand,
		Name:        strings.ToLower(node.Name()),
		Description: description(node),
		Options:     typedOptions(node.Options()),
	}
	children := node.Children()
	if len(children) == 0 || level >= 2 {
		return opt
	}

	opt.Type = discordgo.ApplicationCommandOptionSubCommandGroup
	opt.Options = nil
	for _, child := range children {
		if sub := subCommand(child, level+1); sub != nil {
			opt.Options = append(opt.Options, sub)
		}
	}
	return opt
}

// typedOptions maps help options to Discord options. Required options come
// first, as Discord demands.
func typedOptions(options []help.Option) []*discordgo.ApplicationCommandOption {
	out := make([]*discordgo.ApplicationCommandOption, 0, len(options))
	for _, o := range options {
		desc := o.Description
		if desc == "" {
			desc = o.Name
		}
		out = append(out, &discordgo.ApplicationCommandOption{
			Type:        optionType(o.Kind),
			Name:        strings.ToLower(o.Name),
			Description: channel.Truncate(desc, maxDescriptionLen),
			Required:    o.Required,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Required && !out[j].Required })
	return out
}

func optionType(kind string) discordgo.ApplicationCommandOptionType {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "integer", "int":
		return discordgo.ApplicationCommandOptionInteger
	case "number", "float":
		return discordgo.ApplicationCommandOptionNumber
	case "boolean", "bool":
		return discordgo.ApplicationCommandOptionBoolean
	case "user":
		return discordgo.ApplicationCommandOptionUser
	case "channel":
		return discordgo.ApplicationCommandOptionChannel
	case "role":
		return discordgo.ApplicationCommandOptionRole
	case "mentionable":
		return discordgo.ApplicationCommandOptionMentionable
	case "attachment":
		return discordgo.ApplicationCommandOptionAttachment
	default:
		return discordgo.ApplicationCommandOptionString
	}
}

func description(node *help.Node) string {
	desc := strings.TrimSpace(node.Description())
	if desc == "" {
		desc = node.Name()
	}
	return channel.Truncate(desc, maxDescriptionLen)
}
