package telegram

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/MEKXH/funbot/internal/bus"
	"github.com/MEKXH/funbot/internal/channel"
	"github.com/MEKXH/funbot/internal/config"
	"github.com/MEKXH/funbot/internal/help"
	"github.com/MEKXH/funbot/internal/render"
)

// maxCommandDescLen is Telegram's limit for a menu entry description.
const maxCommandDescLen = 256

var (
	boldStarRe   = regexp.MustCompile(`\*\*(.+?)\*\*`)
	boldUnderRe  = regexp.MustCompile(`__(.+?)__`)
	codeInlineRe = regexp.MustCompile("`([^`]+)`")
)

// Channel implements Telegram bot
type Channel struct {
	channel.BaseChannel
	cfg      *config.TelegramConfig
	bot      *tgbotapi.BotAPI
	commands []tgbotapi.BotCommand
}

// New creates a Telegram channel
func New(cfg *config.TelegramConfig, msgBus *bus.MessageBus) *Channel {
	return &Channel{
		BaseChannel: channel.NewBaseChannel(msgBus, cfg.AllowFrom),
		cfg:         cfg,
	}
}

func (c *Channel) Name() string { return "telegram" }

// SetCommands publishes the top-level help trees as the bot's command menu
// on the next Start.
func (c *Channel) SetCommands(trees []*help.Node) {
	c.commands = botCommands(trees)
}

func (c *Channel) Start(ctx context.Context) error {
	bot, err := tgbotapi.NewBotAPI(c.cfg.Token)
	if err != nil {
		return fmt.Errorf("telegram init failed: %w", err)
	}
	c.bot = bot

	slog.Info("telegram bot connected", "username", bot.Self.UserName)

	if len(c.commands) > 0 {
		if _, err := bot.Request(tgbotapi.NewSetMyCommands(c.commands...)); err != nil {
			slog.Warn("telegram set commands failed", "error", err)
		}
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := bot.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil {
				continue
			}
			c.handleMessage(update.Message)
		}
	}
}

func (c *Channel) handleMessage(msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}
	senderID := strconv.FormatInt(msg.From.ID, 10)
	if msg.From.UserName != "" {
		senderID += "|" + msg.From.UserName
	}

	content := msg.Text
	if content == "" {
		content = msg.Caption
	}
	if strings.TrimSpace(content) == "" {
		return
	}

	published := c.PublishInbound(&bus.InboundMessage{
		Channel:   c.Name(),
		SenderID:  senderID,
		ChatID:    strconv.FormatInt(msg.Chat.ID, 10),
		Content:   content,
		Timestamp: time.Now(),
		RequestID: bus.NewRequestID(),
		Metadata: map[string]any{
			"message_id": msg.MessageID,
			"username":   msg.From.UserName,
		},
	})
	if !published {
		slog.Debug("unauthorized sender", "channel", c.Name(), "id", senderID)
	}
}

func (c *Channel) Send(ctx context.Context, msg *bus.OutboundMessage) error {
	if c.bot == nil {
		return fmt.Errorf("bot not initialized")
	}

	chatID, err := parseInt64(msg.ChatID)
	if err != nil {
		return fmt.Errorf("invalid chat id %q: %w", msg.ChatID, err)
	}

	tgMsg := tgbotapi.NewMessage(chatID, renderMessageHTML(msg))
	tgMsg.ParseMode = tgbotapi.ModeHTML
	if replyTo, err := parseInt64(msg.ReplyTo); err == nil {
		tgMsg.ReplyToMessageID = int(replyTo)
	}

	_, err = c.bot.Send(tgMsg)
	if err != nil {
		slog.Debug("telegram html send rejected, retrying as plain text", "request_id", msg.RequestID, "error", err)
		tgMsg.ParseMode = ""
		tgMsg.Text = render.StripSpoilers(msg.Content)
		_, err = c.bot.Send(tgMsg)
	}
	return err
}

func (c *Channel) Stop(ctx context.Context) error {
	if c.bot != nil {
		c.bot.StopReceivingUpdates()
	}
	return nil
}

func parseInt64(s string) (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(s), 10, 64)
}

func renderMessageHTML(msg *bus.OutboundMessage) string {
	if msg.Preformatted {
		return "<pre>" + html.EscapeString(msg.Content) + "</pre>"
	}
	return render.ReplaceSpoilers(markdownToHTML(msg.Content), func(hidden string) string {
		return "<tg-spoiler>" + hidden + "</tg-spoiler>"
	})
}

func markdownToHTML(text string) string {
	text = strings.ReplaceAll(text, "&", "&amp;")
	text = strings.ReplaceAll(text, "<", "&lt;")
	text = strings.ReplaceAll(text, ">", "&gt;")
	text = boldStarRe.ReplaceAllString(text, "<b>$1</b>")
	text = boldUnderRe.ReplaceAllString(text, "<b>$1</b>")
	text = codeInlineRe.ReplaceAllString(text, "<code>$1</code>")
	return text
}

// botCommands maps help trees to Telegram's command menu entries.
func botCommands(trees []*help.Node) []tgbotapi.BotCommand {
	out := make([]tgbotapi.BotCommand, 0, len(trees))
	for _, tree := range trees {
		if tree == nil || tree.Name() == "" {
			continue
		}
		desc := tree.Description()
		if desc == "" {
			desc = tree.Name()
		}
		out = append(out, tgbotapi.BotCommand{
			Command:     strings.ToLower(tree.Name()),
			Description: channel.Truncate(desc, maxCommandDescLen),
		})
	}
	return out
}
