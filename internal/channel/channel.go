package channel

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/MEKXH/funbot/internal/bus"
)

// Channel interface for chat platforms
type Channel interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Send(ctx context.Context, msg *bus.OutboundMessage) error
	IsAllowed(senderID string) bool
}

// BaseChannel provides the allow-list and bus plumbing shared by channels.
type BaseChannel struct {
	Bus       *bus.MessageBus
	AllowList map[string]bool
}

// NewBaseChannel builds a BaseChannel from a configured allow_from list.
// Blank entries are skipped; an empty list allows every sender.
func NewBaseChannel(msgBus *bus.MessageBus, allowFrom []string) BaseChannel {
	allow := make(map[string]bool, len(allowFrom))
	for _, id := range allowFrom {
		if id = strings.TrimSpace(id); id != "" {
			allow[id] = true
		}
	}
	return BaseChannel{Bus: msgBus, AllowList: allow}
}

// IsAllowed checks if sender is permitted. senderID may be "id|username".
func (b *BaseChannel) IsAllowed(senderID string) bool {
	if len(b.AllowList) == 0 {
		return true
	}

	idPart, userPart, _ := strings.Cut(senderID, "|")
	for allowed := range b.AllowList {
		entry := strings.TrimPrefix(strings.TrimSpace(allowed), "@")
		if entry == "" {
			continue
		}
		if entry == senderID || entry == idPart || (userPart != "" && entry == userPart) {
			return true
		}
	}
	return false
}

// PublishInbound hands a received message to the dispatcher. Messages from
// senders outside the allow list are dropped.
func (b *BaseChannel) PublishInbound(msg *bus.InboundMessage) bool {
	if msg == nil || !b.IsAllowed(msg.SenderID) {
		return false
	}
	b.Bus.PublishInbound(msg)
	return true
}

// Truncate shortens s to at most n characters without splitting a
// multi-byte character. Platform limits count characters, not bytes.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	for i := range s {
		if n == 0 {
			return s[:i]
		}
		n--
	}
	return s
}
