package bus

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

type requestIDContextKey struct{}

// InboundMessage received from a channel
type InboundMessage struct {
	Channel   string
	SenderID  string
	ChatID    string
	Content   string
	Timestamp time.Time
	Metadata  map[string]any
	RequestID string
	// AwaitsReply is set when the platform was already told an answer is
	// coming, such as a deferred Discord interaction. Such messages are
	// answered even when they do not name a command.
	AwaitsReply bool
}

// CooldownKey identifies the sender across chats of one channel.
func (m *InboundMessage) CooldownKey() string {
	return m.Channel + ":" + m.SenderID
}

// OutboundMessage to send to a channel
type OutboundMessage struct {
	Channel   string
	ChatID    string
	Content   string
	ReplyTo   string
	Metadata  map[string]any
	RequestID string
	// Preformatted marks text whose whitespace must survive rendering,
	// such as help trees.
	Preformatted bool
}

// NewReply builds the outbound answer for an inbound message, keeping its
// routing fields and request id.
func NewReply(in *InboundMessage, content string) *OutboundMessage {
	out := &OutboundMessage{
		Channel:   in.Channel,
		ChatID:    in.ChatID,
		Content:   content,
		RequestID: in.RequestID,
	}
	if id, ok := in.Metadata["message_id"]; ok {
		out.ReplyTo = strings.TrimSpace(anyToString(id))
	}
	if len(in.Metadata) > 0 {
		out.Metadata = make(map[string]any, len(in.Metadata))
		for k, v := range in.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}

// NewRequestID creates a request id for tracing.
func NewRequestID() string {
	return uuid.NewString()
}

// WithRequestID adds a request id to context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDContextKey{}, requestID)
}

// RequestIDFromContext reads request id from context.
func RequestIDFromContext(ctx context.Context) string {
	v := ctx.Value(requestIDContextKey{})
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

func anyToString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	default:
		return ""
	}
}
