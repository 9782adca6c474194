package channel

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/MEKXH/funbot/internal/bus"
	"github.com/MEKXH/funbot/internal/metrics"
)

// DeliveryPolicy controls how outbound replies reach the platforms.
type DeliveryPolicy struct {
	MaxConcurrentSends int
	RetryMaxAttempts   int
	RetryBaseBackoff   time.Duration
	RetryMaxBackoff    time.Duration
	// RateLimitPerSecond caps sends per channel. Zero disables the limit.
	RateLimitPerSecond float64
	// DedupWindow suppresses a second successful send of the same request id.
	DedupWindow time.Duration
}

// DefaultDeliveryPolicy returns the policy used by NewManager.
func DefaultDeliveryPolicy() DeliveryPolicy {
	return DeliveryPolicy{
		MaxConcurrentSends: 16,
		RetryMaxAttempts:   3,
		RetryBaseBackoff:   200 * time.Millisecond,
		RetryMaxBackoff:    2 * time.Second,
		RateLimitPerSecond: 20,
		DedupWindow:        30 * time.Second,
	}
}

func (p DeliveryPolicy) normalized() DeliveryPolicy {
	if p.MaxConcurrentSends <= 0 {
		p.MaxConcurrentSends = 1
	}
	if p.RetryMaxAttempts <= 0 {
		p.RetryMaxAttempts = 1
	}
	if p.RetryBaseBackoff <= 0 {
		p.RetryBaseBackoff = 100 * time.Millisecond
	}
	if p.RetryMaxBackoff < p.RetryBaseBackoff {
		p.RetryMaxBackoff = p.RetryBaseBackoff
	}
	return p
}

// backoff returns the wait before retry number attempt (1-based).
func (p DeliveryPolicy) backoff(attempt int) time.Duration {
	d := p.RetryBaseBackoff
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= p.RetryMaxBackoff {
			return p.RetryMaxBackoff
		}
	}
	return d
}

// Manager coordinates all channels
type Manager struct {
	channels map[string]Channel
	limiters map[string]*rate.Limiter
	bus      *bus.MessageBus
	policy   DeliveryPolicy
	sendSem  chan struct{}
	recorder *metrics.Recorder
	mu       sync.RWMutex

	// delivered holds channel/request id keys of sends that are in flight
	// or succeeded within the dedup window.
	delivered *cache.Cache
}

// NewManager creates a channel manager with the default delivery policy.
func NewManager(msgBus *bus.MessageBus) *Manager {
	return NewManagerWithPolicy(msgBus, DefaultDeliveryPolicy())
}

// NewManagerWithPolicy creates a channel manager using policy.
func NewManagerWithPolicy(msgBus *bus.MessageBus, policy DeliveryPolicy) *Manager {
	policy = policy.normalized()
	m := &Manager{
		channels: make(map[string]Channel),
		limiters: make(map[string]*rate.Limiter),
		bus:      msgBus,
		policy:   policy,
		sendSem:  make(chan struct{}, policy.MaxConcurrentSends),
	}
	if policy.DedupWindow > 0 {
		m.delivered = cache.New(policy.DedupWindow, policy.DedupWindow)
	}
	return m
}

// Register adds a channel
func (m *Manager) Register(ch Channel) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.channels[ch.Name()] = ch
	if m.policy.RateLimitPerSecond > 0 {
		m.limiters[ch.Name()] = rate.NewLimiter(rate.Limit(m.policy.RateLimitPerSecond), 1)
	}
}

// SetMetrics attaches a recorder used for outbound send metrics.
func (m *Manager) SetMetrics(recorder *metrics.Recorder) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recorder = recorder
}

// Get returns the channel registered under name.
func (m *Manager) Get(name string) (Channel, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ch, ok := m.channels[name]
	return ch, ok
}

// Names returns registered channel names, sorted.
func (m *Manager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.channels))
	for name := range m.channels {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// StartAll starts all channels
func (m *Manager) StartAll(ctx context.Context) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for name, ch := range m.channels {
		go func(n string, c Channel) {
			slog.Info("starting channel", "name", n)
			if err := c.Start(ctx); err != nil {
				slog.Error("channel error", "name", n, "error", err)
			}
		}(name, ch)
	}
}

// RouteOutbound sends outbound messages to appropriate channels until ctx is done.
func (m *Manager) RouteOutbound(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-m.bus.Outbound():
			if !ok {
				return
			}
			if msg == nil {
				continue
			}
			ch, found := m.Get(msg.Channel)
			if !found {
				slog.Warn("outbound for unknown channel", "request_id", msg.RequestID, "channel", msg.Channel)
				continue
			}

			select {
			case m.sendSem <- struct{}{}:
			case <-ctx.Done():
				return
			}

			key := dedupKey(msg)
			if !m.claim(key) {
				<-m.sendSem
				slog.Debug("duplicate outbound suppressed", "request_id", msg.RequestID, "channel", msg.Channel)
				continue
			}

			go func(c Channel, outbound *bus.OutboundMessage) {
				defer func() { <-m.sendSem }()
				err := m.deliver(ctx, c, outbound)
				m.settle(key, err == nil)
				m.recordSend(outbound, err)
			}(ch, msg)
		}
	}
}

// deliver sends msg, retrying failures with exponential backoff.
func (m *Manager) deliver(ctx context.Context, ch Channel, msg *bus.OutboundMessage) error {
	m.mu.RLock()
	limiter := m.limiters[ch.Name()]
	m.mu.RUnlock()

	var err error
	for attempt := 1; attempt <= m.policy.RetryMaxAttempts; attempt++ {
		if limiter != nil {
			if waitErr := limiter.Wait(ctx); waitErr != nil {
				return waitErr
			}
		}
		if err = ch.Send(ctx, msg); err == nil {
			return nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		if attempt == m.policy.RetryMaxAttempts {
			break
		}
		slog.Debug("send outbound retry", "request_id", msg.RequestID, "channel", msg.Channel, "attempt", attempt, "error", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(m.policy.backoff(attempt)):
		}
	}
	return err
}

func (m *Manager) recordSend(outbound *bus.OutboundMessage, err error) {
	m.mu.RLock()
	recorder := m.recorder
	m.mu.RUnlock()

	attrs := []any{"request_id", outbound.RequestID, "channel", outbound.Channel, "chat_id", outbound.ChatID}
	if recorder != nil {
		snapshot, recordErr := recorder.ObserveSend(outbound.Channel, err)
		if recordErr != nil {
			slog.Warn("record send metrics failed", "channel", outbound.Channel, "error", recordErr)
		}
		counts := snapshot.Sends[outbound.Channel]
		attrs = append(attrs, "send_attempts", counts.Attempts, "send_failure_ratio", counts.FailureRatio())
	}
	if err != nil {
		slog.Error("send outbound failed", append(attrs, "error", err)...)
	}
}

func dedupKey(msg *bus.OutboundMessage) string {
	if msg.RequestID == "" {
		return ""
	}
	return msg.Channel + "/" + msg.RequestID
}

const (
	sendInFlight = "in-flight"
	sendDone     = "sent"
)

// claim reserves key for sending. It fails while the same key is in flight
// or was delivered within the dedup window.
func (m *Manager) claim(key string) bool {
	if key == "" || m.delivered == nil {
		return true
	}
	return m.delivered.Add(key, sendInFlight, cache.NoExpiration) == nil
}

// settle records the outcome of a claimed send. Failed sends release the key
// so a later publish can try again.
func (m *Manager) settle(key string, ok bool) {
	if key == "" || m.delivered == nil {
		return
	}
	if ok {
		m.delivered.Set(key, sendDone, m.policy.DedupWindow)
	} else {
		m.delivered.Delete(key)
	}
}

// StopAll stops all channels
func (m *Manager) StopAll(ctx context.Context) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, ch := range m.channels {
		_ = ch.Stop(ctx)
	}
}
