// Package cooldown throttles how often a sender may use a command.
package cooldown

import (
	"fmt"
	"math"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/time/rate"
)

// maxTrackedKeys bounds how many senders are remembered. The least recently
// seen sender is forgotten first.
const maxTrackedKeys = 4096

// Error is returned when a sender has to wait before retrying.
type Error struct {
	Scope string
	Wait  time.Duration
}

func (e *Error) Error() string {
	return fmt.Sprintf("CooldownError: Please wait %d second(s) before trying to use this %s command again.", e.Seconds(), e.Scope)
}

// Seconds returns the wait rounded up to whole seconds, at least 1.
func (e *Error) Seconds() int64 {
	s := int64(math.Ceil(e.Wait.Seconds()))
	if s < 1 {
		s = 1
	}
	return s
}

// Limiter grants each key one use per period.
type Limiter struct {
	scope  string
	period time.Duration
	now    func() time.Time

	mu       sync.Mutex
	limiters *lru.Cache
}

// New returns a limiter for the named command scope. A non-positive period
// disables throttling.
func New(scope string, period time.Duration) *Limiter {
	return newWithCapacity(scope, period, maxTrackedKeys)
}

func newWithCapacity(scope string, period time.Duration, capacity int) *Limiter {
	limiters, err := lru.New(capacity)
	if err != nil {
		panic(fmt.Sprintf("cooldown: %v", err))
	}
	return &Limiter{
		scope:    scope,
		period:   period,
		now:      time.Now,
		limiters: limiters,
	}
}

// Period returns the configured cooldown.
func (l *Limiter) Period() time.Duration {
	if l == nil {
		return 0
	}
	return l.period
}

// Allow consumes one use for key, or returns an *Error with the remaining wait.
func (l *Limiter) Allow(key string) error {
	if l == nil || l.period <= 0 {
		return nil
	}
	now := l.now()

	l.mu.Lock()
	var lim *rate.Limiter
	if v, ok := l.limiters.Get(key); ok {
		lim = v.(*rate.Limiter)
	} else {
		lim = rate.NewLimiter(rate.Every(l.period), 1)
		l.limiters.Add(key, lim)
	}
	l.mu.Unlock()

	r := lim.ReserveN(now, 1)
	if !r.OK() {
		return &Error{Scope: l.scope, Wait: l.period}
	}
	if wait := r.DelayFrom(now); wait > 0 {
		r.CancelAt(now)
		return &Error{Scope: l.scope, Wait: wait}
	}
	return nil
}

// Reset forgets the state of every key.
func (l *Limiter) Reset() {
	if l == nil {
		return
	}
	l.limiters.Purge()
}
