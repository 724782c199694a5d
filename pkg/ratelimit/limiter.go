package ratelimit

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// CooldownError reports a rejected command and how long until the next one
// will be accepted.
type CooldownError struct {
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("command rejected: rate limit triggered, try again in %.1f seconds", e.Remaining.Seconds())
}

// Limiter enforces a sliding per-identity cooldown between accepted commands.
type Limiter struct {
	cooldown time.Duration
	history  sync.Map // uint64 -> *entry
	logger   *zap.Logger
}

type entry struct {
	mu   sync.Mutex
	last time.Time
}

// New creates a Limiter with the given cooldown between accepted commands.
func New(cooldown time.Duration, logger *zap.Logger) *Limiter {
	logger.Info("rate limiter initialized", zap.Duration("cooldown", cooldown))
	return &Limiter{
		cooldown: cooldown,
		logger:   logger,
	}
}

// Validate accepts or rejects a command issued by id at timestamp. Acceptance
// records the timestamp as the identity's new last-accepted time; rejection
// returns a *CooldownError carrying the remaining wait. The read-compare-write
// on one identity is atomic, so two near-simultaneous commands from the same
// identity cannot both be accepted.
func (l *Limiter) Validate(id uint64, timestamp time.Time) error {
	v, _ := l.history.LoadOrStore(id, &entry{})
	e := v.(*entry)

	e.mu.Lock()
	defer e.mu.Unlock()

	// Zero time for identities never seen: always accepted.
	next := e.last.Add(l.cooldown)
	if timestamp.Before(next) {
		return &CooldownError{Remaining: next.Sub(timestamp)}
	}

	l.logger.Debug("updating identity history",
		zap.Uint64("id", id),
		zap.Time("timestamp", timestamp))
	e.last = timestamp
	return nil
}

// Reset clears all recorded identities unconditionally.
func (l *Limiter) Reset() {
	l.history.Range(func(key, _ interface{}) bool {
		l.history.Delete(key)
		return true
	})
}
