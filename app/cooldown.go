package app

import (
	"sync"
	"time"
)

// CooldownTracker remembers when each symbol was last alerted. It starts
// empty and lives as long as the process.
type CooldownTracker struct {
	mu        sync.Mutex
	lastAlert map[string]time.Time
	cooldown  time.Duration
	now       Clock
}

// NewCooldownTracker creates a tracker with the given cooldown in minutes
func NewCooldownTracker(minutes int, now Clock) *CooldownTracker {
	if now == nil {
		now = time.Now
	}
	return &CooldownTracker{
		lastAlert: make(map[string]time.Time),
		cooldown:  time.Duration(minutes) * time.Minute,
		now:       now,
	}
}

// allowedLocked compares whole elapsed minutes with the cooldown
func (c *CooldownTracker) allowedLocked(symbol string, at time.Time) bool {
	last, ok := c.lastAlert[symbol]
	if !ok {
		return true
	}
	elapsed := at.Sub(last).Truncate(time.Minute)
	return elapsed >= c.cooldown
}

// Allowed reports whether symbol is outside its cooldown without reserving it
func (c *CooldownTracker) Allowed(symbol string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.allowedLocked(symbol, c.now())
}

// TryAcquire checks and reserves symbol in one step. When ok is true the
// alert time is already recorded; call release if the alert was not sent to
// restore the previous state.
func (c *CooldownTracker) TryAcquire(symbol string) (release func(), ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	at := c.now()
	if !c.allowedLocked(symbol, at) {
		return func() {}, false
	}

	prev, hadPrev := c.lastAlert[symbol]
	c.lastAlert[symbol] = at

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			// A later reservation owns the slot now
			if cur, ok := c.lastAlert[symbol]; !ok || !cur.Equal(at) {
				return
			}
			if hadPrev {
				c.lastAlert[symbol] = prev
			} else {
				delete(c.lastAlert, symbol)
			}
		})
	}, true
}

// LastAlert returns when symbol was last alerted
func (c *CooldownTracker) LastAlert(symbol string) (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.lastAlert[symbol]
	return t, ok
}
