// Package flood throttles chat users who send commands faster than the bot should answer.
package flood

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// windowDuration is the period the per-user limit refers to
	windowDuration = time.Minute
	// cleanupInterval is how often we clean up expired entries
	cleanupInterval = 10 * time.Minute
	// idleTimeout is how long before we remove idle user entries
	idleTimeout = 10 * time.Minute
)

// Floodgate provides per-user, per-chat token bucket limiting. A user may
// burst up to the limit and then regains one message every minute/limit.
type Floodgate struct {
	limitPerMinute int
	entries        map[string]*userEntry // Key: "chatID:userID"
	mutex          sync.Mutex
	now            func() time.Time
	stopCleanup    chan struct{}
	stopOnce       sync.Once
}

type userEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// New creates a Floodgate. A limit of zero or less disables throttling.
func New(limitPerMinute int) *Floodgate {
	fg := &Floodgate{
		limitPerMinute: limitPerMinute,
		entries:        make(map[string]*userEntry),
		now:            time.Now,
		stopCleanup:    make(chan struct{}),
	}

	go fg.cleanup()

	return fg
}

// Stop stops the background cleanup goroutine
func (fg *Floodgate) Stop() {
	fg.stopOnce.Do(func() { close(fg.stopCleanup) })
}

// CheckMessage reports whether a message from userID in chatID should be processed.
func (fg *Floodgate) CheckMessage(chatID, userID string) bool {
	if fg.limitPerMinute <= 0 {
		return true
	}

	key := chatID + ":" + userID
	now := fg.now()

	fg.mutex.Lock()
	defer fg.mutex.Unlock()

	entry, exists := fg.entries[key]
	if !exists {
		every := rate.Every(windowDuration / time.Duration(fg.limitPerMinute))
		entry = &userEntry{limiter: rate.NewLimiter(every, fg.limitPerMinute)}
		fg.entries[key] = entry
	}
	entry.lastSeen = now

	return entry.limiter.AllowN(now, 1)
}

// cleanup removes idle user entries to prevent memory leaks
func (fg *Floodgate) cleanup() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			fg.performCleanup()
		case <-fg.stopCleanup:
			return
		}
	}
}

// performCleanup removes entries that have been idle for too long
func (fg *Floodgate) performCleanup() {
	fg.mutex.Lock()
	defer fg.mutex.Unlock()

	cutoff := fg.now().Add(-idleTimeout)
	for key, entry := range fg.entries {
		if entry.lastSeen.Before(cutoff) {
			delete(fg.entries, key)
		}
	}
}

// GetStats returns statistics about the floodgate for monitoring/debugging
func (fg *Floodgate) GetStats() Stats {
	fg.mutex.Lock()
	defer fg.mutex.Unlock()

	return Stats{
		ActiveUsers:    len(fg.entries),
		LimitPerMinute: fg.limitPerMinute,
		WindowSeconds:  int(windowDuration.Seconds()),
	}
}

// Stats contains floodgate statistics
type Stats struct {
	ActiveUsers    int `json:"active_users"`
	LimitPerMinute int `json:"limit_per_minute"`
	WindowSeconds  int `json:"window_seconds"`
}
