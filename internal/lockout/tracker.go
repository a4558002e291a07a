package lockout

import (
	"sync"
	"time"
)

// Tracker counts failed login attempts per identity within a sliding time
// window and locks identities that reach the failure threshold. All methods
// take an explicit `now` so the window logic is deterministic under test.
//
// Each identity moves through clear -> accumulating -> locked -> clear; the
// locked state ends either by expiry (checked lazily, no background sweeper)
// or by Clear on a successful login.
type Tracker struct {
	maxAttempts     int
	window          time.Duration
	lockoutDuration time.Duration

	mu      sync.RWMutex
	entries map[string]*entry
}

// entry carries the failure timestamps and lockout deadline for one identity.
// Its mutex serializes the record+prune+threshold sequence per identity so
// unrelated identities never contend. gone marks an entry that Clear removed
// from the map; a caller that fetched it before the removal must re-resolve
// rather than mutate the orphan.
type entry struct {
	mu          sync.Mutex
	gone        bool
	failures    []time.Time
	lockedUntil time.Time
}

// NewTracker creates a tracker that locks an identity for lockoutDuration
// once maxAttempts failures land inside window. The window and the lockout
// duration are independent: a short counting window with a long lockout is a
// valid configuration.
func NewTracker(maxAttempts int, window, lockoutDuration time.Duration) *Tracker {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Tracker{
		maxAttempts:     maxAttempts,
		window:          window,
		lockoutDuration: lockoutDuration,
		entries:         make(map[string]*entry),
	}
}

// MaxAttempts returns the configured failure threshold.
func (t *Tracker) MaxAttempts() int { return t.maxAttempts }

// LockoutDuration returns the configured lockout duration.
func (t *Tracker) LockoutDuration() time.Duration { return t.lockoutDuration }

func (t *Tracker) lookup(identity string) *entry {
	t.mu.RLock()
	e := t.entries[identity]
	t.mu.RUnlock()
	return e
}

func (t *Tracker) entryFor(identity string) *entry {
	if e := t.lookup(identity); e != nil {
		return e
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	e := t.entries[identity]
	if e == nil {
		e = &entry{}
		t.entries[identity] = e
	}
	return e
}

// IsLocked reports whether identity is locked at now, and until when. An
// expired lockout is erased as a side effect, together with the identity's
// attempt record.
func (t *Tracker) IsLocked(identity string, now time.Time) (bool, time.Time) {
	e := t.lookup(identity)
	if e == nil {
		return false, time.Time{}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.gone || e.lockedUntil.IsZero() {
		return false, time.Time{}
	}
	if now.Before(e.lockedUntil) {
		return true, e.lockedUntil
	}

	// Lockout expired: drop it along with the stale attempt record.
	e.lockedUntil = time.Time{}
	e.failures = nil
	return false, time.Time{}
}

// RecordFailure appends a failure at now, prunes entries older than the
// window, and locks the identity when the pruned count reaches the threshold.
// It returns true only on the transition into the locked state. The whole
// sequence is atomic per identity.
func (t *Tracker) RecordFailure(identity string, now time.Time) bool {
	for {
		e := t.entryFor(identity)

		e.mu.Lock()
		if e.gone {
			// Lost a race with Clear; the map entry was replaced.
			e.mu.Unlock()
			continue
		}

		e.failures = append(e.failures, now)
		e.failures = t.pruneLocked(e.failures, now)

		triggered := false
		if len(e.failures) >= t.maxAttempts && e.lockedUntil.IsZero() {
			e.lockedUntil = now.Add(t.lockoutDuration)
			triggered = true
		}
		e.mu.Unlock()
		return triggered
	}
}

// Clear removes all attempt and lockout state for identity. Clearing an
// already-clear identity is a no-op.
func (t *Tracker) Clear(identity string) {
	t.mu.Lock()
	e := t.entries[identity]
	delete(t.entries, identity)
	t.mu.Unlock()

	if e == nil {
		return
	}
	// Invalidate the removed entry so a concurrent RecordFailure that
	// already fetched it re-resolves instead of writing into the orphan.
	e.mu.Lock()
	e.gone = true
	e.mu.Unlock()
}

// FailedAttempts returns the number of failures for identity still inside
// the window at now.
func (t *Tracker) FailedAttempts(identity string, now time.Time) int {
	e := t.lookup(identity)
	if e == nil {
		return 0
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.gone {
		return 0
	}
	e.failures = t.pruneLocked(e.failures, now)
	return len(e.failures)
}

// RemainingAttempts returns how many failures identity can still accrue
// before lockout, floored at zero.
func (t *Tracker) RemainingAttempts(identity string, now time.Time) int {
	remaining := t.maxAttempts - t.FailedAttempts(identity, now)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// pruneLocked drops timestamps outside the window ending at now and caps the
// record at maxAttempts, keeping the most recent entries. Caller holds the
// entry mutex.
func (t *Tracker) pruneLocked(failures []time.Time, now time.Time) []time.Time {
	kept := failures[:0]
	for _, ts := range failures {
		if now.Sub(ts) < t.window {
			kept = append(kept, ts)
		}
	}
	if len(kept) > t.maxAttempts {
		kept = kept[len(kept)-t.maxAttempts:]
	}
	return kept
}
