package fetcher

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/pranavnbapat/pagesense/internal/logger"
)

// Throttle enforces a randomized minimum gap between requests to the same
// domain. State is process-wide and shared across concurrent requests;
// entries are never evicted, which is bounded in practice by process
// lifetime.
type Throttle struct {
	// MinGap and MaxGap bound the randomized required gap.
	MinGap time.Duration
	MaxGap time.Duration
	// PreDelayMin and PreDelayMax add a human-like pause before every
	// fetch, independent of domain history. Zero disables it.
	PreDelayMin time.Duration
	PreDelayMax time.Duration

	mu   sync.Mutex
	last map[string]time.Time
	next map[string]time.Time
}

// NewThrottle creates a throttle with the default politeness band.
func NewThrottle() *Throttle {
	return &Throttle{
		MinGap:      1200 * time.Millisecond,
		MaxGap:      3500 * time.Millisecond,
		PreDelayMin: 600 * time.Millisecond,
		PreDelayMax: 1800 * time.Millisecond,
		last:        make(map[string]time.Time),
		next:        make(map[string]time.Time),
	}
}

// Wait blocks until the caller's reserved slot for domain arrives, honoring
// ctx cancellation. The slot is reserved under the lock before sleeping, so
// a second concurrent waiter for the same domain queues a full gap behind
// the first instead of computing the same deadline and racing past it.
func (t *Throttle) Wait(ctx context.Context, domain string) error {
	domain = strings.ToLower(domain)
	pre := t.preDelay()

	t.mu.Lock()
	if t.next == nil {
		t.next = make(map[string]time.Time)
	}
	wake := time.Now().Add(pre)
	if earliest, ok := t.next[domain]; ok && earliest.After(wake) {
		wake = earliest
	}
	t.next[domain] = wake.Add(t.randomGap())
	t.mu.Unlock()

	wait := time.Until(wake)
	if wait <= 0 {
		return nil
	}

	logger.Debug("throttling request", "domain", domain, "wait", wait)
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Record stamps the current time for domain. Call it after the real
// network hit, not before. A slow response can finish later than the slot
// reserved in Wait assumed; the next slot is pushed out from the actual
// finish time, but an existing later reservation is never pulled earlier.
func (t *Throttle) Record(domain string) {
	domain = strings.ToLower(domain)
	now := time.Now()
	t.mu.Lock()
	if t.last == nil {
		t.last = make(map[string]time.Time)
	}
	if t.next == nil {
		t.next = make(map[string]time.Time)
	}
	t.last[domain] = now
	if n := now.Add(t.randomGap()); n.After(t.next[domain]) {
		t.next[domain] = n
	}
	t.mu.Unlock()
}

// Last returns the last recorded request time for domain.
func (t *Throttle) Last(domain string) (time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	ts, ok := t.last[strings.ToLower(domain)]
	return ts, ok
}

func (t *Throttle) randomGap() time.Duration {
	if t.MaxGap <= t.MinGap {
		return t.MinGap
	}
	return t.MinGap + time.Duration(rand.Int63n(int64(t.MaxGap-t.MinGap)))
}

func (t *Throttle) preDelay() time.Duration {
	if t.PreDelayMax <= 0 {
		return 0
	}
	if t.PreDelayMax <= t.PreDelayMin {
		return t.PreDelayMin
	}
	return t.PreDelayMin + time.Duration(rand.Int63n(int64(t.PreDelayMax-t.PreDelayMin)))
}
