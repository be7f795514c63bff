package session

import (
	"sync"
	"time"
)

const defaultThrottleInterval = 40 * time.Millisecond

// throttle enforces a minimum interval between broadcasts per key, bounding
// message volume during continuous drag/resize. Frames inside the window are
// dropped; the durable drag-end mutation bypasses the throttle entirely.
type throttle struct {
	mu       sync.Mutex
	interval time.Duration
	last     map[string]time.Time
}

func newThrottle(interval time.Duration) *throttle {
	if interval <= 0 {
		interval = defaultThrottleInterval
	}
	return &throttle{
		interval: interval,
		last:     make(map[string]time.Time),
	}
}

func (t *throttle) allow(key string) bool {
	now := time.Now()
	t.mu.Lock()
	defer t.mu.Unlock()
	if last, ok := t.last[key]; ok && now.Sub(last) < t.interval {
		return false
	}
	t.last[key] = now
	return true
}
