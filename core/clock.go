package core

import (
	"sync"
	"time"
)

// =============================================================================
// CLOCK - Injectable time source
// =============================================================================

// Clock supplies the current time. Production code uses SystemClock; tests
// inject a fake so that durations and classification boundaries are exact.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in UTC.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// =============================================================================
// TICKER - Periodic display callback with explicit start/stop
// =============================================================================

// Ticker invokes a callback at a fixed interval. It exists for presentation
// layers that want a live elapsed-time readout; the callback must stay cheap
// and must not perform persistence writes.
type Ticker struct {
	mu   sync.Mutex
	stop chan struct{}
}

func NewTicker() *Ticker {
	return &Ticker{}
}

// Start begins ticking. Calling Start while running restarts the ticker.
func (t *Ticker) Start(interval time.Duration, fn func(now time.Time)) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stopLocked()
	stop := make(chan struct{})
	t.stop = stop

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case now := <-ticker.C:
				fn(now)
			case <-stop:
				return
			}
		}
	}()
}

// Stop halts the ticker. Safe to call when not running.
func (t *Ticker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked()
}

func (t *Ticker) stopLocked() {
	if t.stop != nil {
		close(t.stop)
		t.stop = nil
	}
}
