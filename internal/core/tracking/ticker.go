package tracking

import (
	"sync"
	"time"
)

// Ticker calls onTick every interval from its own goroutine while started.
// Start and Stop are idempotent, and Stop does not wait for a running callback.
type Ticker struct {
	interval time.Duration
	onTick   func()

	mu     sync.Mutex
	stopCh chan struct{}
}

// NewTicker creates a stopped ticker.
func NewTicker(interval time.Duration, onTick func()) *Ticker {
	if interval <= 0 {
		interval = time.Second
	}
	return &Ticker{interval: interval, onTick: onTick}
}

// Start launches the ticking loop unless it is already running.
func (t *Ticker) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopCh != nil {
		return
	}
	t.stopCh = make(chan struct{})
	go t.run(t.stopCh)
}

// Stop terminates the ticking loop.
func (t *Ticker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopCh == nil {
		return
	}
	close(t.stopCh)
	t.stopCh = nil
}

// Running reports whether the loop is started.
func (t *Ticker) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopCh != nil
}

func (t *Ticker) run(stopCh chan struct{}) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			// A stop may race with a ready tick.
			select {
			case <-stopCh:
				return
			default:
			}
			t.onTick()
		}
	}
}
