package realtime

import (
	"sync"
	"time"
)

// TemperatureThrottle coalesces temperature readings: at most one emission per
// machine per window, always carrying the latest value. The first reading in a
// quiet period goes out immediately; readings landing inside the window are
// folded into a single trailing emission.
type TemperatureThrottle struct {
	window time.Duration
	emit   func(machineID string, temperature float64)

	mu      sync.Mutex
	pending map[string]*pendingTemperature
}

type pendingTemperature struct {
	latest float64
	queued bool
}

const DefaultTemperatureWindow = 2 * time.Second

func NewTemperatureThrottle(window time.Duration, emit func(machineID string, temperature float64)) *TemperatureThrottle {
	if window <= 0 {
		window = DefaultTemperatureWindow
	}
	return &TemperatureThrottle{
		window:  window,
		emit:    emit,
		pending: make(map[string]*pendingTemperature),
	}
}

// Offer records a reading. Returns immediately; emission happens inline for
// the first reading of a window and from a timer for coalesced ones.
func (t *TemperatureThrottle) Offer(machineID string, temperature float64) {
	t.mu.Lock()
	p, open := t.pending[machineID]
	if open {
		p.latest = temperature
		p.queued = true
		t.mu.Unlock()
		return
	}
	t.pending[machineID] = &pendingTemperature{latest: temperature}
	t.mu.Unlock()

	t.emit(machineID, temperature)
	time.AfterFunc(t.window, func() { t.flush(machineID) })
}

func (t *TemperatureThrottle) flush(machineID string) {
	t.mu.Lock()
	p := t.pending[machineID]
	if p == nil {
		t.mu.Unlock()
		return
	}
	if !p.queued {
		// Quiet window, close it out.
		delete(t.pending, machineID)
		t.mu.Unlock()
		return
	}
	latest := p.latest
	p.queued = false
	t.mu.Unlock()

	t.emit(machineID, latest)
	time.AfterFunc(t.window, func() { t.flush(machineID) })
}
