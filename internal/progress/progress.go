// Package progress tracks in-flight console requests, standing in for the
// browser's top-of-page loading bar.
package progress

import (
	"sync"
	"time"

	"github.com/samvad-hq/admin-console/internal/logger"
)

// Tracker counts in-flight requests. It satisfies httpclient.Progress.
type Tracker struct {
	mu        sync.Mutex
	inFlight  int
	total     int
	busySince time.Time
	log       logger.Logger
	now       func() time.Time
}

// New returns a Tracker logging busy/idle transitions to log.
func New(log logger.Logger) *Tracker {
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Tracker{log: log, now: time.Now}
}

// Start marks one more request as in flight.
func (t *Tracker) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.inFlight++
	t.total++
	if t.inFlight == 1 {
		t.busySince = t.now()
		t.log.DebugObj("request started", "progress", map[string]any{"in_flight": 1})
	}
}

// Done marks one request as settled. Extra calls are ignored.
func (t *Tracker) Done() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.inFlight == 0 {
		return
	}
	t.inFlight--
	if t.inFlight == 0 {
		t.log.DebugObj("requests finished", "progress", map[string]any{
			"busy_ms": t.now().Sub(t.busySince).Milliseconds(),
			"total":   t.total,
		})
	}
}

// InFlight reports the current number of unsettled requests.
func (t *Tracker) InFlight() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.inFlight
}

// Busy reports whether any request is in flight.
func (t *Tracker) Busy() bool {
	return t.InFlight() > 0
}
