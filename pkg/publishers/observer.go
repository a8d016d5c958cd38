package publishers

import (
	"context"
	"sync"
	"time"

	"github.com/samvad-hq/admin-console/pkg/httpclient"
)

const defaultPublishTimeout = 5 * time.Second

// Observer turns settled console requests into audit events. It satisfies
// httpclient.Observer; events are published in the background and failures
// are logged, never returned to the caller.
type Observer struct {
	fanout  *Fanout
	log     Logger
	timeout time.Duration

	mu      sync.Mutex
	closed  bool
	pending sync.WaitGroup
}

// NewObserver returns an Observer publishing through fanout.
func NewObserver(fanout *Fanout, log Logger) *Observer {
	return &Observer{fanout: fanout, log: ensureLogger(log), timeout: defaultPublishTimeout}
}

// Observe queues one event for rec and returns immediately. The caller's
// cancellation does not abort the publish, so cancelled requests are still
// audited. Events observed after Close are dropped.
func (o *Observer) Observe(ctx context.Context, rec httpclient.Record) {
	if o == nil || o.fanout.Size() == 0 {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		o.log.DebugObj("audit event dropped after close", "audit_publish", map[string]any{"url": rec.URL})
		return
	}
	o.pending.Add(1)
	o.mu.Unlock()

	evt := NewEvent(rec)
	base := context.WithoutCancel(ctx)
	go func() {
		defer o.pending.Done()
		o.publish(base, evt)
	}()
}

func (o *Observer) publish(base context.Context, evt Event) {
	ctx, cancel := context.WithTimeout(base, o.timeout)
	defer cancel()

	delivered, err := o.fanout.Publish(ctx, evt)
	if err != nil {
		o.log.WarnObj("audit event publish failed", "audit_publish", map[string]any{
			"event_id":  evt.ID,
			"delivered": delivered,
			"total":     o.fanout.Size(),
			"error":     err.Error(),
		})
	}
}

// Wait blocks until every queued event has been published or timed out.
func (o *Observer) Wait() {
	if o == nil {
		return
	}
	o.pending.Wait()
}

// Close stops accepting events and waits for the queued ones.
func (o *Observer) Close() {
	if o == nil {
		return
	}
	o.mu.Lock()
	o.closed = true
	o.mu.Unlock()
	o.pending.Wait()
}
