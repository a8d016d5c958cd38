package publishers

import (
	"time"

	"github.com/google/uuid"

	"github.com/samvad-hq/admin-console/pkg/httpclient"
)

// Event outcomes.
const (
	OutcomeOK        = "ok"
	OutcomeError     = "error"
	OutcomeCancelled = "cancelled"
)

// Event is the audit record published for every settled console request.
type Event struct {
	ID         string    `json:"id"`
	Method     string    `json:"method"`
	URL        string    `json:"url"`
	StatusCode int       `json:"status_code"`
	Outcome    string    `json:"outcome"`
	Replayed   bool      `json:"replayed"`
	Error      string    `json:"error,omitempty"`
	DurationMs int64     `json:"duration_ms"`
	TenantID   string    `json:"tenant_id"`
	SettledAt  time.Time `json:"settled_at"`
}

// NewEvent constructs an Event for the given dispatch record.
func NewEvent(rec httpclient.Record) Event {
	evt := Event{
		ID:         uuid.NewString(),
		Method:     rec.Method,
		URL:        rec.URL,
		StatusCode: rec.StatusCode,
		Outcome:    OutcomeOK,
		Replayed:   rec.Replayed,
		DurationMs: rec.Duration.Milliseconds(),
		TenantID:   rec.TenantID,
		SettledAt:  time.Now().UTC(),
	}
	switch {
	case rec.Cancelled:
		evt.Outcome = OutcomeCancelled
	case rec.Err != nil:
		evt.Outcome = OutcomeError
	}
	if rec.Err != nil {
		evt.Error = rec.Err.Error()
	}
	return evt
}

// attributes are the routing attributes attached by message-bus sinks.
func (e Event) attributes() map[string]string {
	return map[string]string{
		"event_id":  e.ID,
		"outcome":   e.Outcome,
		"tenant_id": e.TenantID,
		"method":    e.Method,
	}
}
