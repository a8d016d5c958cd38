package publishers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/samvad-hq/admin-console/pkg/httpclient"
)

type capturingPublisher struct {
	stubPublisher
	events []Event
	ctxErr error
}

func (c *capturingPublisher) Publish(ctx context.Context, evt Event) error {
	c.events = append(c.events, evt)
	c.ctxErr = ctx.Err()
	return c.err
}

type countingLogger struct {
	noopLogger
	warns int
}

func (c *countingLogger) WarnObj(string, string, interface{}) { c.warns++ }

func TestNewEventOutcome(t *testing.T) {
	cases := []struct {
		name string
		rec  httpclient.Record
		want string
	}{
		{"ok", httpclient.Record{StatusCode: 200}, OutcomeOK},
		{"error", httpclient.Record{StatusCode: 500, Err: errors.New("boom")}, OutcomeError},
		{"cancelled", httpclient.Record{Cancelled: true, Err: context.Canceled}, OutcomeCancelled},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			evt := NewEvent(tc.rec)
			if evt.Outcome != tc.want {
				t.Fatalf("outcome = %q, want %q", evt.Outcome, tc.want)
			}
			if evt.ID == "" {
				t.Fatalf("event id must be set")
			}
		})
	}
}

func TestObserverPublishesEventsPastCancellation(t *testing.T) {
	pub := &capturingPublisher{stubPublisher: stubPublisher{id: "cap", typ: "test"}}
	obs := NewObserver(NewFanout([]Publisher{pub}), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	obs.Observe(ctx, httpclient.Record{
		Method:    "GET",
		URL:       "/system/menu/list",
		Cancelled: true,
		Err:       context.Canceled,
		Duration:  1500 * time.Millisecond,
		TenantID:  "1",
	})
	obs.Wait()

	if len(pub.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(pub.events))
	}
	evt := pub.events[0]
	if evt.Outcome != OutcomeCancelled || evt.DurationMs != 1500 || evt.URL != "/system/menu/list" {
		t.Fatalf("unexpected event %+v", evt)
	}
	if pub.ctxErr != nil {
		t.Fatalf("publish context must outlive the request, got %v", pub.ctxErr)
	}
}

func TestObserverLogsPublishFailures(t *testing.T) {
	log := &countingLogger{}
	pub := &capturingPublisher{stubPublisher: stubPublisher{id: "bad", typ: "test", err: errors.New("down")}}
	obs := NewObserver(NewFanout([]Publisher{pub}), log)

	obs.Observe(context.Background(), httpclient.Record{Method: "POST", URL: "/x"})
	obs.Wait()
	if log.warns != 1 {
		t.Fatalf("expected one warning, got %d", log.warns)
	}
}

func TestObserverWithoutPublishersIsNoop(t *testing.T) {
	var obs *Observer
	obs.Observe(context.Background(), httpclient.Record{})
	NewObserver(NewFanout(nil), nil).Observe(context.Background(), httpclient.Record{})
}

// blockingPublisher holds every publish until release is closed.
type blockingPublisher struct {
	stubPublisher
	entered chan struct{}
	release chan struct{}
}

func (b *blockingPublisher) Publish(ctx context.Context, _ Event) error {
	b.entered <- struct{}{}
	select {
	case <-b.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func TestSlowSinkDoesNotDelayRequests(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, `{"code":0,"message":"","data":"ok"}`)
	}))
	defer srv.Close()

	pub := &blockingPublisher{
		stubPublisher: stubPublisher{id: "slow", typ: "test"},
		entered:       make(chan struct{}, 1),
		release:       make(chan struct{}),
	}
	obs := NewObserver(NewFanout([]Publisher{pub}), nil)
	client := httpclient.New(httpclient.Options{BaseURL: srv.URL, Observer: obs})

	done := make(chan error, 1)
	go func() {
		var out string
		done <- client.Get(context.Background(), "/system/menu/list", nil, &out)
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
	case <-time.After(2 * time.Second):
		close(pub.release)
		t.Fatalf("request blocked on the audit sink")
	}

	select {
	case <-pub.entered:
	case <-time.After(2 * time.Second):
		t.Fatalf("event never reached the sink")
	}
	close(pub.release)
	obs.Close()
}

func TestObserverDropsEventsAfterClose(t *testing.T) {
	pub := &capturingPublisher{stubPublisher: stubPublisher{id: "cap", typ: "test"}}
	obs := NewObserver(NewFanout([]Publisher{pub}), nil)

	obs.Observe(context.Background(), httpclient.Record{Method: "GET", URL: "/a"})
	obs.Close()
	obs.Observe(context.Background(), httpclient.Record{Method: "GET", URL: "/b"})
	obs.Wait()

	if len(pub.events) != 1 || pub.events[0].URL != "/a" {
		t.Fatalf("expected only the event queued before Close, got %+v", pub.events)
	}
}
