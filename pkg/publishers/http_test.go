package publishers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

func TestHTTPPublisherPostsEventJSON(t *testing.T) {
	var got Event
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("expected PUT, got %s", r.Method)
		}
		if r.Header.Get("X-Source") != "admin-console" {
			t.Errorf("configured header missing")
		}
		if r.Header.Get("X-Event-Id") != "evt-42" {
			t.Errorf("X-Event-Id = %q", r.Header.Get("X-Event-Id"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	pub, err := newHTTPPublisher(context.Background(), PublisherConfig{
		ID:   "audit-webhook",
		Type: TypeHTTP,
		HTTP: &HTTPPublisherConfig{
			URL:            srv.URL,
			Method:         http.MethodPut,
			Headers:        map[string]string{"X-Source": "admin-console"},
			TimeoutSeconds: 2,
		},
	}, nil)
	if err != nil {
		t.Fatalf("newHTTPPublisher: %v", err)
	}

	evt := Event{ID: "evt-42", Method: "GET", URL: "/system/menu/list", StatusCode: 200, Outcome: OutcomeOK, TenantID: "1"}
	if err := pub.Publish(context.Background(), evt); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if got.ID != "evt-42" || got.URL != "/system/menu/list" || got.Outcome != OutcomeOK || got.TenantID != "1" {
		t.Fatalf("unexpected delivered event %+v", got)
	}
}

func TestHTTPPublisherReportsRejectedEvents(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "schema mismatch", http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	pub, err := newHTTPPublisher(context.Background(), PublisherConfig{
		ID:   "audit-webhook",
		Type: TypeHTTP,
		HTTP: &HTTPPublisherConfig{URL: srv.URL, Method: http.MethodPost, TimeoutSeconds: 1},
	}, nil)
	if err != nil {
		t.Fatalf("newHTTPPublisher: %v", err)
	}

	err = pub.Publish(context.Background(), Event{ID: "evt-1"})
	if err == nil {
		t.Fatalf("expected error on non-2xx response")
	}
	if !strings.Contains(err.Error(), "422") || !strings.Contains(err.Error(), "schema mismatch") {
		t.Fatalf("error must carry status and body, got %v", err)
	}
}

func TestHTTPPublisherRetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	pub, err := newHTTPPublisher(context.Background(), PublisherConfig{
		ID:   "audit-webhook",
		Type: TypeHTTP,
		HTTP: &HTTPPublisherConfig{URL: srv.URL, Method: http.MethodPost, TimeoutSeconds: 2, Retries: 2},
	}, nil)
	if err != nil {
		t.Fatalf("newHTTPPublisher: %v", err)
	}
	if err := pub.Publish(context.Background(), Event{ID: "evt-7"}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if hits.Load() != 2 {
		t.Fatalf("expected one retry, got %d hits", hits.Load())
	}
}

func TestNewHTTPPublisherRequiresConfig(t *testing.T) {
	if _, err := newHTTPPublisher(context.Background(), PublisherConfig{ID: "hook", Type: TypeHTTP}, nil); err == nil {
		t.Fatalf("expected error without http block")
	}
}
