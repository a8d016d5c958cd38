package publishers

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/samvad-hq/admin-console/pkg/httpclient"
)

const maxWebhookSnippet = 512

// httpPublisher posts audit events to a webhook on its own resty client, so
// audit traffic never re-enters the console pipeline.
type httpPublisher struct {
	id     string
	cfg    HTTPPublisherConfig
	client *resty.Client
	log    Logger
}

func newHTTPPublisher(_ context.Context, cfg PublisherConfig, log Logger) (Publisher, error) {
	if cfg.HTTP == nil {
		return nil, fmt.Errorf("publisher %q missing http configuration", cfg.ID)
	}

	client := httpclient.NewRestyHTTPClient(time.Duration(cfg.HTTP.TimeoutSeconds) * time.Second).
		SetHeader(httpclient.HeaderContentType, httpclient.ContentTypeJSON).
		SetHeaders(cfg.HTTP.Headers)
	if cfg.HTTP.Retries > 0 {
		client.SetRetryCount(cfg.HTTP.Retries).
			SetRetryWaitTime(200 * time.Millisecond).
			AddRetryCondition(func(r *resty.Response, err error) bool {
				return err != nil || r.StatusCode() >= http.StatusInternalServerError
			})
	}

	return &httpPublisher{
		id:     cfg.ID,
		cfg:    *cfg.HTTP,
		client: client,
		log:    ensureLogger(log),
	}, nil
}

func (h *httpPublisher) ID() string   { return h.id }
func (h *httpPublisher) Type() string { return TypeHTTP }

func (h *httpPublisher) Publish(ctx context.Context, evt Event) error {
	resp, err := h.client.R().
		SetContext(ctx).
		SetHeader("X-Event-Id", evt.ID).
		SetBody(evt).
		Execute(h.cfg.Method, h.cfg.URL)
	if err != nil {
		return fmt.Errorf("post audit event: %w", err)
	}
	if resp.IsError() {
		body := resp.Body()
		if len(body) > maxWebhookSnippet {
			body = body[:maxWebhookSnippet]
		}
		return fmt.Errorf("webhook rejected event with status %d: %s", resp.StatusCode(), strings.TrimSpace(string(body)))
	}

	h.log.DebugObj("http publisher delivered event", "publisher_http_delivery", map[string]any{
		"publisher_id": h.id,
		"event_id":     evt.ID,
		"status":       resp.StatusCode(),
		"attempts":     resp.Request.Attempt,
	})
	return nil
}
