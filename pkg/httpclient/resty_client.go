package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// Options configures a Client.
type Options struct {
	BaseURL  string
	Timeout  time.Duration
	TenantID string
	// EnforceWhitelist strips Authorization from whitelisted auth endpoints.
	EnforceWhitelist bool
	// Headers override DefaultHeaders.
	Headers map[string]string
	// Hooks are the client-wide defaults, consulted after per-call hooks.
	Hooks Hooks

	Tokens    TokenStore
	Progress  Progress
	Refresher TokenRefresher
	Observer  Observer
	Logger    Logger
	Transport http.RoundTripper
}

// Response is a successful dispatch. Body is the untouched payload.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	Config     *RequestConfig
}

// Decode unmarshals the envelope data field into out.
func (r *Response) Decode(out any) error {
	return DecodeData(r.Body, out)
}

// Client is the request facade over a shared resty.Client. It is safe for
// concurrent use: every call builds its own RequestConfig.
type Client struct {
	client           *resty.Client
	headers          map[string]string
	tenantID         string
	enforceWhitelist bool
	hooks            Hooks
	tokens           TokenStore
	progress         Progress
	refresher        TokenRefresher
	observer         Observer
	log              Logger
	refresh          *refreshState
}

// New builds a Client and registers the interceptor pipeline on resty's hooks.
func New(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	tenant := strings.TrimSpace(opts.TenantID)
	if tenant == "" {
		tenant = DefaultTenantID
	}

	headers := DefaultHeaders()
	for k, v := range opts.Headers {
		headers[k] = v
	}

	c := &Client{
		headers:          headers,
		tenantID:         tenant,
		enforceWhitelist: opts.EnforceWhitelist,
		hooks:            opts.Hooks,
		tokens:           opts.Tokens,
		progress:         opts.Progress,
		refresher:        opts.Refresher,
		observer:         opts.Observer,
		log:              ensureLogger(opts.Logger),
		refresh:          &refreshState{},
	}
	if c.tokens == nil {
		c.tokens = noopTokens{}
	}
	if c.progress == nil {
		c.progress = noopProgress{}
	}

	c.client = newRestyBaseClient(timeout)
	if opts.BaseURL != "" {
		c.client.SetBaseURL(opts.BaseURL)
	}
	if opts.Transport != nil {
		c.client.SetTransport(opts.Transport)
	}
	c.client.OnBeforeRequest(c.onBeforeRequest)
	c.client.OnAfterResponse(c.onAfterResponse)
	c.client.OnError(c.onError)
	return c
}

// SetRefresher installs the refresher used after 401 responses.
// It must be called before the client is shared.
func (c *Client) SetRefresher(r TokenRefresher) {
	c.refresher = r
}

// NewRestyHTTPClient exposes a configured resty.Client for callers needing custom verbs.
func NewRestyHTTPClient(timeout time.Duration) *resty.Client {
	return newRestyBaseClient(timeout)
}

// newRestyBaseClient creates a new resty.Client with the specified timeout.
func newRestyBaseClient(timeout time.Duration) *resty.Client {
	c := resty.New()
	c.SetTimeout(timeout)
	return c
}

// Request dispatches method+url through the pipeline. A stored access token
// already past its expiry is exchanged before dispatch. A 401 on a
// non-whitelisted call triggers one token refresh and a single replay.
func (c *Client) Request(ctx context.Context, method, url string, cfg *RequestConfig) (*Response, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	cl := c.newCall(method, url, cfg)
	c.refreshIfExpired(ctx, cl)
	resp, err := c.dispatch(ctx, cl)
	if err == nil || !c.shouldRefresh(cl, err) {
		return resp, err
	}

	token, rerr := c.refreshFor(ctx, cl.sentToken)
	if rerr != nil {
		var orig *Error
		errors.As(err, &orig)
		return nil, &Error{
			Method:     orig.Method,
			URL:        orig.URL,
			StatusCode: orig.StatusCode,
			Cancelled:  errors.Is(rerr, context.Canceled),
			Message:    orig.Message,
			Err:        fmt.Errorf("refresh access token: %w", rerr),
		}
	}

	retry := c.newCall(method, url, cfg)
	retry.replayed = true
	retry.cfg.SetHeader(HeaderAuthorization, FormatToken(token))
	return c.dispatch(ctx, retry)
}

// Get dispatches a GET and decodes the envelope data into out.
func (c *Client) Get(ctx context.Context, url string, cfg *RequestConfig, out any) error {
	return c.do(ctx, http.MethodGet, url, cfg, out)
}

// Post dispatches a POST and decodes the envelope data into out.
func (c *Client) Post(ctx context.Context, url string, cfg *RequestConfig, out any) error {
	return c.do(ctx, http.MethodPost, url, cfg, out)
}

// Put dispatches a PUT and decodes the envelope data into out.
func (c *Client) Put(ctx context.Context, url string, cfg *RequestConfig, out any) error {
	return c.do(ctx, http.MethodPut, url, cfg, out)
}

// Delete dispatches a DELETE and decodes the envelope data into out.
func (c *Client) Delete(ctx context.Context, url string, cfg *RequestConfig, out any) error {
	return c.do(ctx, http.MethodDelete, url, cfg, out)
}

// Fetch dispatches a request and returns the envelope data as T.
func Fetch[T any](ctx context.Context, c *Client, method, url string, cfg *RequestConfig) (T, error) {
	var out T
	if err := c.do(ctx, method, url, cfg, &out); err != nil {
		return out, err
	}
	return out, nil
}

// RefreshPhase reports whether a token refresh is in flight.
func (c *Client) RefreshPhase() RefreshPhase {
	return c.refresh.phase()
}

func (c *Client) do(ctx context.Context, method, url string, cfg *RequestConfig, out any) error {
	resp, err := c.Request(ctx, method, url, cfg)
	if err != nil {
		return err
	}
	return resp.Decode(out)
}

func (c *Client) newCall(method, url string, cfg *RequestConfig) *call {
	return &call{cfg: mergeConfig(method, url, c.headers, cfg)}
}

func (c *Client) dispatch(ctx context.Context, cl *call) (*Response, error) {
	cl.started = time.Now()
	method, url := cl.cfg.Method, cl.cfg.URL

	_, err := c.client.R().
		SetContext(withCall(ctx, cl)).
		Execute(method, url)
	if err != nil {
		tagged := tagError(method, cl.cfg.URL, err)
		c.observe(ctx, cl, tagged)
		return nil, tagged
	}
	c.observe(ctx, cl, nil)
	return cl.response, nil
}

func (c *Client) shouldRefresh(cl *call, err error) bool {
	if c.refresher == nil || cl.replayed || cl.sentToken == "" {
		return false
	}
	if isWhitelisted(cl.cfg.URL) {
		return false
	}
	return StatusCode(err) == http.StatusUnauthorized
}

// refreshFor returns an access token to use in place of stale. When another
// request already rotated the token, no refresh is issued.
func (c *Client) refreshFor(ctx context.Context, stale string) (string, error) {
	return c.refresh.await(ctx, func(ctx context.Context) (string, error) {
		return c.refreshAccessToken(ctx, stale)
	})
}

// refreshIfExpired exchanges the refresh token before cl goes out when the
// stored access token is already expired. Failures are left to the 401 path.
func (c *Client) refreshIfExpired(ctx context.Context, cl *call) {
	if c.refresher == nil || cl.cfg.skipsToken() || isWhitelisted(cl.cfg.URL) {
		return
	}
	tok, err := c.tokens.Token()
	if err != nil || tok == nil || tok.RefreshToken == "" || !tok.Expired(time.Now()) {
		return
	}
	if _, err := c.refreshFor(ctx, tok.AccessToken); err != nil {
		c.log.WarnObj("refresh before dispatch failed", "refresh", map[string]any{
			"url":   cl.cfg.URL,
			"error": err.Error(),
		})
	}
}

func (c *Client) refreshAccessToken(ctx context.Context, stale string) (string, error) {
	tok, err := c.tokens.Token()
	if err != nil {
		return "", fmt.Errorf("read token: %w", err)
	}
	if tok != nil && tok.AccessToken != "" && tok.AccessToken != stale {
		return tok.AccessToken, nil
	}
	if tok == nil || tok.RefreshToken == "" {
		return "", ErrNoRefreshToken
	}

	next, err := c.refresher.Refresh(ctx, tok.RefreshToken)
	if err != nil {
		if clearErr := c.tokens.ClearToken(); clearErr != nil {
			c.log.WarnObj("token store clear failed", "error", clearErr.Error())
		}
		return "", err
	}
	if err := c.tokens.SetToken(next); err != nil {
		return "", fmt.Errorf("store refreshed token: %w", err)
	}
	c.log.InfoObj("access token refreshed", "token_meta", map[string]any{
		"expires_at": next.ExpiresAt,
	})
	return next.AccessToken, nil
}

func (c *Client) observe(ctx context.Context, cl *call, err *Error) {
	rec := Record{
		Method:   cl.cfg.Method,
		URL:      cl.cfg.URL,
		Duration: time.Since(cl.started),
		TenantID: c.tenantID,
		Replayed: cl.replayed,
	}
	if err != nil {
		rec.StatusCode = err.StatusCode
		rec.Cancelled = err.Cancelled
		rec.Err = err
	} else if cl.response != nil {
		rec.StatusCode = cl.response.StatusCode
	}

	c.log.DebugObj("request settled", "http_request", map[string]any{
		"method":      rec.Method,
		"url":         rec.URL,
		"status":      rec.StatusCode,
		"cancelled":   rec.Cancelled,
		"replayed":    rec.Replayed,
		"duration_ms": rec.Duration.Milliseconds(),
	})
	if c.observer != nil {
		c.observer.Observe(ctx, rec)
	}
}
