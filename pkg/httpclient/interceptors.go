package httpclient

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
)

// call carries the per-dispatch state through resty's hooks.
type call struct {
	cfg       *RequestConfig
	sentToken string
	replayed  bool
	started   time.Time
	response  *Response
	settled   sync.Once
}

type callKey struct{}

func withCall(ctx context.Context, cl *call) context.Context {
	return context.WithValue(ctx, callKey{}, cl)
}

func callFrom(ctx context.Context) (*call, bool) {
	if ctx == nil {
		return nil, false
	}
	cl, ok := ctx.Value(callKey{}).(*call)
	return cl, ok
}

// interceptRequest applies the request pipeline to cl.cfg in this order:
// progress start, token injection, per-call hook, default hook, tenant header,
// whitelist, form encoding, GET query flattening. A hook ends the pipeline.
func (c *Client) interceptRequest(cl *call) error {
	cfg := cl.cfg
	c.progress.Start()

	optOut := cfg.tokenOptOut()
	if token := c.accessToken(); token != "" && !optOut {
		cfg.SetHeader(HeaderAuthorization, FormatToken(token))
		cl.sentToken = token
	}

	if cfg.Hooks.BeforeRequest != nil {
		return cfg.Hooks.BeforeRequest(cfg)
	}
	if c.hooks.BeforeRequest != nil {
		return c.hooks.BeforeRequest(cfg)
	}

	cfg.SetHeader(HeaderTenantID, c.tenantID)

	// The whitelist only strips the token when enforcement is switched on.
	if isWhitelisted(cfg.URL) && c.enforceWhitelist {
		cfg.DelHeader(HeaderAuthorization)
		cl.sentToken = ""
	}

	if cfg.isMethod(http.MethodPost) {
		if ct, _ := cfg.Header(HeaderContentType); ct == ContentTypeForm {
			body, err := formBody(cfg.Data)
			if err != nil {
				return fmt.Errorf("encode form body: %w", err)
			}
			cfg.Data = body
		}
	}

	if cfg.isMethod(http.MethodGet) && len(cfg.Params) > 0 {
		u, err := appendQuery(cfg.URL, cfg.Params)
		if err != nil {
			return fmt.Errorf("encode query: %w", err)
		}
		cfg.URL = u
		cfg.Params = Params{}
	}
	return nil
}

// applyConfig copies the intercepted config onto the resty request.
func applyConfig(r *resty.Request, cfg *RequestConfig) error {
	r.Method = cfg.Method
	r.URL = cfg.URL
	for k, v := range cfg.Headers {
		r.SetHeader(k, v)
	}
	if len(cfg.Params) > 0 {
		values, err := Stringify(cfg.Params)
		if err != nil {
			return fmt.Errorf("encode params: %w", err)
		}
		r.SetQueryParamsFromValues(values)
	}
	if cfg.Data != nil {
		r.SetBody(cfg.Data)
	}
	return nil
}

// onBeforeRequest is registered with resty.Client.OnBeforeRequest.
func (c *Client) onBeforeRequest(_ *resty.Client, r *resty.Request) error {
	cl, ok := callFrom(r.Context())
	if !ok {
		return nil
	}
	if err := c.interceptRequest(cl); err != nil {
		return err
	}
	return applyConfig(r, cl.cfg)
}

// onAfterResponse is registered with resty.Client.OnAfterResponse.
func (c *Client) onAfterResponse(_ *resty.Client, resp *resty.Response) error {
	cl, ok := callFrom(resp.Request.Context())
	if !ok {
		return nil
	}
	if !resp.IsSuccess() {
		return &Error{
			Method:     cl.cfg.Method,
			URL:        cl.cfg.URL,
			StatusCode: resp.StatusCode(),
			Message:    bodyMessage(resp.Header().Get(HeaderContentType), resp.Body()),
		}
	}

	c.settle(cl)
	cl.response = &Response{
		StatusCode: resp.StatusCode(),
		Header:     resp.Header(),
		Body:       resp.Body(),
		Config:     cl.cfg,
	}

	if cl.cfg.Hooks.BeforeResponse != nil {
		return cl.cfg.Hooks.BeforeResponse(cl.response)
	}
	if c.hooks.BeforeResponse != nil {
		return c.hooks.BeforeResponse(cl.response)
	}
	return nil
}

// onError is registered with resty.Client.OnError and runs for every failure.
func (c *Client) onError(r *resty.Request, err error) {
	cl, ok := callFrom(r.Context())
	if !ok {
		return
	}
	c.settle(cl)
	c.log.DebugObj("request failed", "http_error", map[string]any{
		"method": cl.cfg.Method,
		"url":    cl.cfg.URL,
		"error":  err.Error(),
	})
}

func (c *Client) settle(cl *call) {
	cl.settled.Do(c.progress.Done)
}

func (c *Client) accessToken() string {
	tok, err := c.tokens.Token()
	if err != nil {
		c.log.WarnObj("token store read failed", "error", err.Error())
		return ""
	}
	if tok == nil {
		return ""
	}
	return tok.AccessToken
}
