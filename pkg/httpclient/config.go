package httpclient

import (
	"net/http"
	"strings"
	"time"
)

const (
	HeaderAuthorization = "Authorization"
	HeaderTenantID      = "Tenant-Id"
	HeaderContentType   = "Content-Type"

	// headerIsToken is a pseudo-header: "false" opts a request out of token injection.
	headerIsToken = "isToken"

	ContentTypeJSON = "application/json"
	ContentTypeForm = "application/x-www-form-urlencoded"

	DefaultTimeout  = 10 * time.Second
	DefaultTenantID = "1"
)

// DefaultHeaders are sent with every request unless overridden.
func DefaultHeaders() map[string]string {
	return map[string]string{
		"Accept":           "application/json, text/plain, */*",
		HeaderContentType:  ContentTypeJSON,
		"X-Requested-With": "XMLHttpRequest",
	}
}

// whiteList holds path fragments that never need a token.
var whiteList = []string{"/auth/refresh-token", "/auth/login"}

// Params are query parameters: scalars, one-level objects or slices.
type Params map[string]any

// Hooks override the default interceptor behaviour. A per-call hook wins over
// the client-wide hook; a BeforeRequest hook skips tenant, whitelist and
// encoding steps entirely.
type Hooks struct {
	BeforeRequest  func(cfg *RequestConfig) error
	BeforeResponse func(resp *Response) error
}

// RequestConfig is the mutable per-call request description. The facade clones
// it before dispatch so callers may reuse their value.
type RequestConfig struct {
	Method    string
	URL       string
	Headers   map[string]string
	Params    Params
	Data      any
	SkipToken bool
	Hooks     Hooks
}

// Clone returns a copy that shares no maps with the receiver.
func (c *RequestConfig) Clone() *RequestConfig {
	if c == nil {
		return &RequestConfig{}
	}
	out := *c
	if c.Headers != nil {
		out.Headers = make(map[string]string, len(c.Headers))
		for k, v := range c.Headers {
			out.Headers[k] = v
		}
	}
	if c.Params != nil {
		out.Params = make(Params, len(c.Params))
		for k, v := range c.Params {
			out.Params[k] = v
		}
	}
	return &out
}

// Header returns a header value matched case-insensitively.
func (c *RequestConfig) Header(key string) (string, bool) {
	if v, ok := c.Headers[key]; ok {
		return v, true
	}
	for k, v := range c.Headers {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return "", false
}

// SetHeader replaces any existing spelling of key.
func (c *RequestConfig) SetHeader(key, value string) {
	c.DelHeader(key)
	if c.Headers == nil {
		c.Headers = make(map[string]string)
	}
	c.Headers[key] = value
}

// DelHeader removes every spelling of key.
func (c *RequestConfig) DelHeader(key string) {
	for k := range c.Headers {
		if strings.EqualFold(k, key) {
			delete(c.Headers, k)
		}
	}
}

// tokenOptOut reports whether the call opted out of token injection and
// strips the pseudo-header so it never reaches the wire.
func (c *RequestConfig) tokenOptOut() bool {
	skip := c.skipsToken()
	c.DelHeader(headerIsToken)
	return skip
}

func (c *RequestConfig) skipsToken() bool {
	v, ok := c.Header(headerIsToken)
	return c.SkipToken || (ok && strings.EqualFold(strings.TrimSpace(v), "false"))
}

func (c *RequestConfig) isMethod(method string) bool {
	return strings.EqualFold(c.Method, method)
}

// mergeConfig builds the dispatch config: defaults first, then the caller's values.
func mergeConfig(method, url string, defaults map[string]string, cfg *RequestConfig) *RequestConfig {
	out := cfg.Clone()
	out.Method = strings.ToUpper(method)
	out.URL = url

	headers := make(map[string]string, len(defaults)+len(out.Headers))
	for k, v := range defaults {
		headers[http.CanonicalHeaderKey(k)] = v
	}
	merged := &RequestConfig{Headers: headers}
	for k, v := range out.Headers {
		merged.SetHeader(k, v)
	}
	out.Headers = merged.Headers
	return out
}

func isWhitelisted(url string) bool {
	for _, v := range whiteList {
		if strings.Contains(url, v) {
			return true
		}
	}
	return false
}
