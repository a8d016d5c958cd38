package httpclient

import (
	"context"
	"time"
)

// TokenStore supplies and persists the console access token.
// Token returns nil when no token is held.
type TokenStore interface {
	Token() (*Token, error)
	SetToken(tok Token) error
	ClearToken() error
}

// TokenRefresher exchanges a refresh token for a new token pair.
type TokenRefresher interface {
	Refresh(ctx context.Context, refreshToken string) (Token, error)
}

// Progress is the visual start/done signal around every dispatch.
// Implementations must tolerate redundant calls.
type Progress interface {
	Start()
	Done()
}

// Observer receives one Record per settled dispatch. Observe runs on the
// request path and should return quickly.
type Observer interface {
	Observe(ctx context.Context, rec Record)
}

// Record describes a settled dispatch.
type Record struct {
	Method     string
	URL        string
	StatusCode int
	Cancelled  bool
	Err        error
	Duration   time.Duration
	TenantID   string
	Replayed   bool
}

// Logger defines the logging surface the client relies on.
type Logger interface {
	InfoObj(msg, key string, obj interface{})
	DebugObj(msg, key string, obj interface{})
	WarnObj(msg, key string, obj interface{})
	ErrorObj(msg, key string, obj interface{})
}

type noopLogger struct{}

func (noopLogger) InfoObj(string, string, interface{})  {}
func (noopLogger) DebugObj(string, string, interface{}) {}
func (noopLogger) WarnObj(string, string, interface{})  {}
func (noopLogger) ErrorObj(string, string, interface{}) {}

func ensureLogger(log Logger) Logger {
	if log == nil {
		return noopLogger{}
	}
	return log
}

type noopProgress struct{}

func (noopProgress) Start() {}
func (noopProgress) Done()  {}

type noopTokens struct{}

func (noopTokens) Token() (*Token, error) { return nil, nil }
func (noopTokens) SetToken(Token) error   { return nil }
func (noopTokens) ClearToken() error      { return nil }
