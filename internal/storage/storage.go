// Package storage persists the console's access/refresh token pair.
package storage

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/samvad-hq/admin-console/pkg/httpclient"
)

// Store holds at most one token pair. It satisfies httpclient.TokenStore.
// A pair is kept until its refresh token expires, so an expired access
// token can still be exchanged.
type Store interface {
	Close() error
	Token() (*httpclient.Token, error)
	SetToken(tok httpclient.Token) error
	ClearToken() error
}

// Options controls retention characteristics for concrete store implementations.
type Options struct {
	// TTL applies when neither the token nor its JWT carries an expiry.
	TTL time.Duration
	// RefreshTTL bounds an opaque refresh token.
	RefreshTTL      time.Duration
	CleanupInterval time.Duration
	// Profile keys the token inside a shared bbolt file.
	Profile string
}

const (
	defaultTTL             = 30 * time.Minute
	defaultRefreshTTL      = 30 * 24 * time.Hour
	defaultCleanupInterval = time.Hour
	defaultProfile         = "default"
)

// NewStore creates the configured storage backend.
func NewStore(typ, path string, opts Options) (Store, error) {
	typ = strings.TrimSpace(strings.ToLower(typ))
	opts = normalizeOptions(opts)

	switch typ {
	case "", "none", "disabled":
		return noopStore{}, nil
	case "memory", "mem":
		return newMemoryStore(opts), nil
	case "bbolt":
		if strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("bbolt storage requires a path")
		}
		return openBolt(path, opts)
	default:
		return nil, fmt.Errorf("unsupported storage type %q", typ)
	}
}

func normalizeOptions(opts Options) Options {
	if opts.TTL <= 0 {
		opts.TTL = defaultTTL
	}
	if opts.RefreshTTL <= 0 {
		opts.RefreshTTL = defaultRefreshTTL
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = defaultCleanupInterval
	}
	opts.Profile = strings.TrimSpace(opts.Profile)
	if opts.Profile == "" {
		opts.Profile = defaultProfile
	}
	return opts
}

// expiryOf picks the token expiry: explicit ExpiresAt, then the access
// token's JWT exp claim, then now+ttl.
func expiryOf(tok httpclient.Token, now time.Time, ttl time.Duration) time.Time {
	if !tok.ExpiresAt.IsZero() {
		return tok.ExpiresAt
	}
	if exp, ok := jwtExpiry(tok.AccessToken); ok {
		return exp
	}
	return now.Add(ttl)
}

// withExpiry fills in ExpiresAt so callers can tell when the access token lapses.
func withExpiry(tok httpclient.Token, now time.Time, ttl time.Duration) httpclient.Token {
	tok.ExpiresAt = expiryOf(tok, now, ttl)
	return tok
}

// retentionOf is how long the pair is worth keeping: until the refresh token
// expires, or until the access token does when there is no refresh token.
func retentionOf(tok httpclient.Token, now time.Time, refreshTTL time.Duration) time.Time {
	if tok.RefreshToken == "" {
		return tok.ExpiresAt
	}
	until, ok := jwtExpiry(tok.RefreshToken)
	if !ok {
		until = now.Add(refreshTTL)
	}
	if tok.ExpiresAt.After(until) {
		return tok.ExpiresAt
	}
	return until
}

// jwtExpiry reads exp without verifying the signature; the server remains
// the authority, the store only needs a hint for eviction.
func jwtExpiry(raw string) (time.Time, bool) {
	if strings.Count(raw, ".") != 2 {
		return time.Time{}, false
	}
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

type noopStore struct{}

func (noopStore) Close() error                      { return nil }
func (noopStore) Token() (*httpclient.Token, error) { return nil, nil }
func (noopStore) SetToken(httpclient.Token) error   { return nil }
func (noopStore) ClearToken() error                 { return nil }

// memoryStore keeps the token for the lifetime of the process.
type memoryStore struct {
	mu         sync.RWMutex
	tok        *httpclient.Token
	expiry     time.Time
	ttl        time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func newMemoryStore(opts Options) *memoryStore {
	return &memoryStore{ttl: opts.TTL, refreshTTL: opts.RefreshTTL, now: time.Now}
}

func (m *memoryStore) Close() error { return nil }

func (m *memoryStore) Token() (*httpclient.Token, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.tok == nil || !m.expiry.After(m.now()) {
		return nil, nil
	}
	cp := *m.tok
	return &cp, nil
}

func (m *memoryStore) SetToken(tok httpclient.Token) error {
	if tok.AccessToken == "" {
		return fmt.Errorf("empty access token")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	tok = withExpiry(tok, now, m.ttl)
	m.tok = &tok
	m.expiry = retentionOf(tok, now, m.refreshTTL)
	return nil
}

func (m *memoryStore) ClearToken() error {
	m.mu.Lock()
	m.tok = nil
	m.expiry = time.Time{}
	m.mu.Unlock()
	return nil
}
