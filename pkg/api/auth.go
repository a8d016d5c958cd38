package api

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/samvad-hq/admin-console/pkg/httpclient"
)

const (
	authLoginPath        = "/system/auth/login"
	authRefreshTokenPath = "/system/auth/refresh-token"
	authLogoutPath       = "/system/auth/logout"
)

// ErrEmptyToken is returned when the backend answers without an access token.
var ErrEmptyToken = errors.New("empty access token in response")

// LoginRequest is the password login payload.
type LoginRequest struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	TenantName string `json:"tenantName,omitempty"`
}

// AuthTokenVO is what login and refresh-token answer with.
type AuthTokenVO struct {
	UserID       int64     `json:"userId"`
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	ExpiresTime  Timestamp `json:"expiresTime"`
}

// Token converts the payload for the token store.
func (v AuthTokenVO) Token() httpclient.Token {
	return httpclient.Token{
		AccessToken:  v.AccessToken,
		RefreshToken: v.RefreshToken,
		ExpiresAt:    v.ExpiresTime.Time,
	}
}

// AuthService wraps the /system/auth endpoints. It also serves as the
// client's TokenRefresher.
type AuthService struct {
	client *httpclient.Client
	tokens httpclient.TokenStore
}

// NewAuthService binds the auth endpoints to client, persisting logins in tokens.
func NewAuthService(client *httpclient.Client, tokens httpclient.TokenStore) *AuthService {
	return &AuthService{client: client, tokens: tokens}
}

// Login exchanges credentials for a token pair and stores it.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (httpclient.Token, error) {
	var out AuthTokenVO
	cfg := &httpclient.RequestConfig{Data: req, SkipToken: true}
	if err := s.client.Post(ctx, authLoginPath, cfg, &out); err != nil {
		return httpclient.Token{}, fmt.Errorf("login %q: %w", req.Username, err)
	}
	if out.AccessToken == "" {
		return httpclient.Token{}, fmt.Errorf("login %q: %w", req.Username, ErrEmptyToken)
	}

	tok := out.Token()
	if s.tokens != nil {
		if err := s.tokens.SetToken(tok); err != nil {
			return tok, fmt.Errorf("store token: %w", err)
		}
	}
	return tok, nil
}

// Refresh implements httpclient.TokenRefresher. Storing the result is left
// to the caller.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (httpclient.Token, error) {
	var out AuthTokenVO
	cfg := &httpclient.RequestConfig{
		Params:    httpclient.Params{"refreshToken": refreshToken},
		SkipToken: true,
	}
	if err := s.client.Post(ctx, authRefreshTokenPath, cfg, &out); err != nil {
		return httpclient.Token{}, fmt.Errorf("refresh token: %w", err)
	}
	if out.AccessToken == "" {
		return httpclient.Token{}, fmt.Errorf("refresh token: %w", ErrEmptyToken)
	}
	tok := out.Token()
	if tok.RefreshToken == "" {
		tok.RefreshToken = refreshToken
	}
	return tok, nil
}

// Logout revokes the current token server-side and always clears it locally.
func (s *AuthService) Logout(ctx context.Context) error {
	err := s.client.Post(ctx, authLogoutPath, nil, nil)
	if s.tokens != nil {
		if clearErr := s.tokens.ClearToken(); clearErr != nil {
			err = errors.Join(err, fmt.Errorf("clear token: %w", clearErr))
		}
	}
	if err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

// ExpiresIn reports the remaining lifetime of tok, or 0 when unknown or past.
func ExpiresIn(tok httpclient.Token, now time.Time) time.Duration {
	if tok.ExpiresAt.IsZero() || !tok.ExpiresAt.After(now) {
		return 0
	}
	return tok.ExpiresAt.Sub(now)
}
