package httpclient

import "time"

// Token is an access/refresh token pair issued by the auth endpoints.
type Token struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// FormatToken renders the Authorization header value for an access token.
func FormatToken(accessToken string) string {
	return "Bearer " + accessToken
}

// Expired reports whether the access token is known to have lapsed at now.
// A zero ExpiresAt never expires on the client side.
func (t Token) Expired(now time.Time) bool {
	return !t.ExpiresAt.IsZero() && !t.ExpiresAt.After(now)
}
