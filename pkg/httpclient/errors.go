package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ErrNoRefreshToken is returned when a refresh is needed but no refresh token is stored.
var ErrNoRefreshToken = errors.New("no refresh token available")

const maxErrorSnippet = 512

// Error is the tagged failure every dispatch rejects with.
type Error struct {
	Method     string
	URL        string
	StatusCode int
	// Cancelled is true when the caller cancelled the request context.
	Cancelled bool
	Message   string
	Err       error
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s", e.Method, e.URL)
	if e.Cancelled {
		b.WriteString(": request cancelled")
	}
	if e.StatusCode > 0 {
		fmt.Fprintf(&b, ": status %d", e.StatusCode)
	}
	if e.Message != "" {
		b.WriteString(": " + e.Message)
	}
	if e.Err != nil {
		b.WriteString(": " + e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// IsCancel reports whether err came from a cancelled request.
func IsCancel(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Cancelled
	}
	return errors.Is(err, context.Canceled)
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.StatusCode
	}
	return 0
}

// tagError converts any dispatch failure into a tagged *Error.
func tagError(method, url string, err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{
		Method:    method,
		URL:       url,
		Cancelled: errors.Is(err, context.Canceled),
		Err:       err,
	}
}

// bodyMessage extracts a human readable message from an error response body.
func bodyMessage(contentType string, body []byte) string {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return ""
	}

	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "json") || body[0] == '{':
		var env struct {
			Message string `json:"message"`
			Msg     string `json:"msg"`
		}
		if err := json.Unmarshal(body, &env); err == nil {
			if env.Message != "" {
				return env.Message
			}
			if env.Msg != "" {
				return env.Msg
			}
		}
	case strings.Contains(ct, "html") || body[0] == '<':
		if msg := htmlMessage(body); msg != "" {
			return msg
		}
	}
	return snippet(body)
}

// htmlMessage pulls the title or first heading out of gateway error pages.
func htmlMessage(body []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ""
	}
	for _, sel := range []string{"title", "h1"} {
		if text := strings.TrimSpace(doc.Find(sel).First().Text()); text != "" {
			return text
		}
	}
	return ""
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > maxErrorSnippet {
		return s[:maxErrorSnippet] + "..."
	}
	return s
}
