// Package api holds the admin REST payload shapes and the endpoints the
// console consumes.
package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/samvad-hq/admin-console/pkg/httpclient"
)

// CommonResult is the envelope every endpoint answers with.
type CommonResult[T any] struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

// OK reports whether the backend signalled success.
func (r CommonResult[T]) OK() bool { return r.Code == 0 }

// PageResult is one page of a listing.
type PageResult[T any] = httpclient.PageResult[T]

// CommonPageResult is the envelope of paginated endpoints.
type CommonPageResult[T any] struct {
	Code    int           `json:"code"`
	Message string        `json:"message"`
	Data    PageResult[T] `json:"data"`
}

// PageParam selects a page. PageNo starts at 1.
type PageParam struct {
	PageNo   int `json:"pageNo"`
	PageSize int `json:"pageSize"`
}

// Params renders the page selection as query parameters.
func (p PageParam) Params() httpclient.Params {
	params := httpclient.Params{}
	if p.PageNo > 0 {
		params["pageNo"] = p.PageNo
	}
	if p.PageSize > 0 {
		params["pageSize"] = p.PageSize
	}
	return params
}

// BaseVO carries the audit columns shared by persisted records.
type BaseVO struct {
	ID         string    `json:"id,omitempty"`
	CreateTime Timestamp `json:"createTime,omitzero"`
	UpdateTime Timestamp `json:"updateTime,omitzero"`
	Creator    string    `json:"creator,omitempty"`
	Updator    string    `json:"updator,omitempty"`
}

// Timestamp decodes the backend's epoch-millisecond dates. Date strings are
// accepted too.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}
	if data[0] != '"' {
		return t.setMillis(string(data))
	}

	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode timestamp: %w", err)
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		t.Time = time.Time{}
		return nil
	}
	if _, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return t.setMillis(raw)
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.ParseInLocation(layout, raw, time.Local); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("decode timestamp: unsupported value %q", raw)
}

func (t *Timestamp) setMillis(raw string) error {
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("decode timestamp: %w", err)
	}
	t.Time = time.UnixMilli(ms)
	return nil
}

// MarshalJSON writes epoch milliseconds, or null for the zero time.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatInt(t.UnixMilli(), 10)), nil
}

// MillisOf wraps a time for payloads.
func MillisOf(at time.Time) Timestamp {
	return Timestamp{Time: at}
}
