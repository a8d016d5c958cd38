package httpclient

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Envelope is the {code, message, data} wrapper every endpoint responds with.
type Envelope[T any] struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

// PageResult is the paginated data shape.
type PageResult[T any] struct {
	List  []T   `json:"list"`
	Total int64 `json:"total"`
}

// CodeError is returned by CheckEnvelopeCode for non-zero envelope codes.
type CodeError struct {
	Code    int
	Message string
}

func (e *CodeError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Code, e.Message)
}

// DecodeData unmarshals the envelope's data field into out.
func DecodeData(body []byte, out any) error {
	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	var env Envelope[json.RawMessage]
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("decode envelope: %w", err)
	}
	if len(env.Data) == 0 || bytes.Equal(env.Data, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode envelope data: %w", err)
	}
	return nil
}

// CheckEnvelopeCode is a BeforeResponse hook rejecting envelopes whose code is not 0.
func CheckEnvelopeCode(resp *Response) error {
	body := bytes.TrimSpace(resp.Body)
	if len(body) == 0 || body[0] != '{' {
		return nil
	}
	var env Envelope[json.RawMessage]
	if err := json.Unmarshal(body, &env); err != nil {
		return nil
	}
	if env.Code != 0 {
		return &CodeError{Code: env.Code, Message: env.Message}
	}
	return nil
}
