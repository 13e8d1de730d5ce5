package minimax

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/papercomputeco/minimax-worker/pkg/llm"
)

// Sentinel errors. Use errors.Is to classify a failure and errors.As to reach
// the typed error for details.
var (
	ErrConfiguration = errors.New("minimax: configuration error")
	ErrTransport     = errors.New("minimax: transport error")
	ErrDecode        = errors.New("minimax: decode error")
)

// ConfigurationError reports a missing or unreadable credential. It is
// returned before any request is sent.
type ConfigurationError struct {
	Field string
	Err   error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("minimax: configuration: %s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("minimax: configuration: %s is required", e.Field)
}

func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

func (e *ConfigurationError) Unwrap() error { return e.Err }

// TransportError reports a connection failure, a non-2xx status, an in-band
// vendor error or a truncated stream.
type TransportError struct {
	// StatusCode is the HTTP status, or the vendor base_resp status code for
	// in-band errors. Zero for connection-level failures.
	StatusCode int
	Message    string
	Err        error
}

func (e *TransportError) Error() string {
	var b strings.Builder
	b.WriteString("minimax: transport")
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, ": status %d", e.StatusCode)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *TransportError) Is(target error) bool { return target == ErrTransport }

func (e *TransportError) Unwrap() error { return e.Err }

// DecodeError reports a "data: " line whose payload is not valid JSON.
type DecodeError struct {
	Line string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("minimax: decode %q: %v", truncate(e.Line, 200), e.Err)
}

func (e *DecodeError) Is(target error) bool { return target == ErrDecode }

func (e *DecodeError) Unwrap() error { return e.Err }

// mapHTTPError converts a non-2xx response into a TransportError, using the
// vendor's base_resp message when the body carries one.
func mapHTTPError(resp *http.Response) *TransportError {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	msg := strings.TrimSpace(string(data))
	var body struct {
		BaseResp *llm.BaseResp `json:"base_resp"`
	}
	if err := json.Unmarshal(data, &body); err == nil && body.BaseResp != nil && body.BaseResp.StatusMsg != "" {
		msg = body.BaseResp.StatusMsg
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}

	return &TransportError{StatusCode: resp.StatusCode, Message: truncate(msg, 500)}
}

func truncate(s string, maxLen int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
