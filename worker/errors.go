package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/papercomputeco/minimax-worker/pkg/conversation"
	"github.com/papercomputeco/minimax-worker/pkg/llm"
	"github.com/papercomputeco/minimax-worker/pkg/minimax"
)

// serverErrorMsg prefixes internal failures, matching what the host shows its users.
const serverErrorMsg = "**NETWORK ERROR DUE TO HIGH TRAFFIC. PLEASE REGENERATE OR REFRESH THIS PAGE.**"

// errInvalidBody is reported when a request body is not valid JSON.
var errInvalidBody = errors.New("invalid request body")

// classify maps a generation failure to a host error code and a metrics label.
func classify(err error) (code int, kind string) {
	switch {
	case errors.Is(err, errInvalidBody):
		return llm.ErrorCodeValidation, "invalid_body"
	case errors.Is(err, conversation.ErrMalformedPrompt):
		return llm.ErrorCodeValidation, "malformed_prompt"
	case errors.Is(err, minimax.ErrConfiguration):
		return llm.ErrorCodeInternal, "configuration"
	case errors.Is(err, minimax.ErrDecode):
		return llm.ErrorCodeInternal, "decode"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return llm.ErrorCodeInternal, "canceled"
	case errors.Is(err, minimax.ErrTransport):
		return llm.ErrorCodeInternal, "transport"
	default:
		return llm.ErrorCodeInternal, "internal"
	}
}

// errorFrame renders err as the terminal frame of a failed generation.
func errorFrame(err error) llm.Frame {
	code, _ := classify(err)
	if code == llm.ErrorCodeValidation {
		return llm.Frame{ErrorCode: code, Text: err.Error()}
	}
	return llm.Frame{ErrorCode: code, Text: fmt.Sprintf("%s\n\n(%v)", serverErrorMsg, err)}
}
