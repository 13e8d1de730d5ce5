package conversation

import (
	"errors"
	"fmt"
)

// ErrMalformedPrompt is returned when a prompt segment matches no role prefix.
var ErrMalformedPrompt = errors.New("conversation: malformed prompt")

// MalformedPromptError carries the segment that could not be attributed to a role.
// Use errors.Is(err, ErrMalformedPrompt) to test for it.
type MalformedPromptError struct {
	Segment string
}

func (e *MalformedPromptError) Error() string {
	return fmt.Sprintf("conversation: unknown role in segment %q", e.Segment)
}

func (e *MalformedPromptError) Unwrap() error { return ErrMalformedPrompt }
