package minimax

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"iter"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/papercomputeco/minimax-worker/pkg/llm"
)

const dataPrefix = "data: "

// Frame is one emitted unit of a Stream: the accumulated text so far.
type Frame = llm.Frame

type streamState int

const (
	stateStreaming streamState = iota
	stateDone
	stateFailed
	stateClosed
)

// Stream is a lazy, single-use sequence of accumulated-text frames read from
// one open HTTP response. It is not safe for concurrent use; Close may be
// called from any goroutine.
type Stream struct {
	ctx    context.Context
	body   io.ReadCloser
	reader *bufio.Reader
	logger *zap.Logger

	mu    sync.Mutex
	state streamState

	text        strings.Builder
	frame       Frame
	frames      int
	totalTokens int
	err         error

	closeOnce sync.Once
	closeErr  error
}

func newStream(ctx context.Context, body io.ReadCloser, logger *zap.Logger) *Stream {
	return &Stream{
		ctx:    ctx,
		body:   body,
		reader: bufio.NewReader(body),
		logger: logger,
	}
}

// Next advances to the next frame. It returns false when the stream ends,
// fails or is closed; Err distinguishes a failure from a clean end. The
// connection is released as soon as Next returns false.
func (s *Stream) Next() bool {
	if s.current() != stateStreaming {
		return false
	}

	for {
		if err := s.ctx.Err(); err != nil {
			s.fail(err)
			return false
		}

		line, readErr := s.reader.ReadString('\n')
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			// A line cut off by a broken connection is never parsed.
			s.fail(s.readError(readErr))
			return false
		}

		if line != "" {
			emitted, err := s.handleLine(strings.TrimRight(line, "\r\n"))
			if err != nil {
				s.fail(err)
				return false
			}
			if emitted {
				return true
			}
		}

		if readErr != nil {
			s.finish()
			return false
		}
	}
}

// Frame returns the frame produced by the last successful call to Next.
func (s *Stream) Frame() Frame {
	return s.frame
}

// Text returns the text accumulated so far.
func (s *Stream) Text() string {
	return s.text.String()
}

// Frames returns the number of frames emitted so far.
func (s *Stream) Frames() int {
	return s.frames
}

// TotalTokens returns the token count of the summary record, or 0 if the
// stream has not produced one.
func (s *Stream) TotalTokens() int {
	return s.totalTokens
}

// Err returns the error that terminated the stream, or nil after a clean end
// or a Close by the caller.
func (s *Stream) Err() error {
	return s.err
}

// Close releases the underlying connection. It is safe to call more than once
// and from another goroutine; a pending Next returns false.
func (s *Stream) Close() error {
	s.mu.Lock()
	if s.state == stateStreaming {
		s.state = stateClosed
	}
	s.mu.Unlock()

	return s.release()
}

// All returns an iterator over the remaining frames. The stream is closed
// when the loop ends; a terminal error is yielded as the last pair.
func (s *Stream) All() iter.Seq2[Frame, error] {
	return func(yield func(Frame, error) bool) {
		defer s.Close()
		for s.Next() {
			if !yield(s.Frame(), nil) {
				return
			}
		}
		if err := s.Err(); err != nil {
			yield(Frame{}, err)
		}
	}
}

// handleLine processes one line of the event stream and reports whether it
// produced a frame.
func (s *Stream) handleLine(line string) (bool, error) {
	if !strings.HasPrefix(line, dataPrefix) {
		return false, nil
	}
	payload := line[len(dataPrefix):]

	var chunk llm.StreamChunk
	if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
		return false, &DecodeError{Line: payload, Err: err}
	}

	if chunk.BaseResp != nil && chunk.BaseResp.StatusCode != 0 {
		return false, &TransportError{
			StatusCode: chunk.BaseResp.StatusCode,
			Message:    chunk.BaseResp.StatusMsg,
		}
	}

	// The summary record repeats the whole reply; it carries no new text.
	if chunk.IsSummary() {
		s.totalTokens = chunk.TotalTokens()
		s.logger.Debug("received usage record", zap.Int("total_tokens", s.totalTokens))
		return false, nil
	}

	if len(chunk.Choices) == 0 {
		return false, nil
	}

	delta := strings.TrimSpace(chunk.Choices[0].Delta)
	if delta == "" {
		return false, nil
	}

	s.text.WriteString(delta)
	s.frame = Frame{ErrorCode: llm.ErrorCodeOK, Text: s.text.String()}
	s.frames++

	s.logger.Debug("streaming chunk",
		zap.Int("frame", s.frames),
		zap.String("delta", truncate(delta, 50)),
	)
	return true, nil
}

func (s *Stream) readError(err error) error {
	if ctxErr := s.ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return &TransportError{Message: "stream interrupted", Err: err}
}

func (s *Stream) current() streamState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Stream) finish() {
	s.mu.Lock()
	if s.state == stateStreaming {
		s.state = stateDone
	}
	s.mu.Unlock()

	s.logger.Debug("stream complete",
		zap.Int("frames", s.frames),
		zap.String("text_preview", truncate(s.text.String(), 200)),
	)
	s.release()
}

func (s *Stream) fail(err error) {
	s.mu.Lock()
	if s.state != stateStreaming {
		// Closed by the caller while a read was in flight.
		s.mu.Unlock()
		s.release()
		return
	}
	s.state = stateFailed
	s.err = err
	s.mu.Unlock()

	s.logger.Error("stream failed", zap.Int("frames", s.frames), zap.Error(err))
	s.release()
}

func (s *Stream) release() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.body.Close()
	})
	return s.closeErr
}
