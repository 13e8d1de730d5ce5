package worker

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/papercomputeco/minimax-worker/pkg/llm"
	"github.com/papercomputeco/minimax-worker/pkg/metrics"
)

// frameDelimiter terminates every frame on the streaming route.
const frameDelimiter = 0x00

// handleGenerateStream streams the reply as NUL-delimited frames. Failures,
// including a bad request body, arrive as a final frame with a non-zero
// error_code so the host can render them in place of the reply.
func (w *Worker) handleGenerateStream(c *fiber.Ctx) error {
	params, err := parseParams(c.Body())
	if err != nil {
		w.logger.Error("failed to parse request", zap.Error(err))
		metrics.StreamErrorsTotal.WithLabelValues("invalid_body").Inc()
		return c.Send(encodeFrame(errorFrame(err), true))
	}

	w.logger.Debug("received generate request",
		zap.Int("prompt_length", len(params.Prompt)),
		zap.String("prompt_preview", truncate(params.Prompt, 100)),
	)

	c.Set("Content-Type", "text/plain; charset=utf-8")

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(bw *bufio.Writer) {
		ctx, cancel := context.WithCancel(w.ctx)
		defer cancel()

		w.generate(ctx, params, func(f llm.Frame) error {
			if _, err := bw.Write(encodeFrame(f, true)); err != nil {
				cancel()
				return err
			}
			if err := bw.Flush(); err != nil {
				// The host went away; stop pulling from upstream.
				cancel()
				return err
			}
			return nil
		})
	}))

	return nil
}

// handleGenerate runs a generation to completion and returns the last frame.
func (w *Worker) handleGenerate(c *fiber.Ctx) error {
	params, err := parseParams(c.Body())
	if err != nil {
		w.logger.Error("failed to parse request", zap.Error(err))
		metrics.StreamErrorsTotal.WithLabelValues("invalid_body").Inc()
		return sendFrame(c, errorFrame(err))
	}

	frame := w.generate(c.UserContext(), params, func(llm.Frame) error { return nil })
	return sendFrame(c, frame)
}

// generate pulls one upstream stream to the end, handing each frame to emit.
// It returns the last frame sent, or the error frame when the generation
// failed; the error frame is emitted as well.
func (w *Worker) generate(ctx context.Context, params llm.GenerateParams, emit func(llm.Frame) error) llm.Frame {
	w.queued.Add(1)
	defer w.queued.Add(-1)

	if err := w.sem.Acquire(ctx, 1); err != nil {
		return w.failed(err, emit)
	}
	defer w.sem.Release(1)

	metrics.StreamsActive.Inc()
	defer metrics.StreamsActive.Dec()

	startTime := time.Now()

	stream, err := w.client.Stream(ctx, params.Prompt, params.Sampling())
	if err != nil {
		return w.failed(err, emit)
	}
	defer stream.Close()

	var last llm.Frame
	for stream.Next() {
		last = stream.Frame()
		metrics.FramesTotal.Inc()

		if err := emit(last); err != nil {
			w.logger.Info("host disconnected during stream",
				zap.Int("frames", stream.Frames()),
				zap.Error(err),
			)
			return last
		}
	}

	metrics.UpstreamLatency.Observe(time.Since(startTime).Seconds())

	if err := stream.Err(); err != nil {
		return w.failed(err, emit)
	}

	metrics.TokensTotal.Add(float64(stream.TotalTokens()))

	w.logger.Debug("streaming complete",
		zap.Int("frames", stream.Frames()),
		zap.Int("total_tokens", stream.TotalTokens()),
		zap.String("reply_preview", truncate(stream.Text(), 200)),
		zap.Duration("duration", time.Since(startTime)),
	)

	if w.storer != nil {
		// The request context may already be done once the last frame is out.
		headHash, err := w.storeTranscript(context.WithoutCancel(ctx), params.Prompt, stream.Text(), stream.TotalTokens())
		if err != nil {
			w.logger.Error("failed to store transcript", zap.Error(err))
		} else {
			w.logger.Info("transcript stored", zap.String("head_hash", truncate(headHash, 16)))
		}
	}

	return last
}

// failed logs err, counts it and emits the matching error frame.
func (w *Worker) failed(err error, emit func(llm.Frame) error) llm.Frame {
	code, kind := classify(err)
	metrics.StreamErrorsTotal.WithLabelValues(kind).Inc()

	if code == llm.ErrorCodeValidation {
		w.logger.Warn("rejected generation", zap.String("kind", kind), zap.Error(err))
	} else {
		w.logger.Error("generation failed", zap.String("kind", kind), zap.Error(err))
	}

	frame := errorFrame(err)
	if emitErr := emit(frame); emitErr != nil {
		w.logger.Debug("could not deliver error frame", zap.Error(emitErr))
	}
	return frame
}

// handleEmbeddings reports that the MiniMax worker does not embed.
func (w *Worker) handleEmbeddings(c *fiber.Ctx) error {
	return sendFrame(c, llm.Frame{
		ErrorCode: llm.ErrorCodeInternal,
		Text:      "embeddings not supported",
	})
}

func (w *Worker) handleStatus(c *fiber.Ctx) error {
	return c.JSON(llm.StatusResponse{
		ModelNames:  w.config.ModelNames,
		Speed:       1,
		QueueLength: w.QueueLength(),
	})
}

// handleCountToken counts characters; the vendor has no tokenizer endpoint.
func (w *Worker) handleCountToken(c *fiber.Ctx) error {
	params, err := parseParams(c.Body())
	if err != nil {
		return c.JSON(llm.CountTokenResponse{ErrorCode: llm.ErrorCodeValidation})
	}
	return c.JSON(llm.CountTokenResponse{Count: utf8.RuneCountInString(params.Prompt)})
}

func (w *Worker) handleConvTemplate(c *fiber.Ctx) error {
	return c.JSON(map[string]any{"conv": w.client.Template()})
}

func (w *Worker) handleModelDetails(c *fiber.Ctx) error {
	return c.JSON(llm.ModelDetailsResponse{ContextLength: w.config.ContextLength})
}

func parseParams(body []byte) (llm.GenerateParams, error) {
	var params llm.GenerateParams
	if err := json.Unmarshal(body, &params); err != nil {
		return params, fmt.Errorf("%w: %v", errInvalidBody, err)
	}
	return params, nil
}

// encodeFrame renders f as JSON without HTML escaping, so non-ASCII and
// markup reach the host verbatim.
func encodeFrame(f llm.Frame, delimit bool) []byte {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(f)

	out := bytes.TrimRight(buf.Bytes(), "\n")
	if delimit {
		out = append(out, frameDelimiter)
	}
	return out
}

func sendFrame(c *fiber.Ctx, f llm.Frame) error {
	c.Set("Content-Type", fiber.MIMEApplicationJSONCharsetUTF8)
	return c.Send(encodeFrame(f, false))
}
