// Package worker serves a MiniMax-backed model to a chat host controller.
// It speaks the host's worker protocol: generation requests carry a flattened
// prompt and the reply streams back as NUL-delimited JSON frames holding the
// full text generated so far.
package worker

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/papercomputeco/minimax-worker/pkg/conversation"
	"github.com/papercomputeco/minimax-worker/pkg/llm"
	"github.com/papercomputeco/minimax-worker/pkg/merkle"
	"github.com/papercomputeco/minimax-worker/pkg/metrics"
	"github.com/papercomputeco/minimax-worker/pkg/minimax"
)

// Streamer opens completion streams. *minimax.Client implements it.
type Streamer interface {
	Stream(ctx context.Context, prompt string, params llm.SamplingParams) (*minimax.Stream, error)
	Template() conversation.Template
	Model() string
}

var _ Streamer = (*minimax.Client)(nil)

// Worker is the host-facing HTTP server. It holds no conversation state:
// every generation request carries its full history in the prompt.
type Worker struct {
	config Config
	client Streamer
	storer merkle.Storer
	logger *zap.Logger
	server *fiber.App

	sem    *semaphore.Weighted
	queued atomic.Int64

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a new Worker.
func New(config Config, client Streamer, logger *zap.Logger) (*Worker, error) {
	var storer merkle.Storer
	var err error

	if config.Transcripts {
		if config.DBPath != "" {
			storer, err = merkle.NewSQLiteStorer(config.DBPath)
			if err != nil {
				return nil, fmt.Errorf("failed to create SQLite storer: %w", err)
			}
			logger.Info("recording transcripts to SQLite", zap.String("path", config.DBPath))
		} else {
			storer = merkle.NewMemoryStorer()
			logger.Info("recording transcripts in memory")
		}
	}

	return newWorker(config, client, storer, logger), nil
}

func newWorker(config Config, client Streamer, storer merkle.Storer, logger *zap.Logger) *Worker {
	limit := int64(config.ConcurrencyLimit)
	if limit < 1 {
		limit = 1
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		StreamRequestBody:     true,
	})

	ctx, cancel := context.WithCancel(context.Background())
	w := &Worker{
		config: config,
		client: client,
		storer: storer,
		logger: logger,
		server: app,
		sem:    semaphore.NewWeighted(limit),
		ctx:    ctx,
		cancel: cancel,
	}

	app.Use(metrics.Middleware())

	// Host worker protocol
	app.Post("/worker_generate_stream", w.handleGenerateStream)
	app.Post("/worker_generate", w.handleGenerate)
	app.Post("/worker_get_embeddings", w.handleEmbeddings)
	app.Post("/worker_get_status", w.handleStatus)
	app.Post("/count_token", w.handleCountToken)
	app.Post("/worker_get_conv_template", w.handleConvTemplate)
	app.Post("/model_details", w.handleModelDetails)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(map[string]string{"status": "ok"})
	})

	if config.MetricsPath != "" {
		app.Get(config.MetricsPath, adaptor.HTTPHandler(promhttp.Handler()))
	}

	if storer != nil {
		app.Get("/dag/stats", w.handleDAGStats)
		app.Get("/dag/node/:hash", w.handleGetNode)
		app.Get("/dag/history", w.handleListHistories)
		app.Get("/dag/history/:hash", w.handleGetHistory)
	}

	return w
}

// Run starts the worker server on the configured listening address.
func (w *Worker) Run() error {
	w.logger.Info("starting worker server",
		zap.String("listen", w.config.ListenAddr),
		zap.Strings("model_names", w.config.ModelNames),
		zap.String("model", w.client.Model()),
		zap.Bool("transcripts", w.storer != nil),
	)

	return w.server.Listen(w.config.ListenAddr)
}

// Shutdown stops accepting connections, waits for in-flight requests until
// ctx expires, then aborts any generation still running.
func (w *Worker) Shutdown(ctx context.Context) error {
	defer w.cancel()
	return w.server.ShutdownWithContext(ctx)
}

// Close releases the transcript store.
func (w *Worker) Close() error {
	w.cancel()
	if w.storer == nil {
		return nil
	}
	return w.storer.Close()
}

// QueueLength is the number of generations running or waiting for a slot.
func (w *Worker) QueueLength() int {
	return int(w.queued.Load())
}
