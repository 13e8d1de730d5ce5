package servecmder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/papercomputeco/minimax-worker/pkg/config"
	"github.com/papercomputeco/minimax-worker/pkg/logger"
	"github.com/papercomputeco/minimax-worker/pkg/minimax"
	"github.com/papercomputeco/minimax-worker/worker"
)

const serveLongDesc string = `Run the worker HTTP server.

Configuration is read from the optional --config file (TOML, or YAML
for .yaml/.yml), a .env file in the working directory and MINIMAX_*
environment variables, in increasing precedence. When a config file is
given, credentials are reloaded whenever it changes.

Examples:
  minimax-worker serve
  minimax-worker serve --config worker.toml --listen :21002 --debug`

const serveShortDesc string = "Run the worker server"

// shutdownTimeout bounds how long in-flight generations may run after a signal.
const shutdownTimeout = 30 * time.Second

type serveCommander struct {
	configPath string
	listenAddr string
	debug      bool
}

func NewServeCmd() *cobra.Command {
	cmder := &serveCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd.Context())
		},
	}

	cmd.Flags().StringVarP(&cmder.configPath, "config", "c", "", "Path to config file")
	cmd.Flags().StringVarP(&cmder.listenAddr, "listen", "l", "", "Address to listen on (overrides config)")
	cmd.Flags().BoolVarP(&cmder.debug, "debug", "d", false, "Enable debug logging")

	return cmd
}

func (c *serveCommander) run(ctx context.Context) error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return fmt.Errorf("could not load config: %w", err)
	}
	if c.listenAddr != "" {
		cfg.Worker.ListenAddr = c.listenAddr
	}

	log := newLogger(cfg, c.debug)
	defer log.Sync()

	var source config.Source = config.Static(cfg.Credentials())
	var fileSource *config.FileSource
	if c.configPath != "" {
		fileSource, err = config.NewFileSource(c.configPath, log)
		if err != nil {
			return fmt.Errorf("could not watch config: %w", err)
		}
		source = fileSource
	}

	client := minimax.NewClientFromConfig(cfg, source, log)
	defer client.Close()

	w, err := worker.New(worker.ConfigFrom(cfg), client, log)
	if err != nil {
		return fmt.Errorf("could not create worker: %w", err)
	}
	defer w.Close()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(w.Run)

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down worker server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return w.Shutdown(shutdownCtx)
	})

	if fileSource != nil {
		g.Go(func() error {
			return fileSource.Watch(gctx)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("worker server failed: %w", err)
	}
	return nil
}

func newLogger(cfg *config.Config, debug bool) *zap.Logger {
	var opts []logger.Option
	if cfg.Log.JSON {
		opts = append(opts, logger.WithJSON())
	}
	return logger.NewLogger(debug || cfg.Log.Debug, opts...)
}
