// Package logger builds the zap loggers used across the worker.
package logger

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type options struct {
	out  io.Writer
	json bool
}

// Option configures NewLogger.
type Option func(*options)

// WithOutput sends log lines to w instead of stdout.
func WithOutput(w io.Writer) Option {
	return func(o *options) { o.out = w }
}

// WithJSON switches from the colored console encoder to JSON lines, for
// workers whose output is collected by a log shipper.
func WithJSON() Option {
	return func(o *options) { o.json = true }
}

// NewLogger returns a logger at info level, or debug level when debug is set.
func NewLogger(debug bool, opts ...Option) *zap.Logger {
	o := options{out: os.Stdout}
	for _, opt := range opts {
		opt(&o)
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "time"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	if o.json {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	} else {
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	}

	level := zap.InfoLevel
	if debug {
		level = zap.DebugLevel
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(o.out), level)

	return zap.New(core, zap.AddCaller())
}
