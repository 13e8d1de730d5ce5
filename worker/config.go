package worker

import "github.com/papercomputeco/minimax-worker/pkg/config"

// Config is the worker server configuration.
type Config struct {
	// Address to listen on (e.g., ":21001")
	ListenAddr string

	// ModelNames are reported to the host controller by the status route.
	ModelNames []string

	// ContextLength is reported by the model_details route.
	ContextLength int

	// ConcurrencyLimit caps concurrent upstream streams. Values below 1 mean 1.
	ConcurrencyLimit int

	// MetricsPath serves Prometheus metrics. Empty disables the route.
	MetricsPath string

	// Transcripts enables recording completed conversations in the DAG.
	Transcripts bool

	// DBPath is the path to the SQLite database file.
	// Empty keeps transcripts in memory.
	DBPath string
}

// ConfigFrom maps the loaded configuration file onto the server settings.
func ConfigFrom(cfg *config.Config) Config {
	c := Config{
		ListenAddr:       cfg.Worker.ListenAddr,
		ModelNames:       cfg.Worker.ModelNames,
		ContextLength:    cfg.Worker.ContextLength,
		ConcurrencyLimit: cfg.Worker.ConcurrencyLimit,
		Transcripts:      cfg.Transcripts.Enabled,
		DBPath:           cfg.Transcripts.DBPath,
	}
	if cfg.Metrics.Enabled {
		c.MetricsPath = cfg.Metrics.Path
	}
	return c
}
