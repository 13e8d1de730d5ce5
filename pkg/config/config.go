// Package config provides configuration for the MiniMax worker.
//
// Configuration is loaded in layers:
//  1. Built-in defaults
//  2. Config file (TOML, or YAML when the extension is .yaml/.yml)
//  3. .env file next to the working directory, if present
//  4. MINIMAX_* environment variable overrides
//  5. File reference resolution (api_key_file)
//  6. Structural validation
//
// Credentials (group id, api key) are deliberately not validated here: a
// missing credential is reported when a completion is attempted.
package config

// Config holds all configuration for the worker.
type Config struct {
	Worker      WorkerConfig      `toml:"worker" yaml:"worker"`
	MiniMax     MiniMaxConfig     `toml:"minimax" yaml:"minimax"`
	Transcripts TranscriptsConfig `toml:"transcripts" yaml:"transcripts"`
	Metrics     MetricsConfig     `toml:"metrics" yaml:"metrics"`
	Log         LogConfig         `toml:"log" yaml:"log"`
}

// WorkerConfig holds the host-facing HTTP server settings.
type WorkerConfig struct {
	ListenAddr       string   `toml:"listen" yaml:"listen"`                       // default: ":21001"
	ModelNames       []string `toml:"model_names" yaml:"model_names"`             // default: ["minimax-api"]
	ContextLength    int      `toml:"context_length" yaml:"context_length"`       // default: 16384
	ConcurrencyLimit int      `toml:"concurrency_limit" yaml:"concurrency_limit"` // default: 5
}

// MiniMaxConfig holds the vendor endpoint settings.
type MiniMaxConfig struct {
	GroupID          string `toml:"group_id" yaml:"group_id"`
	APIKey           string `toml:"api_key" yaml:"api_key"`
	APIKeyFile       string `toml:"api_key_file" yaml:"api_key_file"`
	IsPro            bool   `toml:"is_pro" yaml:"is_pro"`
	BaseURL          string `toml:"base_url" yaml:"base_url"`                     // default: "https://api.minimax.chat"
	Model            string `toml:"model" yaml:"model"`                           // default: "abab5.5-chat"
	TokensToGenerate int    `toml:"tokens_to_generate" yaml:"tokens_to_generate"` // default: 1024
}

// TranscriptsConfig controls recording of completed conversations.
type TranscriptsConfig struct {
	Enabled bool `toml:"enabled" yaml:"enabled"`

	// DBPath is the path to the SQLite database file.
	// Empty keeps transcripts in memory.
	DBPath string `toml:"db_path" yaml:"db_path"`
}

// MetricsConfig holds Prometheus endpoint settings.
type MetricsConfig struct {
	Enabled bool   `toml:"enabled" yaml:"enabled"` // default: true
	Path    string `toml:"path" yaml:"path"`       // default: "/metrics"
}

// LogConfig holds logger settings.
type LogConfig struct {
	Debug bool `toml:"debug" yaml:"debug"`
	JSON  bool `toml:"json" yaml:"json"` // JSON lines instead of the console encoder
}

// Defaults returns a Config with all default values filled in.
func Defaults() Config {
	return Config{
		Worker: WorkerConfig{
			ListenAddr:       ":21001",
			ModelNames:       []string{"minimax-api"},
			ContextLength:    16384,
			ConcurrencyLimit: 5,
		},
		MiniMax: MiniMaxConfig{
			BaseURL:          "https://api.minimax.chat",
			Model:            "abab5.5-chat",
			TokensToGenerate: 1024,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// Credentials returns the credential subset of the configuration.
func (c *Config) Credentials() Credentials {
	return Credentials{
		GroupID: c.MiniMax.GroupID,
		APIKey:  c.MiniMax.APIKey,
		IsPro:   c.MiniMax.IsPro,
	}
}
