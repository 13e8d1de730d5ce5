package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Load loads configuration from defaults, the optional file at path, the
// environment and file references, then validates it.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	// A missing .env is the normal case.
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	if err := resolveFileReferences(&cfg); err != nil {
		return nil, fmt.Errorf("resolving file references: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return &cfg, nil
}

// loadFile parses a TOML or YAML file into cfg. Fields absent from the file
// keep their current values.
func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, cfg)
	default:
		_, err := toml.Decode(string(data), cfg)
		return err
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("MINIMAX_GROUP_ID"); v != "" {
		cfg.MiniMax.GroupID = v
	}
	if v := os.Getenv("MINIMAX_API_KEY"); v != "" {
		cfg.MiniMax.APIKey = v
	}
	if v := os.Getenv("MINIMAX_IS_PRO"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.MiniMax.IsPro = b
		}
	}
	if v := os.Getenv("MINIMAX_BASE_URL"); v != "" {
		cfg.MiniMax.BaseURL = v
	}
	if v := os.Getenv("MINIMAX_WORKER_LISTEN"); v != "" {
		cfg.Worker.ListenAddr = v
	}
}

func resolveFileReferences(cfg *Config) error {
	if cfg.MiniMax.APIKeyFile != "" && cfg.MiniMax.APIKey == "" {
		val, err := readSecretFile(cfg.MiniMax.APIKeyFile)
		if err != nil {
			return fmt.Errorf("minimax.api_key_file: %w", err)
		}
		cfg.MiniMax.APIKey = val
	}
	return nil
}

func readSecretFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
