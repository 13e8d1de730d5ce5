package config

import (
	"errors"
	"fmt"
)

// Validate checks the structural settings. Credentials are not checked.
func (c *Config) Validate() error {
	var errs []error

	if c.Worker.ListenAddr == "" {
		errs = append(errs, fmt.Errorf("worker.listen is required"))
	}
	if len(c.Worker.ModelNames) == 0 {
		errs = append(errs, fmt.Errorf("worker.model_names must not be empty"))
	}
	if c.Worker.ContextLength <= 0 {
		errs = append(errs, fmt.Errorf("worker.context_length must be > 0, got %d", c.Worker.ContextLength))
	}
	if c.Worker.ConcurrencyLimit <= 0 {
		errs = append(errs, fmt.Errorf("worker.concurrency_limit must be > 0, got %d", c.Worker.ConcurrencyLimit))
	}
	if c.MiniMax.BaseURL == "" {
		errs = append(errs, fmt.Errorf("minimax.base_url is required"))
	}
	if c.MiniMax.TokensToGenerate <= 0 {
		errs = append(errs, fmt.Errorf("minimax.tokens_to_generate must be > 0, got %d", c.MiniMax.TokensToGenerate))
	}
	if c.Metrics.Enabled && c.Metrics.Path == "" {
		errs = append(errs, fmt.Errorf("metrics.path is required when metrics are enabled"))
	}

	return errors.Join(errs...)
}
