package config

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidProvider    = errors.New("invalid embedding provider")
	ErrInvalidDimension   = errors.New("invalid embedding dimension")
	ErrInvalidBatchSize   = errors.New("invalid embedding batch size")
	ErrInvalidConcurrency = errors.New("invalid embedding concurrency")
	ErrInvalidMaxAttempts = errors.New("invalid embedding max attempts")
	ErrEmptyEndpoint      = errors.New("empty embedding endpoint")
	ErrEmptyDatabasePath  = errors.New("empty storage database path")
	ErrInvalidK           = errors.New("invalid search default k")
	ErrInvalidThreshold   = errors.New("invalid search default threshold")
)

// Validate checks that cfg is complete and internally consistent.
func Validate(cfg *Config) error {
	var errs []error
	errs = append(errs, validateEmbedding(&cfg.Embedding)...)
	errs = append(errs, validateStorage(&cfg.Storage)...)
	errs = append(errs, validateSearch(&cfg.Search)...)
	return joinErrors(errs)
}

func validateEmbedding(cfg *EmbeddingConfig) []error {
	var errs []error

	provider := strings.ToLower(cfg.Provider)
	if provider != "local" && provider != "remote" && provider != "hybrid" {
		errs = append(errs, fmt.Errorf("%w: must be 'local', 'remote', or 'hybrid', got %q", ErrInvalidProvider, cfg.Provider))
	}
	if cfg.Dimension <= 0 {
		errs = append(errs, fmt.Errorf("%w: must be positive, got %d", ErrInvalidDimension, cfg.Dimension))
	}
	if cfg.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("%w: must be positive, got %d", ErrInvalidBatchSize, cfg.BatchSize))
	}
	if cfg.Concurrency <= 0 {
		errs = append(errs, fmt.Errorf("%w: must be positive, got %d", ErrInvalidConcurrency, cfg.Concurrency))
	}
	if cfg.MaxAttempts <= 0 {
		errs = append(errs, fmt.Errorf("%w: must be positive, got %d", ErrInvalidMaxAttempts, cfg.MaxAttempts))
	}
	if (provider == "remote" || provider == "hybrid") && strings.TrimSpace(cfg.Endpoint) == "" {
		errs = append(errs, fmt.Errorf("%w: required for provider %q", ErrEmptyEndpoint, provider))
	}
	return errs
}

func validateStorage(cfg *StorageConfig) []error {
	var errs []error
	if strings.TrimSpace(cfg.DatabasePath) == "" {
		errs = append(errs, ErrEmptyDatabasePath)
	}
	return errs
}

func validateSearch(cfg *SearchConfig) []error {
	var errs []error
	if cfg.DefaultK <= 0 {
		errs = append(errs, fmt.Errorf("%w: must be positive, got %d", ErrInvalidK, cfg.DefaultK))
	}
	if cfg.DefaultThreshold < 0 || cfg.DefaultThreshold > 1 {
		errs = append(errs, fmt.Errorf("%w: must be within [0,1], got %f", ErrInvalidThreshold, cfg.DefaultThreshold))
	}
	return errs
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	msgs := make([]string, len(errs))
	for i, err := range errs {
		msgs[i] = err.Error()
	}
	return fmt.Errorf("validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}
