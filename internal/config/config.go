// Package config loads the engine's own settings (provider selection,
// batch sizing, storage location, search defaults) from a config file
// and environment variables, the way the indexing engine's upstream
// collaborator configures itself.
package config

// Config is the engine's complete runtime configuration. It can be
// loaded from .codeindex/config.yml with environment variable
// overrides.
type Config struct {
	Embedding EmbeddingConfig `yaml:"embedding" mapstructure:"embedding"`
	Storage   StorageConfig   `yaml:"storage" mapstructure:"storage"`
	Search    SearchConfig    `yaml:"search" mapstructure:"search"`
}

// EmbeddingConfig selects and tunes the embedding provider.
type EmbeddingConfig struct {
	Provider    string `yaml:"provider" mapstructure:"provider"` // "local", "remote", or "hybrid"
	Model       string `yaml:"model" mapstructure:"model"`
	Dimension   int    `yaml:"dimension" mapstructure:"dimension"`
	Endpoint    string `yaml:"endpoint" mapstructure:"endpoint"`       // remote base URL
	APIKeyEnv   string `yaml:"api_key_env" mapstructure:"api_key_env"` // env var holding the bearer token
	BatchSize   int    `yaml:"batch_size" mapstructure:"batch_size"`
	Concurrency int    `yaml:"concurrency" mapstructure:"concurrency"`
	MaxAttempts int    `yaml:"max_attempts" mapstructure:"max_attempts"`
}

// StorageConfig points at the engine's SQLite database and the vector
// schema version it writes.
type StorageConfig struct {
	DatabasePath  string `yaml:"database_path" mapstructure:"database_path"`
	SchemaVersion int    `yaml:"schema_version" mapstructure:"schema_version"`
}

// SearchConfig holds default query parameters callers may omit.
type SearchConfig struct {
	DefaultK         int     `yaml:"default_k" mapstructure:"default_k"`
	DefaultThreshold float64 `yaml:"default_threshold" mapstructure:"default_threshold"`
}

// Default returns the configuration the engine runs with absent any
// file or environment override.
func Default() *Config {
	return &Config{
		Embedding: EmbeddingConfig{
			Provider:    "local",
			Model:       "local-wordvec-v1",
			Dimension:   768,
			Endpoint:    "",
			APIKeyEnv:   "CODEINDEX_EMBEDDING_API_KEY",
			BatchSize:   50,
			Concurrency: 4,
			MaxAttempts: 5,
		},
		Storage: StorageConfig{
			DatabasePath:  "codeindex.db",
			SchemaVersion: 1,
		},
		Search: SearchConfig{
			DefaultK:         10,
			DefaultThreshold: 0.5,
		},
	}
}
