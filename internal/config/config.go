// Package config loads the application configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	// FileName is the config file looked up in the working directory
	FileName = "exammaster.yaml"

	EmbedderOpenAI  = "openai"
	EmbedderHashing = "hashing"
)

// PathsConfig holds on-disk locations. Empty fields are derived from DataDir.
type PathsConfig struct {
	DataDir      string `yaml:"data_dir"`
	DBPath       string `yaml:"db_path"`
	VectorDBPath string `yaml:"vector_db_path"`
	ArtifactsDir string `yaml:"artifacts_dir"`
	BackupsDir   string `yaml:"backups_dir"`
}

// OpenAIConfig configures the OpenAI-compatible embeddings endpoint.
type OpenAIConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
	BatchSize   int    `yaml:"batch_size"`
	MaxRetries  int    `yaml:"max_retries"`
}

// EmbedderConfig selects the embedding provider.
type EmbedderConfig struct {
	Type     string       `yaml:"type"`
	OpenAI   OpenAIConfig `yaml:"openai"`
	HashSize int          `yaml:"hash_dimension"`
}

// IndexConfig configures chunking and retrieval.
type IndexConfig struct {
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
	Concurrency  int `yaml:"concurrency"`
	DefaultTopK  int `yaml:"default_top_k"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Mode  string `yaml:"mode"`
	Level string `yaml:"level"`
}

// MaintenanceConfig configures scheduled housekeeping.
type MaintenanceConfig struct {
	BackupRetention int    `yaml:"backup_retention"`
	Schedule        string `yaml:"schedule"`
}

// AppConfig is the root configuration structure.
type AppConfig struct {
	Paths       PathsConfig       `yaml:"paths"`
	Embedder    EmbedderConfig    `yaml:"embedder"`
	Index       IndexConfig       `yaml:"index"`
	Log         LogConfig         `yaml:"log"`
	Maintenance MaintenanceConfig `yaml:"maintenance"`
}

// APIKey returns the embedding API key from the configured environment
// variable.
func (c *AppConfig) APIKey() string {
	return os.Getenv(c.Embedder.OpenAI.APIKeyEnv)
}

// Load reads a config from path. A missing file yields the defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &cfg, nil
}

// LoadDefault tries ./exammaster.yaml, then ~/.config/exammaster/config.yaml,
// and falls back to defaults. The returned path is empty when no file was
// found.
func LoadDefault() (*AppConfig, string, error) {
	if _, err := os.Stat(FileName); err == nil {
		cfg, err := Load(FileName)
		return cfg, FileName, err
	}
	userPath, err := UserConfigPath()
	if err != nil {
		return Default(), "", nil
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	return Default(), "", nil
}

// Save writes the config to path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// UserConfigPath returns ~/.config/exammaster/config.yaml
func UserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "exammaster", "config.yaml"), nil
}

// Default returns the built-in configuration.
func Default() *AppConfig {
	cfg := &AppConfig{}
	applyDefaults(cfg)
	return cfg
}

// Validate checks values that defaults cannot repair.
func (c *AppConfig) Validate() error {
	switch c.Embedder.Type {
	case EmbedderOpenAI, EmbedderHashing:
	default:
		return fmt.Errorf("unknown embedder type %q", c.Embedder.Type)
	}
	if c.Index.ChunkOverlap < 0 || c.Index.ChunkOverlap >= c.Index.ChunkSize {
		return fmt.Errorf("chunk_overlap must be in [0, chunk_size), got %d", c.Index.ChunkOverlap)
	}
	if c.Maintenance.BackupRetention < 0 {
		return fmt.Errorf("backup_retention must not be negative")
	}
	return nil
}

func applyDefaults(cfg *AppConfig) {
	p := &cfg.Paths
	if p.DataDir == "" {
		p.DataDir = "data"
	}
	if p.DBPath == "" {
		p.DBPath = filepath.Join(p.DataDir, "app.db")
	}
	if p.VectorDBPath == "" {
		p.VectorDBPath = filepath.Join(p.DataDir, "vectors.db")
	}
	if p.ArtifactsDir == "" {
		p.ArtifactsDir = filepath.Join(p.DataDir, "courses")
	}
	if p.BackupsDir == "" {
		p.BackupsDir = filepath.Join(p.DataDir, "backups")
	}

	e := &cfg.Embedder
	if e.Type == "" {
		e.Type = EmbedderOpenAI
	}
	if e.OpenAI.BaseURL == "" {
		e.OpenAI.BaseURL = "https://api.openai.com/v1"
	}
	if e.OpenAI.APIKeyEnv == "" {
		e.OpenAI.APIKeyEnv = "OPENAI_API_KEY"
	}
	if e.OpenAI.Model == "" {
		e.OpenAI.Model = "text-embedding-3-small"
	}
	if e.OpenAI.TimeoutSecs == 0 {
		e.OpenAI.TimeoutSecs = 60
	}
	if e.OpenAI.BatchSize == 0 {
		e.OpenAI.BatchSize = 64
	}
	if e.OpenAI.MaxRetries == 0 {
		e.OpenAI.MaxRetries = 3
	}
	if e.HashSize == 0 {
		e.HashSize = 256
	}

	ix := &cfg.Index
	if ix.ChunkSize == 0 {
		ix.ChunkSize = 1000
	}
	if ix.ChunkOverlap == 0 {
		ix.ChunkOverlap = 150
	}
	if ix.Concurrency == 0 {
		ix.Concurrency = 1
	}
	if ix.DefaultTopK == 0 {
		ix.DefaultTopK = 8
	}

	if cfg.Log.Mode == "" {
		cfg.Log.Mode = "dev"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}

	if cfg.Maintenance.BackupRetention == 0 {
		cfg.Maintenance.BackupRetention = 10
	}
	if cfg.Maintenance.Schedule == "" {
		cfg.Maintenance.Schedule = "@daily"
	}
}
