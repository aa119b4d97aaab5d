package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

type Config struct {
	Database     Database `json:"database" mapstructure:"database"`
	DataDir      string   `json:"data_dir" mapstructure:"data_dir"`
	DispatchFile string   `json:"dispatch_file" mapstructure:"dispatch_file"`
	LineItemFile string   `json:"line_item_file" mapstructure:"line_item_file"`
	ManifestFile string   `json:"manifest_file" mapstructure:"manifest_file"`
	ExportPath   string   `json:"export_path" mapstructure:"export_path"`
	Report       Report   `json:"report" mapstructure:"report"`
}

type Database struct {
	Provider string `json:"provider" mapstructure:"provider"`
	URLEnv   string `json:"url_env" mapstructure:"url_env"`
	Path     string `json:"path" mapstructure:"path"`
}

type Report struct {
	SampleLimit int `json:"sample_limit" mapstructure:"sample_limit"`
}

func Load() (*Config, error) {
	var cfg Config

	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Set defaults
	if cfg.Database.Provider == "" {
		cfg.Database.Provider = "sqlite"
	}
	if cfg.Database.URLEnv == "" {
		cfg.Database.URLEnv = "DATABASE_URL"
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "shipments.db"
	}
	if cfg.DataDir == "" {
		cfg.DataDir = "data"
	}
	if cfg.DispatchFile == "" {
		cfg.DispatchFile = "shipping_data_0.csv"
	}
	if cfg.LineItemFile == "" {
		cfg.LineItemFile = "shipping_data_1.csv"
	}
	if cfg.ManifestFile == "" {
		cfg.ManifestFile = "shipping_data_2.csv"
	}
	if cfg.ExportPath == "" {
		cfg.ExportPath = "db/export"
	}
	if cfg.Report.SampleLimit <= 0 {
		cfg.Report.SampleLimit = 10
	}

	return &cfg, nil
}

// GetDatabaseURL resolves the store URL: the configured environment variable
// wins; otherwise sqlite falls back to the local database file. Server
// providers have no sensible fallback and require the variable.
func (c *Config) GetDatabaseURL() (string, error) {
	if url := os.Getenv(c.Database.URLEnv); url != "" {
		return url, nil
	}
	switch c.Database.Provider {
	case "sqlite", "sqlite3":
		return "sqlite://" + c.Database.Path, nil
	default:
		return "", fmt.Errorf("database URL not found in environment variable %s", c.Database.URLEnv)
	}
}

func (c *Config) DispatchPath() string {
	return filepath.Join(c.DataDir, c.DispatchFile)
}

func (c *Config) LineItemPath() string {
	return filepath.Join(c.DataDir, c.LineItemFile)
}

func (c *Config) ManifestPath() string {
	return filepath.Join(c.DataDir, c.ManifestFile)
}
