package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the full carenotes configuration.
type Config struct {
	Listen         string `yaml:"listen"`
	DBPath         string `yaml:"db_path"`
	InboxDir       string `yaml:"inbox_dir"`
	RawDir         string `yaml:"raw_dir"`
	AttachmentsDir string `yaml:"attachments_dir"`
	ReportsDir     string `yaml:"reports_dir"`
	BatchLimit     int    `yaml:"batch_limit"`
	LogLevel       string `yaml:"log_level"`
}

// DefaultConfig returns sane defaults.
func DefaultConfig() *Config {
	return &Config{
		Listen:         ":8086",
		DBPath:         "data/carenotes.db",
		InboxDir:       "inbox",
		RawDir:         "data/raw",
		AttachmentsDir: "data/attachments",
		ReportsDir:     "reports",
		BatchLimit:     0,
		LogLevel:       "info",
	}
}

// LoadConfig reads and parses a YAML config file. Returns DefaultConfig
// merged with the file.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Validate checks that required fields are present and values are sane.
func (c *Config) Validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("db_path is required")
	}
	if c.RawDir == "" {
		return fmt.Errorf("raw_dir is required")
	}
	if c.AttachmentsDir == "" {
		return fmt.Errorf("attachments_dir is required")
	}
	if c.BatchLimit < 0 {
		return fmt.Errorf("batch_limit must be >= 0")
	}
	switch c.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be debug, info, warn or error")
	}
	return nil
}
