package app

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// DefaultListenAddr is the API address used when none is configured.
const DefaultListenAddr = ":8000"

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	MediaRoot    string   // root of file storage; outputs go under my_files/
	CatalogPaths []string // HCL manifests and tools.json files or directories
	GraphsPath   string   // directory of saved workflows

	ListenAddr      string
	HealthcheckPort int
	LogFormat       string
	LogLevel        string
	WorkerCount     int

	NotifyURL       string
	NotifyNamespace string
}

// NewConfig validates cfg and fills in defaults.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.MediaRoot == "" {
		return nil, errors.New("MediaRoot is a required configuration field and cannot be empty")
	}
	if cfg.GraphsPath == "" {
		cfg.GraphsPath = filepath.Join(cfg.MediaRoot, "workflows")
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = DefaultListenAddr
	}
	if cfg.WorkerCount < 1 {
		return nil, fmt.Errorf("WorkerCount must be at least 1, got %d", cfg.WorkerCount)
	}
	if cfg.HealthcheckPort < 0 || cfg.HealthcheckPort > 65535 {
		return nil, fmt.Errorf("HealthcheckPort out of range: %d", cfg.HealthcheckPort)
	}

	cfg.LogFormat = strings.ToLower(cfg.LogFormat)
	if cfg.LogFormat == "" {
		cfg.LogFormat = "text"
	}
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return nil, errors.New("invalid log-format: must be 'text' or 'json'")
	}

	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	switch cfg.LogLevel {
	case "":
		cfg.LogLevel = "info"
	case "debug", "info", "warn", "error":
	default:
		return nil, errors.New("invalid log-level: must be 'debug', 'info', 'warn', or 'error'")
	}

	return &cfg, nil
}
