package main

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/goccy/go-json"
	"github.com/natefinch/atomic"
)

// ServerConfig holds the settings for the database, logging and the HTTP API.
type ServerConfig struct {
	ApiAddr      string `json:"api_addr"`
	LogLevel     string `json:"log_level"`
	DatabasePath string `json:"database_path"`
}

// MarkovConfig holds the defaults used when training, generating and suggesting.
type MarkovConfig struct {
	DefaultOrder   int `json:"default_order"`
	GenerateLength int `json:"generate_length"`
	// MaxGenerateLength caps the length an API caller may request.
	MaxGenerateLength int  `json:"max_generate_length"`
	Suggestions       int  `json:"suggestions"`
	Lowercase         bool `json:"lowercase"`
}

// Config is the top-level configuration struct that aggregates all other configs.
type Config struct {
	Server *ServerConfig `json:"server_config"`
	Markov *MarkovConfig `json:"markov_config"`
}

// DefaultServerConfig creates a server configuration with default values.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		ApiAddr:      "127.0.0.1:7279",
		LogLevel:     "info",
		DatabasePath: "./data/verbena.db?_journal_mode=WAL&_busy_timeout=5000",
	}
}

// DefaultMarkovConfig creates a markov configuration with default values.
func DefaultMarkovConfig() *MarkovConfig {
	return &MarkovConfig{
		DefaultOrder:      1,
		GenerateLength:    20,
		MaxGenerateLength: 10000,
		Suggestions:       5,
		Lowercase:         false,
	}
}

// LoadConfig reads the configuration from a JSON file at the given path.
// If the file doesn't exist, it creates one with default values.
func LoadConfig(path string) (*Config, error) {
	config := &Config{
		Server: DefaultServerConfig(),
		Markov: DefaultMarkovConfig(),
	}

	file, err := os.ReadFile(path)
	if err != nil {
		// If the file doesn't exist, create it with the default config.
		if os.IsNotExist(err) {
			var data []byte
			data, err = json.MarshalIndent(config, "", "  ")
			if err != nil {
				return nil, fmt.Errorf("failed to marshal default config: %w", err)
			}
			if err = atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
				// The defaults are still usable without a file on disk.
				fmt.Fprintf(os.Stderr, "warning: failed to write default config file: %v\n", err)
			}
			return config, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err = json.Unmarshal(file, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if config.Server == nil {
		config.Server = DefaultServerConfig()
	}
	if config.Markov == nil {
		config.Markov = DefaultMarkovConfig()
	}

	return config, nil
}

// parseLogLevel maps a config log level onto slog, defaulting to info.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
