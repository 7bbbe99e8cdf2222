// Labboard - Research Lab Collaboration Platform
// Copyright 2026 Labboard contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/labboard/labboard

// Package config provides layered configuration for Labboard.
//
// Configuration is merged from three sources, later sources winning:
//  1. built-in defaults
//  2. an optional YAML config file (CONFIG_PATH or the default search paths)
//  3. LABBOARD_* environment variables
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config is the root configuration for the Labboard server.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Database   DatabaseConfig   `koanf:"database"`
	Logging    LoggingConfig    `koanf:"logging"`
	Recommend  RecommendConfig  `koanf:"recommend"`
	Similarity SimilarityConfig `koanf:"similarity"`
	Events     EventsConfig     `koanf:"events"`
	API        APIConfig        `koanf:"api"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port" validate:"gt=0,lte=65535"`
	Timeout         time.Duration `koanf:"timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// DatabaseConfig holds DuckDB settings.
type DatabaseConfig struct {
	// Path is the database file path, or ":memory:" for an in-memory store.
	Path string `koanf:"path" validate:"required"`

	// MaxMemory is the DuckDB memory limit (e.g. "2GB").
	MaxMemory string `koanf:"max_memory"`

	// Threads is the DuckDB thread count. 0 uses runtime.NumCPU().
	Threads int `koanf:"threads"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// RecommendConfig holds recommendation engine settings.
type RecommendConfig struct {
	// DefaultLimit is the number of recommendations returned when the
	// request does not specify one.
	DefaultLimit int `koanf:"default_limit" validate:"gt=0"`

	// MaxLimit caps the requested result size.
	MaxLimit int `koanf:"max_limit" validate:"gt=0"`

	// StrategyTimeout bounds each strategy's data-store round trips.
	StrategyTimeout time.Duration `koanf:"strategy_timeout"`

	// PopularityWindow is the lookback window for the popularity fallback.
	PopularityWindow time.Duration `koanf:"popularity_window"`

	// HistoryLimit is how many recent events a strategy considers per user.
	HistoryLimit int `koanf:"history_limit" validate:"gt=0"`
}

// SimilarityConfig holds the offline Jaccard batch job settings.
type SimilarityConfig struct {
	// Interval is how often the batch job recomputes each item type.
	Interval time.Duration `koanf:"interval"`

	// RunOnStartup triggers a batch run when the service starts.
	RunOnStartup bool `koanf:"run_on_startup"`

	// MinCommonUsers prunes pairs with fewer distinct co-interacting users.
	MinCommonUsers int `koanf:"min_common_users" validate:"gt=0"`

	// MinSimilarity is the noise floor; pairs at or below it are discarded.
	MinSimilarity float64 `koanf:"min_similarity" validate:"gte=0,lt=1"`

	// UpsertsPerSecond throttles pair upserts. 0 disables throttling.
	UpsertsPerSecond int `koanf:"upserts_per_second"`

	// ItemTypes lists the item types the scheduler cycles through.
	ItemTypes []string `koanf:"item_types"`
}

// EventsConfig holds behavior event ingestion settings.
type EventsConfig struct {
	// BufferSize is the in-process pub/sub channel depth.
	BufferSize int `koanf:"buffer_size" validate:"gt=0"`

	// BreakerMaxFailures opens the store circuit breaker after this many
	// consecutive persistence failures.
	BreakerMaxFailures int `koanf:"breaker_max_failures" validate:"gt=0"`

	// BreakerOpenFor is how long the breaker stays open before a probe.
	BreakerOpenFor time.Duration `koanf:"breaker_open_for"`
}

// APIConfig holds API surface settings.
type APIConfig struct {
	CORSOrigins     []string      `koanf:"cors_origins"`
	RateLimitReqs   int           `koanf:"rate_limit_reqs"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
}

// defaultConfig returns a Config with all default values applied.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8473,
			Timeout:         30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			Path:      "/data/labboard.duckdb",
			MaxMemory: "1GB",
			Threads:   0,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Recommend: RecommendConfig{
			DefaultLimit:     10,
			MaxLimit:         100,
			StrategyTimeout:  2 * time.Second,
			PopularityWindow: 90 * 24 * time.Hour,
			HistoryLimit:     200,
		},
		Similarity: SimilarityConfig{
			Interval:         24 * time.Hour,
			RunOnStartup:     false,
			MinCommonUsers:   3,
			MinSimilarity:    0.1,
			UpsertsPerSecond: 0,
			ItemTypes:        []string{"protocol", "paper", "service"},
		},
		Events: EventsConfig{
			BufferSize:         4096,
			BreakerMaxFailures: 5,
			BreakerOpenFor:     30 * time.Second,
		},
		API: APIConfig{
			CORSOrigins:     []string{"*"},
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
		},
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if c.Recommend.DefaultLimit > c.Recommend.MaxLimit {
		return fmt.Errorf("recommend.default_limit (%d) exceeds recommend.max_limit (%d)",
			c.Recommend.DefaultLimit, c.Recommend.MaxLimit)
	}
	if len(c.Similarity.ItemTypes) == 0 {
		return fmt.Errorf("similarity.item_types must not be empty")
	}

	return nil
}
