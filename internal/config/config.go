// Vtour - 360° Virtual Tour Content Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vtour

// Package config loads the server configuration.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: built-in values for every setting
//  2. .env file: optional, loaded into the process environment by godotenv
//  3. Config File: optional YAML file (config.yaml, or CONFIG_PATH)
//  4. Environment Variables: override any setting
//
// Example:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    logging.Fatal().Err(err).Msg("Failed to load configuration")
//	}
//	client := backend.NewCircuitBreakerClient(&cfg.Backend)
//
// Config is immutable after Load and safe for concurrent reads.
package config

import "time"

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Backend  BackendConfig  `koanf:"backend"`
	Security SecurityConfig `koanf:"security"`
	Cache    CacheConfig    `koanf:"cache"`
	Images   ImagesConfig   `koanf:"images"`
	Studio   StudioConfig   `koanf:"studio"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Port        int           `koanf:"port"`
	Host        string        `koanf:"host"`
	Timeout     time.Duration `koanf:"timeout"`
	Environment string        `koanf:"environment"` // development, staging, production
}

// BackendConfig points at the external tour REST backend.
type BackendConfig struct {
	// URL is the backend base URL; requests go to URL + /api/vtour/...
	URL string `koanf:"url"`

	Timeout time.Duration `koanf:"timeout"`

	// RequestsPerSecond and Burst bound outbound traffic. Zero disables the limiter.
	RequestsPerSecond float64 `koanf:"requests_per_second"`
	Burst             int     `koanf:"burst"`

	// MaxUploadBytes caps scene image and logo uploads accepted by the proxy.
	MaxUploadBytes int64 `koanf:"max_upload_bytes"`
}

// SecurityConfig holds CORS and inbound rate limiting.
type SecurityConfig struct {
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// CacheConfig controls the in-memory response cache for scene listings and settings.
type CacheConfig struct {
	TTL time.Duration `koanf:"ttl"`
}

// ImagesConfig controls the on-disk cache for public panorama images.
type ImagesConfig struct {
	// CachePath is the badger directory. Empty runs the cache in memory.
	CachePath  string        `koanf:"cache_path"`
	CacheTTL   time.Duration `koanf:"cache_ttl"`
	MaxBytes   int64         `koanf:"max_bytes"` // largest single image kept in the cache
	GCInterval time.Duration `koanf:"gc_interval"`
}

// StudioConfig holds defaults for editing sessions.
type StudioConfig struct {
	ViewportWidth  float64       `koanf:"viewport_width"`
	ViewportHeight float64       `koanf:"viewport_height"`
	DefaultHFOV    float64       `koanf:"default_hfov"`
	SaveTimeout    time.Duration `koanf:"save_timeout"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	Level string `koanf:"level"`

	// Format is json or console.
	Format string `koanf:"format"`

	// Caller adds file and line to each entry.
	Caller bool `koanf:"caller"`
}

// Load reads configuration from defaults, files and environment.
func Load() (*Config, error) {
	return LoadWithKoanf()
}
