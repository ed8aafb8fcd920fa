// Vtour - 360° Virtual Tour Content Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vtour

package config

import (
	"fmt"
	"strings"
	"time"
)

// Validate checks that required configuration is present and valid
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}

	if err := c.validateBackend(); err != nil {
		return err
	}

	if err := c.validateSecurity(); err != nil {
		return err
	}

	if err := c.validateImages(); err != nil {
		return err
	}

	if err := c.validateStudio(); err != nil {
		return err
	}

	return c.validateLogging()
}

// validateServer validates server configuration
func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive")
	}
	return nil
}

// validateBackend validates the tour backend connection settings
func (c *Config) validateBackend() error {
	if c.Backend.URL == "" {
		return fmt.Errorf("VTOUR_BACKEND_URL is required")
	}
	if err := validateHTTPURL(c.Backend.URL, "VTOUR_BACKEND_URL"); err != nil {
		return fmt.Errorf("VTOUR_BACKEND_URL is invalid: %w", err)
	}
	if c.Backend.Timeout <= 0 {
		return fmt.Errorf("VTOUR_BACKEND_TIMEOUT must be positive")
	}
	if c.Backend.RequestsPerSecond < 0 {
		return fmt.Errorf("VTOUR_BACKEND_RPS must not be negative")
	}
	if c.Backend.RequestsPerSecond > 0 && c.Backend.Burst < 1 {
		return fmt.Errorf("VTOUR_BACKEND_BURST must be at least 1 when VTOUR_BACKEND_RPS is set")
	}
	if c.Backend.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive")
	}
	return nil
}

const (
	minRateLimitRequests = 1           // Minimum 1 request allowed
	maxRateLimitRequests = 100000      // Maximum 100K requests per window
	minRateLimitWindow   = time.Second // Minimum 1 second window
	maxRateLimitWindow   = time.Hour   // Maximum 1 hour window
)

// validateSecurity validates CORS and rate limiting
func (c *Config) validateSecurity() error {
	if len(c.Security.CORSOrigins) == 0 {
		return fmt.Errorf("CORS_ORIGINS must list at least one origin")
	}
	return c.validateRateLimits()
}

// validateRateLimits validates rate limiting configuration bounds.
func (c *Config) validateRateLimits() error {
	if c.Security.RateLimitDisabled {
		return nil
	}

	if c.Security.RateLimitReqs < minRateLimitRequests || c.Security.RateLimitReqs > maxRateLimitRequests {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be between %d and %d", minRateLimitRequests, maxRateLimitRequests)
	}
	if c.Security.RateLimitWindow < minRateLimitWindow || c.Security.RateLimitWindow > maxRateLimitWindow {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be between %v and %v", minRateLimitWindow, maxRateLimitWindow)
	}
	return nil
}

func (c *Config) validateImages() error {
	if c.Images.CacheTTL <= 0 {
		return fmt.Errorf("IMAGE_CACHE_TTL must be positive")
	}
	if c.Images.MaxBytes <= 0 {
		return fmt.Errorf("IMAGE_CACHE_MAX_BYTES must be positive")
	}
	if c.Images.GCInterval < time.Minute {
		return fmt.Errorf("IMAGE_CACHE_GC_INTERVAL must be at least 1m")
	}
	return nil
}

// validateStudio validates editing session defaults
func (c *Config) validateStudio() error {
	if c.Studio.ViewportWidth <= 0 || c.Studio.ViewportHeight <= 0 {
		return fmt.Errorf("STUDIO_VIEWPORT_WIDTH and STUDIO_VIEWPORT_HEIGHT must be positive")
	}
	if c.Studio.DefaultHFOV < 10 || c.Studio.DefaultHFOV > 140 {
		return fmt.Errorf("STUDIO_DEFAULT_HFOV must be between 10 and 140 degrees")
	}
	if c.Studio.SaveTimeout <= 0 {
		return fmt.Errorf("STUDIO_SAVE_TIMEOUT must be positive")
	}
	return nil
}

// validLogLevels defines the allowed log levels
var validLogLevels = map[string]bool{
	"trace": true,
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// validateLogging validates logging configuration
func (c *Config) validateLogging() error {
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("LOG_LEVEL must be one of: trace, debug, info, warn, error")
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "console":
		return nil
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console")
	}
}

// IsProduction returns true if the application is running in production mode.
func (c *Config) IsProduction() bool {
	env := strings.ToLower(c.Server.Environment)
	return env == "production" || env == "prod"
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
