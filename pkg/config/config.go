// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package config loads the service configuration from flags and environment
// variables via viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Defaults applied when a setting is not provided.
const (
	DefaultMaxPayloadBytes = 8 * 1024 * 1024
	DefaultMaxTTL          = time.Hour
	DefaultShareTTL        = 10 * time.Minute
)

// Config holds the runtime configuration of the handoff service.
type Config struct {
	// Address is the listen address of the HTTP server.
	Address string

	// RedisURL selects the Redis backend when set; the in-memory backend is
	// used otherwise.
	RedisURL string

	// BaseURL is used to construct share URLs. When empty, the URL is derived
	// from the request.
	BaseURL string

	// AllowedOrigins is the CORS allowlist. May contain "*".
	AllowedOrigins []string

	// AdminUsers is the administrator allowlist. Empty or containing "*"
	// means every authenticated user is an admin.
	AdminUsers []string

	// MaxPayloadBytes bounds the decoded size of a cipher payload.
	MaxPayloadBytes int64

	// MaxTTL is the ceiling applied to requested share TTLs.
	MaxTTL time.Duration

	// DefaultTTL is the share TTL used when the client does not request one.
	DefaultTTL time.Duration
}

// envBindings maps viper keys to the environment variables they honor.
var envBindings = map[string]string{
	"address":           "ADDRESS",
	"redis-url":         "REDIS_URL",
	"base-url":          "BASE_URL",
	"allowed-origins":   "ALLOWED_ORIGINS",
	"admin-users":       "ADMIN_USERS",
	"max-payload-bytes": "MAX_PAYLOAD_BYTES",
	"max-ttl":           "MAX_TTL",
	"default-ttl":       "DEFAULT_TTL",
}

// BindEnv registers the environment variable bindings with viper. It is called
// once from the serve command before flags are parsed.
func BindEnv() error {
	for key, envVar := range envBindings {
		if err := viper.BindEnv(key, envVar); err != nil {
			return fmt.Errorf("failed to bind %s: %w", envVar, err)
		}
	}
	return nil
}

// Load materializes a Config from the current viper state.
func Load() *Config {
	cfg := &Config{
		Address:         viper.GetString("address"),
		RedisURL:        viper.GetString("redis-url"),
		BaseURL:         strings.TrimSuffix(viper.GetString("base-url"), "/"),
		AllowedOrigins:  splitCSV(viper.GetString("allowed-origins")),
		AdminUsers:      splitCSV(viper.GetString("admin-users")),
		MaxPayloadBytes: viper.GetInt64("max-payload-bytes"),
		MaxTTL:          time.Duration(viper.GetInt64("max-ttl")) * time.Second,
		DefaultTTL:      time.Duration(viper.GetInt64("default-ttl")) * time.Second,
	}
	if cfg.Address == "" {
		cfg.Address = ":8080"
	}
	if cfg.MaxPayloadBytes <= 0 {
		cfg.MaxPayloadBytes = DefaultMaxPayloadBytes
	}
	if cfg.MaxTTL <= 0 {
		cfg.MaxTTL = DefaultMaxTTL
	}
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = DefaultShareTTL
	}
	return cfg
}

// splitCSV splits a comma-separated list, trimming whitespace and dropping
// empty entries.
func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
