// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Viper state is global, so these tests run sequentially.

func TestLoadDefaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	cfg := Load()
	assert.Equal(t, ":8080", cfg.Address)
	assert.Empty(t, cfg.RedisURL)
	assert.Empty(t, cfg.BaseURL)
	assert.Empty(t, cfg.AllowedOrigins)
	assert.Empty(t, cfg.AdminUsers)
	assert.Equal(t, int64(DefaultMaxPayloadBytes), cfg.MaxPayloadBytes)
	assert.Equal(t, DefaultMaxTTL, cfg.MaxTTL)
	assert.Equal(t, DefaultShareTTL, cfg.DefaultTTL)
}

func TestLoadFromEnv(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	t.Setenv("ADDRESS", ":9090")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("BASE_URL", "https://handoff.example.com/")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com,")
	t.Setenv("ADMIN_USERS", "alice,bob")
	t.Setenv("MAX_PAYLOAD_BYTES", "1048576")
	t.Setenv("MAX_TTL", "7200")
	t.Setenv("DEFAULT_TTL", "300")
	require.NoError(t, BindEnv())

	cfg := Load()
	assert.Equal(t, ":9090", cfg.Address)
	assert.Equal(t, "redis://localhost:6379/0", cfg.RedisURL)
	// Trailing slash is stripped so share URLs join cleanly.
	assert.Equal(t, "https://handoff.example.com", cfg.BaseURL)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.AllowedOrigins)
	assert.Equal(t, []string{"alice", "bob"}, cfg.AdminUsers)
	assert.Equal(t, int64(1048576), cfg.MaxPayloadBytes)
	assert.Equal(t, 2*time.Hour, cfg.MaxTTL)
	assert.Equal(t, 5*time.Minute, cfg.DefaultTTL)
}

func TestSplitCSV(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"empty", "", nil},
		{"single", "a", []string{"a"}},
		{"spaces and empties", " a , ,b, ", []string{"a", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, splitCSV(tt.input))
		})
	}
}
