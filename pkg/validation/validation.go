// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package validation provides input validation for usernames, payloads and TTLs.
package validation

import (
	"fmt"
	"regexp"
	"time"
)

// usernameRegex matches a leading alphanumeric character followed by up to 63
// characters of alphanumerics, underscore, dot or hyphen.
var usernameRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.\-]{0,63}$`)

// base64Expansion is the assumed base64 expansion factor of the opaque cipher
// payload. The server never decodes the cipher, so for non-base64 input the
// effective bound is looser than MaxPayloadBytes. Kept as-is for
// bit-compatibility with existing clients.
const base64Expansion = 0.75

// MinTTL is the lower bound applied to every stored TTL.
const MinTTL = 60 * time.Second

// ValidateUsername checks that a username is well formed.
func ValidateUsername(username string) error {
	if !usernameRegex.MatchString(username) {
		return fmt.Errorf("invalid username %q", username)
	}
	return nil
}

// ValidateCipher checks that a cipher payload is present and within the
// configured size budget.
func ValidateCipher(cipher string, maxPayloadBytes int64) error {
	if cipher == "" {
		return fmt.Errorf("cipher is required")
	}
	if float64(len(cipher))*base64Expansion > float64(maxPayloadBytes) {
		return fmt.Errorf("cipher exceeds maximum payload size of %d bytes", maxPayloadBytes)
	}
	return nil
}

// ClampTTL converts a requested TTL in seconds to a duration within
// [MinTTL, maxTTL]. A zero or negative request falls back to defaultTTL.
func ClampTTL(ttlSec int64, defaultTTL, maxTTL time.Duration) time.Duration {
	ttl := defaultTTL
	if ttlSec > 0 {
		ttl = time.Duration(ttlSec) * time.Second
	}
	if ttl < MinTTL {
		ttl = MinTTL
	}
	if ttl > maxTTL {
		ttl = maxTTL
	}
	return ttl
}
