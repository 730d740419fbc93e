// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package directory implements the identity directory: username to public key
// mappings with first-claim registration and bearer-secret authentication.
package directory

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/stacklok/handoff/pkg/errors"
	"github.com/stacklok/handoff/pkg/storage"
	"github.com/stacklok/handoff/pkg/validation"
)

// bearerSecretBytes is the entropy of a freshly issued bearer secret.
const bearerSecretBytes = 24

// User is a directory record. The bearer secret itself is never stored; only
// its SHA-256 hash.
type User struct {
	Username  string          `json:"username"`
	PublicKey json.RawMessage `json:"publicKey"`
	AuthHash  string          `json:"authHash"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// RegisterResult is the outcome of a Register call. AuthSecret is non-empty
// only on first registration; it is disclosed to the claimant exactly once.
type RegisterResult struct {
	Username   string
	AuthSecret string
}

// Service provides user registration, key rotation and bearer verification.
type Service struct {
	users storage.Store

	// adminUsers is the administrator allowlist. Empty or containing "*"
	// means every authenticated user is an admin.
	adminUsers []string
}

// NewService creates a directory service over the given user store.
func NewService(users storage.Store, adminUsers []string) *Service {
	return &Service{users: users, adminUsers: adminUsers}
}

// Get returns the user record for username, or a not-found error.
func (s *Service) Get(ctx context.Context, username string) (*User, error) {
	if err := validation.ValidateUsername(username); err != nil {
		return nil, errors.NewInvalidArgumentError(err.Error(), nil)
	}

	data, err := s.users.Get(ctx, storage.UserKey(username))
	if err != nil {
		if err == storage.ErrNotFound {
			return nil, errors.NewNotFoundError("user not found", nil)
		}
		return nil, errors.NewInternalError("failed to load user", err)
	}

	var user User
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, errors.NewInternalError("failed to decode user record", err)
	}
	return &user, nil
}

// Register claims a username or rotates its public key.
//
// A new username is claimed by whoever registers it first; the caller receives
// a freshly generated bearer secret whose SHA-256 is stored. Re-registration
// requires the original secret and overwrites the public key only.
func (s *Service) Register(ctx context.Context, username string, publicKey json.RawMessage, authSecret string) (*RegisterResult, error) {
	if err := validation.ValidateUsername(username); err != nil {
		return nil, errors.NewInvalidArgumentError(err.Error(), nil)
	}
	if len(publicKey) == 0 {
		return nil, errors.NewInvalidArgumentError("publicKey is required", nil)
	}

	existing, err := s.load(ctx, username)
	if err != nil {
		return nil, err
	}

	if existing == nil {
		secret, err := newBearerSecret()
		if err != nil {
			return nil, errors.NewInternalError("failed to generate bearer secret", err)
		}
		user := &User{
			Username:  username,
			PublicKey: publicKey,
			AuthHash:  hashSecret(secret),
			UpdatedAt: time.Now().UTC(),
		}

		// The claim is a conditional write: of any number of concurrent first
		// registrations, exactly one wins and is told its secret. Losers are
		// handled as re-registrations against the winner's record.
		claimed, err := s.claim(ctx, user)
		if err != nil {
			return nil, err
		}
		if claimed {
			return &RegisterResult{Username: username, AuthSecret: secret}, nil
		}

		existing, err = s.load(ctx, username)
		if err != nil {
			return nil, err
		}
		if existing == nil {
			return nil, errors.NewInternalError("failed to load user after lost claim", nil)
		}
	}

	if authSecret == "" || !secretMatches(authSecret, existing.AuthHash) {
		return nil, errors.NewAuthError("authSecret mismatch", nil)
	}

	existing.PublicKey = publicKey
	existing.UpdatedAt = time.Now().UTC()
	if err := s.store(ctx, existing); err != nil {
		return nil, err
	}
	return &RegisterResult{Username: username}, nil
}

// Exists reports whether a user record exists for username.
func (s *Service) Exists(ctx context.Context, username string) (bool, error) {
	user, err := s.load(ctx, username)
	if err != nil {
		return false, err
	}
	return user != nil, nil
}

// Authenticate verifies that authSecret is the bearer secret of username.
// It returns an auth error on any mismatch, including unknown users, so
// callers cannot probe the directory through privileged endpoints.
func (s *Service) Authenticate(ctx context.Context, username, authSecret string) error {
	if err := validation.ValidateUsername(username); err != nil {
		return errors.NewInvalidArgumentError(err.Error(), nil)
	}
	if authSecret == "" {
		return errors.NewAuthError("authSecret is required", nil)
	}

	user, err := s.load(ctx, username)
	if err != nil {
		return err
	}
	if user == nil || !secretMatches(authSecret, user.AuthHash) {
		return errors.NewAuthError("authSecret mismatch", nil)
	}
	return nil
}

// IsAdminUser reports whether username is in the administrator allowlist. An
// empty or wildcard allowlist admits every user.
func (s *Service) IsAdminUser(username string) bool {
	if len(s.adminUsers) == 0 || slices.Contains(s.adminUsers, "*") {
		return true
	}
	return slices.Contains(s.adminUsers, username)
}

// AuthenticateAdmin verifies the bearer secret and the allowlist membership.
func (s *Service) AuthenticateAdmin(ctx context.Context, username, authSecret string) error {
	if err := s.Authenticate(ctx, username, authSecret); err != nil {
		return err
	}
	if !s.IsAdminUser(username) {
		return errors.NewAuthError("admin not allowed", nil)
	}
	return nil
}

func (s *Service) load(ctx context.Context, username string) (*User, error) {
	data, err := s.users.Get(ctx, storage.UserKey(username))
	if err == storage.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, errors.NewInternalError("failed to load user", err)
	}

	var user User
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, errors.NewInternalError("failed to decode user record", err)
	}
	return &user, nil
}

func (s *Service) store(ctx context.Context, user *User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return errors.NewInternalError("failed to encode user record", err)
	}
	// User records never expire.
	if err := s.users.Set(ctx, storage.UserKey(user.Username), data, 0); err != nil {
		return errors.NewInternalError("failed to store user", err)
	}
	return nil
}

// claim writes a fresh user record only if the username is still unclaimed.
func (s *Service) claim(ctx context.Context, user *User) (bool, error) {
	data, err := json.Marshal(user)
	if err != nil {
		return false, errors.NewInternalError("failed to encode user record", err)
	}
	ok, err := s.users.SetNX(ctx, storage.UserKey(user.Username), data, 0)
	if err != nil {
		return false, errors.NewInternalError("failed to store user", err)
	}
	return ok, nil
}

// newBearerSecret returns a fresh URL-safe secret without padding.
func newBearerSecret() (string, error) {
	buf := make([]byte, bearerSecretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func hashSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

func secretMatches(secret, authHash string) bool {
	return subtle.ConstantTimeCompare([]byte(hashSecret(secret)), []byte(authHash)) == 1
}
