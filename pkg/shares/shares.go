// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package shares implements the single-use share channel: an opaque ciphertext
// delivered at most once via a short-lived token.
package shares

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/stacklok/handoff/pkg/directory"
	"github.com/stacklok/handoff/pkg/errors"
	"github.com/stacklok/handoff/pkg/storage"
	"github.com/stacklok/handoff/pkg/validation"
)

// tokenBytes is the entropy of a share token; rendered as 48 hex characters.
const tokenBytes = 24

// DefaultAlg is the algorithm tag recorded when the client does not send one.
// The server never interprets it.
const DefaultAlg = "ecdh-hkdf-aesgcm"

// Meta is the opaque share metadata echoed back to the recipient.
type Meta struct {
	TargetOrigin string `json:"targetOrigin,omitempty"`
	TargetPath   string `json:"targetPath,omitempty"`
	Comment      string `json:"comment,omitempty"`
	Sender       string `json:"sender,omitempty"`
}

// Record is a stored share payload. The cipher is never decoded server-side.
type Record struct {
	Cipher string `json:"cipher"`
	Alg    string `json:"alg,omitempty"`
	Cmp    string `json:"cmp,omitempty"`
	Meta   *Meta  `json:"meta,omitempty"`
}

// CreateRequest are the parameters of a share creation.
type CreateRequest struct {
	Recipient string
	Cipher    string
	Alg       string
	Cmp       string
	Meta      *Meta
	TTLSec    int64
}

// CreateResult is the outcome of a share creation.
type CreateResult struct {
	Token     string
	ExpiresAt time.Time
}

// FetchResult is a live share returned to the recipient.
type FetchResult struct {
	Token  string
	Cipher string
	Alg    string
	Cmp    string
	Meta   *Meta
}

// Config holds the share channel limits.
type Config struct {
	MaxPayloadBytes int64
	DefaultTTL      time.Duration
	MaxTTL          time.Duration
}

// Service implements the share channel over the share store and the token
// coordinator.
type Service struct {
	store storage.Store
	coord *Coordinator
	dir   *directory.Service
	cfg   Config
}

// NewService creates a share service.
func NewService(store storage.Store, coord *Coordinator, dir *directory.Service, cfg Config) *Service {
	return &Service{store: store, coord: coord, dir: dir, cfg: cfg}
}

// Create validates and stores a share, initializes its token and returns the
// token with its expiry.
func (s *Service) Create(ctx context.Context, req *CreateRequest) (*CreateResult, error) {
	if err := validation.ValidateUsername(req.Recipient); err != nil {
		return nil, errors.NewInvalidArgumentError(err.Error(), nil)
	}
	if err := validation.ValidateCipher(req.Cipher, s.cfg.MaxPayloadBytes); err != nil {
		return nil, errors.NewInvalidArgumentError(err.Error(), nil)
	}

	exists, err := s.dir.Exists(ctx, req.Recipient)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, errors.NewNotFoundError("recipient not found", nil)
	}

	ttl := validation.ClampTTL(req.TTLSec, s.cfg.DefaultTTL, s.cfg.MaxTTL)

	token, err := randomHex(tokenBytes)
	if err != nil {
		return nil, errors.NewInternalError("failed to generate token", err)
	}

	record := Record{
		Cipher: req.Cipher,
		Alg:    req.Alg,
		Cmp:    req.Cmp,
		Meta:   normalizeMeta(req.Meta),
	}
	if record.Alg == "" {
		record.Alg = DefaultAlg
	}
	data, err := json.Marshal(&record)
	if err != nil {
		return nil, errors.NewInternalError("failed to encode share", err)
	}

	if err := s.store.Set(ctx, storage.ShareKey(token), data, ttl); err != nil {
		return nil, errors.NewInternalError("failed to store share", err)
	}
	if err := s.coord.Init(ctx, token, req.Recipient, ttl); err != nil {
		return nil, err
	}

	return &CreateResult{
		Token:     token,
		ExpiresAt: time.Now().UTC().Add(ttl),
	}, nil
}

// Fetch returns a live share without consuming it.
func (s *Service) Fetch(ctx context.Context, token string) (*FetchResult, error) {
	status, err := s.coord.Status(ctx, token)
	if err != nil {
		return nil, err
	}
	switch status {
	case TokenUnknown:
		return nil, errors.NewNotFoundError("unknown token", nil)
	case TokenConsumed:
		return nil, errors.NewGoneError("token already consumed", nil)
	}

	data, err := s.store.Get(ctx, storage.ShareKey(token))
	if err != nil {
		// The coordinator record can outlive the payload by a TTL race.
		if err == storage.ErrNotFound {
			return nil, errors.NewNotFoundError("share not found", nil)
		}
		return nil, errors.NewInternalError("failed to load share", err)
	}

	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, errors.NewInternalError("failed to decode share", err)
	}

	return &FetchResult{
		Token:  token,
		Cipher: record.Cipher,
		Alg:    record.Alg,
		Cmp:    record.Cmp,
		Meta:   record.Meta,
	}, nil
}

// Consume invalidates a token and deletes its payload. At most one caller
// succeeds per token.
func (s *Service) Consume(ctx context.Context, token string) error {
	if err := s.coord.Consume(ctx, token); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, storage.ShareKey(token)); err != nil {
		return errors.NewInternalError("failed to delete share", err)
	}
	return nil
}

// normalizeMeta applies the default target path.
func normalizeMeta(meta *Meta) *Meta {
	if meta == nil {
		meta = &Meta{}
	}
	if meta.TargetPath == "" {
		meta.TargetPath = "/"
	}
	return meta
}

// randomHex returns n random bytes rendered as 2n hex characters.
func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
