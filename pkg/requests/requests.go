// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package requests implements the access-request channel: recipient-initiated
// pull requests for credentials, routed to administrators.
package requests

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/stacklok/handoff/pkg/directory"
	"github.com/stacklok/handoff/pkg/errors"
	"github.com/stacklok/handoff/pkg/logger"
	"github.com/stacklok/handoff/pkg/storage"
	"github.com/stacklok/handoff/pkg/validation"
)

// idBytes is the entropy of a request id; rendered as 32 hex characters.
const idBytes = 16

// TTL is the fixed lifetime of an access request.
const TTL = 15 * time.Minute

// Poll limits.
const (
	DefaultPollLimit = 50
	MaxPollLimit     = 100
)

// Request is a stored access request.
type Request struct {
	ID          string    `json:"id"`
	Requester   string    `json:"requester"`
	Origin      string    `json:"origin"`
	URL         string    `json:"url,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	TargetAdmin string    `json:"targetAdmin,omitempty"`
}

// Service implements the access-request channel.
type Service struct {
	store storage.Store
	dir   *directory.Service
}

// NewService creates an access-request service.
func NewService(store storage.Store, dir *directory.Service) *Service {
	return &Service{store: store, dir: dir}
}

// Create stores a request from an authenticated requester addressed to
// targetAdmin. The target must be a valid username and, when the allowlist is
// explicit, a member of it.
func (s *Service) Create(ctx context.Context, requester, origin, url, targetAdmin string) (string, error) {
	if origin == "" {
		return "", errors.NewInvalidArgumentError("origin is required", nil)
	}
	if err := validation.ValidateUsername(targetAdmin); err != nil {
		return "", errors.NewInvalidArgumentError("invalid targetAdmin", nil)
	}
	if !s.dir.IsAdminUser(targetAdmin) {
		return "", errors.NewAuthError("admin not allowed", nil)
	}

	id, err := randomHex(idBytes)
	if err != nil {
		return "", errors.NewInternalError("failed to generate request id", err)
	}

	request := &Request{
		ID:          id,
		Requester:   requester,
		Origin:      origin,
		URL:         url,
		CreatedAt:   time.Now().UTC(),
		TargetAdmin: targetAdmin,
	}
	data, err := json.Marshal(request)
	if err != nil {
		return "", errors.NewInternalError("failed to encode request", err)
	}
	if err := s.store.Set(ctx, storage.RequestKey(id), data, TTL); err != nil {
		return "", errors.NewInternalError("failed to store request", err)
	}
	return id, nil
}

// Poll returns pending requests visible to admin: untargeted requests plus
// those addressed to this admin.
func (s *Service) Poll(ctx context.Context, admin string, limit int) ([]*Request, error) {
	if limit <= 0 {
		limit = DefaultPollLimit
	}
	if limit > MaxPollLimit {
		limit = MaxPollLimit
	}

	keys, err := s.store.ListPrefix(ctx, storage.RequestPrefix, limit)
	if err != nil {
		return nil, errors.NewInternalError("failed to list requests", err)
	}

	out := make([]*Request, 0, len(keys))
	for _, key := range keys {
		data, err := s.store.Get(ctx, key)
		if err == storage.ErrNotFound {
			continue
		}
		if err != nil {
			return nil, errors.NewInternalError("failed to load request", err)
		}

		var request Request
		if err := json.Unmarshal(data, &request); err != nil {
			logger.Warnf("skipping undecodable request %s: %v", key, err)
			continue
		}
		if request.TargetAdmin != "" && request.TargetAdmin != admin {
			continue
		}
		out = append(out, &request)
	}
	return out, nil
}

// Ack deletes the given request ids and returns the number of deletes issued.
// Unknown ids count as deleted, making Ack idempotent.
func (s *Service) Ack(ctx context.Context, ids []string) (int, error) {
	deleted := 0
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if err := s.store.Delete(ctx, storage.RequestKey(id)); err != nil {
			return deleted, errors.NewInternalError("failed to delete request", err)
		}
		deleted++
	}
	return deleted, nil
}

func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
