// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package inbox implements the recipient inbox channel: push delivery of
// share and revoke messages, polling and acknowledgement.
package inbox

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/stacklok/handoff/pkg/errors"
	"github.com/stacklok/handoff/pkg/logger"
	"github.com/stacklok/handoff/pkg/storage"
	"github.com/stacklok/handoff/pkg/validation"
)

// idBytes is the entropy of an inbox item id; rendered as 40 hex characters.
const idBytes = 20

// Poll limits.
const (
	DefaultPollLimit = 10
	MaxPollLimit     = 25
)

// Message types carried in item metadata.
const (
	TypeShare  = "share"
	TypeRevoke = "revoke"
)

// Meta describes an inbox item to the recipient.
type Meta struct {
	Type               string `json:"type"`
	TargetOrigin       string `json:"targetOrigin,omitempty"`
	TargetPath         string `json:"targetPath,omitempty"`
	Comment            string `json:"comment,omitempty"`
	Sender             string `json:"sender,omitempty"`
	SessionDurationSec int64  `json:"sessionDurationSec,omitempty"`
	SessionID          string `json:"sessionId,omitempty"`
}

// Item is a stored inbox item. Cipher is empty for control messages.
type Item struct {
	Cipher    string    `json:"cipher"`
	Alg       string    `json:"alg,omitempty"`
	Cmp       string    `json:"cmp,omitempty"`
	Meta      *Meta     `json:"meta"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// PolledItem is an inbox item with its id, as returned by Poll.
type PolledItem struct {
	ID        string    `json:"id"`
	Cipher    string    `json:"cipher"`
	Alg       string    `json:"alg,omitempty"`
	Cmp       string    `json:"cmp,omitempty"`
	Meta      *Meta     `json:"meta"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Service implements the inbox channel over the inbox store.
type Service struct {
	store storage.Store
}

// NewService creates an inbox service.
func NewService(store storage.Store) *Service {
	return &Service{store: store}
}

// Enqueue inserts an item for recipient with a fresh 40-hex id and returns
// the id. Callers are responsible for validation and meta normalization.
func (s *Service) Enqueue(ctx context.Context, recipient string, item *Item, ttl time.Duration) (string, error) {
	id, err := NewID()
	if err != nil {
		return "", errors.NewInternalError("failed to generate item id", err)
	}

	now := time.Now().UTC()
	item.CreatedAt = now
	item.ExpiresAt = now.Add(ttl)

	data, err := json.Marshal(item)
	if err != nil {
		return "", errors.NewInternalError("failed to encode inbox item", err)
	}
	if err := s.store.Set(ctx, storage.InboxKey(recipient, id), data, ttl); err != nil {
		return "", errors.NewInternalError("failed to store inbox item", err)
	}
	return id, nil
}

// Poll returns up to limit pending items for recipient. Items deleted between
// the key listing and the fetch are skipped. Delivery is at-least-once until
// acknowledged; clients deduplicate by id.
func (s *Service) Poll(ctx context.Context, recipient string, limit int) ([]*PolledItem, error) {
	if err := validation.ValidateUsername(recipient); err != nil {
		return nil, errors.NewInvalidArgumentError(err.Error(), nil)
	}
	limit = clampLimit(limit, DefaultPollLimit, MaxPollLimit)

	prefix := storage.InboxPrefix(recipient)
	keys, err := s.store.ListPrefix(ctx, prefix, limit)
	if err != nil {
		return nil, errors.NewInternalError("failed to list inbox", err)
	}

	items := make([]*PolledItem, 0, len(keys))
	for _, key := range keys {
		data, err := s.store.Get(ctx, key)
		if err == storage.ErrNotFound {
			// Expired or acked between list and get.
			continue
		}
		if err != nil {
			return nil, errors.NewInternalError("failed to load inbox item", err)
		}

		var item Item
		if err := json.Unmarshal(data, &item); err != nil {
			logger.Warnf("skipping undecodable inbox item %s: %v", key, err)
			continue
		}
		items = append(items, &PolledItem{
			ID:        strings.TrimPrefix(key, prefix),
			Cipher:    item.Cipher,
			Alg:       item.Alg,
			Cmp:       item.Cmp,
			Meta:      item.Meta,
			ExpiresAt: item.ExpiresAt,
		})
	}
	return items, nil
}

// Ack deletes the given item ids for recipient and returns the number of
// deletes issued. Unknown ids count as deleted, making Ack idempotent.
func (s *Service) Ack(ctx context.Context, recipient string, ids []string) (int, error) {
	if err := validation.ValidateUsername(recipient); err != nil {
		return 0, errors.NewInvalidArgumentError(err.Error(), nil)
	}

	deleted := 0
	for _, id := range ids {
		if id == "" {
			continue
		}
		if err := s.store.Delete(ctx, storage.InboxKey(recipient, id)); err != nil {
			return deleted, errors.NewInternalError("failed to delete inbox item", err)
		}
		deleted++
	}
	return deleted, nil
}

// NewID returns a fresh inbox-grade identifier (40 hex characters).
func NewID() (string, error) {
	buf := make([]byte, idBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

func clampLimit(limit, def, max int) int {
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}
