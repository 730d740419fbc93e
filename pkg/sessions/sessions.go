// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package sessions implements the session lifecycle registry: delivery of a
// share into a recipient inbox with a sender-visible session twin, and the
// revoke / restore / accepted / delete operations on that twin.
package sessions

import (
	"context"
	"encoding/json"
	"time"

	"github.com/stacklok/handoff/pkg/directory"
	"github.com/stacklok/handoff/pkg/errors"
	"github.com/stacklok/handoff/pkg/inbox"
	"github.com/stacklok/handoff/pkg/storage"
	"github.com/stacklok/handoff/pkg/validation"
)

// List limits.
const (
	DefaultListLimit = 50
	MaxListLimit     = 100
)

// minActionTTL is the floor applied to the remaining TTL when a lifecycle
// write happens close to expiry.
const minActionTTL = 60 * time.Second

// Record is the sender-visible twin of a delivered share. It duplicates the
// original ciphertext so restore remains possible after the inbox item is
// acknowledged; the TTL bounds the retention.
type Record struct {
	ID           string     `json:"id"`
	Sender       string     `json:"sender"`
	Recipient    string     `json:"recipient"`
	TargetOrigin string     `json:"targetOrigin,omitempty"`
	TargetPath   string     `json:"targetPath,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	DurationSec  int64      `json:"durationSec"`
	ExpiresAt    time.Time  `json:"expiresAt"`
	AcceptedAt   *time.Time `json:"acceptedAt,omitempty"`
	RevokedAt    *time.Time `json:"revokedAt,omitempty"`
	RestoredAt   *time.Time `json:"restoredAt,omitempty"`
	Cipher       string     `json:"cipher,omitempty"`
	Alg          string     `json:"alg,omitempty"`
	Cmp          string     `json:"cmp,omitempty"`
}

// DeliverRequest are the parameters of an inbox delivery.
type DeliverRequest struct {
	Recipient    string
	Cipher       string
	Alg          string
	Cmp          string
	TargetOrigin string
	TargetPath   string
	Comment      string
	Sender       string
	TTLSec       int64
}

// DeliverResult is the outcome of a delivery.
type DeliverResult struct {
	ID        string
	SessionID string
}

// Config holds the delivery limits.
type Config struct {
	MaxPayloadBytes int64
	DefaultTTL      time.Duration
	MaxTTL          time.Duration
}

// Service implements the session registry over the share store and the inbox
// channel.
type Service struct {
	store storage.Store
	inbox *inbox.Service
	dir   *directory.Service
	cfg   Config
}

// NewService creates a session registry service.
func NewService(store storage.Store, ibx *inbox.Service, dir *directory.Service, cfg Config) *Service {
	return &Service{store: store, inbox: ibx, dir: dir, cfg: cfg}
}

// Deliver pushes a share into the recipient's inbox. When a sender is named,
// a session record and its sender index are written alongside with the same
// TTL, enabling later lifecycle operations.
func (s *Service) Deliver(ctx context.Context, req *DeliverRequest) (*DeliverResult, error) {
	if err := validation.ValidateUsername(req.Recipient); err != nil {
		return nil, errors.NewInvalidArgumentError(err.Error(), nil)
	}
	if err := validation.ValidateCipher(req.Cipher, s.cfg.MaxPayloadBytes); err != nil {
		return nil, errors.NewInvalidArgumentError(err.Error(), nil)
	}
	// The sender names the index key of the session twin, so a malformed one
	// could park entries under another sender's list prefix.
	if req.Sender != "" {
		if err := validation.ValidateUsername(req.Sender); err != nil {
			return nil, errors.NewInvalidArgumentError(err.Error(), nil)
		}
	}

	exists, err := s.dir.Exists(ctx, req.Recipient)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, errors.NewNotFoundError("recipient not found", nil)
	}

	ttl := validation.ClampTTL(req.TTLSec, s.cfg.DefaultTTL, s.cfg.MaxTTL)
	durationSec := int64(ttl / time.Second)

	sessionID, err := inbox.NewID()
	if err != nil {
		return nil, errors.NewInternalError("failed to generate session id", err)
	}

	targetPath := req.TargetPath
	if targetPath == "" {
		targetPath = "/"
	}

	item := &inbox.Item{
		Cipher: req.Cipher,
		Alg:    req.Alg,
		Cmp:    req.Cmp,
		Meta: &inbox.Meta{
			Type:               inbox.TypeShare,
			TargetOrigin:       req.TargetOrigin,
			TargetPath:         targetPath,
			Comment:            req.Comment,
			Sender:             req.Sender,
			SessionDurationSec: durationSec,
			SessionID:          sessionID,
		},
	}
	id, err := s.inbox.Enqueue(ctx, req.Recipient, item, ttl)
	if err != nil {
		return nil, err
	}

	if req.Sender != "" {
		now := time.Now().UTC()
		record := &Record{
			ID:           sessionID,
			Sender:       req.Sender,
			Recipient:    req.Recipient,
			TargetOrigin: req.TargetOrigin,
			TargetPath:   targetPath,
			CreatedAt:    now,
			DurationSec:  durationSec,
			ExpiresAt:    now.Add(ttl),
			Cipher:       req.Cipher,
			Alg:          req.Alg,
			Cmp:          req.Cmp,
		}
		if err := s.writeRecord(ctx, record, ttl); err != nil {
			return nil, err
		}
	}

	return &DeliverResult{ID: id, SessionID: sessionID}, nil
}

// List returns up to limit sessions owned by sender. Index entries whose
// session record has expired are skipped.
func (s *Service) List(ctx context.Context, sender string, limit int) ([]*Record, error) {
	if err := validation.ValidateUsername(sender); err != nil {
		return nil, errors.NewInvalidArgumentError(err.Error(), nil)
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	prefix := storage.SessionBySenderPrefix(sender)
	keys, err := s.store.ListPrefix(ctx, prefix, limit)
	if err != nil {
		return nil, errors.NewInternalError("failed to list sessions", err)
	}

	records := make([]*Record, 0, len(keys))
	for _, key := range keys {
		id := key[len(prefix):]
		record, err := s.load(ctx, id)
		if err != nil {
			if errors.IsNotFound(err) {
				continue
			}
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

// Revoke pushes a revoke control message to the recipient and marks the
// session revoked. Only the owning sender may revoke.
func (s *Service) Revoke(ctx context.Context, actor, sessionID string) error {
	record, err := s.loadOwned(ctx, actor, sessionID)
	if err != nil {
		return err
	}

	ttl := remainingTTL(record)
	item := &inbox.Item{
		Meta: &inbox.Meta{
			Type:         inbox.TypeRevoke,
			TargetOrigin: record.TargetOrigin,
			Sender:       actor,
			SessionID:    record.ID,
		},
	}
	if _, err := s.inbox.Enqueue(ctx, record.Recipient, item, ttl); err != nil {
		return err
	}

	now := time.Now().UTC()
	record.RevokedAt = &now
	return s.writeRecord(ctx, record, ttl)
}

// Restore re-enqueues the original share to the recipient. It fails with gone
// when the session is about to expire and with conflict when the original
// ciphertext was not retained.
func (s *Service) Restore(ctx context.Context, actor, sessionID string) error {
	record, err := s.loadOwned(ctx, actor, sessionID)
	if err != nil {
		return err
	}

	ttlLeft := time.Until(record.ExpiresAt)
	if ttlLeft <= minActionTTL {
		return errors.NewGoneError("session expired", nil)
	}
	if record.Cipher == "" {
		return errors.NewConflictError("session has no payload to restore", nil)
	}

	item := &inbox.Item{
		Cipher: record.Cipher,
		Alg:    record.Alg,
		Cmp:    record.Cmp,
		Meta: &inbox.Meta{
			Type:               inbox.TypeShare,
			TargetOrigin:       record.TargetOrigin,
			TargetPath:         record.TargetPath,
			Sender:             record.Sender,
			SessionDurationSec: record.DurationSec,
			SessionID:          record.ID,
		},
	}
	if _, err := s.inbox.Enqueue(ctx, record.Recipient, item, ttlLeft); err != nil {
		return err
	}

	now := time.Now().UTC()
	record.RestoredAt = &now
	return s.writeRecord(ctx, record, ttlLeft)
}

// Accepted marks a session accepted by the recipient. It is idempotent and
// unauthenticated: it only advances a timestamp.
func (s *Service) Accepted(ctx context.Context, sessionID string) error {
	record, err := s.load(ctx, sessionID)
	if err != nil {
		return err
	}
	if record.AcceptedAt != nil {
		return nil
	}

	now := time.Now().UTC()
	record.AcceptedAt = &now
	return s.writeRecord(ctx, record, remainingTTL(record))
}

// Delete removes the session record and its sender index. Only the owning
// sender may delete.
func (s *Service) Delete(ctx context.Context, actor, sessionID string) error {
	record, err := s.loadOwned(ctx, actor, sessionID)
	if err != nil {
		return err
	}

	if err := s.store.Delete(ctx, storage.SessionKey(record.ID)); err != nil {
		return errors.NewInternalError("failed to delete session", err)
	}
	if err := s.store.Delete(ctx, storage.SessionBySenderKey(record.Sender, record.ID)); err != nil {
		return errors.NewInternalError("failed to delete session index", err)
	}
	return nil
}

func (s *Service) load(ctx context.Context, sessionID string) (*Record, error) {
	data, err := s.store.Get(ctx, storage.SessionKey(sessionID))
	if err != nil {
		if err == storage.ErrNotFound {
			return nil, errors.NewNotFoundError("session not found", nil)
		}
		return nil, errors.NewInternalError("failed to load session", err)
	}

	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, errors.NewInternalError("failed to decode session", err)
	}
	return &record, nil
}

func (s *Service) loadOwned(ctx context.Context, actor, sessionID string) (*Record, error) {
	record, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if record.Sender != actor {
		return nil, errors.NewAuthError("session not owned by caller", nil)
	}
	return record, nil
}

// writeRecord persists the record and its sender index with one TTL, keeping
// the pair invariant: both exist with the session's expiry or neither does.
func (s *Service) writeRecord(ctx context.Context, record *Record, ttl time.Duration) error {
	data, err := json.Marshal(record)
	if err != nil {
		return errors.NewInternalError("failed to encode session", err)
	}
	if err := s.store.Set(ctx, storage.SessionKey(record.ID), data, ttl); err != nil {
		return errors.NewInternalError("failed to store session", err)
	}
	if err := s.store.Set(ctx, storage.SessionBySenderKey(record.Sender, record.ID), []byte("1"), ttl); err != nil {
		return errors.NewInternalError("failed to store session index", err)
	}
	return nil
}

// remainingTTL returns the time left on a session, floored at minActionTTL so
// lifecycle writes near expiry still land.
func remainingTTL(record *Record) time.Duration {
	left := time.Until(record.ExpiresAt)
	if left < minActionTTL {
		return minActionTTL
	}
	return left
}
