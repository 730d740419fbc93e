// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package shares

import (
	"context"
	"encoding/json"
	"time"

	"github.com/stacklok/handoff/pkg/errors"
	"github.com/stacklok/handoff/pkg/storage"
)

// TokenStatus is the externally visible state of a share token.
type TokenStatus int

// Token states. A token is live between Init and the first Consume; consumed
// until its TTL elapses; unknown before Init and after expiry.
const (
	TokenUnknown TokenStatus = iota
	TokenLive
	TokenConsumed
)

// coordRecord is the per-token coordination record.
type coordRecord struct {
	Recipient string    `json:"recipient"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Coordinator serializes the init/status/consume transitions of a share
// token. The consumed transition rides on the store's SetNX, which is
// linearizable per key on both backends: of N concurrent Consume calls for
// one token, exactly one succeeds.
type Coordinator struct {
	store storage.Store
}

// NewCoordinator creates a Coordinator over the given store.
func NewCoordinator(store storage.Store) *Coordinator {
	return &Coordinator{store: store}
}

// Init registers a live token. It conflicts if the token already exists.
func (c *Coordinator) Init(ctx context.Context, token, recipient string, ttl time.Duration) error {
	record := coordRecord{
		Recipient: recipient,
		ExpiresAt: time.Now().UTC().Add(ttl),
	}
	data, err := json.Marshal(&record)
	if err != nil {
		return errors.NewInternalError("failed to encode token record", err)
	}

	ok, err := c.store.SetNX(ctx, storage.CoordKey(token), data, ttl)
	if err != nil {
		return errors.NewInternalError("failed to init token", err)
	}
	if !ok {
		return errors.NewConflictError("token already exists", nil)
	}
	return nil
}

// Status returns the current state of a token.
func (c *Coordinator) Status(ctx context.Context, token string) (TokenStatus, error) {
	if _, err := c.store.Get(ctx, storage.CoordKey(token)); err != nil {
		if err == storage.ErrNotFound {
			return TokenUnknown, nil
		}
		return TokenUnknown, errors.NewInternalError("failed to load token", err)
	}

	_, err := c.store.Get(ctx, storage.CoordConsumedKey(token))
	if err == storage.ErrNotFound {
		return TokenLive, nil
	}
	if err != nil {
		return TokenUnknown, errors.NewInternalError("failed to load token marker", err)
	}
	return TokenConsumed, nil
}

// Consume performs the single-use transition. The consumed marker is written
// with SetNX so the transition is monotonic and serialized per token: a second
// Consume, concurrent or not, observes the marker and fails with gone.
func (c *Coordinator) Consume(ctx context.Context, token string) error {
	data, err := c.store.Get(ctx, storage.CoordKey(token))
	if err != nil {
		if err == storage.ErrNotFound {
			return errors.NewNotFoundError("unknown token", nil)
		}
		return errors.NewInternalError("failed to load token", err)
	}

	var record coordRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return errors.NewInternalError("failed to decode token record", err)
	}

	// The marker carries the remaining TTL so it answers 410 exactly as long
	// as the token record itself would have lived.
	ttl := time.Until(record.ExpiresAt)
	if ttl <= 0 {
		ttl = time.Second
	}

	ok, err := c.store.SetNX(ctx, storage.CoordConsumedKey(token), []byte("1"), ttl)
	if err != nil {
		return errors.NewInternalError("failed to consume token", err)
	}
	if !ok {
		return errors.NewGoneError("token already consumed", nil)
	}
	return nil
}
