// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package sessions

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/handoff/pkg/directory"
	"github.com/stacklok/handoff/pkg/errors"
	"github.com/stacklok/handoff/pkg/inbox"
	"github.com/stacklok/handoff/pkg/storage"
)

type testEnv struct {
	store *storage.MemoryStore
	inbox *inbox.Service
	dir   *directory.Service
	svc   *Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := storage.NewMemoryStore(storage.WithCleanupInterval(time.Minute))
	t.Cleanup(func() {
		require.NoError(t, store.Close())
	})

	ibx := inbox.NewService(store)
	dir := directory.NewService(store, nil)
	svc := NewService(store, ibx, dir, Config{
		MaxPayloadBytes: 1024 * 1024,
		DefaultTTL:      10 * time.Minute,
		MaxTTL:          time.Hour,
	})

	env := &testEnv{store: store, inbox: ibx, dir: dir, svc: svc}
	for _, username := range []string{"alice", "bob"} {
		_, err := dir.Register(context.Background(), username, json.RawMessage(`"k"`), "")
		require.NoError(t, err)
	}
	return env
}

func deliverRequest() *DeliverRequest {
	return &DeliverRequest{
		Recipient:    "bob",
		Cipher:       "Y2lwaA",
		Alg:          "ecdh-hkdf-aesgcm",
		TargetOrigin: "https://app.example.com",
		Sender:       "alice",
		TTLSec:       600,
	}
}

func TestDeliverWritesSessionTwin(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	env := newTestEnv(t)

	result, err := env.svc.Deliver(ctx, deliverRequest())
	require.NoError(t, err)
	assert.NotEmpty(t, result.ID)
	assert.NotEmpty(t, result.SessionID)

	// The inbox item carries the session id and duration.
	items, err := env.inbox.Poll(ctx, "bob", 0)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, result.ID, items[0].ID)
	assert.Equal(t, inbox.TypeShare, items[0].Meta.Type)
	assert.Equal(t, result.SessionID, items[0].Meta.SessionID)
	assert.Equal(t, int64(600), items[0].Meta.SessionDurationSec)
	assert.Equal(t, "/", items[0].Meta.TargetPath)

	// The sender-visible twin and its index both exist.
	sessions, err := env.svc.List(ctx, "alice", 0)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, result.SessionID, sessions[0].ID)
	assert.Equal(t, "bob", sessions[0].Recipient)
	assert.Equal(t, "Y2lwaA", sessions[0].Cipher)
	assert.Nil(t, sessions[0].AcceptedAt)
}

func TestDeliverAnonymousSkipsSession(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	env := newTestEnv(t)

	req := deliverRequest()
	req.Sender = ""
	result, err := env.svc.Deliver(ctx, req)
	require.NoError(t, err)

	// No session record is written for anonymous deliveries.
	_, err = env.store.Get(ctx, storage.SessionKey(result.SessionID))
	assert.Equal(t, storage.ErrNotFound, err)
}

func TestDeliverValidation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	env := newTestEnv(t)

	tests := []struct {
		name    string
		mutate  func(*DeliverRequest)
		wantErr func(error) bool
	}{
		{"invalid recipient", func(r *DeliverRequest) { r.Recipient = "_bad" }, errors.IsInvalidArgument},
		{"empty cipher", func(r *DeliverRequest) { r.Cipher = "" }, errors.IsInvalidArgument},
		{"unknown recipient", func(r *DeliverRequest) { r.Recipient = "nobody" }, errors.IsNotFound},
		{"invalid sender", func(r *DeliverRequest) { r.Sender = "_bad" }, errors.IsInvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			req := deliverRequest()
			tt.mutate(req)
			_, err := env.svc.Deliver(ctx, req)
			require.Error(t, err)
			assert.True(t, tt.wantErr(err))
		})
	}
}

func TestDeliverSenderCannotAliasAnotherIndex(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	env := newTestEnv(t)

	// "alice:junk" would sort under alice's sessionBySender prefix and crowd
	// her listing; the charset check keeps colons out of the index key.
	req := deliverRequest()
	req.Sender = "alice:junk"
	_, err := env.svc.Deliver(ctx, req)
	assert.True(t, errors.IsInvalidArgument(err))

	keys, err := env.store.ListPrefix(ctx, storage.SessionBySenderPrefix("alice"), 0)
	require.NoError(t, err)
	assert.Empty(t, keys)

	sessions, err := env.svc.List(ctx, "alice", 0)
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestRevoke(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	env := newTestEnv(t)

	result, err := env.svc.Deliver(ctx, deliverRequest())
	require.NoError(t, err)

	require.NoError(t, env.svc.Revoke(ctx, "alice", result.SessionID))

	// The recipient sees the original share plus the revoke control message.
	items, err := env.inbox.Poll(ctx, "bob", 0)
	require.NoError(t, err)
	require.Len(t, items, 2)

	var revoke *inbox.PolledItem
	for _, item := range items {
		if item.Meta.Type == inbox.TypeRevoke {
			revoke = item
		}
	}
	require.NotNil(t, revoke)
	assert.Equal(t, result.SessionID, revoke.Meta.SessionID)
	assert.Empty(t, revoke.Cipher)

	sessions, err := env.svc.List(ctx, "alice", 0)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.NotNil(t, sessions[0].RevokedAt)
}

func TestRevokeOwnership(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	env := newTestEnv(t)

	result, err := env.svc.Deliver(ctx, deliverRequest())
	require.NoError(t, err)

	err = env.svc.Revoke(ctx, "bob", result.SessionID)
	assert.True(t, errors.IsAuth(err))

	err = env.svc.Revoke(ctx, "alice", "0000000000000000000000000000000000000000")
	assert.True(t, errors.IsNotFound(err))
}

func TestRestore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	env := newTestEnv(t)

	result, err := env.svc.Deliver(ctx, deliverRequest())
	require.NoError(t, err)

	// Recipient drains the inbox, then the sender restores.
	items, err := env.inbox.Poll(ctx, "bob", 0)
	require.NoError(t, err)
	_, err = env.inbox.Ack(ctx, "bob", []string{items[0].ID})
	require.NoError(t, err)

	require.NoError(t, env.svc.Restore(ctx, "alice", result.SessionID))

	items, err = env.inbox.Poll(ctx, "bob", 0)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, inbox.TypeShare, items[0].Meta.Type)
	assert.Equal(t, "Y2lwaA", items[0].Cipher)
	assert.Equal(t, result.SessionID, items[0].Meta.SessionID)

	sessions, err := env.svc.List(ctx, "alice", 0)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.NotNil(t, sessions[0].RestoredAt)
}

func TestRestoreNearExpiryIsGone(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	env := newTestEnv(t)

	result, err := env.svc.Deliver(ctx, deliverRequest())
	require.NoError(t, err)

	// Rewrite the twin with an expiry inside the action floor.
	var record Record
	data, err := env.store.Get(ctx, storage.SessionKey(result.SessionID))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &record))
	record.ExpiresAt = time.Now().UTC().Add(30 * time.Second)
	data, err = json.Marshal(&record)
	require.NoError(t, err)
	require.NoError(t, env.store.Set(ctx, storage.SessionKey(result.SessionID), data, time.Minute))

	err = env.svc.Restore(ctx, "alice", result.SessionID)
	assert.True(t, errors.IsGone(err))
}

func TestRestoreWithoutPayloadConflicts(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	env := newTestEnv(t)

	result, err := env.svc.Deliver(ctx, deliverRequest())
	require.NoError(t, err)

	var record Record
	data, err := env.store.Get(ctx, storage.SessionKey(result.SessionID))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &record))
	record.Cipher = ""
	data, err = json.Marshal(&record)
	require.NoError(t, err)
	require.NoError(t, env.store.Set(ctx, storage.SessionKey(result.SessionID), data, time.Hour))

	err = env.svc.Restore(ctx, "alice", result.SessionID)
	assert.True(t, errors.IsConflict(err))
}

func TestAcceptedIsIdempotent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	env := newTestEnv(t)

	result, err := env.svc.Deliver(ctx, deliverRequest())
	require.NoError(t, err)

	require.NoError(t, env.svc.Accepted(ctx, result.SessionID))

	sessions, err := env.svc.List(ctx, "alice", 0)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	require.NotNil(t, sessions[0].AcceptedAt)
	first := *sessions[0].AcceptedAt

	// A second accept does not move the timestamp.
	require.NoError(t, env.svc.Accepted(ctx, result.SessionID))
	sessions, err = env.svc.List(ctx, "alice", 0)
	require.NoError(t, err)
	assert.Equal(t, first, *sessions[0].AcceptedAt)

	err = env.svc.Accepted(ctx, "0000000000000000000000000000000000000000")
	assert.True(t, errors.IsNotFound(err))
}

func TestDelete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	env := newTestEnv(t)

	result, err := env.svc.Deliver(ctx, deliverRequest())
	require.NoError(t, err)

	err = env.svc.Delete(ctx, "bob", result.SessionID)
	assert.True(t, errors.IsAuth(err))

	require.NoError(t, env.svc.Delete(ctx, "alice", result.SessionID))

	// Both the record and its index are gone.
	_, err = env.store.Get(ctx, storage.SessionKey(result.SessionID))
	assert.Equal(t, storage.ErrNotFound, err)
	_, err = env.store.Get(ctx, storage.SessionBySenderKey("alice", result.SessionID))
	assert.Equal(t, storage.ErrNotFound, err)

	sessions, err := env.svc.List(ctx, "alice", 0)
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestListLimitAndExpiredIndexEntries(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	env := newTestEnv(t)

	var ids []string
	for i := 0; i < 3; i++ {
		result, err := env.svc.Deliver(ctx, deliverRequest())
		require.NoError(t, err)
		ids = append(ids, result.SessionID)
	}

	sessions, err := env.svc.List(ctx, "alice", 2)
	require.NoError(t, err)
	assert.Len(t, sessions, 2)

	// A dangling index entry (record expired first) is skipped.
	require.NoError(t, env.store.Delete(ctx, storage.SessionKey(ids[0])))
	sessions, err = env.svc.List(ctx, "alice", 0)
	require.NoError(t, err)
	assert.Len(t, sessions, 2)

	_, err = env.svc.List(ctx, "_bad", 0)
	assert.True(t, errors.IsInvalidArgument(err))
}
