// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package directory

import (
	"context"
	"encoding/json"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/handoff/pkg/errors"
	"github.com/stacklok/handoff/pkg/storage"
)

func newTestService(t *testing.T, adminUsers ...string) *Service {
	t.Helper()
	store := storage.NewMemoryStore(storage.WithCleanupInterval(time.Minute))
	t.Cleanup(func() {
		require.NoError(t, store.Close())
	})
	return NewService(store, adminUsers)
}

func TestRegisterFirstClaim(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := newTestService(t)

	result, err := svc.Register(ctx, "bob", json.RawMessage(`"PUBK-bob"`), "")
	require.NoError(t, err)
	assert.Equal(t, "bob", result.Username)

	// The bearer secret is URL-safe base64 without padding, >= 24 bytes of entropy.
	assert.Regexp(t, regexp.MustCompile(`^[A-Za-z0-9_-]{32,}$`), result.AuthSecret)

	user, err := svc.Get(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, json.RawMessage(`"PUBK-bob"`), user.PublicKey)
	assert.NotEmpty(t, user.AuthHash)
	assert.False(t, user.UpdatedAt.IsZero())
}

func TestRegisterRotation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := newTestService(t)

	first, err := svc.Register(ctx, "alice", json.RawMessage(`"PUBK1"`), "")
	require.NoError(t, err)

	// Wrong secret leaves the record unchanged.
	_, err = svc.Register(ctx, "alice", json.RawMessage(`"PUBK2"`), "wrong")
	require.Error(t, err)
	assert.True(t, errors.IsAuth(err))

	user, err := svc.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, json.RawMessage(`"PUBK1"`), user.PublicKey)

	// Missing secret is also rejected.
	_, err = svc.Register(ctx, "alice", json.RawMessage(`"PUBK2"`), "")
	assert.True(t, errors.IsAuth(err))

	// Correct secret rotates the key and does not re-disclose the secret.
	result, err := svc.Register(ctx, "alice", json.RawMessage(`"PUBK2"`), first.AuthSecret)
	require.NoError(t, err)
	assert.Empty(t, result.AuthSecret)

	user, err = svc.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, json.RawMessage(`"PUBK2"`), user.PublicKey)
}

func TestRegisterConcurrentFirstClaim(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := newTestService(t)

	const callers = 64
	start := make(chan struct{})
	results := make(chan *RegisterResult, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			result, err := svc.Register(ctx, "dave", json.RawMessage(`"k"`), "")
			if err != nil {
				// Losers hold no secret, so they fail the rotation path.
				assert.True(t, errors.IsAuth(err), "unexpected error: %v", err)
				return
			}
			results <- result
		}()
	}
	close(start)
	wg.Wait()
	close(results)

	// Exactly one caller claims the username and is told its secret.
	var secrets []string
	for result := range results {
		require.NotEmpty(t, result.AuthSecret)
		secrets = append(secrets, result.AuthSecret)
	}
	require.Len(t, secrets, 1, "exactly one first registration must win")
	assert.NoError(t, svc.Authenticate(ctx, "dave", secrets[0]))
}

func TestRegisterValidation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := newTestService(t)

	_, err := svc.Register(ctx, "_bad", json.RawMessage(`"k"`), "")
	assert.True(t, errors.IsInvalidArgument(err))

	_, err = svc.Register(ctx, "bob", nil, "")
	assert.True(t, errors.IsInvalidArgument(err))
}

func TestGetUnknownUser(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := newTestService(t)

	_, err := svc.Get(ctx, "nobody")
	assert.True(t, errors.IsNotFound(err))

	_, err = svc.Get(ctx, "!bad")
	assert.True(t, errors.IsInvalidArgument(err))
}

func TestAuthenticate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := newTestService(t)

	result, err := svc.Register(ctx, "carol", json.RawMessage(`"k"`), "")
	require.NoError(t, err)

	assert.NoError(t, svc.Authenticate(ctx, "carol", result.AuthSecret))
	assert.True(t, errors.IsAuth(svc.Authenticate(ctx, "carol", "wrong")))
	assert.True(t, errors.IsAuth(svc.Authenticate(ctx, "carol", "")))
	// Unknown users fail the same way as wrong secrets.
	assert.True(t, errors.IsAuth(svc.Authenticate(ctx, "nobody", "secret")))
}

func TestIsAdminUser(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		adminUsers []string
		username   string
		want       bool
	}{
		{"empty list admits everyone", nil, "bob", true},
		{"wildcard admits everyone", []string{"*"}, "bob", true},
		{"member", []string{"alice", "bob"}, "bob", true},
		{"non-member", []string{"alice"}, "bob", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			svc := newTestService(t, tt.adminUsers...)
			assert.Equal(t, tt.want, svc.IsAdminUser(tt.username))
		})
	}
}

func TestAuthenticateAdmin(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := newTestService(t, "alice")

	aliceSecret, err := svc.Register(ctx, "alice", json.RawMessage(`"k"`), "")
	require.NoError(t, err)
	bobSecret, err := svc.Register(ctx, "bob", json.RawMessage(`"k"`), "")
	require.NoError(t, err)

	assert.NoError(t, svc.AuthenticateAdmin(ctx, "alice", aliceSecret.AuthSecret))
	assert.True(t, errors.IsAuth(svc.AuthenticateAdmin(ctx, "bob", bobSecret.AuthSecret)))
	assert.True(t, errors.IsAuth(svc.AuthenticateAdmin(ctx, "alice", "wrong")))
}

func TestExists(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := newTestService(t)

	exists, err := svc.Exists(ctx, "bob")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = svc.Register(ctx, "bob", json.RawMessage(`"k"`), "")
	require.NoError(t, err)

	exists, err = svc.Exists(ctx, "bob")
	require.NoError(t, err)
	assert.True(t, exists)
}
