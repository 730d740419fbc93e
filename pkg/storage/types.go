// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package storage provides the key-value abstraction backing the user
// directory, share store and inbox store, with per-entry TTLs.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a key does not exist or has expired.
var ErrNotFound = errors.New("key not found")

// Store is a TTL-aware key-value store. A TTL of zero means the entry never
// expires.
type Store interface {
	// Get returns the value for key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set writes key to value with the given TTL.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// SetNX writes key to value only if the key does not already exist.
	// It reports whether the write happened. The write is linearizable: of
	// any number of concurrent callers, exactly one observes true.
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// ListPrefix returns up to limit keys starting with prefix. Order is
	// unspecified.
	ListPrefix(ctx context.Context, prefix string, limit int) ([]string, error)

	// Close releases any resources held by the store.
	Close() error
}

// Namespaces bundles the logical stores used by the service. Inbox may alias
// Shares; inbox keys carry an "inbox:" prefix which cannot collide with
// 48-hex share tokens.
type Namespaces struct {
	// Users holds user records. Entries have no TTL.
	Users Store

	// Shares holds share payloads, coordinator records, session records,
	// sender indexes and access requests. All entries carry TTLs.
	Shares Store

	// Inbox holds inbox items.
	Inbox Store
}

// Close closes the distinct underlying stores.
func (n *Namespaces) Close() error {
	var errs []error
	seen := map[Store]bool{}
	for _, s := range []Store{n.Users, n.Shares, n.Inbox} {
		if s == nil || seen[s] {
			continue
		}
		seen[s] = true
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
