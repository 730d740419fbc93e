// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package storage

import (
	"context"

	"github.com/stacklok/handoff/pkg/logger"
)

// NewNamespaces builds the store bundle for the service. With a Redis URL the
// users, shares and inbox namespaces share one connection under distinct key
// prefixes; without one, a single in-memory store backs all three.
func NewNamespaces(ctx context.Context, redisURL string) (*Namespaces, error) {
	if redisURL == "" {
		logger.Info("no redis URL configured, using in-memory storage")
		mem := NewMemoryStore()
		return &Namespaces{Users: mem, Shares: mem, Inbox: mem}, nil
	}

	// The key families already carry distinct prefixes (user:, inbox:,
	// session:, ...), so one connection serves all three namespaces.
	rs, err := NewRedisStore(ctx, redisURL, "handoff:")
	if err != nil {
		return nil, err
	}

	logger.Info("using redis storage")
	return &Namespaces{Users: rs, Shares: rs, Inbox: rs}, nil
}
