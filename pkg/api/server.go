// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package api contains the REST API for handoff.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	v1 "github.com/stacklok/handoff/pkg/api/v1"
	"github.com/stacklok/handoff/pkg/config"
	"github.com/stacklok/handoff/pkg/directory"
	"github.com/stacklok/handoff/pkg/inbox"
	"github.com/stacklok/handoff/pkg/requests"
	"github.com/stacklok/handoff/pkg/sessions"
	"github.com/stacklok/handoff/pkg/shares"
	"github.com/stacklok/handoff/pkg/storage"
	"github.com/stacklok/handoff/pkg/telemetry"
)

// middlewareTimeout bounds a single request end to end.
const middlewareTimeout = 30 * time.Second

// NewRouter assembles the services and the HTTP surface over the given
// storage namespaces.
func NewRouter(cfg *config.Config, stores *storage.Namespaces) http.Handler {
	dir := directory.NewService(stores.Users, cfg.AdminUsers)

	coord := shares.NewCoordinator(stores.Shares)
	shareSvc := shares.NewService(stores.Shares, coord, dir, shares.Config{
		MaxPayloadBytes: cfg.MaxPayloadBytes,
		DefaultTTL:      cfg.DefaultTTL,
		MaxTTL:          cfg.MaxTTL,
	})
	inboxSvc := inbox.NewService(stores.Inbox)
	sessionSvc := sessions.NewService(stores.Shares, inboxSvc, dir, sessions.Config{
		MaxPayloadBytes: cfg.MaxPayloadBytes,
		DefaultTTL:      cfg.DefaultTTL,
		MaxTTL:          cfg.MaxTTL,
	})
	requestSvc := requests.NewService(stores.Shares, dir)

	metrics := telemetry.NewMetrics()

	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Timeout(middlewareTimeout),
		corsMiddleware(cfg.AllowedOrigins),
		metrics.Middleware,
	)

	r.NotFound(v1.NotFoundHandler)
	r.MethodNotAllowed(v1.MethodNotAllowedHandler)

	r.Get("/session/{token}", landingHandler)
	r.Get("/health", healthHandler)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	routers := map[string]http.Handler{
		"/v1/users":    v1.UsersRouter(dir),
		"/v1/shares":   v1.SharesRouter(shareSvc, cfg.BaseURL),
		"/v1/inbox":    v1.InboxRouter(inboxSvc, sessionSvc),
		"/v1/sessions": v1.SessionsRouter(sessionSvc, dir),
		"/v1/requests": v1.RequestsRouter(requestSvc, dir),
	}
	for prefix, router := range routers {
		r.Mount(prefix, router)
	}

	return r
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}
