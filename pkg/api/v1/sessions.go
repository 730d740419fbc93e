// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package v1

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/stacklok/handoff/pkg/directory"
	"github.com/stacklok/handoff/pkg/sessions"
)

// SessionsRoutes defines the routes of the session lifecycle registry.
type SessionsRoutes struct {
	sessions *sessions.Service
	dir      *directory.Service
}

// SessionsRouter creates the router for session listing and lifecycle
// operations. All operations except accepted require an authenticated admin
// who owns the session.
func SessionsRouter(sess *sessions.Service, dir *directory.Service) http.Handler {
	routes := SessionsRoutes{sessions: sess, dir: dir}

	r := chi.NewRouter()
	r.NotFound(NotFoundHandler)
	r.MethodNotAllowed(MethodNotAllowedHandler)
	r.Get("/", routes.listSessions)
	r.Post("/{id}/revoke", routes.revokeSession)
	r.Post("/{id}/restore", routes.restoreSession)
	r.Post("/{id}/accepted", routes.acceptedSession)
	r.Post("/{id}/delete", routes.deleteSession)

	return r
}

type listSessionsResponse struct {
	Sessions []*sessions.Record `json:"sessions"`
}

// listSessions returns the sessions owned by the authenticated sender.
func (s *SessionsRoutes) listSessions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sender := q.Get("sender")
	authSecret := q.Get("authSecret")
	limit, _ := strconv.Atoi(q.Get("limit"))

	if err := s.dir.AuthenticateAdmin(r.Context(), sender, authSecret); err != nil {
		writeError(w, err)
		return
	}

	records, err := s.sessions.List(r.Context(), sender, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listSessionsResponse{Sessions: records})
}

type sessionActionRequest struct {
	Username   string `json:"username"`
	AuthSecret string `json:"authSecret"`
}

type okResponse struct {
	OK bool `json:"ok"`
}

// authenticateAction authenticates the admin named in the request body and
// returns the acting username, or writes the error and returns "".
func (s *SessionsRoutes) authenticateAction(w http.ResponseWriter, r *http.Request) string {
	var req sessionActionRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return ""
	}
	if err := s.dir.AuthenticateAdmin(r.Context(), req.Username, req.AuthSecret); err != nil {
		writeError(w, err)
		return ""
	}
	return req.Username
}

// revokeSession pushes a revoke control message to the recipient.
func (s *SessionsRoutes) revokeSession(w http.ResponseWriter, r *http.Request) {
	actor := s.authenticateAction(w, r)
	if actor == "" {
		return
	}

	if err := s.sessions.Revoke(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

// restoreSession re-enqueues the original share to the recipient.
func (s *SessionsRoutes) restoreSession(w http.ResponseWriter, r *http.Request) {
	actor := s.authenticateAction(w, r)
	if actor == "" {
		return
	}

	if err := s.sessions.Restore(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

// acceptedSession records the recipient's acceptance. Unauthenticated: it
// only advances a timestamp and exposes no data.
func (s *SessionsRoutes) acceptedSession(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Accepted(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

// deleteSession removes the session record and its sender index.
func (s *SessionsRoutes) deleteSession(w http.ResponseWriter, r *http.Request) {
	actor := s.authenticateAction(w, r)
	if actor == "" {
		return
	}

	if err := s.sessions.Delete(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}
