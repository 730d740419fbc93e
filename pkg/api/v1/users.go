// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package v1

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/stacklok/handoff/pkg/directory"
)

// UsersRoutes defines the routes of the identity directory.
type UsersRoutes struct {
	dir *directory.Service
}

// UsersRouter creates the router for user registration and lookup.
func UsersRouter(dir *directory.Service) http.Handler {
	routes := UsersRoutes{dir: dir}

	r := chi.NewRouter()
	r.NotFound(NotFoundHandler)
	r.MethodNotAllowed(MethodNotAllowedHandler)
	r.Get("/{username}", routes.getUser)
	r.Post("/{username}", routes.registerUser)

	return r
}

type getUserResponse struct {
	Username  string          `json:"username"`
	PublicKey json.RawMessage `json:"publicKey"`
}

// getUser returns the public key registered for a username.
func (s *UsersRoutes) getUser(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	user, err := s.dir.Get(r.Context(), username)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, getUserResponse{
		Username:  user.Username,
		PublicKey: user.PublicKey,
	})
}

type registerUserRequest struct {
	PublicKey  json.RawMessage `json:"publicKey"`
	AuthSecret string          `json:"authSecret,omitempty"`
}

type registerUserResponse struct {
	OK       bool   `json:"ok"`
	Username string `json:"username"`
	// AuthSecret is disclosed exactly once, on first registration.
	AuthSecret string `json:"authSecret,omitempty"`
}

// registerUser claims a username or rotates its public key.
func (s *UsersRoutes) registerUser(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	var req registerUserRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	result, err := s.dir.Register(r.Context(), username, req.PublicKey, req.AuthSecret)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, registerUserResponse{
		OK:         true,
		Username:   result.Username,
		AuthSecret: result.AuthSecret,
	})
}
