// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package v1

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/stacklok/handoff/pkg/directory"
	"github.com/stacklok/handoff/pkg/requests"
)

// RequestsRoutes defines the routes of the access-request channel.
type RequestsRoutes struct {
	requests *requests.Service
	dir      *directory.Service
}

// RequestsRouter creates the router for access-request creation, polling and
// acknowledgement.
func RequestsRouter(req *requests.Service, dir *directory.Service) http.Handler {
	routes := RequestsRoutes{requests: req, dir: dir}

	r := chi.NewRouter()
	r.NotFound(NotFoundHandler)
	r.MethodNotAllowed(MethodNotAllowedHandler)
	r.Post("/", routes.createRequest)
	r.Get("/poll", routes.pollRequests)
	r.Post("/ack", routes.ackRequests)

	return r
}

type createRequestRequest struct {
	Username    string `json:"username"`
	AuthSecret  string `json:"authSecret"`
	Origin      string `json:"origin"`
	URL         string `json:"url,omitempty"`
	TargetAdmin string `json:"targetAdmin"`
}

type createRequestResponse struct {
	ID string `json:"id"`
}

// createRequest stores an authenticated credential request for an admin.
func (s *RequestsRoutes) createRequest(w http.ResponseWriter, r *http.Request) {
	var req createRequestRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	if err := s.dir.Authenticate(r.Context(), req.Username, req.AuthSecret); err != nil {
		writeError(w, err)
		return
	}

	id, err := s.requests.Create(r.Context(), req.Username, req.Origin, req.URL, req.TargetAdmin)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, createRequestResponse{ID: id})
}

type pollRequestsResponse struct {
	Items []*requests.Request `json:"items"`
}

// pollRequests returns the pending requests visible to the polling admin.
func (s *RequestsRoutes) pollRequests(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	username := q.Get("username")
	authSecret := q.Get("authSecret")
	limit, _ := strconv.Atoi(q.Get("limit"))

	if err := s.dir.AuthenticateAdmin(r.Context(), username, authSecret); err != nil {
		writeError(w, err)
		return
	}

	items, err := s.requests.Poll(r.Context(), username, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pollRequestsResponse{Items: items})
}

type ackRequestsRequest struct {
	Username   string   `json:"username"`
	AuthSecret string   `json:"authSecret"`
	IDs        []string `json:"ids"`
}

// ackRequests deletes handled requests by id.
func (s *RequestsRoutes) ackRequests(w http.ResponseWriter, r *http.Request) {
	var req ackRequestsRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	if err := s.dir.AuthenticateAdmin(r.Context(), req.Username, req.AuthSecret); err != nil {
		writeError(w, err)
		return
	}

	deleted, err := s.requests.Ack(r.Context(), req.IDs)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ackResponse{OK: true, Deleted: deleted})
}
