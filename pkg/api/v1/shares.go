// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package v1

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/stacklok/handoff/pkg/shares"
)

// SharesRoutes defines the routes of the single-use share channel.
type SharesRoutes struct {
	shares  *shares.Service
	baseURL string
}

// SharesRouter creates the router for share creation, fetch and consumption.
// baseURL may be empty, in which case share URLs are derived from the request.
func SharesRouter(svc *shares.Service, baseURL string) http.Handler {
	routes := SharesRoutes{shares: svc, baseURL: baseURL}

	r := chi.NewRouter()
	r.NotFound(NotFoundHandler)
	r.MethodNotAllowed(MethodNotAllowedHandler)
	r.Post("/", routes.createShare)
	r.Get("/{token}", routes.getShare)
	r.Post("/{token}/consume", routes.consumeShare)

	return r
}

type createShareRequest struct {
	Recipient string       `json:"recipient"`
	Cipher    string       `json:"cipher"`
	Alg       string       `json:"alg,omitempty"`
	Cmp       string       `json:"cmp,omitempty"`
	Meta      *shares.Meta `json:"meta,omitempty"`
	TTLSec    int64        `json:"ttlSec,omitempty"`
}

type createShareResponse struct {
	Token     string    `json:"token"`
	ShareURL  string    `json:"shareUrl"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// createShare stores a ciphertext and returns its single-use link.
func (s *SharesRoutes) createShare(w http.ResponseWriter, r *http.Request) {
	var req createShareRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	result, err := s.shares.Create(r.Context(), &shares.CreateRequest{
		Recipient: req.Recipient,
		Cipher:    req.Cipher,
		Alg:       req.Alg,
		Cmp:       req.Cmp,
		Meta:      req.Meta,
		TTLSec:    req.TTLSec,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, createShareResponse{
		Token:     result.Token,
		ShareURL:  fmt.Sprintf("%s/session/%s", s.requestBaseURL(r), result.Token),
		ExpiresAt: result.ExpiresAt,
	})
}

type getShareResponse struct {
	Token  string       `json:"token"`
	Cipher string       `json:"cipher"`
	Alg    string       `json:"alg,omitempty"`
	Cmp    string       `json:"cmp,omitempty"`
	Meta   *shares.Meta `json:"meta,omitempty"`
}

// getShare returns a live share without consuming it.
func (s *SharesRoutes) getShare(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	result, err := s.shares.Fetch(r.Context(), token)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, getShareResponse{
		Token:  result.Token,
		Cipher: result.Cipher,
		Alg:    result.Alg,
		Cmp:    result.Cmp,
		Meta:   result.Meta,
	})
}

// consumeShare performs the single-use transition. Success is a bare 204; a
// second consume answers 410.
func (s *SharesRoutes) consumeShare(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	if err := s.shares.Consume(r.Context(), token); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// requestBaseURL prefers the configured base URL and falls back to the
// request's own origin.
func (s *SharesRoutes) requestBaseURL(r *http.Request) string {
	if s.baseURL != "" {
		return s.baseURL
	}
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}
