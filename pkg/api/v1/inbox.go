// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package v1

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/stacklok/handoff/pkg/inbox"
	"github.com/stacklok/handoff/pkg/sessions"
)

// InboxRoutes defines the routes of the recipient inbox channel.
type InboxRoutes struct {
	inbox    *inbox.Service
	sessions *sessions.Service
}

// InboxRouter creates the router for inbox delivery, polling and
// acknowledgement. Polling is unauthenticated by design: confidentiality is
// carried end-to-end by the cipher.
func InboxRouter(ibx *inbox.Service, sess *sessions.Service) http.Handler {
	routes := InboxRoutes{inbox: ibx, sessions: sess}

	r := chi.NewRouter()
	r.NotFound(NotFoundHandler)
	r.MethodNotAllowed(MethodNotAllowedHandler)
	r.Post("/", routes.enqueue)
	r.Get("/poll", routes.poll)
	r.Post("/ack", routes.ack)

	return r
}

type enqueueMeta struct {
	TargetOrigin string `json:"targetOrigin,omitempty"`
	TargetPath   string `json:"targetPath,omitempty"`
	Comment      string `json:"comment,omitempty"`
	Sender       string `json:"sender,omitempty"`
}

type enqueueRequest struct {
	Recipient string       `json:"recipient"`
	Cipher    string       `json:"cipher"`
	Alg       string       `json:"alg,omitempty"`
	Cmp       string       `json:"cmp,omitempty"`
	Meta      *enqueueMeta `json:"meta,omitempty"`
	TTLSec    int64        `json:"ttlSec,omitempty"`
}

type enqueueResponse struct {
	ID        string `json:"id"`
	SessionID string `json:"sessionId"`
}

// enqueue pushes a share into the recipient's inbox and, when a sender is
// named, records the session twin for later lifecycle operations.
func (s *InboxRoutes) enqueue(w http.ResponseWriter, r *http.Request) {
	var req enqueueRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	meta := req.Meta
	if meta == nil {
		meta = &enqueueMeta{}
	}
	result, err := s.sessions.Deliver(r.Context(), &sessions.DeliverRequest{
		Recipient:    req.Recipient,
		Cipher:       req.Cipher,
		Alg:          req.Alg,
		Cmp:          req.Cmp,
		TargetOrigin: meta.TargetOrigin,
		TargetPath:   meta.TargetPath,
		Comment:      meta.Comment,
		Sender:       meta.Sender,
		TTLSec:       req.TTLSec,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, enqueueResponse{
		ID:        result.ID,
		SessionID: result.SessionID,
	})
}

type pollResponse struct {
	Items []*inbox.PolledItem `json:"items"`
}

// poll returns pending items for a recipient.
func (s *InboxRoutes) poll(w http.ResponseWriter, r *http.Request) {
	recipient := r.URL.Query().Get("recipient")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	items, err := s.inbox.Poll(r.Context(), recipient, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pollResponse{Items: items})
}

type ackRequest struct {
	Recipient string   `json:"recipient"`
	IDs       []string `json:"ids"`
}

type ackResponse struct {
	OK      bool `json:"ok"`
	Deleted int  `json:"deleted"`
}

// ack deletes delivered items by id. Unknown ids are counted as deleted so
// retried acks stay idempotent.
func (s *InboxRoutes) ack(w http.ResponseWriter, r *http.Request) {
	var req ackRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	deleted, err := s.inbox.Ack(r.Context(), req.Recipient, req.IDs)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ackResponse{OK: true, Deleted: deleted})
}
