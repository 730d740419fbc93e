// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package v1 contains the versioned HTTP handlers of the handoff API.
package v1

import (
	"encoding/json"
	"net/http"

	"github.com/stacklok/handoff/pkg/errors"
	"github.com/stacklok/handoff/pkg/logger"
)

// errorResponse is the wire shape of every error.
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// writeJSON encodes v as the response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Errorf("failed to encode response: %v", err)
	}
}

// writeError maps an application error to its HTTP status. Internal errors
// are logged in full; the client sees a generic message plus the error text.
func writeError(w http.ResponseWriter, err error) {
	code := errors.Code(err)

	message := err.Error()
	if e, ok := err.(*errors.Error); ok {
		message = e.Message
	}

	if code >= http.StatusInternalServerError {
		logger.Errorf("internal server error: %v", err)
		writeJSON(w, code, errorResponse{Error: "internal server error", Message: message})
		return
	}
	writeJSON(w, code, errorResponse{Error: message})
}

// NotFoundHandler answers unknown routes with the JSON error shape.
func NotFoundHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
}

// MethodNotAllowedHandler answers known routes hit with the wrong verb.
func MethodNotAllowedHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
}

// decodeBody decodes a JSON request body into v.
func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.NewInvalidArgumentError("invalid request body", err)
	}
	return nil
}
