// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package errors

import (
	stderrors "errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorFormatting(t *testing.T) {
	t.Parallel()

	cause := stderrors.New("boom")
	err := NewInternalError("failed to store share", cause)
	assert.Equal(t, "internal: failed to store share: boom", err.Error())
	assert.ErrorIs(t, err, cause)

	err = NewNotFoundError("unknown token", nil)
	assert.Equal(t, "not_found: unknown token", err.Error())
}

func TestPredicates(t *testing.T) {
	t.Parallel()

	assert.True(t, IsInvalidArgument(NewInvalidArgumentError("x", nil)))
	assert.True(t, IsAuth(NewAuthError("x", nil)))
	assert.True(t, IsNotFound(NewNotFoundError("x", nil)))
	assert.True(t, IsGone(NewGoneError("x", nil)))
	assert.True(t, IsConflict(NewConflictError("x", nil)))
	assert.True(t, IsInternal(NewInternalError("x", nil)))

	assert.False(t, IsNotFound(NewGoneError("x", nil)))
	assert.False(t, IsNotFound(stderrors.New("plain")))
}

func TestCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid argument", NewInvalidArgumentError("x", nil), http.StatusBadRequest},
		{"auth", NewAuthError("x", nil), http.StatusForbidden},
		{"not found", NewNotFoundError("x", nil), http.StatusNotFound},
		{"gone", NewGoneError("x", nil), http.StatusGone},
		{"conflict", NewConflictError("x", nil), http.StatusConflict},
		{"internal", NewInternalError("x", nil), http.StatusInternalServerError},
		{"plain error", stderrors.New("x"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Code(tt.err))
		})
	}
}
