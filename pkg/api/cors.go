// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"net/http"
	"slices"
)

// corsMiddleware applies the configured origin allowlist to every response,
// including errors, and answers preflight requests.
//
// An allowed origin is echoed back with Access-Control-Allow-Credentials set.
// Echoing with credentials is safe only because the allowlist is explicit; a
// literal "*" is never sent alongside credentials.
func corsMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	wildcard := slices.Contains(allowedOrigins, "*")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			switch {
			case wildcard:
				echo := origin
				if echo == "" {
					echo = "*"
				}
				w.Header().Set("Access-Control-Allow-Origin", echo)
				w.Header().Set("Access-Control-Allow-Credentials", "true")
			case origin != "" && slices.Contains(allowedOrigins, origin):
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Credentials", "true")
			}

			if r.Method == http.MethodOptions {
				w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
				requestedHeaders := r.Header.Get("Access-Control-Request-Headers")
				if requestedHeaders == "" {
					requestedHeaders = "content-type"
				}
				w.Header().Set("Access-Control-Allow-Headers", requestedHeaders)
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
