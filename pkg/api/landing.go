// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"fmt"
	"html"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// landingPage is the static page served at /session/<token>. Its only purpose
// is to give the browser extension a navigational target to intercept; the
// token is never inspected server-side.
const landingPage = `<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Handoff session</title>
<style>
body { font-family: system-ui, sans-serif; display: flex; align-items: center; justify-content: center; min-height: 100vh; margin: 0; background: #0f1117; color: #e6e6e6; }
main { text-align: center; }
code { background: #1c1f2a; padding: .2em .5em; border-radius: 4px; }
</style>
</head>
<body>
<main>
<h1>Session handoff</h1>
<p>Share <code>%s&hellip;</code> is ready.</p>
<p>Open this page in a browser with the extension installed to receive the session.</p>
</main>
</body>
</html>
`

// tokenHintLen is how many characters of the token the landing page shows.
const tokenHintLen = 8

// landingHandler serves the share landing page.
func landingHandler(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	hint := token
	if len(hint) > tokenHintLen {
		hint = hint[:tokenHintLen]
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, landingPage, html.EscapeString(hint))
}
