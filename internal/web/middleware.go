// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Driftwood Contributors

package web

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/driftwood-mud/driftwood/internal/auth"
)

type ctxKey int

const sessionKey ctxKey = 0

// sessionFrom returns the authenticated session stored by requireAuth.
func sessionFrom(ctx context.Context) *auth.Session {
	sess, _ := ctx.Value(sessionKey).(*auth.Session)
	return sess
}

// requireAuth validates the bearer token and stashes the session in the
// request context. Missing or expired tokens get a 401 and never reach
// the handler.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get(AuthTokenHeader)
		if token == "" {
			s.writeJSON(w, http.StatusUnauthorized, errorBody{
				Error:   "AuthError",
				Message: "missing " + AuthTokenHeader + " header",
			})
			return
		}
		sess, err := s.auth.Validate(r.Context(), token)
		if err != nil {
			s.writeJSON(w, http.StatusUnauthorized, errorBody{
				Error:   "AuthError",
				Message: "invalid or expired token",
			})
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey, sess)))
	})
}

// statusRecorder captures the response status for metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// countRequests records per-route request counts. Attach routes are
// skipped; the recorder would break the http.Hijacker upgrade, and
// they have their own connection metrics.
func (s *Server) countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet && (strings.HasPrefix(r.URL.Path, "/ws/") || strings.HasPrefix(r.URL.Path, "/sse/")) {
			next.ServeHTTP(w, r)
			return
		}
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		s.metrics.RequestsTotal.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
	})
}
