// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Driftwood Contributors

package web

import (
	"context"
	"net"
	"net/http"

	"github.com/driftwood-mud/driftwood/internal/auth"
	"github.com/driftwood-mud/driftwood/internal/value"
)

// loginFunc is the shape shared by auth.Service.Connect and CreatePlayer.
type loginFunc func(ctx context.Context, name, password, userAgent, ipAddress string) (*auth.Session, string, error)

// handleConnect authenticates an existing player. The response carries
// the bearer token in the auth header and a plain-text body whose first
// token is the player's object id.
func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	s.login(w, r, "connect", s.auth.Connect)
}

// handleCreate registers a new player and logs them in.
func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	s.login(w, r, "create", s.auth.CreatePlayer)
}

func (s *Server) login(w http.ResponseWriter, r *http.Request, mode string, authenticate loginFunc) {
	if err := r.ParseForm(); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorBody{Error: "AuthError", Message: "malformed form body"})
		return
	}
	name := r.PostFormValue("player")
	password := r.PostFormValue("password")
	if name == "" {
		s.writeJSON(w, http.StatusBadRequest, errorBody{Error: "AuthError", Message: "player is required"})
		return
	}

	sess, token, err := authenticate(r.Context(), name, password, r.UserAgent(), clientIP(r))
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.logger.Info("player authenticated",
		"mode", mode,
		"player", sess.Player.String(),
	)
	w.Header().Set(AuthTokenHeader, token)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(sess.Player.String() + " " + mode + "\n")); err != nil {
		s.logger.Debug("response write failed", "error", err)
	}
}

// playerOf is a convenience for handlers past requireAuth.
func playerOf(r *http.Request) value.Obj {
	return sessionFrom(r.Context()).Player
}

// clientIP strips the port from the peer address.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
