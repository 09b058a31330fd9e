// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Driftwood Contributors

package web

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oklog/ulid/v2"

	"github.com/driftwood-mud/driftwood/internal/core"
	"github.com/driftwood-mud/driftwood/internal/value"
)

// ErrUnknownAttachMode is returned for an attach path whose mode
// segment is not connect or create.
var ErrUnknownAttachMode = errors.New("attach mode must be connect or create")

// errBadToken is the uniform attach-time auth failure; transports do
// not reveal whether a token was malformed, unknown, or expired.
var errBadToken = errors.New("invalid or expired token")

// liveConn is one attached realtime transport: the player's session
// with its history boundary plus a subscription to their event stream.
type liveConn struct {
	player  value.Obj
	connID  ulid.ULID
	session *core.AttachSession
	sub     *core.Subscription
}

// openLive authenticates an attach request and claims the player's
// single live transport slot. Callers must release the returned conn.
func (s *Server) openLive(r *http.Request) (*liveConn, error) {
	ctx := r.Context()

	mode := chi.URLParam(r, "mode")
	if mode != "connect" && mode != "create" {
		return nil, ErrUnknownAttachMode
	}
	if err := negotiateVersion(r.URL.Query().Get("client_version")); err != nil {
		return nil, err
	}
	sess, err := s.auth.Validate(ctx, chi.URLParam(r, "token"))
	if err != nil {
		return nil, errBadToken
	}

	return s.attachLive(ctx, sess.Player)
}

// attachLive claims the player's live slot and opens their event feed.
func (s *Server) attachLive(ctx context.Context, player value.Obj) (*liveConn, error) {
	connID := core.NewULID()
	attachSess, err := s.engine.Sessions.AttachLive(ctx, player, connID)
	if err != nil {
		return nil, err
	}
	sub, err := s.engine.Broadcast.Subscribe(core.PlayerStream(player))
	if err != nil {
		s.engine.Sessions.Detach(player, connID)
		return nil, err
	}
	return &liveConn{
		player:  player,
		connID:  connID,
		session: attachSess,
		sub:     sub,
	}, nil
}

// release tears the transport down: the subscription closes and the
// session drops to zero connections but keeps its boundary for a
// reconnect. Nothing durable is touched.
func (s *Server) release(lc *liveConn) {
	s.engine.Broadcast.Unsubscribe(lc.sub)
	s.engine.Sessions.Detach(lc.player, lc.connID)
}

// pump forwards live events to sink in generation order. Events at or
// before the session's history boundary are suppressed; the client
// already has them from replay.
func (s *Server) pump(ctx context.Context, lc *liveConn, sink func(core.Event) error) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-lc.sub.C:
			if !ok {
				return nil
			}
			if !lc.session.SeenLive(event.ID) {
				continue
			}
			if err := sink(event); err != nil {
				return err
			}
		}
	}
}
