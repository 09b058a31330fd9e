// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Driftwood Contributors

package core

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/driftwood-mud/driftwood/internal/value"
)

// AttachSession is a player's live presence: the set of attached
// connections and the history boundary tagged when a connection
// attaches to an otherwise idle session.
type AttachSession struct {
	Player       value.Obj
	Connections  []ulid.ULID
	Boundary     ulid.ULID
	LastActivity time.Time
}

// SeenLive reports whether a live event should be pushed to this
// session. Events at or before the boundary were already served as
// history.
func (s *AttachSession) SeenLive(eventID ulid.ULID) bool {
	return eventID.Compare(s.Boundary) > 0
}

func copyAttachSession(s *AttachSession) *AttachSession {
	connections := make([]ulid.ULID, len(s.Connections))
	copy(connections, s.Connections)
	return &AttachSession{
		Player:       s.Player,
		Connections:  connections,
		Boundary:     s.Boundary,
		LastActivity: s.LastActivity,
	}
}

// SessionManager tracks attach sessions per player.
type SessionManager struct {
	mu       sync.RWMutex
	log      EventLog
	sessions map[value.Obj]*AttachSession
}

// NewSessionManager creates a session manager over the event log.
func NewSessionManager(log EventLog) *SessionManager {
	return &SessionManager{
		log:      log,
		sessions: make(map[value.Obj]*AttachSession),
	}
}

// Attach registers a connection for a player. Attaching to a session
// with no connections tags the history boundary: the newest event ID
// at attach time. Live delivery then skips everything at or before it,
// so a client that replays history and goes live never sees an event
// twice, even after a long detach.
func (sm *SessionManager) Attach(ctx context.Context, player value.Obj, connID ulid.ULID) (*AttachSession, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.attachLocked(ctx, player, connID)
}

func (sm *SessionManager) attachLocked(ctx context.Context, player value.Obj, connID ulid.ULID) (*AttachSession, error) {
	session, exists := sm.sessions[player]
	if !exists || len(session.Connections) == 0 {
		// A fresh attach, or the first reattach after a detach, tags
		// the boundary at the newest event. Anything older reaches the
		// client through history, never the live feed.
		boundary, err := sm.log.LastEventID(ctx, player)
		if err != nil && !errors.Is(err, ErrStreamEmpty) {
			return nil, oops.Code("SESSION_BOUNDARY_FAILED").
				With("player", player.String()).
				Wrap(err)
		}
		if !exists {
			session = &AttachSession{
				Player:      player,
				Connections: make([]ulid.ULID, 0, 1),
			}
			sm.sessions[player] = session
		}
		session.Boundary = boundary
	}

	session.Connections = append(session.Connections, connID)
	session.LastActivity = time.Now()
	return copyAttachSession(session), nil
}

// ErrAlreadyAttached is returned by AttachLive while a player has a
// live transport.
var ErrAlreadyAttached = errors.New("player already attached")

// AttachLive is Attach restricted to one live transport per player.
// Realtime transports use it; a second concurrent attach must fail
// rather than split the event stream.
func (sm *SessionManager) AttachLive(ctx context.Context, player value.Obj, connID ulid.ULID) (*AttachSession, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if session, exists := sm.sessions[player]; exists && len(session.Connections) > 0 {
		return nil, oops.Code("SESSION_BUSY").
			With("player", player.String()).
			Wrap(ErrAlreadyAttached)
	}
	return sm.attachLocked(ctx, player, connID)
}

// Detach removes a connection. The session lingers with zero
// connections; the next attach re-tags its boundary.
func (sm *SessionManager) Detach(player value.Obj, connID ulid.ULID) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	session, exists := sm.sessions[player]
	if !exists {
		slog.Debug("detach for unknown session",
			"player", player.String(),
			"conn_id", connID.String(),
		)
		return
	}
	for i, id := range session.Connections {
		if id == connID {
			session.Connections = append(session.Connections[:i], session.Connections[i+1:]...)
			break
		}
	}
}

// Get returns a copy of a player's session, or nil.
func (sm *SessionManager) Get(player value.Obj) *AttachSession {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	session, exists := sm.sessions[player]
	if !exists {
		return nil
	}
	return copyAttachSession(session)
}

// Touch refreshes a session's activity timestamp.
func (sm *SessionManager) Touch(player value.Obj) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if session, exists := sm.sessions[player]; exists {
		session.LastActivity = time.Now()
	}
}

// End removes a player's session entirely.
func (sm *SessionManager) End(player value.Obj) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if _, exists := sm.sessions[player]; !exists {
		return oops.Code("SESSION_NOT_FOUND").
			With("player", player.String()).
			Errorf("no session for player %s", player)
	}
	delete(sm.sessions, player)
	return nil
}

// Active returns copies of all sessions with at least one connection.
func (sm *SessionManager) Active() []*AttachSession {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	out := make([]*AttachSession, 0, len(sm.sessions))
	for _, session := range sm.sessions {
		if len(session.Connections) > 0 {
			out = append(out, copyAttachSession(session))
		}
	}
	return out
}
