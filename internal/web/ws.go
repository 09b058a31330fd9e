// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Driftwood Contributors

package web

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/driftwood-mud/driftwood/internal/core"
)

const (
	// wsWriteWait bounds a single frame write; a peer that cannot
	// drain a frame in this long is dead.
	wsWriteWait = 10 * time.Second

	// wsPongWait is how long the peer has to answer a ping.
	wsPongWait = 60 * time.Second

	// wsPingInterval must be under wsPongWait so a healthy peer is
	// always pinged before its deadline lapses.
	wsPingInterval = 30 * time.Second
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Token auth happens before the upgrade; cross-origin browser
	// clients are expected.
	CheckOrigin: func(*http.Request) bool { return true },
}

// handleWSAttach upgrades to WebSocket and goes live: events stream
// out as JSON frames, text frames coming back are client input lines.
func (s *Server) handleWSAttach(w http.ResponseWriter, r *http.Request) {
	lc, err := s.openLive(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	defer s.release(lc)

	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote its own response.
		s.logger.Debug("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	s.metrics.ConnectionsTotal.WithLabelValues("websocket").Inc()
	s.metrics.AttachedClients.WithLabelValues("websocket").Inc()
	defer s.metrics.AttachedClients.WithLabelValues("websocket").Dec()
	s.logger.Info("websocket attached", "player", lc.player.String())

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// One goroutine owns all writes; pings and events share it via wmu.
	var wmu sync.Mutex
	writeEvent := func(event core.Event) error {
		data, err := json.Marshal(event)
		if err != nil {
			return err
		}
		wmu.Lock()
		defer wmu.Unlock()
		if err := conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
			return err
		}
		return conn.WriteMessage(websocket.TextMessage, data)
	}

	go s.wsReadLoop(ctx, cancel, conn, lc)
	go s.wsPingLoop(ctx, conn, &wmu)

	if err := s.pump(ctx, lc, writeEvent); err != nil && ctx.Err() == nil {
		s.logger.Debug("websocket pump ended", "player", lc.player.String(), "error", err)
	}
	s.logger.Info("websocket detached", "player", lc.player.String())
}

// wsReadLoop consumes inbound frames. Each text line is one unit of
// client input; closing it cancels the whole connection.
func (s *Server) wsReadLoop(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, lc *liveConn) {
	defer cancel()

	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		s.engine.Sessions.Touch(lc.player)
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if kind != websocket.TextMessage {
			continue
		}
		s.engine.Sessions.Touch(lc.player)
		for _, line := range strings.Split(strings.TrimRight(string(data), "\n"), "\n") {
			if err := s.engine.Submit(ctx, lc.player, line); err != nil {
				s.logger.Debug("input dispatch failed",
					"player", lc.player.String(),
					"error", err,
				)
			}
		}
	}
}

// wsPingLoop keeps the peer's read deadline alive and reaps dead peers.
func (s *Server) wsPingLoop(ctx context.Context, conn *websocket.Conn, wmu *sync.Mutex) {
	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			wmu.Lock()
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait))
			wmu.Unlock()
			if err != nil {
				// The read loop will notice the dead peer and cancel.
				return
			}
		}
	}
}
