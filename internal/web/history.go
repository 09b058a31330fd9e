// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Driftwood Contributors

package web

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/driftwood-mud/driftwood/internal/core"
)

// handleHistory pages through the caller's event timeline. until_event
// pages backward from a cursor; since_seconds keeps a trailing window;
// both compose. Refetching the same cursor returns the same page.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	player := playerOf(r)
	q := core.HistoryQuery{}

	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			s.writeJSON(w, http.StatusBadRequest, errorBody{Error: "TransportError", Message: "limit must be a positive integer"})
			return
		}
		q.Limit = n
	}
	if raw := r.URL.Query().Get("since_seconds"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n < 1 {
			s.writeJSON(w, http.StatusBadRequest, errorBody{Error: "TransportError", Message: "since_seconds must be a positive integer"})
			return
		}
		q.SinceSeconds = n
	}
	if raw := r.URL.Query().Get("until_event"); raw != "" {
		id, err := core.ParseULID(raw)
		if err != nil {
			s.writeJSON(w, http.StatusBadRequest, errorBody{Error: "TransportError", Message: "until_event is not a valid event id"})
			return
		}
		q.UntilEvent = id
	}

	page, err := s.engine.Log.History(r.Context(), player, q)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, page)
}

// handleListPresentations snapshots the caller's open presentations.
// The snapshot is idempotent; replaying it after reconnect reproduces
// the same client state.
func (s *Server) handleListPresentations(w http.ResponseWriter, r *http.Request) {
	player := playerOf(r)
	open := s.engine.Presentations.List(player)
	if open == nil {
		open = []core.Presentation{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"presentations": open})
}

// handleDismissPresentation removes a presentation by id. Dismissing an
// unknown id still succeeds; the unpresent event tells any attached
// client to drop it either way.
func (s *Server) handleDismissPresentation(w http.ResponseWriter, r *http.Request) {
	player := playerOf(r)
	if err := s.engine.Unpresent(r.Context(), player, chi.URLParam(r, "id")); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{})
}
