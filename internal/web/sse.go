// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Driftwood Contributors

package web

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/driftwood-mud/driftwood/internal/core"
)

// handleSSEAttach streams live events as server-sent events. SSE is
// receive-only; input still goes through POST /eval or a WS session.
// Event ids double as SSE ids, so EventSource reconnects carry
// Last-Event-ID for the client's own bookkeeping.
func (s *Server) handleSSEAttach(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeJSON(w, http.StatusInternalServerError, errorBody{
			Error:   "TransportError",
			Message: "streaming unsupported",
		})
		return
	}

	lc, err := s.openLive(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	defer s.release(lc)

	s.metrics.ConnectionsTotal.WithLabelValues("sse").Inc()
	s.metrics.AttachedClients.WithLabelValues("sse").Inc()
	defer s.metrics.AttachedClients.WithLabelValues("sse").Dec()
	s.logger.Info("sse attached", "player", lc.player.String())

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	writeEvent := func(event core.Event) error {
		data, err := json.Marshal(event)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "id: %s\ndata: %s\n\n", event.ID, data); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}

	// r.Context is cancelled when the client goes away.
	if err := s.pump(r.Context(), lc, writeEvent); err != nil && r.Context().Err() == nil {
		s.logger.Debug("sse pump ended", "player", lc.player.String(), "error", err)
	}
	s.logger.Info("sse detached", "player", lc.player.String())
}
