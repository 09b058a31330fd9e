// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Driftwood Contributors

package web

import (
	"errors"
	"io"
	"net/http"

	"github.com/driftwood-mud/driftwood/internal/core"
	"github.com/driftwood-mud/driftwood/internal/value"
	"github.com/driftwood-mud/driftwood/internal/vm"
)

// handleEval compiles and runs the request body as a MOO program with
// the caller's permissions. The result encodes as the value's tagged
// JSON, so object references, maps, and errors stay distinguishable
// from plain scalars. An uncaught runtime error comes back as the MOO
// error value it raised.
func (s *Server) handleEval(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	player := playerOf(r)

	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorBody{Error: "TransportError", Message: "unreadable body"})
		return
	}

	result, err := s.engine.Eval(ctx, player, splitSource(string(body)))
	var compileErr *core.CompileError
	if errors.As(err, &compileErr) {
		s.writeJSON(w, http.StatusBadRequest, errorBody{
			Error:   "ParseError",
			Message: compileErr.Parse.Message,
			Line:    compileErr.Parse.Line,
			Column:  compileErr.Parse.Column,
		})
		return
	}
	var raised *vm.RaisedError
	if errors.As(err, &raised) {
		s.metrics.TasksAborted.Inc()
		s.writeJSON(w, http.StatusOK, value.ErrMsg(raised.Err.Code, raised.Err.Message))
		return
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

// handleWelcome serves the login banner as a JSON array of lines. It
// needs no authentication; clients show it before connecting.
func (s *Server) handleWelcome(w http.ResponseWriter, r *http.Request) {
	lines, err := s.engine.Welcome(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	if lines == nil {
		lines = []string{}
	}
	s.writeJSON(w, http.StatusOK, lines)
}
