// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Driftwood Contributors

package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/driftwood-mud/driftwood/internal/core"
	"github.com/driftwood-mud/driftwood/internal/value"
	"github.com/driftwood-mud/driftwood/internal/world"
)

// verbInfo is one entry in a verb listing.
type verbInfo struct {
	Names []string `json:"names"`
	Owner string   `json:"owner"`
}

// resolveCurie decodes a CURIE path segment and resolves it as the
// acting player inside the given transaction.
func (s *Server) resolveCurie(ctx context.Context, tx world.Tx, actor value.Obj, curie string) (value.Obj, error) {
	ref, err := world.ParseCurie(curie)
	if err != nil {
		return value.Nothing, err
	}
	return s.engine.World.Resolve(ctx, tx, actor, ref)
}


func (s *Server) handleListVerbs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	player := playerOf(r)

	tx, err := s.engine.World.Begin(ctx)
	if err != nil {
		s.writeError(w, err)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	oid, err := s.resolveCurie(ctx, tx, player, chi.URLParam(r, "curie"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	verbs, err := s.engine.World.ListVerbs(ctx, tx, player, oid)
	if err != nil {
		s.writeError(w, err)
		return
	}

	out := make([]verbInfo, 0, len(verbs))
	for _, v := range verbs {
		out = append(out, verbInfo{Names: v.Names, Owner: v.Owner.String()})
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"verbs": out})
}

func (s *Server) handleGetVerb(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	player := playerOf(r)

	tx, err := s.engine.World.Begin(ctx)
	if err != nil {
		s.writeError(w, err)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	oid, err := s.resolveCurie(ctx, tx, player, chi.URLParam(r, "curie"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	source, err := s.engine.World.VerbSource(ctx, tx, player, oid, chi.URLParam(r, "verb"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"source": source})
}

// handleProgramVerb compiles and installs verb source. A parse failure
// is a successful HTTP exchange whose body carries the errors; the
// stored verb is untouched.
func (s *Server) handleProgramVerb(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	player := playerOf(r)

	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorBody{Error: "TransportError", Message: "unreadable body"})
		return
	}
	source := splitSource(string(body))

	ref, err := world.ParseCurie(chi.URLParam(r, "curie"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	err = s.engine.ProgramVerb(ctx, player, ref, chi.URLParam(r, "verb"), source)
	var compileErr *core.CompileError
	if errors.As(err, &compileErr) {
		s.writeJSON(w, http.StatusOK, map[string]any{
			"errors": []errorBody{{
				Error:   "ParseError",
				Message: compileErr.Parse.Message,
				Line:    compileErr.Parse.Line,
				Column:  compileErr.Parse.Column,
			}},
		})
		return
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{})
}

func (s *Server) handleDeleteVerb(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	player := playerOf(r)

	ref, err := world.ParseCurie(chi.URLParam(r, "curie"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.engine.RemoveVerb(ctx, player, ref, chi.URLParam(r, "verb")); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{})
}

// handleInvokeVerb runs a verb with a JSON argument array and returns
// its result.
func (s *Server) handleInvokeVerb(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	player := playerOf(r)

	var rawArgs []any
	if err := json.NewDecoder(r.Body).Decode(&rawArgs); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorBody{Error: "TransportError", Message: "body must be a JSON array"})
		return
	}
	args := make([]value.Var, 0, len(rawArgs))
	for _, raw := range rawArgs {
		v, err := value.FromJSON(raw)
		if err != nil {
			s.writeJSON(w, http.StatusBadRequest, errorBody{Error: "TransportError", Message: err.Error()})
			return
		}
		args = append(args, v)
	}

	ref, err := world.ParseCurie(chi.URLParam(r, "curie"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	result, err := s.engine.InvokeVerb(ctx, player, ref, chi.URLParam(r, "verb"), args)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"result": result})
}

// splitSource turns a request body into verb source lines. A trailing
// newline does not produce a phantom empty line.
func splitSource(body string) []string {
	body = strings.ReplaceAll(body, "\r\n", "\n")
	body = strings.TrimSuffix(body, "\n")
	if body == "" {
		return nil
	}
	return strings.Split(body, "\n")
}
