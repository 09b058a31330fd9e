// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Driftwood Contributors

package web

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/driftwood-mud/driftwood/internal/value"
	"github.com/driftwood-mud/driftwood/internal/world"
)

// propertyInfo is one entry in a property listing. Definer names the
// ancestor the property is inherited from; it equals the resolved
// object for locally defined properties.
type propertyInfo struct {
	Name    string    `json:"name"`
	Owner   string    `json:"owner"`
	Definer string    `json:"definer"`
	Value   value.Var `json:"value"`
}

func (s *Server) handleListProperties(w http.ResponseWriter, r *http.Request) {
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
	entries, err := s.engine.World.ListProperties(ctx, tx, player, oid)
	if err != nil {
		s.writeError(w, err)
		return
	}

	out := make([]propertyInfo, 0, len(entries))
	for _, e := range entries {
		out = append(out, propertyInfo{
			Name:    e.Property.Name,
			Owner:   e.Property.Owner.String(),
			Definer: e.Definer.String(),
			Value:   e.Property.Value,
		})
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"properties": out})
}

func (s *Server) handleGetProperty(w http.ResponseWriter, r *http.Request) {
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
	prop, definer, err := s.engine.World.PropertyValue(ctx, tx, player, oid, chi.URLParam(r, "name"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"value":   prop.Value,
		"owner":   prop.Owner.String(),
		"definer": definer.String(),
	})
}

// handleSetProperty writes a property value. The body is
// {"value": <encoded var>}; the property must already be defined
// somewhere on the inheritance chain.
func (s *Server) handleSetProperty(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	player := playerOf(r)

	var body struct {
		Value value.Var `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorBody{Error: "TransportError", Message: err.Error()})
		return
	}

	ref, err := world.ParseCurie(chi.URLParam(r, "curie"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.engine.SetProperty(ctx, player, ref, chi.URLParam(r, "name"), body.Value); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{})
}

func (s *Server) handleDeleteProperty(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	player := playerOf(r)

	ref, err := world.ParseCurie(chi.URLParam(r, "curie"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.engine.RemoveProperty(ctx, player, ref, chi.URLParam(r, "name")); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{})
}
