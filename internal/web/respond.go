// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Driftwood Contributors

package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/driftwood-mud/driftwood/internal/auth"
	"github.com/driftwood-mud/driftwood/internal/core"
	"github.com/driftwood-mud/driftwood/internal/vm"
	"github.com/driftwood-mud/driftwood/internal/world"
	"github.com/driftwood-mud/driftwood/pkg/errutil"
)

// errorBody is the JSON error envelope. Kind is one of the taxonomy
// names; clients switch on it, never on Message.
type errorBody struct {
	Error   string   `json:"error"`
	Message string   `json:"message"`
	Code    string   `json:"code,omitempty"`
	Line    int      `json:"line,omitempty"`
	Column  int      `json:"column,omitempty"`
	Context []string `json:"traceback,omitempty"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Debug("response write failed", "error", err)
	}
}

// writeError maps a domain error onto its HTTP status and error kind.
// Permission failures and lookups stay distinguishable end to end.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var raised *vm.RaisedError
	if errors.As(err, &raised) {
		s.metrics.TasksAborted.Inc()
		s.writeJSON(w, http.StatusBadRequest, errorBody{
			Error:   "EvalError",
			Message: raised.Err.Message,
			Code:    string(raised.Err.Code),
			Context: raised.Traceback,
		})
		return
	}

	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		s.writeJSON(w, http.StatusUnauthorized, errorBody{Error: "AuthError", Message: err.Error()})
	case errors.Is(err, auth.ErrLocked):
		s.writeJSON(w, http.StatusTooManyRequests, errorBody{Error: "AuthError", Message: err.Error()})
	case errors.Is(err, auth.ErrNameTaken):
		s.writeJSON(w, http.StatusConflict, errorBody{Error: "AuthError", Message: err.Error()})
	case errors.Is(err, world.ErrPermissionDenied):
		s.writeJSON(w, http.StatusForbidden, errorBody{Error: "PermissionDenied", Message: err.Error()})
	case errors.Is(err, world.ErrAmbiguous):
		s.writeJSON(w, http.StatusNotFound, errorBody{Error: "NotFound", Message: err.Error(), Code: "ambiguous"})
	case errors.Is(err, world.ErrRecycled):
		s.writeJSON(w, http.StatusNotFound, errorBody{Error: "NotFound", Message: err.Error(), Code: "recycled"})
	case errors.Is(err, world.ErrNotFound), errors.Is(err, world.ErrFailedMatch):
		s.writeJSON(w, http.StatusNotFound, errorBody{Error: "NotFound", Message: err.Error()})
	case errors.Is(err, world.ErrInvalidRef):
		s.writeJSON(w, http.StatusBadRequest, errorBody{Error: "NotFound", Message: err.Error(), Code: "invalid_ref"})
	case errors.Is(err, errBadToken):
		s.writeJSON(w, http.StatusUnauthorized, errorBody{Error: "AuthError", Message: err.Error()})
	case errors.Is(err, ErrUnknownAttachMode):
		s.writeJSON(w, http.StatusBadRequest, errorBody{Error: "TransportError", Message: err.Error()})
	case errors.Is(err, core.ErrAlreadyAttached):
		s.writeJSON(w, http.StatusConflict, errorBody{Error: "TransportError", Message: err.Error()})
	case errors.Is(err, ErrUnsupportedClient):
		s.writeJSON(w, http.StatusUpgradeRequired, errorBody{Error: "TransportError", Message: err.Error()})
	default:
		errutil.LogError(s.logger, "request failed", err)
		s.writeJSON(w, http.StatusInternalServerError, errorBody{Error: "TransportError", Message: "internal error"})
	}
}
