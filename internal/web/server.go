// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Driftwood Contributors

// Package web is the RPC and realtime gateway. It exposes the world
// over REST (auth, verbs, properties, eval, history, presentations)
// and streams live events over WebSocket, SSE, and WebRTC data
// channels with identical wire semantics.
package web

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/driftwood-mud/driftwood/internal/auth"
	"github.com/driftwood-mud/driftwood/internal/core"
)

// AuthTokenHeader carries the bearer token on authenticated requests.
const AuthTokenHeader = "X-Moor-Auth-Token"

// Server routes gateway requests onto the engine and auth service.
type Server struct {
	engine  *core.Engine
	auth    *auth.Service
	logger  *slog.Logger
	metrics *Metrics
}

// NewServer creates a gateway server and registers its metrics.
func NewServer(engine *core.Engine, authSvc *auth.Service, logger *slog.Logger, reg prometheus.Registerer) *Server {
	m := NewMetrics(reg)
	engine.Broadcast.SetDropHook(func(core.Event) {
		m.EventsDropped.Inc()
	})
	return &Server{
		engine:  engine,
		auth:    authSvc,
		logger:  logger,
		metrics: m,
	}
}

// Router builds the gateway's route tree.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(s.countRequests)

	r.Post("/auth/connect", s.handleConnect)
	r.Post("/auth/create", s.handleCreate)
	r.Get("/welcome", s.handleWelcome)

	// Attach transports carry the token in the path because browser
	// WebSocket and EventSource clients cannot set headers.
	r.Get("/ws/attach/{mode}/{token}", s.handleWSAttach)
	r.Get("/sse/attach/{mode}/{token}", s.handleSSEAttach)

	r.Group(func(r chi.Router) {
		r.Use(s.requireAuth)

		r.Get("/verbs/{curie}", s.handleListVerbs)
		r.Get("/verbs/{curie}/{verb}", s.handleGetVerb)
		r.Post("/verbs/{curie}/{verb}", s.handleProgramVerb)
		r.Delete("/verbs/{curie}/{verb}", s.handleDeleteVerb)
		r.Post("/verbs/{curie}/{verb}/invoke", s.handleInvokeVerb)

		r.Get("/properties/{curie}", s.handleListProperties)
		r.Get("/properties/{curie}/{name}", s.handleGetProperty)
		r.Post("/properties/{curie}/{name}", s.handleSetProperty)
		r.Delete("/properties/{curie}/{name}", s.handleDeleteProperty)

		r.Post("/eval", s.handleEval)

		r.Get("/api/history", s.handleHistory)
		r.Get("/api/presentations", s.handleListPresentations)
		r.Delete("/api/presentations/{id}", s.handleDismissPresentation)

		r.Post("/rtc/offer", s.handleRTCOffer)
	})

	return r
}

// Handler returns the router as a plain http.Handler.
func (s *Server) Handler() http.Handler {
	return s.Router()
}
