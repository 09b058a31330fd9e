// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Driftwood Contributors

package web

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/driftwood-mud/driftwood/internal/auth"
	"github.com/driftwood-mud/driftwood/internal/core"
	"github.com/driftwood-mud/driftwood/internal/value"
	"github.com/driftwood-mud/driftwood/internal/world"
)

const (
	gwSystem value.Obj = 0
	gwRoom   value.Obj = 1
	gwWizard value.Obj = 2
	gwMortal value.Obj = 3
	gwThing  value.Obj = 4
	gwLogin  value.Obj = 5
)

const wizardPassword = "you-shall-not-pass"

// testGateway is an in-memory gateway over a seeded world: #0 system,
// #1 room, #2 wizard "Gandalf", #3 non-programmer "Pippin", #4 a thing
// with a description, #5 the $login object with a welcome banner.
type testGateway struct {
	srv    *Server
	ts     *httptest.Server
	engine *core.Engine
}

func newGateway(t *testing.T) *testGateway {
	t.Helper()
	ctx := context.Background()

	store := world.NewMemStore()
	svc := world.NewService(store)
	hasher := auth.NewArgon2idHasher()

	tx, err := store.Begin(ctx)
	require.NoError(t, err)

	create := func(o *world.Object) value.Obj {
		id, err := tx.CreateObject(ctx, o)
		require.NoError(t, err)
		return id
	}
	create(&world.Object{Name: "System Object", Parent: value.Nothing, Location: value.Nothing, Flags: world.FlagRead})
	room := create(&world.Object{Name: "The Commons", Parent: value.Nothing, Location: value.Nothing, Flags: world.FlagRead | world.FlagWrite})
	create(&world.Object{Name: "Gandalf", Owner: gwWizard, Parent: value.Nothing, Location: room,
		Flags: world.FlagUser | world.FlagWizard | world.FlagProgrammer})
	create(&world.Object{Name: "Pippin", Owner: gwMortal, Parent: value.Nothing, Location: room,
		Flags: world.FlagUser})
	create(&world.Object{Name: "thing", Owner: gwWizard, Parent: value.Nothing, Location: room,
		Flags: world.FlagRead | world.FlagWrite})
	create(&world.Object{Name: "login daemon", Owner: gwWizard, Parent: value.Nothing, Location: value.Nothing,
		Flags: world.FlagRead})

	hash, err := hasher.Hash(wizardPassword)
	require.NoError(t, err)
	require.NoError(t, tx.SetProperty(ctx, gwWizard, &world.Property{
		Name: "password", Value: value.Str(hash), Owner: gwWizard,
	}))
	require.NoError(t, tx.SetProperty(ctx, gwMortal, &world.Property{
		Name: "password", Value: value.Str(hash), Owner: gwMortal,
	}))
	require.NoError(t, tx.SetProperty(ctx, gwThing, &world.Property{
		Name: "description", Value: value.Str("a small gray thing"),
		Owner: gwWizard, Flags: world.PropRead,
	}))
	require.NoError(t, tx.SetProperty(ctx, gwSystem, &world.Property{
		Name: "login", Value: value.Object(gwLogin),
		Owner: gwWizard, Flags: world.PropRead,
	}))
	require.NoError(t, tx.SetProperty(ctx, gwLogin, &world.Property{
		Name:  "welcome_message",
		Value: value.List(value.Str("Welcome to Driftwood."), value.Str("Type `connect <name> <password>'.")),
		Owner: gwWizard, Flags: world.PropRead,
	}))
	require.NoError(t, tx.Commit(ctx))

	engine := core.NewEngine(svc, core.NewMemoryEventLog())
	authSvc := auth.NewService(svc, auth.NewMemorySessionRepo(), hasher, auth.NewLoginLimiter())
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := NewServer(engine, authSvc, logger, prometheus.NewRegistry())

	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)

	return &testGateway{srv: srv, ts: ts, engine: engine}
}

// connect logs a player in and returns the bearer token.
func (g *testGateway) connect(t *testing.T, name, password string) string {
	t.Helper()
	resp, err := http.PostForm(g.ts.URL+"/auth/connect", url.Values{
		"player":   {name},
		"password": {password},
	})
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	token := resp.Header.Get(AuthTokenHeader)
	require.NotEmpty(t, token)
	return token
}

// do issues an authenticated request and returns the response.
func (g *testGateway) do(t *testing.T, method, path, token, body string) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, g.ts.URL+path, reader)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set(AuthTokenHeader, token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(data)
}
