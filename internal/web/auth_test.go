// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Driftwood Contributors

package web

import (
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthConnect(t *testing.T) {
	g := newGateway(t)

	resp, err := http.PostForm(g.ts.URL+"/auth/connect", url.Values{
		"player":   {"Gandalf"},
		"password": {wizardPassword},
	})
	require.NoError(t, err)
	body := readBody(t, resp)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(AuthTokenHeader))
	// The body's first token is the player's object id.
	assert.Equal(t, "#2", strings.Fields(body)[0])
	assert.Contains(t, body, "connect")
}

func TestAuthConnectBadPassword(t *testing.T) {
	g := newGateway(t)

	resp, err := http.PostForm(g.ts.URL+"/auth/connect", url.Values{
		"player":   {"Gandalf"},
		"password": {"speak-friend"},
	})
	require.NoError(t, err)
	readBody(t, resp)

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Empty(t, resp.Header.Get(AuthTokenHeader))
}

func TestAuthConnectMissingPlayer(t *testing.T) {
	g := newGateway(t)

	resp, err := http.PostForm(g.ts.URL+"/auth/connect", url.Values{
		"password": {wizardPassword},
	})
	require.NoError(t, err)
	readBody(t, resp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAuthCreate(t *testing.T) {
	g := newGateway(t)

	resp, err := http.PostForm(g.ts.URL+"/auth/create", url.Values{
		"player":   {"Frodo"},
		"password": {"the-precious"},
	})
	require.NoError(t, err)
	body := readBody(t, resp)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(AuthTokenHeader))
	// The new player gets the next object id.
	assert.Equal(t, "#6", strings.Fields(body)[0])
	assert.Contains(t, body, "create")

	// The fresh credentials work for a regular connect.
	g.connect(t, "Frodo", "the-precious")
}

func TestAuthCreateNameTaken(t *testing.T) {
	g := newGateway(t)

	resp, err := http.PostForm(g.ts.URL+"/auth/create", url.Values{
		"player":   {"Gandalf"},
		"password": {"whatever"},
	})
	require.NoError(t, err)
	readBody(t, resp)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestRequireAuthMissingToken(t *testing.T) {
	g := newGateway(t)

	resp := g.do(t, http.MethodPost, "/eval", "", "return 1;")
	readBody(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRequireAuthBogusToken(t *testing.T) {
	g := newGateway(t)

	resp := g.do(t, http.MethodPost, "/eval", "not-a-token", "return 1;")
	readBody(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
