// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Driftwood Contributors

package web

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftwood-mud/driftwood/internal/core"
)

func (g *testGateway) wsURL(path string) string {
	return "ws" + strings.TrimPrefix(g.ts.URL, "http") + path
}

// dialWS attaches over WebSocket and returns the connection.
func dialWS(t *testing.T, g *testGateway, token string) *websocket.Conn {
	t.Helper()
	conn, resp, err := websocket.DefaultDialer.Dial(g.wsURL("/ws/attach/connect/"+token), nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readEvent reads frames until one decodes as an event, or fails after
// the deadline.
func readEvent(t *testing.T, conn *websocket.Conn) core.Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var event core.Event
	require.NoError(t, event.UnmarshalJSON(data))
	return event
}

func TestWSAttachStreamsLiveEvents(t *testing.T) {
	g := newGateway(t)
	token := g.connect(t, "Gandalf", wizardPassword)
	conn := dialWS(t, g, token)

	require.NoError(t, g.engine.Notify(context.Background(), gwWizard, "a wild event"))

	event := readEvent(t, conn)
	assert.Equal(t, core.EventMessage, event.Kind)
	assert.Equal(t, "a wild event", event.Message)
	assert.Equal(t, gwWizard, event.Player)
}

func TestWSAttachSuppressesHistory(t *testing.T) {
	g := newGateway(t)
	token := g.connect(t, "Gandalf", wizardPassword)

	// Logged before attach: history, not live.
	require.NoError(t, g.engine.Notify(context.Background(), gwWizard, "before boundary"))

	conn := dialWS(t, g, token)
	require.NoError(t, g.engine.Notify(context.Background(), gwWizard, "after boundary"))

	event := readEvent(t, conn)
	assert.Equal(t, "after boundary", event.Message)
}

func TestWSSecondAttachRejected(t *testing.T) {
	g := newGateway(t)
	token := g.connect(t, "Gandalf", wizardPassword)
	dialWS(t, g, token)

	_, resp, err := websocket.DefaultDialer.Dial(g.wsURL("/ws/attach/connect/"+token), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestWSReattachAfterClose(t *testing.T) {
	g := newGateway(t)
	token := g.connect(t, "Gandalf", wizardPassword)

	conn := dialWS(t, g, token)
	conn.Close()

	// The live slot frees on close; reconnecting must succeed.
	require.Eventually(t, func() bool {
		c, resp, err := websocket.DefaultDialer.Dial(g.wsURL("/ws/attach/connect/"+token), nil)
		if resp != nil {
			resp.Body.Close()
		}
		if err != nil {
			return false
		}
		c.Close()
		return true
	}, 2*time.Second, 50*time.Millisecond)
}

func TestWSAttachBadToken(t *testing.T) {
	g := newGateway(t)

	_, resp, err := websocket.DefaultDialer.Dial(g.wsURL("/ws/attach/connect/bogus"), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestWSAttachBadMode(t *testing.T) {
	g := newGateway(t)
	token := g.connect(t, "Gandalf", wizardPassword)

	_, resp, err := websocket.DefaultDialer.Dial(g.wsURL("/ws/attach/sideways/"+token), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestWSSpoolProgramsVerb(t *testing.T) {
	g := newGateway(t)
	token := g.connect(t, "Gandalf", wizardPassword)
	conn := dialWS(t, g, token)

	send := func(line string) {
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(line)))
	}
	send("@program oid:4:poke")
	send(`return "spooled";`)
	send(".")

	// Two system events: spool opened, verb programmed.
	deadline := time.Now().Add(3 * time.Second)
	programmed := false
	for !programmed && time.Now().Before(deadline) {
		event := readEvent(t, conn)
		if event.Kind == core.EventSystem && strings.Contains(event.Message, "programmed") {
			programmed = true
		}
	}
	require.True(t, programmed)

	resp := g.do(t, http.MethodGet, "/verbs/oid:4/poke", token, "")
	body := readBody(t, resp)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "spooled")
}
