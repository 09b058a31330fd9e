// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Driftwood Contributors

package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftwood-mud/driftwood/internal/value"
)

func TestPresentationRegistry_SetGet(t *testing.T) {
	reg := NewPresentationRegistry()
	player := value.Obj(3)

	reg.Set(player, &Presentation{ID: "inventory", Content: "bag", ContentType: "text/plain"})

	got, ok := reg.Get(player, "inventory")
	require.True(t, ok)
	assert.Equal(t, "bag", got.Content)

	_, ok = reg.Get(player, "missing")
	assert.False(t, ok)
}

func TestPresentationRegistry_LastWriteWins(t *testing.T) {
	reg := NewPresentationRegistry()
	player := value.Obj(3)

	reg.Set(player, &Presentation{ID: "hud", Content: "hp 10"})
	reg.Set(player, &Presentation{ID: "map", Content: "the commons"})
	reg.Set(player, &Presentation{ID: "hud", Content: "hp 7"})

	list := reg.List(player)
	require.Len(t, list, 2)

	// Replacement keeps first-present order.
	assert.Equal(t, "hud", list[0].ID)
	assert.Equal(t, "hp 7", list[0].Content)
	assert.Equal(t, "map", list[1].ID)
}

func TestPresentationRegistry_RemoveIdempotent(t *testing.T) {
	reg := NewPresentationRegistry()
	player := value.Obj(3)

	reg.Set(player, &Presentation{ID: "hud"})
	reg.Remove(player, "hud")
	reg.Remove(player, "hud")
	reg.Remove(player, "never-was")

	assert.Empty(t, reg.List(player))
}

func TestPresentationRegistry_Apply(t *testing.T) {
	reg := NewPresentationRegistry()
	player := value.Obj(3)

	reg.Apply(Event{
		Player: player,
		Kind:   EventPresent,
		Presentation: &Presentation{
			ID: "inventory", Content: "bag", ContentType: "text/plain",
		},
	})
	require.Len(t, reg.List(player), 1)

	// Non-presentation kinds are ignored.
	reg.Apply(Event{Player: player, Kind: EventMessage, Message: "hi"})
	require.Len(t, reg.List(player), 1)

	reg.Apply(Event{Player: player, Kind: EventUnpresent, PresentID: "inventory"})
	assert.Empty(t, reg.List(player))
}

func TestPresentationRegistry_PerPlayer(t *testing.T) {
	reg := NewPresentationRegistry()
	reg.Set(value.Obj(3), &Presentation{ID: "hud"})
	reg.Set(value.Obj(4), &Presentation{ID: "hud"})

	reg.Remove(value.Obj(3), "hud")
	assert.Empty(t, reg.List(value.Obj(3)))
	assert.Len(t, reg.List(value.Obj(4)), 1)
}

func TestPresentationRegistry_CopiesOnRead(t *testing.T) {
	reg := NewPresentationRegistry()
	player := value.Obj(3)
	p := &Presentation{ID: "hud", Content: "hp 10"}
	reg.Set(player, p)

	// Mutating the caller's struct must not reach the registry.
	p.Content = "poked"
	got, ok := reg.Get(player, "hud")
	require.True(t, ok)
	assert.Equal(t, "hp 10", got.Content)
}
