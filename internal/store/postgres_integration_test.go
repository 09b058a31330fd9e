// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Driftwood Contributors

//go:build integration

package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftwood-mud/driftwood/internal/auth"
	"github.com/driftwood-mud/driftwood/internal/core"
	"github.com/driftwood-mud/driftwood/internal/value"
)

func integrationPool(t *testing.T) (ctx context.Context, dsn string) {
	t.Helper()
	dsn = os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}
	return context.Background(), dsn
}

func TestPostgres_Integration(t *testing.T) {
	ctx, dsn := integrationPool(t)

	migrator, err := NewMigrator(dsn)
	require.NoError(t, err)
	defer migrator.Close()
	require.NoError(t, migrator.Up())

	pool, err := NewPool(ctx, dsn)
	require.NoError(t, err)
	defer pool.Close()

	t.Run("event log round trip", func(t *testing.T) {
		log := NewPostgresEventLog(pool)
		player := value.Obj(424242)

		first := core.Event{
			ID: core.NewULID(), Stream: core.PlayerStream(player), Player: player,
			Kind: core.EventMessage, Timestamp: time.Now().UTC(), Message: "one",
		}
		second := core.Event{
			ID: core.NewULID(), Stream: core.PlayerStream(player), Player: player,
			Kind: core.EventPresent, Timestamp: time.Now().UTC(),
			Presentation: &core.Presentation{ID: "hud", Content: "hp 10", ContentType: "text/plain"},
		}
		require.NoError(t, log.Append(ctx, first))
		require.NoError(t, log.Append(ctx, second))

		page, err := log.History(ctx, player, core.HistoryQuery{})
		require.NoError(t, err)
		require.Len(t, page.Events, 2)
		assert.Equal(t, "one", page.Events[0].Message)
		require.NotNil(t, page.Events[1].Presentation)
		assert.Equal(t, "hud", page.Events[1].Presentation.ID)

		last, err := log.LastEventID(ctx, player)
		require.NoError(t, err)
		assert.Equal(t, second.ID, last)
	})

	t.Run("session round trip", func(t *testing.T) {
		repo := NewPostgresSessionRepo(pool)
		session, err := auth.NewSession(value.Obj(424243), auth.HashToken("secret"),
			"test", "127.0.0.1", time.Now().Add(time.Hour))
		require.NoError(t, err)

		require.NoError(t, repo.Create(ctx, session))
		got, err := repo.GetByTokenHash(ctx, session.TokenHash)
		require.NoError(t, err)
		assert.Equal(t, session.ID, got.ID)

		require.NoError(t, repo.Delete(ctx, session.ID))
		_, err = repo.GetByTokenHash(ctx, session.TokenHash)
		assert.ErrorIs(t, err, auth.ErrNotFound)
	})
}
