// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Driftwood Contributors

package auth_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftwood-mud/driftwood/internal/auth"
	"github.com/driftwood-mud/driftwood/internal/value"
	"github.com/driftwood-mud/driftwood/internal/world"
)

// newAuthService seeds a world with a system object and a generic
// player parent published as $player.
func newAuthService(t *testing.T) (*auth.Service, *world.Service) {
	t.Helper()
	ctx := context.Background()
	store := world.NewMemStore()
	worldSvc := world.NewService(store)

	tx, err := store.Begin(ctx)
	require.NoError(t, err)
	system, err := tx.CreateObject(ctx, &world.Object{Name: "System Object", Parent: value.Nothing, Location: value.Nothing, Flags: world.FlagRead})
	require.NoError(t, err)
	require.Equal(t, value.SystemObj, system)
	generic, err := tx.CreateObject(ctx, &world.Object{Name: "generic player", Parent: value.Nothing, Location: value.Nothing, Flags: world.FlagRead | world.FlagFertile})
	require.NoError(t, err)
	require.NoError(t, tx.SetProperty(ctx, system, &world.Property{
		Name: "player", Value: value.Object(generic), Owner: system, Flags: world.PropRead,
	}))
	require.NoError(t, tx.Commit(ctx))

	svc := auth.NewService(worldSvc, auth.NewMemorySessionRepo(), auth.NewArgon2idHasher(), auth.NewLoginLimiter())
	return svc, worldSvc
}

func TestService_CreateAndConnect(t *testing.T) {
	ctx := context.Background()
	svc, worldSvc := newAuthService(t)

	session, token, err := svc.CreatePlayer(ctx, "Sam", "hunter2hunter2", "test-agent", "127.0.0.1")
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.NotEmpty(t, token)

	// The new player descends from $player, owns itself, and carries
	// the user flag.
	tx, err := worldSvc.Begin(ctx)
	require.NoError(t, err)
	defer func() { _ = tx.Rollback(ctx) }()
	obj, err := tx.GetObject(ctx, session.Player)
	require.NoError(t, err)
	assert.Equal(t, "Sam", obj.Name)
	assert.Equal(t, value.Obj(1), obj.Parent)
	assert.Equal(t, session.Player, obj.Owner)
	assert.True(t, obj.IsPlayer())

	// The stored hash is never the plaintext.
	prop, err := tx.GetProperty(ctx, session.Player, "password")
	require.NoError(t, err)
	stored, _ := prop.Value.AsStr()
	assert.NotContains(t, stored, "hunter2hunter2")

	// Reconnect with the same credentials.
	second, token2, err := svc.Connect(ctx, "sam", "hunter2hunter2", "", "")
	require.NoError(t, err)
	assert.Equal(t, session.Player, second.Player)
	assert.NotEqual(t, token, token2, "each connect issues a fresh token")
}

func TestService_ConnectRejectsBadCredentials(t *testing.T) {
	ctx := context.Background()
	svc, _ := newAuthService(t)

	_, _, err := svc.CreatePlayer(ctx, "Sam", "hunter2hunter2", "", "")
	require.NoError(t, err)

	_, _, err = svc.Connect(ctx, "Sam", "wrong", "", "")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)

	// Unknown names fail with the same error as wrong passwords.
	_, _, err = svc.Connect(ctx, "nobody", "whatever", "", "")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
}

func TestService_CreateRejectsDuplicateName(t *testing.T) {
	ctx := context.Background()
	svc, _ := newAuthService(t)

	_, _, err := svc.CreatePlayer(ctx, "Sam", "hunter2hunter2", "", "")
	require.NoError(t, err)

	_, _, err = svc.CreatePlayer(ctx, "sam", "other-password", "", "")
	assert.ErrorIs(t, err, auth.ErrNameTaken, "names are reserved case-insensitively")
}

func TestService_LockoutAfterRepeatedFailures(t *testing.T) {
	ctx := context.Background()
	svc, _ := newAuthService(t)

	_, _, err := svc.CreatePlayer(ctx, "Sam", "hunter2hunter2", "", "")
	require.NoError(t, err)

	for range auth.LockoutThreshold {
		_, _, err = svc.Connect(ctx, "Sam", "wrong", "", "")
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	}

	// Even the correct password is refused while locked.
	_, _, err = svc.Connect(ctx, "Sam", "hunter2hunter2", "", "")
	assert.ErrorIs(t, err, auth.ErrLocked)
}

func TestService_ValidateAndLogout(t *testing.T) {
	ctx := context.Background()
	svc, _ := newAuthService(t)

	session, token, err := svc.CreatePlayer(ctx, "Sam", "hunter2hunter2", "", "")
	require.NoError(t, err)

	got, err := svc.Validate(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, session.ID, got.ID)
	assert.Equal(t, session.Player, got.Player)

	_, err = svc.Validate(ctx, "not-a-token")
	assert.Error(t, err)

	require.NoError(t, svc.Logout(ctx, session.ID))
	_, err = svc.Validate(ctx, token)
	assert.Error(t, err, "token dies with its session")
}
