// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Driftwood Contributors

package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftwood-mud/driftwood/internal/auth"
	"github.com/driftwood-mud/driftwood/internal/value"
	"github.com/driftwood-mud/driftwood/pkg/errutil"
)

var sessionTestColumns = []string{
	"id", "player", "token_hash", "user_agent", "ip_address",
	"expires_at", "created_at", "last_seen_at",
}

func testSession(t *testing.T) *auth.Session {
	t.Helper()
	s, err := auth.NewSession(value.Obj(3), "deadbeef", "curl/8", "127.0.0.1",
		time.Now().Add(auth.TokenExpiry))
	require.NoError(t, err)
	return s
}

func sessionRow(s *auth.Session) *pgxmock.Rows {
	return pgxmock.NewRows(sessionTestColumns).
		AddRow(s.ID.String(), int64(s.Player), s.TokenHash, s.UserAgent,
			s.IPAddress, s.ExpiresAt, s.CreatedAt, s.LastSeenAt)
}

func TestPostgresSessionRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := testSession(t)
	mock.ExpectExec("INSERT INTO sessions").
		WithArgs(s.ID.String(), int64(3), s.TokenHash, s.UserAgent,
			s.IPAddress, s.ExpiresAt, s.CreatedAt, s.LastSeenAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	repo := NewPostgresSessionRepo(mock)
	require.NoError(t, repo.Create(context.Background(), s))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSessionRepo_CreateError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("INSERT INTO sessions").
		WillReturnError(errors.New("duplicate key"))

	repo := NewPostgresSessionRepo(mock)
	err = repo.Create(context.Background(), testSession(t))
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "SESSION_CREATE_FAILED")
}

func TestPostgresSessionRepo_GetByTokenHash(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := testSession(t)
	mock.ExpectQuery("SELECT .+ FROM sessions WHERE token_hash").
		WithArgs(s.TokenHash).
		WillReturnRows(sessionRow(s))

	repo := NewPostgresSessionRepo(mock)
	got, err := repo.GetByTokenHash(context.Background(), s.TokenHash)
	require.NoError(t, err)
	assert.Equal(t, s.ID, got.ID)
	assert.Equal(t, value.Obj(3), got.Player)
}

func TestPostgresSessionRepo_GetByTokenHashNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT .+ FROM sessions WHERE token_hash").
		WithArgs("nope").
		WillReturnRows(pgxmock.NewRows(sessionTestColumns))

	repo := NewPostgresSessionRepo(mock)
	_, err = repo.GetByTokenHash(context.Background(), "nope")
	assert.ErrorIs(t, err, auth.ErrNotFound)
}

func TestPostgresSessionRepo_GetByPlayer(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := testSession(t)
	mock.ExpectQuery("SELECT .+ FROM sessions WHERE player").
		WithArgs(int64(3)).
		WillReturnRows(sessionRow(s))

	repo := NewPostgresSessionRepo(mock)
	sessions, err := repo.GetByPlayer(context.Background(), value.Obj(3))
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, s.TokenHash, sessions[0].TokenHash)
}

func TestPostgresSessionRepo_UpdateLastSeen(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := ulid.Make()
	seen := time.Now()
	mock.ExpectExec("UPDATE sessions SET last_seen_at").
		WithArgs(id.String(), seen).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	repo := NewPostgresSessionRepo(mock)
	require.NoError(t, repo.UpdateLastSeen(context.Background(), id, seen))
}

func TestPostgresSessionRepo_UpdateLastSeenMissing(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := ulid.Make()
	mock.ExpectExec("UPDATE sessions SET last_seen_at").
		WithArgs(id.String(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	repo := NewPostgresSessionRepo(mock)
	err = repo.UpdateLastSeen(context.Background(), id, time.Now())
	assert.ErrorIs(t, err, auth.ErrNotFound)
}

func TestPostgresSessionRepo_Delete(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := ulid.Make()
	mock.ExpectExec("DELETE FROM sessions WHERE id").
		WithArgs(id.String()).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	repo := NewPostgresSessionRepo(mock)
	require.NoError(t, repo.Delete(context.Background(), id))
}

func TestPostgresSessionRepo_DeleteExpired(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("DELETE FROM sessions WHERE expires_at").
		WillReturnResult(pgxmock.NewResult("DELETE", 4))

	repo := NewPostgresSessionRepo(mock)
	n, err := repo.DeleteExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
}
