// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Driftwood Contributors

package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/driftwood-mud/driftwood/internal/auth"
	"github.com/driftwood-mud/driftwood/internal/value"
)

// PostgresSessionRepo implements auth.SessionRepository on PostgreSQL.
type PostgresSessionRepo struct {
	pool poolIface
}

// NewPostgresSessionRepo creates a session repository over the pool.
func NewPostgresSessionRepo(pool poolIface) *PostgresSessionRepo {
	return &PostgresSessionRepo{pool: pool}
}

const sessionColumns = `id, player, token_hash, user_agent, ip_address, expires_at, created_at, last_seen_at`

// Create stores a new session.
func (r *PostgresSessionRepo) Create(ctx context.Context, session *auth.Session) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO sessions (`+sessionColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		session.ID.String(),
		int64(session.Player),
		session.TokenHash,
		session.UserAgent,
		session.IPAddress,
		session.ExpiresAt,
		session.CreatedAt,
		session.LastSeenAt,
	)
	if err != nil {
		return oops.Code("SESSION_CREATE_FAILED").
			With("session_id", session.ID.String()).
			Wrap(err)
	}
	return nil
}

// GetByTokenHash retrieves a session by its token hash.
func (r *PostgresSessionRepo) GetByTokenHash(ctx context.Context, tokenHash string) (*auth.Session, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE token_hash = $1`,
		tokenHash)
	return scanSession(row)
}

// GetByPlayer retrieves all sessions for a player, oldest first.
func (r *PostgresSessionRepo) GetByPlayer(ctx context.Context, player value.Obj) ([]*auth.Session, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE player = $1 ORDER BY id`,
		int64(player))
	if err != nil {
		return nil, oops.Code("SESSION_QUERY_FAILED").
			With("player", player.String()).
			Wrap(err)
	}
	defer rows.Close()

	var sessions []*auth.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("SESSION_QUERY_FAILED").
			With("player", player.String()).
			Wrap(err)
	}
	return sessions, nil
}

// UpdateLastSeen updates the LastSeenAt timestamp for a session.
func (r *PostgresSessionRepo) UpdateLastSeen(ctx context.Context, id ulid.ULID, lastSeen time.Time) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE sessions SET last_seen_at = $2 WHERE id = $1`,
		id.String(), lastSeen)
	if err != nil {
		return oops.Code("SESSION_UPDATE_FAILED").
			With("session_id", id.String()).
			Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return auth.ErrNotFound
	}
	return nil
}

// Delete removes a session by ID.
func (r *PostgresSessionRepo) Delete(ctx context.Context, id ulid.ULID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id.String())
	if err != nil {
		return oops.Code("SESSION_DELETE_FAILED").
			With("session_id", id.String()).
			Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return auth.ErrNotFound
	}
	return nil
}

// DeleteByPlayer removes all sessions for a player.
func (r *PostgresSessionRepo) DeleteByPlayer(ctx context.Context, player value.Obj) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE player = $1`, int64(player))
	if err != nil {
		return oops.Code("SESSION_DELETE_FAILED").
			With("player", player.String()).
			Wrap(err)
	}
	return nil
}

// DeleteExpired removes expired sessions, returning the count removed.
func (r *PostgresSessionRepo) DeleteExpired(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at < now()`)
	if err != nil {
		return 0, oops.Code("SESSION_SWEEP_FAILED").Wrap(err)
	}
	return tag.RowsAffected(), nil
}

func scanSession(row pgx.Row) (*auth.Session, error) {
	var (
		s      auth.Session
		idStr  string
		player int64
	)
	err := row.Scan(&idStr, &player, &s.TokenHash, &s.UserAgent, &s.IPAddress,
		&s.ExpiresAt, &s.CreatedAt, &s.LastSeenAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, auth.ErrNotFound
	}
	if err != nil {
		return nil, oops.Code("SESSION_SCAN_FAILED").Wrap(err)
	}
	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("SESSION_CORRUPT_ID").With("id", idStr).Wrap(err)
	}
	s.ID = id
	s.Player = value.Obj(player)
	return &s, nil
}
