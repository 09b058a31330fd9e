// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Driftwood Contributors

package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/driftwood-mud/driftwood/internal/value"
)

// Session token configuration.
const (
	TokenBytes  = 32 // 32 bytes = 64 hex chars
	TokenExpiry = 24 * time.Hour
)

// ErrNotFound is returned when a requested session does not exist.
var ErrNotFound = errors.New("not found")

// Session binds an authenticated HTTP client to a player object. Only
// the SHA-256 hash of the bearer token is stored; the plaintext is
// returned to the client once and never persisted.
type Session struct {
	ID         ulid.ULID
	Player     value.Obj
	TokenHash  string
	UserAgent  string
	IPAddress  string
	ExpiresAt  time.Time
	CreatedAt  time.Time
	LastSeenAt time.Time
}

// NewSession creates a validated Session for a player.
func NewSession(player value.Obj, tokenHash, userAgent, ipAddress string, expiresAt time.Time) (*Session, error) {
	if !player.Valid() {
		return nil, oops.Code("SESSION_INVALID_PLAYER").
			With("player", player.String()).
			Errorf("player must be a valid object")
	}
	if tokenHash == "" {
		return nil, oops.Code("SESSION_INVALID_HASH").Errorf("token hash cannot be empty")
	}
	if expiresAt.IsZero() {
		return nil, oops.Code("SESSION_INVALID_EXPIRY").Errorf("expiry time cannot be zero")
	}

	now := time.Now()
	return &Session{
		ID:         ulid.Make(),
		Player:     player,
		TokenHash:  tokenHash,
		UserAgent:  userAgent,
		IPAddress:  ipAddress,
		ExpiresAt:  expiresAt,
		CreatedAt:  now,
		LastSeenAt: now,
	}, nil
}

// IsExpired returns true if the session has expired.
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// GenerateToken creates a secure random token and its hash. The
// plaintext token goes to the client; only the hash is stored.
func GenerateToken() (token, hash string, err error) {
	tokenBytes := make([]byte, TokenBytes)
	if _, err = rand.Read(tokenBytes); err != nil {
		return "", "", oops.Code("SESSION_TOKEN_GENERATE_FAILED").
			With("operation", "crypto/rand.Read").
			Wrap(err)
	}

	token = hex.EncodeToString(tokenBytes)
	return token, HashToken(token), nil
}

// HashToken computes the SHA-256 hash of a session token.
func HashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// VerifyToken checks a plaintext token against the stored hash in
// constant time.
func VerifyToken(token, hash string) (bool, error) {
	if token == "" {
		return false, oops.Code("SESSION_TOKEN_EMPTY").Errorf("session token cannot be empty")
	}
	if hash == "" {
		return false, oops.Code("SESSION_HASH_EMPTY").Errorf("stored hash cannot be empty")
	}
	computed := HashToken(token)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(hash)) == 1, nil
}

// SessionRepository manages session persistence.
type SessionRepository interface {
	// Create stores a new session.
	Create(ctx context.Context, session *Session) error

	// GetByTokenHash retrieves a session by its token hash.
	GetByTokenHash(ctx context.Context, tokenHash string) (*Session, error)

	// GetByPlayer retrieves all sessions for a player, oldest first.
	GetByPlayer(ctx context.Context, player value.Obj) ([]*Session, error)

	// UpdateLastSeen updates the LastSeenAt timestamp for a session.
	UpdateLastSeen(ctx context.Context, id ulid.ULID, lastSeen time.Time) error

	// Delete removes a session by ID.
	Delete(ctx context.Context, id ulid.ULID) error

	// DeleteByPlayer removes all sessions for a player.
	DeleteByPlayer(ctx context.Context, player value.Obj) error

	// DeleteExpired removes expired sessions, returning the count removed.
	DeleteExpired(ctx context.Context) (int64, error)
}

// MemorySessionRepo is an in-memory SessionRepository for single-node
// deployments and tests.
type MemorySessionRepo struct {
	mu       sync.RWMutex
	sessions map[ulid.ULID]*Session
}

// NewMemorySessionRepo creates an empty MemorySessionRepo.
func NewMemorySessionRepo() *MemorySessionRepo {
	return &MemorySessionRepo{sessions: make(map[ulid.ULID]*Session)}
}

// Create stores a new session.
func (r *MemorySessionRepo) Create(_ context.Context, session *Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.sessions[session.ID]; exists {
		return oops.Code("SESSION_DUPLICATE").
			With("session_id", session.ID.String()).
			Errorf("session already exists")
	}
	copied := *session
	r.sessions[session.ID] = &copied
	return nil
}

// GetByTokenHash retrieves a session by its token hash.
func (r *MemorySessionRepo) GetByTokenHash(_ context.Context, tokenHash string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.sessions {
		if subtle.ConstantTimeCompare([]byte(s.TokenHash), []byte(tokenHash)) == 1 {
			copied := *s
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

// GetByPlayer retrieves all sessions for a player, oldest first.
func (r *MemorySessionRepo) GetByPlayer(_ context.Context, player value.Obj) ([]*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Session
	for _, s := range r.sessions {
		if s.Player == player {
			copied := *s
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.Compare(out[j].ID) < 0 })
	return out, nil
}

// UpdateLastSeen updates the LastSeenAt timestamp for a session.
func (r *MemorySessionRepo) UpdateLastSeen(_ context.Context, id ulid.ULID, lastSeen time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return ErrNotFound
	}
	s.LastSeenAt = lastSeen
	return nil
}

// Delete removes a session by ID.
func (r *MemorySessionRepo) Delete(_ context.Context, id ulid.ULID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(r.sessions, id)
	return nil
}

// DeleteByPlayer removes all sessions for a player.
func (r *MemorySessionRepo) DeleteByPlayer(_ context.Context, player value.Obj) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, s := range r.sessions {
		if s.Player == player {
			delete(r.sessions, id)
		}
	}
	return nil
}

// DeleteExpired removes expired sessions, returning the count removed.
func (r *MemorySessionRepo) DeleteExpired(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	var n int64
	for id, s := range r.sessions {
		if now.After(s.ExpiresAt) {
			delete(r.sessions, id)
			n++
		}
	}
	return n, nil
}
