// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Driftwood Contributors

package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/driftwood-mud/driftwood/internal/value"
	"github.com/driftwood-mud/driftwood/internal/world"
)

// passwordProp is the property on player objects holding the PHC hash.
// It carries no read/write bits so only the player and wizards see it.
const passwordProp = "password"

// Credential failures share one error so callers cannot distinguish a
// missing player from a wrong password.
var (
	ErrInvalidCredentials = errors.New("invalid player name or password")
	ErrNameTaken          = errors.New("player name already in use")
	ErrLocked             = errors.New("too many failed attempts")
)

// Service authenticates HTTP clients against player objects in the
// world and manages their bearer-token sessions.
type Service struct {
	world    *world.Service
	sessions SessionRepository
	hasher   PasswordHasher
	limiter  *LoginLimiter
}

// NewService creates a Service.
func NewService(worldSvc *world.Service, sessions SessionRepository, hasher PasswordHasher, limiter *LoginLimiter) *Service {
	return &Service{
		world:    worldSvc,
		sessions: sessions,
		hasher:   hasher,
		limiter:  limiter,
	}
}

// dummyPasswordHash is verified when the player does not exist, so the
// response time does not reveal whether the name is taken.
//
//nolint:gosec // G101: not a credential; a fake hash that matches nothing.
const dummyPasswordHash = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// Connect authenticates a player by name and password and opens a
// session. The returned token is the only copy of the plaintext.
func (s *Service) Connect(ctx context.Context, name, password, userAgent, ipAddress string) (*Session, string, error) {
	if limited := s.limiter.Check(name); limited.IsLockedOut {
		return nil, "", oops.Code("AUTH_LOCKED").
			With("retry_after", limited.LockoutRemaining.String()).
			Wrap(ErrLocked)
	}

	tx, err := s.world.Begin(ctx)
	if err != nil {
		return nil, "", oops.Code("AUTH_CONNECT_FAILED").Wrap(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	player, findErr := s.findPlayer(ctx, tx, name)

	targetHash := dummyPasswordHash
	playerExists := false
	if findErr == nil {
		playerExists = true
		if prop, perr := tx.GetProperty(ctx, player.ID, passwordProp); perr == nil {
			if h, ok := prop.Value.AsStr(); ok {
				targetHash = h
			}
		}
	} else if !errors.Is(findErr, world.ErrNotFound) {
		return nil, "", oops.Code("AUTH_CONNECT_FAILED").Wrap(findErr)
	}

	// Always verify so missing players cost the same as bad passwords.
	valid, verifyErr := s.hasher.Verify(password, targetHash)
	if verifyErr != nil && playerExists {
		return nil, "", oops.Code("AUTH_CONNECT_FAILED").
			With("operation", "verify password").
			Wrap(verifyErr)
	}

	if !playerExists || !valid {
		s.limiter.RecordFailure(name)
		return nil, "", oops.Code("AUTH_INVALID_CREDENTIALS").Wrap(ErrInvalidCredentials)
	}

	s.limiter.RecordSuccess(name)

	// Transparently upgrade stale hash formats.
	if s.hasher.NeedsUpgrade(targetHash) {
		if newHash, hashErr := s.hasher.Hash(password); hashErr == nil {
			_ = tx.SetProperty(ctx, player.ID, &world.Property{
				Name: passwordProp, Value: value.Str(newHash), Owner: player.ID,
			})
			_ = tx.Commit(ctx)
		}
	}

	return s.openSession(ctx, player.ID, userAgent, ipAddress)
}

// CreatePlayer registers a new player object and opens a session for
// it. The new object's parent is $player when the system object defines
// one, and the object owns itself.
func (s *Service) CreatePlayer(ctx context.Context, name, password, userAgent, ipAddress string) (*Session, string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, "", oops.Code("AUTH_INVALID_NAME").Errorf("player name cannot be empty")
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, "", err
	}

	tx, err := s.world.Begin(ctx)
	if err != nil {
		return nil, "", oops.Code("AUTH_CREATE_FAILED").Wrap(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, findErr := s.findPlayer(ctx, tx, name); findErr == nil {
		return nil, "", oops.Code("AUTH_NAME_TAKEN").With("name", name).Wrap(ErrNameTaken)
	} else if !errors.Is(findErr, world.ErrNotFound) {
		return nil, "", oops.Code("AUTH_CREATE_FAILED").Wrap(findErr)
	}

	parent := s.playerParent(ctx, tx)
	oid, err := tx.CreateObject(ctx, &world.Object{
		Name:     name,
		Owner:    value.Nothing,
		Parent:   parent,
		Location: value.Nothing,
		Flags:    world.FlagUser,
	})
	if err != nil {
		return nil, "", oops.Code("AUTH_CREATE_FAILED").Wrap(err)
	}

	// The player owns itself.
	obj, err := tx.GetObject(ctx, oid)
	if err != nil {
		return nil, "", oops.Code("AUTH_CREATE_FAILED").Wrap(err)
	}
	obj.Owner = oid
	if err := tx.UpdateObject(ctx, obj); err != nil {
		return nil, "", oops.Code("AUTH_CREATE_FAILED").Wrap(err)
	}

	if err := tx.SetProperty(ctx, oid, &world.Property{
		Name: passwordProp, Value: value.Str(hash), Owner: oid,
	}); err != nil {
		return nil, "", oops.Code("AUTH_CREATE_FAILED").Wrap(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, "", oops.Code("AUTH_CREATE_FAILED").Wrap(err)
	}

	return s.openSession(ctx, oid, userAgent, ipAddress)
}

// Validate resolves a bearer token to its session, refreshing the
// last-seen timestamp.
func (s *Service) Validate(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, oops.Code("SESSION_TOKEN_EMPTY").Errorf("session token cannot be empty")
	}

	session, err := s.sessions.GetByTokenHash(ctx, HashToken(token))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, oops.Code("SESSION_INVALID").Errorf("invalid session token")
		}
		return nil, oops.Code("SESSION_VALIDATE_FAILED").Wrap(err)
	}

	if session.IsExpired() {
		return nil, oops.Code("SESSION_EXPIRED").Errorf("session has expired")
	}

	_ = s.sessions.UpdateLastSeen(ctx, session.ID, time.Now()) //nolint:errcheck // best effort

	return session, nil
}

// Logout invalidates a session.
func (s *Service) Logout(ctx context.Context, sessionID ulid.ULID) error {
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return oops.Code("SESSION_NOT_FOUND").
				With("session_id", sessionID.String()).
				Wrap(err)
		}
		return oops.Code("AUTH_LOGOUT_FAILED").
			With("session_id", sessionID.String()).
			Wrap(err)
	}
	return nil
}

func (s *Service) openSession(ctx context.Context, player value.Obj, userAgent, ipAddress string) (*Session, string, error) {
	token, tokenHash, err := GenerateToken()
	if err != nil {
		return nil, "", err
	}
	session, err := NewSession(player, tokenHash, userAgent, ipAddress, time.Now().Add(TokenExpiry))
	if err != nil {
		return nil, "", err
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, "", oops.Code("SESSION_CREATE_FAILED").Wrap(err)
	}
	return session, token, nil
}

// findPlayer scans user-flagged objects for a case-insensitive name
// match. Returns world.ErrNotFound when no player carries the name.
func (s *Service) findPlayer(ctx context.Context, tx world.Tx, name string) (*world.Object, error) {
	ids, err := tx.Players(ctx)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		obj, gerr := tx.GetObject(ctx, id)
		if gerr != nil {
			continue
		}
		if strings.EqualFold(obj.Name, strings.TrimSpace(name)) {
			return obj, nil
		}
	}
	return nil, world.ErrNotFound
}

// playerParent resolves $player on the system object, falling back to
// no parent when the property is absent or not an object.
func (s *Service) playerParent(ctx context.Context, tx world.Tx) value.Obj {
	prop, err := tx.GetProperty(ctx, value.SystemObj, "player")
	if err != nil {
		return value.Nothing
	}
	if oid, ok := prop.Value.AsObj(); ok && oid.Valid() {
		return oid
	}
	return value.Nothing
}
