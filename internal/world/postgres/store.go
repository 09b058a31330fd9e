// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Driftwood Contributors

// Package postgres implements world.Store on PostgreSQL. Each world.Tx
// maps onto one database transaction, so MOO tasks get real snapshot
// isolation and an aborted task leaves no trace.
package postgres

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"

	"github.com/driftwood-mud/driftwood/internal/value"
	"github.com/driftwood-mud/driftwood/internal/world"
)

// beginner is the subset of pgxpool.Pool the store uses; pgxmock
// satisfies it for tests.
type beginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Close()
}

// Store is a PostgreSQL-backed world.Store.
type Store struct {
	pool beginner
}

// NewStore creates a Store over the connection pool.
func NewStore(pool beginner) *Store {
	return &Store{pool: pool}
}

// Begin opens a database transaction.
func (s *Store) Begin(ctx context.Context) (world.Tx, error) {
	ptx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, oops.Code("TX_BEGIN_FAILED").Wrap(err)
	}
	return &tx{tx: ptx}, nil
}

// Close releases the pool.
func (s *Store) Close() {
	s.pool.Close()
}

type tx struct {
	tx pgx.Tx
}

const objectColumns = `id, name, owner, parent, location, flags, recycled, created_at`

// CreateObject implements world.Tx. The id is assigned inside the
// transaction; recycled rows stay in the table, so their ids are never
// reused.
func (t *tx) CreateObject(ctx context.Context, o *world.Object) (value.Obj, error) {
	var id int64
	err := t.tx.QueryRow(ctx,
		`INSERT INTO objects (id, name, owner, parent, location, flags, created_at)
		 SELECT COALESCE(MAX(id), -1) + 1, $1, $2, $3, $4, $5, now() FROM objects
		 RETURNING id`,
		o.Name, int64(o.Owner), int64(o.Parent), int64(o.Location), int32(o.Flags),
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			// Two transactions raced for the same id; the caller can retry.
			return value.Nothing, oops.Code("OBJECT_ID_CONFLICT").Wrap(err)
		}
		return value.Nothing, oops.Code("OBJECT_CREATE_FAILED").Wrap(err)
	}
	return value.Obj(id), nil
}

func (t *tx) GetObject(ctx context.Context, id value.Obj) (*world.Object, error) {
	row := t.tx.QueryRow(ctx,
		`SELECT `+objectColumns+` FROM objects WHERE id = $1`, int64(id))
	return scanObject(row, id)
}

func (t *tx) UpdateObject(ctx context.Context, o *world.Object) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE objects SET name = $2, owner = $3, parent = $4, location = $5, flags = $6
		 WHERE id = $1 AND NOT recycled`,
		int64(o.ID), o.Name, int64(o.Owner), int64(o.Parent), int64(o.Location), int32(o.Flags))
	if err != nil {
		return oops.Code("OBJECT_UPDATE_FAILED").With("id", o.ID.String()).Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		// Distinguish a recycled row from a missing one.
		_, err := t.GetObject(ctx, o.ID)
		if err != nil {
			return err
		}
		return oops.With("id", o.ID.String()).Wrap(world.ErrNotFound)
	}
	return nil
}

// RecycleObject tombstones the object row and drops its properties and
// verbs. The row itself stays so later lookups report ErrRecycled.
func (t *tx) RecycleObject(ctx context.Context, id value.Obj) error {
	if _, err := t.GetObject(ctx, id); err != nil {
		return err
	}
	if _, err := t.tx.Exec(ctx, `DELETE FROM properties WHERE obj = $1`, int64(id)); err != nil {
		return oops.Code("OBJECT_RECYCLE_FAILED").With("id", id.String()).Wrap(err)
	}
	if _, err := t.tx.Exec(ctx, `DELETE FROM verbs WHERE obj = $1`, int64(id)); err != nil {
		return oops.Code("OBJECT_RECYCLE_FAILED").With("id", id.String()).Wrap(err)
	}
	_, err := t.tx.Exec(ctx,
		`UPDATE objects SET recycled = true, name = '', owner = -1, parent = -1, location = -1, flags = 0
		 WHERE id = $1`, int64(id))
	if err != nil {
		return oops.Code("OBJECT_RECYCLE_FAILED").With("id", id.String()).Wrap(err)
	}
	return nil
}

func (t *tx) MaxObject(ctx context.Context) (value.Obj, error) {
	var max int64
	err := t.tx.QueryRow(ctx, `SELECT COALESCE(MAX(id), -1) FROM objects`).Scan(&max)
	if err != nil {
		return value.Nothing, oops.Code("OBJECT_MAX_FAILED").Wrap(err)
	}
	return value.Obj(max), nil
}

func (t *tx) Children(ctx context.Context, id value.Obj) ([]value.Obj, error) {
	return t.objectIDs(ctx,
		`SELECT id FROM objects WHERE parent = $1 AND NOT recycled ORDER BY id`, int64(id))
}

func (t *tx) Contents(ctx context.Context, id value.Obj) ([]value.Obj, error) {
	return t.objectIDs(ctx,
		`SELECT id FROM objects WHERE location = $1 AND NOT recycled ORDER BY id`, int64(id))
}

func (t *tx) Players(ctx context.Context) ([]value.Obj, error) {
	return t.objectIDs(ctx,
		`SELECT id FROM objects WHERE (flags & $1) <> 0 AND NOT recycled ORDER BY id`,
		int32(world.FlagUser))
}

func (t *tx) objectIDs(ctx context.Context, sql string, args ...any) ([]value.Obj, error) {
	rows, err := t.tx.Query(ctx, sql, args...)
	if err != nil {
		return nil, oops.Code("OBJECT_LIST_FAILED").Wrap(err)
	}
	defer rows.Close()

	var out []value.Obj
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, oops.Code("OBJECT_LIST_FAILED").Wrap(err)
		}
		out = append(out, value.Obj(id))
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("OBJECT_LIST_FAILED").Wrap(err)
	}
	return out, nil
}

const propertyColumns = `name, value, owner, flags`

func (t *tx) GetProperty(ctx context.Context, obj value.Obj, name string) (*world.Property, error) {
	if _, err := t.GetObject(ctx, obj); err != nil {
		return nil, err
	}
	row := t.tx.QueryRow(ctx,
		`SELECT `+propertyColumns+` FROM properties WHERE obj = $1 AND lower(name) = lower($2)`,
		int64(obj), name)
	p, err := scanProperty(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.With("object", obj.String()).With("property", name).Wrap(world.ErrNotFound)
	}
	return p, err
}

func (t *tx) ListProperties(ctx context.Context, obj value.Obj) ([]*world.Property, error) {
	if _, err := t.GetObject(ctx, obj); err != nil {
		return nil, err
	}
	rows, err := t.tx.Query(ctx,
		`SELECT `+propertyColumns+` FROM properties WHERE obj = $1 ORDER BY name`, int64(obj))
	if err != nil {
		return nil, oops.Code("PROPERTY_LIST_FAILED").With("object", obj.String()).Wrap(err)
	}
	defer rows.Close()

	var out []*world.Property
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("PROPERTY_LIST_FAILED").With("object", obj.String()).Wrap(err)
	}
	return out, nil
}

func (t *tx) SetProperty(ctx context.Context, obj value.Obj, p *world.Property) error {
	if _, err := t.GetObject(ctx, obj); err != nil {
		return err
	}
	data, err := json.Marshal(p.Value)
	if err != nil {
		return oops.Code("PROPERTY_ENCODE_FAILED").
			With("object", obj.String()).
			With("property", p.Name).
			Wrap(err)
	}
	_, err = t.tx.Exec(ctx,
		`INSERT INTO properties (obj, name, value, owner, flags)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (obj, lower(name))
		 DO UPDATE SET name = EXCLUDED.name, value = EXCLUDED.value,
		               owner = EXCLUDED.owner, flags = EXCLUDED.flags`,
		int64(obj), p.Name, data, int64(p.Owner), int32(p.Flags))
	if err != nil {
		return oops.Code("PROPERTY_SET_FAILED").
			With("object", obj.String()).
			With("property", p.Name).
			Wrap(err)
	}
	return nil
}

func (t *tx) DeleteProperty(ctx context.Context, obj value.Obj, name string) error {
	if _, err := t.GetObject(ctx, obj); err != nil {
		return err
	}
	tag, err := t.tx.Exec(ctx,
		`DELETE FROM properties WHERE obj = $1 AND lower(name) = lower($2)`,
		int64(obj), name)
	if err != nil {
		return oops.Code("PROPERTY_DELETE_FAILED").
			With("object", obj.String()).
			With("property", name).
			Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return oops.With("object", obj.String()).With("property", name).Wrap(world.ErrNotFound)
	}
	return nil
}

// GetVerb loads the object's verbs and matches in Go; alias patterns
// with "*" abbreviation markers don't translate to SQL.
func (t *tx) GetVerb(ctx context.Context, obj value.Obj, name string) (*world.Verb, error) {
	verbs, err := t.ListVerbs(ctx, obj)
	if err != nil {
		return nil, err
	}
	for _, v := range verbs {
		if v.Matches(name) {
			return v, nil
		}
	}
	return nil, oops.With("object", obj.String()).With("verb", name).Wrap(world.ErrNotFound)
}

func (t *tx) ListVerbs(ctx context.Context, obj value.Obj) ([]*world.Verb, error) {
	if _, err := t.GetObject(ctx, obj); err != nil {
		return nil, err
	}
	rows, err := t.tx.Query(ctx,
		`SELECT names, owner, flags, dobj, prep, iobj, source, compiled
		 FROM verbs WHERE obj = $1 ORDER BY ord`, int64(obj))
	if err != nil {
		return nil, oops.Code("VERB_LIST_FAILED").With("object", obj.String()).Wrap(err)
	}
	defer rows.Close()

	var out []*world.Verb
	for rows.Next() {
		var (
			v     world.Verb
			owner int64
			flags int32
		)
		if err := rows.Scan(&v.Names, &owner, &flags, &v.Args.Dobj, &v.Args.Prep,
			&v.Args.Iobj, &v.Source, &v.Compiled); err != nil {
			return nil, oops.Code("VERB_SCAN_FAILED").With("object", obj.String()).Wrap(err)
		}
		v.Owner = value.Obj(owner)
		v.Flags = world.VerbFlag(flags)
		out = append(out, &v)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("VERB_LIST_FAILED").With("object", obj.String()).Wrap(err)
	}
	return out, nil
}

func (t *tx) PutVerb(ctx context.Context, obj value.Obj, v *world.Verb) error {
	if len(v.Names) == 0 {
		return oops.Code("VERB_NO_NAME").Errorf("verb must have at least one name")
	}
	ord, found, err := t.findVerbOrd(ctx, obj, v.Names[0])
	if err != nil {
		return err
	}
	if found {
		_, err = t.tx.Exec(ctx,
			`UPDATE verbs SET names = $3, owner = $4, flags = $5, dobj = $6, prep = $7,
			        iobj = $8, source = $9, compiled = $10
			 WHERE obj = $1 AND ord = $2`,
			int64(obj), ord, v.Names, int64(v.Owner), int32(v.Flags),
			v.Args.Dobj, v.Args.Prep, v.Args.Iobj, v.Source, v.Compiled)
	} else {
		_, err = t.tx.Exec(ctx,
			`INSERT INTO verbs (obj, ord, names, owner, flags, dobj, prep, iobj, source, compiled)
			 SELECT $1, COALESCE(MAX(ord), -1) + 1, $2, $3, $4, $5, $6, $7, $8, $9
			 FROM verbs WHERE obj = $1`,
			int64(obj), v.Names, int64(v.Owner), int32(v.Flags),
			v.Args.Dobj, v.Args.Prep, v.Args.Iobj, v.Source, v.Compiled)
	}
	if err != nil {
		return oops.Code("VERB_PUT_FAILED").
			With("object", obj.String()).
			With("verb", v.Names[0]).
			Wrap(err)
	}
	return nil
}

func (t *tx) DeleteVerb(ctx context.Context, obj value.Obj, name string) error {
	ord, found, err := t.findVerbOrd(ctx, obj, name)
	if err != nil {
		return err
	}
	if !found {
		return oops.With("object", obj.String()).With("verb", name).Wrap(world.ErrNotFound)
	}
	_, err = t.tx.Exec(ctx, `DELETE FROM verbs WHERE obj = $1 AND ord = $2`, int64(obj), ord)
	if err != nil {
		return oops.Code("VERB_DELETE_FAILED").
			With("object", obj.String()).
			With("verb", name).
			Wrap(err)
	}
	return nil
}

// findVerbOrd returns the ord of the first verb on obj matching name.
func (t *tx) findVerbOrd(ctx context.Context, obj value.Obj, name string) (int32, bool, error) {
	if _, err := t.GetObject(ctx, obj); err != nil {
		return 0, false, err
	}
	rows, err := t.tx.Query(ctx,
		`SELECT ord, names FROM verbs WHERE obj = $1 ORDER BY ord`, int64(obj))
	if err != nil {
		return 0, false, oops.Code("VERB_LIST_FAILED").With("object", obj.String()).Wrap(err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			ord   int32
			names []string
		)
		if err := rows.Scan(&ord, &names); err != nil {
			return 0, false, oops.Code("VERB_SCAN_FAILED").With("object", obj.String()).Wrap(err)
		}
		v := world.Verb{Names: names}
		if v.Matches(name) {
			return ord, true, nil
		}
	}
	if err := rows.Err(); err != nil {
		return 0, false, oops.Code("VERB_LIST_FAILED").With("object", obj.String()).Wrap(err)
	}
	return 0, false, nil
}

func (t *tx) Commit(ctx context.Context) error {
	if err := t.tx.Commit(ctx); err != nil {
		return oops.Code("TX_COMMIT_FAILED").Wrap(err)
	}
	return nil
}

func (t *tx) Rollback(ctx context.Context) error {
	err := t.tx.Rollback(ctx)
	if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return oops.Code("TX_ROLLBACK_FAILED").Wrap(err)
	}
	return nil
}

func scanObject(row pgx.Row, id value.Obj) (*world.Object, error) {
	var (
		o        world.Object
		objID    int64
		owner    int64
		parent   int64
		location int64
		flags    int32
		recycled bool
	)
	err := row.Scan(&objID, &o.Name, &owner, &parent, &location, &flags, &recycled, &o.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.With("id", id.String()).Wrap(world.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("OBJECT_SCAN_FAILED").With("id", id.String()).Wrap(err)
	}
	if recycled {
		return nil, oops.With("id", id.String()).Wrap(world.ErrRecycled)
	}
	o.ID = value.Obj(objID)
	o.Owner = value.Obj(owner)
	o.Parent = value.Obj(parent)
	o.Location = value.Obj(location)
	o.Flags = world.ObjFlag(flags)
	return &o, nil
}

func scanProperty(row pgx.Row) (*world.Property, error) {
	var (
		p     world.Property
		data  []byte
		owner int64
		flags int32
	)
	if err := row.Scan(&p.Name, &data, &owner, &flags); err != nil {
		return nil, err
	}
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, oops.Code("PROPERTY_CORRUPT_VALUE").With("property", p.Name).Wrap(err)
	}
	val, err := value.FromJSON(raw)
	if err != nil {
		return nil, oops.Code("PROPERTY_CORRUPT_VALUE").With("property", p.Name).Wrap(err)
	}
	p.Value = val
	p.Owner = value.Obj(owner)
	p.Flags = world.PropFlag(flags)
	return &p, nil
}
