// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Driftwood Contributors

// Package seed bootstraps an empty world from a YAML document: the
// system object #0, a first room, a wizard player and the $login
// daemon carrying the welcome banner.
package seed

import (
	"context"

	"github.com/samber/oops"
	"gopkg.in/yaml.v3"

	"github.com/driftwood-mud/driftwood/internal/auth"
	"github.com/driftwood-mud/driftwood/internal/value"
	"github.com/driftwood-mud/driftwood/internal/world"
)

// Document is the world bootstrap description loaded from seed.yaml.
type Document struct {
	Wizard  Wizard   `yaml:"wizard" json:"wizard"`
	Room    Room     `yaml:"room" json:"room"`
	Welcome []string `yaml:"welcome,omitempty" json:"welcome,omitempty" jsonschema:"description=Welcome banner lines shown before login"`
}

// Wizard describes the bootstrap wizard player.
type Wizard struct {
	Name     string `yaml:"name" json:"name" jsonschema:"minLength=1"`
	Password string `yaml:"password" json:"password" jsonschema:"minLength=1"`
}

// Room describes the first room.
type Room struct {
	Name        string `yaml:"name" json:"name" jsonschema:"minLength=1"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

// Default returns the built-in bootstrap document used when no seed
// file is given. The password must be changed after first login.
func Default() *Document {
	return &Document{
		Wizard: Wizard{Name: "Wizard", Password: "potrzebie"},
		Room: Room{
			Name:        "The First Room",
			Description: "A bare room at the beginning of the world. It is up to you to build the rest.",
		},
		Welcome: []string{
			"Welcome to Driftwood.",
			"Type `connect <name> <password>' to log in.",
		},
	}
}

// Parse validates data against the seed schema and decodes it.
func Parse(data []byte) (*Document, error) {
	if err := ValidateSchema(data); err != nil {
		return nil, err
	}

	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, oops.Code("SEED_INVALID").Wrap(err)
	}
	return &doc, nil
}

// Apply creates the bootstrap world inside a single transaction. It is
// idempotent: a non-empty world is left alone and Apply reports false.
func (d *Document) Apply(ctx context.Context, store world.Store, hasher auth.PasswordHasher) (bool, error) {
	tx, err := store.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	maxObj, err := tx.MaxObject(ctx)
	if err != nil {
		return false, err
	}
	if maxObj != value.Nothing {
		return false, nil
	}

	system, err := tx.CreateObject(ctx, &world.Object{
		Name: "System Object", Parent: value.Nothing, Location: value.Nothing,
		Flags: world.FlagRead,
	})
	if err != nil {
		return false, err
	}

	room, err := tx.CreateObject(ctx, &world.Object{
		Name: d.Room.Name, Parent: value.Nothing, Location: value.Nothing,
		Flags: world.FlagRead | world.FlagFertile,
	})
	if err != nil {
		return false, err
	}

	wizard, err := tx.CreateObject(ctx, &world.Object{
		Name: d.Wizard.Name, Parent: value.Nothing, Location: room,
		Flags: world.FlagUser | world.FlagWizard | world.FlagProgrammer,
	})
	if err != nil {
		return false, err
	}

	login, err := tx.CreateObject(ctx, &world.Object{
		Name: "login daemon", Owner: wizard, Parent: value.Nothing,
		Location: value.Nothing, Flags: world.FlagRead,
	})
	if err != nil {
		return false, err
	}

	// The wizard owns itself and the room so later edits need no second
	// bootstrap pass.
	for _, id := range []value.Obj{room, wizard} {
		o, err := tx.GetObject(ctx, id)
		if err != nil {
			return false, err
		}
		o.Owner = wizard
		if err := tx.UpdateObject(ctx, o); err != nil {
			return false, err
		}
	}

	hash, err := hasher.Hash(d.Wizard.Password)
	if err != nil {
		return false, oops.Code("SEED_FAILED").Wrap(err)
	}

	props := []struct {
		on value.Obj
		p  *world.Property
	}{
		{wizard, &world.Property{Name: "password", Value: value.Str(hash), Owner: wizard}},
		{system, &world.Property{Name: "login", Value: value.Object(login), Owner: wizard, Flags: world.PropRead}},
		{login, &world.Property{Name: "welcome_message", Value: welcomeList(d.Welcome), Owner: wizard, Flags: world.PropRead}},
	}
	if d.Room.Description != "" {
		props = append(props, struct {
			on value.Obj
			p  *world.Property
		}{room, &world.Property{Name: "description", Value: value.Str(d.Room.Description), Owner: wizard, Flags: world.PropRead}})
	}
	for _, sp := range props {
		if err := tx.SetProperty(ctx, sp.on, sp.p); err != nil {
			return false, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return true, nil
}

func welcomeList(lines []string) value.Var {
	vs := make([]value.Var, len(lines))
	for i, line := range lines {
		vs[i] = value.Str(line)
	}
	return value.List(vs...)
}
