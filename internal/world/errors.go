// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Driftwood Contributors

package world

import "errors"

// Sentinel errors for the object store and resolver. Callers discriminate
// with errors.Is; the gateway maps each onto a distinct HTTP status and
// error kind so clients never have to parse messages.
var (
	// ErrNotFound is returned when an object, verb, or property does not
	// exist and never did.
	ErrNotFound = errors.New("not found")

	// ErrRecycled is returned when an object id once existed but has been
	// recycled. Distinct from ErrNotFound so stale references can be
	// diagnosed.
	ErrRecycled = errors.New("object recycled")

	// ErrPermissionDenied is returned when an ownership or bit check
	// fails. Never conflated with ErrNotFound.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrAmbiguous is returned when an environment match finds more than
	// one candidate.
	ErrAmbiguous = errors.New("ambiguous match")

	// ErrFailedMatch is returned when an environment match finds nothing.
	ErrFailedMatch = errors.New("no match")

	// ErrInvalidRef is returned for a malformed or unresolvable object
	// reference (bad CURIE, broken sysobj path segment).
	ErrInvalidRef = errors.New("invalid object reference")

	// ErrRecursiveMove is returned when a move or reparent would create a
	// containment or inheritance cycle.
	ErrRecursiveMove = errors.New("recursive move")
)
