// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Driftwood Contributors

package web

import (
	"github.com/Masterminds/semver/v3"
	"github.com/samber/oops"
)

// supportedClients is the protocol range the gateway speaks. Attach
// requests carrying a client_version outside it are refused before the
// transport upgrades.
const supportedClients = ">= 1.0.0, < 2.0.0"

// ErrUnsupportedClient is returned when version negotiation fails.
var ErrUnsupportedClient = oops.Code("CLIENT_UNSUPPORTED").
	Errorf("client protocol version not supported, need %s", supportedClients)

// negotiateVersion checks a client-supplied protocol version against
// the supported range. An empty version is accepted as a legacy client.
func negotiateVersion(raw string) error {
	if raw == "" {
		return nil
	}
	v, err := semver.NewVersion(raw)
	if err != nil {
		// An unparseable version is treated as unsupported, not as a
		// server fault.
		return oops.Code("CLIENT_BAD_VERSION").With("client_version", raw).Wrap(ErrUnsupportedClient)
	}
	constraint, err := semver.NewConstraint(supportedClients)
	if err != nil {
		return oops.Code("CLIENT_BAD_VERSION").Wrap(err)
	}
	if !constraint.Check(v) {
		return oops.With("client_version", raw).Wrap(ErrUnsupportedClient)
	}
	return nil
}
