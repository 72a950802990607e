// Copyright 2024 Canonical Ltd.
// Licensed under the LGPLv3, see LICENCE file for details.

// Package leadership holds the leader-authority contract consumed by the
// storage interface libraries. Only the application leader may write
// request or response data on behalf of its side of a pairing.
package leadership

import (
	"github.com/juju/errors"
)

// ErrNotLeader is returned by write operations attempted from a unit that
// does not hold application leadership. Callers decide whether to log it,
// propagate it, or deliberately ignore it.
const ErrNotLeader = errors.ConstError("unit is not the application leader")

// Token represents a unit's leadership of its application at the time the
// check was made.
type Token interface {
	// Check returns an error if the unit is not leader.
	Check() error
}

// Checker exposes leadership testing capability.
type Checker interface {
	// LeadershipCheck returns a token representing the supplied unit's
	// leadership of the supplied application.
	LeadershipCheck(applicationName, unitName string) Token
}

// Authorize runs a leadership check for the given unit and translates a
// failed check into ErrNotLeader.
func Authorize(checker Checker, applicationName, unitName string) error {
	token := checker.LeadershipCheck(applicationName, unitName)
	if err := token.Check(); err != nil {
		return errors.WithType(err, ErrNotLeader)
	}
	return nil
}
