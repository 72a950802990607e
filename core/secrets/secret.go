// Copyright 2024 Canonical Ltd.
// Licensed under the LGPLv3, see LICENCE file for details.

// Package secrets holds the secret-store contract used for credential
// indirection: authentication material is never written into a relation
// databag directly, only an opaque handle to it.
package secrets

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/juju/errors"
	"github.com/rs/xid"
)

// SecretScheme is the prefix of a secret handle.
const SecretScheme = "secret"

var validID = regexp.MustCompile(`\A[0-9a-z]{20}\z`)

// URI is an opaque handle to a secret held by the host's secret store.
type URI struct {
	ID string
}

// NewURI mints a fresh secret handle.
func NewURI() *URI {
	return &URI{ID: xid.New().String()}
}

// ParseURI parses the given string into a valid secret handle.
func ParseURI(str string) (*URI, error) {
	id, ok := strings.CutPrefix(str, SecretScheme+":")
	if !ok {
		id = str
	}
	if !validID.MatchString(id) {
		return nil, errors.NotValidf("secret URI %q", str)
	}
	return &URI{ID: id}, nil
}

// String prints the URI as a string, the form stored in databags.
func (u *URI) String() string {
	if u == nil {
		return ""
	}
	return fmt.Sprintf("%s:%s", SecretScheme, u.ID)
}
