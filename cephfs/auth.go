// Copyright 2024 Canonical Ltd.
// Licensed under the LGPLv3, see LICENCE file for details.

package cephfs

import (
	"encoding/json"
	"strings"

	"github.com/juju/errors"

	"github.com/canonical/storage-libs/core/secrets"
)

// plainPrefix tags credentials written inline into the databag, a
// compatibility path for peers without secret-store support.
const plainPrefix = "plain:"

const (
	usernameField = "username"
	keyField      = "key"
)

// AuthInfo holds the credentials needed to access a Ceph filesystem.
type AuthInfo struct {
	// Username names the authorized Ceph user.
	Username string `json:"username"`

	// Key is the cephx key of the user. Secret material: it is never
	// written into a databag except via the plain compatibility path.
	Key string `json:"key"`
}

// Validate returns an error if the credentials are incomplete.
func (a AuthInfo) Validate() error {
	if a.Username == "" {
		return errors.NotValidf("empty username")
	}
	if a.Key == "" {
		return errors.NotValidf("empty key")
	}
	return nil
}

func (a AuthInfo) secretData() secrets.SecretData {
	return secrets.SecretData{usernameField: a.Username, keyField: a.Key}
}

// AuthReference is the decoded form of the databag auth field: either a
// handle into the host secret store, or inline credentials.
type AuthReference interface {
	// String encodes the reference as it is stored in the databag.
	String() string

	authReference()
}

// SecretRef references credentials held by the host secret store.
type SecretRef struct {
	URI *secrets.URI
}

// String is part of AuthReference.
func (r SecretRef) String() string { return r.URI.String() }

func (SecretRef) authReference() {}

// PlainRef carries credentials inline.
type PlainRef struct {
	Auth AuthInfo
}

// String is part of AuthReference.
func (r PlainRef) String() string {
	blob, err := json.Marshal(r.Auth)
	if err != nil {
		// AuthInfo is two plain strings; this cannot happen.
		panic(err)
	}
	return plainPrefix + string(blob)
}

func (PlainRef) authReference() {}

// ParseAuthReference decodes an auth field value. Values it does not
// recognize are not valid references; readers treat that as "not yet
// ready" rather than an error condition.
func ParseAuthReference(value string) (AuthReference, error) {
	if blob, ok := strings.CutPrefix(value, plainPrefix); ok {
		var auth AuthInfo
		if err := json.Unmarshal([]byte(blob), &auth); err != nil {
			return nil, errors.Annotate(err, "undecodable plain auth info")
		}
		if err := auth.Validate(); err != nil {
			return nil, errors.Trace(err)
		}
		return PlainRef{Auth: auth}, nil
	}
	uri, err := secrets.ParseURI(value)
	if err != nil {
		return nil, errors.NotValidf("auth reference %q", value)
	}
	return SecretRef{URI: uri}, nil
}

// resolveAuth dereferences a reference to the credentials it denotes.
func resolveAuth(ref AuthReference, store secrets.Store) (AuthInfo, error) {
	switch ref := ref.(type) {
	case SecretRef:
		if store == nil {
			return AuthInfo{}, errors.New("no secret store to resolve auth reference")
		}
		data, err := store.Get(ref.URI)
		if err != nil {
			return AuthInfo{}, errors.Annotatef(err, "resolving auth secret %q", ref.URI)
		}
		auth := AuthInfo{Username: data[usernameField], Key: data[keyField]}
		if err := auth.Validate(); err != nil {
			return AuthInfo{}, errors.Trace(err)
		}
		return auth, nil
	case PlainRef:
		return ref.Auth, nil
	}
	return AuthInfo{}, errors.NotValidf("auth reference %T", ref)
}
