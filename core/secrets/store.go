// Copyright 2024 Canonical Ltd.
// Licensed under the LGPLv3, see LICENCE file for details.

package secrets

import (
	"github.com/canonical/storage-libs/core/relation"
)

// SecretData holds the key values of a secret revision.
type SecretData map[string]string

// Store is the subset of the host secret store the interface libraries
// need: providers create, grant and update credential secrets; requirers
// resolve handles read from databags.
//
// The ordering contract matters: a handle must be created and granted
// before it is written into a databag, so the remote side can always
// resolve a handle it can see.
type Store interface {
	// Create stores a new secret and returns its handle.
	Create(description string, data SecretData) (*URI, error)

	// Update replaces the content of an existing secret in place. The
	// handle is unchanged.
	Update(uri *URI, data SecretData) error

	// Grant gives the remote application of the given relation read
	// access to the secret.
	Grant(uri *URI, id relation.ID) error

	// Get resolves a handle to the latest secret content.
	Get(uri *URI) (SecretData, error)
}
