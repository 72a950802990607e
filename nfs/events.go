// Copyright 2024 Canonical Ltd.
// Licensed under the LGPLv3, see LICENCE file for details.

package nfs

import (
	"github.com/canonical/storage-libs/core/relation"
)

// ServerConnectedEvent is emitted when an NFS server appears on a pairing,
// before any share data is necessarily present. Requirers commonly request
// the share they need when they see it.
type ServerConnectedEvent struct {
	RelationID relation.ID
}

// Relation is part of relation.Event.
func (e ServerConnectedEvent) Relation() relation.ID { return e.RelationID }

// MountShareEvent is emitted when a share is ready to be mounted.
type MountShareEvent struct {
	RelationID relation.ID

	// Endpoint locates the share, e.g. "nfs://127.0.0.1/data".
	Endpoint string
}

// Relation is part of relation.Event.
func (e MountShareEvent) Relation() relation.ID { return e.RelationID }

// UmountShareEvent is emitted when a server that had published a complete
// share departs its pairing. It carries the last known endpoint so the
// consumer can unmount it.
type UmountShareEvent struct {
	RelationID relation.ID
	Endpoint   string
}

// Relation is part of relation.Event.
func (e UmountShareEvent) Relation() relation.ID { return e.RelationID }

// ShareRequestedEvent is emitted on the provider side when a client has
// asked for a share. It re-fires on every record change while the request
// is present, so providers must treat SetEndpoint as safe to call
// redundantly.
type ShareRequestedEvent struct {
	RelationID relation.ID
	Request    ShareRequest
}

// Relation is part of relation.Event.
func (e ShareRequestedEvent) Relation() relation.ID { return e.RelationID }
