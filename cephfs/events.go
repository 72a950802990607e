// Copyright 2024 Canonical Ltd.
// Licensed under the LGPLv3, see LICENCE file for details.

package cephfs

import (
	"github.com/canonical/storage-libs/core/relation"
)

// ServerConnectedEvent is emitted when a CephFS server appears on a
// pairing, before any share data is necessarily present.
type ServerConnectedEvent struct {
	RelationID relation.ID
}

// Relation is part of relation.Event.
func (e ServerConnectedEvent) Relation() relation.ID { return e.RelationID }

// MountShareEvent is emitted when a share is ready to be mounted: its
// share_info decoded complete and its auth reference resolved.
type MountShareEvent struct {
	RelationID relation.ID
	Info       ShareInfo
	Auth       AuthInfo
}

// Relation is part of relation.Event.
func (e MountShareEvent) Relation() relation.ID { return e.RelationID }

// UmountShareEvent is emitted when a server that had published a complete
// share departs its pairing, carrying the last known share and
// credentials so the consumer can clean up.
type UmountShareEvent struct {
	RelationID relation.ID
	Info       ShareInfo
	Auth       AuthInfo
}

// Relation is part of relation.Event.
func (e UmountShareEvent) Relation() relation.ID { return e.RelationID }

// ShareRequestedEvent is emitted on the provider side when a client has
// asked for a share. It re-fires on every record change while the request
// is present, so providers must treat SetShare as safe to call
// redundantly.
type ShareRequestedEvent struct {
	RelationID relation.ID

	// Name is the export path the client asked for.
	Name string
}

// Relation is part of relation.Event.
func (e ShareRequestedEvent) Relation() relation.ID { return e.RelationID }
