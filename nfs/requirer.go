// Copyright 2024 Canonical Ltd.
// Licensed under the LGPLv3, see LICENCE file for details.

// Package nfs implements both sides of the nfs_share relation interface:
// a requirer that asks an NFS server charm for a share, and a provider
// that publishes the endpoint of the share it created.
//
// Roles are snapshot-driven. On every host signal the embedding charm
// takes a snapshot of the endpoint and feeds the previous and current
// snapshots to Changes, which returns the typed events to act on. No
// state is cached across signals.
package nfs

import (
	"github.com/juju/errors"
	"github.com/juju/loggo/v2"
	"github.com/juju/names/v5"

	"github.com/canonical/storage-libs/core/leadership"
	"github.com/canonical/storage-libs/core/relation"
)

var logger = loggo.GetLogger("storagelibs.nfs")

// RequirerConfig holds the dependencies of an NFS share requirer.
type RequirerConfig struct {
	// Endpoint names the charm endpoint the interface is attached to.
	Endpoint string

	// Unit is the local unit.
	Unit names.UnitTag

	// Accessor reads and writes relation data for the endpoint.
	Accessor relation.Accessor

	// Leadership gates databag writes to the application leader.
	Leadership leadership.Checker
}

// Validate returns an error if the config is unusable.
func (config RequirerConfig) Validate() error {
	if config.Endpoint == "" {
		return errors.NotValidf("empty Endpoint")
	}
	if config.Unit.Id() == "" {
		return errors.NotValidf("empty Unit")
	}
	if config.Accessor == nil {
		return errors.NotValidf("nil Accessor")
	}
	if config.Leadership == nil {
		return errors.NotValidf("nil Leadership")
	}
	return nil
}

// Requirer is the client side of an NFS share pairing.
type Requirer struct {
	endpoint    string
	application string
	unit        string
	accessor    relation.Accessor
	leadership  leadership.Checker
}

// NewRequirer returns a requirer for the given endpoint.
func NewRequirer(config RequirerConfig) (*Requirer, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	application, err := names.UnitApplication(config.Unit.Id())
	if err != nil {
		return nil, errors.Trace(err)
	}
	return &Requirer{
		endpoint:    config.Endpoint,
		application: application,
		unit:        config.Unit.Id(),
		accessor:    config.Accessor,
		leadership:  config.Leadership,
	}, nil
}

// RequestShare writes a share request into the pairing's databag,
// overwriting any previous request. Unset options take the protocol
// defaults: allow all addresses, unrestricted size. Returns
// leadership.ErrNotLeader when called from a non-leader unit.
func (r *Requirer) RequestShare(id relation.ID, name string, options ...RequestOption) error {
	request := ShareRequest{Name: name, Size: defaultSize}
	for _, option := range options {
		option(&request)
	}
	if err := request.Validate(); err != nil {
		return errors.Trace(err)
	}
	if err := leadership.Authorize(r.leadership, r.application, r.unit); err != nil {
		return errors.Trace(err)
	}
	settings := request.settings()
	logger.Debugf("requesting NFS share on relation %v: %v", id, settings)
	return errors.Trace(r.accessor.WriteLocal(id, settings))
}

// Snapshot reads the remote records of every pairing on the endpoint.
func (r *Requirer) Snapshot() (relation.Snapshot, error) {
	return relation.TakeSnapshot(r.accessor, r.endpoint)
}

// Changes compares two snapshots of the endpoint and returns the requirer
// events between them, in deterministic pairing order: connections first,
// then mounts, with departures as they are encountered.
//
// A record without an endpoint never yields a MountShareEvent, and a
// departing pairing that never published one yields no UmountShareEvent.
func (r *Requirer) Changes(prev, curr relation.Snapshot) []relation.Event {
	var events []relation.Event
	for _, id := range relation.UnionIDs(prev, curr) {
		old, inPrev := prev[id]
		remote, inCurr := curr[id]
		switch {
		case inCurr && !inPrev:
			events = append(events, ServerConnectedEvent{RelationID: id})
			if endpoint, ok := remote.Settings.Get(endpointKey); ok {
				events = append(events, MountShareEvent{RelationID: id, Endpoint: endpoint})
			}
		case inCurr:
			transaction := relation.DiffSettings(old.Settings, remote.Settings)
			if !transaction.Touched(endpointKey) {
				continue
			}
			if endpoint, ok := remote.Settings.Get(endpointKey); ok {
				events = append(events, MountShareEvent{RelationID: id, Endpoint: endpoint})
			}
		default:
			endpoint, ok := old.Settings.Get(endpointKey)
			if !ok {
				logger.Debugf("relation %v departed without a published endpoint", id)
				continue
			}
			events = append(events, UmountShareEvent{RelationID: id, Endpoint: endpoint})
		}
	}
	return events
}
