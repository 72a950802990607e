// Copyright 2024 Canonical Ltd.
// Licensed under the LGPLv3, see LICENCE file for details.

// Package cephfs implements both sides of the cephfs_share relation
// interface: a requirer that asks a CephFS server charm for a share, and
// a provider that publishes the share description and credentials.
//
// Credentials never travel through the databag in the clear. The provider
// stores them in the host secret store and publishes an opaque handle;
// the plain: inline form exists only for peers without secret support.
//
// Like the nfs package, roles are snapshot-driven: feed the previous and
// current endpoint snapshots to Changes and act on the returned events.
package cephfs

import (
	"github.com/juju/errors"
	"github.com/juju/loggo/v2"
	"github.com/juju/names/v5"

	"github.com/canonical/storage-libs/core/leadership"
	"github.com/canonical/storage-libs/core/relation"
	"github.com/canonical/storage-libs/core/secrets"
)

var logger = loggo.GetLogger("storagelibs.cephfs")

// RequirerConfig holds the dependencies of a CephFS share requirer.
type RequirerConfig struct {
	// Endpoint names the charm endpoint the interface is attached to.
	Endpoint string

	// Unit is the local unit.
	Unit names.UnitTag

	// Accessor reads and writes relation data for the endpoint.
	Accessor relation.Accessor

	// Leadership gates databag writes to the application leader.
	Leadership leadership.Checker

	// Secrets resolves auth handles published by the provider. It may be
	// nil, in which case only plain: inline credentials resolve and
	// handle-bearing records never become mountable.
	Secrets secrets.Store
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

// Requirer is the client side of a CephFS share pairing.
type Requirer struct {
	endpoint    string
	application string
	unit        string
	accessor    relation.Accessor
	leadership  leadership.Checker
	secrets     secrets.Store
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
		secrets:     config.Secrets,
	}, nil
}

// RequestShare asks the server for access to the named share,
// overwriting any previous request. Returns leadership.ErrNotLeader when
// called from a non-leader unit.
func (r *Requirer) RequestShare(id relation.ID, name string) error {
	if name == "" {
		return errors.NotValidf("empty share name")
	}
	if err := leadership.Authorize(r.leadership, r.application, r.unit); err != nil {
		return errors.Trace(err)
	}
	logger.Debugf("requesting CephFS share %q on relation %v", name, id)
	return errors.Trace(r.accessor.WriteLocal(id, relation.Settings{nameKey: name}))
}

// Snapshot reads the remote records of every pairing on the endpoint.
func (r *Requirer) Snapshot() (relation.Snapshot, error) {
	return relation.TakeSnapshot(r.accessor, r.endpoint)
}

// Changes compares two snapshots of the endpoint and returns the requirer
// events between them. A record whose share_info is incomplete or whose
// auth reference does not resolve yields no MountShareEvent; readiness is
// re-evaluated from scratch on the next snapshot, so transient gaps
// self-heal without retry state.
func (r *Requirer) Changes(prev, curr relation.Snapshot) []relation.Event {
	var events []relation.Event
	for _, id := range relation.UnionIDs(prev, curr) {
		old, inPrev := prev[id]
		remote, inCurr := curr[id]
		switch {
		case inCurr && !inPrev:
			events = append(events, ServerConnectedEvent{RelationID: id})
			if info, auth, ok := r.decodeShare(id, remote.Settings); ok {
				events = append(events, MountShareEvent{RelationID: id, Info: info, Auth: auth})
			}
		case inCurr:
			transaction := relation.DiffSettings(old.Settings, remote.Settings)
			if !transaction.Touched(shareInfoKey, authKey) {
				continue
			}
			if info, auth, ok := r.decodeShare(id, remote.Settings); ok {
				events = append(events, MountShareEvent{RelationID: id, Info: info, Auth: auth})
			}
		default:
			info, auth, ok := r.decodeShare(id, old.Settings)
			if !ok {
				logger.Debugf("relation %v departed without a complete share", id)
				continue
			}
			events = append(events, UmountShareEvent{RelationID: id, Info: info, Auth: auth})
		}
	}
	return events
}

// decodeShare decodes a remote record into share and auth info. False
// means the record is not (yet) mountable, never an error: missing keys,
// malformed blobs and unresolvable secret handles all suppress the
// dependent event.
func (r *Requirer) decodeShare(id relation.ID, settings relation.Settings) (ShareInfo, AuthInfo, bool) {
	blob, ok := settings.Get(shareInfoKey)
	if !ok {
		return ShareInfo{}, AuthInfo{}, false
	}
	info, err := parseShareInfo(blob)
	if err != nil {
		logger.Debugf("relation %v: %v", id, err)
		return ShareInfo{}, AuthInfo{}, false
	}
	value, ok := settings.Get(authKey)
	if !ok {
		return ShareInfo{}, AuthInfo{}, false
	}
	ref, err := ParseAuthReference(value)
	if err != nil {
		logger.Debugf("relation %v: %v", id, err)
		return ShareInfo{}, AuthInfo{}, false
	}
	auth, err := resolveAuth(ref, r.secrets)
	if err != nil {
		logger.Debugf("relation %v: %v", id, err)
		return ShareInfo{}, AuthInfo{}, false
	}
	return info, auth, true
}
