// Copyright 2024 Canonical Ltd.
// Licensed under the LGPLv3, see LICENCE file for details.

package cephfs

import (
	"github.com/juju/errors"
	"github.com/juju/names/v5"

	"github.com/canonical/storage-libs/core/leadership"
	"github.com/canonical/storage-libs/core/relation"
	"github.com/canonical/storage-libs/core/secrets"
)

// secretDescription labels the credential secret a provider creates for a
// pairing.
const secretDescription = "auth info to authenticate against the CephFS share"

// ProviderConfig holds the dependencies of a CephFS share provider.
type ProviderConfig struct {
	// Endpoint names the charm endpoint the interface is attached to.
	Endpoint string

	// Unit is the local unit.
	Unit names.UnitTag

	// Accessor reads and writes relation data for the endpoint.
	Accessor relation.Accessor

	// Leadership gates databag writes to the application leader.
	Leadership leadership.Checker

	// Secrets stores the credentials published to requirers.
	Secrets secrets.Store
}

// Validate returns an error if the config is unusable.
func (config ProviderConfig) Validate() error {
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
	if config.Secrets == nil {
		return errors.NotValidf("nil Secrets")
	}
	return nil
}

// Provider is the server side of a CephFS share pairing.
type Provider struct {
	endpoint    string
	application string
	unit        string
	accessor    relation.Accessor
	leadership  leadership.Checker
	secrets     secrets.Store
}

// NewProvider returns a provider for the given endpoint.
func NewProvider(config ProviderConfig) (*Provider, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	application, err := names.UnitApplication(config.Unit.Id())
	if err != nil {
		return nil, errors.Trace(err)
	}
	return &Provider{
		endpoint:    config.Endpoint,
		application: application,
		unit:        config.Unit.Id(),
		accessor:    config.Accessor,
		leadership:  config.Leadership,
		secrets:     config.Secrets,
	}, nil
}

// SetShare publishes the description of a created share along with the
// credentials to access it. Returns leadership.ErrNotLeader when called
// from a non-leader unit.
//
// The first call for a pairing creates a credential secret, grants the
// remote application read access, and only then writes the databag, so a
// visible handle is always resolvable. Subsequent calls update the secret
// content in place and reuse the handle: the auth field is written once
// and requirers may cache it.
func (p *Provider) SetShare(id relation.ID, info ShareInfo, auth AuthInfo) error {
	if err := auth.Validate(); err != nil {
		return errors.Trace(err)
	}
	blob, err := info.marshal()
	if err != nil {
		return errors.Trace(err)
	}
	if err := leadership.Authorize(p.leadership, p.application, p.unit); err != nil {
		return errors.Trace(err)
	}
	local, err := p.accessor.Local(id)
	if err != nil {
		return errors.Trace(err)
	}
	if value, ok := local.Get(authKey); ok {
		uri, err := secrets.ParseURI(value)
		if err != nil {
			return errors.Annotatef(err, "relation %v holds an unusable auth reference", id)
		}
		if err := p.secrets.Update(uri, auth.secretData()); err != nil {
			return errors.Annotatef(err, "updating auth secret %q", uri)
		}
		logger.Debugf("exporting CephFS share on relation %v with existing auth secret %q", id, uri)
		return errors.Trace(p.accessor.WriteLocal(id, relation.Settings{shareInfoKey: blob}))
	}
	uri, err := p.secrets.Create(secretDescription, auth.secretData())
	if err != nil {
		return errors.Annotate(err, "creating auth secret")
	}
	if err := p.secrets.Grant(uri, id); err != nil {
		return errors.Annotatef(err, "granting auth secret %q", uri)
	}
	logger.Debugf("exporting CephFS share on relation %v with new auth secret %q", id, uri)
	return errors.Trace(p.accessor.WriteLocal(id, relation.Settings{
		shareInfoKey: blob,
		authKey:      SecretRef{URI: uri}.String(),
	}))
}

// Snapshot reads the remote records of every pairing on the endpoint.
func (p *Provider) Snapshot() (relation.Snapshot, error) {
	return relation.TakeSnapshot(p.accessor, p.endpoint)
}

// Changes compares two snapshots of the endpoint and returns a
// ShareRequestedEvent for every pairing whose record changed while
// holding a request. As with nfs, events re-fire without content
// deduplication.
func (p *Provider) Changes(prev, curr relation.Snapshot) []relation.Event {
	var events []relation.Event
	for _, id := range relation.UnionIDs(prev, curr) {
		remote, inCurr := curr[id]
		if !inCurr {
			continue
		}
		if old, inPrev := prev[id]; inPrev {
			if relation.DiffSettings(old.Settings, remote.Settings).IsEmpty() {
				continue
			}
		}
		name, ok := remote.Settings.Get(nameKey)
		if !ok {
			continue
		}
		events = append(events, ShareRequestedEvent{RelationID: id, Name: name})
	}
	return events
}
