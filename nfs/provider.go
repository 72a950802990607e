// Copyright 2024 Canonical Ltd.
// Licensed under the LGPLv3, see LICENCE file for details.

package nfs

import (
	"github.com/juju/errors"
	"github.com/juju/names/v5"

	"github.com/canonical/storage-libs/core/leadership"
	"github.com/canonical/storage-libs/core/relation"
)

// ProviderConfig holds the dependencies of an NFS share provider.
type ProviderConfig struct {
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
	return nil
}

// Provider is the server side of an NFS share pairing.
type Provider struct {
	endpoint    string
	application string
	unit        string
	accessor    relation.Accessor
	leadership  leadership.Checker
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
	}, nil
}

// SetEndpoint publishes the location of a created share to the pairing.
// Calling it again with the same endpoint leaves the databag unchanged.
// Returns leadership.ErrNotLeader when called from a non-leader unit.
func (p *Provider) SetEndpoint(id relation.ID, endpoint string) error {
	if endpoint == "" {
		return errors.NotValidf("empty endpoint")
	}
	if err := leadership.Authorize(p.leadership, p.application, p.unit); err != nil {
		return errors.Trace(err)
	}
	logger.Debugf("exporting NFS share %q on relation %v", endpoint, id)
	return errors.Trace(p.accessor.WriteLocal(id, relation.Settings{endpointKey: endpoint}))
}

// Snapshot reads the remote records of every pairing on the endpoint.
func (p *Provider) Snapshot() (relation.Snapshot, error) {
	return relation.TakeSnapshot(p.accessor, p.endpoint)
}

// Changes compares two snapshots of the endpoint and returns a
// ShareRequestedEvent for every pairing whose record changed while
// holding a well-formed request. There is no content deduplication:
// an unrelated change to a record that still carries a request re-fires
// the event, so SetEndpoint must be idempotent-safe.
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
		request, ok := parseShareRequest(remote.Settings)
		if !ok {
			continue
		}
		events = append(events, ShareRequestedEvent{RelationID: id, Request: request})
	}
	return events
}
