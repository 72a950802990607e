// Copyright 2024 Canonical Ltd.
// Licensed under the LGPLv3, see LICENCE file for details.

// Package relation holds the exchange-channel abstractions shared by the
// storage interface libraries: keyed settings records, per-pairing remote
// records, endpoint snapshots and the accessor contract through which a
// charm reads and writes relation data.
package relation

import (
	"sort"
	"strconv"
	"strings"

	"github.com/juju/errors"
)

// ID identifies a single relation (pairing) between the local application
// and a remote one.
type ID int

// ParseID parses a relation identifier as reported by the hook tools,
// either a bare integer or the "endpoint:123" form printed by relation-ids.
func ParseID(s string) (ID, error) {
	if i := strings.LastIndex(s, ":"); i >= 0 {
		s = s[i+1:]
	}
	id, err := strconv.Atoi(s)
	if err != nil {
		return -1, errors.NotValidf("relation id %q", s)
	}
	return ID(id), nil
}

// String is used in log messages and hook tool arguments.
func (id ID) String() string {
	return strconv.Itoa(int(id))
}

// Settings is a single keyed record in a relation databag. All values are
// strings by protocol.
type Settings map[string]string

// Get returns the value for key, and whether it is present and non-empty.
func (s Settings) Get(key string) (string, bool) {
	v, ok := s[key]
	return v, ok && v != ""
}

// Remote is the currently visible record of the remote side of a pairing.
type Remote struct {
	// Application names the remote application.
	Application string

	// Settings holds the remote application databag. A peer that has
	// written no data yet is represented by empty Settings, never nil
	// dereferences or errors.
	Settings Settings
}

// Snapshot captures everything visible on one endpoint at signal-handling
// time, keyed by pairing id. Snapshots are value types; comparing two of
// them is how the interface libraries derive events.
type Snapshot map[ID]Remote

// IDs returns the pairing ids present in the snapshot in ascending order,
// so that derived event batches are deterministic.
func (s Snapshot) IDs() []ID {
	ids := make([]ID, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// UnionIDs returns the pairing ids present in either snapshot, ascending.
// Event derivation walks this union so that departed pairings are still
// visited.
func UnionIDs(a, b Snapshot) []ID {
	seen := make(map[ID]bool, len(a)+len(b))
	ids := make([]ID, 0, len(a)+len(b))
	for id := range a {
		seen[id] = true
		ids = append(ids, id)
	}
	for id := range b {
		if !seen[id] {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Accessor reads and writes the relation data visible to the local unit.
// It is implemented by the host binding (see internal/hooktool) and by the
// in-memory test fixtures.
type Accessor interface {
	// RelationIDs returns the ids of the active relations on the named
	// endpoint. No relations yet is not an error.
	RelationIDs(endpoint string) ([]ID, error)

	// Remote returns the remote application record of the given relation.
	// Absent or partial data yields empty Settings.
	Remote(id ID) (Remote, error)

	// Local returns the local application databag of the given relation.
	Local(id ID) (Settings, error)

	// WriteLocal merges the given settings into the local application
	// databag of the given relation.
	WriteLocal(id ID, changes Settings) error
}

// TakeSnapshot reads the remote records of every active relation on the
// endpoint. A pairing whose data cannot be read cleanly is the only error
// condition; zero pairings yields an empty snapshot.
func TakeSnapshot(accessor Accessor, endpoint string) (Snapshot, error) {
	ids, err := accessor.RelationIDs(endpoint)
	if err != nil {
		return nil, errors.Trace(err)
	}
	snap := make(Snapshot, len(ids))
	for _, id := range ids {
		remote, err := accessor.Remote(id)
		if err != nil {
			return nil, errors.Annotatef(err, "reading relation %v", id)
		}
		if remote.Settings == nil {
			remote.Settings = Settings{}
		}
		snap[id] = remote
	}
	return snap, nil
}

// Event is a change derived from comparing two snapshots of an endpoint.
// The concrete variants live with the protocol packages that emit them.
type Event interface {
	// Relation identifies the pairing the event concerns.
	Relation() ID
}
