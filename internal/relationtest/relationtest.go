// Copyright 2024 Canonical Ltd.
// Licensed under the LGPLv3, see LICENCE file for details.

// Package relationtest provides in-memory implementations of the exchange
// channel, leadership and secret store contracts for use in package tests.
package relationtest

import (
	"github.com/juju/errors"

	"github.com/canonical/storage-libs/core/leadership"
	"github.com/canonical/storage-libs/core/relation"
	"github.com/canonical/storage-libs/core/secrets"
)

// Accessor is an in-memory relation.Accessor. Remote records are seeded
// directly by tests; local writes accumulate in Locals.
type Accessor struct {
	IDs     map[string][]relation.ID
	Remotes map[relation.ID]relation.Remote
	Locals  map[relation.ID]relation.Settings

	// Writes records every WriteLocal call in order, per relation.
	Writes map[relation.ID][]relation.Settings

	// WriteErr, when set, is returned by WriteLocal.
	WriteErr error
}

// NewAccessor returns an Accessor with a single relation on the given
// endpoint.
func NewAccessor(endpoint string, id relation.ID, remoteApp string) *Accessor {
	return &Accessor{
		IDs: map[string][]relation.ID{endpoint: {id}},
		Remotes: map[relation.ID]relation.Remote{
			id: {Application: remoteApp, Settings: relation.Settings{}},
		},
		Locals: map[relation.ID]relation.Settings{
			id: {},
		},
	}
}

// SetRemote replaces the remote record of the given relation.
func (a *Accessor) SetRemote(id relation.ID, settings relation.Settings) {
	remote := a.Remotes[id]
	remote.Settings = settings
	a.Remotes[id] = remote
}

// RelationIDs is part of relation.Accessor.
func (a *Accessor) RelationIDs(endpoint string) ([]relation.ID, error) {
	return a.IDs[endpoint], nil
}

// Remote is part of relation.Accessor.
func (a *Accessor) Remote(id relation.ID) (relation.Remote, error) {
	remote, ok := a.Remotes[id]
	if !ok {
		return relation.Remote{Settings: relation.Settings{}}, nil
	}
	return remote, nil
}

// Local is part of relation.Accessor.
func (a *Accessor) Local(id relation.ID) (relation.Settings, error) {
	settings, ok := a.Locals[id]
	if !ok {
		return relation.Settings{}, nil
	}
	return settings, nil
}

// WriteLocal is part of relation.Accessor.
func (a *Accessor) WriteLocal(id relation.ID, changes relation.Settings) error {
	if a.WriteErr != nil {
		return a.WriteErr
	}
	if a.Writes == nil {
		a.Writes = make(map[relation.ID][]relation.Settings)
	}
	recorded := make(relation.Settings, len(changes))
	for k, v := range changes {
		recorded[k] = v
	}
	a.Writes[id] = append(a.Writes[id], recorded)
	if a.Locals == nil {
		a.Locals = make(map[relation.ID]relation.Settings)
	}
	settings, ok := a.Locals[id]
	if !ok {
		settings = relation.Settings{}
		a.Locals[id] = settings
	}
	for k, v := range changes {
		settings[k] = v
	}
	return nil
}

// Leadership is an in-memory leadership.Checker.
type Leadership struct {
	Leader bool
}

type leadershipToken struct {
	leader bool
}

// Check is part of leadership.Token.
func (t leadershipToken) Check() error {
	if !t.leader {
		return errors.New("leadership not held")
	}
	return nil
}

// LeadershipCheck is part of leadership.Checker.
func (l *Leadership) LeadershipCheck(applicationName, unitName string) leadership.Token {
	return leadershipToken{leader: l.Leader}
}

// SecretStore is an in-memory secrets.Store.
type SecretStore struct {
	Contents     map[string]secrets.SecretData
	Descriptions map[string]string
	Grants       map[string][]relation.ID

	CreateCount int
	UpdateCount int

	// NextID, when set, is used for the next Create instead of a fresh
	// handle, so tests can assert on stable handle values.
	NextID string
}

// NewSecretStore returns an empty store.
func NewSecretStore() *SecretStore {
	return &SecretStore{
		Contents:     make(map[string]secrets.SecretData),
		Descriptions: make(map[string]string),
		Grants:       make(map[string][]relation.ID),
	}
}

// Create is part of secrets.Store.
func (s *SecretStore) Create(description string, data secrets.SecretData) (*secrets.URI, error) {
	uri := secrets.NewURI()
	if s.NextID != "" {
		uri = &secrets.URI{ID: s.NextID}
		s.NextID = ""
	}
	s.CreateCount++
	s.Contents[uri.ID] = copyData(data)
	s.Descriptions[uri.ID] = description
	return uri, nil
}

// Update is part of secrets.Store.
func (s *SecretStore) Update(uri *secrets.URI, data secrets.SecretData) error {
	if _, ok := s.Contents[uri.ID]; !ok {
		return errors.NotFoundf("secret %q", uri)
	}
	s.UpdateCount++
	s.Contents[uri.ID] = copyData(data)
	return nil
}

// Grant is part of secrets.Store.
func (s *SecretStore) Grant(uri *secrets.URI, id relation.ID) error {
	if _, ok := s.Contents[uri.ID]; !ok {
		return errors.NotFoundf("secret %q", uri)
	}
	s.Grants[uri.ID] = append(s.Grants[uri.ID], id)
	return nil
}

// Get is part of secrets.Store.
func (s *SecretStore) Get(uri *secrets.URI) (secrets.SecretData, error) {
	data, ok := s.Contents[uri.ID]
	if !ok {
		return nil, errors.NotFoundf("secret %q", uri)
	}
	return copyData(data), nil
}

func copyData(data secrets.SecretData) secrets.SecretData {
	out := make(secrets.SecretData, len(data))
	for k, v := range data {
		out[k] = v
	}
	return out
}
