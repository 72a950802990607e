// Copyright 2024 Canonical Ltd.
// Licensed under the LGPLv3, see LICENCE file for details.

package cephfs_test

import (
	"github.com/juju/errors"
	"github.com/juju/names/v5"
	jc "github.com/juju/testing/checkers"
	gc "gopkg.in/check.v1"

	"github.com/canonical/storage-libs/cephfs"
	"github.com/canonical/storage-libs/core/leadership"
	"github.com/canonical/storage-libs/core/relation"
	"github.com/canonical/storage-libs/core/secrets"
	"github.com/canonical/storage-libs/internal/relationtest"
)

type providerSuite struct {
	accessor   *relationtest.Accessor
	leadership *relationtest.Leadership
	store      *relationtest.SecretStore
	provider   *cephfs.Provider
}

var _ = gc.Suite(&providerSuite{})

func (s *providerSuite) SetUpTest(c *gc.C) {
	s.accessor = relationtest.NewAccessor("cephfs-share", 0, "cephfs-client")
	s.leadership = &relationtest.Leadership{Leader: true}
	s.store = relationtest.NewSecretStore()

	var err error
	s.provider, err = cephfs.NewProvider(cephfs.ProviderConfig{
		Endpoint:   "cephfs-share",
		Unit:       names.NewUnitTag("cephfs-server/0"),
		Accessor:   s.accessor,
		Leadership: s.leadership,
		Secrets:    s.store,
	})
	c.Assert(err, jc.ErrorIsNil)
}

func (s *providerSuite) TestValidateConfig(c *gc.C) {
	_, err := cephfs.NewProvider(cephfs.ProviderConfig{
		Endpoint:   "cephfs-share",
		Unit:       names.NewUnitTag("cephfs-server/0"),
		Accessor:   s.accessor,
		Leadership: s.leadership,
	})
	c.Check(err, gc.ErrorMatches, "nil Secrets not valid")
}

func (s *providerSuite) TestSetShareFirstCall(c *gc.C) {
	s.store.NextID = "9m4e2mr0ui3e8a215n4g"
	err := s.provider.SetShare(0, shareInfo, authInfo)
	c.Assert(err, jc.ErrorIsNil)

	c.Check(s.accessor.Locals[0], gc.DeepEquals, relation.Settings{
		"share_info": shareInfoBlob,
		"auth":       "secret:9m4e2mr0ui3e8a215n4g",
	})
	c.Check(s.store.CreateCount, gc.Equals, 1)
	c.Check(s.store.Contents["9m4e2mr0ui3e8a215n4g"], gc.DeepEquals, secrets.SecretData{
		"username": "fsclient",
		"key":      "AQA1a2b3",
	})
	// Granted to the pairing before the handle became visible.
	c.Check(s.store.Grants["9m4e2mr0ui3e8a215n4g"], gc.DeepEquals, []relation.ID{0})
}

func (s *providerSuite) TestSetShareIdempotent(c *gc.C) {
	err := s.provider.SetShare(0, shareInfo, authInfo)
	c.Assert(err, jc.ErrorIsNil)
	before := s.accessor.Locals[0]

	err = s.provider.SetShare(0, shareInfo, authInfo)
	c.Assert(err, jc.ErrorIsNil)

	c.Check(s.accessor.Locals[0], gc.DeepEquals, before)
	c.Check(s.store.CreateCount, gc.Equals, 1)

	// The auth field is written exactly once; the second call only
	// rewrites share_info.
	c.Assert(s.accessor.Writes[0], gc.HasLen, 2)
	_, ok := s.accessor.Writes[0][1]["auth"]
	c.Check(ok, jc.IsFalse)
}

func (s *providerSuite) TestSetShareConvergesOnHandle(c *gc.C) {
	err := s.provider.SetShare(0, shareInfo, authInfo)
	c.Assert(err, jc.ErrorIsNil)
	handle := s.accessor.Locals[0]["auth"]

	rotated := cephfs.AuthInfo{Username: "fsclient", Key: "AQAnewkey"}
	err = s.provider.SetShare(0, shareInfo, rotated)
	c.Assert(err, jc.ErrorIsNil)

	c.Check(s.accessor.Locals[0]["auth"], gc.Equals, handle)
	c.Check(s.store.CreateCount, gc.Equals, 1)
	c.Check(s.store.UpdateCount, gc.Equals, 1)

	uri, err := secrets.ParseURI(handle)
	c.Assert(err, jc.ErrorIsNil)
	content, err := s.store.Get(uri)
	c.Assert(err, jc.ErrorIsNil)
	c.Check(content, gc.DeepEquals, secrets.SecretData{
		"username": "fsclient",
		"key":      "AQAnewkey",
	})
}

func (s *providerSuite) TestSetShareIncompleteInfo(c *gc.C) {
	info := shareInfo
	info.MonitorHosts = nil
	err := s.provider.SetShare(0, info, authInfo)
	c.Check(err, jc.ErrorIs, errors.NotValid)
	c.Check(s.accessor.Writes[0], gc.HasLen, 0)
	c.Check(s.store.CreateCount, gc.Equals, 0)
}

func (s *providerSuite) TestSetShareIncompleteAuth(c *gc.C) {
	err := s.provider.SetShare(0, shareInfo, cephfs.AuthInfo{Username: "fsclient"})
	c.Check(err, jc.ErrorIs, errors.NotValid)
	c.Check(s.store.CreateCount, gc.Equals, 0)
}

func (s *providerSuite) TestSetShareNotLeader(c *gc.C) {
	s.leadership.Leader = false
	err := s.provider.SetShare(0, shareInfo, authInfo)
	c.Check(err, jc.ErrorIs, leadership.ErrNotLeader)
	c.Check(s.accessor.Writes[0], gc.HasLen, 0)
	c.Check(s.store.CreateCount, gc.Equals, 0)
}

func (s *providerSuite) TestChangesShareRequested(c *gc.C) {
	curr := relation.Snapshot{0: {Application: "cephfs-client", Settings: relation.Settings{
		"name": "/data",
	}}}
	events := s.provider.Changes(nil, curr)
	c.Check(events, gc.DeepEquals, []relation.Event{
		cephfs.ShareRequestedEvent{RelationID: 0, Name: "/data"},
	})
}

func (s *providerSuite) TestChangesRefiresOnUnrelatedChange(c *gc.C) {
	prev := relation.Snapshot{0: {Application: "cephfs-client", Settings: relation.Settings{
		"name": "/data",
	}}}
	curr := relation.Snapshot{0: {Application: "cephfs-client", Settings: relation.Settings{
		"name": "/data",
		"note": "still waiting",
	}}}
	events := s.provider.Changes(prev, curr)
	c.Check(events, gc.DeepEquals, []relation.Event{
		cephfs.ShareRequestedEvent{RelationID: 0, Name: "/data"},
	})
}

func (s *providerSuite) TestChangesNoRequest(c *gc.C) {
	curr := relation.Snapshot{0: {Application: "cephfs-client", Settings: relation.Settings{}}}
	c.Check(s.provider.Changes(nil, curr), gc.HasLen, 0)
}
