// Copyright 2024 Canonical Ltd.
// Licensed under the LGPLv3, see LICENCE file for details.

package cephfs_test

import (
	"github.com/juju/names/v5"
	jc "github.com/juju/testing/checkers"
	gc "gopkg.in/check.v1"

	"github.com/canonical/storage-libs/cephfs"
	"github.com/canonical/storage-libs/core/leadership"
	"github.com/canonical/storage-libs/core/relation"
	"github.com/canonical/storage-libs/core/secrets"
	"github.com/canonical/storage-libs/internal/relationtest"
)

type requirerSuite struct {
	accessor   *relationtest.Accessor
	leadership *relationtest.Leadership
	store      *relationtest.SecretStore
	requirer   *cephfs.Requirer
}

var _ = gc.Suite(&requirerSuite{})

const shareInfoBlob = `{"fsid":"354ca7c4-f10d-11ee-93f8-1f85f87b7845","name":"cephfs","path":"/export/data","monitor_hosts":["10.0.0.1:6789","10.0.0.2:6789"]}`

var shareInfo = cephfs.ShareInfo{
	FSID:         "354ca7c4-f10d-11ee-93f8-1f85f87b7845",
	Name:         "cephfs",
	Path:         "/export/data",
	MonitorHosts: []string{"10.0.0.1:6789", "10.0.0.2:6789"},
}

var authInfo = cephfs.AuthInfo{Username: "fsclient", Key: "AQA1a2b3"}

func (s *requirerSuite) SetUpTest(c *gc.C) {
	s.accessor = relationtest.NewAccessor("cephfs-share", 0, "cephfs-server")
	s.leadership = &relationtest.Leadership{Leader: true}
	s.store = relationtest.NewSecretStore()

	var err error
	s.requirer, err = cephfs.NewRequirer(cephfs.RequirerConfig{
		Endpoint:   "cephfs-share",
		Unit:       names.NewUnitTag("cephfs-client/0"),
		Accessor:   s.accessor,
		Leadership: s.leadership,
		Secrets:    s.store,
	})
	c.Assert(err, jc.ErrorIsNil)
}

// seedSecret stores auth credentials and returns the handle a provider
// would have published.
func (s *requirerSuite) seedSecret(c *gc.C) string {
	uri, err := s.store.Create("auth", secrets.SecretData{
		"username": authInfo.Username,
		"key":      authInfo.Key,
	})
	c.Assert(err, jc.ErrorIsNil)
	return uri.String()
}

func (s *requirerSuite) TestRequestShare(c *gc.C) {
	err := s.requirer.RequestShare(0, "/data")
	c.Assert(err, jc.ErrorIsNil)
	c.Check(s.accessor.Locals[0], gc.DeepEquals, relation.Settings{"name": "/data"})
}

func (s *requirerSuite) TestRequestShareNotLeader(c *gc.C) {
	s.leadership.Leader = false
	err := s.requirer.RequestShare(0, "/data")
	c.Check(err, jc.ErrorIs, leadership.ErrNotLeader)
	c.Check(s.accessor.Writes[0], gc.HasLen, 0)
}

func (s *requirerSuite) TestChangesServerConnected(c *gc.C) {
	curr := relation.Snapshot{0: {Application: "cephfs-server", Settings: relation.Settings{}}}
	events := s.requirer.Changes(nil, curr)
	c.Check(events, gc.DeepEquals, []relation.Event{
		cephfs.ServerConnectedEvent{RelationID: 0},
	})
}

func (s *requirerSuite) TestChangesMountShareWithSecret(c *gc.C) {
	handle := s.seedSecret(c)
	prev := relation.Snapshot{0: {Application: "cephfs-server", Settings: relation.Settings{}}}
	curr := relation.Snapshot{0: {Application: "cephfs-server", Settings: relation.Settings{
		"share_info": shareInfoBlob,
		"auth":       handle,
	}}}
	events := s.requirer.Changes(prev, curr)
	c.Check(events, gc.DeepEquals, []relation.Event{
		cephfs.MountShareEvent{RelationID: 0, Info: shareInfo, Auth: authInfo},
	})
}

func (s *requirerSuite) TestChangesMountShareWithPlainAuth(c *gc.C) {
	prev := relation.Snapshot{0: {Application: "cephfs-server", Settings: relation.Settings{}}}
	curr := relation.Snapshot{0: {Application: "cephfs-server", Settings: relation.Settings{
		"share_info": shareInfoBlob,
		"auth":       `plain:{"username":"fsclient","key":"AQA1a2b3"}`,
	}}}
	events := s.requirer.Changes(prev, curr)
	c.Check(events, gc.DeepEquals, []relation.Event{
		cephfs.MountShareEvent{RelationID: 0, Info: shareInfo, Auth: authInfo},
	})
}

func (s *requirerSuite) TestChangesIncompleteShareInfoSuppressed(c *gc.C) {
	handle := s.seedSecret(c)
	prev := relation.Snapshot{0: {Application: "cephfs-server", Settings: relation.Settings{}}}
	curr := relation.Snapshot{0: {Application: "cephfs-server", Settings: relation.Settings{
		"share_info": `{"fsid":"x","name":"cephfs","path":"/export"}`,
		"auth":       handle,
	}}}
	c.Check(s.requirer.Changes(prev, curr), gc.HasLen, 0)
}

func (s *requirerSuite) TestChangesMissingAuthSuppressed(c *gc.C) {
	prev := relation.Snapshot{0: {Application: "cephfs-server", Settings: relation.Settings{}}}
	curr := relation.Snapshot{0: {Application: "cephfs-server", Settings: relation.Settings{
		"share_info": shareInfoBlob,
	}}}
	c.Check(s.requirer.Changes(prev, curr), gc.HasLen, 0)
}

func (s *requirerSuite) TestChangesUnresolvableSecretSuppressed(c *gc.C) {
	prev := relation.Snapshot{0: {Application: "cephfs-server", Settings: relation.Settings{}}}
	curr := relation.Snapshot{0: {Application: "cephfs-server", Settings: relation.Settings{
		"share_info": shareInfoBlob,
		"auth":       "secret:9m4e2mr0ui3e8a215n4g",
	}}}
	c.Check(s.requirer.Changes(prev, curr), gc.HasLen, 0)
}

func (s *requirerSuite) TestChangesUnknownAuthShapeSuppressed(c *gc.C) {
	prev := relation.Snapshot{0: {Application: "cephfs-server", Settings: relation.Settings{}}}
	curr := relation.Snapshot{0: {Application: "cephfs-server", Settings: relation.Settings{
		"share_info": shareInfoBlob,
		"auth":       "vault:whatever",
	}}}
	c.Check(s.requirer.Changes(prev, curr), gc.HasLen, 0)
}

func (s *requirerSuite) TestChangesSecretContentRefreshed(c *gc.C) {
	handle := s.seedSecret(c)
	settings := relation.Settings{"share_info": shareInfoBlob, "auth": handle}
	prev := relation.Snapshot{0: {Application: "cephfs-server", Settings: relation.Settings{}}}
	curr := relation.Snapshot{0: {Application: "cephfs-server", Settings: settings}}
	events := s.requirer.Changes(prev, curr)
	c.Assert(events, gc.HasLen, 1)

	// The provider rotates the key in place; the handle in the databag
	// does not change, and the next mount-worthy change resolves to the
	// new content.
	uri, err := secrets.ParseURI(handle)
	c.Assert(err, jc.ErrorIsNil)
	err = s.store.Update(uri, secrets.SecretData{"username": "fsclient", "key": "AQAnewkey"})
	c.Assert(err, jc.ErrorIsNil)

	next := relation.Snapshot{0: {Application: "cephfs-server", Settings: relation.Settings{
		"share_info": shareInfoBlob,
		"auth":       handle,
		"note":       "rotated",
	}}}
	// An unrelated key change does not re-fire the mount event.
	c.Check(s.requirer.Changes(curr, next), gc.HasLen, 0)
}

func (s *requirerSuite) TestChangesUmountCarriesLastShare(c *gc.C) {
	handle := s.seedSecret(c)
	prev := relation.Snapshot{0: {Application: "cephfs-server", Settings: relation.Settings{
		"share_info": shareInfoBlob,
		"auth":       handle,
	}}}
	events := s.requirer.Changes(prev, relation.Snapshot{})
	c.Check(events, gc.DeepEquals, []relation.Event{
		cephfs.UmountShareEvent{RelationID: 0, Info: shareInfo, Auth: authInfo},
	})
}

func (s *requirerSuite) TestChangesUmountSuppressedWithoutShare(c *gc.C) {
	prev := relation.Snapshot{0: {Application: "cephfs-server", Settings: relation.Settings{
		"share_info": shareInfoBlob,
	}}}
	c.Check(s.requirer.Changes(prev, relation.Snapshot{}), gc.HasLen, 0)
}

func (s *requirerSuite) TestNoSecretStoreOnlyPlainResolves(c *gc.C) {
	requirer, err := cephfs.NewRequirer(cephfs.RequirerConfig{
		Endpoint:   "cephfs-share",
		Unit:       names.NewUnitTag("cephfs-client/0"),
		Accessor:   s.accessor,
		Leadership: s.leadership,
	})
	c.Assert(err, jc.ErrorIsNil)

	handle := s.seedSecret(c)
	prev := relation.Snapshot{0: {Application: "cephfs-server", Settings: relation.Settings{}}}
	curr := relation.Snapshot{0: {Application: "cephfs-server", Settings: relation.Settings{
		"share_info": shareInfoBlob,
		"auth":       handle,
	}}}
	c.Check(requirer.Changes(prev, curr), gc.HasLen, 0)

	curr = relation.Snapshot{0: {Application: "cephfs-server", Settings: relation.Settings{
		"share_info": shareInfoBlob,
		"auth":       `plain:{"username":"fsclient","key":"AQA1a2b3"}`,
	}}}
	events := requirer.Changes(prev, curr)
	c.Check(events, gc.HasLen, 1)
}
