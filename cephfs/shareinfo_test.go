// Copyright 2024 Canonical Ltd.
// Licensed under the LGPLv3, see LICENCE file for details.

package cephfs

import (
	"github.com/juju/errors"
	jc "github.com/juju/testing/checkers"
	gc "gopkg.in/check.v1"
)

type shareInfoSuite struct{}

var _ = gc.Suite(&shareInfoSuite{})

var fullShareInfo = ShareInfo{
	FSID:         "354ca7c4-f10d-11ee-93f8-1f85f87b7845",
	Name:         "cephfs",
	Path:         "/export/data",
	MonitorHosts: []string{"10.0.0.1:6789", "10.0.0.2:6789"},
}

func (s *shareInfoSuite) TestMarshalRoundTrip(c *gc.C) {
	blob, err := fullShareInfo.marshal()
	c.Assert(err, jc.ErrorIsNil)

	parsed, err := parseShareInfo(blob)
	c.Assert(err, jc.ErrorIsNil)
	c.Check(parsed, gc.DeepEquals, fullShareInfo)
}

func (s *shareInfoSuite) TestMarshalIncomplete(c *gc.C) {
	info := fullShareInfo
	info.MonitorHosts = nil
	_, err := info.marshal()
	c.Check(err, jc.ErrorIs, errors.NotValid)
}

func (s *shareInfoSuite) TestParseMissingField(c *gc.C) {
	_, err := parseShareInfo(`{"fsid":"x","name":"cephfs","path":"/export"}`)
	c.Check(err, gc.ErrorMatches, "malformed share_info: .*")
}

func (s *shareInfoSuite) TestParseEmptyMonitorHosts(c *gc.C) {
	_, err := parseShareInfo(`{"fsid":"x","name":"cephfs","path":"/export","monitor_hosts":[]}`)
	c.Check(err, jc.ErrorIs, errors.NotValid)
}

func (s *shareInfoSuite) TestParseUndecodable(c *gc.C) {
	_, err := parseShareInfo("not json at all")
	c.Check(err, gc.ErrorMatches, "undecodable share_info: .*")
}

func (s *shareInfoSuite) TestParseWrongTypes(c *gc.C) {
	_, err := parseShareInfo(`{"fsid":"x","name":"cephfs","path":"/export","monitor_hosts":"10.0.0.1:6789"}`)
	c.Check(err, gc.ErrorMatches, "malformed share_info: .*")
}
