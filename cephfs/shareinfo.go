// Copyright 2024 Canonical Ltd.
// Licensed under the LGPLv3, see LICENCE file for details.

package cephfs

import (
	"encoding/json"

	"github.com/juju/errors"
	"github.com/juju/schema"
)

const (
	nameKey      = "name"
	shareInfoKey = "share_info"
	authKey      = "auth"
)

// ShareInfo describes a shared Ceph filesystem. It travels as a single
// JSON blob under the share_info databag key.
type ShareInfo struct {
	// FSID identifies the Ceph cluster.
	FSID string `json:"fsid"`

	// Name is the name of the exported filesystem.
	Name string `json:"name"`

	// Path is the exported path within the filesystem.
	Path string `json:"path"`

	// MonitorHosts lists the reachable MON nodes as host:port strings.
	MonitorHosts []string `json:"monitor_hosts"`
}

// Validate returns an error unless the info is complete enough to mount.
func (info ShareInfo) Validate() error {
	if info.FSID == "" {
		return errors.NotValidf("empty fsid")
	}
	if info.Name == "" {
		return errors.NotValidf("empty name")
	}
	if info.Path == "" {
		return errors.NotValidf("empty path")
	}
	if len(info.MonitorHosts) == 0 {
		return errors.NotValidf("empty monitor_hosts")
	}
	return nil
}

func (info ShareInfo) marshal() (string, error) {
	if err := info.Validate(); err != nil {
		return "", errors.Trace(err)
	}
	blob, err := json.Marshal(info)
	if err != nil {
		return "", errors.Trace(err)
	}
	return string(blob), nil
}

var shareInfoFields = schema.FieldMap(schema.Fields{
	"fsid":          schema.String(),
	"name":          schema.String(),
	"path":          schema.String(),
	"monitor_hosts": schema.List(schema.String()),
}, nil)

// parseShareInfo decodes a share_info blob, rejecting records missing any
// required field.
func parseShareInfo(blob string) (ShareInfo, error) {
	var raw interface{}
	if err := json.Unmarshal([]byte(blob), &raw); err != nil {
		return ShareInfo{}, errors.Annotate(err, "undecodable share_info")
	}
	coerced, err := shareInfoFields.Coerce(raw, nil)
	if err != nil {
		return ShareInfo{}, errors.Annotate(err, "malformed share_info")
	}
	fields := coerced.(map[string]interface{})
	info := ShareInfo{
		FSID: fields["fsid"].(string),
		Name: fields["name"].(string),
		Path: fields["path"].(string),
	}
	for _, host := range fields["monitor_hosts"].([]interface{}) {
		info.MonitorHosts = append(info.MonitorHosts, host.(string))
	}
	if err := info.Validate(); err != nil {
		return ShareInfo{}, errors.Trace(err)
	}
	return info, nil
}
