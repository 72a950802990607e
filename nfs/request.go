// Copyright 2024 Canonical Ltd.
// Licensed under the LGPLv3, see LICENCE file for details.

package nfs

import (
	"strconv"
	"strings"

	"github.com/juju/errors"

	"github.com/canonical/storage-libs/core/relation"
)

const (
	nameKey      = "name"
	allowlistKey = "allowlist"
	sizeKey      = "size"
	endpointKey  = "endpoint"

	// defaultAllowlist grants access to any address.
	defaultAllowlist = "0.0.0.0"

	// defaultSize means the share is not restricted in size.
	defaultSize = int64(-1)
)

// ShareRequest describes the NFS share a client wants.
type ShareRequest struct {
	// Name is the export path of the share.
	Name string

	// Allowlist holds the addresses or CIDR blocks granted access, in
	// request order. Empty means allow all.
	Allowlist []string

	// Size is the byte quota of the share in gigabytes; -1 means
	// unrestricted.
	Size int64
}

// Validate returns an error if the request cannot be written.
func (r ShareRequest) Validate() error {
	if r.Name == "" {
		return errors.NotValidf("empty share name")
	}
	return nil
}

// settings encodes the request as databag fields, applying the protocol
// defaults for unset optional fields.
func (r ShareRequest) settings() relation.Settings {
	allowlist := r.Allowlist
	if len(allowlist) == 0 {
		allowlist = []string{defaultAllowlist}
	}
	return relation.Settings{
		nameKey:      r.Name,
		allowlistKey: strings.Join(allowlist, ","),
		sizeKey:      strconv.FormatInt(r.Size, 10),
	}
}

// parseShareRequest decodes request fields from a remote record. It
// returns false if the record does not (yet) hold a well-formed request;
// per the malformed-record rule that is not an error.
func parseShareRequest(settings relation.Settings) (ShareRequest, bool) {
	name, ok := settings.Get(nameKey)
	if !ok {
		return ShareRequest{}, false
	}
	request := ShareRequest{Name: name, Size: defaultSize}
	if allowlist, ok := settings.Get(allowlistKey); ok {
		request.Allowlist = strings.Split(allowlist, ",")
	}
	if size, ok := settings.Get(sizeKey); ok {
		parsed, err := strconv.ParseInt(size, 10, 64)
		if err != nil {
			logger.Debugf("ignoring share request with malformed size %q", size)
			return ShareRequest{}, false
		}
		request.Size = parsed
	}
	return request, true
}

// RequestOption customises the optional fields of a share request.
type RequestOption func(*ShareRequest)

// WithAllowlist grants the given addresses or CIDR blocks access to the
// share. A single address and a sequence of addresses are both accepted.
func WithAllowlist(addresses ...string) RequestOption {
	return func(r *ShareRequest) {
		r.Allowlist = addresses
	}
}

// WithSize restricts the share to the given size in gigabytes.
func WithSize(size int64) RequestOption {
	return func(r *ShareRequest) {
		r.Size = size
	}
}
