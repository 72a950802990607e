// Copyright 2024 Canonical Ltd.
// Licensed under the LGPLv3, see LICENCE file for details.

// Package hooktool binds the interface libraries to a real charm hook
// context by shelling out to the hook tools the agent puts on PATH:
// relation-ids, relation-list, relation-get, relation-set, is-leader and
// the secret-* family. It implements the relation.Accessor,
// leadership.Checker and secrets.Store contracts.
package hooktool

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"

	"github.com/juju/errors"
	"github.com/juju/loggo/v2"
	"github.com/juju/names/v5"

	"github.com/canonical/storage-libs/core/leadership"
	"github.com/canonical/storage-libs/core/relation"
	"github.com/canonical/storage-libs/core/secrets"
)

var logger = loggo.GetLogger("storagelibs.hooktool")

// Runner executes a hook tool and returns its stdout. Tests inject their
// own; production code uses the tools on PATH.
type Runner func(tool string, args ...string) ([]byte, error)

func execRunner(tool string, args ...string) ([]byte, error) {
	logger.Tracef("running %s %s", tool, strings.Join(args, " "))
	out, err := exec.Command(tool, args...).Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok && len(exitErr.Stderr) > 0 {
			return nil, errors.Annotatef(err, "%s: %s", tool, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return nil, errors.Annotate(err, tool)
	}
	return out, nil
}

// Client talks to the hook tools of the current hook context.
type Client struct {
	unit        names.UnitTag
	application string
	run         Runner
}

// NewClient returns a client for the unit named by JUJU_UNIT_NAME, which
// the agent sets for every hook execution.
func NewClient() (*Client, error) {
	name := os.Getenv("JUJU_UNIT_NAME")
	if !names.IsValidUnit(name) {
		return nil, errors.NotValidf("JUJU_UNIT_NAME %q", name)
	}
	return NewClientWithRunner(names.NewUnitTag(name), execRunner)
}

// NewClientWithRunner returns a client using the supplied runner.
func NewClientWithRunner(unit names.UnitTag, run Runner) (*Client, error) {
	if run == nil {
		return nil, errors.NotValidf("nil runner")
	}
	application, err := names.UnitApplication(unit.Id())
	if err != nil {
		return nil, errors.Trace(err)
	}
	return &Client{unit: unit, application: application, run: run}, nil
}

// Unit returns the local unit tag.
func (c *Client) Unit() names.UnitTag {
	return c.unit
}

// Application returns the local application name.
func (c *Client) Application() string {
	return c.application
}

// RelationIDs is part of relation.Accessor.
func (c *Client) RelationIDs(endpoint string) ([]relation.ID, error) {
	out, err := c.run("relation-ids", "--format=json", endpoint)
	if err != nil {
		return nil, errors.Trace(err)
	}
	var raw []string
	if err := json.Unmarshal(out, &raw); err != nil {
		return nil, errors.Annotate(err, "parsing relation-ids output")
	}
	ids := make([]relation.ID, 0, len(raw))
	for _, s := range raw {
		id, err := relation.ParseID(s)
		if err != nil {
			return nil, errors.Trace(err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Remote is part of relation.Accessor.
func (c *Client) Remote(id relation.ID) (relation.Remote, error) {
	out, err := c.run("relation-list", "-r", id.String(), "--app", "--format=json")
	if err != nil {
		return relation.Remote{}, errors.Trace(err)
	}
	var application string
	if err := json.Unmarshal(out, &application); err != nil {
		return relation.Remote{}, errors.Annotate(err, "parsing relation-list output")
	}
	settings, err := c.readSettings(id, application)
	if err != nil {
		return relation.Remote{}, errors.Trace(err)
	}
	return relation.Remote{Application: application, Settings: settings}, nil
}

// Local is part of relation.Accessor.
func (c *Client) Local(id relation.ID) (relation.Settings, error) {
	settings, err := c.readSettings(id, c.application)
	return settings, errors.Trace(err)
}

func (c *Client) readSettings(id relation.ID, application string) (relation.Settings, error) {
	out, err := c.run("relation-get", "-r", id.String(), "--app", "--format=json", "-", application)
	if err != nil {
		return nil, errors.Trace(err)
	}
	settings := relation.Settings{}
	if err := json.Unmarshal(out, &settings); err != nil {
		return nil, errors.Annotate(err, "parsing relation-get output")
	}
	return settings, nil
}

// WriteLocal is part of relation.Accessor.
func (c *Client) WriteLocal(id relation.ID, changes relation.Settings) error {
	args := []string{"-r", id.String(), "--app"}
	args = append(args, encodeSettings(changes)...)
	_, err := c.run("relation-set", args...)
	return errors.Trace(err)
}

// LeadershipCheck is part of leadership.Checker. The returned token
// queries is-leader at check time; the agent's 30 second leadership
// guarantee windows each hook execution.
func (c *Client) LeadershipCheck(applicationName, unitName string) leadership.Token {
	return leaderToken{client: c}
}

type leaderToken struct {
	client *Client
}

// Check is part of leadership.Token.
func (t leaderToken) Check() error {
	out, err := t.client.run("is-leader", "--format=json")
	if err != nil {
		return errors.Annotate(err, "leadership status unknown")
	}
	var isLeader bool
	if err := json.Unmarshal(out, &isLeader); err != nil {
		return errors.Annotate(err, "parsing is-leader output")
	}
	if !isLeader {
		return errors.Errorf("%q is not leader of %q", t.client.unit.Id(), t.client.application)
	}
	return nil
}

// Create is part of secrets.Store.
func (c *Client) Create(description string, data secrets.SecretData) (*secrets.URI, error) {
	args := []string{"--description", description}
	args = append(args, encodeSecretData(data)...)
	out, err := c.run("secret-add", args...)
	if err != nil {
		return nil, errors.Trace(err)
	}
	uri, err := secrets.ParseURI(strings.TrimSpace(string(out)))
	if err != nil {
		return nil, errors.Annotate(err, "parsing secret-add output")
	}
	return uri, nil
}

// Update is part of secrets.Store.
func (c *Client) Update(uri *secrets.URI, data secrets.SecretData) error {
	args := []string{uri.String()}
	args = append(args, encodeSecretData(data)...)
	_, err := c.run("secret-set", args...)
	return errors.Trace(err)
}

// Grant is part of secrets.Store.
func (c *Client) Grant(uri *secrets.URI, id relation.ID) error {
	_, err := c.run("secret-grant", uri.String(), "-r", id.String())
	return errors.Trace(err)
}

// Get is part of secrets.Store.
func (c *Client) Get(uri *secrets.URI) (secrets.SecretData, error) {
	out, err := c.run("secret-get", uri.String(), "--format=json")
	if err != nil {
		return nil, errors.Trace(err)
	}
	data := secrets.SecretData{}
	if err := json.Unmarshal(out, &data); err != nil {
		return nil, errors.Annotate(err, "parsing secret-get output")
	}
	return data, nil
}

// SetUnitStatus reports workload status for the local unit.
func (c *Client) SetUnitStatus(status, message string) error {
	_, err := c.run("status-set", status, message)
	return errors.Trace(err)
}

func encodeSettings(settings relation.Settings) []string {
	return encodePairs(map[string]string(settings))
}

func encodeSecretData(data secrets.SecretData) []string {
	return encodePairs(map[string]string(data))
}

// encodePairs renders key=value arguments in stable order.
func encodePairs(pairs map[string]string) []string {
	keys := make([]string, 0, len(pairs))
	for k := range pairs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	args := make([]string, 0, len(keys))
	for _, k := range keys {
		args = append(args, fmt.Sprintf("%s=%s", k, pairs[k]))
	}
	return args
}
