// Copyright 2024 Canonical Ltd.
// Licensed under the LGPLv3, see LICENCE file for details.

// storage-libs is the dispatch entrypoint of the placeholder charm this
// repository ships as. The charm exists only so the interface libraries
// can be packaged and distributed; it blocks on start and otherwise does
// nothing.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/juju/cmd/v4"
	"github.com/juju/errors"
	"github.com/juju/gnuflag"
	"github.com/juju/loggo/v2"

	"github.com/canonical/storage-libs/internal/hooktool"
)

var logger = loggo.GetLogger("storagelibs.cmd")

const blockedMessage = "storage-libs is not meant to be deployed as a standalone charm"

func main() {
	ctx, err := cmd.DefaultContext()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}
	os.Exit(cmd.Main(&dispatchCommand{}, ctx, os.Args[1:]))
}

type dispatchCommand struct {
	cmd.CommandBase

	hook  string
	debug bool
}

// Info implements cmd.Command.
func (c *dispatchCommand) Info() *cmd.Info {
	return &cmd.Info{
		Name:    "storage-libs",
		Purpose: "dispatch a hook for the storage-libs placeholder charm",
		Doc: `
Invoked by the unit agent for every lifecycle hook. The placeholder has no
workload: the start hook reports blocked status and every other hook is a
no-op.
`,
	}
}

// SetFlags implements cmd.Command.
func (c *dispatchCommand) SetFlags(f *gnuflag.FlagSet) {
	f.StringVar(&c.hook, "hook", "", "hook to dispatch (defaults to the hook environment)")
	f.BoolVar(&c.debug, "debug", false, "enable debug logging")
}

// Init implements cmd.Command.
func (c *dispatchCommand) Init(args []string) error {
	if c.hook == "" {
		c.hook = hookFromEnv()
	}
	if c.hook == "" {
		return errors.New("no hook to dispatch")
	}
	return cmd.CheckEmpty(args)
}

// Run implements cmd.Command.
func (c *dispatchCommand) Run(ctx *cmd.Context) error {
	if c.debug {
		if err := loggo.ConfigureLoggers("storagelibs=DEBUG"); err != nil {
			return errors.Trace(err)
		}
	}
	if dir := os.Getenv("JUJU_CHARM_DIR"); dir != "" {
		meta, err := readMeta(filepath.Join(dir, "metadata.yaml"))
		if err != nil {
			logger.Warningf("cannot read charm metadata: %v", err)
		} else {
			logger.Debugf("dispatching %q for charm %q (endpoints: %v)",
				c.hook, meta.Name, meta.EndpointNames())
		}
	}
	if c.hook != "start" {
		logger.Debugf("nothing to do for hook %q", c.hook)
		return nil
	}
	client, err := hooktool.NewClient()
	if err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(client.SetUnitStatus("blocked", blockedMessage))
}

// hookFromEnv recovers the hook name from the agent environment, either
// JUJU_HOOK_NAME or the tail of JUJU_DISPATCH_PATH ("hooks/start").
func hookFromEnv() string {
	if name := os.Getenv("JUJU_HOOK_NAME"); name != "" {
		return name
	}
	if path := os.Getenv("JUJU_DISPATCH_PATH"); path != "" {
		return filepath.Base(path)
	}
	return ""
}
