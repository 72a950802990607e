// Copyright 2024 Canonical Ltd.
// Licensed under the LGPLv3, see LICENCE file for details.

// Package sharewatcher adapts host change notifications into the typed
// event batches produced by the interface roles, for charms that prefer
// consuming a channel over wiring snapshots through their hook handlers.
package sharewatcher

import (
	"time"

	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/juju/loggo/v2"
	"github.com/juju/retry"
	"github.com/juju/worker/v4/catacomb"

	"github.com/canonical/storage-libs/core/relation"
)

var logger = loggo.GetLogger("storagelibs.sharewatcher")

const (
	snapshotRetries    = 3
	snapshotRetryDelay = 100 * time.Millisecond
)

// EventSource is the snapshot/diff surface shared by the requirer and
// provider roles of both interface packages.
type EventSource interface {
	// Snapshot reads the current state of the endpoint.
	Snapshot() (relation.Snapshot, error)

	// Changes returns the events between two snapshots.
	Changes(prev, curr relation.Snapshot) []relation.Event
}

// Config holds the dependencies of a share watcher.
type Config struct {
	// Source produces snapshots and diffs them.
	Source EventSource

	// Changes receives a value whenever the host signals that relation
	// data may have changed. The host is expected to send an initial
	// value so existing pairings surface as connections.
	Changes <-chan struct{}

	// Out receives non-empty event batches.
	Out chan<- []relation.Event

	// Clock times snapshot retries.
	Clock clock.Clock
}

// Validate returns an error if the config cannot start a watcher.
func (config Config) Validate() error {
	if config.Source == nil {
		return errors.NotValidf("nil Source")
	}
	if config.Changes == nil {
		return errors.NotValidf("nil Changes")
	}
	if config.Out == nil {
		return errors.NotValidf("nil Out")
	}
	if config.Clock == nil {
		return errors.NotValidf("nil Clock")
	}
	return nil
}

// Watcher pumps change notifications through an event source.
type Watcher struct {
	catacomb catacomb.Catacomb
	config   Config

	// last is the snapshot the previous batch was derived from. It is
	// only touched by the loop goroutine.
	last relation.Snapshot
}

// NewWatcher starts a watcher with the supplied config.
func NewWatcher(config Config) (*Watcher, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	w := &Watcher{config: config}
	err := catacomb.Invoke(catacomb.Plan{
		Site: &w.catacomb,
		Work: w.loop,
	})
	if err != nil {
		return nil, errors.Trace(err)
	}
	return w, nil
}

// Kill is part of the worker.Worker interface.
func (w *Watcher) Kill() {
	w.catacomb.Kill(nil)
}

// Wait is part of the worker.Worker interface.
func (w *Watcher) Wait() error {
	return w.catacomb.Wait()
}

func (w *Watcher) loop() error {
	for {
		select {
		case <-w.catacomb.Dying():
			return w.catacomb.ErrDying()
		case _, ok := <-w.config.Changes:
			if !ok {
				return errors.New("change channel closed")
			}
			snapshot, err := w.snapshot()
			if err != nil {
				return errors.Trace(err)
			}
			events := w.config.Source.Changes(w.last, snapshot)
			w.last = snapshot
			if len(events) == 0 {
				continue
			}
			logger.Debugf("delivering %d events", len(events))
			select {
			case <-w.catacomb.Dying():
				return w.catacomb.ErrDying()
			case w.config.Out <- events:
			}
		}
	}
}

// snapshot reads the endpoint, retrying transient failures a few times
// before giving up and killing the worker.
func (w *Watcher) snapshot() (relation.Snapshot, error) {
	var snapshot relation.Snapshot
	err := retry.Call(retry.CallArgs{
		Func: func() error {
			var err error
			snapshot, err = w.config.Source.Snapshot()
			return err
		},
		NotifyFunc: func(err error, attempt int) {
			logger.Debugf("snapshot attempt %d failed: %v", attempt, err)
		},
		Attempts: snapshotRetries,
		Delay:    snapshotRetryDelay,
		Clock:    w.config.Clock,
		Stop:     w.catacomb.Dying(),
	})
	return snapshot, errors.Trace(err)
}
