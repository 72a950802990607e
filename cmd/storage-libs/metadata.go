// Copyright 2024 Canonical Ltd.
// Licensed under the LGPLv3, see LICENCE file for details.

package main

import (
	"os"
	"sort"

	"github.com/juju/errors"
	"gopkg.in/yaml.v3"
)

// charmMeta is the subset of metadata.yaml the placeholder cares about.
type charmMeta struct {
	Name        string                  `yaml:"name"`
	Summary     string                  `yaml:"summary"`
	Description string                  `yaml:"description"`
	Provides    map[string]endpointMeta `yaml:"provides"`
	Requires    map[string]endpointMeta `yaml:"requires"`
}

type endpointMeta struct {
	Interface string `yaml:"interface"`
}

// EndpointNames lists the declared relation endpoints, sorted.
func (m *charmMeta) EndpointNames() []string {
	names := make([]string, 0, len(m.Provides)+len(m.Requires))
	for name := range m.Provides {
		names = append(names, name)
	}
	for name := range m.Requires {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func readMeta(path string) (*charmMeta, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Trace(err)
	}
	var meta charmMeta
	if err := yaml.Unmarshal(data, &meta); err != nil {
		return nil, errors.Annotate(err, "parsing charm metadata")
	}
	if meta.Name == "" {
		return nil, errors.NotValidf("charm metadata with no name")
	}
	return &meta, nil
}
