package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	kernel "github.com/alexisbeaulieu97/pluginkernel"
)

// manifestPlugin is one entry in a manifest file: a name the CLI looks up
// in availablePlugins, and a distinct plugin instance name it is
// registered under (letting the same kind be loaded more than once under
// different identities).
type manifestPlugin struct {
	Kind string `yaml:"kind"`
	Name string `yaml:"name"`
}

// manifest is the kerneldemo plugin-wiring file format: an ordered plugin
// list, mirroring the teacher's YAML config loading idiom
// (internal/infrastructure/config) but describing plugin wiring instead of
// provisioning steps. Plugin order is significant — it is the resolver's
// tie-break for steps that become ready simultaneously (SPEC_FULL.md
// §4.1).
type manifest struct {
	Plugins []manifestPlugin `yaml:"plugins"`
}

// defaultManifest is used when no --manifest flag is given: a single
// greeter plugin, so `kerneldemo run` works out of the box.
func defaultManifest() manifest {
	return manifest{Plugins: []manifestPlugin{{Kind: "greeter", Name: "greeter"}}}
}

func loadManifest(path string) (manifest, error) {
	if path == "" {
		return defaultManifest(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return manifest{}, fmt.Errorf("read manifest: %w", err)
	}

	var m manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return manifest{}, fmt.Errorf("parse manifest: %w", err)
	}
	if len(m.Plugins) == 0 {
		return manifest{}, fmt.Errorf("manifest declares no plugins")
	}

	return m, nil
}

// buildPlugins resolves each manifest entry to a kernel.Plugin instance via
// availablePlugins, in manifest order.
func buildPlugins(m manifest) ([]kernel.Plugin, error) {
	plugins := make([]kernel.Plugin, 0, len(m.Plugins))
	for _, entry := range m.Plugins {
		factory, ok := availablePlugins[entry.Kind]
		if !ok {
			return nil, fmt.Errorf("unknown plugin kind %q", entry.Kind)
		}
		plugins = append(plugins, factory(entry.Name))
	}
	return plugins, nil
}
