package main

import (
	kernel "github.com/alexisbeaulieu97/pluginkernel"
	"github.com/alexisbeaulieu97/pluginkernel/examples/greeterplugin"
)

// pluginFactory builds a named kernel.Plugin instance. Grounded on the
// teacher's cmd/streamy/plugins_import.go + registry.go pair (blank
// imports trigger init()-based self-registration into a package-level
// registry); this module has exactly one demo plugin, so the indirection
// is a plain map rather than an init()-populated global, but the shape —
// "a name the manifest can reference, a constructor the CLI resolves it
// to" — is the same.
type pluginFactory func(name string) kernel.Plugin

var availablePlugins = map[string]pluginFactory{
	"greeter": func(name string) kernel.Plugin { return greeterplugin.New(name) },
}
