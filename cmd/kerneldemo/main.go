// Command kerneldemo is the consumer the core kernel package never ships
// itself: config loading, plugin discovery, logging, CLI launching, and
// signal handling (SPEC_FULL.md §1 "Out of scope" lists these as
// collaborators of the core, not the core itself). Grounded on the
// teacher's cmd/streamy/main.go (cobra root + correlation-ID-carrying
// context + structured logger wiring), trimmed to this module's domain.
package main

import (
	"fmt"
	"os"

	"github.com/alexisbeaulieu97/pluginkernel/internal/obslog"
)

func main() {
	logger, err := obslog.New(obslog.Options{Level: "info", Component: "kerneldemo"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "kerneldemo: failed to create logger: %v\n", err)
		os.Exit(1)
	}

	if err := newRootCmd(logger).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
