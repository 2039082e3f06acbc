// Package lifecycle declares the canonical operations every kernel-hosted
// application wires: bootstrap, CLI argument setup/receipt, and the
// init/run/terminate trio a launcher drives in sequence.
//
// These are not part of the core kernel package because nothing about them
// is generic to the orchestration model itself — they are simply the one
// fixed vocabulary every consumer of this module is expected to share, the
// same way the original ab_plugin_manager.operations module ships a handful
// of module-level operation singletons for its own launcher to drive.
package lifecycle

import (
	"github.com/spf13/pflag"

	kernel "github.com/alexisbeaulieu97/pluginkernel"
)

// Bootstrap runs once at application startup, before command-line arguments
// have been parsed.
var Bootstrap = kernel.NewCallAllOperation("bootstrap", false)

// SetupCLIArguments lets every plugin register its flags on fs, before fs
// is parsed.
var SetupCLIArguments = kernel.NewCallAllOperation("setup_cli_arguments", false)

// ReceiveCLIArguments runs after fs.Parse has populated its flags, so
// plugins can read back the values they registered.
var ReceiveCLIArguments = kernel.NewCallAllOperation("receive_cli_arguments", false)

// Init runs once at startup, after Bootstrap and the CLI argument
// operations.
var Init = kernel.NewParallelOperation("init", false)

// Run performs the application's main work. Cancelling the context passed
// to Invoke/InvokeWith requests a graceful stop.
var Run = kernel.NewParallelOperation("run", false)

// Terminate runs during shutdown, whether Run completed normally, failed,
// or was cancelled. A launcher invokes it from a deferred/finally-style
// path so it always runs once Run has been scheduled.
var Terminate = kernel.NewParallelOperation("terminate", false)

// RegisterFlagsFunc is the shape plugins bind SetupCLIArguments steps to;
// ImplementSetupCLIArguments adapts it to a CallAllFunc whose args[0] must
// be the *pflag.FlagSet being configured.
type RegisterFlagsFunc func(fs *pflag.FlagSet) error

// ImplementSetupCLIArguments adapts fn into a Step for the
// SetupCLIArguments operation, extracting the *pflag.FlagSet from args[0]
// so plugin code never touches the untyped CallAllFunc signature directly.
func ImplementSetupCLIArguments(stepName string, plugin kernel.Plugin, fn RegisterFlagsFunc) *kernel.StepBuilder {
	return SetupCLIArguments.Implementation(stepName, plugin, func(args ...any) error {
		fs, ok := args[0].(*pflag.FlagSet)
		if !ok {
			return nil
		}
		return fn(fs)
	})
}

// ReadFlagsFunc is the shape plugins bind ReceiveCLIArguments steps to:
// args[0] is the same *pflag.FlagSet passed to SetupCLIArguments, now
// populated by a completed Parse call.
type ReadFlagsFunc func(fs *pflag.FlagSet) error

// ImplementReceiveCLIArguments adapts fn into a Step for the
// ReceiveCLIArguments operation.
func ImplementReceiveCLIArguments(stepName string, plugin kernel.Plugin, fn ReadFlagsFunc) *kernel.StepBuilder {
	return ReceiveCLIArguments.Implementation(stepName, plugin, func(args ...any) error {
		fs, ok := args[0].(*pflag.FlagSet)
		if !ok {
			return nil
		}
		return fn(fs)
	})
}
