package kernel

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the kernel's error taxonomy (see SPEC_FULL.md §7).
var (
	// ErrNoAmbientManager is what CurrentManagerNotSetError unwraps to: the
	// value MustManagerFrom panics with and Typed Operation Handles' Invoke
	// methods return (ManagerFrom reports the same condition as false)
	// when no Manager has been placed on the context via WithManager.
	ErrNoAmbientManager = errors.New("kernel: no ambient manager set on context")

	// ErrUnlistableOperationSet is wrapped by a plugin's ListOperations
	// failure (or represents the absence of the OperationLister
	// capability) when DropCache(WithPlugin(p)) cannot determine which
	// operations to restrict the drop to.
	ErrUnlistableOperationSet = errors.New("kernel: plugin cannot enumerate its operations")

	// ErrExcluded is the signalling sentinel a payload returns from
	// CallUntilFirstResult to mean "not me, and don't try anyone else
	// either" (see SPEC_FULL.md §4.5.2).
	ErrExcluded = errors.New("kernel: step excluded itself from consideration")

	// ErrInvalidPluginMetadata is wrapped when a plugin's Name/Version
	// fail validation at registration time.
	ErrInvalidPluginMetadata = errors.New("kernel: invalid plugin metadata")

	// ErrDependencyCancelled wraps the propagation marker attached to a
	// parallel-async step whose forward dependency failed or was
	// cancelled.
	ErrDependencyCancelled = errors.New("kernel: dependency failed or was cancelled")
)

// DependencyCycleError reports a cyclic dependency among the steps
// contributed to one operation. It names every step on the cycle, as
// required by SPEC_FULL.md §8 property 4.
type DependencyCycleError struct {
	Operation string
	Steps     []string
}

func (e *DependencyCycleError) Error() string {
	sequence := append(append([]string{}, e.Steps...), e.Steps[0])
	return fmt.Sprintf(
		"kernel: operation %q has a dependency cycle: %s",
		e.Operation,
		strings.Join(sequence, " -> "),
	)
}

// ResultCheckFailedError reports that a Typed Operation Handle's result
// check rejected the discipline's output.
type ResultCheckFailedError struct {
	Operation string
	Message   string
}

func (e *ResultCheckFailedError) Error() string {
	return fmt.Sprintf("kernel: operation %q result check failed: %s", e.Operation, e.Message)
}

// CurrentManagerNotSetError is the structured form of ErrNoAmbientManager,
// returned by Typed Operation Handles' Invoke methods (and used as
// MustManagerFrom's panic value) so callers can distinguish it from other
// errors with errors.As while errors.Is(err, ErrNoAmbientManager) still
// works via Unwrap.
type CurrentManagerNotSetError struct{}

func (e *CurrentManagerNotSetError) Error() string { return ErrNoAmbientManager.Error() }

func (e *CurrentManagerNotSetError) Unwrap() error { return ErrNoAmbientManager }

// ValidationError reports a problem with a plugin's declared identity or
// configuration, detected before the plugin is allowed to contribute steps.
// Mirrors the shape of the teacher's internal/plugin/errors.go
// ValidationError (ID + wrapped cause), adapted to a plain message since
// plugin registration failures here are not step-scoped.
type ValidationError struct {
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Err == nil {
		return "kernel: " + e.Message
	}
	return "kernel: " + e.Message + ": " + e.Err.Error()
}

func (e *ValidationError) Unwrap() error { return e.Err }

// StepError wraps an error raised by a step's payload with the step and
// operation it came from, so that propagated errors (SPEC_FULL.md §7,
// "Propagated") carry enough context for diagnostics without suppressing
// the original cause. The runners in runner.go only know the step, not the
// operation name, so the errors they build leave Operation empty.
type StepError struct {
	Operation string
	Step      string
	Err       error
}

func NewStepError(operation, step string, err error) *StepError {
	return &StepError{Operation: operation, Step: step, Err: err}
}

func (e *StepError) Error() string {
	return fmt.Sprintf("kernel: operation %q step %q failed: %v", e.Operation, e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }
