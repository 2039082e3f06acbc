package kernel

// Step is one plugin's immutable contribution to one operation: a payload
// plus the ordering metadata the resolver needs to place it relative to
// every other step contributed for the same operation name.
type Step struct {
	// Name must be unique within the resolved set for one operation. A
	// second step with the same name is dropped by the resolver in favor
	// of the first (see resolveSequence in resolver.go).
	Name string

	// Plugin is the provider that contributed this step. Used for
	// diagnostics and for cache scoping when a drop is requested by
	// plugin.
	Plugin Plugin

	// Payload is the opaque value the chosen Discipline will invoke or
	// inspect. Disciplines differ in what shape they expect: call_all
	// expects a CallAllFunc (func(...any) error), call_until_first_result a
	// FirstResultFunc (func(...any) (Optional[any], error)), the wrapper
	// disciplines expect a wrapper func, and so on — see runner.go.
	Payload any

	// Dependencies are step names that must precede this step. A name
	// with no corresponding step in the resolved set is not an error: it
	// is an ordering hint with no counterpart, silently ignored.
	Dependencies []string

	// ReverseDependencies are step names that must follow this step —
	// edges added in the opposite direction from Dependencies.
	ReverseDependencies []string

	// Annotation is optional metadata describing Payload's expected
	// shape. Opaque to the core; providers and consumers agree on its
	// meaning out of band.
	Annotation any
}

// StepBuilder assembles a Step fluently. Providers that don't need
// reflection-based harvesting (see the separate magicplugin package) use
// this directly.
type StepBuilder struct {
	step Step
}

// NewStep starts building a step with the given name, owned by plugin.
func NewStep(name string, plugin Plugin) *StepBuilder {
	return &StepBuilder{step: Step{Name: name, Plugin: plugin}}
}

// DependsOn appends forward dependencies: names that must precede this step.
func (b *StepBuilder) DependsOn(names ...string) *StepBuilder {
	b.step.Dependencies = append(b.step.Dependencies, names...)
	return b
}

// Before appends reverse dependencies: names that must follow this step.
func (b *StepBuilder) Before(names ...string) *StepBuilder {
	b.step.ReverseDependencies = append(b.step.ReverseDependencies, names...)
	return b
}

// WithPayload sets the opaque payload the chosen discipline will invoke.
func (b *StepBuilder) WithPayload(payload any) *StepBuilder {
	b.step.Payload = payload
	return b
}

// WithAnnotation attaches opaque metadata describing the payload's shape.
func (b *StepBuilder) WithAnnotation(annotation any) *StepBuilder {
	b.step.Annotation = annotation
	return b
}

// Build returns the assembled Step.
func (b *StepBuilder) Build() Step {
	return b.step
}

// Optional distinguishes "no result" from a payload legitimately returning
// a zero value of T, replacing Python's reliance on None as "absent" (see
// SPEC_FULL.md design note on None-as-absent).
type Optional[T any] struct {
	value   T
	present bool
}

// Some wraps a present value.
func Some[T any](v T) Optional[T] {
	return Optional[T]{value: v, present: true}
}

// None represents absence of a value.
func None[T any]() Optional[T] {
	return Optional[T]{}
}

// Get returns the wrapped value and whether it is present.
func (o Optional[T]) Get() (T, bool) {
	return o.value, o.present
}

// IsPresent reports whether the optional carries a value.
func (o Optional[T]) IsPresent() bool {
	return o.present
}
