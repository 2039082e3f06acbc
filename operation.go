package kernel

import (
	"context"
	"fmt"
	"reflect"
)

// Typed Operation Handle (SPEC_FULL.md §4.6, C8). Each discipline gets its
// own generic handle type rather than one handle parameterized over a
// discipline enum: Go has no class-hierarchy dispatch the way the
// original's MagicOperation/CallAllOperation/WrapperCallOperation/
// AsyncWrapperCallOperation/CallAllAsyncConcurrentOperation hierarchy does,
// and a discipline-tagged struct would need a type switch at every call
// site anyway. A handle bundles: the operation name, whether the resolved
// sequence is cached under the sentinel key, and (where the discipline
// produces a typed value) a chain of result checks.

// check is one result-shape assertion a Typed Operation Handle runs after
// its discipline completes.
type check[T any] struct {
	predicate func(T) bool
	message   string
}

func runChecks[T any](opName string, checks []check[T], value T) error {
	for _, c := range checks {
		if !c.predicate(value) {
			return &ResultCheckFailedError{Operation: opName, Message: c.message}
		}
	}
	return nil
}

// resolveManager returns the ambient Manager carried by ctx, or
// ErrNoAmbientManager's structured form if none was set — the error form
// Typed Operation Handles surface at invocation (SPEC_FULL.md §4.4
// Failure modes), as opposed to MustManagerFrom's panic, which is for
// callers that have already decided a missing manager is a programming
// error.
func resolveManager(ctx context.Context) (*Manager, error) {
	mgr, ok := ManagerFrom(ctx)
	if !ok {
		return nil, &CurrentManagerNotSetError{}
	}
	return mgr, nil
}

// CallAllOperation is a Typed Operation Handle bound to the call_all
// discipline (SPEC_FULL.md §4.5.1). It has no result to check: call_all
// invokes every step for side effect only.
type CallAllOperation struct {
	name       string
	cacheSteps bool
}

// NewCallAllOperation declares a handle for name using the call_all
// discipline. cacheSteps controls whether the resolved sequence is
// memoized under the Manager's sentinel key (SPEC_FULL.md §4.6) —
// appropriate for hot paths, not for rare lifecycle operations whose
// plugin set may still be settling.
func NewCallAllOperation(name string, cacheSteps bool) *CallAllOperation {
	return &CallAllOperation{name: name, cacheSteps: cacheSteps}
}

// Name returns the operation name this handle is bound to.
func (op *CallAllOperation) Name() string { return op.name }

// Invoke resolves the ambient Manager from ctx, asks it for the sequence,
// and runs CallAll over it.
func (op *CallAllOperation) Invoke(ctx context.Context, args ...any) error {
	mgr, err := resolveManager(ctx)
	if err != nil {
		return err
	}
	return op.InvokeWith(mgr, args...)
}

// InvokeWith runs the discipline against an explicitly supplied Manager,
// bypassing ambient resolution — useful in tests and in call sites that
// already hold a Manager reference.
func (op *CallAllOperation) InvokeWith(mgr *Manager, args ...any) error {
	seq, err := mgr.Sequence(op.name, op.cacheSteps)
	if err != nil {
		return err
	}
	return CallAll(seq, args...)
}

// Implementation builds a Step bound to this operation's payload shape,
// so a Step Provider's StepsFor implementation doesn't need to remember
// the exact CallAllFunc signature (SPEC_FULL.md §4.6 "Binding to a
// payload"). Callers still choose dependencies/reverse-dependencies/
// annotation on the returned builder before calling Build.
func (op *CallAllOperation) Implementation(stepName string, plugin Plugin, fn CallAllFunc) *StepBuilder {
	return NewStep(stepName, plugin).WithPayload(fn)
}

// FirstResultOperation is a Typed Operation Handle bound to the
// call_until_first_result discipline (SPEC_FULL.md §4.5.2), parameterized
// by the result type T.
type FirstResultOperation[T any] struct {
	name       string
	cacheSteps bool
	checks     []check[T]
}

// NewFirstResultOperation declares a handle for name using the
// call_until_first_result discipline.
func NewFirstResultOperation[T any](name string, cacheSteps bool) *FirstResultOperation[T] {
	return &FirstResultOperation[T]{name: name, cacheSteps: cacheSteps}
}

// Name returns the operation name this handle is bound to.
func (op *FirstResultOperation[T]) Name() string { return op.name }

// WithCheck returns a copy of op with an additional result check. Checks
// compose fluently and run in the order added, after a present result is
// produced (SPEC_FULL.md §4.6).
func (op *FirstResultOperation[T]) WithCheck(predicate func(T) bool, message string) *FirstResultOperation[T] {
	next := *op
	next.checks = append(append([]check[T]{}, op.checks...), check[T]{predicate: predicate, message: message})
	return &next
}

// ReturningNotNone rejects a present result whose value is the zero value
// of T — the Go analogue of the original's returning_not_none check. Uses
// reflection rather than a plain `any(v) != nil` comparison because boxing
// a nil pointer/slice/map in an `any` produces a non-nil interface value
// (a well-known Go sharp edge); reflect.Value.IsZero works uniformly
// across pointer, interface, and plain value kinds.
func (op *FirstResultOperation[T]) ReturningNotNone() *FirstResultOperation[T] {
	return op.WithCheck(func(v T) bool {
		return !reflect.ValueOf(&v).Elem().IsZero()
	}, "result must not be the zero value")
}

// ReturningInstanceOf rejects a present result that does not satisfy
// assertable — the Go analogue of the original's returning_instance_of
// check, which the source expresses as an isinstance test. Go has no
// runtime isinstance over arbitrary types, so the check is expressed as a
// caller-supplied predicate over T itself (typically a type switch or an
// interface assertion on the value); this keeps the check generic over any
// shape the caller wants to assert, rather than baking in reflect.TypeOf
// comparisons the core cannot know how to perform for an arbitrary T.
func (op *FirstResultOperation[T]) ReturningInstanceOf(assertable func(T) bool, message string) *FirstResultOperation[T] {
	return op.WithCheck(assertable, message)
}

// Invoke resolves the ambient Manager from ctx and runs
// CallUntilFirstResult over its sequence.
func (op *FirstResultOperation[T]) Invoke(ctx context.Context, args ...any) (Optional[T], error) {
	mgr, err := resolveManager(ctx)
	if err != nil {
		return None[T](), err
	}
	return op.InvokeWith(mgr, args...)
}

// InvokeWith runs the discipline against an explicitly supplied Manager.
func (op *FirstResultOperation[T]) InvokeWith(mgr *Manager, args ...any) (Optional[T], error) {
	seq, err := mgr.Sequence(op.name, op.cacheSteps)
	if err != nil {
		return None[T](), err
	}

	result, err := CallUntilFirstResult(seq, args...)
	if err != nil {
		return None[T](), err
	}

	v, present := result.Get()
	if !present {
		return None[T](), nil
	}

	typed, ok := v.(T)
	if !ok {
		return None[T](), &ResultCheckFailedError{Operation: op.name, Message: fmt.Sprintf("result has unexpected type %T", v)}
	}

	if err := runChecks(op.name, op.checks, typed); err != nil {
		return None[T](), err
	}

	return Some(typed), nil
}

// Implementation builds a Step bound to this operation's payload shape.
func (op *FirstResultOperation[T]) Implementation(stepName string, plugin Plugin, fn func(args ...any) (Optional[T], error)) *StepBuilder {
	adapted := FirstResultFunc(func(args ...any) (Optional[any], error) {
		result, err := fn(args...)
		if err != nil {
			return None[any](), err
		}
		v, ok := result.Get()
		if !ok {
			return None[any](), nil
		}
		return Some[any](v), nil
	})
	return NewStep(stepName, plugin).WithPayload(adapted)
}

// TypedWrapperNext is the continuation a WrapperOperation[T] payload
// receives: the remainder of the chain, typed.
type TypedWrapperNext[T any] func(v T, args ...any) (T, error)

// TypedWrapperFunc is the payload shape WrapperOperation[T].Implementation
// expects.
type TypedWrapperFunc[T any] func(next TypedWrapperNext[T], prev T, args ...any) (T, error)

// WrapperOperation is a Typed Operation Handle bound to the
// call_all_as_wrappers discipline (SPEC_FULL.md §4.5.3).
type WrapperOperation[T any] struct {
	name       string
	cacheSteps bool
	checks     []check[T]
}

// NewWrapperOperation declares a handle for name using the
// call_all_as_wrappers discipline.
func NewWrapperOperation[T any](name string, cacheSteps bool) *WrapperOperation[T] {
	return &WrapperOperation[T]{name: name, cacheSteps: cacheSteps}
}

// Name returns the operation name this handle is bound to.
func (op *WrapperOperation[T]) Name() string { return op.name }

// WithCheck returns a copy of op with an additional result check.
func (op *WrapperOperation[T]) WithCheck(predicate func(T) bool, message string) *WrapperOperation[T] {
	next := *op
	next.checks = append(append([]check[T]{}, op.checks...), check[T]{predicate: predicate, message: message})
	return &next
}

// Invoke resolves the ambient Manager from ctx, then builds and runs the
// wrapper chain seeded with initial.
func (op *WrapperOperation[T]) Invoke(ctx context.Context, initial T, args ...any) (T, error) {
	mgr, err := resolveManager(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	return op.InvokeWith(mgr, initial, args...)
}

// InvokeWith runs the discipline against an explicitly supplied Manager.
func (op *WrapperOperation[T]) InvokeWith(mgr *Manager, initial T, args ...any) (T, error) {
	var zero T

	seq, err := mgr.Sequence(op.name, op.cacheSteps)
	if err != nil {
		return zero, err
	}

	result, err := CallAllAsWrappers(seq, initial, args...)
	if err != nil {
		return zero, err
	}

	typed, ok := result.(T)
	if !ok {
		return zero, &ResultCheckFailedError{Operation: op.name, Message: fmt.Sprintf("result has unexpected type %T", result)}
	}

	if err := runChecks(op.name, op.checks, typed); err != nil {
		return zero, err
	}

	return typed, nil
}

// Implementation adapts a typed wrapper payload into the untyped
// WrapperFunc shape CallAllAsWrappers expects, so provider code written
// against this handle never touches `any` directly.
func (op *WrapperOperation[T]) Implementation(stepName string, plugin Plugin, fn TypedWrapperFunc[T]) *StepBuilder {
	adapted := WrapperFunc(func(next WrapperNext, prev any, args ...any) (any, error) {
		typedPrev, _ := prev.(T)

		typedNext := func(v T, nextArgs ...any) (T, error) {
			var zero T
			result, err := next(v, nextArgs...)
			if err != nil {
				return zero, err
			}
			typed, ok := result.(T)
			if !ok {
				return zero, fmt.Errorf("kernel: wrapper chain for operation %q returned unexpected type %T", stepName, result)
			}
			return typed, nil
		}

		return fn(typedNext, typedPrev, args...)
	})
	return NewStep(stepName, plugin).WithPayload(adapted)
}

// FactoryImplementation builds a Step whose payload is a factory lifted
// into a wrapper via AsFactoryWrapper (SPEC_FULL.md §4.5 "Factory-wrapper
// sugar"): if the chain's running value is still absent (T's zero value
// when prev is nil) when this step runs, factory is tried; the chosen
// value (or the untouched prev) is passed on to the remainder of the
// chain unchanged.
func (op *WrapperOperation[T]) FactoryImplementation(stepName string, plugin Plugin, factory func(args ...any) (Optional[T], error)) *StepBuilder {
	untypedFactory := FactoryFunc(func(args ...any) (Optional[any], error) {
		result, err := factory(args...)
		if err != nil {
			return None[any](), err
		}
		v, ok := result.Get()
		if !ok {
			return None[any](), nil
		}
		return Some[any](v), nil
	})
	return NewStep(stepName, plugin).WithPayload(AsFactoryWrapper(untypedFactory))
}

// TypedAsyncWrapperNext is the continuation an AsyncWrapperOperation[T]
// payload receives.
type TypedAsyncWrapperNext[T any] func(v T, args ...any) (T, error)

// TypedAsyncWrapperFunc is the payload shape
// AsyncWrapperOperation[T].Implementation expects.
type TypedAsyncWrapperFunc[T any] func(next TypedAsyncWrapperNext[T], prev T, args ...any) (T, error)

// AsyncWrapperOperation is a Typed Operation Handle bound to the
// call_all_as_wrappers_async discipline (SPEC_FULL.md §4.5.4).
type AsyncWrapperOperation[T any] struct {
	name       string
	cacheSteps bool
	checks     []check[T]
}

// NewAsyncWrapperOperation declares a handle for name using the
// call_all_as_wrappers_async discipline.
func NewAsyncWrapperOperation[T any](name string, cacheSteps bool) *AsyncWrapperOperation[T] {
	return &AsyncWrapperOperation[T]{name: name, cacheSteps: cacheSteps}
}

// Name returns the operation name this handle is bound to.
func (op *AsyncWrapperOperation[T]) Name() string { return op.name }

// WithCheck returns a copy of op with an additional result check.
func (op *AsyncWrapperOperation[T]) WithCheck(predicate func(T) bool, message string) *AsyncWrapperOperation[T] {
	next := *op
	next.checks = append(append([]check[T]{}, op.checks...), check[T]{predicate: predicate, message: message})
	return &next
}

// Invoke resolves the ambient Manager from ctx, then builds and runs the
// asynchronous wrapper chain seeded with initial.
func (op *AsyncWrapperOperation[T]) Invoke(ctx context.Context, initial T, args ...any) (T, error) {
	mgr, err := resolveManager(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	return op.InvokeWith(mgr, initial, args...)
}

// InvokeWith runs the discipline against an explicitly supplied Manager.
func (op *AsyncWrapperOperation[T]) InvokeWith(mgr *Manager, initial T, args ...any) (T, error) {
	var zero T

	seq, err := mgr.Sequence(op.name, op.cacheSteps)
	if err != nil {
		return zero, err
	}

	result, err := CallAllAsWrappersAsync(seq, initial, args...)
	if err != nil {
		return zero, err
	}

	typed, ok := result.(T)
	if !ok {
		return zero, &ResultCheckFailedError{Operation: op.name, Message: fmt.Sprintf("result has unexpected type %T", result)}
	}

	if err := runChecks(op.name, op.checks, typed); err != nil {
		return zero, err
	}

	return typed, nil
}

// Implementation adapts a typed async wrapper payload into the untyped
// AsyncWrapperFunc shape CallAllAsWrappersAsync expects.
func (op *AsyncWrapperOperation[T]) Implementation(stepName string, plugin Plugin, fn TypedAsyncWrapperFunc[T]) *StepBuilder {
	adapted := AsyncWrapperFunc(func(next AsyncWrapperNext, prev any, args ...any) (any, error) {
		typedPrev, _ := prev.(T)

		typedNext := func(v T, nextArgs ...any) (T, error) {
			var zero T
			result, err := next(v, nextArgs...)
			if err != nil {
				return zero, err
			}
			typed, ok := result.(T)
			if !ok {
				return zero, fmt.Errorf("kernel: async wrapper chain for operation %q returned unexpected type %T", stepName, result)
			}
			return typed, nil
		}

		return fn(typedNext, typedPrev, args...)
	})
	return NewStep(stepName, plugin).WithPayload(adapted)
}

// ParallelOperation is a Typed Operation Handle bound to the
// call_all_parallel_async discipline (SPEC_FULL.md §4.5.5). It has no
// typed result: invoking it returns the scheduled Task handles themselves.
type ParallelOperation struct {
	name       string
	cacheSteps bool
}

// NewParallelOperation declares a handle for name using the
// call_all_parallel_async discipline.
func NewParallelOperation(name string, cacheSteps bool) *ParallelOperation {
	return &ParallelOperation{name: name, cacheSteps: cacheSteps}
}

// Name returns the operation name this handle is bound to.
func (op *ParallelOperation) Name() string { return op.name }

// Invoke resolves the ambient Manager from ctx, schedules every step as a
// goroutine respecting its forward dependencies, and returns the Task
// handles without waiting on them.
func (op *ParallelOperation) Invoke(ctx context.Context, args ...any) ([]*Task, error) {
	mgr, err := resolveManager(ctx)
	if err != nil {
		return nil, err
	}
	return op.InvokeWith(ctx, mgr, args...)
}

// InvokeWith runs the discipline against an explicitly supplied Manager.
func (op *ParallelOperation) InvokeWith(ctx context.Context, mgr *Manager, args ...any) ([]*Task, error) {
	seq, err := mgr.Sequence(op.name, op.cacheSteps)
	if err != nil {
		return nil, err
	}
	return CallAllParallelAsync(ctx, seq, args...)
}

// Implementation builds a Step bound to this operation's payload shape.
func (op *ParallelOperation) Implementation(stepName string, plugin Plugin, fn ParallelFunc) *StepBuilder {
	return NewStep(stepName, plugin).WithPayload(fn)
}
