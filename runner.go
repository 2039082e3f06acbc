package kernel

import (
	"context"
	"fmt"
	"reflect"

	"golang.org/x/sync/errgroup"
)

// Invocation Runners (SPEC_FULL.md §4.5, C7). Each discipline is
// parameterized by the payload shape its Steps are expected to carry; a
// Step whose Payload does not match the shape a discipline expects fails
// with a contractual error rather than panicking.

// CallAllFunc is the payload shape CallAll expects: invoked for side
// effect, no return value beyond an error.
type CallAllFunc func(args ...any) error

// CallAll invokes every step's payload in sequence order with args,
// ignoring return values; the first error aborts remaining steps and is
// returned wrapped in a *StepError naming the step that raised it
// (SPEC_FULL.md §4.5.1).
func CallAll(seq []Step, args ...any) error {
	for _, step := range seq {
		fn, ok := step.Payload.(CallAllFunc)
		if !ok {
			return NewStepError("", step.Name, fmt.Errorf("kernel: step %q payload is not a CallAllFunc", step.Name))
		}
		if err := fn(args...); err != nil {
			return NewStepError("", step.Name, err)
		}
	}
	return nil
}

// FirstResultFunc is the payload shape CallUntilFirstResult expects. A
// returned Optional with IsPresent() false means "no result, try the
// next step"; returning ErrExcluded (or an error wrapping it) means "stop
// entirely, don't try the remaining steps".
type FirstResultFunc func(args ...any) (Optional[any], error)

// CallUntilFirstResult invokes payloads in sequence order until one
// returns a present Optional, which is returned immediately. A payload
// returning ErrExcluded stops the walk without trying later steps
// (SPEC_FULL.md §4.5.2, §9 Open Questions). If every payload returns
// absent, the result is itself absent.
func CallUntilFirstResult(seq []Step, args ...any) (Optional[any], error) {
	for _, step := range seq {
		fn, ok := step.Payload.(FirstResultFunc)
		if !ok {
			return None[any](), NewStepError("", step.Name, fmt.Errorf("kernel: step %q payload is not a FirstResultFunc", step.Name))
		}

		result, err := fn(args...)
		if err != nil {
			return None[any](), NewStepError("", step.Name, err)
		}
		if v, ok := result.Get(); ok {
			return Some(v), nil
		}
	}
	return None[any](), nil
}

// WrapperNext invokes the remainder of a wrapper chain with v as the next
// wrapper's prev.
type WrapperNext func(v any, args ...any) (any, error)

// WrapperFunc is the payload shape CallAllAsWrappers expects: given the
// continuation and the running value, produce the chain's eventual
// result. Implementations commonly compute a decorated value, invoke
// next with it, and post-process the result.
type WrapperFunc func(next WrapperNext, prev any, args ...any) (any, error)

// CallAllAsWrappers builds a recursive wrapper chain from seq and invokes
// it with initial seeding the outermost prev (SPEC_FULL.md §4.5.3). The
// base case (after the innermost wrapper) returns its prev unchanged.
func CallAllAsWrappers(seq []Step, initial any, args ...any) (any, error) {
	chain, err := buildWrapperChain(seq, 0, args)
	if err != nil {
		return nil, err
	}
	return chain(initial, args...)
}

func buildWrapperChain(seq []Step, idx int, args []any) (WrapperNext, error) {
	if idx >= len(seq) {
		return func(v any, _ ...any) (any, error) { return v, nil }, nil
	}

	step := seq[idx]
	fn, ok := step.Payload.(WrapperFunc)
	if !ok {
		return nil, NewStepError("", step.Name, fmt.Errorf("kernel: step %q payload is not a WrapperFunc", step.Name))
	}

	rest, err := buildWrapperChain(seq, idx+1, args)
	if err != nil {
		return nil, err
	}

	return func(prev any, callArgs ...any) (any, error) {
		result, err := fn(rest, prev, callArgs...)
		if err != nil {
			return nil, NewStepError("", step.Name, err)
		}
		return result, nil
	}, nil
}

// AsyncWrapperNext is CallAllAsWrappersAsync's continuation. It is
// implemented with a goroutine and a pair of channels standing in for an
// `await` point: the calling wrapper suspends on the response channel
// until the remainder of the chain has produced a value (SPEC_FULL.md
// §4.5.4).
type AsyncWrapperNext func(v any, args ...any) (any, error)

// AsyncWrapperFunc is the payload shape CallAllAsWrappersAsync expects.
type AsyncWrapperFunc func(next AsyncWrapperNext, prev any, args ...any) (any, error)

type asyncWrapperResult struct {
	value any
	err   error
}

// CallAllAsWrappersAsync has the same semantics as CallAllAsWrappers, but
// each payload is treated as the asynchronous variant: next is
// implemented as a channel round-trip, so invoking it is a genuine
// suspension point rather than a plain call (SPEC_FULL.md §4.5.4, §5).
func CallAllAsWrappersAsync(seq []Step, initial any, args ...any) (any, error) {
	chain, err := buildAsyncWrapperChain(seq, 0, args)
	if err != nil {
		return nil, err
	}
	return chain(initial, args...)
}

func buildAsyncWrapperChain(seq []Step, idx int, args []any) (AsyncWrapperNext, error) {
	if idx >= len(seq) {
		return func(v any, _ ...any) (any, error) { return v, nil }, nil
	}

	step := seq[idx]
	fn, ok := step.Payload.(AsyncWrapperFunc)
	if !ok {
		return nil, NewStepError("", step.Name, fmt.Errorf("kernel: step %q payload is not an AsyncWrapperFunc", step.Name))
	}

	rest, err := buildAsyncWrapperChain(seq, idx+1, args)
	if err != nil {
		return nil, err
	}

	return func(prev any, callArgs ...any) (any, error) {
		suspended := func(v any, nextArgs ...any) (any, error) {
			resultCh := make(chan asyncWrapperResult, 1)
			go func() {
				v2, err2 := rest(v, nextArgs...)
				resultCh <- asyncWrapperResult{value: v2, err: err2}
			}()
			res := <-resultCh
			return res.value, res.err
		}

		result, err := fn(suspended, prev, callArgs...)
		if err != nil {
			return nil, NewStepError("", step.Name, err)
		}
		return result, nil
	}, nil
}

// FactoryFunc is a payload that attempts to produce a value from args
// alone, without seeing prev. AsFactoryWrapper lifts it into a WrapperFunc
// so that several plugins may each attempt to produce a value — the
// first present Optional wins — while later wrappers may still decorate
// whatever value was chosen (SPEC_FULL.md §4.5 "Factory-wrapper sugar").
type FactoryFunc func(args ...any) (Optional[any], error)

// isAbsentValue reports whether v should be treated as "no value yet" under
// the None-as-absent convention (SPEC_FULL.md §9). A plain `v == nil` check
// only catches a literal untyped nil; once a zero value of a concrete type
// (an empty string, a 0, a nil pointer held in a non-nil interface) is boxed
// into an any, the interface itself is no longer nil even though the value
// it carries is. reflect.IsZero catches both cases.
func isAbsentValue(v any) bool {
	if v == nil {
		return true
	}
	return reflect.ValueOf(v).IsZero()
}

// AsFactoryWrapper lifts factory into a WrapperFunc: if prev is absent (see
// isAbsentValue), factory is invoked to choose a value; otherwise the
// existing prev is kept. Either way the chosen value is passed to next
// unchanged.
func AsFactoryWrapper(factory FactoryFunc) WrapperFunc {
	return func(next WrapperNext, prev any, args ...any) (any, error) {
		if isAbsentValue(prev) {
			result, err := factory(args...)
			if err != nil {
				return nil, err
			}
			if v, ok := result.Get(); ok {
				prev = v
			}
		}
		return next(prev, args...)
	}
}

// ParallelFunc is the payload shape CallAllParallelAsync expects: a
// context-aware callable so a task can observe cancellation at its own
// join point (SPEC_FULL.md §5).
type ParallelFunc func(ctx context.Context, args ...any) error

// Task is the handle CallAllParallelAsync returns for one scheduled step.
// Wait blocks until the task's payload (or its dependency-propagation
// failure) has settled.
type Task struct {
	Name string

	done chan struct{}
	err  error
}

// Wait blocks until the task has settled and returns its error, if any.
func (t *Task) Wait() error {
	<-t.done
	return t.err
}

// Err returns the task's error without blocking; only meaningful after
// Wait (or another task's Wait on this one) has returned.
func (t *Task) Err() error {
	select {
	case <-t.done:
		return t.err
	default:
		return nil
	}
}

// CallAllParallelAsync schedules one goroutine per step. A step's
// goroutine waits for every one of its forward dependencies' tasks to
// settle before invoking its own payload; if a dependency failed or was
// cancelled, the dependent settles with an error wrapping
// ErrDependencyCancelled instead of running its payload at all
// (SPEC_FULL.md §4.5.5). Scheduling returns as soon as every goroutine has
// been started — it does not wait for any of them to finish; callers that
// want to block until completion use WaitAll or each Task's Wait.
func CallAllParallelAsync(ctx context.Context, seq []Step, args ...any) ([]*Task, error) {
	tasks := make(map[string]*Task, len(seq))
	ordered := make([]*Task, 0, len(seq))

	for _, step := range seq {
		t := &Task{Name: step.Name, done: make(chan struct{})}
		tasks[step.Name] = t
		ordered = append(ordered, t)
	}

	for i, step := range seq {
		step := step
		task := ordered[i]

		fn, ok := step.Payload.(ParallelFunc)
		if !ok {
			close(task.done)
			task.err = NewStepError("", step.Name, fmt.Errorf("kernel: step %q payload is not a ParallelFunc", step.Name))
			continue
		}

		deps := make([]*Task, 0, len(step.Dependencies))
		for _, depName := range step.Dependencies {
			if depTask, ok := tasks[depName]; ok {
				deps = append(deps, depTask)
			}
		}

		go func(step Step, task *Task, fn ParallelFunc, deps []*Task) {
			defer close(task.done)

			for _, dep := range deps {
				<-dep.done
				if dep.err != nil {
					task.err = NewStepError("", step.Name, fmt.Errorf("%w: %s", ErrDependencyCancelled, dep.Name))
					return
				}
			}

			select {
			case <-ctx.Done():
				task.err = NewStepError("", step.Name, ctx.Err())
				return
			default:
			}

			if err := fn(ctx, args...); err != nil {
				task.err = NewStepError("", step.Name, err)
			}
		}(step, task, fn, deps)
	}

	return ordered, nil
}

// WaitAll blocks until every task in tasks has settled, returning the
// first error encountered (if several tasks fail concurrently, which one
// is "first" is unspecified — see SPEC_FULL.md §9 on parallel-async
// ordering). Grounded on the teacher's errgroup-based level executor
// (internal/engine/executor.go's sync.Once first-error capture,
// generalized to errgroup for a bounded worker collection).
func WaitAll(tasks []*Task) error {
	var g errgroup.Group
	for _, t := range tasks {
		t := t
		g.Go(t.Wait)
	}
	return g.Wait()
}
