package kernel

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

// This file holds the literal end-to-end scenarios from SPEC_FULL.md §8,
// exercised through the public Manager/Operation surface rather than the
// package-private resolver used by resolver_test.go's finer-grained
// property tests.

// Scenario A — ordering with forward and reverse deps.
func TestScenarioA_OrderingWithForwardAndReverseDeps(t *testing.T) {
	p1 := newFakePlugin("P1").withStep("init", NewStep("init@P1", nil).Build())
	p2 := newFakePlugin("P2").withStep("init", NewStep("init@P2", nil).DependsOn("init@P1").Build())
	p3 := newFakePlugin("P3").withStep("init", NewStep("init@P3", nil).Before("init@P1").Build())

	mgr, err := NewManager([]Plugin{p1, p2, p3})
	require.NoError(t, err)

	seq, err := mgr.Sequence("init", false)
	require.NoError(t, err)
	require.Equal(t, []string{"init@P3", "init@P1", "init@P2"}, stepNames(seq))
}

// Scenario B — cycle: Chicken's step depends on Egg's, Egg's depends on
// Chicken's.
func TestScenarioB_Cycle(t *testing.T) {
	chicken := newFakePlugin("Chicken").withStep("create", NewStep("chicken", nil).DependsOn("egg").Build())
	egg := newFakePlugin("Egg").withStep("create", NewStep("egg", nil).DependsOn("chicken").Build())

	mgr, err := NewManager([]Plugin{chicken, egg})
	require.NoError(t, err)

	_, err = mgr.Sequence("create", false)
	require.Error(t, err)

	var cycleErr *DependencyCycleError
	require.ErrorAs(t, err, &cycleErr)
	require.Equal(t, "create", cycleErr.Operation)
	require.ElementsMatch(t, []string{"chicken", "egg"}, cycleErr.Steps)
}

// Scenario C — duplicate name.
func TestScenarioC_DuplicateName(t *testing.T) {
	first := newFakePlugin("First").withStep("init", NewStep("init", nil).WithPayload(1).Build())
	second := newFakePlugin("Second").withStep("init", NewStep("init", nil).WithPayload(2).Build())

	mgr, err := NewManager([]Plugin{first, second})
	require.NoError(t, err)

	seq, err := mgr.Sequence("init", false)
	require.NoError(t, err)
	require.Len(t, seq, 1)
	require.Equal(t, 1, seq[0].Payload)
}

// Scenario D — async wrapper chain, through the typed Operation handle.
func TestScenarioD_AsyncWrapperChain(t *testing.T) {
	op := NewAsyncWrapperOperation[string]("op", false)

	p1 := newFakePlugin("P1")
	p1.withStep("op", op.Implementation("foo-1", p1, func(next TypedAsyncWrapperNext[string], prev string, args ...any) (string, error) {
		prev = prev + "+foo1"
		prev, err := next(prev)
		if err != nil {
			return "", err
		}
		return prev + "+foo1p", nil
	}).Build())

	p2 := newFakePlugin("P2")
	p2.withStep("op", op.Implementation("foo-2", p2, func(next TypedAsyncWrapperNext[string], prev string, args ...any) (string, error) {
		prev = prev + "+foo2"
		prev, err := next(prev)
		if err != nil {
			return "", err
		}
		return prev + "+foo2p", nil
	}).DependsOn("foo-1").Build())

	mgr, err := NewManager([]Plugin{p1, p2})
	require.NoError(t, err)

	result, err := op.InvokeWith(mgr, "None")
	require.NoError(t, err)
	require.Equal(t, "None+foo1+foo2+foo2p+foo1p", result)
}

// Scenario E — factory-wrapper selection, through the typed Operation
// handle's FactoryImplementation sugar.
func TestScenarioE_FactoryWrapperSelection(t *testing.T) {
	buildManager := func() *Manager {
		op := NewWrapperOperation[string]("select", false)

		p1 := newFakePlugin("P1")
		p1.withStep("select", op.FactoryImplementation("p1", p1, func(args ...any) (Optional[string], error) {
			if args[0] == "type1" {
				return Some("f1"), nil
			}
			return None[string](), nil
		}).Build())

		p2 := newFakePlugin("P2")
		p2.withStep("select", op.FactoryImplementation("p2", p2, func(args ...any) (Optional[string], error) {
			if args[0] == "type2" {
				return None[string](), errors.New("p2 factory cannot handle type2")
			}
			return None[string](), nil
		}).DependsOn("p1").Build())

		p3 := newFakePlugin("P3")
		p3.withStep("select", op.Implementation("p3", p3, func(next TypedWrapperNext[string], prev string, args ...any) (string, error) {
			if prev == "" {
				prev = "None"
			}
			return prev + "+decorator", nil
		}).DependsOn("p2").Build())

		mgr, err := NewManager([]Plugin{p1, p2, p3})
		require.NoError(t, err)
		return mgr
	}

	op := NewWrapperOperation[string]("select", false)

	result, err := op.InvokeWith(buildManager(), "", "type1")
	require.NoError(t, err)
	require.Equal(t, "f1+decorator", result)

	result, err = op.InvokeWith(buildManager(), "", "X3")
	require.NoError(t, err)
	require.Equal(t, "None+decorator", result)

	_, err = op.InvokeWith(buildManager(), "", "type2")
	require.Error(t, err)
}

// Scenario F — cache drop by plugin.
func TestScenarioF_CacheDropByPlugin(t *testing.T) {
	q := newFakePlugin("Q").withStep("r", NewStep("s", nil).Build())

	mgr, err := NewManager([]Plugin{q})
	require.NoError(t, err)

	v, err := mgr.Cache("r", 1, func() (any, error) { return 42, nil })
	require.NoError(t, err)
	require.Equal(t, 42, v)

	v, err = mgr.Cache("r", 1, func() (any, error) { return nil, errors.New("must not run") })
	require.NoError(t, err)
	require.Equal(t, 42, v)

	mgr.DropCache(WithPlugin(q))

	v, err = mgr.Cache("r", 1, func() (any, error) { return 43, nil })
	require.NoError(t, err)
	require.Equal(t, 43, v)
}
