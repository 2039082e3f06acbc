package kernel

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCallAllOperation_InvokeWithAmbientManager(t *testing.T) {
	var ran []string

	p1 := newFakePlugin("P1")
	op := NewCallAllOperation("boot", true)
	p1.withStep("boot", op.Implementation("boot@P1", p1, func(args ...any) error {
		ran = append(ran, "P1")
		return nil
	}).Build())

	p2 := newFakePlugin("P2")
	p2.withStep("boot", op.Implementation("boot@P2", p2, func(args ...any) error {
		ran = append(ran, "P2")
		return nil
	}).DependsOn("boot@P1").Build())

	mgr, err := NewManager([]Plugin{p1, p2})
	require.NoError(t, err)

	ctx := WithManager(context.Background(), mgr)
	require.NoError(t, op.Invoke(ctx))
	require.Equal(t, []string{"P1", "P2"}, ran)
}

func TestCallAllOperation_InvokeWithoutAmbientManagerFails(t *testing.T) {
	op := NewCallAllOperation("boot", true)
	err := op.Invoke(context.Background())
	require.Error(t, err)

	var notSet *CurrentManagerNotSetError
	require.ErrorAs(t, err, &notSet)
	require.ErrorIs(t, err, ErrNoAmbientManager)
}

func TestFirstResultOperation_ChecksRejectBadResult(t *testing.T) {
	op := NewFirstResultOperation[string]("pick", false).WithCheck(func(v string) bool {
		return len(v) > 0
	}, "result must be non-empty")

	p := newFakePlugin("P")
	p.withStep("pick", op.Implementation("pick@P", p, func(args ...any) (Optional[string], error) {
		return Some(""), nil
	}).Build())

	mgr, err := NewManager([]Plugin{p})
	require.NoError(t, err)

	_, err = op.InvokeWith(mgr)
	require.Error(t, err)

	var checkErr *ResultCheckFailedError
	require.ErrorAs(t, err, &checkErr)
	require.Equal(t, "pick", checkErr.Operation)
}

func TestFirstResultOperation_ReturnsPresentValue(t *testing.T) {
	op := NewFirstResultOperation[int]("pick", false)

	p := newFakePlugin("P")
	p.withStep("pick", op.Implementation("pick@P", p, func(args ...any) (Optional[int], error) {
		return Some(7), nil
	}).Build())

	mgr, err := NewManager([]Plugin{p})
	require.NoError(t, err)

	result, err := op.InvokeWith(mgr)
	require.NoError(t, err)
	v, ok := result.Get()
	require.True(t, ok)
	require.Equal(t, 7, v)
}

func TestWrapperOperation_TypedImplementation(t *testing.T) {
	op := NewWrapperOperation[string]("greeting", false)

	p1 := newFakePlugin("P1")
	p1.withStep("greeting", op.Implementation("greeting@P1", p1, func(next TypedWrapperNext[string], prev string, args ...any) (string, error) {
		return next(prev + "[P1]")
	}).Build())

	p2 := newFakePlugin("P2")
	p2.withStep("greeting", op.Implementation("greeting@P2", p2, func(next TypedWrapperNext[string], prev string, args ...any) (string, error) {
		return next(prev + "[P2]")
	}).DependsOn("greeting@P1").Build())

	mgr, err := NewManager([]Plugin{p1, p2})
	require.NoError(t, err)

	result, err := op.InvokeWith(mgr, "seed")
	require.NoError(t, err)
	require.Equal(t, "seed[P1][P2]", result)
}

func TestWrapperOperation_FactoryImplementation(t *testing.T) {
	op := NewWrapperOperation[string]("select", false)

	p1 := newFakePlugin("P1")
	p1.withStep("select", op.FactoryImplementation("select@P1", p1, func(args ...any) (Optional[string], error) {
		return Some("chosen-by-p1"), nil
	}).Build())

	mgr, err := NewManager([]Plugin{p1})
	require.NoError(t, err)

	result, err := op.InvokeWith(mgr, "")
	require.NoError(t, err)
	require.Equal(t, "chosen-by-p1", result)
}

func TestParallelOperation_SchedulesAndWaits(t *testing.T) {
	var ran int
	op := NewParallelOperation("init", false)

	p := newFakePlugin("P")
	p.withStep("init", op.Implementation("init@P", p, func(ctx context.Context, args ...any) error {
		ran++
		return nil
	}).Build())

	mgr, err := NewManager([]Plugin{p})
	require.NoError(t, err)

	tasks, err := op.InvokeWith(context.Background(), mgr)
	require.NoError(t, err)
	require.NoError(t, WaitAll(tasks))
	require.Equal(t, 1, ran)
}
