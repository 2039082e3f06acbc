package kernel

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStepBuilder_BuildsImmutableStep(t *testing.T) {
	p := newFakePlugin("P")

	step := NewStep("s", p).
		DependsOn("a", "b").
		Before("c").
		WithPayload("payload").
		WithAnnotation("annotation").
		Build()

	require.Equal(t, "s", step.Name)
	require.Same(t, p, step.Plugin)
	require.Equal(t, []string{"a", "b"}, step.Dependencies)
	require.Equal(t, []string{"c"}, step.ReverseDependencies)
	require.Equal(t, "payload", step.Payload)
	require.Equal(t, "annotation", step.Annotation)
}

func TestOptional_SomeAndNone(t *testing.T) {
	some := Some(42)
	v, ok := some.Get()
	require.True(t, ok)
	require.Equal(t, 42, v)
	require.True(t, some.IsPresent())

	none := None[int]()
	v, ok = none.Get()
	require.False(t, ok)
	require.Zero(t, v)
	require.False(t, none.IsPresent())
}

// A payload legitimately returning the zero value of T must be
// distinguishable from "no result" (SPEC_FULL.md §9, None-as-absent note).
func TestOptional_DistinguishesZeroValueFromAbsence(t *testing.T) {
	zeroButPresent := Some(0)
	v, ok := zeroButPresent.Get()
	require.True(t, ok)
	require.Equal(t, 0, v)

	absent := None[int]()
	_, ok = absent.Get()
	require.False(t, ok)
}
