package magicplugin

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kernel "github.com/alexisbeaulieu97/pluginkernel"
)

type greeterSteps struct {
	Config map[string]any
	ran    []string
}

func (g *greeterSteps) Init() {
	g.ran = append(g.ran, "init")
}

func (g *greeterSteps) Terminate() error {
	g.ran = append(g.ran, "terminate")
	return nil
}

// Name has an adaptable signature but a reserved name: it must not become
// a step.
func (g *greeterSteps) Name() {}

// Greet has a signature adaptMethod does not recognize: it must not become
// a step.
func (g *greeterSteps) Greet(who string) string { return "hello, " + who }

func TestMagicMethodBecomesStep(t *testing.T) {
	g := &greeterSteps{}
	m := New("greeter", "1.0.0", g)

	steps, err := m.StepsFor("init")
	require.NoError(t, err)
	require.Len(t, steps, 1)
	assert.Equal(t, "greeterSteps.Init", steps[0].Name)
	assert.Equal(t, m, steps[0].Plugin)

	fn, ok := steps[0].Payload.(kernel.CallAllFunc)
	require.True(t, ok)
	require.NoError(t, fn())
	assert.Equal(t, []string{"init"}, g.ran)
}

func TestMagicIgnoresReservedAndUnrecognizedMethods(t *testing.T) {
	g := &greeterSteps{}
	m := New("greeter", "1.0.0", g)

	steps, err := m.StepsFor("name")
	require.NoError(t, err)
	assert.Empty(t, steps)

	steps, err = m.StepsFor("greet")
	require.NoError(t, err)
	assert.Empty(t, steps)
}

func TestMagicFieldBecomesDataStep(t *testing.T) {
	g := &greeterSteps{Config: map[string]any{"greeting": "hi"}}
	m := New("greeter", "1.0.0", g)

	steps, err := m.StepsFor("config")
	require.NoError(t, err)
	require.Len(t, steps, 1)
	assert.Equal(t, "greeterSteps.Config", steps[0].Name)
	assert.Equal(t, g.Config, steps[0].Payload)
	assert.Equal(t, "map[string]interface {}", steps[0].Annotation)
}

type describedSteps struct{}

func (d *describedSteps) Init2() {}
func (d *describedSteps) Init()  {}

func (d *describedSteps) MagicSteps() map[string]StepMeta {
	return map[string]StepMeta{
		"Init2": {
			Operation: "init",
			DependsOn: []string{"describedSteps.Init"},
		},
	}
}

func TestMagicDescriberOverridesBinding(t *testing.T) {
	d := &describedSteps{}
	m := New("described", "1.0.0", d)

	steps, err := m.StepsFor("init")
	require.NoError(t, err)
	require.Len(t, steps, 2)

	byName := make(map[string]kernel.Step, len(steps))
	for _, s := range steps {
		byName[s.Name] = s
	}

	init2, ok := byName["describedSteps.Init2"]
	require.True(t, ok)
	assert.Equal(t, []string{"describedSteps.Init"}, init2.Dependencies)

	_, ok = byName["describedSteps.Init"]
	require.True(t, ok)
}

type erroringStep struct{}

func (e *erroringStep) Terminate() error {
	return errors.New("boom")
}

func TestMagicMethodErrorPropagates(t *testing.T) {
	e := &erroringStep{}
	m := New("erroring", "1.0.0", e)

	steps, err := m.StepsFor("terminate")
	require.NoError(t, err)
	require.Len(t, steps, 1)

	fn := steps[0].Payload.(kernel.CallAllFunc)
	assert.EqualError(t, fn(), "boom")
}

func TestMagicListOperations(t *testing.T) {
	g := &greeterSteps{}
	m := New("greeter", "1.0.0", g)

	ops, err := m.ListOperations()
	require.NoError(t, err)
	assert.Equal(t, []string{"config", "init", "terminate"}, ops)
}

func TestMagicIntegratesWithManager(t *testing.T) {
	g := &greeterSteps{}
	m := New("greeter", "1.0.0", g)

	mgr, err := kernel.NewManager([]kernel.Plugin{m})
	require.NoError(t, err)

	seq, err := mgr.Sequence("init", false)
	require.NoError(t, err)
	require.Len(t, seq, 1)

	require.NoError(t, kernel.CallAll(seq))
	assert.Equal(t, []string{"init"}, g.ran)
}
