// Package magicplugin is the reflective Step Provider convenience the core
// kernel package deliberately excludes (SPEC_FULL.md §1 "Out of scope"):
// instead of a provider hand-writing StepsFor and building kernel.Step
// values explicitly, Magic wraps an arbitrary value and turns its exported,
// no-argument methods into Steps — one operation per lowercased method
// name, by default — the same convention original_source's
// ab_plugin_manager.magic_plugin.MagicPlugin class offers its users ("every
// public method becomes a step of the operation with the same name").
//
// Go has no runtime decorators, so the @operation/@after/@before/@step_name
// annotations the Python original attaches to a method are expressed here
// as a sibling metadata map (Describer.MagicSteps), keyed by method name,
// rather than as a literal decorator on the method itself — the "explicit
// builder / data-driven registry" strategy SPEC_FULL.md §9 calls for
// reflection-based providers to use.
package magicplugin

import (
	"reflect"
	"sort"
	"strings"

	kernel "github.com/alexisbeaulieu97/pluginkernel"
)

// StepMeta overrides the default operation/step-name binding Magic derives
// for one exported method. Returned from Describer.MagicSteps, keyed by the
// Go method name exactly as reflect reports it (e.g. "Init", not "init").
type StepMeta struct {
	// Operation overrides the operation this method contributes a step to.
	// Empty means "the lowercased method name" (mirrors the source's
	// default of method name == operation name).
	Operation string

	// StepName overrides the step's name within that operation. Empty
	// means "<TypeName>.<MethodName>", matching the source's
	// f'{type(self).__name__}.{name}' default.
	StepName string

	// DependsOn and Before are the method's forward and reverse
	// dependencies, the Go equivalent of the source's @after/@before
	// decorators.
	DependsOn []string
	Before    []string
}

// Describer lets a wrapped value override Magic's default method-name
// conventions. Implement it on the same value passed to New when one
// operation needs more than one step, a step needs a custom name, or a
// method needs dependencies — anything the bare "method name is the
// operation name" convention can't express on its own.
type Describer interface {
	MagicSteps() map[string]StepMeta
}

// reserved lists method names Magic never turns into steps — the
// Plugin/Provider/OperationLister contract methods themselves and
// Describer's own method — so a value can implement those interfaces
// alongside its step methods without the interface methods themselves
// becoming spurious steps (mirrors the source's
// test_ignore_plugin_abc_members).
var reserved = map[string]bool{
	"Name":           true,
	"Version":        true,
	"StepsFor":       true,
	"ListOperations": true,
	"MagicSteps":     true,
}

var (
	errType = reflect.TypeOf((*error)(nil)).Elem()
	anyType = reflect.TypeOf((*any)(nil)).Elem()
)

// Magic is a reflective kernel.Plugin: it adapts a wrapped value's exported
// methods (and, for plain data steps, its exported struct fields) into
// kernel.Step contributions, without the wrapped value ever importing the
// kernel package itself.
type Magic struct {
	name    string
	version string
	value   any
	typ     reflect.Type
	rv      reflect.Value
}

// New wraps value — typically a pointer to a struct whose exported methods
// are the operations it implements — as a Plugin named name at version.
// Grounded on the teacher's internal/plugin/registry_new.go
// createPluginInstance, which already reflects over a registered plugin
// value (reflect.New(typ.Elem())) to mint fresh instances; Magic reuses
// that same reflect.Type/Value pairing to walk the value's method set
// instead of re-instantiating it.
func New(name, version string, value any) *Magic {
	return &Magic{
		name:    name,
		version: version,
		value:   value,
		typ:     reflect.TypeOf(value),
		rv:      reflect.ValueOf(value),
	}
}

// Name returns the plugin's identifier, as supplied to New.
func (m *Magic) Name() string { return m.name }

// Version returns the plugin's version string, as supplied to New.
func (m *Magic) Version() string { return m.version }

func (m *Magic) describer() (Describer, bool) {
	d, ok := m.value.(Describer)
	return d, ok
}

func (m *Magic) metaFor(methodName string) StepMeta {
	if d, ok := m.describer(); ok {
		if meta, ok := d.MagicSteps()[methodName]; ok {
			return meta
		}
	}
	return StepMeta{}
}

func (m *Magic) typeName() string {
	t := m.typ
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// adaptMethod wraps a bound method value into the kernel.CallAllFunc shape
// if its signature is one Magic recognizes: no-argument methods returning
// nothing or an error, and variadic (...any) methods returning nothing or
// an error (the shape a step written directly against kernel.CallAllFunc
// would already have). Any other signature makes the method ineligible —
// it is silently skipped rather than panicking at call time, matching the
// source's behavior of only ever inspecting callables it knows how to
// invoke.
func adaptMethod(bound reflect.Value) (kernel.CallAllFunc, bool) {
	t := bound.Type()

	switch {
	case t.NumIn() == 0 && t.NumOut() == 0:
		return func(_ ...any) error {
			bound.Call(nil)
			return nil
		}, true

	case t.NumIn() == 0 && t.NumOut() == 1 && t.Out(0) == errType:
		return func(_ ...any) error {
			return errFromReflect(bound.Call(nil)[0])
		}, true

	case t.IsVariadic() && t.NumIn() == 1 && t.In(0).Elem() == anyType && t.NumOut() == 0:
		return func(args ...any) error {
			bound.CallSlice([]reflect.Value{reflect.ValueOf(args)})
			return nil
		}, true

	case t.IsVariadic() && t.NumIn() == 1 && t.In(0).Elem() == anyType && t.NumOut() == 1 && t.Out(0) == errType:
		return func(args ...any) error {
			return errFromReflect(bound.CallSlice([]reflect.Value{reflect.ValueOf(args)})[0])
		}, true

	default:
		return nil, false
	}
}

func errFromReflect(v reflect.Value) error {
	if v.IsNil() {
		return nil
	}
	return v.Interface().(error)
}

// methodOperation returns the operation name and step name method
// contributes to, applying any Describer override.
func (m *Magic) methodOperation(method reflect.Method) (operation, stepName string) {
	meta := m.metaFor(method.Name)

	operation = meta.Operation
	if operation == "" {
		operation = strings.ToLower(method.Name)
	}

	stepName = meta.StepName
	if stepName == "" {
		stepName = m.typeName() + "." + method.Name
	}

	return operation, stepName
}

// structElem returns the dereferenced struct value backing m, if value is
// (a pointer to) a struct — the shape field-based data steps require.
func (m *Magic) structElem() (reflect.Value, bool) {
	v := m.rv
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return reflect.Value{}, false
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return reflect.Value{}, false
	}
	return v, true
}

// StepsFor implements kernel.Provider: every exported, no-argument method
// whose operation (by convention or Describer override) is opName becomes
// one Step, in the lexicographic method-name order reflect reports (not
// declaration order); every exported struct field whose
// lowercased name is opName becomes a data-payload Step carrying the
// field's current value, the Go analogue of the source's
// test_step_annotations (a bare class attribute read back as a step whose
// payload is the attribute's value, not a callable).
func (m *Magic) StepsFor(opName string) ([]kernel.Step, error) {
	var steps []kernel.Step

	for i := 0; i < m.typ.NumMethod(); i++ {
		method := m.typ.Method(i)
		if reserved[method.Name] {
			continue
		}

		fn, ok := adaptMethod(m.rv.Method(i))
		if !ok {
			continue
		}

		operation, stepName := m.methodOperation(method)
		if operation != opName {
			continue
		}

		meta := m.metaFor(method.Name)
		steps = append(steps, kernel.NewStep(stepName, m).
			DependsOn(meta.DependsOn...).
			Before(meta.Before...).
			WithPayload(fn).
			Build())
	}

	if elem, ok := m.structElem(); ok {
		t := elem.Type()
		for i := 0; i < t.NumField(); i++ {
			field := t.Field(i)
			if !field.IsExported() {
				continue
			}
			if strings.ToLower(field.Name) != opName {
				continue
			}
			steps = append(steps, kernel.NewStep(m.typeName()+"."+field.Name, m).
				WithPayload(elem.Field(i).Interface()).
				WithAnnotation(field.Type.String()).
				Build())
		}
	}

	return steps, nil
}

// ListOperations implements kernel.OperationLister: the set of operations
// derivable purely from m's method and field names, without being asked
// about a specific one. Unlike the Python original (which can also harvest
// operations off arbitrary runtime attribute assignment), this is
// necessarily limited to what reflect.Type exposes statically — which is
// every operation Magic could ever produce a step for, so the enumeration
// is exact, never an approximation.
func (m *Magic) ListOperations() ([]string, error) {
	set := make(map[string]struct{})

	for i := 0; i < m.typ.NumMethod(); i++ {
		method := m.typ.Method(i)
		if reserved[method.Name] {
			continue
		}
		if _, ok := adaptMethod(m.rv.Method(i)); !ok {
			continue
		}
		operation, _ := m.methodOperation(method)
		set[operation] = struct{}{}
	}

	if elem, ok := m.structElem(); ok {
		t := elem.Type()
		for i := 0; i < t.NumField(); i++ {
			field := t.Field(i)
			if !field.IsExported() {
				continue
			}
			set[strings.ToLower(field.Name)] = struct{}{}
		}
	}

	operations := make([]string, 0, len(set))
	for op := range set {
		operations = append(operations, op)
	}
	sort.Strings(operations)

	return operations, nil
}
