package kernel

// fakePlugin is the minimal Plugin used across this package's tests: a
// name, a version, and a fixed map of operation -> steps it contributes.
type fakePlugin struct {
	name    string
	version string
	steps   map[string][]Step

	listOperations func() ([]string, error)
}

func newFakePlugin(name string) *fakePlugin {
	return &fakePlugin{name: name, version: "1.0.0", steps: make(map[string][]Step)}
}

func (p *fakePlugin) Name() string    { return p.name }
func (p *fakePlugin) Version() string { return p.version }

func (p *fakePlugin) withStep(op string, step Step) *fakePlugin {
	p.steps[op] = append(p.steps[op], step)
	return p
}

func (p *fakePlugin) StepsFor(opName string) ([]Step, error) {
	return p.steps[opName], nil
}

func (p *fakePlugin) ListOperations() ([]string, error) {
	if p.listOperations != nil {
		return p.listOperations()
	}
	ops := make([]string, 0, len(p.steps))
	for op := range p.steps {
		ops = append(ops, op)
	}
	return ops, nil
}

// stepNames extracts the ordered Name field from a resolved sequence, for
// assertions that only care about order.
func stepNames(seq []Step) []string {
	names := make([]string, len(seq))
	for i, s := range seq {
		names[i] = s.Name
	}
	return names
}
