package kernel

import (
	"fmt"

	"github.com/alexisbeaulieu97/pluginkernel/internal/obslog"
)

// resolver merges the steps contributed by an ordered plugin collection for
// one operation name into a single dependency-respecting sequence. It is
// the Go realization of SPEC_FULL.md §4.1 (Topological Resolver, C3),
// adapted from the teacher's internal/plugin/dependency_graph.go Kahn's
// algorithm: where the teacher breaks ties alphabetically (sort.Strings)
// for a plugin-name graph, this resolver breaks ties by ingest order,
// because the spec requires reproducibility keyed on registration order,
// not alphabetical order (SPEC_FULL.md §4.1).
type resolver struct {
	operation string
	logger    *obslog.Logger

	order    []string          // ingest order of step names
	steps    map[string]Step   // name -> step, first writer wins
	outgoing map[string]map[string]struct{} // node -> deps that must precede it
	incoming map[string]map[string]struct{} // node -> nodes that must follow it
	known    map[string]struct{}            // every node name seen, incl. dangling deps
}

func newResolver(operation string, logger *obslog.Logger) *resolver {
	return &resolver{
		operation: operation,
		logger:    logger,
		steps:     make(map[string]Step),
		outgoing:  make(map[string]map[string]struct{}),
		incoming:  make(map[string]map[string]struct{}),
		known:     make(map[string]struct{}),
	}
}

func (r *resolver) ensureNode(name string) {
	if _, ok := r.known[name]; ok {
		return
	}
	r.known[name] = struct{}{}
	r.outgoing[name] = make(map[string]struct{})
	r.incoming[name] = make(map[string]struct{})
}

func (r *resolver) addEdge(before, after string) {
	r.ensureNode(before)
	r.ensureNode(after)
	r.outgoing[after][before] = struct{}{}
	r.incoming[before][after] = struct{}{}
}

// ingest folds in the steps a single provider contributed for r.operation.
// Duplicate step names are dropped (second contributor loses), with a
// warning logged — SPEC_FULL.md §4.1 step 2 / §8 property 5.
func (r *resolver) ingest(steps []Step) {
	for _, step := range steps {
		r.ensureNode(step.Name)

		if _, exists := r.steps[step.Name]; exists {
			r.logger.Warn("duplicate step name, keeping first contributor",
				"operation", r.operation,
				"step", step.Name,
			)
			continue
		}

		r.steps[step.Name] = step
		r.order = append(r.order, step.Name)

		for _, dep := range step.Dependencies {
			r.addEdge(dep, step.Name)
		}
		for _, rdep := range step.ReverseDependencies {
			r.addEdge(step.Name, rdep)
		}
	}
}

// finalize runs Kahn's algorithm over the ingested graph, emitting ready
// nodes in ingest order within each level (SPEC_FULL.md §4.1 step 5), and
// skipping nodes with no corresponding Step (dangling dependency names,
// SPEC_FULL.md §4.1 step 6 / §8 property 3).
func (r *resolver) finalize() ([]Step, error) {
	inDegree := make(map[string]int, len(r.known))
	for node := range r.known {
		inDegree[node] = len(r.outgoing[node])
	}

	// ready holds nodes with in-degree zero, queued in ingest order; nodes
	// that never had a Step (pure dangling names) are appended to `order`
	// here so they still participate in the sort and unblock dependents,
	// even though they produce no output Step.
	orderIndex := make(map[string]int, len(r.order))
	for i, name := range r.order {
		orderIndex[name] = i
	}
	nextOrder := len(r.order)
	fullOrder := append([]string{}, r.order...)
	for node := range r.known {
		if _, ok := orderIndex[node]; !ok {
			orderIndex[node] = nextOrder
			nextOrder++
			fullOrder = append(fullOrder, node)
		}
	}

	queued := make(map[string]bool, len(r.known))
	var ready []string
	for _, node := range fullOrder {
		if inDegree[node] == 0 {
			ready = append(ready, node)
			queued[node] = true
		}
	}

	var emitted []string
	for len(ready) > 0 {
		// pop lowest-ingest-order ready node
		minIdx := 0
		for i := 1; i < len(ready); i++ {
			if orderIndex[ready[i]] < orderIndex[ready[minIdx]] {
				minIdx = i
			}
		}
		node := ready[minIdx]
		ready = append(ready[:minIdx], ready[minIdx+1:]...)

		emitted = append(emitted, node)

		for dependent := range r.incoming[node] {
			inDegree[dependent]--
			if inDegree[dependent] == 0 && !queued[dependent] {
				ready = append(ready, dependent)
				queued[dependent] = true
			}
		}
	}

	if len(emitted) != len(r.known) {
		cycleNodes := r.findCycle(inDegree)
		return nil, &DependencyCycleError{Operation: r.operation, Steps: cycleNodes}
	}

	result := make([]Step, 0, len(r.steps))
	for _, name := range emitted {
		if step, ok := r.steps[name]; ok {
			result = append(result, step)
		}
	}

	return result, nil
}

// findCycle performs a DFS over the remaining (un-emitted) subgraph to name
// every node on one cycle, for DependencyCycleError's diagnostic — mirrors
// the teacher's DependencyGraph.DetectCycles but restricted to nodes whose
// in-degree never reached zero.
func (r *resolver) findCycle(remainingInDegree map[string]int) []string {
	remaining := make(map[string]struct{})
	for node, deg := range remainingInDegree {
		if deg > 0 {
			remaining[node] = struct{}{}
		}
	}

	visited := make(map[string]bool)
	onStack := make(map[string]bool)
	var path []string
	var cycle []string

	var dfs func(node string) bool
	dfs = func(node string) bool {
		visited[node] = true
		onStack[node] = true
		path = append(path, node)

		for dep := range r.outgoing[node] {
			if _, inRemaining := remaining[dep]; !inRemaining {
				continue
			}
			if !visited[dep] {
				if dfs(dep) {
					return true
				}
			} else if onStack[dep] {
				idx := len(path) - 1
				for idx >= 0 && path[idx] != dep {
					idx--
				}
				if idx >= 0 {
					cycle = append([]string{}, path[idx:]...)
				}
				return true
			}
		}

		onStack[node] = false
		path = path[:len(path)-1]
		return false
	}

	for _, name := range r.order {
		if _, ok := remaining[name]; ok && !visited[name] {
			if dfs(name) {
				break
			}
		}
	}

	if len(cycle) == 0 {
		// Fallback: every remaining node participates in some cycle even
		// if the DFS above didn't find a clean start (shouldn't normally
		// happen given Kahn's algorithm guarantees at least one cycle
		// among remaining nodes).
		for node := range remaining {
			cycle = append(cycle, node)
		}
	}

	return cycle
}

// resolveSequence resolves the ordered Steps every plugin in plugins
// contributes to opName, returning a DependencyCycleError if the combined
// dependency graph is cyclic. It is a package-level function so Manager
// can reuse it without exposing resolver's internals.
func resolveSequence(opName string, plugins []Plugin, logger *obslog.Logger) ([]Step, error) {
	r := newResolver(opName, logger)

	for _, p := range plugins {
		steps, err := p.StepsFor(opName)
		if err != nil {
			return nil, fmt.Errorf("kernel: plugin %q failed to produce steps for operation %q: %w", p.Name(), opName, err)
		}
		r.ingest(steps)
	}

	return r.finalize()
}
