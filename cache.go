package kernel

import (
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"
)

// opCache is the Operation Cache (SPEC_FULL.md §4.2, C4): a two-level
// mapping operation -> key -> value, with selective drop. In-memory only
// (this module has no persistence requirement — contrast with the
// teacher's disk-backed StatusCache in internal/registry/cache.go, whose
// Get/Set/Invalidate/InvalidateAll shape this otherwise follows closely).
//
// "compute called exactly once per live (op, key)" is implemented with one
// singleflight.Group per operation plus a monotonic generation counter
// shared across the whole cache: every drop() call, regardless of its
// scope, bumps generation. compute captures the generation in effect when
// it starts running fn and only stores the result if generation is still
// unchanged afterward — so a drop racing an in-flight compute always wins,
// and the stale result is returned to that one caller but never cached for
// the next one. The bump is cache-wide rather than scoped to the dropped
// operation: a narrower per-operation counter would need its own
// bookkeeping for operations that don't exist yet, for no benefit this
// module's callers need, since drops are rare compared to computes.
type opCache struct {
	mu         sync.RWMutex
	cells      map[string]map[any]*cacheCell
	group      map[string]*singleflight.Group
	generation uint64
}

type cacheCell struct {
	value any
	err   error
}

func newOpCache() *opCache {
	return &opCache{
		cells: make(map[string]map[any]*cacheCell),
		group: make(map[string]*singleflight.Group),
	}
}

func (c *opCache) groupFor(op string) *singleflight.Group {
	c.mu.Lock()
	defer c.mu.Unlock()
	g, ok := c.group[op]
	if !ok {
		g = &singleflight.Group{}
		c.group[op] = g
	}
	return g
}

// compute returns the cached value for (op, key), invoking fn at most once
// per live entry. Concurrent callers racing on the same (op, key) collapse
// onto a single fn invocation via singleflight.
func (c *opCache) compute(op string, key any, fn func() (any, error)) (any, error) {
	c.mu.RLock()
	if cells, ok := c.cells[op]; ok {
		if cell, ok := cells[key]; ok {
			c.mu.RUnlock()
			return cell.value, cell.err
		}
	}
	c.mu.RUnlock()

	sfKey := singleflightKey(key)
	v, err, _ := c.groupFor(op).Do(sfKey, func() (any, error) {
		// Re-check under read lock in case another goroutine populated the
		// cell while we were waiting to be scheduled onto this singleflight
		// call (possible if a drop+recompute raced the Do dispatch).
		c.mu.RLock()
		if cells, ok := c.cells[op]; ok {
			if cell, ok := cells[key]; ok {
				c.mu.RUnlock()
				return cell.value, cell.err
			}
		}
		startGeneration := c.generation
		c.mu.RUnlock()

		value, computeErr := fn()

		c.mu.Lock()
		if c.generation == startGeneration {
			if c.cells[op] == nil {
				c.cells[op] = make(map[any]*cacheCell)
			}
			c.cells[op][key] = &cacheCell{value: value, err: computeErr}
		}
		c.mu.Unlock()

		return value, computeErr
	})

	return v, err
}

// dropOptions configures a cache drop. Built via DropOption functions so
// call sites read as DropCache(WithOperations("init")) rather than a
// positional struct literal with mostly-zero fields.
type dropOptions struct {
	operations []string
	keys       []any
	plugin     Plugin
}

// DropOption configures DropCache.
type DropOption func(*dropOptions)

// WithOperations restricts a drop to the named operations.
func WithOperations(ops ...string) DropOption {
	return func(o *dropOptions) { o.operations = append(o.operations, ops...) }
}

// WithKeys further restricts a drop (combined with WithOperations) to the
// given keys within each named operation.
func WithKeys(keys ...any) DropOption {
	return func(o *dropOptions) { o.keys = append(o.keys, keys...) }
}

// WithPlugin restricts a drop to the operations p claims to implement via
// OperationLister. If p does not implement OperationLister, or its
// ListOperations call fails, the drop is a no-op — see SPEC_FULL.md §9
// Open Questions: a silent full-flush on behalf of an unrelated plugin's
// introspection failure is more surprising than doing nothing.
func WithPlugin(p Plugin) DropOption {
	return func(o *dropOptions) { o.plugin = p }
}

// drop invalidates cache entries per opts, per SPEC_FULL.md §4.2.
func (c *opCache) drop(opts ...DropOption) {
	var cfg dropOptions
	for _, opt := range opts {
		opt(&cfg)
	}

	operations := cfg.operations

	if cfg.plugin != nil {
		lister, ok := cfg.plugin.(OperationLister)
		if !ok {
			return
		}
		ops, err := lister.ListOperations()
		if err != nil {
			return
		}
		operations = ops
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.generation++

	if cfg.plugin == nil && len(operations) == 0 {
		// No restriction at all: drop everything.
		c.cells = make(map[string]map[any]*cacheCell)
		c.group = make(map[string]*singleflight.Group)
		return
	}

	for _, op := range operations {
		cells, ok := c.cells[op]
		if !ok {
			continue
		}
		if len(cfg.keys) == 0 {
			delete(c.cells, op)
			continue
		}
		for _, key := range cfg.keys {
			delete(cells, key)
		}
	}
}

// singleflightKey renders an arbitrary comparable key into the string
// singleflight.Group requires. Keys used by this package are small
// (strings, ints, or the sentinel sequence key in manager.go), so %v round-trips
// distinctly for every key actually in use.
func singleflightKey(key any) string {
	return singleflightKeyPrefix + toComparableString(key)
}

const singleflightKeyPrefix = "k:"

func toComparableString(key any) string {
	if s, ok := key.(string); ok {
		return s
	}
	return fmt.Sprint(key)
}
