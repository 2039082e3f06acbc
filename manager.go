package kernel

import (
	"sync"

	"github.com/alexisbeaulieu97/pluginkernel/internal/obslog"
)

// sequenceCacheOperationSuffix namespaces the well-known sentinel key a
// Typed Operation Handle uses to cache its resolved sequence inside the
// operation cache (SPEC_FULL.md §4.3, §4.6). Scoping the cached sequence
// under op+suffix rather than reusing op itself keeps "cache a sequence"
// and "a plugin's own operation_cache(op, ...) call" from colliding in the
// same (operation, key) namespace.
const sequenceCacheOperationSuffix = "\x00__sequence__"

// sequenceCacheKey is the single key ever stored under an operation's
// sequence-cache namespace.
const sequenceCacheKey = "sequence"

// Manager owns the set of registered plugins and the operation cache,
// answers Sequence queries, and installs itself as the ambient manager for
// a context scope via WithManager (SPEC_FULL.md §4.3, C5). It generalizes
// the teacher's internal/plugin/registry_new.go PluginRegistry from a
// single-instance-per-type registry to a multi-provider, multi-operation
// sequence manager.
type Manager struct {
	mu      sync.RWMutex
	plugins []Plugin
	names   map[string]struct{}

	cache  *opCache
	logger *obslog.Logger
}

// ManagerOption configures a Manager at construction.
type ManagerOption func(*Manager)

// WithLogger sets the structured logger the Manager hands to its resolver
// for diagnostics (duplicate step names). Cache drops are not logged.
// Defaults to a no-op logger.
func WithLogger(logger *obslog.Logger) ManagerOption {
	return func(m *Manager) { m.logger = logger }
}

// NewManager builds a Manager from an ordered plugin collection. Plugin
// registration order is significant: it is the tie-break the resolver uses
// within a topological level (SPEC_FULL.md §4.1), and it is the order
// StepsFor is queried in, so the first plugin to contribute a given step
// name wins on duplicates (SPEC_FULL.md §8 property 5).
func NewManager(plugins []Plugin, opts ...ManagerOption) (*Manager, error) {
	m := &Manager{
		cache: newOpCache(),
		names: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = obslog.NewNop()
	}

	for _, p := range plugins {
		if err := m.Register(p); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// Register validates and appends p to the plugin collection. Plugin names
// must be unique across the Manager; ValidatePluginMetadata rejects
// malformed Name/Version fields before the plugin is ever asked for steps.
func (m *Manager) Register(p Plugin) error {
	if err := ValidatePluginMetadata(p); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.names[p.Name()]; exists {
		return &ValidationError{Message: "plugin \"" + p.Name() + "\" is already registered"}
	}

	m.names[p.Name()] = struct{}{}
	m.plugins = append(m.plugins, p)

	return nil
}

func (m *Manager) snapshotPlugins() []Plugin {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Plugin, len(m.plugins))
	copy(out, m.plugins)
	return out
}

// Sequence resolves the ordered Steps every registered plugin contributes
// to opName (SPEC_FULL.md §4.3). cacheSteps controls whether the resolved
// sequence is memoized under a well-known sentinel key in the operation
// cache (used by Typed Operation Handles with CacheSteps true); passing
// false always re-runs the resolver, appropriate for rare lifecycle
// operations whose plugin set may still be changing.
func (m *Manager) Sequence(opName string, cacheSteps bool) ([]Step, error) {
	if !cacheSteps {
		return resolveSequence(opName, m.snapshotPlugins(), m.logger)
	}

	v, err := m.cache.compute(opName+sequenceCacheOperationSuffix, sequenceCacheKey, func() (any, error) {
		return resolveSequence(opName, m.snapshotPlugins(), m.logger)
	})
	if err != nil {
		return nil, err
	}
	return v.([]Step), nil
}

// Cache delegates to the Operation Cache (SPEC_FULL.md §4.2): compute is
// called at most once per live (op, key) pair.
func (m *Manager) Cache(op string, key any, compute func() (any, error)) (any, error) {
	return m.cache.compute(op, key, compute)
}

// DropCache invalidates operation-cache entries per opts (SPEC_FULL.md
// §4.2, §8 property 7). Dropping an operation also drops its sequence
// cache namespace, so a subsequent Sequence(op, true) call re-resolves.
func (m *Manager) DropCache(opts ...DropOption) {
	var cfg dropOptions
	for _, opt := range opts {
		opt(&cfg)
	}

	m.cache.drop(opts...)

	// Also invalidate the sequence-cache shadow namespace for any affected
	// operations, so dropping an operation's cache always forces its
	// resolver to re-run too. Operations named explicitly via
	// WithOperations are used directly; operations named implicitly via
	// WithPlugin are re-derived the same way opCache.drop derives them,
	// since cfg.operations itself is empty in that case.
	operations := cfg.operations
	if cfg.plugin != nil {
		if lister, ok := cfg.plugin.(OperationLister); ok {
			if ops, err := lister.ListOperations(); err == nil {
				operations = ops
			}
		}
	}
	if len(operations) > 0 {
		shadow := make([]string, len(operations))
		for i, op := range operations {
			shadow[i] = op + sequenceCacheOperationSuffix
		}
		m.cache.drop(WithOperations(shadow...))
	}
}

// Logger returns the Manager's structured logger, for use by lifecycle
// helpers and the demo CLI that want to log under the same sink.
func (m *Manager) Logger() *obslog.Logger {
	return m.logger
}
