package kernel

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestManager_RegisterRejectsDuplicateName(t *testing.T) {
	p1 := newFakePlugin("dup")
	p2 := newFakePlugin("dup")

	_, err := NewManager([]Plugin{p1, p2})
	require.Error(t, err)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestManager_RegisterRejectsInvalidMetadata(t *testing.T) {
	bad := newFakePlugin("1bad") // must start with a letter
	_, err := NewManager([]Plugin{bad})
	require.Error(t, err)
	require.ErrorIs(t, err, ErrInvalidPluginMetadata)
}

func TestManager_SequenceCachingAvoidsResolverRerun(t *testing.T) {
	calls := 0
	p := newFakePlugin("P")
	p.steps["op"] = nil // placeholder so the operation exists
	// Wrap StepsFor via an adapter plugin that counts invocations.
	counting := &countingProvider{fakePlugin: p, onCall: func() { calls++ }}

	mgr, err := NewManager([]Plugin{counting})
	require.NoError(t, err)

	_, err = mgr.Sequence("op", true)
	require.NoError(t, err)
	_, err = mgr.Sequence("op", true)
	require.NoError(t, err)
	_, err = mgr.Sequence("op", true)
	require.NoError(t, err)

	require.Equal(t, 1, calls, "cacheSteps=true must resolve the sequence at most once")

	_, err = mgr.Sequence("op", false)
	require.NoError(t, err)
	require.Equal(t, 2, calls, "cacheSteps=false must re-run the resolver every call")
}

func TestManager_DropCacheInvalidatesSequenceCache(t *testing.T) {
	calls := 0
	p := newFakePlugin("P")
	counting := &countingProvider{fakePlugin: p, onCall: func() { calls++ }}

	mgr, err := NewManager([]Plugin{counting})
	require.NoError(t, err)

	_, err = mgr.Sequence("op", true)
	require.NoError(t, err)
	_, err = mgr.Sequence("op", true)
	require.NoError(t, err)
	require.Equal(t, 1, calls)

	mgr.DropCache(WithOperations("op"))

	_, err = mgr.Sequence("op", true)
	require.NoError(t, err)
	require.Equal(t, 2, calls, "dropping an operation's cache must force its sequence to re-resolve")
}

func TestManager_CacheDelegatesToOperationCache(t *testing.T) {
	mgr, err := NewManager(nil)
	require.NoError(t, err)

	v, err := mgr.Cache("r", 1, func() (any, error) { return 42, nil })
	require.NoError(t, err)
	require.Equal(t, 42, v)

	v, err = mgr.Cache("r", 1, func() (any, error) { return 43, nil })
	require.NoError(t, err)
	require.Equal(t, 42, v)
}

// countingProvider wraps a fakePlugin, invoking onCall every time StepsFor
// is queried, so tests can assert how many times the resolver actually ran.
type countingProvider struct {
	*fakePlugin
	onCall func()
}

func (c *countingProvider) StepsFor(opName string) ([]Step, error) {
	c.onCall()
	return c.fakePlugin.StepsFor(opName)
}
