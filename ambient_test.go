package kernel

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAmbientManager_NotSetFails(t *testing.T) {
	_, ok := ManagerFrom(context.Background())
	require.False(t, ok)

	require.Panics(t, func() {
		MustManagerFrom(context.Background())
	})
}

func TestAmbientManager_WithManagerRoundTrips(t *testing.T) {
	mgr, err := NewManager(nil)
	require.NoError(t, err)

	ctx := WithManager(context.Background(), mgr)

	got, ok := ManagerFrom(ctx)
	require.True(t, ok)
	require.Same(t, mgr, got)
	require.Same(t, mgr, MustManagerFrom(ctx))
}

// Property 8: ambient isolation. Two concurrently-running goroutines
// entering different WithManager scopes observe their own managers, and
// neither leaks into the other's or the parent's context.
func TestAmbientManager_IsolatedAcrossGoroutines(t *testing.T) {
	mgrA, err := NewManager(nil)
	require.NoError(t, err)
	mgrB, err := NewManager(nil)
	require.NoError(t, err)

	parent := context.Background()

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		ctx := WithManager(parent, mgrA)
		got, ok := ManagerFrom(ctx)
		require.True(t, ok)
		require.Same(t, mgrA, got)
	}()

	go func() {
		defer wg.Done()
		ctx := WithManager(parent, mgrB)
		got, ok := ManagerFrom(ctx)
		require.True(t, ok)
		require.Same(t, mgrB, got)
	}()

	wg.Wait()

	// The parent context itself never saw either manager.
	_, ok := ManagerFrom(parent)
	require.False(t, ok)
}

// A child context derived from a manager-carrying context inherits it
// (copy-on-spawn); a sibling derived from the same parent before the
// WithManager call does not see it.
func TestAmbientManager_ChildInheritsParentNotSibling(t *testing.T) {
	mgr, err := NewManager(nil)
	require.NoError(t, err)

	base := context.Background()
	sibling, cancel := context.WithCancel(base)
	defer cancel()

	withMgr := WithManager(base, mgr)
	child, cancel2 := context.WithCancel(withMgr)
	defer cancel2()

	got, ok := ManagerFrom(child)
	require.True(t, ok)
	require.Same(t, mgr, got)

	_, ok = ManagerFrom(sibling)
	require.False(t, ok)
}
