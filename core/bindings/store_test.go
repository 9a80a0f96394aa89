package bindings

import (
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evmcrispr/evml/core/errors"
)

func TestSetAndGet(t *testing.T) {
	s := New()
	require.NoError(t, s.SetBinding("$a", "1", User, false))

	v, ok := s.GetBindingValue("$a", User)
	require.True(t, ok)
	assert.Equal(t, "1", v)

	_, ok = s.GetBindingValue("$a", Addr)
	assert.False(t, ok, "spaces are disjoint")
}

func TestRedefinitionInSameScope(t *testing.T) {
	s := New()
	require.NoError(t, s.SetBinding("$a", "1", User, false))

	err := s.SetBinding("$a", "2", User, false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrAlreadyDefined))

	require.NoError(t, s.SetBinding("$a", "2", User, true))
	v, _ := s.GetBindingValue("$a", User)
	assert.Equal(t, "2", v)
}

func TestNonUserSpacesOverwrite(t *testing.T) {
	s := New()
	require.NoError(t, s.SetBinding("token", "0x1", Addr, false))
	require.NoError(t, s.SetBinding("token", "0x2", Addr, false))
	v, _ := s.GetBindingValue("token", Addr)
	assert.Equal(t, "0x2", v)
}

func TestShadowingAndScopeExit(t *testing.T) {
	s := New()
	require.NoError(t, s.SetBinding("$a", "outer", User, false))

	s.EnterScope("block")
	assert.Equal(t, 1, s.Depth())
	assert.Equal(t, "block", s.ScopeLabel())

	v, _ := s.GetBindingValue("$a", User)
	assert.Equal(t, "outer", v, "outer bindings are visible")

	require.NoError(t, s.SetBinding("$a", "inner", User, false), "shadowing is allowed")
	require.NoError(t, s.SetBinding("$b", "only-inner", User, false))
	v, _ = s.GetBindingValue("$a", User)
	assert.Equal(t, "inner", v)

	require.NoError(t, s.ExitScope())
	v, _ = s.GetBindingValue("$a", User)
	assert.Equal(t, "outer", v, "outer binding untouched")
	assert.False(t, s.HasBinding("$b", User))
}

func TestOverrideNeverWritesAncestor(t *testing.T) {
	s := New()
	require.NoError(t, s.SetBinding("$a", "outer", User, false))
	s.EnterScope("block")
	require.NoError(t, s.SetBinding("$a", "forced", User, true))
	require.NoError(t, s.ExitScope())

	v, _ := s.GetBindingValue("$a", User)
	assert.Equal(t, "outer", v)
}

func TestExitProgramScope(t *testing.T) {
	s := New()
	assert.Error(t, s.ExitScope())
}

func TestIsDefinedInCurrentScope(t *testing.T) {
	s := New()
	require.NoError(t, s.SetBinding("$a", 1, User, false))
	s.EnterScope("block")
	assert.True(t, s.HasBinding("$a", User))
	assert.False(t, s.IsDefinedInCurrentScope("$a", User))
}

func TestLookupPriority(t *testing.T) {
	s := New()
	require.NoError(t, s.SetBinding("x", "addr", Addr, false))
	require.NoError(t, s.SetBinding("x", "other", Other, false))

	b, ok := s.Lookup("x", Other, Addr)
	require.True(t, ok)
	assert.Equal(t, Binding{Space: Other, Identifier: "x", Value: "other", Mutable: true}, b)

	_, ok = s.Lookup("x", User)
	assert.False(t, ok)
}

func TestBindingMutability(t *testing.T) {
	s := New()
	require.NoError(t, s.SetBinding("$a", "1", User, false))
	require.NoError(t, s.SetBinding("erc20.token", "0x01", Addr, false))

	b, ok := s.Lookup("$a", User)
	require.True(t, ok)
	assert.False(t, b.Mutable)
	require.ErrorIs(t, s.SetBinding("$a", "2", User, false), errors.ErrAlreadyDefined)

	b, ok = s.Lookup("erc20.token", Addr)
	require.True(t, ok)
	assert.True(t, b.Mutable)
	require.NoError(t, s.SetBinding("erc20.token", "0x02", Addr, false))
}

func TestAllBindings(t *testing.T) {
	s := New()
	require.NoError(t, s.SetBinding("$b", "1", User, false))
	require.NoError(t, s.SetBinding("$a", "2", User, false))
	require.NoError(t, s.SetBinding("std", "mod", Module, false))
	s.EnterScope("block")
	require.NoError(t, s.SetBinding("$a", "3", User, false))
	require.NoError(t, s.SetBinding("$c", "4", User, false))

	got := s.AllBindings(Filter{Spaces: []Space{User}})
	want := []Binding{
		{Space: User, Identifier: "$a", Value: "3"},
		{Space: User, Identifier: "$b", Value: "1"},
		{Space: User, Identifier: "$c", Value: "4"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("AllBindings mismatch (-want +got):\n%s", diff)
	}

	got = s.AllBindings(Filter{Spaces: []Space{User}, CurrentScope: true})
	assert.Len(t, got, 2)

	got = s.AllBindings(Filter{Prefix: "s"})
	assert.Equal(t, []Binding{{Space: Module, Identifier: "std", Value: "mod", Mutable: true}}, got)
}

func TestCacheSpace(t *testing.T) {
	s := NewWithCacheSize(8)
	s.EnterScope("block")
	require.NoError(t, s.SetBinding("decimals:0x1", 18, Cache, false))
	require.NoError(t, s.ExitScope())

	v, ok := s.GetBindingValue("decimals:0x1", Cache)
	require.True(t, ok, "cache survives scope exit")
	assert.Equal(t, 18, v)

	all := s.AllBindings(Filter{Spaces: []Space{Cache}})
	assert.Len(t, all, 1)
	assert.Empty(t, s.AllBindings(Filter{}), "cache excluded by default")

	s.FlushCache()
	assert.False(t, s.HasBinding("decimals:0x1", Cache))
}

func TestSnapshot(t *testing.T) {
	s := New()
	require.NoError(t, s.SetBinding("$a", "1", User, false))
	s.EnterScope("block")
	require.NoError(t, s.SetBinding("$b", "2", User, false))

	snap := s.Snapshot()
	assert.Equal(t, 0, snap.Depth())
	assert.True(t, snap.HasBinding("$a", User))
	assert.True(t, snap.HasBinding("$b", User))

	require.NoError(t, snap.SetBinding("$c", "3", User, false))
	assert.False(t, s.HasBinding("$c", User), "snapshot is independent")
}

func TestConcurrentReads(t *testing.T) {
	s := New()
	require.NoError(t, s.SetBinding("$a", "1", User, false))

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s.HasBinding("$a", User)
				s.AllBindings(Filter{})
			}
		}()
	}
	wg.Wait()
}

func TestSpaceString(t *testing.T) {
	assert.Equal(t, "USER", User.String())
	assert.Equal(t, "CACHE", Cache.String())
	assert.Equal(t, "Space(42)", Space(42).String())
}
