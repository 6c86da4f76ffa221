package internstr

import (
	"testing"

	"github.com/fsbroker/fsbroker/broker"
	"github.com/stretchr/testify/require"
)

func TestInternSamePathReturnsSameHandle(t *testing.T) {
	tbl := New(16)
	a := tbl.Intern("/a/b")
	b := tbl.Intern("/a/b")
	require.Equal(t, a, b)
	require.Equal(t, 1, tbl.Len())
}

func TestInternDistinctPathsGetDistinctHandles(t *testing.T) {
	tbl := New(16)
	a := tbl.Intern("/a")
	b := tbl.Intern("/b")
	require.NotEqual(t, a, b)
	require.Equal(t, 2, tbl.Len())
}

func TestLookupReturnsInternedPath(t *testing.T) {
	tbl := New(16)
	h := tbl.Intern("/x/y/z")
	path, ok := tbl.Lookup(h)
	require.True(t, ok)
	require.Equal(t, "/x/y/z", path)
}

func TestReleaseDropsEntryOnceRefsReachZero(t *testing.T) {
	tbl := New(16)
	h := tbl.Intern("/gone")
	tbl.Release(h)

	_, ok := tbl.Lookup(h)
	require.False(t, ok)
	require.Equal(t, 0, tbl.Len())
}

func TestReleaseKeepsEntryAliveWhileReferenced(t *testing.T) {
	tbl := New(16)
	h1 := tbl.Intern("/shared")
	h2 := tbl.Intern("/shared")
	require.Equal(t, h1, h2)

	tbl.Release(h1)
	path, ok := tbl.Lookup(h2)
	require.True(t, ok, "a second outstanding reference must keep the path alive")
	require.Equal(t, "/shared", path)
}

func TestLookupUnknownHandleFails(t *testing.T) {
	tbl := New(16)
	_, ok := tbl.Lookup(tbl.Intern("/real"))
	require.True(t, ok)

	tbl2 := New(16)
	foreign := tbl2.Intern("/other")
	_, ok = tbl.Lookup(foreign)
	require.False(t, ok, "a handle minted by a different table must not resolve")
}

func TestReleaseInvalidHandleIsNoop(t *testing.T) {
	tbl := New(16)
	require.NotPanics(t, func() { tbl.Release(broker.InternedStr{}) })
}
