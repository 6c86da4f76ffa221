package eventlog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAppendAndAll(t *testing.T) {
	l, err := New(8)
	require.NoError(t, err)

	require.NoError(t, l.Append("CreateFile", "/a", "w1", 0, time.Unix(1, 0)))
	require.NoError(t, l.Append("Delete", "/b", "w1", 0, time.Unix(2, 0)))

	all, err := l.All()
	require.NoError(t, err)
	require.Len(t, all, 2)
}

func TestAppendEvictsOldestPastCapacity(t *testing.T) {
	l, err := New(2)
	require.NoError(t, err)

	require.NoError(t, l.Append("CreateFile", "/1", "w1", 0, time.Unix(1, 0)))
	require.NoError(t, l.Append("CreateFile", "/2", "w1", 0, time.Unix(2, 0)))
	require.NoError(t, l.Append("CreateFile", "/3", "w1", 0, time.Unix(3, 0)))

	all, err := l.All()
	require.NoError(t, err)
	require.Len(t, all, 2)
	for _, r := range all {
		require.NotEqual(t, "/1", r.Path, "the oldest record must have been evicted")
	}
}

func TestBySlotFiltersToOneWatcher(t *testing.T) {
	l, err := New(8)
	require.NoError(t, err)

	require.NoError(t, l.Append("CreateFile", "/a", "w1", 1, time.Unix(1, 0)))
	require.NoError(t, l.Append("CreateFile", "/b", "w2", 2, time.Unix(2, 0)))

	recs, err := l.BySlot(1)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.Equal(t, "/a", recs[0].Path)
}

func TestByKindFiltersToOneKind(t *testing.T) {
	l, err := New(8)
	require.NoError(t, err)

	require.NoError(t, l.Append("CreateFile", "/a", "w1", 1, time.Unix(1, 0)))
	require.NoError(t, l.Append("Delete", "/b", "w1", 1, time.Unix(2, 0)))

	recs, err := l.ByKind("Delete")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.Equal(t, "/b", recs[0].Path)
}

func TestNewDefaultsCapacityWhenNonPositive(t *testing.T) {
	l, err := New(0)
	require.NoError(t, err)
	require.Equal(t, 4096, l.capacity)
}
