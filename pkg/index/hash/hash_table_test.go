package hash

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/n-orlov/coredb/pkg/buffer"
	"github.com/n-orlov/coredb/pkg/storage/disk"
	"github.com/n-orlov/coredb/pkg/tuple"
	"github.com/n-orlov/coredb/pkg/types"
)

func newTestTable(t *testing.T, bucketMaxSize int) *Table {
	t.Helper()
	mgr, err := disk.NewManager(filepath.Join(t.TempDir(), "hash.db"))
	require.NoError(t, err)
	t.Cleanup(func() { mgr.Close() })
	sched := disk.NewScheduler(mgr, nil)
	t.Cleanup(sched.Destroy)
	bpm := buffer.NewPoolManager(64, 2, sched, nil)

	tbl, err := NewTable(bpm, 9, 9, bucketMaxSize)
	require.NoError(t, err)
	return tbl
}

func TestHashTableInsertAndGet(t *testing.T) {
	tbl := newTestTable(t, 4)

	for i := 0; i < 100; i++ {
		err := tbl.Insert(types.NewInteger(int64(i)), tuple.NewRID(disk.PageID(i), uint32(i%7)))
		require.NoError(t, err)
	}

	for i := 0; i < 100; i++ {
		rid, found, err := tbl.Get(types.NewInteger(int64(i)))
		require.NoError(t, err)
		require.True(t, found, "key %d should be found", i)
		require.Equal(t, disk.PageID(i), rid.PageID)
		require.Equal(t, uint32(i%7), rid.Slot)
	}

	_, found, err := tbl.Get(types.NewInteger(12345))
	require.NoError(t, err)
	require.False(t, found)
}

func TestHashTableDuplicateKeyRejected(t *testing.T) {
	tbl := newTestTable(t, 4)
	require.NoError(t, tbl.Insert(types.NewInteger(1), tuple.NewRID(0, 0)))
	err := tbl.Insert(types.NewInteger(1), tuple.NewRID(0, 1))
	require.Error(t, err)
}

func TestHashTableRemove(t *testing.T) {
	tbl := newTestTable(t, 4)
	for i := 0; i < 20; i++ {
		require.NoError(t, tbl.Insert(types.NewInteger(int64(i)), tuple.NewRID(disk.PageID(i), 0)))
	}

	for i := 0; i < 20; i++ {
		removed, err := tbl.Remove(types.NewInteger(int64(i)))
		require.NoError(t, err)
		require.True(t, removed)
	}

	for i := 0; i < 20; i++ {
		_, found, err := tbl.Get(types.NewInteger(int64(i)))
		require.NoError(t, err)
		require.False(t, found)
	}
}

func TestHashTableRemoveMissingKey(t *testing.T) {
	tbl := newTestTable(t, 4)
	removed, err := tbl.Remove(types.NewInteger(999))
	require.NoError(t, err)
	require.False(t, removed)
}

func TestHashTableInsertAfterRemoveReusesSpace(t *testing.T) {
	tbl := newTestTable(t, 4)
	require.NoError(t, tbl.Insert(types.NewInteger(1), tuple.NewRID(0, 0)))
	removed, err := tbl.Remove(types.NewInteger(1))
	require.NoError(t, err)
	require.True(t, removed)
	require.NoError(t, tbl.Insert(types.NewInteger(1), tuple.NewRID(0, 5)))

	rid, found, err := tbl.Get(types.NewInteger(1))
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, uint32(5), rid.Slot)
}
