package buffer

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/n-orlov/coredb/pkg/storage/disk"
)

func newTestPool(t *testing.T, poolSize, k int) *PoolManager {
	t.Helper()
	mgr, err := disk.NewManager(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { mgr.Close() })
	sched := disk.NewScheduler(mgr, nil)
	t.Cleanup(sched.Destroy)
	return NewPoolManager(poolSize, k, sched, nil)
}

func TestPoolManagerNewAndFetchRoundTrip(t *testing.T) {
	bpm := newTestPool(t, 4, 2)

	page, err := bpm.NewPage()
	require.NoError(t, err)
	require.NotNil(t, page)
	page.Data[0] = 0x42
	bpm.UnpinPage(page.ID, true)
	require.True(t, bpm.FlushPage(page.ID))

	fetched, err := bpm.FetchPage(page.ID)
	require.NoError(t, err)
	require.NotNil(t, fetched)
	require.Equal(t, byte(0x42), fetched.Data[0])
	bpm.UnpinPage(fetched.ID, false)
}

func TestPoolManagerEvictsWhenFull(t *testing.T) {
	bpm := newTestPool(t, 2, 2)

	p1, err := bpm.NewPage()
	require.NoError(t, err)
	p2, err := bpm.NewPage()
	require.NoError(t, err)
	bpm.UnpinPage(p1.ID, false)
	bpm.UnpinPage(p2.ID, false)

	// pool is full but both frames are evictable, so a third NewPage
	// must evict one rather than failing.
	p3, err := bpm.NewPage()
	require.NoError(t, err)
	require.NotNil(t, p3)
}

func TestPoolManagerOutOfFramesWhenAllPinned(t *testing.T) {
	bpm := newTestPool(t, 1, 2)

	p1, err := bpm.NewPage()
	require.NoError(t, err)
	require.NotNil(t, p1)

	p2, err := bpm.NewPage()
	require.NoError(t, err)
	require.Nil(t, p2)
}

func TestPoolManagerUnpinUnknownPageFails(t *testing.T) {
	bpm := newTestPool(t, 2, 2)
	require.False(t, bpm.UnpinPage(disk.PageID(999), false))
}

func TestPoolManagerDeletePageFailsWhilePinned(t *testing.T) {
	bpm := newTestPool(t, 2, 2)
	p, err := bpm.NewPage()
	require.NoError(t, err)
	require.False(t, bpm.DeletePage(p.ID))
	bpm.UnpinPage(p.ID, false)
	require.True(t, bpm.DeletePage(p.ID))
}

func TestPoolManagerFlushAllPages(t *testing.T) {
	bpm := newTestPool(t, 4, 2)
	for i := 0; i < 3; i++ {
		p, err := bpm.NewPage()
		require.NoError(t, err)
		p.Data[0] = byte(i + 1)
		bpm.UnpinPage(p.ID, true)
	}
	require.NoError(t, bpm.FlushAllPages())
}
