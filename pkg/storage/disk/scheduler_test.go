package disk

import (
	"bytes"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestScheduler(t *testing.T) *Scheduler {
	t.Helper()
	mgr, err := NewManager(filepath.Join(t.TempDir(), "sched.db"))
	require.NoError(t, err)
	sched := NewScheduler(mgr, nil)
	t.Cleanup(func() {
		sched.Destroy()
		mgr.Close()
	})
	return sched
}

func TestSchedulerWriteThenReadSync(t *testing.T) {
	sched := newTestScheduler(t)
	id := sched.AllocatePageID()

	var buf [PageSize]byte
	copy(buf[:], "scheduled")
	require.NoError(t, sched.WritePageSync(id, buf[:]))

	var readBack [PageSize]byte
	require.NoError(t, sched.ReadPageSync(id, readBack[:]))
	assert.True(t, bytes.Equal(buf[:], readBack[:]))
}

func TestSchedulerServesConcurrentRequestsFIFOSafely(t *testing.T) {
	sched := newTestScheduler(t)

	var wg sync.WaitGroup
	ids := make([]PageID, 20)
	for i := range ids {
		ids[i] = sched.AllocatePageID()
	}

	for i, id := range ids {
		wg.Add(1)
		go func(i int, id PageID) {
			defer wg.Done()
			var buf [PageSize]byte
			buf[0] = byte(i)
			require.NoError(t, sched.WritePageSync(id, buf[:]))
		}(i, id)
	}
	wg.Wait()

	for i, id := range ids {
		var buf [PageSize]byte
		require.NoError(t, sched.ReadPageSync(id, buf[:]))
		assert.Equal(t, byte(i), buf[0])
	}
}

func TestSchedulerDestroyDrainsQueueBeforeReturning(t *testing.T) {
	mgr, err := NewManager(filepath.Join(t.TempDir(), "drain.db"))
	require.NoError(t, err)
	defer mgr.Close()
	sched := NewScheduler(mgr, nil)

	id := sched.AllocatePageID()
	var buf [PageSize]byte
	copy(buf[:], "pending")
	require.NoError(t, sched.WritePageSync(id, buf[:]))

	sched.Destroy()

	var readBack [PageSize]byte
	require.NoError(t, mgr.ReadPage(id, readBack[:]))
	assert.True(t, bytes.Equal(buf[:], readBack[:]))
}
