package buffer

import (
	"errors"
	"fmt"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/n-orlov/coredb/pkg/storage/disk"
)

// ErrOutOfFrames is reported by victimFrameLocked when no frame can be
// obtained for a new or fetched page: the free list is empty and the
// replacer has nothing evictable. NewPage and FetchPage do not pass it
// on; they return a nil page with a nil error instead.
var ErrOutOfFrames = errors.New("buffer: no free or evictable frame available")

// PoolManager is the fixed-size page cache sitting between executors
// and the disk scheduler: pinning, dirty tracking, and LRU-K eviction
// behind one metadata mutex plus per-page R/W latches (one
// sync.RWMutex per frame in latches, acquired only through the guard
// types in guard.go). Grounded on storemy's pkg/memory.PageStore (evict-then-
// fetch control flow, free-frame bookkeeping) generalized to the
// frame/page-table/replacer split spec.md §4.2 describes.
type PoolManager struct {
	mu sync.Mutex

	frames    []*disk.Page
	latches   []*sync.RWMutex
	freeList  []FrameID
	pageTable map[disk.PageID]FrameID
	loading   map[disk.PageID]chan struct{}

	replacer  *LRUKReplacer
	scheduler *disk.Scheduler
	log       *logrus.Logger
}

func NewPoolManager(poolSize int, k int, scheduler *disk.Scheduler, log *logrus.Logger) *PoolManager {
	if log == nil {
		log = logrus.StandardLogger()
	}
	bpm := &PoolManager{
		frames:    make([]*disk.Page, poolSize),
		latches:   make([]*sync.RWMutex, poolSize),
		freeList:  make([]FrameID, poolSize),
		pageTable: make(map[disk.PageID]FrameID),
		loading:   make(map[disk.PageID]chan struct{}),
		replacer:  NewLRUKReplacer(k),
		scheduler: scheduler,
		log:       log,
	}
	for i := 0; i < poolSize; i++ {
		bpm.latches[i] = &sync.RWMutex{}
		bpm.freeList[i] = FrameID(poolSize - 1 - i)
	}
	log.WithFields(logrus.Fields{
		"pool_size": poolSize,
		"bytes":     humanize.Bytes(uint64(poolSize * disk.PageSize)),
	}).Info("buffer: pool manager initialized")
	return bpm
}

// NewPage allocates a fresh page id, pins it into a victim frame, and
// returns the (zeroed) page. Returns nil if no frame can be obtained.
func (bpm *PoolManager) NewPage() (*disk.Page, error) {
	bpm.mu.Lock()
	defer bpm.mu.Unlock()

	frame, err := bpm.victimFrameLocked()
	if err != nil {
		return nil, nil // OutOfMemory: sentinel per spec.md §7
	}

	id := bpm.scheduler.AllocatePageID()
	page := bpm.resetFrameLocked(frame, id)
	page.Pin()
	bpm.pageTable[id] = frame
	bpm.replacer.RecordAccess(frame)
	bpm.replacer.SetEvictable(frame, false)
	return page, nil
}

// FetchPage pins and returns the page for id, loading it from disk via
// the scheduler if it is not already resident. Returns nil if no frame
// can be obtained for a page not already cached.
func (bpm *PoolManager) FetchPage(id disk.PageID) (*disk.Page, error) {
	for {
		bpm.mu.Lock()

		if frame, ok := bpm.pageTable[id]; ok {
			page := bpm.frames[frame]
			page.Pin()
			bpm.replacer.RecordAccess(frame)
			bpm.replacer.SetEvictable(frame, false)
			bpm.mu.Unlock()
			return page, nil
		}

		// Another goroutine is already loading id from disk: wait for it
		// to finish and re-check the page table instead of racing it into
		// a second frame or observing its still-zeroed page.
		if done, ok := bpm.loading[id]; ok {
			bpm.mu.Unlock()
			<-done
			continue
		}

		frame, err := bpm.victimFrameLocked()
		if err != nil {
			bpm.mu.Unlock()
			return nil, nil
		}
		page := bpm.resetFrameLocked(frame, id)
		done := make(chan struct{})
		bpm.loading[id] = done
		bpm.mu.Unlock()

		// Disk I/O happens outside bpm.mu: the frame is not installed into
		// pageTable until the read completes, so no concurrent fetcher can
		// observe it before its content is loaded.
		readErr := bpm.scheduler.ReadPageSync(id, page.Data[:])

		bpm.mu.Lock()
		delete(bpm.loading, id)
		if readErr != nil {
			bpm.freeList = append(bpm.freeList, frame)
			bpm.mu.Unlock()
			close(done)
			return nil, fmt.Errorf("buffer: fetching page %d: %w", id, readErr)
		}
		bpm.pageTable[id] = frame
		page.Pin()
		bpm.replacer.RecordAccess(frame)
		bpm.replacer.SetEvictable(frame, false)
		bpm.mu.Unlock()
		close(done)
		return page, nil
	}
}

// UnpinPage decrements id's pin count and, if it reaches zero, marks
// its frame evictable. Fails if id is not resident or already unpinned.
func (bpm *PoolManager) UnpinPage(id disk.PageID, isDirty bool) bool {
	bpm.mu.Lock()
	defer bpm.mu.Unlock()

	frame, ok := bpm.pageTable[id]
	if !ok {
		return false
	}
	page := bpm.frames[frame]
	if page.PinCount() == 0 {
		return false
	}
	if isDirty {
		page.MarkDirty()
	}
	page.Unpin()
	if page.PinCount() == 0 {
		bpm.replacer.SetEvictable(frame, true)
	}
	return true
}

// FlushPage writes id's current content to disk through the scheduler
// and clears its dirty flag on success.
func (bpm *PoolManager) FlushPage(id disk.PageID) bool {
	bpm.mu.Lock()
	frame, ok := bpm.pageTable[id]
	if !ok {
		bpm.mu.Unlock()
		return false
	}
	page := bpm.frames[frame]
	snapshot := page.Data
	bpm.mu.Unlock()

	if err := bpm.scheduler.WritePageSync(id, snapshot[:]); err != nil {
		bpm.log.WithError(err).WithField("page_id", id).Error("buffer: flush failed")
		return false
	}

	bpm.mu.Lock()
	page.ClearDirty()
	bpm.mu.Unlock()
	return true
}

// FlushAllPages flushes every resident page. Per-page flush I/O is fanned
// out concurrently via errgroup, since each page's write is independent
// and the scheduler itself already serializes the actual disk access.
func (bpm *PoolManager) FlushAllPages() error {
	bpm.mu.Lock()
	ids := make([]disk.PageID, 0, len(bpm.pageTable))
	for id := range bpm.pageTable {
		ids = append(ids, id)
	}
	bpm.mu.Unlock()

	var g errgroup.Group
	for _, id := range ids {
		id := id
		g.Go(func() error {
			if !bpm.FlushPage(id) {
				return fmt.Errorf("buffer: failed to flush page %d", id)
			}
			return nil
		})
	}
	return g.Wait()
}

// DeletePage removes id from the pool entirely. Fails if the page is
// pinned.
func (bpm *PoolManager) DeletePage(id disk.PageID) bool {
	bpm.mu.Lock()
	defer bpm.mu.Unlock()

	frame, ok := bpm.pageTable[id]
	if !ok {
		return true
	}
	page := bpm.frames[frame]
	if page.PinCount() > 0 {
		return false
	}
	bpm.replacer.Remove(frame)
	delete(bpm.pageTable, id)
	bpm.frames[frame] = nil
	bpm.freeList = append(bpm.freeList, frame)
	return true
}

// PinCount exposes a resident page's current pin count for tests; not
// used by any executor or index path (see SPEC_FULL.md supplement #6).
func (bpm *PoolManager) PinCount(id disk.PageID) (int, bool) {
	bpm.mu.Lock()
	defer bpm.mu.Unlock()
	frame, ok := bpm.pageTable[id]
	if !ok {
		return 0, false
	}
	return bpm.frames[frame].PinCount(), true
}

// victimFrameLocked selects a frame for reuse: free list first, else
// ask the replacer to evict, writing back a dirty victim before reuse.
// Must be called with bpm.mu held.
func (bpm *PoolManager) victimFrameLocked() (FrameID, error) {
	if n := len(bpm.freeList); n > 0 {
		frame := bpm.freeList[n-1]
		bpm.freeList = bpm.freeList[:n-1]
		return frame, nil
	}

	frame, ok := bpm.replacer.Evict()
	if !ok {
		return 0, ErrOutOfFrames
	}

	victim := bpm.frames[frame]
	if victim != nil {
		delete(bpm.pageTable, victim.ID)
		if victim.IsDirty() {
			snapshot := victim.Data
			if err := bpm.scheduler.WritePageSync(victim.ID, snapshot[:]); err != nil {
				// Fatal per spec.md §7: failure to write back a dirty
				// victim leaves the pool in an unrecoverable state.
				panic(fmt.Sprintf("buffer: fatal: could not flush dirty victim page %d: %v", victim.ID, err))
			}
		}
	}
	return frame, nil
}

// resetFrameLocked installs a fresh, zeroed page for id into frame,
// replacing whatever was previously cached there. Must be called with
// bpm.mu held.
func (bpm *PoolManager) resetFrameLocked(frame FrameID, id disk.PageID) *disk.Page {
	page := bpm.frames[frame]
	if page == nil {
		page = disk.NewPage(id)
		bpm.frames[frame] = page
	} else {
		page.Reset(id)
	}
	return page
}

// latchFor returns the per-page reader/writer latch for a resident frame.
// Used exclusively by the page guard constructors in guard.go.
func (bpm *PoolManager) latchFor(id disk.PageID) (*sync.RWMutex, bool) {
	bpm.mu.Lock()
	defer bpm.mu.Unlock()
	frame, ok := bpm.pageTable[id]
	if !ok {
		return nil, false
	}
	return bpm.latches[frame], true
}
