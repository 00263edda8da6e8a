package buffer

import (
	"sync"

	"github.com/n-orlov/coredb/pkg/storage/disk"
)

// BasicPageGuard owns a pin on a page without holding either R/W latch.
// On Drop it unpins exactly once, without marking the page dirty
// (nothing sets the guard's dirty flag); it is
// move-only in spirit — Go has no move semantics, so callers must stop
// using a guard after passing ownership elsewhere, and Drop is
// idempotent to make that safe even if both sides call it.
type BasicPageGuard struct {
	bpm     *PoolManager
	page    *disk.Page
	latch   *sync.RWMutex
	dirty   bool
	dropped bool
}

func newBasicGuard(bpm *PoolManager, page *disk.Page, latch *sync.RWMutex) *BasicPageGuard {
	return &BasicPageGuard{bpm: bpm, page: page, latch: latch}
}

func (g *BasicPageGuard) Page() *disk.Page { return g.page }

// Drop unpins the page exactly once. Safe to call multiple times.
func (g *BasicPageGuard) Drop() {
	if g.dropped || g.page == nil {
		return
	}
	g.dropped = true
	g.bpm.UnpinPage(g.page.ID, g.dirty)
}

// UpgradeRead takes the page's shared latch and returns a ReadPageGuard
// that now owns this guard's pin.
func (g *BasicPageGuard) UpgradeRead() *ReadPageGuard {
	g.latch.RLock()
	rg := &ReadPageGuard{bpm: g.bpm, page: g.page, latch: g.latch}
	g.dropped = true // ownership transferred
	return rg
}

// UpgradeWrite takes the page's exclusive latch and returns a
// WritePageGuard that now owns this guard's pin.
func (g *BasicPageGuard) UpgradeWrite() *WritePageGuard {
	g.latch.Lock()
	wg := &WritePageGuard{bpm: g.bpm, page: g.page, latch: g.latch}
	g.dropped = true
	return wg
}

// ReadPageGuard holds a page pinned and its shared (reader) latch
// taken. On Drop it releases the latch then unpins.
type ReadPageGuard struct {
	bpm     *PoolManager
	page    *disk.Page
	latch   *sync.RWMutex
	dropped bool
}

func (g *ReadPageGuard) Page() *disk.Page { return g.page }

func (g *ReadPageGuard) Drop() {
	if g.dropped {
		return
	}
	g.dropped = true
	g.latch.RUnlock()
	g.bpm.UnpinPage(g.page.ID, false)
}

// WritePageGuard holds a page pinned and its exclusive (writer) latch
// taken. On Drop it releases the latch then unpins, marking the page
// dirty (write guards always imply a potential mutation).
type WritePageGuard struct {
	bpm     *PoolManager
	page    *disk.Page
	latch   *sync.RWMutex
	dropped bool
}

func (g *WritePageGuard) Page() *disk.Page { return g.page }

func (g *WritePageGuard) Drop() {
	if g.dropped {
		return
	}
	g.dropped = true
	g.latch.Unlock()
	g.bpm.UnpinPage(g.page.ID, true)
}

// FetchPageBasic pins id and returns a guard holding no latch.
func (bpm *PoolManager) FetchPageBasic(id disk.PageID) (*BasicPageGuard, error) {
	page, err := bpm.FetchPage(id)
	if err != nil {
		return nil, err
	}
	if page == nil {
		return nil, nil
	}
	latch, _ := bpm.latchFor(id)
	return newBasicGuard(bpm, page, latch), nil
}

// FetchPageRead pins id and takes its shared latch.
func (bpm *PoolManager) FetchPageRead(id disk.PageID) (*ReadPageGuard, error) {
	g, err := bpm.FetchPageBasic(id)
	if err != nil || g == nil {
		return nil, err
	}
	return g.UpgradeRead(), nil
}

// FetchPageWrite pins id and takes its exclusive latch.
func (bpm *PoolManager) FetchPageWrite(id disk.PageID) (*WritePageGuard, error) {
	g, err := bpm.FetchPageBasic(id)
	if err != nil || g == nil {
		return nil, err
	}
	return g.UpgradeWrite(), nil
}

// NewPageGuarded allocates a fresh page and returns a guard holding no
// latch (the caller almost always wants to initialize content first,
// then upgrade to write to install it under latch protection).
func (bpm *PoolManager) NewPageGuarded() (*BasicPageGuard, error) {
	page, err := bpm.NewPage()
	if err != nil {
		return nil, err
	}
	if page == nil {
		return nil, nil
	}
	latch, _ := bpm.latchFor(page.ID)
	return newBasicGuard(bpm, page, latch), nil
}
