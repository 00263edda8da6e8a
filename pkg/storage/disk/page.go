// Package disk implements the durable, page-grained storage layer: raw
// fixed-size pages, a disk manager that persists them by id, and a
// single-worker scheduler that serializes asynchronous page I/O.
//
// Grounded on storemy's pkg/storage/page (BaseFile) and ryogrid/SamehadaDB's
// disk.DiskManager interface, itself inherited from brunocalza/go-bustub.
package disk

import "github.com/n-orlov/coredb/pkg/tuple"

// PageSize is the fixed size, in bytes, of every page moved through the
// buffer pool and persisted to disk.
const PageSize = 4096

type PageID = tuple.PageID

const InvalidPageID = tuple.InvalidPageID

// Page is a fixed-size raw byte block plus the bookkeeping the buffer
// pool needs to manage its residency: identity, dirty state, and pin
// count. Page content interpretation (table page, hash directory page,
// ...) is layered on top by callers that reinterpret Data.
type Page struct {
	ID       PageID
	Data     [PageSize]byte
	pinCount int
	isDirty  bool
}

func NewPage(id PageID) *Page {
	return &Page{ID: id}
}

func (p *Page) PinCount() int { return p.pinCount }
func (p *Page) IsDirty() bool { return p.isDirty }
func (p *Page) MarkDirty()    { p.isDirty = true }
func (p *Page) ClearDirty()   { p.isDirty = false }

func (p *Page) Pin()   { p.pinCount++ }
func (p *Page) Unpin() {
	if p.pinCount > 0 {
		p.pinCount--
	}
}

// Reset zeroes the page's content and identity in place, reusing the
// backing array. Used when a frame is recycled for a brand new page.
func (p *Page) Reset(id PageID) {
	p.ID = id
	p.isDirty = false
	p.pinCount = 0
	for i := range p.Data {
		p.Data[i] = 0
	}
}
