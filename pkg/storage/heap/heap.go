package heap

import (
	"fmt"
	"sync"

	"github.com/n-orlov/coredb/pkg/buffer"
	"github.com/n-orlov/coredb/pkg/storage/disk"
	"github.com/n-orlov/coredb/pkg/tuple"
)

// TableHeap owns the chain of pages backing one table and serializes
// insertion of new tuples behind a single mutex (matching the original
// table_heap.cpp, which takes a latch only around page-chain mutation —
// reads go straight through the buffer pool's own per-page latches).
type TableHeap struct {
	bpm        *buffer.PoolManager
	schema     *tuple.Schema
	mu         sync.Mutex
	firstPage  disk.PageID
	lastPage   disk.PageID
}

// NewTableHeap allocates the heap's first page and returns the heap.
func NewTableHeap(bpm *buffer.PoolManager, schema *tuple.Schema) (*TableHeap, error) {
	guard, err := bpm.NewPageGuarded()
	if err != nil {
		return nil, err
	}
	if guard == nil {
		return nil, fmt.Errorf("heap: no frame available to create first page")
	}
	wg := guard.UpgradeWrite()
	Init(wg.Page())
	id := wg.Page().ID
	wg.Drop()

	return &TableHeap{bpm: bpm, schema: schema, firstPage: id, lastPage: id}, nil
}

// InsertTuple appends t to the heap, allocating a new page if the last
// page has no room, and returns the tuple's RID.
func (h *TableHeap) InsertTuple(meta tuple.Meta, t *tuple.Tuple) (tuple.RID, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	wg, err := h.bpm.FetchPageWrite(h.lastPage)
	if err != nil {
		return tuple.RID{}, err
	}
	if wg == nil {
		return tuple.RID{}, fmt.Errorf("heap: could not fetch last page %d", h.lastPage)
	}
	lastID := wg.Page().ID
	page := Wrap(wg.Page())
	slot, err := page.InsertTuple(meta, t, h.schema)
	if err == nil {
		wg.Drop()
		return tuple.NewRID(lastID, slot), nil
	}
	wg.Drop()

	// Last page full: allocate a new one, link it, and retry there.
	guard, err := h.bpm.NewPageGuarded()
	if err != nil {
		return tuple.RID{}, err
	}
	if guard == nil {
		return tuple.RID{}, fmt.Errorf("heap: no frame available for overflow page")
	}
	nwg := guard.UpgradeWrite()
	newPage := Init(nwg.Page())
	slot, err = newPage.InsertTuple(meta, t, h.schema)
	newID := nwg.Page().ID
	nwg.Drop()
	if err != nil {
		return tuple.RID{}, fmt.Errorf("heap: tuple too large for an empty page: %w", err)
	}

	lwg, err := h.bpm.FetchPageWrite(lastID)
	if err != nil {
		return tuple.RID{}, err
	}
	if lwg != nil {
		Wrap(lwg.Page()).SetNextPageID(newID)
		lwg.Drop()
	}

	h.lastPage = newID
	return tuple.NewRID(newID, slot), nil
}

// GetTuple reads the tuple and metadata at rid.
func (h *TableHeap) GetTuple(rid tuple.RID) (tuple.Meta, *tuple.Tuple, error) {
	rg, err := h.bpm.FetchPageRead(rid.PageID)
	if err != nil {
		return tuple.Meta{}, nil, err
	}
	if rg == nil {
		return tuple.Meta{}, nil, fmt.Errorf("heap: page %d not found", rid.PageID)
	}
	defer rg.Drop()
	page := Wrap(rg.Page())
	return page.GetTuple(rid.Slot, h.schema)
}

func (h *TableHeap) GetTupleMeta(rid tuple.RID) (tuple.Meta, error) {
	rg, err := h.bpm.FetchPageRead(rid.PageID)
	if err != nil {
		return tuple.Meta{}, err
	}
	if rg == nil {
		return tuple.Meta{}, fmt.Errorf("heap: page %d not found", rid.PageID)
	}
	defer rg.Drop()
	page := Wrap(rg.Page())
	return page.GetTupleMeta(rid.Slot)
}

// UpdateTupleInPlace overwrites rid's stored tuple and metadata without
// changing its RID, used by the MVCC update executor to install the
// new base version (per spec.md §4.7, the undo log already captured
// whatever pre-image is needed before this call).
func (h *TableHeap) UpdateTupleInPlace(rid tuple.RID, meta tuple.Meta, t *tuple.Tuple) error {
	wg, err := h.bpm.FetchPageWrite(rid.PageID)
	if err != nil {
		return err
	}
	if wg == nil {
		return fmt.Errorf("heap: page %d not found", rid.PageID)
	}
	defer wg.Drop()
	page := Wrap(wg.Page())
	return page.UpdateTupleInPlace(rid.Slot, meta, t, h.schema)
}

func (h *TableHeap) UpdateTupleMeta(rid tuple.RID, meta tuple.Meta) error {
	wg, err := h.bpm.FetchPageWrite(rid.PageID)
	if err != nil {
		return err
	}
	if wg == nil {
		return fmt.Errorf("heap: page %d not found", rid.PageID)
	}
	defer wg.Drop()
	page := Wrap(wg.Page())
	return page.UpdateTupleMeta(rid.Slot, meta)
}

func (h *TableHeap) Schema() *tuple.Schema { return h.schema }

// Iterator walks every slot of every page in the heap, in page/slot
// order, oldest page first. Callers apply their own MVCC visibility
// filtering on top (see pkg/txn.Reconstruct and pkg/execution.SeqScan).
type Iterator struct {
	heap       *TableHeap
	currentID  disk.PageID
	slot       uint32
	done       bool
}

func (h *TableHeap) MakeIterator() *Iterator {
	return &Iterator{heap: h, currentID: h.firstPage, slot: 0}
}

// Next returns the RID, metadata, and tuple of the iterator's current
// position and advances. Returns ok=false once every page is exhausted.
func (it *Iterator) Next() (rid tuple.RID, meta tuple.Meta, t *tuple.Tuple, ok bool, err error) {
	if it.done {
		return tuple.RID{}, tuple.Meta{}, nil, false, nil
	}
	for {
		rg, ferr := it.heap.bpm.FetchPageRead(it.currentID)
		if ferr != nil {
			return tuple.RID{}, tuple.Meta{}, nil, false, ferr
		}
		if rg == nil {
			it.done = true
			return tuple.RID{}, tuple.Meta{}, nil, false, nil
		}
		page := Wrap(rg.Page())
		count := page.TupleCount()
		if it.slot >= count {
			next := page.NextPageID()
			rg.Drop()
			if next == disk.InvalidPageID {
				it.done = true
				return tuple.RID{}, tuple.Meta{}, nil, false, nil
			}
			it.currentID = next
			it.slot = 0
			continue
		}
		m, tup, derr := page.GetTuple(it.slot, it.heap.schema)
		curRID := tuple.NewRID(it.currentID, it.slot)
		it.slot++
		rg.Drop()
		if derr != nil {
			return tuple.RID{}, tuple.Meta{}, nil, false, derr
		}
		return curRID, m, tup, true, nil
	}
}
