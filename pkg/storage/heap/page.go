// Package heap implements the table heap: a slotted-page format for
// storing variable-length tuples, and an iterator over every slot.
//
// Grounded on ryogrid/SamehadaDB's TablePage format (itself inherited
// from brunocalza/go-bustub, a direct Bustub port): header with tuple
// count / free-space pointer, followed by a slot directory of
// (offset, size) pairs growing forward while tuple bodies are appended
// backward from the end of the page.
package heap

import (
	"encoding/binary"
	"fmt"

	"github.com/n-orlov/coredb/pkg/storage/disk"
	"github.com/n-orlov/coredb/pkg/tuple"
	"github.com/n-orlov/coredb/pkg/types"
)

// Slotted page layout (big-endian ints, sizes in bytes):
//
//	[0:4)   tuple count
//	[4:8)   free-space pointer (offset where tuple bodies begin)
//	[8:16)  next page id (int64, -1 if none)
//	[16: )  slot directory: per-slot (offset uint32, size uint32, deleted byte, ts uint64)
//	...     free space
//	[fsp: ) tuple bodies, packed from the end of the page backward
const (
	headerSize = 16
	slotSize   = 17 // offset(4) + size(4) + deleted(1) + timestamp(8)
)

type slot struct {
	offset uint32
	size   uint32
}

// Page wraps a raw disk.Page as a table heap page, decoding its slot
// directory lazily (no in-memory entry cache beyond what callers ask
// for — content is read directly from the backing byte array).
type Page struct {
	raw *disk.Page
}

func Wrap(raw *disk.Page) *Page { return &Page{raw: raw} }

func Init(raw *disk.Page) *Page {
	p := &Page{raw: raw}
	p.setTupleCount(0)
	p.setFreeSpacePointer(disk.PageSize)
	p.SetNextPageID(disk.InvalidPageID)
	return p
}

func (p *Page) NextPageID() disk.PageID {
	return disk.PageID(int64(binary.BigEndian.Uint64(p.raw.Data[8:16])))
}

func (p *Page) SetNextPageID(id disk.PageID) {
	binary.BigEndian.PutUint64(p.raw.Data[8:16], uint64(int64(id)))
}

func (p *Page) tupleCount() uint32 {
	return binary.BigEndian.Uint32(p.raw.Data[0:4])
}
func (p *Page) setTupleCount(n uint32) {
	binary.BigEndian.PutUint32(p.raw.Data[0:4], n)
}
func (p *Page) freeSpacePointer() uint32 {
	return binary.BigEndian.Uint32(p.raw.Data[4:8])
}
func (p *Page) setFreeSpacePointer(n uint32) {
	binary.BigEndian.PutUint32(p.raw.Data[4:8], n)
}

func slotOffset(i uint32) uint32 { return headerSize + i*slotSize }

func (p *Page) readSlot(i uint32) (offset, size uint32, deleted bool, ts uint64) {
	base := slotOffset(i)
	offset = binary.BigEndian.Uint32(p.raw.Data[base : base+4])
	size = binary.BigEndian.Uint32(p.raw.Data[base+4 : base+8])
	deleted = p.raw.Data[base+8] != 0
	ts = binary.BigEndian.Uint64(p.raw.Data[base+9 : base+17])
	return
}

func (p *Page) writeSlot(i uint32, offset, size uint32, deleted bool, ts uint64) {
	base := slotOffset(i)
	binary.BigEndian.PutUint32(p.raw.Data[base:base+4], offset)
	binary.BigEndian.PutUint32(p.raw.Data[base+4:base+8], size)
	if deleted {
		p.raw.Data[base+8] = 1
	} else {
		p.raw.Data[base+8] = 0
	}
	binary.BigEndian.PutUint64(p.raw.Data[base+9:base+17], ts)
}

func (p *Page) freeSpaceRemaining() uint32 {
	return p.freeSpacePointer() - slotOffset(p.tupleCount())
}

// InsertTuple appends a serialized tuple's body at the free-space
// pointer and allocates a new slot for it. Returns the slot number.
func (p *Page) InsertTuple(meta tuple.Meta, t *tuple.Tuple, schema *tuple.Schema) (uint32, error) {
	body := encodeTuple(t, schema)
	if p.freeSpaceRemaining() < uint32(len(body))+slotSize {
		return 0, fmt.Errorf("heap: page full (need %d, have %d)", len(body)+slotSize, p.freeSpaceRemaining())
	}
	newFSP := p.freeSpacePointer() - uint32(len(body))
	copy(p.raw.Data[newFSP:newFSP+uint32(len(body))], body)
	p.setFreeSpacePointer(newFSP)

	slotNum := p.tupleCount()
	p.writeSlot(slotNum, newFSP, uint32(len(body)), meta.IsDeleted, meta.Timestamp)
	p.setTupleCount(slotNum + 1)
	return slotNum, nil
}

// GetTuple decodes the tuple stored at slot, along with its metadata.
func (p *Page) GetTuple(slotNum uint32, schema *tuple.Schema) (tuple.Meta, *tuple.Tuple, error) {
	if slotNum >= p.tupleCount() {
		return tuple.Meta{}, nil, fmt.Errorf("heap: slot %d out of range (count %d)", slotNum, p.tupleCount())
	}
	offset, size, deleted, ts := p.readSlot(slotNum)
	body := p.raw.Data[offset : offset+size]
	t, err := decodeTuple(body, schema)
	if err != nil {
		return tuple.Meta{}, nil, err
	}
	return tuple.Meta{Timestamp: ts, IsDeleted: deleted}, t, nil
}

// GetTupleMeta reads only the metadata for slot, without decoding the
// tuple body.
func (p *Page) GetTupleMeta(slotNum uint32) (tuple.Meta, error) {
	if slotNum >= p.tupleCount() {
		return tuple.Meta{}, fmt.Errorf("heap: slot %d out of range (count %d)", slotNum, p.tupleCount())
	}
	_, _, deleted, ts := p.readSlot(slotNum)
	return tuple.Meta{Timestamp: ts, IsDeleted: deleted}, nil
}

// UpdateTupleMeta rewrites only the metadata header word for slot,
// leaving the tuple body untouched.
func (p *Page) UpdateTupleMeta(slotNum uint32, meta tuple.Meta) error {
	if slotNum >= p.tupleCount() {
		return fmt.Errorf("heap: slot %d out of range (count %d)", slotNum, p.tupleCount())
	}
	offset, size, _, _ := p.readSlot(slotNum)
	p.writeSlot(slotNum, offset, size, meta.IsDeleted, meta.Timestamp)
	return nil
}

// UpdateTupleInPlace overwrites slot's body and metadata with a new
// tuple, keeping the slot number. A new encoding no larger than the old
// slot is written over it; a larger one is written into the page's free
// space and the slot is repointed there (the old bytes are not
// reclaimed). Fails if the page has no room for the larger encoding.
func (p *Page) UpdateTupleInPlace(slotNum uint32, meta tuple.Meta, t *tuple.Tuple, schema *tuple.Schema) error {
	if slotNum >= p.tupleCount() {
		return fmt.Errorf("heap: slot %d out of range (count %d)", slotNum, p.tupleCount())
	}
	body := encodeTuple(t, schema)
	offset, size, _, _ := p.readSlot(slotNum)
	if uint32(len(body)) > size {
		if p.freeSpaceRemaining() < uint32(len(body)) {
			return fmt.Errorf("heap: updated tuple (%d bytes) fits neither its slot (%d bytes) nor the page's free space", len(body), size)
		}
		offset = p.freeSpacePointer() - uint32(len(body))
		p.setFreeSpacePointer(offset)
		size = uint32(len(body))
	}
	copy(p.raw.Data[offset:offset+uint32(len(body))], body)
	p.writeSlot(slotNum, offset, size, meta.IsDeleted, meta.Timestamp)
	return nil
}

func (p *Page) TupleCount() uint32 { return p.tupleCount() }

// encodeTuple produces a simple length-prefixed, type-tagged encoding
// of a tuple's values; the page never needs to interpret the content,
// only to size and move it.
func encodeTuple(t *tuple.Tuple, schema *tuple.Schema) []byte {
	var buf []byte
	for i, v := range t.Values {
		kind := schema.Columns[i].Kind
		if v.IsNull() {
			buf = append(buf, 1)
			continue
		}
		buf = append(buf, 0)
		switch kind {
		case types.KindInteger:
			b := make([]byte, 8)
			binary.BigEndian.PutUint64(b, uint64(v.AsInteger()))
			buf = append(buf, b...)
		case types.KindFloat:
			b := make([]byte, 8)
			binary.BigEndian.PutUint64(b, uint64(int64(v.AsFloat()*1e6)))
			buf = append(buf, b...)
		case types.KindBoolean:
			if v.AsBoolean() {
				buf = append(buf, 1)
			} else {
				buf = append(buf, 0)
			}
		case types.KindString:
			s := v.AsString()
			lb := make([]byte, 4)
			binary.BigEndian.PutUint32(lb, uint32(len(s)))
			buf = append(buf, lb...)
			buf = append(buf, s...)
		}
	}
	return buf
}

func decodeTuple(body []byte, schema *tuple.Schema) (*tuple.Tuple, error) {
	vals := make([]types.Value, len(schema.Columns))
	pos := 0
	for i, col := range schema.Columns {
		if pos >= len(body) {
			return nil, fmt.Errorf("heap: truncated tuple body")
		}
		isNull := body[pos] == 1
		pos++
		if isNull {
			vals[i] = types.NewNull()
			continue
		}
		switch col.Kind {
		case types.KindInteger:
			vals[i] = types.NewInteger(int64(binary.BigEndian.Uint64(body[pos : pos+8])))
			pos += 8
		case types.KindFloat:
			vals[i] = types.NewFloat(float64(int64(binary.BigEndian.Uint64(body[pos:pos+8]))) / 1e6)
			pos += 8
		case types.KindBoolean:
			vals[i] = types.NewBoolean(body[pos] != 0)
			pos++
		case types.KindString:
			n := binary.BigEndian.Uint32(body[pos : pos+4])
			pos += 4
			vals[i] = types.NewString(string(body[pos : pos+int(n)]))
			pos += int(n)
		}
	}
	return tuple.NewTuple(vals), nil
}
