package tuple

import "fmt"

// PageID is a monotonically-assigned page identifier. InvalidPageID
// is the sentinel meaning "no page".
type PageID int64

const InvalidPageID PageID = -1

// RID (Record Identifier) locates a tuple within a table heap: the page
// holding it and its slot number on that page. RIDs are stable across a
// tuple's lifetime, including in-place MVCC updates.
type RID struct {
	PageID PageID
	Slot   uint32
}

func NewRID(pageID PageID, slot uint32) RID {
	return RID{PageID: pageID, Slot: slot}
}

func (r RID) String() string {
	return fmt.Sprintf("(%d,%d)", r.PageID, r.Slot)
}

func (r RID) IsValid() bool {
	return r.PageID != InvalidPageID
}
