package hash

import (
	"fmt"

	"github.com/n-orlov/coredb/pkg/buffer"
	"github.com/n-orlov/coredb/pkg/storage/disk"
	"github.com/n-orlov/coredb/pkg/tuple"
	"github.com/n-orlov/coredb/pkg/types"
)

// Table is the orchestrator for the three-level extendible hash index:
// it owns the header page id and descends header -> directory -> bucket
// on every operation, taking only the minimal set of page guards needed
// at each stage per spec.md §4.4 ("descend, drop parent").
type Table struct {
	bpm           *buffer.PoolManager
	headerPageID  disk.PageID
	headerMaxDepth uint32
	dirMaxDepth   uint32
	bucketMaxSize uint32
}

// NewTable allocates a fresh header page and returns the index.
func NewTable(bpm *buffer.PoolManager, headerMaxDepth, dirMaxDepth, bucketMaxSize int) (*Table, error) {
	guard, err := bpm.NewPageGuarded()
	if err != nil {
		return nil, err
	}
	if guard == nil {
		return nil, fmt.Errorf("hash: no frame available to create header page")
	}
	wg := guard.UpgradeWrite()
	InitHeaderPage(wg.Page(), uint32(headerMaxDepth))
	id := wg.Page().ID
	wg.Drop()

	return &Table{
		bpm:            bpm,
		headerPageID:   id,
		headerMaxDepth: uint32(headerMaxDepth),
		dirMaxDepth:    uint32(dirMaxDepth),
		bucketMaxSize:  uint32(bucketMaxSize),
	}, nil
}

// Get returns the value for key, and whether it was found.
func (t *Table) Get(key types.Value) (tuple.RID, bool, error) {
	h := HashKey(key)

	hrg, err := t.bpm.FetchPageRead(t.headerPageID)
	if err != nil || hrg == nil {
		return tuple.RID{}, false, notFoundOr(err, "header page")
	}
	header := WrapHeaderPage(hrg.Page())
	dirIdx := header.HashToDirectoryIndex(h)
	dirID := header.DirectoryPageID(dirIdx)
	hrg.Drop()

	if dirID == disk.InvalidPageID {
		return tuple.RID{}, false, nil
	}

	drg, err := t.bpm.FetchPageRead(dirID)
	if err != nil || drg == nil {
		return tuple.RID{}, false, notFoundOr(err, "directory page")
	}
	dir := WrapDirectoryPage(drg.Page())
	bucketIdx := dir.HashToBucketIndex(h)
	bucketID := dir.BucketPageID(bucketIdx)
	drg.Drop()

	if bucketID == disk.InvalidPageID {
		return tuple.RID{}, false, nil
	}

	brg, err := t.bpm.FetchPageRead(bucketID)
	if err != nil || brg == nil {
		return tuple.RID{}, false, notFoundOr(err, "bucket page")
	}
	defer brg.Drop()
	bucket := WrapBucketPage(brg.Page())
	rid, found := bucket.Lookup(key)
	return rid, found, nil
}

// Insert adds (key, value), splitting buckets as needed. Returns an
// error if key already exists or if the directory cannot grow enough
// to accommodate the insert (directory at max depth with a full
// bucket).
func (t *Table) Insert(key types.Value, value tuple.RID) error {
	h := HashKey(key)

	hwg, err := t.bpm.FetchPageWrite(t.headerPageID)
	if err != nil {
		return err
	}
	if hwg == nil {
		return fmt.Errorf("hash: header page unavailable")
	}
	header := WrapHeaderPage(hwg.Page())
	dirIdx := header.HashToDirectoryIndex(h)
	dirID := header.DirectoryPageID(dirIdx)

	if dirID == disk.InvalidPageID {
		newDirID, err := t.allocateDirectory()
		if err != nil {
			hwg.Drop()
			return err
		}
		header.SetDirectoryPageID(dirIdx, newDirID)
		dirID = newDirID
	}
	hwg.Drop()

	return t.insertIntoDirectory(dirID, key, value, h)
}

func (t *Table) insertIntoDirectory(dirID disk.PageID, key types.Value, value tuple.RID, h uint32) error {
	dwg, err := t.bpm.FetchPageWrite(dirID)
	if err != nil {
		return err
	}
	if dwg == nil {
		return fmt.Errorf("hash: directory page unavailable")
	}
	dir := WrapDirectoryPage(dwg.Page())
	bucketIdx := dir.HashToBucketIndex(h)
	bucketID := dir.BucketPageID(bucketIdx)

	if bucketID == disk.InvalidPageID {
		newBucketID, err := t.allocateBucket()
		if err != nil {
			dwg.Drop()
			return err
		}
		dir.SetBucketPageID(bucketIdx, newBucketID)
		bucketID = newBucketID
	}

	bwg, err := t.bpm.FetchPageWrite(bucketID)
	if err != nil {
		dwg.Drop()
		return err
	}
	if bwg == nil {
		dwg.Drop()
		return fmt.Errorf("hash: bucket page unavailable")
	}
	bucket := WrapBucketPage(bwg.Page())

	if _, exists := bucket.Lookup(key); exists {
		bwg.Drop()
		dwg.Drop()
		return fmt.Errorf("hash: key already present")
	}

	if !bucket.IsFull() {
		err := bucket.Insert(key, value)
		bwg.Drop()
		dwg.Drop()
		return err
	}

	// Split: grow local depth (and global depth / directory if needed),
	// rehash, then retry the insert (possibly triggering further splits).
	localDepth := dir.LocalDepth(bucketIdx)
	if localDepth+1 > t.dirMaxDepth {
		bwg.Drop()
		dwg.Drop()
		return fmt.Errorf("hash: insert failed, directory at max depth %d", t.dirMaxDepth)
	}
	if localDepth+1 > dir.GlobalDepth() {
		if err := dir.IncrGlobalDepth(); err != nil {
			bwg.Drop()
			dwg.Drop()
			return err
		}
	}
	newLocalDepth := localDepth + 1
	splitIdx := SplitImageIndex(bucketIdx, newLocalDepth)

	newBucketID, err := t.allocateBucket()
	if err != nil {
		bwg.Drop()
		dwg.Drop()
		return err
	}
	nbwg, err := t.bpm.FetchPageWrite(newBucketID)
	if err != nil || nbwg == nil {
		bwg.Drop()
		dwg.Drop()
		return fmt.Errorf("hash: could not fetch freshly allocated split bucket: %v", err)
	}
	newBucket := WrapBucketPage(nbwg.Page())

	mask := uint32(1)<<newLocalDepth - 1
	bucketLowBits := uint32(bucketIdx) & mask
	splitLowBits := uint32(splitIdx) & mask

	entries := bucket.Entries()
	bucket.Clear()
	for _, e := range entries {
		if int(HashKey(e.Key))&int(mask) == int(splitLowBits) {
			newBucket.Insert(e.Key, e.Value)
		} else {
			bucket.Insert(e.Key, e.Value)
		}
	}

	// Repoint every directory slot sharing the low newLocalDepth bits
	// of bucketIdx or splitIdx at the correct page with the new depth.
	for i := 0; i < dir.Size(); i++ {
		low := uint32(i) & mask
		if low == bucketLowBits {
			dir.SetLocalDepth(i, newLocalDepth)
			dir.SetBucketPageID(i, bucketID)
		} else if low == splitLowBits {
			dir.SetLocalDepth(i, newLocalDepth)
			dir.SetBucketPageID(i, newBucketID)
		}
	}
	nbwg.Drop()
	bwg.Drop()
	dwg.Drop()

	return t.insertIntoDirectory(dirID, key, value, h)
}

// Remove deletes key's entry, merging the vacated bucket with its split
// image where possible and shrinking the directory when every local
// depth allows it.
func (t *Table) Remove(key types.Value) (bool, error) {
	h := HashKey(key)

	hrg, err := t.bpm.FetchPageRead(t.headerPageID)
	if err != nil || hrg == nil {
		return false, notFoundOr(err, "header page")
	}
	header := WrapHeaderPage(hrg.Page())
	dirIdx := header.HashToDirectoryIndex(h)
	dirID := header.DirectoryPageID(dirIdx)
	hrg.Drop()

	if dirID == disk.InvalidPageID {
		return false, nil
	}

	dwg, err := t.bpm.FetchPageWrite(dirID)
	if err != nil || dwg == nil {
		return false, notFoundOr(err, "directory page")
	}
	defer dwg.Drop()
	dir := WrapDirectoryPage(dwg.Page())
	bucketIdx := dir.HashToBucketIndex(h)
	bucketID := dir.BucketPageID(bucketIdx)
	if bucketID == disk.InvalidPageID {
		return false, nil
	}

	bwg, err := t.bpm.FetchPageWrite(bucketID)
	if err != nil || bwg == nil {
		return false, notFoundOr(err, "bucket page")
	}
	bucket := WrapBucketPage(bwg.Page())
	found := bucket.Remove(key)
	empty := bucket.IsEmpty()
	bwg.Drop()
	if !found {
		return false, nil
	}

	if empty {
		t.mergeRecursively(dir, bucketIdx)
		t.shrinkDirectory(dir)
	}
	return true, nil
}

// mergeRecursively collapses bucketIdx's (now-empty) bucket with its
// split image, if the image exists at the same local depth, and
// continues upward while the merged result is itself empty.
func (t *Table) mergeRecursively(dir *DirectoryPage, bucketIdx int) {
	for {
		localDepth := dir.LocalDepth(bucketIdx)
		if localDepth == 0 {
			return
		}
		splitIdx := SplitImageIndex(bucketIdx, localDepth)
		if dir.LocalDepth(splitIdx) != localDepth {
			return
		}

		vacatedID := dir.BucketPageID(bucketIdx)
		imageID := dir.BucketPageID(splitIdx)

		newDepth := localDepth - 1
		mask := uint32(1)<<newDepth - 1
		lowBits := uint32(bucketIdx) & mask
		for i := 0; i < dir.Size(); i++ {
			if uint32(i)&mask == lowBits {
				dir.SetLocalDepth(i, newDepth)
				dir.SetBucketPageID(i, imageID)
			}
		}

		if vacatedID != disk.InvalidPageID && vacatedID != imageID {
			t.bpm.DeletePage(vacatedID)
		}

		// The image may itself now be empty (e.g. both sides were
		// empty); check and keep merging upward.
		brg, err := t.bpm.FetchPageRead(imageID)
		if err != nil || brg == nil {
			return
		}
		isEmpty := WrapBucketPage(brg.Page()).IsEmpty()
		brg.Drop()
		if !isEmpty {
			return
		}
		bucketIdx = lowestSlotWithLowBits(dir, lowBits, mask)
	}
}

func lowestSlotWithLowBits(dir *DirectoryPage, lowBits, mask uint32) int {
	for i := 0; i < dir.Size(); i++ {
		if uint32(i)&mask == lowBits {
			return i
		}
	}
	return 0
}

// shrinkDirectory halves the directory while every local depth allows
// it, scanning the soon-to-be-orphaned half for an empty bucket first
// so the "no orphan empty buckets" invariant (spec.md §4.4) holds.
func (t *Table) shrinkDirectory(dir *DirectoryPage) {
	for dir.CanShrink() {
		half := dir.Size() / 2
		for i := half; i < dir.Size(); i++ {
			bid := dir.BucketPageID(i)
			if bid == disk.InvalidPageID {
				continue
			}
			brg, err := t.bpm.FetchPageRead(bid)
			if err != nil || brg == nil {
				continue
			}
			isEmpty := WrapBucketPage(brg.Page()).IsEmpty()
			brg.Drop()
			if isEmpty {
				t.mergeRecursively(dir, i)
			}
		}
		if !dir.CanShrink() {
			return
		}
		dir.DecrGlobalDepth()
	}
}

func (t *Table) allocateDirectory() (disk.PageID, error) {
	guard, err := t.bpm.NewPageGuarded()
	if err != nil {
		return disk.InvalidPageID, err
	}
	if guard == nil {
		return disk.InvalidPageID, fmt.Errorf("hash: no frame for new directory page")
	}
	wg := guard.UpgradeWrite()
	InitDirectoryPage(wg.Page(), t.dirMaxDepth)
	id := wg.Page().ID
	wg.Drop()
	return id, nil
}

func (t *Table) allocateBucket() (disk.PageID, error) {
	guard, err := t.bpm.NewPageGuarded()
	if err != nil {
		return disk.InvalidPageID, err
	}
	if guard == nil {
		return disk.InvalidPageID, fmt.Errorf("hash: no frame for new bucket page")
	}
	wg := guard.UpgradeWrite()
	InitBucketPage(wg.Page(), t.bucketMaxSize)
	id := wg.Page().ID
	wg.Drop()
	return id, nil
}

func notFoundOr(err error, what string) error {
	if err != nil {
		return fmt.Errorf("hash: fetching %s: %w", what, err)
	}
	return fmt.Errorf("hash: %s not found", what)
}
