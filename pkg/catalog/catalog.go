// Package catalog provides the minimal table/index registry the core
// consumes as an external collaborator (spec.md §6): schema definition
// and SQL binding live outside the core's scope, but executors and the
// optimizer still need to resolve a table or index by id or name.
//
// Grounded on storemy's pkg/memory.TableManager (bidirectional name/id
// maps under one RWMutex) and its index-manager counterpart, trimmed to
// just the lookups spec.md §6 lists as consumed.
package catalog

import (
	"fmt"
	"sync"

	"github.com/n-orlov/coredb/pkg/buffer"
	"github.com/n-orlov/coredb/pkg/index/hash"
	"github.com/n-orlov/coredb/pkg/storage/heap"
	"github.com/n-orlov/coredb/pkg/tuple"
)

type TableOID int
type IndexOID int

// TableInfo is what the catalog hands back for a table: its identity,
// schema, and storage.
type TableInfo struct {
	OID    TableOID
	Name   string
	Schema *tuple.Schema
	Heap   *heap.TableHeap
}

// IndexInfo is what the catalog hands back for an index: its identity,
// the table it indexes, the single key column it is built over, and
// its storage.
type IndexInfo struct {
	OID       IndexOID
	Name      string
	TableOID  TableOID
	KeyColumn string
	KeySchema *tuple.Schema
	Index     *hash.Table
}

// ScanKey probes the index for the RIDs of every tuple whose key
// column equals key, per spec.md §6's consumed Index.scan_key contract.
func (ii *IndexInfo) ScanKey(key tuple.Tuple) ([]tuple.RID, error) {
	v := key.Values[0]
	rid, found, err := ii.Index.Get(v)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return []tuple.RID{rid}, nil
}

func (ii *IndexInfo) InsertEntry(key tuple.Tuple, rid tuple.RID) error {
	return ii.Index.Insert(key.Values[0], rid)
}

func (ii *IndexInfo) DeleteEntry(key tuple.Tuple) error {
	_, err := ii.Index.Remove(key.Values[0])
	return err
}

// Catalog is the process-wide registry of tables and their indexes.
type Catalog struct {
	mu          sync.RWMutex
	bpm         *buffer.PoolManager
	nextTableID TableOID
	nextIndexID IndexOID
	byTableName map[string]*TableInfo
	byTableOID  map[TableOID]*TableInfo
	indexesByTable map[TableOID][]*IndexInfo
	byIndexOID  map[IndexOID]*IndexInfo
}

func NewCatalog(bpm *buffer.PoolManager) *Catalog {
	return &Catalog{
		bpm:            bpm,
		byTableName:    make(map[string]*TableInfo),
		byTableOID:     make(map[TableOID]*TableInfo),
		indexesByTable: make(map[TableOID][]*IndexInfo),
		byIndexOID:     make(map[IndexOID]*IndexInfo),
	}
}

// CreateTable allocates a fresh table heap and registers it.
func (c *Catalog) CreateTable(name string, schema *tuple.Schema) (*TableInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.byTableName[name]; exists {
		return nil, fmt.Errorf("catalog: table %q already exists", name)
	}

	th, err := heap.NewTableHeap(c.bpm, schema)
	if err != nil {
		return nil, fmt.Errorf("catalog: creating table %q: %w", name, err)
	}

	ti := &TableInfo{OID: c.nextTableID, Name: name, Schema: schema, Heap: th}
	c.byTableName[name] = ti
	c.byTableOID[ti.OID] = ti
	c.nextTableID++
	return ti, nil
}

func (c *Catalog) GetTable(oid TableOID) (*TableInfo, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ti, ok := c.byTableOID[oid]
	if !ok {
		return nil, fmt.Errorf("catalog: no table with oid %d", oid)
	}
	return ti, nil
}

func (c *Catalog) GetTableByName(name string) (*TableInfo, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ti, ok := c.byTableName[name]
	if !ok {
		return nil, fmt.Errorf("catalog: no table %q", name)
	}
	return ti, nil
}

// CreateIndex builds a fresh extendible hash index over table's key
// column and registers it.
func (c *Catalog) CreateIndex(name string, table *TableInfo, keyColumn string, headerMaxDepth, dirMaxDepth, bucketMaxSize int) (*IndexInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx, err := hash.NewTable(c.bpm, headerMaxDepth, dirMaxDepth, bucketMaxSize)
	if err != nil {
		return nil, fmt.Errorf("catalog: creating index %q: %w", name, err)
	}

	keySchema, err := table.Schema.Project(keyColumn)
	if err != nil {
		return nil, err
	}

	ii := &IndexInfo{
		OID:       c.nextIndexID,
		Name:      name,
		TableOID:  table.OID,
		KeyColumn: keyColumn,
		KeySchema: keySchema,
		Index:     idx,
	}
	c.indexesByTable[table.OID] = append(c.indexesByTable[table.OID], ii)
	c.byIndexOID[ii.OID] = ii
	c.nextIndexID++
	return ii, nil
}

func (c *Catalog) GetIndex(oid IndexOID) (*IndexInfo, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ii, ok := c.byIndexOID[oid]
	if !ok {
		return nil, fmt.Errorf("catalog: no index with oid %d", oid)
	}
	return ii, nil
}

// GetTableIndexes returns every index registered over the named table.
func (c *Catalog) GetTableIndexes(tableName string) ([]*IndexInfo, error) {
	ti, err := c.GetTableByName(tableName)
	if err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.indexesByTable[ti.OID], nil
}
