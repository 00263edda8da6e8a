package catalog

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/n-orlov/coredb/pkg/buffer"
	"github.com/n-orlov/coredb/pkg/storage/disk"
	"github.com/n-orlov/coredb/pkg/tuple"
	"github.com/n-orlov/coredb/pkg/types"
)

func newTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	mgr, err := disk.NewManager(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { mgr.Close() })
	sched := disk.NewScheduler(mgr, nil)
	t.Cleanup(sched.Destroy)
	bpm := buffer.NewPoolManager(32, 2, sched, nil)
	return NewCatalog(bpm)
}

func usersSchema() *tuple.Schema {
	return tuple.NewSchema([]tuple.Column{
		{Name: "id", Kind: types.KindInteger},
		{Name: "name", Kind: types.KindString},
	})
}

func TestCreateTableThenLookupByOIDAndName(t *testing.T) {
	cat := newTestCatalog(t)
	created, err := cat.CreateTable("users", usersSchema())
	require.NoError(t, err)

	byOID, err := cat.GetTable(created.OID)
	require.NoError(t, err)
	assert.Same(t, created, byOID)

	byName, err := cat.GetTableByName("users")
	require.NoError(t, err)
	assert.Same(t, created, byName)
}

func TestCreateTableDuplicateNameErrors(t *testing.T) {
	cat := newTestCatalog(t)
	_, err := cat.CreateTable("users", usersSchema())
	require.NoError(t, err)
	_, err = cat.CreateTable("users", usersSchema())
	assert.Error(t, err)
}

func TestGetTableUnknownOIDErrors(t *testing.T) {
	cat := newTestCatalog(t)
	_, err := cat.GetTable(TableOID(99))
	assert.Error(t, err)
}

func TestCreateIndexRegistersUnderTableAndOID(t *testing.T) {
	cat := newTestCatalog(t)
	tbl, err := cat.CreateTable("users", usersSchema())
	require.NoError(t, err)

	idx, err := cat.CreateIndex("users_id_idx", tbl, "id", 9, 9, 32)
	require.NoError(t, err)
	assert.Equal(t, tbl.OID, idx.TableOID)
	assert.Equal(t, "id", idx.KeyColumn)

	byOID, err := cat.GetIndex(idx.OID)
	require.NoError(t, err)
	assert.Same(t, idx, byOID)

	indexes, err := cat.GetTableIndexes("users")
	require.NoError(t, err)
	require.Len(t, indexes, 1)
	assert.Same(t, idx, indexes[0])
}

func TestIndexInfoInsertGetDeleteEntry(t *testing.T) {
	cat := newTestCatalog(t)
	tbl, err := cat.CreateTable("users", usersSchema())
	require.NoError(t, err)
	idx, err := cat.CreateIndex("users_id_idx", tbl, "id", 9, 9, 32)
	require.NoError(t, err)

	key := *tuple.NewTuple([]types.Value{types.NewInteger(42)})
	rid := tuple.NewRID(1, 2)
	require.NoError(t, idx.InsertEntry(key, rid))

	found, err := idx.ScanKey(key)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, rid, found[0])

	require.NoError(t, idx.DeleteEntry(key))
	found, err = idx.ScanKey(key)
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestGetTableIndexesOnUnknownTableErrors(t *testing.T) {
	cat := newTestCatalog(t)
	_, err := cat.GetTableIndexes("ghost")
	assert.Error(t, err)
}
