package execution

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/n-orlov/coredb/pkg/buffer"
	"github.com/n-orlov/coredb/pkg/catalog"
	"github.com/n-orlov/coredb/pkg/storage/disk"
	"github.com/n-orlov/coredb/pkg/tuple"
	"github.com/n-orlov/coredb/pkg/txn"
	"github.com/n-orlov/coredb/pkg/types"
)

// fakeExecutor feeds a fixed row set to an operator under test without
// needing a real scan underneath it.
type fakeExecutor struct {
	schema *tuple.Schema
	rows   []*tuple.Tuple
	rids   []tuple.RID
	pos    int
}

func newFakeExecutor(schema *tuple.Schema, rows ...*tuple.Tuple) *fakeExecutor {
	return &fakeExecutor{schema: schema, rows: rows}
}

func (f *fakeExecutor) Schema() *tuple.Schema { return f.schema }
func (f *fakeExecutor) Init() error           { f.pos = 0; return nil }
func (f *fakeExecutor) Next() (*tuple.Tuple, tuple.RID, bool, error) {
	if f.pos >= len(f.rows) {
		return nil, tuple.RID{}, false, nil
	}
	row := f.rows[f.pos]
	var rid tuple.RID
	if f.pos < len(f.rids) {
		rid = f.rids[f.pos]
	}
	f.pos++
	return row, rid, true, nil
}

func newTestCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	mgr, err := disk.NewManager(filepath.Join(t.TempDir(), "exec.db"))
	require.NoError(t, err)
	t.Cleanup(func() { mgr.Close() })
	sched := disk.NewScheduler(mgr, nil)
	t.Cleanup(sched.Destroy)
	bpm := buffer.NewPoolManager(32, 2, sched, nil)
	return catalog.NewCatalog(bpm)
}

func usersSchema() *tuple.Schema {
	return tuple.NewSchema([]tuple.Column{
		{Name: "id", Kind: types.KindInteger},
		{Name: "name", Kind: types.KindString},
	})
}

// newTestContext returns a fresh manager, a running transaction under
// snapshot isolation, and an execution Context wrapping both.
func newTestContext() (*txn.Manager, *txn.Transaction, *Context) {
	m := txn.NewManager(nil)
	t := m.Begin(txn.SnapshotIsolation)
	return m, t, &Context{Txn: t, Manager: m}
}

func row(vals ...types.Value) *tuple.Tuple { return tuple.NewTuple(vals) }
