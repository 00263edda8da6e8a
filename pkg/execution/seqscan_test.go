package execution

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/n-orlov/coredb/pkg/plan"
	"github.com/n-orlov/coredb/pkg/tuple"
	"github.com/n-orlov/coredb/pkg/txn"
	"github.com/n-orlov/coredb/pkg/types"
)

func TestSeqScanExecutorYieldsOwnUncommittedInserts(t *testing.T) {
	cat := newTestCatalog(t)
	tbl, err := cat.CreateTable("users", usersSchema())
	require.NoError(t, err)
	_, _, ctx := newTestContext()

	for i := 1; i <= 3; i++ {
		_, err := tbl.Heap.InsertTuple(tuple.Meta{Timestamp: ctx.readerTxnID()}, row(types.NewInteger(int64(i)), types.NewString("n")))
		require.NoError(t, err)
	}

	exec := NewSeqScanExecutor(&plan.SeqScan{Table: tbl}, ctx)
	require.NoError(t, exec.Init())

	var seen []int64
	for {
		r, _, ok, err := exec.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		seen = append(seen, r.Values[0].AsInteger())
	}
	assert.Equal(t, []int64{1, 2, 3}, seen)
}

func TestSeqScanExecutorAppliesPredicate(t *testing.T) {
	cat := newTestCatalog(t)
	tbl, err := cat.CreateTable("users", usersSchema())
	require.NoError(t, err)
	_, _, ctx := newTestContext()

	for i := 1; i <= 3; i++ {
		_, err := tbl.Heap.InsertTuple(tuple.Meta{Timestamp: ctx.readerTxnID()}, row(types.NewInteger(int64(i)), types.NewString("n")))
		require.NoError(t, err)
	}

	pred := &plan.BinaryExpr{Op: plan.OpEq, Left: &plan.ColumnRef{Index: 0}, Right: &plan.Literal{Value: types.NewInteger(2)}}
	exec := NewSeqScanExecutor(&plan.SeqScan{Table: tbl, Predicate: pred}, ctx)
	require.NoError(t, exec.Init())

	r, _, ok, err := exec.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(2), r.Values[0].AsInteger())

	_, _, ok, err = exec.Next()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSeqScanExecutorSkipsOtherTransactionsUncommittedWrite(t *testing.T) {
	cat := newTestCatalog(t)
	tbl, err := cat.CreateTable("users", usersSchema())
	require.NoError(t, err)

	mgr, _, _ := newTestContext()
	writer := mgr.Begin(txn.SnapshotIsolation)
	_, err = tbl.Heap.InsertTuple(tuple.Meta{Timestamp: writer.ID}, row(types.NewInteger(1), types.NewString("n")))
	require.NoError(t, err)

	reader := mgr.Begin(txn.SnapshotIsolation)
	exec := NewSeqScanExecutor(&plan.SeqScan{Table: tbl}, &Context{Txn: reader, Manager: mgr})
	require.NoError(t, exec.Init())

	_, _, ok, err := exec.Next()
	require.NoError(t, err)
	assert.False(t, ok)
}
