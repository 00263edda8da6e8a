package execution

import (
	"github.com/n-orlov/coredb/pkg/plan"
	"github.com/n-orlov/coredb/pkg/storage/heap"
	"github.com/n-orlov/coredb/pkg/tuple"
	"github.com/n-orlov/coredb/pkg/txn"
)

// SeqScanExecutor walks every slot of a table heap, reconstructing the
// version visible to the running transaction and applying an optional
// pushdown predicate.
type SeqScanExecutor struct {
	node *plan.SeqScan
	ctx  *Context
	it   *heap.Iterator
}

func NewSeqScanExecutor(node *plan.SeqScan, ctx *Context) *SeqScanExecutor {
	return &SeqScanExecutor{node: node, ctx: ctx}
}

func (e *SeqScanExecutor) Schema() *tuple.Schema { return e.node.OutputSchema() }

func (e *SeqScanExecutor) Init() error {
	e.it = e.node.Table.Heap.MakeIterator()
	return nil
}

func (e *SeqScanExecutor) Next() (*tuple.Tuple, tuple.RID, bool, error) {
	for {
		rid, meta, base, ok, err := e.it.Next()
		if err != nil {
			return nil, tuple.RID{}, false, err
		}
		if !ok {
			return nil, tuple.RID{}, false, nil
		}

		isVisible := txn.IsVisible(meta, e.ctx.readTS(), e.ctx.readerTxnID())
		logs := txn.CollectUndoLogs(e.ctx.Manager, rid, meta, e.ctx.readTS(), e.ctx.readerTxnID())
		if !isVisible && len(logs) == 0 {
			continue
		}
		row, found := txn.Reconstruct(e.node.Table.Schema, base, meta, logs)
		if !found {
			continue
		}

		ok, err = plan.EvaluatePredicate(e.node.Predicate, row)
		if err != nil {
			return nil, tuple.RID{}, false, err
		}
		if !ok {
			continue
		}
		return row, rid, true, nil
	}
}
