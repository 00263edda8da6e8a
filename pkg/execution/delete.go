package execution

import (
	"github.com/n-orlov/coredb/pkg/plan"
	"github.com/n-orlov/coredb/pkg/tuple"
	"github.com/n-orlov/coredb/pkg/txn"
)

// DeleteExecutor marks every child-produced RID deleted under MVCC,
// per spec.md §4.7: a transaction's own uncommitted write is
// overwritten in place; a committed write newer than this txn's
// snapshot taints the transaction; otherwise a full-pre-image undo log
// is appended before the base tuple is stamped deleted.
type DeleteExecutor struct {
	node  *plan.Delete
	ctx   *Context
	child Executor
	done  bool
}

func NewDeleteExecutor(node *plan.Delete, ctx *Context, child Executor) *DeleteExecutor {
	return &DeleteExecutor{node: node, ctx: ctx, child: child}
}

func (e *DeleteExecutor) Schema() *tuple.Schema { return e.node.OutputSchema() }

func (e *DeleteExecutor) Init() error {
	e.done = false
	return e.child.Init()
}

func (e *DeleteExecutor) Next() (*tuple.Tuple, tuple.RID, bool, error) {
	if e.done {
		return nil, tuple.RID{}, false, nil
	}
	e.done = true

	count := int64(0)
	for {
		_, rid, ok, err := e.child.Next()
		if err != nil {
			return nil, tuple.RID{}, false, err
		}
		if !ok {
			break
		}

		if err := e.deleteOne(rid); err != nil {
			return nil, tuple.RID{}, false, err
		}
		count++
	}

	return countTuple(count), tuple.RID{}, true, nil
}

func (e *DeleteExecutor) deleteOne(rid tuple.RID) error {
	h := e.node.Table.Heap
	meta, err := h.GetTupleMeta(rid)
	if err != nil {
		return err
	}

	myID := e.ctx.readerTxnID()
	if meta.Timestamp == myID {
		meta.IsDeleted = true
		e.ctx.Txn.RecordWrite(int(e.node.Table.OID), rid)
		return h.UpdateTupleMeta(rid, meta)
	}

	if e.ctx.readTS() < meta.Timestamp {
		e.ctx.Txn.Taint()
		return &txn.ConflictError{RID: rid}
	}

	_, base, err := h.GetTuple(rid)
	if err != nil {
		return err
	}
	prev, _ := e.ctx.Manager.GetVersionLink(rid)
	modified := make([]bool, len(base.Values))
	for i := range modified {
		modified[i] = true
	}
	link := e.ctx.Txn.AppendUndoLog(txn.UndoLog{
		IsDeleted:      meta.IsDeleted,
		ModifiedFields: modified,
		PartialTuple:   base.Clone(),
		Timestamp:      meta.Timestamp,
		Prev:           prev,
	})
	e.ctx.Manager.SetVersionLink(rid, link)

	for _, idx := range e.node.Indexes {
		key, err := indexKey(idx, base, e.node.Table.Schema)
		if err != nil {
			return err
		}
		if err := idx.DeleteEntry(key); err != nil {
			return err
		}
	}

	if err := h.UpdateTupleMeta(rid, tuple.Meta{Timestamp: myID, IsDeleted: true}); err != nil {
		return err
	}
	e.ctx.Txn.RecordWrite(int(e.node.Table.OID), rid)
	return nil
}
