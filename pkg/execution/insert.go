package execution

import (
	"github.com/n-orlov/coredb/pkg/plan"
	"github.com/n-orlov/coredb/pkg/tuple"
)

// InsertExecutor inserts every child-produced tuple into the table heap
// and every index keyed on the table, then emits a single row carrying
// the count of tuples inserted.
type InsertExecutor struct {
	node  *plan.Insert
	ctx   *Context
	child Executor
	done  bool
}

func NewInsertExecutor(node *plan.Insert, ctx *Context, child Executor) *InsertExecutor {
	return &InsertExecutor{node: node, ctx: ctx, child: child}
}

func (e *InsertExecutor) Schema() *tuple.Schema { return e.node.OutputSchema() }

func (e *InsertExecutor) Init() error {
	e.done = false
	return e.child.Init()
}

func (e *InsertExecutor) Next() (*tuple.Tuple, tuple.RID, bool, error) {
	if e.done {
		return nil, tuple.RID{}, false, nil
	}
	e.done = true

	count := int64(0)
	for {
		t, _, ok, err := e.child.Next()
		if err != nil {
			return nil, tuple.RID{}, false, err
		}
		if !ok {
			break
		}

		meta := tuple.Meta{Timestamp: e.ctx.readerTxnID(), IsDeleted: false}
		rid, err := e.node.Table.Heap.InsertTuple(meta, t)
		if err != nil {
			return nil, tuple.RID{}, false, err
		}
		e.ctx.Txn.RecordWrite(int(e.node.Table.OID), rid)

		for _, idx := range e.node.Indexes {
			key, err := indexKey(idx, t, e.node.Table.Schema)
			if err != nil {
				return nil, tuple.RID{}, false, err
			}
			if err := idx.InsertEntry(key, rid); err != nil {
				return nil, tuple.RID{}, false, err
			}
		}
		count++
	}

	return countTuple(count), tuple.RID{}, true, nil
}
