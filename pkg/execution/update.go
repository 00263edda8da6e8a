package execution

import (
	"github.com/n-orlov/coredb/pkg/plan"
	"github.com/n-orlov/coredb/pkg/tuple"
	"github.com/n-orlov/coredb/pkg/txn"
	"github.com/n-orlov/coredb/pkg/types"
)

// UpdateExecutor evaluates TargetExprs against every child-produced
// tuple to build a replacement row, then applies it under MVCC per
// spec.md §4.7: repeated writes by the same transaction cover the
// existing undo log rather than chaining a new one, a committed writer
// newer than this transaction's snapshot taints it, and otherwise a
// delta undo log captures just the modified columns' pre-images.
type UpdateExecutor struct {
	node  *plan.Update
	ctx   *Context
	child Executor
	done  bool
}

func NewUpdateExecutor(node *plan.Update, ctx *Context, child Executor) *UpdateExecutor {
	return &UpdateExecutor{node: node, ctx: ctx, child: child}
}

func (e *UpdateExecutor) Schema() *tuple.Schema { return e.node.OutputSchema() }

func (e *UpdateExecutor) Init() error {
	e.done = false
	return e.child.Init()
}

func (e *UpdateExecutor) Next() (*tuple.Tuple, tuple.RID, bool, error) {
	if e.done {
		return nil, tuple.RID{}, false, nil
	}
	e.done = true

	count := int64(0)
	for {
		t, rid, ok, err := e.child.Next()
		if err != nil {
			return nil, tuple.RID{}, false, err
		}
		if !ok {
			break
		}
		if err := e.updateOne(rid, t); err != nil {
			return nil, tuple.RID{}, false, err
		}
		count++
	}
	return countTuple(count), tuple.RID{}, true, nil
}

func (e *UpdateExecutor) updateOne(rid tuple.RID, _ *tuple.Tuple) error {
	h := e.node.Table.Heap
	schema := e.node.Table.Schema
	meta, base, err := h.GetTuple(rid)
	if err != nil {
		return err
	}

	newValues := make([]types.Value, len(schema.Columns))
	for i, expr := range e.node.TargetExprs {
		v, err := expr.Evaluate(base)
		if err != nil {
			return err
		}
		newValues[i] = v
	}
	newTuple := tuple.NewTuple(newValues)

	modified := make([]bool, len(schema.Columns))
	for i := range schema.Columns {
		modified[i] = !newTuple.Values[i].Equals(base.Values[i]) && !(newTuple.Values[i].IsNull() && base.Values[i].IsNull())
	}

	myID := e.ctx.readerTxnID()

	if meta.Timestamp == myID {
		if link, has := e.ctx.Manager.GetVersionLink(rid); has && link.TxnID == myID {
			old := e.ctx.Txn.GetUndoLog(link.LogIndex)
			mergedFields := make([]bool, len(modified))
			mergedValues := make([]types.Value, len(schema.Columns))
			oldIdx := 0
			for i := range schema.Columns {
				mergedFields[i] = old.ModifiedFields[i] || modified[i]
				switch {
				case old.ModifiedFields[i]:
					mergedValues[i] = old.PartialTuple.Values[oldIdx]
					oldIdx++
				case modified[i]:
					mergedValues[i] = base.Values[i]
				}
			}
			old.ModifiedFields = mergedFields
			old.PartialTuple = tuple.NewTuple(packModified(mergedFields, mergedValues))
			e.ctx.Txn.ReplaceUndoLog(link.LogIndex, old)
		}
		if err := h.UpdateTupleInPlace(rid, tuple.Meta{Timestamp: myID, IsDeleted: false}, newTuple); err != nil {
			return err
		}
		e.ctx.Txn.RecordWrite(int(e.node.Table.OID), rid)
		return e.reindex(base, newTuple, rid, modified)
	}

	if e.ctx.readTS() < meta.Timestamp {
		e.ctx.Txn.Taint()
		return &txn.ConflictError{RID: rid}
	}

	delta := make([]types.Value, 0, len(schema.Columns))
	for i, m := range modified {
		if m {
			delta = append(delta, base.Values[i])
		}
	}
	prev, _ := e.ctx.Manager.GetVersionLink(rid)
	link := e.ctx.Txn.AppendUndoLog(txn.UndoLog{
		IsDeleted:      false,
		ModifiedFields: modified,
		PartialTuple:   tuple.NewTuple(delta),
		Timestamp:      meta.Timestamp,
		Prev:           prev,
	})
	e.ctx.Manager.SetVersionLink(rid, link)

	if err := h.UpdateTupleInPlace(rid, tuple.Meta{Timestamp: myID, IsDeleted: false}, newTuple); err != nil {
		return err
	}
	e.ctx.Txn.RecordWrite(int(e.node.Table.OID), rid)
	return e.reindex(base, newTuple, rid, modified)
}

// packModified returns only the values at positions where fields[i] is
// set, in order, matching the partial-tuple encoding UndoLog expects.
func packModified(fields []bool, values []types.Value) []types.Value {
	out := make([]types.Value, 0, len(values))
	for i, f := range fields {
		if f {
			out = append(out, values[i])
		}
	}
	return out
}

// reindex updates every index whose key column's value actually
// changed between old and new.
func (e *UpdateExecutor) reindex(old, newTuple *tuple.Tuple, rid tuple.RID, modified []bool) error {
	schema := e.node.Table.Schema
	for _, idx := range e.node.Indexes {
		col := schema.IndexOf(idx.KeyColumn)
		if col < 0 || !modified[col] {
			continue
		}
		oldKey, err := indexKey(idx, old, schema)
		if err != nil {
			return err
		}
		if err := idx.DeleteEntry(oldKey); err != nil {
			return err
		}
		newKey, err := indexKey(idx, newTuple, schema)
		if err != nil {
			return err
		}
		if err := idx.InsertEntry(newKey, rid); err != nil {
			return err
		}
	}
	return nil
}
