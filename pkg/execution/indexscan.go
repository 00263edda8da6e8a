package execution

import (
	"github.com/n-orlov/coredb/pkg/plan"
	"github.com/n-orlov/coredb/pkg/tuple"
	"github.com/n-orlov/coredb/pkg/types"
)

// IndexScanExecutor probes an index for a constant key, then for each
// matching RID reads the base tuple directly (no MVCC reconstruction —
// per spec.md §4.7 this executor only discards deletions).
type IndexScanExecutor struct {
	node *plan.IndexScan
	rids []tuple.RID
	pos  int
}

func NewIndexScanExecutor(node *plan.IndexScan) *IndexScanExecutor {
	return &IndexScanExecutor{node: node}
}

func (e *IndexScanExecutor) Schema() *tuple.Schema { return e.node.OutputSchema() }

func (e *IndexScanExecutor) Init() error {
	keyVal, err := e.node.Key.Evaluate(nil)
	if err != nil {
		return err
	}
	keyTuple := tuple.NewTuple([]types.Value{keyVal})
	rids, err := e.node.Index.ScanKey(*keyTuple)
	if err != nil {
		return err
	}
	e.rids = rids
	e.pos = 0
	return nil
}

func (e *IndexScanExecutor) Next() (*tuple.Tuple, tuple.RID, bool, error) {
	for e.pos < len(e.rids) {
		rid := e.rids[e.pos]
		e.pos++

		meta, err := e.node.Table.Heap.GetTupleMeta(rid)
		if err != nil {
			return nil, tuple.RID{}, false, err
		}
		if meta.IsDeleted {
			continue
		}
		_, base, err := e.node.Table.Heap.GetTuple(rid)
		if err != nil {
			return nil, tuple.RID{}, false, err
		}

		ok, err := plan.EvaluatePredicate(e.node.Predicate, base)
		if err != nil {
			return nil, tuple.RID{}, false, err
		}
		if !ok {
			continue
		}
		return base, rid, true, nil
	}
	return nil, tuple.RID{}, false, nil
}
