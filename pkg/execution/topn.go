package execution

import (
	"container/heap"

	"github.com/n-orlov/coredb/pkg/plan"
	"github.com/n-orlov/coredb/pkg/tuple"
)

// rowHeap is a max-heap (by the TopN's OrderBys) so its root is always
// the worst row currently kept — the one to evict when a better
// candidate arrives, per spec.md §4.7.
type rowHeap struct {
	rows     []*tuple.Tuple
	orderBys []plan.OrderBy
	err      error
}

func (h *rowHeap) Len() int { return len(h.rows) }
func (h *rowHeap) Less(i, j int) bool {
	cmp, err := plan.CompareRows(h.orderBys, h.rows[i], h.rows[j])
	if err != nil {
		h.err = err
	}
	return cmp > 0 // max-heap: "greater" row sorts first
}
func (h *rowHeap) Swap(i, j int) { h.rows[i], h.rows[j] = h.rows[j], h.rows[i] }
func (h *rowHeap) Push(x any)    { h.rows = append(h.rows, x.(*tuple.Tuple)) }
func (h *rowHeap) Pop() any {
	n := len(h.rows)
	row := h.rows[n-1]
	h.rows = h.rows[:n-1]
	return row
}

// TopNExecutor keeps only the best N rows seen, using a bounded
// max-heap rather than a full sort.
type TopNExecutor struct {
	node  *plan.TopN
	child Executor
	rows  []*tuple.Tuple
	pos   int
}

func NewTopNExecutor(node *plan.TopN, child Executor) *TopNExecutor {
	return &TopNExecutor{node: node, child: child}
}

func (e *TopNExecutor) Schema() *tuple.Schema { return e.node.OutputSchema() }

func (e *TopNExecutor) Init() error {
	if err := e.child.Init(); err != nil {
		return err
	}

	h := &rowHeap{orderBys: e.node.OrderBys}
	for {
		row, _, ok, err := e.child.Next()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		if h.Len() < e.node.N {
			heap.Push(h, row)
		} else if h.Len() > 0 {
			cmp, cerr := plan.CompareRows(e.node.OrderBys, row, h.rows[0])
			if cerr != nil {
				return cerr
			}
			if cmp < 0 {
				heap.Pop(h)
				heap.Push(h, row)
			}
		}
		if h.err != nil {
			return h.err
		}
	}

	e.rows = make([]*tuple.Tuple, h.Len())
	for i := len(e.rows) - 1; i >= 0; i-- {
		e.rows[i] = heap.Pop(h).(*tuple.Tuple)
	}
	e.pos = 0
	return nil
}

func (e *TopNExecutor) Next() (*tuple.Tuple, tuple.RID, bool, error) {
	if e.pos >= len(e.rows) {
		return nil, tuple.RID{}, false, nil
	}
	row := e.rows[e.pos]
	e.pos++
	return row, tuple.RID{}, true, nil
}
