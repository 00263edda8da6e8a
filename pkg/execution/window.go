package execution

import (
	"sort"

	"github.com/n-orlov/coredb/pkg/plan"
	"github.com/n-orlov/coredb/pkg/tuple"
	"github.com/n-orlov/coredb/pkg/types"
)

// WindowExecutor sorts the child by the first window definition's
// order-by (if any) and computes one window column per WindowCols
// entry, over the whole input as a single partition — this rewrite
// keeps Window to that subset rather than expanding into PARTITION BY,
// per the scope decision recorded alongside the rest of this package.
// RANK assigns tied order-by keys the same rank, advancing by the size
// of the previous tied group; other window functions are whole-
// partition aggregates computed with the same combine rules as
// AggregationExecutor, repeated on every output row.
type WindowExecutor struct {
	node  *plan.Window
	child Executor
	rows  []*tuple.Tuple
	out   []*tuple.Tuple
	pos   int
}

func NewWindowExecutor(node *plan.Window, child Executor) *WindowExecutor {
	return &WindowExecutor{node: node, child: child}
}

func (e *WindowExecutor) Schema() *tuple.Schema { return e.node.OutputSchema() }

func (e *WindowExecutor) Init() error {
	if err := e.child.Init(); err != nil {
		return err
	}
	e.rows = nil
	for {
		row, _, ok, err := e.child.Next()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		e.rows = append(e.rows, row)
	}

	if len(e.node.OrderBy) > 0 {
		orderBy := e.node.OrderBy[:1]
		var sortErr error
		sort.SliceStable(e.rows, func(i, j int) bool {
			cmp, err := plan.CompareRows(orderBy, e.rows[i], e.rows[j])
			if err != nil {
				sortErr = err
			}
			return cmp < 0
		})
		if sortErr != nil {
			return sortErr
		}
	}

	ranks := e.computeRanks()

	aggTotals := make([][]types.Value, len(e.node.WindowCols))
	for i, wf := range e.node.WindowCols {
		if wf.Kind != plan.WinAggregate {
			continue
		}
		state := newAggState(1)
		aggs := []plan.AggregateExpr{wf.Aggregate}
		for _, row := range e.rows {
			if err := state.combine(aggs, row); err != nil {
				return err
			}
		}
		aggTotals[i] = state.values(aggs)
	}

	e.out = make([]*tuple.Tuple, len(e.rows))
	for r, row := range e.rows {
		vals := make([]types.Value, e.node.OutputSchema().Len())
		windowed := 0
		passthrough := 0
		windowSet := make(map[int]bool, len(e.node.WindowColPositions))
		for _, p := range e.node.WindowColPositions {
			windowSet[p] = true
		}
		for pos := range vals {
			if windowSet[pos] {
				wf := e.node.WindowCols[windowed]
				if wf.Kind == plan.WinRank {
					vals[pos] = types.NewInteger(int64(ranks[r]))
				} else {
					vals[pos] = aggTotals[windowed][0]
				}
				windowed++
				continue
			}
			colIdx := e.node.PassthroughIndices[passthrough]
			passthrough++
			v, err := (&plan.ColumnRef{Index: colIdx}).Evaluate(row)
			if err != nil {
				return err
			}
			vals[pos] = v
		}
		e.out[r] = tuple.NewTuple(vals)
	}
	e.pos = 0
	return nil
}

// computeRanks assigns each sorted row its RANK: ties on the order-by
// key share a rank, and rank advances by the size of the prior group.
func (e *WindowExecutor) computeRanks() []int {
	ranks := make([]int, len(e.rows))
	if len(e.rows) == 0 {
		return ranks
	}
	rank := 1
	groupStart := 0
	for i := range e.rows {
		if i > groupStart {
			var cmp int
			if len(e.node.OrderBy) > 0 {
				cmp, _ = plan.CompareRows(e.node.OrderBy[:1], e.rows[i], e.rows[groupStart])
			}
			if cmp != 0 {
				rank += i - groupStart
				groupStart = i
			}
		}
		ranks[i] = rank
	}
	return ranks
}

func (e *WindowExecutor) Next() (*tuple.Tuple, tuple.RID, bool, error) {
	if e.pos >= len(e.out) {
		return nil, tuple.RID{}, false, nil
	}
	row := e.out[e.pos]
	e.pos++
	return row, tuple.RID{}, true, nil
}
