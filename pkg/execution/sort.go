package execution

import (
	"sort"

	"github.com/n-orlov/coredb/pkg/plan"
	"github.com/n-orlov/coredb/pkg/tuple"
)

// SortExecutor materializes the child and stable-sorts it by OrderBys,
// per spec.md §4.7.
type SortExecutor struct {
	node  *plan.Sort
	child Executor
	rows  []*tuple.Tuple
	pos   int
}

func NewSortExecutor(node *plan.Sort, child Executor) *SortExecutor {
	return &SortExecutor{node: node, child: child}
}

func (e *SortExecutor) Schema() *tuple.Schema { return e.node.OutputSchema() }

func (e *SortExecutor) Init() error {
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

	var sortErr error
	sort.SliceStable(e.rows, func(i, j int) bool {
		cmp, err := plan.CompareRows(e.node.OrderBys, e.rows[i], e.rows[j])
		if err != nil {
			sortErr = err
		}
		return cmp < 0
	})
	e.pos = 0
	return sortErr
}

func (e *SortExecutor) Next() (*tuple.Tuple, tuple.RID, bool, error) {
	if e.pos >= len(e.rows) {
		return nil, tuple.RID{}, false, nil
	}
	row := e.rows[e.pos]
	e.pos++
	return row, tuple.RID{}, true, nil
}
