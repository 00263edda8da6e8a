package execution

import (
	"github.com/n-orlov/coredb/pkg/plan"
	"github.com/n-orlov/coredb/pkg/tuple"
)

// LimitExecutor caps its child to the first N rows.
type LimitExecutor struct {
	node    *plan.Limit
	child   Executor
	emitted int
}

func NewLimitExecutor(node *plan.Limit, child Executor) *LimitExecutor {
	return &LimitExecutor{node: node, child: child}
}

func (e *LimitExecutor) Schema() *tuple.Schema { return e.node.OutputSchema() }

func (e *LimitExecutor) Init() error {
	e.emitted = 0
	return e.child.Init()
}

func (e *LimitExecutor) Next() (*tuple.Tuple, tuple.RID, bool, error) {
	if e.emitted >= e.node.N {
		return nil, tuple.RID{}, false, nil
	}
	row, rid, ok, err := e.child.Next()
	if err != nil || !ok {
		return nil, tuple.RID{}, false, err
	}
	e.emitted++
	return row, rid, true, nil
}
