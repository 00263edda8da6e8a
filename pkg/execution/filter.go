package execution

import (
	"github.com/n-orlov/coredb/pkg/plan"
	"github.com/n-orlov/coredb/pkg/tuple"
)

// FilterExecutor drops child rows that don't satisfy Predicate.
type FilterExecutor struct {
	node  *plan.Filter
	child Executor
}

func NewFilterExecutor(node *plan.Filter, child Executor) *FilterExecutor {
	return &FilterExecutor{node: node, child: child}
}

func (e *FilterExecutor) Schema() *tuple.Schema { return e.node.OutputSchema() }

func (e *FilterExecutor) Init() error { return e.child.Init() }

func (e *FilterExecutor) Next() (*tuple.Tuple, tuple.RID, bool, error) {
	for {
		row, rid, ok, err := e.child.Next()
		if err != nil || !ok {
			return nil, tuple.RID{}, false, err
		}
		pass, err := plan.EvaluatePredicate(e.node.Predicate, row)
		if err != nil {
			return nil, tuple.RID{}, false, err
		}
		if pass {
			return row, rid, true, nil
		}
	}
}
