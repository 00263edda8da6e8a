package execution

import (
	"github.com/n-orlov/coredb/pkg/plan"
	"github.com/n-orlov/coredb/pkg/tuple"
)

// NestedLoopJoinExecutor materializes the full join result in Init by
// rescanning the right child for every left tuple, per spec.md §4.7.
type NestedLoopJoinExecutor struct {
	node        *plan.NestedLoopJoin
	left, right Executor
	rows        []*tuple.Tuple
	pos         int
}

func NewNestedLoopJoinExecutor(node *plan.NestedLoopJoin, left, right Executor) *NestedLoopJoinExecutor {
	return &NestedLoopJoinExecutor{node: node, left: left, right: right}
}

func (e *NestedLoopJoinExecutor) Schema() *tuple.Schema { return e.node.OutputSchema() }

func (e *NestedLoopJoinExecutor) Init() error {
	e.rows = nil
	e.pos = 0

	if err := e.left.Init(); err != nil {
		return err
	}
	rightWidth := e.right.Schema().Len()

	for {
		lt, _, ok, err := e.left.Next()
		if err != nil {
			return err
		}
		if !ok {
			break
		}

		if err := e.right.Init(); err != nil {
			return err
		}
		matched := false
		for {
			rt, _, ok, err := e.right.Next()
			if err != nil {
				return err
			}
			if !ok {
				break
			}
			combined := tuple.Concat(lt, rt)
			pass, err := plan.EvaluatePredicate(e.node.Predicate, combined)
			if err != nil {
				return err
			}
			if pass {
				matched = true
				e.rows = append(e.rows, combined)
			}
		}
		if !matched && e.node.JoinType == plan.LeftJoin {
			e.rows = append(e.rows, tuple.Concat(lt, tuple.NullTuple(rightWidth)))
		}
	}
	return nil
}

func (e *NestedLoopJoinExecutor) Next() (*tuple.Tuple, tuple.RID, bool, error) {
	if e.pos >= len(e.rows) {
		return nil, tuple.RID{}, false, nil
	}
	row := e.rows[e.pos]
	e.pos++
	return row, tuple.RID{}, true, nil
}
