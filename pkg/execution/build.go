package execution

import (
	"fmt"

	"github.com/n-orlov/coredb/pkg/plan"
)

// Build walks a plan.Node tree and instantiates the matching Executor,
// wiring children recursively. Called on the tree returned by
// optimizer.Optimize (or directly on an unoptimized tree), so it must
// handle every plan.NodeKind the optimizer can produce.
func Build(node plan.Node, ctx *Context) (Executor, error) {
	switch n := node.(type) {
	case *plan.SeqScan:
		return NewSeqScanExecutor(n, ctx), nil

	case *plan.IndexScan:
		return NewIndexScanExecutor(n), nil

	case *plan.Insert:
		child, err := Build(n.Child, ctx)
		if err != nil {
			return nil, err
		}
		return NewInsertExecutor(n, ctx, child), nil

	case *plan.Delete:
		child, err := Build(n.Child, ctx)
		if err != nil {
			return nil, err
		}
		return NewDeleteExecutor(n, ctx, child), nil

	case *plan.Update:
		child, err := Build(n.Child, ctx)
		if err != nil {
			return nil, err
		}
		return NewUpdateExecutor(n, ctx, child), nil

	case *plan.NestedLoopJoin:
		left, err := Build(n.Left, ctx)
		if err != nil {
			return nil, err
		}
		right, err := Build(n.Right, ctx)
		if err != nil {
			return nil, err
		}
		return NewNestedLoopJoinExecutor(n, left, right), nil

	case *plan.HashJoin:
		left, err := Build(n.Left, ctx)
		if err != nil {
			return nil, err
		}
		right, err := Build(n.Right, ctx)
		if err != nil {
			return nil, err
		}
		return NewHashJoinExecutor(n, left, right)

	case *plan.Aggregation:
		child, err := Build(n.Child, ctx)
		if err != nil {
			return nil, err
		}
		return NewAggregationExecutor(n, child), nil

	case *plan.Sort:
		child, err := Build(n.Child, ctx)
		if err != nil {
			return nil, err
		}
		return NewSortExecutor(n, child), nil

	case *plan.TopN:
		child, err := Build(n.Child, ctx)
		if err != nil {
			return nil, err
		}
		return NewTopNExecutor(n, child), nil

	case *plan.Window:
		child, err := Build(n.Child, ctx)
		if err != nil {
			return nil, err
		}
		return NewWindowExecutor(n, child), nil

	case *plan.Limit:
		child, err := Build(n.Child, ctx)
		if err != nil {
			return nil, err
		}
		return NewLimitExecutor(n, child), nil

	case *plan.Filter:
		child, err := Build(n.Child, ctx)
		if err != nil {
			return nil, err
		}
		return NewFilterExecutor(n, child), nil

	default:
		return nil, &ErrUnsupported{What: fmt.Sprintf("plan node %T", node)}
	}
}
