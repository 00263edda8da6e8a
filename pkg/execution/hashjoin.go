package execution

import (
	"fmt"

	"github.com/n-orlov/coredb/pkg/plan"
	"github.com/n-orlov/coredb/pkg/tuple"
)

// HashJoinExecutor implements an equi-join: Init builds a multimap from
// right-side key to right tuples, then probes it once per left tuple.
// Grounded on the original hash_join_executor.cpp's build-then-probe
// shape; the multimap is a plain map of slices for deterministic output
// order, keyed by the key tuple's HashBytes encoding.
type HashJoinExecutor struct {
	node        *plan.HashJoin
	left, right Executor
	build       map[string][]*tuple.Tuple
	leftRow     *tuple.Tuple
	matches     []*tuple.Tuple
	matchPos    int
	emittedAny  bool
	leftExhausted bool
	rightWidth  int
}

func NewHashJoinExecutor(node *plan.HashJoin, left, right Executor) (*HashJoinExecutor, error) {
	if node.JoinType != plan.InnerJoin && node.JoinType != plan.LeftJoin {
		return nil, &ErrUnsupported{What: fmt.Sprintf("hash join type %v", node.JoinType)}
	}
	return &HashJoinExecutor{node: node, left: left, right: right}, nil
}

func (e *HashJoinExecutor) Schema() *tuple.Schema { return e.node.OutputSchema() }

func (e *HashJoinExecutor) Init() error {
	if err := e.right.Init(); err != nil {
		return err
	}
	e.build = make(map[string][]*tuple.Tuple)
	e.rightWidth = e.right.Schema().Len()

	for {
		rt, _, ok, err := e.right.Next()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		key, err := keyString(e.node.RightKeys, rt)
		if err != nil {
			return err
		}
		e.build[key] = append(e.build[key], rt)
	}

	if err := e.left.Init(); err != nil {
		return err
	}
	e.leftExhausted = false
	e.matches = nil
	e.matchPos = 0
	return nil
}

func (e *HashJoinExecutor) Next() (*tuple.Tuple, tuple.RID, bool, error) {
	for {
		if e.matchPos < len(e.matches) {
			rt := e.matches[e.matchPos]
			e.matchPos++
			e.emittedAny = true
			return tuple.Concat(e.leftRow, rt), tuple.RID{}, true, nil
		}

		if !e.emittedAny && e.leftRow != nil && e.node.JoinType == plan.LeftJoin {
			row := tuple.Concat(e.leftRow, tuple.NullTuple(e.rightWidth))
			e.leftRow = nil
			return row, tuple.RID{}, true, nil
		}

		if e.leftExhausted {
			return nil, tuple.RID{}, false, nil
		}

		lt, _, ok, err := e.left.Next()
		if err != nil {
			return nil, tuple.RID{}, false, err
		}
		if !ok {
			e.leftExhausted = true
			continue
		}

		key, err := keyString(e.node.LeftKeys, lt)
		if err != nil {
			return nil, tuple.RID{}, false, err
		}
		e.leftRow = lt
		e.matches = e.build[key]
		e.matchPos = 0
		e.emittedAny = false
	}
}

func keyString(exprs []plan.Expr, t *tuple.Tuple) (string, error) {
	var buf []byte
	for _, expr := range exprs {
		v, err := expr.Evaluate(t)
		if err != nil {
			return "", err
		}
		buf = append(buf, v.HashBytes()...)
	}
	return string(buf), nil
}
