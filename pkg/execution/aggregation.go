package execution

import (
	"github.com/n-orlov/coredb/pkg/plan"
	"github.com/n-orlov/coredb/pkg/tuple"
	"github.com/n-orlov/coredb/pkg/types"
)

// aggState accumulates one group's running aggregate values, combined
// per spec.md §4.7: COUNT(*) starts at 0 and counts every row; the rest
// start NULL and ignore NULL inputs.
type aggState struct {
	countStar int64
	counts    []int64
	sums      []types.Value
	mins      []types.Value
	maxs      []types.Value
	haveSum   []bool
	haveMin   []bool
	haveMax   []bool
}

func newAggState(n int) *aggState {
	return &aggState{
		counts:  make([]int64, n),
		sums:    make([]types.Value, n),
		mins:    make([]types.Value, n),
		maxs:    make([]types.Value, n),
		haveSum: make([]bool, n),
		haveMin: make([]bool, n),
		haveMax: make([]bool, n),
	}
}

func (s *aggState) combine(aggs []plan.AggregateExpr, row *tuple.Tuple) error {
	s.countStar++
	for i, agg := range aggs {
		if agg.Kind == plan.AggCountStar || agg.Input == nil {
			continue
		}
		v, err := agg.Input.Evaluate(row)
		if err != nil {
			return err
		}
		if v.IsNull() {
			continue
		}
		switch agg.Kind {
		case plan.AggCount:
			s.counts[i]++
		case plan.AggSum:
			if !s.haveSum[i] {
				s.sums[i] = v
				s.haveSum[i] = true
			} else {
				sum, err := s.sums[i].Add(v)
				if err != nil {
					return err
				}
				s.sums[i] = sum
			}
		case plan.AggMin:
			if !s.haveMin[i] {
				s.mins[i] = v
				s.haveMin[i] = true
			} else if cmp, ok := v.Compare(s.mins[i]); ok && cmp < 0 {
				s.mins[i] = v
			}
		case plan.AggMax:
			if !s.haveMax[i] {
				s.maxs[i] = v
				s.haveMax[i] = true
			} else if cmp, ok := v.Compare(s.maxs[i]); ok && cmp > 0 {
				s.maxs[i] = v
			}
		}
	}
	return nil
}

func (s *aggState) values(aggs []plan.AggregateExpr) []types.Value {
	out := make([]types.Value, len(aggs))
	for i, agg := range aggs {
		switch agg.Kind {
		case plan.AggCountStar:
			out[i] = types.NewInteger(s.countStar)
		case plan.AggCount:
			out[i] = types.NewInteger(s.counts[i])
		case plan.AggSum:
			if s.haveSum[i] {
				out[i] = s.sums[i]
			} else {
				out[i] = types.NewNull()
			}
		case plan.AggMin:
			if s.haveMin[i] {
				out[i] = s.mins[i]
			} else {
				out[i] = types.NewNull()
			}
		case plan.AggMax:
			if s.haveMax[i] {
				out[i] = s.maxs[i]
			} else {
				out[i] = types.NewNull()
			}
		}
	}
	return out
}

// AggregationExecutor groups the child's rows by GroupBys and computes
// Aggregates per group, draining the child fully in Init.
type AggregationExecutor struct {
	node    *plan.Aggregation
	child   Executor
	order   []string
	groups  map[string][]types.Value
	states  map[string]*aggState
	pos     int
}

func NewAggregationExecutor(node *plan.Aggregation, child Executor) *AggregationExecutor {
	return &AggregationExecutor{node: node, child: child}
}

func (e *AggregationExecutor) Schema() *tuple.Schema { return e.node.OutputSchema() }

func (e *AggregationExecutor) Init() error {
	if err := e.child.Init(); err != nil {
		return err
	}
	e.order = nil
	e.groups = make(map[string][]types.Value)
	e.states = make(map[string]*aggState)
	e.pos = 0

	rowSeen := false
	for {
		row, _, ok, err := e.child.Next()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		rowSeen = true

		keyVals := make([]types.Value, len(e.node.GroupBys))
		var keyBuf []byte
		for i, expr := range e.node.GroupBys {
			v, err := expr.Evaluate(row)
			if err != nil {
				return err
			}
			keyVals[i] = v
			keyBuf = append(keyBuf, v.HashBytes()...)
		}
		key := string(keyBuf)

		state, exists := e.states[key]
		if !exists {
			state = newAggState(len(e.node.Aggregates))
			e.states[key] = state
			e.groups[key] = keyVals
			e.order = append(e.order, key)
		}
		if err := state.combine(e.node.Aggregates, row); err != nil {
			return err
		}
	}

	if !rowSeen && len(e.node.GroupBys) == 0 {
		state := newAggState(len(e.node.Aggregates))
		e.states[""] = state
		e.groups[""] = nil
		e.order = append(e.order, "")
	}
	return nil
}

func (e *AggregationExecutor) Next() (*tuple.Tuple, tuple.RID, bool, error) {
	if e.pos >= len(e.order) {
		return nil, tuple.RID{}, false, nil
	}
	key := e.order[e.pos]
	e.pos++

	vals := append([]types.Value{}, e.groups[key]...)
	vals = append(vals, e.states[key].values(e.node.Aggregates)...)
	return tuple.NewTuple(vals), tuple.RID{}, true, nil
}
