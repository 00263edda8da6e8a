package execution

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/n-orlov/coredb/pkg/plan"
	"github.com/n-orlov/coredb/pkg/tuple"
	"github.com/n-orlov/coredb/pkg/types"
)

// ordersSchema pairs a grouping column ("category") with an amount to
// aggregate, wider than usersSchema so group-by tests aren't confused
// with the id/name shape other executor tests reuse.
func ordersSchema() *tuple.Schema {
	return tuple.NewSchema([]tuple.Column{
		{Name: "category", Kind: types.KindString},
		{Name: "amount", Kind: types.KindInteger},
	})
}

func TestAggregationExecutorGroupsAndSums(t *testing.T) {
	child := newFakeExecutor(ordersSchema(),
		row(types.NewString("a"), types.NewInteger(10)),
		row(types.NewString("b"), types.NewInteger(5)),
		row(types.NewString("a"), types.NewInteger(7)),
	)
	node := &plan.Aggregation{
		GroupBys:   []plan.Expr{&plan.ColumnRef{Index: 0}},
		Aggregates: []plan.AggregateExpr{{Kind: plan.AggSum, Input: &plan.ColumnRef{Index: 1}}},
		Schema: tuple.NewSchema([]tuple.Column{
			{Name: "category", Kind: types.KindString},
			{Name: "sum", Kind: types.KindInteger},
		}),
	}
	exec := NewAggregationExecutor(node, child)
	require.NoError(t, exec.Init())

	got := map[string]int64{}
	for {
		r, _, ok, err := exec.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		got[r.Values[0].AsString()] = r.Values[1].AsInteger()
	}
	assert.Equal(t, map[string]int64{"a": 17, "b": 5}, got)
}

func TestAggregationExecutorCountStarOnEmptyInputYieldsZeroRow(t *testing.T) {
	child := newFakeExecutor(ordersSchema())
	node := &plan.Aggregation{
		Aggregates: []plan.AggregateExpr{{Kind: plan.AggCountStar}},
		Schema:     tuple.NewSchema([]tuple.Column{{Name: "count", Kind: types.KindInteger}}),
	}
	exec := NewAggregationExecutor(node, child)
	require.NoError(t, exec.Init())

	r, _, ok, err := exec.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(0), r.Values[0].AsInteger())

	_, _, ok, err = exec.Next()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAggregationExecutorIgnoresNullsExceptCountStar(t *testing.T) {
	child := newFakeExecutor(ordersSchema(),
		row(types.NewString("a"), types.NewNull()),
		row(types.NewString("a"), types.NewInteger(3)),
	)
	node := &plan.Aggregation{
		GroupBys: []plan.Expr{&plan.ColumnRef{Index: 0}},
		Aggregates: []plan.AggregateExpr{
			{Kind: plan.AggCountStar},
			{Kind: plan.AggCount, Input: &plan.ColumnRef{Index: 1}},
			{Kind: plan.AggMin, Input: &plan.ColumnRef{Index: 1}},
			{Kind: plan.AggMax, Input: &plan.ColumnRef{Index: 1}},
		},
		Schema: tuple.NewSchema([]tuple.Column{
			{Name: "category", Kind: types.KindString},
			{Name: "count_star", Kind: types.KindInteger},
			{Name: "count", Kind: types.KindInteger},
			{Name: "min", Kind: types.KindInteger},
			{Name: "max", Kind: types.KindInteger},
		}),
	}
	exec := NewAggregationExecutor(node, child)
	require.NoError(t, exec.Init())

	r, _, ok, err := exec.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(2), r.Values[1].AsInteger())
	assert.Equal(t, int64(1), r.Values[2].AsInteger())
	assert.Equal(t, int64(3), r.Values[3].AsInteger())
	assert.Equal(t, int64(3), r.Values[4].AsInteger())
}
