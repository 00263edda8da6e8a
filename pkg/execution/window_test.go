package execution

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/n-orlov/coredb/pkg/plan"
	"github.com/n-orlov/coredb/pkg/tuple"
	"github.com/n-orlov/coredb/pkg/types"
)

func TestWindowExecutorRankHandlesTies(t *testing.T) {
	child := newFakeExecutor(ordersSchema(),
		row(types.NewString("a"), types.NewInteger(10)),
		row(types.NewString("b"), types.NewInteger(10)),
		row(types.NewString("c"), types.NewInteger(20)),
	)
	node := &plan.Window{
		OrderBy:            []plan.OrderBy{{Expr: &plan.ColumnRef{Index: 1}}},
		WindowCols:         []plan.WindowFunc{{Kind: plan.WinRank}},
		PassthroughIndices: []int{0, 1},
		WindowColPositions: []int{2},
		Schema: tuple.NewSchema([]tuple.Column{
			{Name: "category", Kind: types.KindString},
			{Name: "amount", Kind: types.KindInteger},
			{Name: "rnk", Kind: types.KindInteger},
		}),
	}
	exec := NewWindowExecutor(node, child)
	require.NoError(t, exec.Init())

	var ranks []int64
	for {
		r, _, ok, err := exec.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		ranks = append(ranks, r.Values[2].AsInteger())
	}
	// two rows tie for amount=10 (rank 1), the amount=20 row is rank 3.
	assert.Equal(t, []int64{1, 1, 3}, ranks)
}

func TestWindowExecutorAggregateRepeatsTotalOnEveryRow(t *testing.T) {
	child := newFakeExecutor(ordersSchema(),
		row(types.NewString("a"), types.NewInteger(5)),
		row(types.NewString("b"), types.NewInteger(7)),
	)
	node := &plan.Window{
		WindowCols: []plan.WindowFunc{{
			Kind:      plan.WinAggregate,
			Aggregate: plan.AggregateExpr{Kind: plan.AggSum, Input: &plan.ColumnRef{Index: 1}},
		}},
		PassthroughIndices: []int{0, 1},
		WindowColPositions: []int{2},
		Schema: tuple.NewSchema([]tuple.Column{
			{Name: "category", Kind: types.KindString},
			{Name: "amount", Kind: types.KindInteger},
			{Name: "total", Kind: types.KindInteger},
		}),
	}
	exec := NewWindowExecutor(node, child)
	require.NoError(t, exec.Init())

	for {
		r, _, ok, err := exec.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		assert.Equal(t, int64(12), r.Values[2].AsInteger())
	}
}
