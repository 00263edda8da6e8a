package execution

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/n-orlov/coredb/pkg/plan"
	"github.com/n-orlov/coredb/pkg/types"
)

func TestFilterExecutorDropsNonMatchingRows(t *testing.T) {
	child := newFakeExecutor(usersSchema(),
		row(types.NewInteger(1), types.NewString("a")),
		row(types.NewInteger(2), types.NewString("b")),
		row(types.NewInteger(3), types.NewString("c")),
	)
	pred := &plan.BinaryExpr{Op: plan.OpGt, Left: &plan.ColumnRef{Index: 0}, Right: &plan.Literal{Value: types.NewInteger(1)}}
	exec := NewFilterExecutor(&plan.Filter{Predicate: pred}, child)
	require.NoError(t, exec.Init())

	var ids []int64
	for {
		r, _, ok, err := exec.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		ids = append(ids, r.Values[0].AsInteger())
	}
	assert.Equal(t, []int64{2, 3}, ids)
}

func TestFilterExecutorNilPredicatePassesEverything(t *testing.T) {
	child := newFakeExecutor(usersSchema(), row(types.NewInteger(1), types.NewString("a")))
	exec := NewFilterExecutor(&plan.Filter{}, child)
	require.NoError(t, exec.Init())
	_, _, ok, err := exec.Next()
	require.NoError(t, err)
	assert.True(t, ok)
}
