package execution

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/n-orlov/coredb/pkg/plan"
	"github.com/n-orlov/coredb/pkg/types"
)

func TestNestedLoopJoinExecutorInnerJoinMatches(t *testing.T) {
	left := newFakeExecutor(usersSchema(),
		row(types.NewInteger(1), types.NewString("a")),
		row(types.NewInteger(2), types.NewString("b")),
	)
	right := newFakeExecutor(usersSchema(),
		row(types.NewInteger(2), types.NewString("x")),
		row(types.NewInteger(3), types.NewString("y")),
	)
	pred := &plan.BinaryExpr{Op: plan.OpEq, Left: &plan.ColumnRef{Index: 0}, Right: &plan.ColumnRef{Index: 2}}
	exec := NewNestedLoopJoinExecutor(&plan.NestedLoopJoin{Predicate: pred}, left, right)
	require.NoError(t, exec.Init())

	r, _, ok, err := exec.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(2), r.Values[0].AsInteger())
	assert.Equal(t, "x", r.Values[3].AsString())

	_, _, ok, err = exec.Next()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNestedLoopJoinExecutorLeftJoinPadsUnmatched(t *testing.T) {
	left := newFakeExecutor(usersSchema(), row(types.NewInteger(1), types.NewString("a")))
	right := newFakeExecutor(usersSchema(), row(types.NewInteger(99), types.NewString("z")))
	pred := &plan.BinaryExpr{Op: plan.OpEq, Left: &plan.ColumnRef{Index: 0}, Right: &plan.ColumnRef{Index: 2}}
	exec := NewNestedLoopJoinExecutor(&plan.NestedLoopJoin{Predicate: pred, JoinType: plan.LeftJoin}, left, right)
	require.NoError(t, exec.Init())

	r, _, ok, err := exec.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(1), r.Values[0].AsInteger())
	assert.True(t, r.Values[2].IsNull())
	assert.True(t, r.Values[3].IsNull())

	_, _, ok, err = exec.Next()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNestedLoopJoinExecutorInnerJoinDropsUnmatched(t *testing.T) {
	left := newFakeExecutor(usersSchema(), row(types.NewInteger(1), types.NewString("a")))
	right := newFakeExecutor(usersSchema(), row(types.NewInteger(99), types.NewString("z")))
	pred := &plan.BinaryExpr{Op: plan.OpEq, Left: &plan.ColumnRef{Index: 0}, Right: &plan.ColumnRef{Index: 2}}
	exec := NewNestedLoopJoinExecutor(&plan.NestedLoopJoin{Predicate: pred}, left, right)
	require.NoError(t, exec.Init())

	_, _, ok, err := exec.Next()
	require.NoError(t, err)
	assert.False(t, ok)
}
