package execution

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/n-orlov/coredb/pkg/plan"
	"github.com/n-orlov/coredb/pkg/types"
)

func TestLimitExecutorCapsOutput(t *testing.T) {
	child := newFakeExecutor(usersSchema(),
		row(types.NewInteger(1), types.NewString("a")),
		row(types.NewInteger(2), types.NewString("b")),
		row(types.NewInteger(3), types.NewString("c")),
	)
	exec := NewLimitExecutor(&plan.Limit{N: 2}, child)
	require.NoError(t, exec.Init())

	count := 0
	for {
		_, _, ok, err := exec.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		count++
	}
	assert.Equal(t, 2, count)
}

func TestLimitExecutorZeroYieldsNothing(t *testing.T) {
	child := newFakeExecutor(usersSchema(), row(types.NewInteger(1), types.NewString("a")))
	exec := NewLimitExecutor(&plan.Limit{N: 0}, child)
	require.NoError(t, exec.Init())
	_, _, ok, err := exec.Next()
	require.NoError(t, err)
	assert.False(t, ok)
}
