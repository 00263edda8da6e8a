package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/n-orlov/coredb/pkg/catalog"
	"github.com/n-orlov/coredb/pkg/tuple"
	"github.com/n-orlov/coredb/pkg/types"
)

func testTableInfo() *catalog.TableInfo {
	return &catalog.TableInfo{
		OID:  0,
		Name: "t",
		Schema: tuple.NewSchema([]tuple.Column{
			{Name: "id", Kind: types.KindInteger},
		}),
	}
}

func TestWithChildrenReplacesSingleChild(t *testing.T) {
	leaf := &SeqScan{Table: testTableInfo()}
	limit := &Limit{Child: leaf, N: 5}
	replacement := &Filter{Child: leaf}

	updated := WithChildren(limit, []Node{replacement})
	lim, ok := updated.(*Limit)
	require.True(t, ok)
	assert.Same(t, replacement, lim.Child)
	// original untouched.
	assert.Same(t, leaf, limit.Child)
}

func TestWithChildrenReplacesJoinChildren(t *testing.T) {
	left := &SeqScan{Table: testTableInfo()}
	right := &SeqScan{Table: testTableInfo()}
	join := &NestedLoopJoin{Left: left, Right: right}

	newLeft := &Filter{Child: left}
	newRight := &Filter{Child: right}
	updated := WithChildren(join, []Node{newLeft, newRight})
	nlj := updated.(*NestedLoopJoin)
	assert.Same(t, newLeft, nlj.Left)
	assert.Same(t, newRight, nlj.Right)
}

func TestWithChildrenLeafReturnsItself(t *testing.T) {
	leaf := &SeqScan{Table: testTableInfo()}
	assert.Same(t, leaf, WithChildren(leaf, nil))
}

func TestNestedLoopJoinOutputSchemaConcatenates(t *testing.T) {
	left := &SeqScan{Table: testTableInfo()}
	right := &SeqScan{Table: testTableInfo()}
	join := &NestedLoopJoin{Left: left, Right: right}
	assert.Equal(t, 2, join.OutputSchema().Len())
}

func TestInsertOutputSchemaIsCountColumn(t *testing.T) {
	ins := &Insert{Table: testTableInfo()}
	schema := ins.OutputSchema()
	require.Equal(t, 1, schema.Len())
	assert.Equal(t, types.KindInteger, schema.Columns[0].Kind)
}

func TestChildrenReflectsStructure(t *testing.T) {
	leaf := &SeqScan{Table: testTableInfo()}
	filter := &Filter{Child: leaf}
	require.Len(t, filter.Children(), 1)
	assert.Same(t, leaf, filter.Children()[0])
	assert.Empty(t, leaf.Children())
}
