package execution

import (
	"github.com/n-orlov/coredb/pkg/catalog"
	"github.com/n-orlov/coredb/pkg/tuple"
	"github.com/n-orlov/coredb/pkg/types"
)

// countTuple builds the single-column result row Insert/Delete/Update
// emit.
func countTuple(n int64) *tuple.Tuple {
	return tuple.NewTuple([]types.Value{types.NewInteger(n)})
}

// indexKey projects t down to the single column idx is keyed on.
func indexKey(idx *catalog.IndexInfo, t *tuple.Tuple, schema *tuple.Schema) (tuple.Tuple, error) {
	col := schema.IndexOf(idx.KeyColumn)
	if col < 0 {
		return tuple.Tuple{}, nil
	}
	return tuple.Tuple{Values: []types.Value{t.Values[col]}}, nil
}
