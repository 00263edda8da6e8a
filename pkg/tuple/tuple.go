// Package tuple defines the schema-typed value vectors the executors
// pass between operators, and the record identifier that locates a
// tuple's storage within a table heap page.
package tuple

import (
	"fmt"

	"github.com/n-orlov/coredb/pkg/types"
)

// Column describes one attribute of a schema: its name and value kind.
type Column struct {
	Name string
	Kind types.Kind
}

// Schema is an ordered, named list of columns. It is immutable once
// constructed; Project returns a new Schema rather than mutating.
type Schema struct {
	Columns []Column
}

func NewSchema(columns []Column) *Schema {
	return &Schema{Columns: columns}
}

func (s *Schema) Len() int { return len(s.Columns) }

// IndexOf returns the position of a column by name, or -1.
func (s *Schema) IndexOf(name string) int {
	for i, c := range s.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Project returns a new Schema containing only the named columns, in
// the order requested.
func (s *Schema) Project(names ...string) (*Schema, error) {
	cols := make([]Column, 0, len(names))
	for _, n := range names {
		idx := s.IndexOf(n)
		if idx < 0 {
			return nil, fmt.Errorf("tuple: no column %q in schema", n)
		}
		cols = append(cols, s.Columns[idx])
	}
	return NewSchema(cols), nil
}

// ConcatSchema returns a new Schema that is the concatenation of two schemas,
// used to build the output shape of joins.
func ConcatSchema(left, right *Schema) *Schema {
	cols := make([]Column, 0, len(left.Columns)+len(right.Columns))
	cols = append(cols, left.Columns...)
	cols = append(cols, right.Columns...)
	return NewSchema(cols)
}

// Meta carries the MVCC metadata attached to a tuple's base storage:
// the timestamp at which this version was written (either a real commit
// timestamp, or the id of the in-flight transaction that wrote it, which
// is at least TXN_START_ID), and whether
// this version represents a deletion.
type Meta struct {
	Timestamp  uint64
	IsDeleted  bool
}

// Tuple is a schema-typed value vector. It carries no metadata itself;
// metadata lives alongside it in the table heap (see storage/heap) and
// is threaded through executors as a separate Meta value.
type Tuple struct {
	Values []types.Value
}

func NewTuple(values []types.Value) *Tuple {
	return &Tuple{Values: values}
}

// NullTuple returns a tuple of the given width with every column NULL,
// used by outer joins to pad unmatched rows.
func NullTuple(width int) *Tuple {
	vals := make([]types.Value, width)
	for i := range vals {
		vals[i] = types.NewNull()
	}
	return &Tuple{Values: vals}
}

func (t *Tuple) Width() int { return len(t.Values) }

// Concat returns a new tuple that is the value-wise concatenation of
// two tuples (used by joins to build the combined output row).
func Concat(left, right *Tuple) *Tuple {
	vals := make([]types.Value, 0, len(left.Values)+len(right.Values))
	vals = append(vals, left.Values...)
	vals = append(vals, right.Values...)
	return &Tuple{Values: vals}
}

// Project returns a new tuple containing only the values at the given
// column indices, in order.
func (t *Tuple) Project(indices []int) *Tuple {
	vals := make([]types.Value, len(indices))
	for i, idx := range indices {
		vals[i] = t.Values[idx]
	}
	return &Tuple{Values: vals}
}

// Clone returns a value-wise independent copy of t.
func (t *Tuple) Clone() *Tuple {
	vals := make([]types.Value, len(t.Values))
	copy(vals, t.Values)
	return &Tuple{Values: vals}
}
