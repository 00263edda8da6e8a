// Package plan defines the algebraic plan tree the executors pull
// tuples through and the optimizer rewrites into new trees: tagged node
// variants with child references and operator-specific payloads (spec's
// "Plan nodes (consumed)" external interface), plus the small
// expression language predicates and target lists are built from.
//
// Grounded on storemy's pkg/plan (operators.go's tagged-struct plan
// node shape) and pkg/execution's Predicate (field-index comparisons),
// generalized to a recursive expression tree since this engine's
// predicates and target expressions are not constant-operand-only.
package plan

import (
	"fmt"

	"github.com/n-orlov/coredb/pkg/tuple"
	"github.com/n-orlov/coredb/pkg/types"
)

// Expr is any node in the scalar expression tree: column references,
// literals, and operators over them. Evaluate takes a single tuple
// because every consumer (filters, join predicates, target lists)
// operates over one row at a time — for joins that row is already the
// concatenation of the left and right sides.
type Expr interface {
	Evaluate(t *tuple.Tuple) (types.Value, error)
	String() string
}

// ColumnRef reads the value at a fixed position of the input tuple.
type ColumnRef struct {
	Index int
	Name  string
}

func (c *ColumnRef) Evaluate(t *tuple.Tuple) (types.Value, error) {
	if c.Index < 0 || c.Index >= len(t.Values) {
		return types.Value{}, fmt.Errorf("plan: column index %d out of range (width %d)", c.Index, len(t.Values))
	}
	return t.Values[c.Index], nil
}

func (c *ColumnRef) String() string {
	if c.Name != "" {
		return c.Name
	}
	return fmt.Sprintf("$%d", c.Index)
}

// Literal is a constant value.
type Literal struct {
	Value types.Value
}

func (l *Literal) Evaluate(*tuple.Tuple) (types.Value, error) { return l.Value, nil }
func (l *Literal) String() string                              { return l.Value.String() }

// BinOp is a binary operator kind.
type BinOp int

const (
	OpEq BinOp = iota
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpAnd
	OpOr
	OpAdd
)

func (op BinOp) String() string {
	switch op {
	case OpEq:
		return "="
	case OpNe:
		return "<>"
	case OpLt:
		return "<"
	case OpLe:
		return "<="
	case OpGt:
		return ">"
	case OpGe:
		return ">="
	case OpAnd:
		return "AND"
	case OpOr:
		return "OR"
	case OpAdd:
		return "+"
	default:
		return "?"
	}
}

// BinaryExpr applies op to the evaluated left and right operands.
// Comparisons return NULL (rather than an error) when either side is
// NULL, matching SQL null propagation; AND/OR treat NULL as false and
// true respectively only where the other operand already decides the
// outcome, else propagate NULL.
type BinaryExpr struct {
	Op    BinOp
	Left  Expr
	Right Expr
}

func (b *BinaryExpr) String() string {
	return fmt.Sprintf("(%s %s %s)", b.Left.String(), b.Op.String(), b.Right.String())
}

func (b *BinaryExpr) Evaluate(t *tuple.Tuple) (types.Value, error) {
	lv, err := b.Left.Evaluate(t)
	if err != nil {
		return types.Value{}, err
	}
	rv, err := b.Right.Evaluate(t)
	if err != nil {
		return types.Value{}, err
	}

	switch b.Op {
	case OpAdd:
		return lv.Add(rv)
	case OpAnd:
		return evalAnd(lv, rv), nil
	case OpOr:
		return evalOr(lv, rv), nil
	case OpEq:
		if lv.IsNull() || rv.IsNull() {
			return types.NewNull(), nil
		}
		return types.NewBoolean(lv.Equals(rv)), nil
	case OpNe:
		if lv.IsNull() || rv.IsNull() {
			return types.NewNull(), nil
		}
		return types.NewBoolean(!lv.Equals(rv)), nil
	default:
		cmp, ok := lv.Compare(rv)
		if !ok {
			return types.NewNull(), nil
		}
		switch b.Op {
		case OpLt:
			return types.NewBoolean(cmp < 0), nil
		case OpLe:
			return types.NewBoolean(cmp <= 0), nil
		case OpGt:
			return types.NewBoolean(cmp > 0), nil
		case OpGe:
			return types.NewBoolean(cmp >= 0), nil
		}
	}
	return types.Value{}, fmt.Errorf("plan: unsupported binary operator %v", b.Op)
}

func evalAnd(l, r types.Value) types.Value {
	if !l.IsNull() && !l.AsBoolean() {
		return types.NewBoolean(false)
	}
	if !r.IsNull() && !r.AsBoolean() {
		return types.NewBoolean(false)
	}
	if l.IsNull() || r.IsNull() {
		return types.NewNull()
	}
	return types.NewBoolean(true)
}

func evalOr(l, r types.Value) types.Value {
	if !l.IsNull() && l.AsBoolean() {
		return types.NewBoolean(true)
	}
	if !r.IsNull() && r.AsBoolean() {
		return types.NewBoolean(true)
	}
	if l.IsNull() || r.IsNull() {
		return types.NewNull()
	}
	return types.NewBoolean(false)
}

// EvaluatePredicate evaluates expr and reports whether it is non-null
// and true — the test every filter, join predicate, and WHERE clause
// applies.
func EvaluatePredicate(expr Expr, t *tuple.Tuple) (bool, error) {
	if expr == nil {
		return true, nil
	}
	v, err := expr.Evaluate(t)
	if err != nil {
		return false, err
	}
	return !v.IsNull() && v.Kind() == types.KindBoolean && v.AsBoolean(), nil
}

// Direction is a sort direction; Default is equivalent to Asc.
type Direction int

const (
	Asc Direction = iota
	Desc
	Default
)

// OrderBy pairs a sort direction with the expression to sort by.
type OrderBy struct {
	Direction Direction
	Expr      Expr
}

// CompareRows applies an ordered list of OrderBy entries to two rows,
// walking the list until the first non-equal column decides, per
// spec.md §4.7 Sort.
func CompareRows(orderBys []OrderBy, a, b *tuple.Tuple) (int, error) {
	for _, ob := range orderBys {
		av, err := ob.Expr.Evaluate(a)
		if err != nil {
			return 0, err
		}
		bv, err := ob.Expr.Evaluate(b)
		if err != nil {
			return 0, err
		}
		cmp, ok := av.Compare(bv)
		if !ok {
			continue
		}
		if ob.Direction == Desc {
			cmp = -cmp
		}
		if cmp != 0 {
			return cmp, nil
		}
	}
	return 0, nil
}

// AggregateKind names a supported aggregate function.
type AggregateKind int

const (
	AggCountStar AggregateKind = iota
	AggCount
	AggSum
	AggMin
	AggMax
)

func (k AggregateKind) String() string {
	switch k {
	case AggCountStar:
		return "COUNT(*)"
	case AggCount:
		return "COUNT"
	case AggSum:
		return "SUM"
	case AggMin:
		return "MIN"
	case AggMax:
		return "MAX"
	default:
		return "?"
	}
}

// AggregateExpr names one aggregate column of a group-by: which
// function, applied to which input expression.
type AggregateExpr struct {
	Kind  AggregateKind
	Input Expr // nil for COUNT(*)
}

// JoinType selects the output shape of an unmatched left row.
type JoinType int

const (
	InnerJoin JoinType = iota
	LeftJoin
)
