package plan

import (
	"github.com/n-orlov/coredb/pkg/catalog"
	"github.com/n-orlov/coredb/pkg/tuple"
	"github.com/n-orlov/coredb/pkg/types"
)

// NodeKind tags which variant a Node is, for switch dispatch in the
// executor builder and the optimizer rewrites.
type NodeKind int

const (
	KindSeqScan NodeKind = iota
	KindIndexScan
	KindInsert
	KindDelete
	KindUpdate
	KindNestedLoopJoin
	KindHashJoin
	KindAggregation
	KindSort
	KindTopN
	KindWindow
	KindLimit
	KindFilter
)

// Node is any node of the plan tree: its kind, output schema, and
// children (for the optimizer's bottom-up clone-with-optimized-
// children walk).
type Node interface {
	Kind() NodeKind
	OutputSchema() *tuple.Schema
	Children() []Node
}

// SeqScan reads every slot of a table, reconstructing MVCC visibility
// and applying an optional pushdown predicate.
type SeqScan struct {
	Table     *catalog.TableInfo
	Predicate Expr
}

func (n *SeqScan) Kind() NodeKind             { return KindSeqScan }
func (n *SeqScan) OutputSchema() *tuple.Schema { return n.Table.Schema }
func (n *SeqScan) Children() []Node            { return nil }

// IndexScan probes an index for a constant key, then reads and filters
// the matching base tuples.
type IndexScan struct {
	Table     *catalog.TableInfo
	Index     *catalog.IndexInfo
	Key       Expr // constant expression evaluated once
	Predicate Expr
}

func (n *IndexScan) Kind() NodeKind             { return KindIndexScan }
func (n *IndexScan) OutputSchema() *tuple.Schema { return n.Table.Schema }
func (n *IndexScan) Children() []Node            { return nil }

// Insert writes every child row into the table heap and every index
// keyed on the table.
type Insert struct {
	Table   *catalog.TableInfo
	Indexes []*catalog.IndexInfo
	Child   Node
}

func (n *Insert) Kind() NodeKind             { return KindInsert }
func (n *Insert) OutputSchema() *tuple.Schema { return insertUpdateDeleteSchema }
func (n *Insert) Children() []Node            { return []Node{n.Child} }

// Delete marks every child-produced RID deleted under MVCC.
type Delete struct {
	Table   *catalog.TableInfo
	Indexes []*catalog.IndexInfo
	Child   Node
}

func (n *Delete) Kind() NodeKind             { return KindDelete }
func (n *Delete) OutputSchema() *tuple.Schema { return insertUpdateDeleteSchema }
func (n *Delete) Children() []Node            { return []Node{n.Child} }

// Update evaluates TargetExprs to build a replacement row for every
// child-produced tuple/RID, under MVCC.
type Update struct {
	Table       *catalog.TableInfo
	Indexes     []*catalog.IndexInfo
	Child       Node
	TargetExprs []Expr
}

func (n *Update) Kind() NodeKind             { return KindUpdate }
func (n *Update) OutputSchema() *tuple.Schema { return insertUpdateDeleteSchema }
func (n *Update) Children() []Node            { return []Node{n.Child} }

var insertUpdateDeleteSchema = tuple.NewSchema([]tuple.Column{{Name: "count", Kind: types.KindInteger}})

// NestedLoopJoin materializes every matching (left, right) pair by
// rescanning the right child for each left tuple.
type NestedLoopJoin struct {
	Left, Right Node
	JoinType    JoinType
	Predicate   Expr
}

func (n *NestedLoopJoin) Kind() NodeKind { return KindNestedLoopJoin }
func (n *NestedLoopJoin) OutputSchema() *tuple.Schema {
	return tuple.ConcatSchema(n.Left.OutputSchema(), n.Right.OutputSchema())
}
func (n *NestedLoopJoin) Children() []Node { return []Node{n.Left, n.Right} }

// HashJoin is an equi-join rewrite of NestedLoopJoin: LeftKeys[i] pairs
// with RightKeys[i].
type HashJoin struct {
	Left, Right         Node
	JoinType            JoinType
	LeftKeys, RightKeys []Expr
}

func (n *HashJoin) Kind() NodeKind { return KindHashJoin }
func (n *HashJoin) OutputSchema() *tuple.Schema {
	return tuple.ConcatSchema(n.Left.OutputSchema(), n.Right.OutputSchema())
}
func (n *HashJoin) Children() []Node { return []Node{n.Left, n.Right} }

// Aggregation groups the child's rows by GroupBys and computes
// Aggregates per group.
type Aggregation struct {
	Child      Node
	GroupBys   []Expr
	Aggregates []AggregateExpr
	Schema     *tuple.Schema
}

func (n *Aggregation) Kind() NodeKind             { return KindAggregation }
func (n *Aggregation) OutputSchema() *tuple.Schema { return n.Schema }
func (n *Aggregation) Children() []Node            { return []Node{n.Child} }

// Sort stable-sorts the child's rows by OrderBys.
type Sort struct {
	Child    Node
	OrderBys []OrderBy
}

func (n *Sort) Kind() NodeKind             { return KindSort }
func (n *Sort) OutputSchema() *tuple.Schema { return n.Child.OutputSchema() }
func (n *Sort) Children() []Node            { return []Node{n.Child} }

// TopN yields only the best N rows by OrderBys, without materializing
// a full sort.
type TopN struct {
	Child    Node
	OrderBys []OrderBy
	N        int
}

func (n *TopN) Kind() NodeKind             { return KindTopN }
func (n *TopN) OutputSchema() *tuple.Schema { return n.Child.OutputSchema() }
func (n *TopN) Children() []Node            { return []Node{n.Child} }

// WindowFuncKind names a supported window function.
type WindowFuncKind int

const (
	WinRank WindowFuncKind = iota
	WinAggregate
)

// WindowFunc is one output column computed per-partition over the
// window's order-by.
type WindowFunc struct {
	Kind      WindowFuncKind
	Aggregate AggregateExpr // used when Kind == WinAggregate
}

// Window computes WindowFuncs over the child sorted by OrderBy,
// emitting one output row per input row.
type Window struct {
	Child       Node
	OrderBy     []OrderBy
	WindowCols  []WindowFunc
	// PassthroughIndices names which child columns (by index) appear
	// verbatim in the output, interleaved with window columns at
	// WindowColPositions.
	PassthroughIndices []int
	WindowColPositions []int
	Schema             *tuple.Schema
}

func (n *Window) Kind() NodeKind             { return KindWindow }
func (n *Window) OutputSchema() *tuple.Schema { return n.Schema }
func (n *Window) Children() []Node            { return []Node{n.Child} }

// Limit caps the child to its first N rows.
type Limit struct {
	Child Node
	N     int
}

func (n *Limit) Kind() NodeKind             { return KindLimit }
func (n *Limit) OutputSchema() *tuple.Schema { return n.Child.OutputSchema() }
func (n *Limit) Children() []Node            { return []Node{n.Child} }

// Filter drops child rows that don't satisfy Predicate.
type Filter struct {
	Child     Node
	Predicate Expr
}

func (n *Filter) Kind() NodeKind             { return KindFilter }
func (n *Filter) OutputSchema() *tuple.Schema { return n.Child.OutputSchema() }
func (n *Filter) Children() []Node            { return []Node{n.Child} }

// WithChildren returns a shallow copy of n with its children replaced,
// used by the optimizer's bottom-up clone walk. Leaf nodes (scans)
// return themselves unchanged.
func WithChildren(n Node, children []Node) Node {
	switch v := n.(type) {
	case *SeqScan:
		return v
	case *IndexScan:
		return v
	case *Insert:
		cp := *v
		cp.Child = children[0]
		return &cp
	case *Delete:
		cp := *v
		cp.Child = children[0]
		return &cp
	case *Update:
		cp := *v
		cp.Child = children[0]
		return &cp
	case *NestedLoopJoin:
		cp := *v
		cp.Left, cp.Right = children[0], children[1]
		return &cp
	case *HashJoin:
		cp := *v
		cp.Left, cp.Right = children[0], children[1]
		return &cp
	case *Aggregation:
		cp := *v
		cp.Child = children[0]
		return &cp
	case *Sort:
		cp := *v
		cp.Child = children[0]
		return &cp
	case *TopN:
		cp := *v
		cp.Child = children[0]
		return &cp
	case *Window:
		cp := *v
		cp.Child = children[0]
		return &cp
	case *Limit:
		cp := *v
		cp.Child = children[0]
		return &cp
	case *Filter:
		cp := *v
		cp.Child = children[0]
		return &cp
	default:
		return n
	}
}
