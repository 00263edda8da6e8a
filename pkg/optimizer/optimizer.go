// Package optimizer applies three plan rewrites bottom-up over a cloned
// tree: sequential scans with an equality predicate on an indexed
// column become index scans, a Limit over a Sort becomes a single
// bounded TopN, and nested-loop joins whose predicate is an AND of
// column=column equalities become hash joins.
//
// Grounded on storemy's pkg/optimizer/query_optimizer.go for the
// "visit plan tree, clone with optimized children" shape, replacing its
// cost-based join ordering (out of scope here) with these three literal
// rewrites.
package optimizer

import (
	"github.com/sirupsen/logrus"

	"github.com/n-orlov/coredb/pkg/catalog"
	"github.com/n-orlov/coredb/pkg/plan"
)

// Optimize clones n bottom-up, applying every rewrite to each node
// after its children have already been optimized. log receives a debug
// line for each rewrite that actually fires; pass nil to use the
// standard logger.
func Optimize(n plan.Node, cat *catalog.Catalog, log *logrus.Logger) plan.Node {
	if log == nil {
		log = logrus.StandardLogger()
	}

	children := n.Children()
	if len(children) > 0 {
		optimized := make([]plan.Node, len(children))
		for i, c := range children {
			optimized[i] = Optimize(c, cat, log)
		}
		n = plan.WithChildren(n, optimized)
	}

	n = rewriteSortLimitToTopN(n, log)
	n = rewriteSeqScanToIndexScan(n, cat, log)
	n = rewriteNestedLoopToHashJoin(n, log)
	return n
}

// rewriteSeqScanToIndexScan turns SeqScan(pred: col = const) into an
// IndexScan when an index exists whose single key attribute is col.
func rewriteSeqScanToIndexScan(n plan.Node, cat *catalog.Catalog, log *logrus.Logger) plan.Node {
	scan, ok := n.(*plan.SeqScan)
	if !ok {
		return n
	}
	eq, ok := scan.Predicate.(*plan.BinaryExpr)
	if !ok || eq.Op != plan.OpEq {
		return n
	}
	col, constExpr, ok := splitColumnConstEquality(eq)
	if !ok {
		return n
	}

	indexes, err := cat.GetTableIndexes(scan.Table.Name)
	if err != nil {
		return n
	}
	for _, idx := range indexes {
		if idx.KeyColumn == col.Name {
			log.WithFields(logrus.Fields{"table": scan.Table.Name, "column": col.Name}).
				Debug("optimizer: seq scan rewritten to index scan")
			return &plan.IndexScan{
				Table: scan.Table,
				Index: idx,
				Key:   constExpr,
			}
		}
	}
	return n
}

// splitColumnConstEquality reports whether eq is `column = constant` or
// `constant = column`, returning the column side and the constant side.
func splitColumnConstEquality(eq *plan.BinaryExpr) (*plan.ColumnRef, plan.Expr, bool) {
	if col, ok := eq.Left.(*plan.ColumnRef); ok {
		if _, ok := eq.Right.(*plan.Literal); ok {
			return col, eq.Right, true
		}
	}
	if col, ok := eq.Right.(*plan.ColumnRef); ok {
		if _, ok := eq.Left.(*plan.Literal); ok {
			return col, eq.Left, true
		}
	}
	return nil, nil, false
}

// rewriteSortLimitToTopN turns Limit(n, Sort(orderBys, child)) into
// TopN(child, orderBys, n).
func rewriteSortLimitToTopN(n plan.Node, log *logrus.Logger) plan.Node {
	limit, ok := n.(*plan.Limit)
	if !ok {
		return n
	}
	sortNode, ok := limit.Child.(*plan.Sort)
	if !ok {
		return n
	}
	log.WithField("n", limit.N).Debug("optimizer: sort+limit rewritten to top-n")
	return &plan.TopN{
		Child:    sortNode.Child,
		OrderBys: sortNode.OrderBys,
		N:        limit.N,
	}
}

// rewriteNestedLoopToHashJoin turns a NestedLoopJoin whose predicate is
// an AND-conjunction of column=column equalities, each comparing one
// left-side column to one right-side column, into a HashJoin.
func rewriteNestedLoopToHashJoin(n plan.Node, log *logrus.Logger) plan.Node {
	nlj, ok := n.(*plan.NestedLoopJoin)
	if !ok {
		return n
	}
	leftWidth := nlj.Left.OutputSchema().Len()
	var leftKeys, rightKeys []plan.Expr
	if !collectEqualityKeys(nlj.Predicate, leftWidth, &leftKeys, &rightKeys) {
		return n
	}
	if len(leftKeys) == 0 {
		return n
	}
	log.WithField("keys", len(leftKeys)).Debug("optimizer: nested loop join rewritten to hash join")
	return &plan.HashJoin{
		Left:      nlj.Left,
		Right:     nlj.Right,
		JoinType:  nlj.JoinType,
		LeftKeys:  leftKeys,
		RightKeys: rightKeys,
	}
}

// collectEqualityKeys walks a conjunction of AND nodes collecting
// column=column equalities, appending the left/right-side key
// expressions (rebased to the right child's own column indices).
// Returns false if any conjunct is not such an equality.
func collectEqualityKeys(e plan.Expr, leftWidth int, leftKeys, rightKeys *[]plan.Expr) bool {
	if e == nil {
		return false
	}
	b, ok := e.(*plan.BinaryExpr)
	if !ok {
		return false
	}
	if b.Op == plan.OpAnd {
		return collectEqualityKeys(b.Left, leftWidth, leftKeys, rightKeys) &&
			collectEqualityKeys(b.Right, leftWidth, leftKeys, rightKeys)
	}
	if b.Op != plan.OpEq {
		return false
	}
	lc, lok := b.Left.(*plan.ColumnRef)
	rc, rok := b.Right.(*plan.ColumnRef)
	if !lok || !rok {
		return false
	}
	switch {
	case lc.Index < leftWidth && rc.Index >= leftWidth:
		*leftKeys = append(*leftKeys, &plan.ColumnRef{Index: lc.Index, Name: lc.Name})
		*rightKeys = append(*rightKeys, &plan.ColumnRef{Index: rc.Index - leftWidth, Name: rc.Name})
	case rc.Index < leftWidth && lc.Index >= leftWidth:
		*leftKeys = append(*leftKeys, &plan.ColumnRef{Index: rc.Index, Name: rc.Name})
		*rightKeys = append(*rightKeys, &plan.ColumnRef{Index: lc.Index - leftWidth, Name: lc.Name})
	default:
		return false
	}
	return true
}
