// Package execution implements the pull-based "volcano" executors: one
// type per plan.Node variant, each composing its children by owned
// reference and exposing Init/Next.
//
// Grounded on storemy's pkg/execution.BaseIterator (opened flag,
// lookahead caching) for the iteration shape, generalized from its
// single-tuple Next() to the (tuple, rid, ok) triple spec.md §4.7
// requires so MVCC executors can report which RID produced a row.
package execution

import (
	"fmt"

	"github.com/n-orlov/coredb/pkg/tuple"
	"github.com/n-orlov/coredb/pkg/txn"
)

// Executor is the pull interface every operator implements: Init
// resets iteration state, Next yields one row at a time and reports
// ok=false once exhausted.
type Executor interface {
	Init() error
	Next() (t *tuple.Tuple, rid tuple.RID, ok bool, err error)
	Schema() *tuple.Schema
}

// Context carries the transaction and transaction manager every
// MVCC-aware executor needs: whose write set to record into, which
// read_ts bounds visibility, and how to reach undo chains.
type Context struct {
	Txn     *txn.Transaction
	Manager *txn.Manager
}

func (c *Context) readerTxnID() uint64 { return c.Txn.ID }
func (c *Context) readTS() uint64      { return c.Txn.ReadTS }

// ErrUnsupported is raised at plan construction for unimplemented join
// types or other not-yet-supported feature combinations.
type ErrUnsupported struct {
	What string
}

func (e *ErrUnsupported) Error() string { return fmt.Sprintf("execution: unsupported: %s", e.What) }
