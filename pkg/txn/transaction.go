// Package txn implements timestamp-ordered snapshot isolation: per-tuple
// undo chains, a watermark tracking the oldest read still in flight, and
// the garbage collector that reclaims undo logs no live transaction can
// still reach.
//
// Grounded on storemy's pkg/concurrency/transaction (registry keyed by
// id under one RWMutex, explicit state machine) generalized from
// storemy's lock-based 2PL model to the timestamp-ordered MVCC model
// the original transaction_manager.cpp/watermark.cpp implement.
package txn

import (
	"fmt"
	"sync"

	"github.com/n-orlov/coredb/pkg/tuple"
)

// TxnStartID is the base of the reserved id range used for in-flight
// transactions: transaction ids are TxnStartID plus a sequence number,
// so a tuple timestamp >= TxnStartID unambiguously names an uncommitted
// write by the transaction whose ID equals ts, never a real commit
// timestamp.
const TxnStartID = uint64(1) << 62

// State is a transaction's position in its lifecycle.
type State int

const (
	Running State = iota
	Tainted
	Committed
	Aborted
)

func (s State) String() string {
	switch s {
	case Running:
		return "RUNNING"
	case Tainted:
		return "TAINTED"
	case Committed:
		return "COMMITTED"
	case Aborted:
		return "ABORTED"
	default:
		return "UNKNOWN"
	}
}

// IsolationLevel selects the conflict-checking strength applied at
// Commit. Only SnapshotIsolation is actually enforced; Serializable
// calls the verify hook, which per spec always accepts.
type IsolationLevel int

const (
	SnapshotIsolation IsolationLevel = iota
	Serializable
)

// UndoLog captures one prior version of a tuple: the columns that were
// overwritten since, their pre-images, and a link to the version before
// that. Belongs to exactly one transaction and is append-only.
type UndoLog struct {
	IsDeleted      bool
	ModifiedFields []bool
	PartialTuple   *tuple.Tuple
	Timestamp      uint64
	Prev           UndoLink
}

// UndoLink addresses one entry in a transaction's undo log vector.
// InvalidUndoLink terminates a version chain.
type UndoLink struct {
	TxnID    uint64
	LogIndex int
}

var InvalidUndoLink = UndoLink{TxnID: 0, LogIndex: -1}

func (l UndoLink) IsValid() bool { return l.LogIndex >= 0 }

// ConflictError is raised when a transaction tries to write a tuple a
// newer committed transaction already modified.
type ConflictError struct {
	RID tuple.RID
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("txn: write-write conflict on %s", e.RID.String())
}

// TaintedError is raised when an operation is attempted on a
// transaction already poisoned by a conflict.
type TaintedError struct {
	TxnID uint64
}

func (e *TaintedError) Error() string {
	return fmt.Sprintf("txn: transaction %d is tainted, only abort is legal", e.TxnID)
}

// Transaction is one unit of work: its identity, isolation level,
// timestamps, state, its own append-only undo log vector, and the set
// of RIDs it has written (by table).
type Transaction struct {
	mu        sync.Mutex
	ID        uint64
	Isolation IsolationLevel
	ReadTS    uint64
	CommitTS  uint64
	state     State
	UndoLogs  []UndoLog
	WriteSet  map[int][]tuple.RID // table oid -> written RIDs
}

func newTransaction(id uint64, isolation IsolationLevel, readTS uint64) *Transaction {
	return &Transaction{
		ID:        id,
		Isolation: isolation,
		ReadTS:    readTS,
		WriteSet:  make(map[int][]tuple.RID),
	}
}

func (t *Transaction) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *Transaction) setState(s State) {
	t.mu.Lock()
	t.state = s
	t.mu.Unlock()
}

// Taint marks t TAINTED after a write-write conflict; only Abort is
// legal on it afterward.
func (t *Transaction) Taint() { t.setState(Tainted) }

// AppendUndoLog records a new undo log entry and returns a link to it.
func (t *Transaction) AppendUndoLog(log UndoLog) UndoLink {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.UndoLogs = append(t.UndoLogs, log)
	return UndoLink{TxnID: t.ID, LogIndex: len(t.UndoLogs) - 1}
}

// GetUndoLog returns the log at index i.
func (t *Transaction) GetUndoLog(i int) UndoLog {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.UndoLogs[i]
}

// ReplaceUndoLog overwrites the log at index i, used to "cover" a prior
// log with a merged modified-field set on a repeated update.
func (t *Transaction) ReplaceUndoLog(i int, log UndoLog) {
	t.mu.Lock()
	t.UndoLogs[i] = log
	t.mu.Unlock()
}

// RecordWrite adds rid to the write set for table.
func (t *Transaction) RecordWrite(table int, rid tuple.RID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, existing := range t.WriteSet[table] {
		if existing == rid {
			return
		}
	}
	t.WriteSet[table] = append(t.WriteSet[table], rid)
}
