package txn

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/n-orlov/coredb/pkg/storage/heap"
	"github.com/n-orlov/coredb/pkg/tuple"
)

// Verifier is the serializable-isolation check the original spec keeps
// as an extension point while stating plainly that it always accepts;
// callers needing real serializability must supply their own.
type Verifier func(t *Transaction) bool

func defaultVerifier(*Transaction) bool { return true }

// Manager owns every live and recently-finished transaction, the
// version-chain head link for every RID ever written, the commit
// timestamp counter, and the watermark. Grounded on storemy's
// TransactionRegistry (map under one RWMutex, Begin/Get/Remove shape),
// extended with the commit-timestamp/watermark/undo-chain machinery
// the original transaction_manager.cpp adds on top of 2PL.
type Manager struct {
	commitMutex sync.Mutex // serializes Commit; see spec's latch order

	txnMapMu sync.RWMutex
	txnMap   map[uint64]*Transaction

	versionMu sync.Mutex
	versions  map[tuple.RID]UndoLink

	lastCommitTS atomic.Uint64
	nextTxnSeq   atomic.Uint64

	watermark *Watermark
	verify    Verifier
	log       *logrus.Logger
}

// NewManager constructs a manager with commit_ts_ = 0 and an accepting
// verify hook, as an injectable override point (SPEC_FULL.md's decision
// on the "verify always accepts" open question).
func NewManager(log *logrus.Logger) *Manager {
	if log == nil {
		log = logrus.New()
	}
	return &Manager{
		txnMap:    make(map[uint64]*Transaction),
		versions:  make(map[tuple.RID]UndoLink),
		watermark: NewWatermark(0),
		verify:    defaultVerifier,
		log:       log,
	}
}

// SetVerifier overrides the serializable-isolation check.
func (m *Manager) SetVerifier(v Verifier) { m.verify = v }

func (m *Manager) LastCommitTS() uint64 { return m.lastCommitTS.Load() }

func (m *Manager) Watermark() uint64 { return m.watermark.Value() }

// Begin assigns the next transaction id (from the reserved TxnStartID
// range), sets read_ts to the currently-observed last_commit_ts, and
// registers the transaction both in the map and with the watermark.
func (m *Manager) Begin(isolation IsolationLevel) *Transaction {
	m.txnMapMu.Lock()
	defer m.txnMapMu.Unlock()

	seq := m.nextTxnSeq.Add(1)
	id := TxnStartID + seq
	readTS := m.lastCommitTS.Load()
	t := newTransaction(id, isolation, readTS)
	m.txnMap[id] = t
	m.watermark.AddTxn(readTS)

	m.log.WithFields(logrus.Fields{"txn": id, "read_ts": readTS}).Debug("txn: begin")
	return t
}

// GetTransaction looks up a live or recently-finished transaction by id.
func (m *Manager) GetTransaction(id uint64) (*Transaction, bool) {
	m.txnMapMu.RLock()
	defer m.txnMapMu.RUnlock()
	t, ok := m.txnMap[id]
	return t, ok
}

// GetVersionLink returns the current undo-chain head for rid.
func (m *Manager) GetVersionLink(rid tuple.RID) (UndoLink, bool) {
	m.versionMu.Lock()
	defer m.versionMu.Unlock()
	link, ok := m.versions[rid]
	return link, ok
}

// SetVersionLink installs a new undo-chain head for rid.
func (m *Manager) SetVersionLink(rid tuple.RID, link UndoLink) {
	m.versionMu.Lock()
	m.versions[rid] = link
	m.versionMu.Unlock()
}

// Commit validates and finalizes t. On SERIALIZABLE isolation it first
// calls the verify hook; on failure it aborts t and returns false. On
// success every RID in the write set has its base tuple's timestamp
// rewritten to the fresh commit_ts (is_deleted preserved), commit_ts_
// advances, and the watermark is told to forget t's read_ts.
//
// resolveHeap resolves a table oid to the heap holding its tuples;
// the manager has no catalog dependency of its own.
func (m *Manager) Commit(t *Transaction, resolveHeap func(tableOID int) (*heap.TableHeap, error)) (bool, error) {
	m.commitMutex.Lock()
	defer m.commitMutex.Unlock()

	if t.State() != Running {
		return false, fmt.Errorf("txn: commit of transaction %d in state %s is not allowed", t.ID, t.State())
	}

	if t.Isolation == Serializable && !m.verify(t) {
		m.abortLocked(t)
		return false, nil
	}

	m.txnMapMu.Lock()
	defer m.txnMapMu.Unlock()

	newCommitTS := m.lastCommitTS.Load() + 1
	for tableOID, rids := range t.WriteSet {
		h, err := resolveHeap(tableOID)
		if err != nil {
			return false, fmt.Errorf("txn: commit: %w", err)
		}
		for _, rid := range rids {
			meta, err := h.GetTupleMeta(rid)
			if err != nil {
				return false, fmt.Errorf("txn: commit: reading meta for %s: %w", rid.String(), err)
			}
			meta.Timestamp = newCommitTS
			if err := h.UpdateTupleMeta(rid, meta); err != nil {
				return false, fmt.Errorf("txn: commit: stamping %s: %w", rid.String(), err)
			}
		}
	}

	m.lastCommitTS.Store(newCommitTS)
	t.CommitTS = newCommitTS
	t.setState(Committed)

	m.watermark.UpdateCommitTS(newCommitTS)
	m.watermark.RemoveTxn(t.ReadTS)

	m.log.WithFields(logrus.Fields{"txn": t.ID, "commit_ts": newCommitTS}).Debug("txn: commit")
	return true, nil
}

// Abort marks t ABORTED and removes it from the watermark. Its undo
// logs stay in place until GC reclaims them.
func (m *Manager) Abort(t *Transaction) error {
	m.txnMapMu.Lock()
	defer m.txnMapMu.Unlock()
	return m.abortLocked(t)
}

func (m *Manager) abortLocked(t *Transaction) error {
	state := t.State()
	if state != Running && state != Tainted {
		return fmt.Errorf("txn: abort of transaction %d in state %s is not allowed", t.ID, state)
	}
	t.setState(Aborted)
	m.watermark.RemoveTxn(t.ReadTS)
	m.log.WithField("txn", t.ID).Debug("txn: abort")
	return nil
}

// GarbageCollect drops every finished (COMMITTED/ABORTED) transaction
// every one of whose undo logs is invisible to all live transactions.
// An undo log is invisible once, walking a RID's version chain
// newest-to-oldest, a version with ts <= watermark has already been
// passed — everything older than that point can never be the version a
// new transaction needs to reconstruct.
func (m *Manager) GarbageCollect(getMeta func(rid tuple.RID) (tuple.Meta, error)) {
	watermark := m.watermark.Value()

	m.versionMu.Lock()
	heads := make(map[tuple.RID]UndoLink, len(m.versions))
	for rid, link := range m.versions {
		heads[rid] = link
	}
	m.versionMu.Unlock()

	m.txnMapMu.Lock()
	defer m.txnMapMu.Unlock()

	reachable := make(map[uint64]map[int]bool)
	markReachable := func(link UndoLink) {
		if !link.IsValid() {
			return
		}
		if reachable[link.TxnID] == nil {
			reachable[link.TxnID] = make(map[int]bool)
		}
		reachable[link.TxnID][link.LogIndex] = true
	}

	for rid, link := range heads {
		meta, err := getMeta(rid)
		if err != nil {
			continue
		}
		if meta.Timestamp <= watermark {
			// The base tuple itself is already visible to every live
			// reader; no undo log in this chain can still be needed.
			continue
		}
		cur := link
		for cur.IsValid() {
			t, ok := m.txnMap[cur.TxnID]
			if !ok {
				break
			}
			log := t.GetUndoLog(cur.LogIndex)
			markReachable(cur)
			if log.Timestamp <= watermark {
				// Boundary log: the oldest version a read_ts == watermark
				// reader could still need. Keep it, stop here.
				break
			}
			cur = log.Prev
		}
	}

	for id, t := range m.txnMap {
		state := t.State()
		if state != Committed && state != Aborted {
			continue
		}
		liveLogs := reachable[id]
		if len(liveLogs) > 0 {
			continue
		}
		delete(m.txnMap, id)
		m.log.WithField("txn", id).Debug("txn: gc reclaimed transaction")
	}
}
