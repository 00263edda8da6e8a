package txn

import (
	"github.com/n-orlov/coredb/pkg/tuple"
	"github.com/n-orlov/coredb/pkg/types"
)

// Reconstruct rebuilds the version of a tuple visible to a reader,
// given the current base tuple/meta and the chain of undo logs applied
// newest-to-oldest (as collected by CollectUndoLogs). Returns ok=false
// if the reconstructed state is a deletion.
func Reconstruct(schema *tuple.Schema, base *tuple.Tuple, baseMeta tuple.Meta, logs []UndoLog) (*tuple.Tuple, bool) {
	var values []types.Value
	deleted := baseMeta.IsDeleted
	if !deleted {
		values = base.Clone().Values
	}

	for _, log := range logs {
		if log.IsDeleted {
			values = nil
			deleted = true
			continue
		}
		if values == nil {
			values = make([]types.Value, len(schema.Columns))
			for i := range values {
				values[i] = types.NewNull()
			}
			deleted = false
		}
		partialIdx := 0
		for i, modified := range log.ModifiedFields {
			if modified {
				values[i] = log.PartialTuple.Values[partialIdx]
				partialIdx++
			}
		}
	}

	if deleted || values == nil {
		return nil, false
	}
	return tuple.NewTuple(values), true
}

// CollectUndoLogs walks rid's version chain from head while the log's
// timestamp is still newer than what readTS can see, stopping at the
// first version visible to readTS (or at chain's end). A transaction's
// own writes are always visible regardless of timestamp.
func CollectUndoLogs(m *Manager, rid tuple.RID, baseMeta tuple.Meta, readTS uint64, readerTxnID uint64) []UndoLog {
	if baseMeta.Timestamp == readerTxnID || baseMeta.Timestamp <= readTS {
		return nil
	}

	link, ok := m.GetVersionLink(rid)
	if !ok {
		return nil
	}

	var logs []UndoLog
	cur := link
	for cur.IsValid() {
		t, ok := m.GetTransaction(cur.TxnID)
		if !ok {
			break
		}
		log := t.GetUndoLog(cur.LogIndex)
		logs = append(logs, log)
		if log.Timestamp == readerTxnID || log.Timestamp <= readTS {
			break
		}
		cur = log.Prev
	}
	return logs
}

// IsVisible reports whether a base version stamped with meta.Timestamp
// is visible to a reader at readTS running as readerTxnID: either it is
// the reader's own uncommitted write, or it committed no later than
// readTS.
func IsVisible(meta tuple.Meta, readTS uint64, readerTxnID uint64) bool {
	if meta.Timestamp == readerTxnID {
		return true
	}
	return meta.Timestamp <= readTS
}
