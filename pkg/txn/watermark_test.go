package txn

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWatermarkTracksMinimumLiveReadTS(t *testing.T) {
	w := NewWatermark(0)
	w.AddTxn(5)
	w.AddTxn(3)
	w.AddTxn(10)
	assert.Equal(t, uint64(3), w.Value())
}

func TestWatermarkFallsBackToCommitTSWhenEmpty(t *testing.T) {
	w := NewWatermark(0)
	w.AddTxn(5)
	w.UpdateCommitTS(7)
	w.RemoveTxn(5)
	assert.Equal(t, uint64(7), w.Value())
}

func TestWatermarkRemovingNonMinimumDoesNotAdvance(t *testing.T) {
	w := NewWatermark(0)
	w.AddTxn(3)
	w.AddTxn(8)
	w.RemoveTxn(8)
	assert.Equal(t, uint64(3), w.Value())
}

func TestWatermarkSharedReadTSRequiresBothRemoved(t *testing.T) {
	w := NewWatermark(0)
	w.AddTxn(3)
	w.AddTxn(3)
	w.RemoveTxn(3)
	assert.Equal(t, uint64(3), w.Value())
	w.RemoveTxn(3)
	assert.Equal(t, uint64(0), w.Value())
}
