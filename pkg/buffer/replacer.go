// Package buffer implements the fixed-size page cache: the LRU-K
// replacer, the buffer pool manager, and RAII-style page guards.
//
// Grounded on storemy's pkg/memory (LRUPageCache's doubly-linked-list
// arena and PageStore's evict-then-fetch shape), generalized from plain
// LRU to the k-distance policy spec.md §4.3 requires, and on the
// "cyclic ownership" design note in spec.md §9 (arena keyed by frame id
// with index-based links instead of owning pointers).
package buffer

import (
	"fmt"
	"sync"
)

const historyCap = 32 // guards against unbounded growth if K is set very large

type FrameID int

type lruKNode struct {
	frameID   FrameID
	history   []int64 // most-recent-last, trimmed to last K
	evictable bool
}

// LRUKReplacer tracks eviction candidates among the buffer pool's
// frames. A frame only participates once it has been recorded via
// RecordAccess. Evictability is a separate, explicit flag: the buffer
// pool sets it only once a frame's pin count reaches zero.
type LRUKReplacer struct {
	mu       sync.Mutex
	k        int
	clock    int64
	nodes    map[FrameID]*lruKNode
	currSize int // count of evictable frames
}

func NewLRUKReplacer(k int) *LRUKReplacer {
	return &LRUKReplacer{k: k, nodes: make(map[FrameID]*lruKNode)}
}

// RecordAccess appends the current timestamp to frame's history,
// trimmed to the last K accesses, creating the node if this is its
// first ever access.
func (r *LRUKReplacer) RecordAccess(frame FrameID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.clock++
	n, ok := r.nodes[frame]
	if !ok {
		n = &lruKNode{frameID: frame}
		r.nodes[frame] = n
	}
	n.history = append(n.history, r.clock)
	if len(n.history) > r.k {
		n.history = n.history[len(n.history)-r.k:]
	} else if len(n.history) > historyCap {
		n.history = n.history[len(n.history)-historyCap:]
	}
}

// SetEvictable marks frame as (non-)evictable, adjusting the count of
// evictable frames used by Evict's "nothing to evict" check. Frames
// that have never been accessed are ignored (no-op), matching the
// original replacer's tolerant behavior for frames outside its domain.
func (r *LRUKReplacer) SetEvictable(frame FrameID, evictable bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, ok := r.nodes[frame]
	if !ok {
		return
	}
	if n.evictable == evictable {
		return
	}
	n.evictable = evictable
	if evictable {
		r.currSize++
	} else {
		r.currSize--
	}
}

// Evict selects the evictable frame with the largest backward
// k-distance (treating fewer-than-K accesses as +infinity, broken by
// earliest single access time), removes it from tracking, and returns
// it. Fails if no frame is currently evictable.
func (r *LRUKReplacer) Evict() (FrameID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.currSize == 0 {
		return 0, false
	}

	var (
		victim     FrameID
		found      bool
		bestInf    bool  // best-so-far has fewer than K accesses
		bestOldest int64 // for +inf candidates: earliest access time
		bestKDist  int64 // for full-history candidates: k-distance
	)

	for id, n := range r.nodes {
		if !n.evictable {
			continue
		}
		isInf := len(n.history) < r.k
		oldest := n.history[0]

		if !found {
			victim, found = id, true
			bestInf = isInf
			if isInf {
				bestOldest = oldest
			} else {
				bestKDist = r.clock - n.history[0] + 1
			}
			continue
		}

		if isInf && !bestInf {
			victim, bestInf, bestOldest = id, true, oldest
			continue
		}
		if !isInf && bestInf {
			continue
		}
		if isInf && bestInf {
			if oldest < bestOldest {
				victim, bestOldest = id, oldest
			}
			continue
		}
		// both have full history: larger k-distance wins; tie-break by
		// earlier single (oldest) access timestamp.
		kd := r.clock - n.history[0] + 1
		if kd > bestKDist || (kd == bestKDist && oldest < bestOldest) {
			victim, bestKDist, bestOldest = id, kd, oldest
		}
	}

	if !found {
		return 0, false
	}
	r.removeLocked(victim)
	return victim, true
}

// Remove drops a frame from tracking entirely. Fails (no-op) if the
// frame is currently non-evictable, matching spec.md §4.3.
func (r *LRUKReplacer) Remove(frame FrameID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, ok := r.nodes[frame]
	if !ok {
		return nil
	}
	if !n.evictable {
		return fmt.Errorf("buffer: cannot remove non-evictable frame %d", frame)
	}
	r.removeLocked(frame)
	return nil
}

func (r *LRUKReplacer) removeLocked(frame FrameID) {
	if n, ok := r.nodes[frame]; ok {
		if n.evictable {
			r.currSize--
		}
		delete(r.nodes, frame)
	}
}

func (r *LRUKReplacer) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.currSize
}
