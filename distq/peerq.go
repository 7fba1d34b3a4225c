// Package distq implements the per-peer distributed queue: the message
// ordering engine described by the timestamp algebra, transaction, node
// and peer-queue component design. Every message delivered through a
// PeerQ, whether unicast or multicast and regardless of how many peers
// participate concurrently, is observed in a single total global order
// without any of the peers taking a global lock.
package distq

import (
	"sync"
	"sync/atomic"

	"github.com/google/btree"
	"github.com/jabolina/go-distq/internal/tsclock"
)

// PeerQ is the per-destination queue: a lock-free multi-producer intake
// plus receiver-local sorted structures. Its peek/pop/finalize side is
// single-consumer and must be serialized by the caller (normally the
// owning peer's outer lock); the intake side may be written concurrently
// by any number of senders.
type PeerQ struct {
	clock      tsclock.Timestamp
	local      int64
	nCommitted atomic.Int32

	intake atomic.Pointer[Node]
	busy   *Node

	ready      *btree.BTreeG[*Node]
	readyFirst *Node
	readyLast  *Node

	waitMu sync.Mutex
	waitCh chan struct{}

	recorder Recorder
}

// New returns an initialized, open PeerQ. recorder may be nil, in which
// case operations are silently not recorded.
func New(recorder Recorder) *PeerQ {
	if recorder == nil {
		recorder = NoopRecorder{}
	}
	pq := &PeerQ{
		busy:     tailSentinel,
		ready:    btree.NewG[*Node](32, nodeLess),
		waitCh:   make(chan struct{}),
		recorder: recorder,
	}
	pq.intake.Store(tailSentinel)
	return pq
}

// Clock returns the peer's current logical clock value.
func (pq *PeerQ) Clock() int64 {
	return pq.clock.Load()
}

// Local returns the last clock value this peer has synchronized to. Only
// meaningful to the single consumer serialized against Peek/Pop.
func (pq *PeerQ) Local() int64 {
	return pq.local
}

// Poll reports whether a subsequent Peek is guaranteed to return a node.
// The acquire read here pairs with the release increment in Node.Commit,
// so a true result implies the committing node's timestamp write is
// already visible to this goroutine.
func (pq *PeerQ) Poll() bool {
	return pq.nCommitted.Load() > 0
}

// Wait returns a channel that is closed the next time a node is
// committed to this peer (or, conservatively, whenever the wake primitive
// fires). Callers should re-check Poll after the channel closes, since
// the notification is a hint, not a guarantee of the queue's current
// state.
func (pq *PeerQ) Wait() <-chan struct{} {
	pq.waitMu.Lock()
	defer pq.waitMu.Unlock()
	return pq.waitCh
}

func (pq *PeerQ) wake() {
	pq.waitMu.Lock()
	old := pq.waitCh
	pq.waitCh = make(chan struct{})
	pq.waitMu.Unlock()
	close(old)
}

// Peek returns the globally-earliest settled node without removing it, or
// nil if none is ready yet. It lazily drains the intake, resolves
// ordering among as-yet-uncommitted nodes, and is safe to call repeatedly
// without side effects as long as the front of the queue does not change.
func (pq *PeerQ) Peek() *Node {
	if pq.intake.Load() == nil {
		// Finalized: every node has already been handed back by Finalize.
		return nil
	}

	first := pq.readyFirst
	if first == nil {
		pq.prefetch()
		first = pq.readyFirst
		if first == nil {
			return nil
		}
	}

	if first.timestamp >= pq.local {
		// The current head has not been synchronized against our local
		// clock yet: there may be busy entries that would eventually
		// order before it. Sync against the whole ready queue's tail so
		// the entire ready queue (not just the head) is settled.
		pq.sync(pq.readyLast.timestamp + 1)
		first = pq.readyFirst
	}

	pq.recorder.ReadyDepth(pq.ready.Len())
	return first
}

// Pop removes node from the queue. node must be the value most recently
// returned by Peek.
func (pq *PeerQ) Pop(node *Node) {
	popped := pq.popReadyHead()
	if popped != node {
		panic("distq: pop called with a node other than the peek result")
	}
	pq.nCommitted.Add(-1)
}

// Finalize is the one-shot terminal operation: it closes the intake
// (further Queue calls silently discard) and returns every node still
// held by this peer — across intake, busy and ready — as a single list
// linked through Node.nextQueue, terminated by tailSentinel, for the
// caller to bulk-release.
func (pq *PeerQ) Finalize() *Node {
	list := pq.intake.Swap(nil)
	if list == nil {
		// Already finalized.
		return tailSentinel
	}

	slot := &pq.busy
	for *slot != tailSentinel {
		slot = &(*slot).nextQueue
	}
	*slot = list
	list = pq.busy
	pq.busy = nil

	pq.ready.Ascend(func(n *Node) bool {
		n.inReady = false
		n.nextQueue = list
		list = n
		return true
	})
	pq.ready.Clear(false)
	pq.readyFirst = nil
	pq.readyLast = nil

	return list
}

func (pq *PeerQ) pushReady(n *Node) {
	pq.ready.ReplaceOrInsert(n)
	n.inReady = true
	if pq.readyFirst == nil || nodeLess(n, pq.readyFirst) {
		pq.readyFirst = n
	}
	if pq.readyLast == nil || nodeLess(pq.readyLast, n) {
		pq.readyLast = n
	}
}

func (pq *PeerQ) popReadyHead() *Node {
	n := pq.readyFirst
	if n == nil {
		return nil
	}

	if n == pq.readyLast {
		pq.readyFirst = nil
		pq.readyLast = nil
	} else {
		var next *Node
		first := true
		pq.ready.AscendGreaterOrEqual(n, func(item *Node) bool {
			if first {
				first = false
				return true
			}
			next = item
			return false
		})
		pq.readyFirst = next
	}

	pq.ready.Delete(n)
	n.inReady = false
	return n
}

// drainBusy is the two-pass walk shared by prefetch and sync: it scans the
// busy list, moving every node whose transaction has reached the
// requested state into the ready set, and in between the two passes
// splices in whatever arrived on intake meanwhile so nothing is missed.
func (pq *PeerQ) drainBusy(settle func(tx *Tx) (int64, bool)) {
	for pass := 0; pass < 2; pass++ {
		slot := &pq.busy
		for *slot != tailSentinel {
			n := *slot
			ts, committed := settle(n.tx)
			if committed {
				*slot = n.nextQueue
				n.nextQueue = nil
				if n.timestamp == 0 {
					n.timestamp = ts
				}
				pq.pushReady(n)
			} else {
				slot = &n.nextQueue
			}
		}

		if pass == 0 {
			*slot = pq.intake.Swap(tailSentinel)
		}
	}
}

func (pq *PeerQ) prefetch() {
	pq.drainBusy(func(tx *Tx) (int64, bool) {
		ts := tx.Timestamp()
		return ts, tsclock.Committed(ts)
	})
}

func (pq *PeerQ) sync(to int64) {
	if tsclock.Committed(to) || to <= pq.local {
		panic("distq: invalid sync target")
	}

	pq.local = to
	pq.clock.ForceSync(to)
	pq.recorder.ClockAdvanced(pq.clock.Load())

	pq.drainBusy(func(tx *Tx) (int64, bool) {
		ts := tx.timestamp.TrySync(to)
		return ts, tsclock.Committed(ts)
	})
}
