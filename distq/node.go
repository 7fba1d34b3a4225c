package distq

import "sync/atomic"

// Node is one deliverable entry to one destination peer. It carries a
// back-reference to its Tx, a cached per-receiver timestamp, and the
// linkage used for intake/busy-list membership and ready-set ordering.
//
// A node is queued (linked via nextQueue) xor ready (a member of its
// destination's ready set) xor finalized (neither). While queued or ready
// it holds exactly one reference on its Tx.
type Node struct {
	nRefs int32

	// Userdata tags which message variant embeds this node, so the
	// caller's ref/unref dispatch can walk back to the owning record once
	// the node's last reference drops. The ordering engine itself never
	// interprets this value.
	Userdata uint8

	// owner is the caller-supplied value standing in for container_of: Go
	// has no portable way to recover the enclosing struct from a pointer
	// to one of its fields, so whoever embeds a Node stores a back
	// reference here instead. The ordering engine never interprets it.
	owner any

	// timestamp is the receiver-local cached commit timestamp. It is
	// only ever touched by the single consumer serialized under the
	// destination peer's outer lock, so it needs no atomics.
	timestamp int64

	tx        *Tx
	nextQueue *Node
	inReady   bool
}

// NewNode returns an unclaimed node tagged with the given variant marker.
func NewNode(userdata uint8) *Node {
	return &Node{Userdata: userdata}
}

// SetOwner records the value the caller wants back from Owner once this
// node is observed through Peek/Pop.
func (n *Node) SetOwner(owner any) {
	n.owner = owner
}

// Owner returns whatever was last passed to SetOwner.
func (n *Node) Owner() any {
	return n.owner
}

// Claim moves the node's reference count from 0 to 1, before it is handed
// to a PeerQ.
func (n *Node) Claim() {
	if !atomic.CompareAndSwapInt32(&n.nRefs, 0, 1) {
		panic("distq: node claimed more than once")
	}
}

// IncRef adds one reference and returns the new count.
func (n *Node) IncRef() int32 {
	return atomic.AddInt32(&n.nRefs, 1)
}

// DecRef drops one reference and reports whether it was the last one.
func (n *Node) DecRef() bool {
	return atomic.AddInt32(&n.nRefs, -1) == 0
}

// Timestamp returns the node's cached receiver-local timestamp. Only
// meaningful once the node has left the busy list for the ready set.
func (n *Node) Timestamp() int64 {
	return n.timestamp
}

// Finalize atomically (from the caller's point of view — it is only ever
// called once the node has left every queue) detaches the node's Tx,
// returning the reference the caller is now responsible for releasing.
func (n *Node) Finalize() *Tx {
	tx := n.tx
	n.tx = nil
	return tx
}

// Queue links node into dest's intake under tx and reports whether the
// link succeeded. The caller must have already called Claim on node. If
// dest is already closed, Queue takes no reference on tx and leaves node
// untouched beyond the caller's own claim — it reports false, and the
// caller must release its own claim reference itself rather than calling
// Commit, since the node was never actually linked anywhere.
func (n *Node) Queue(tx *Tx, dest *PeerQ) bool {
	if n.tx != nil || n.nextQueue != nil {
		panic("distq: node is already queued")
	}

	for {
		head := dest.intake.Load()
		if head == nil {
			n.nextQueue = nil
			dest.recorder.NodeDiscarded()
			return false
		}

		n.nextQueue = head
		if dest.intake.CompareAndSwap(head, n) {
			break
		}
	}

	n.IncRef()
	tx.IncRef()
	n.tx = tx

	// The CAS above is the release barrier publishing the link; reading
	// dest's clock here and raising tx's timestamp to it narrows (but,
	// per design, does not close) the window in which side-channel
	// communication could observe this message out of order.
	tx.timestamp.ForceSync(dest.clock.Load())
	dest.recorder.NodeQueued()
	return true
}

// Commit publishes node's commit to dest: it bumps dest's commit counter
// (the sole channel that makes the committed timestamp visible to the
// receiver) and advances dest's clock past the transaction's timestamp.
// Only call this for a node whose Queue call returned true.
func (n *Node) Commit(dest *PeerQ) {
	if n.tx == nil {
		panic("distq: commit of a node that was never queued")
	}

	if dest.nCommitted.Add(1) > 0 {
		dest.wake()
	}
	dest.recorder.NodeCommitted()

	ts := n.tx.Timestamp() + 1
	dest.clock.ForceSync(ts)
	dest.recorder.ClockAdvanced(dest.clock.Load())
}
