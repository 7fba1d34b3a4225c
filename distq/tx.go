package distq

import (
	"sync/atomic"

	"github.com/jabolina/go-distq/internal/tsclock"
)

// Tx is the shared, reference-counted transaction object representing one
// send operation. Every node produced by a single Stage commit shares the
// same Tx and therefore the same commit timestamp.
type Tx struct {
	nRefs     int32
	timestamp tsclock.Timestamp
}

// NewTx returns a zero-valued, unclaimed transaction.
func NewTx() *Tx {
	return &Tx{}
}

// Claim moves the reference count from 0 to 1. It must be called exactly
// once, before the Tx is exposed to any node.
func (tx *Tx) Claim() {
	if !atomic.CompareAndSwapInt32(&tx.nRefs, 0, 1) {
		panic("distq: tx claimed more than once")
	}
}

// IncRef adds one reference and returns the new count.
func (tx *Tx) IncRef() int32 {
	return atomic.AddInt32(&tx.nRefs, 1)
}

// DecRef drops one reference and reports whether it was the last one.
func (tx *Tx) DecRef() bool {
	return atomic.AddInt32(&tx.nRefs, -1) == 0
}

// Refs returns the transaction's current reference count, for tests
// asserting the refcount-balance invariant.
func (tx *Tx) Refs() int32 {
	return atomic.LoadInt32(&tx.nRefs)
}

// Timestamp returns the transaction's current timestamp. Before Commit it
// is a lower bound on the eventual commit value; after Commit it is frozen
// and carries the committed bit.
func (tx *Tx) Timestamp() int64 {
	return tx.timestamp.Load()
}

// Committed reports whether the transaction's timestamp is frozen.
func (tx *Tx) Committed() bool {
	return tsclock.Committed(tx.timestamp.Load())
}

// Commit freezes tx's timestamp. It first force-syncs the timestamp to at
// least sender's current clock value, then marks it committed. After this
// call the timestamp never changes again — it is the sole ordering fact
// shared across every peer that received a node of this transaction.
func (tx *Tx) Commit(sender *PeerQ) {
	tx.timestamp.ForceSync(sender.clock.Load())
	tx.timestamp.Commit()
}
