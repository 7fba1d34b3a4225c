// Package tsclock implements the timestamp algebra shared by the distq
// transaction and peer-queue types: 64-bit monotonic values carrying a
// "committed" bit, and the two atomic primitives used to raise a
// timestamp toward a target without ever moving a committed value.
package tsclock

import "sync/atomic"

// Timestamp is a signed 64-bit logical clock value. Bit 0 is the committed
// flag; bits 1..63 carry the logical value. A clock ticks by 2 so it is
// always even; marking a value committed increments it by one (even ->
// odd) and freezes it forever.
type Timestamp struct {
	v int64
}

// Committed reports whether ts has its commit bit set.
func Committed(ts int64) bool {
	return ts&0x1 != 0
}

// Load returns the current raw value.
func (t *Timestamp) Load() int64 {
	return atomic.LoadInt64(&t.v)
}

// ForceSync atomically raises t to at least to, unless t is already
// committed, in which case it is left untouched. to must be even: it is a
// precondition bug for a caller to try to force-sync past a value that
// could already be committed.
func (t *Timestamp) ForceSync(to int64) {
	v := atomic.LoadInt64(&t.v)
	for {
		if v >= to || Committed(v) {
			return
		}
		if atomic.CompareAndSwapInt64(&t.v, v, to) {
			return
		}
		v = atomic.LoadInt64(&t.v)
	}
}

// TrySync behaves like ForceSync but returns the value observed after the
// operation. If t was already committed, its committed value is returned
// unchanged.
func (t *Timestamp) TrySync(to int64) int64 {
	v := atomic.LoadInt64(&t.v)
	for {
		if v >= to || Committed(v) {
			return v
		}
		if atomic.CompareAndSwapInt64(&t.v, v, to) {
			return to
		}
		v = atomic.LoadInt64(&t.v)
	}
}

// Commit marks t committed by incrementing it by one (even -> odd). The
// caller must have already raised t to its final value via ForceSync; the
// increment itself needs no barrier, since it only settles the timestamp
// and publication of any associated state travels over a different field.
func (t *Timestamp) Commit() {
	atomic.AddInt64(&t.v, 1)
}
