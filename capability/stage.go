package capability

import "github.com/jabolina/go-distq/distq"

// Stage accumulates the messages produced by one API-level operation —
// one handle release, one object destruction, one payload send with
// attached handles — and commits them as a single all-or-nothing
// transaction: every destination observes every message of the batch at
// the same logical instant, ahead of anything staged later and behind
// anything staged earlier.
type Stage struct {
	list *Message
}

// stage claims node's first reference, takes the owner reference the
// eventual release will drop, and prepends m to the batch under
// construction.
func (s *Stage) stage(m *Message, dest *distq.PeerQ) {
	m.Node.Claim()
	m.owner.ref()
	m.dest = dest
	m.Next = s.list
	s.list = m
}

// AddDestructionLocked stages object's teardown: a handle-destruction
// message to every peer still holding a handle naming it, followed by
// object's own release back to its owning peer. Callers must hold
// object.Owner.Lock.
func (s *Stage) AddDestructionLocked(object *Object) {
	for _, h := range object.handles {
		h.linked = false
		s.stage(&h.Destruction, h.Owner.Queue)
	}
	object.handles = nil
	object.Owner.forgetObject(object)
	s.stage(&object.Release, object.Owner.Queue)
}

// AddReleaseLocked stages handle's release back to the object's owning
// peer. A handle that a racing destruction already unlinked is skipped:
// its destruction message flushes the same notification, so staging a
// release too would double-release the object's reference. Callers must
// hold handle.Object.Owner.Lock — it guards handle.linked and the object's
// handle list, the only state this mutates directly. handle.Owner's own
// lock is not required: forgetHandle only touches the holder's id
// registry, which guards its own map regardless of which peer's lock, if
// any, the caller happens to be holding.
func (s *Stage) AddReleaseLocked(handle *Handle) {
	if !handle.linked {
		return
	}
	handle.Object.unlinkHandle(handle)
	handle.linked = false
	handle.Owner.forgetHandle(handle)
	s.stage(&handle.Release, handle.Object.Owner.Queue)
}

// AddPayload stages a user payload for delivery to dest.
func (s *Stage) AddPayload(up *UserPayload, dest *Peer) {
	s.stage(&up.Message, dest.Queue)
}

// Empty reports whether anything has been staged since the last Commit.
func (s *Stage) Empty() bool {
	return s.list == nil
}

// Commit submits and settles every message staged so far as a single
// transaction: the most recently staged message (the head of the list,
// since staging prepends) donates its embedded transaction, shared by
// every node in the batch; every node is linked
// into its destination's intake; the transaction is committed against
// sender's clock; then every node's commit is published to its
// destination. Commit is a no-op on an empty stage. After it returns the
// stage is empty again.
func (s *Stage) Commit(sender *distq.PeerQ) {
	if s.list == nil {
		return
	}

	tx := &s.list.Tx
	tx.Claim()

	for m := s.list; m != nil; m = m.Next {
		m.linked = m.Node.Queue(tx, m.dest)
	}

	tx.Commit(sender)

	for m := s.list; m != nil; m = m.Next {
		if m.linked {
			m.Node.Commit(m.dest)
		}
	}

	for m := s.list; m != nil; {
		next := m.Next
		m.Next = nil
		m.release()
		m = next
	}

	// The Stage's own claim from the top of this method has done its job:
	// every node that needed a tx reference took its own via Queue, so this
	// is the one the Stage itself is responsible for dropping.
	tx.DecRef()

	s.list = nil
}
