package capability

import (
	"sync/atomic"

	"github.com/google/uuid"
)

// Object is a piece of state living on its owning peer, addressable from
// other peers only through a Handle. Its Release message is staged once,
// when its owning peer destroys it (Stage.AddDestructionLocked), alongside
// a destruction message for every handle still naming it.
type Object struct {
	ID    uuid.UUID
	Owner *Peer

	refs    int32
	handles []*Handle

	Release Message
}

func newObject(owner *Peer) *Object {
	o := &Object{ID: uuid.New(), Owner: owner, refs: 1}
	initMessage(&o.Release, KindObjectRelease, o)
	return o
}

func (o *Object) ref() { atomic.AddInt32(&o.refs, 1) }

func (o *Object) unref() { atomic.AddInt32(&o.refs, -1) }

// Refs returns the object's current reference count, for tests asserting
// the balance invariant.
func (o *Object) Refs() int32 { return atomic.LoadInt32(&o.refs) }

// registerHandle links h onto this object's handle list. Callers must
// hold o.Owner.Lock.
func (o *Object) registerHandle(h *Handle) {
	o.handles = append(o.handles, h)
}

// unlinkHandle removes h from this object's handle list, reporting
// whether it was present. Callers must hold o.Owner.Lock.
func (o *Object) unlinkHandle(h *Handle) bool {
	for i, e := range o.handles {
		if e == h {
			o.handles = append(o.handles[:i], o.handles[i+1:]...)
			return true
		}
	}
	return false
}

// Handles returns a snapshot of the handles currently naming this object.
// Callers must hold o.Owner.Lock.
func (o *Object) Handles() []*Handle {
	out := make([]*Handle, len(o.handles))
	copy(out, o.handles)
	return out
}
