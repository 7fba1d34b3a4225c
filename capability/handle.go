package capability

import (
	"sync/atomic"

	"github.com/google/uuid"
)

// Handle is one peer's capability naming an Object: possession of the
// handle is possession of the right to send to, or receive from, the
// object it names. A handle carries two messages of its own — Release,
// staged when its holder drops it, and Destruction, staged for every live
// handle when the named object itself is destroyed.
type Handle struct {
	ID     uuid.UUID
	Owner  *Peer
	Object *Object

	refs   int32
	linked bool

	Release     Message
	Destruction Message
}

func newHandle(owner *Peer, object *Object) *Handle {
	h := &Handle{ID: uuid.New(), Owner: owner, Object: object, refs: 1}
	initMessage(&h.Release, KindHandleRelease, h)
	initMessage(&h.Destruction, KindHandleDestruction, h)
	return h
}

func (h *Handle) ref() { atomic.AddInt32(&h.refs, 1) }

func (h *Handle) unref() { atomic.AddInt32(&h.refs, -1) }

// Refs returns the handle's current reference count, for tests asserting
// the balance invariant.
func (h *Handle) Refs() int32 { return atomic.LoadInt32(&h.refs) }

// launch registers h on its target object's handle list, making it
// visible to that object's eventual destruction. It must be called
// exactly once, before h is handed to any sender.
func (h *Handle) launch() {
	h.Object.Owner.Lock.Lock()
	defer h.Object.Owner.Lock.Unlock()
	h.Object.registerHandle(h)
	h.linked = true
}

// Linked reports whether this handle is still registered against its
// object, i.e. has not yet been released or superseded by destruction.
// Every writer of h.linked (launch, AddDestructionLocked, AddReleaseLocked)
// holds h.Object.Owner.Lock, so that is the lock this must take too.
func (h *Handle) Linked() bool {
	h.Object.Owner.Lock.Lock()
	defer h.Object.Owner.Lock.Unlock()
	return h.linked
}
