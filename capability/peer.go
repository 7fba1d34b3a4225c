package capability

import (
	"sync"

	"github.com/google/uuid"

	"github.com/jabolina/go-distq/distq"
)

// Peer is one endpoint: a destination queue plus the objects it hosts and
// the handles it holds naming objects elsewhere. Lock serializes every
// mutation of a peer's own bookkeeping (object/handle registries, handle
// lists) and is the lock callers must hold across AddReleaseLocked and
// AddDestructionLocked for objects this peer owns, so that a stage
// observes a consistent snapshot of what needs to go out.
type Peer struct {
	ID   uuid.UUID
	Name string
	Lock sync.Mutex

	Queue *distq.PeerQ

	objects *idRegistry[*Object]
	handles *idRegistry[*Handle]
}

// NewPeer returns a new, empty peer. recorder may be nil.
func NewPeer(name string, recorder distq.Recorder) *Peer {
	return &Peer{
		ID:      uuid.New(),
		Name:    name,
		Queue:   distq.New(recorder),
		objects: newIDRegistry[*Object](),
		handles: newIDRegistry[*Handle](),
	}
}

// NewObject creates and registers a new object owned by p.
func (p *Peer) NewObject() *Object {
	p.Lock.Lock()
	defer p.Lock.Unlock()
	o := newObject(p)
	p.objects.insert(o.ID, o)
	return o
}

// Grant creates a handle on p naming object and launches it, making it
// visible to object's eventual destruction.
func (p *Peer) Grant(object *Object) *Handle {
	h := newHandle(p, object)
	h.launch()
	p.Lock.Lock()
	p.handles.insert(h.ID, h)
	p.Lock.Unlock()
	return h
}

// Object looks up one of p's own objects by id.
func (p *Peer) Object(id uuid.UUID) (*Object, bool) {
	return p.objects.lookup(id)
}

// Handle looks up one of p's own handles by id.
func (p *Peer) Handle(id uuid.UUID) (*Handle, bool) {
	return p.handles.lookup(id)
}

// forgetObject removes o from p's object registry. The registry guards its
// own map, so no additional lock is required to call this safely; it is
// called from AddDestructionLocked while object.Owner.Lock happens to
// already be held for other reasons.
func (p *Peer) forgetObject(o *Object) {
	p.objects.remove(o.ID)
}

// forgetHandle removes h from p's handle registry. The registry guards its
// own map, so this is safe to call without p.Lock — AddReleaseLocked calls
// it on the holder's peer while only handle.Object.Owner.Lock is held,
// which may be a different peer than p.
func (p *Peer) forgetHandle(h *Handle) {
	p.handles.remove(h.ID)
}

// Finalize tears down p's destination queue: it closes intake and
// returns every node the queue was still holding, linked through
// distq.Node's queue pointer, for the caller to walk and release.
func (p *Peer) Finalize() *distq.Node {
	return p.Queue.Finalize()
}
