// Package capability implements the collaborator layer above the ordering
// engine: peers, objects, handles and the messages they exchange, plus the
// staged-transaction builder that turns one API call into a batch of nodes
// committed atomically across every destination.
package capability

import "github.com/jabolina/go-distq/distq"

// Kind tags which concrete record a Message belongs to, so that releasing
// it can be dispatched without a vtable per message.
type Kind uint8

const (
	KindObjectRelease Kind = iota
	KindHandleRelease
	KindHandleDestruction
	KindUserPayload
)

func (k Kind) String() string {
	switch k {
	case KindObjectRelease:
		return "object-release"
	case KindHandleRelease:
		return "handle-release"
	case KindHandleDestruction:
		return "handle-destruction"
	case KindUserPayload:
		return "user-payload"
	default:
		return "unknown"
	}
}

// owned is implemented by whatever record embeds a Message — Object,
// Handle and UserPayload. Staging a message takes one reference on its owner; releasing
// the message's last node reference drops it again.
type owned interface {
	ref()
	unref()
}

// Message is one event queueable onto a distq.PeerQ: an object release, a
// handle release, a handle destruction, or a user payload. Object and
// Handle statically embed the Message values they can ever emit, so
// staging a send needs no per-message allocation.
type Message struct {
	Next  *Message
	Tx    distq.Tx
	Node  distq.Node
	Kind  Kind
	owner owned
	dest  *distq.PeerQ
	// linked records whether Queue actually linked this message's node
	// into its destination, so Stage.Commit knows whether to publish a
	// commit for it or treat it as already-released.
	linked bool
}

func initMessage(m *Message, kind Kind, owner owned) {
	m.Node = *distq.NewNode(uint8(kind))
	m.Node.SetOwner(m)
	m.Kind = kind
	m.owner = owner
}

// release drops the message's node reference. Once it reaches zero the
// node's transaction reference is released too, and the owner reference
// taken when this message was staged is dropped.
func (m *Message) release() {
	if !m.Node.DecRef() {
		return
	}
	if tx := m.Node.Finalize(); tx != nil {
		tx.DecRef()
	}
	if m.owner != nil {
		m.owner.unref()
	}
}

// Release drops the reference a receiver holds on a delivered node, once
// it has popped the node from a peer's queue and finished with it. It is
// the counterpart to staging: every message staged by a Stage is
// eventually released exactly once by whichever peer it was delivered to.
func Release(node *distq.Node) {
	if m, ok := node.Owner().(*Message); ok {
		m.release()
	}
}

// KindOf returns the variant tag of whatever message embeds node.
func KindOf(node *distq.Node) Kind {
	m, _ := node.Owner().(*Message)
	return m.Kind
}

// UserPayload carries an application-defined payload plus any handles
// transferred alongside it. The ordering engine treats it like any other
// message; it carries no owner-level refcount of its own since nothing in
// this layer owns a user payload the way an Object owns its release.
type UserPayload struct {
	Message
	Payload []byte
	Handles []*Handle
}

func (*UserPayload) ref()   {}
func (*UserPayload) unref() {}

// NewUserPayload returns a payload message ready to be staged with
// (*Stage).AddPayload.
func NewUserPayload(payload []byte, handles []*Handle) *UserPayload {
	up := &UserPayload{Payload: payload, Handles: handles}
	initMessage(&up.Message, KindUserPayload, up)
	return up
}
