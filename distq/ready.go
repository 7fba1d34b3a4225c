package distq

import "unsafe"

// tailSentinel is the distinguished non-nil terminator for the intake and
// busy singly-linked lists. A nil value in PeerQ.intake means "closed";
// tailSentinel means "empty, but still open". The two must never compare
// equal, which is why this is a real (if otherwise unused) *Node rather
// than a zero value.
var tailSentinel = &Node{}

// nodeLess orders nodes lexicographically by (timestamp, tx identity, node
// identity). The identity tie-breakers are addresses within this process;
// since the ordering engine never crosses process boundaries (see spec
// non-goals on remote delivery) that is sufficient to make the ordering
// deterministic across every receiver that observes the same two nodes.
func nodeLess(a, b *Node) bool {
	if a.timestamp != b.timestamp {
		return a.timestamp < b.timestamp
	}
	at, bt := uintptr(unsafe.Pointer(a.tx)), uintptr(unsafe.Pointer(b.tx))
	if at != bt {
		return at < bt
	}
	return uintptr(unsafe.Pointer(a)) < uintptr(unsafe.Pointer(b))
}
