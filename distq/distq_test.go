package distq

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestPeerQ() *PeerQ {
	return New(nil)
}

func queueCommit(sender *PeerQ, dest *PeerQ) *Node {
	tx := NewTx()
	tx.Claim()
	n := NewNode(0)
	n.Claim()
	n.Queue(tx, dest)
	tx.Commit(sender)
	n.Commit(dest)
	return n
}

func TestBasicPeerStartsEmpty(t *testing.T) {
	pq := newTestPeerQ()
	require.False(t, pq.Poll())
	require.Nil(t, pq.Peek())
}

func TestBasicTxClaimCommitOrdering(t *testing.T) {
	sender := newTestPeerQ()
	tx := NewTx()
	tx.Claim()
	require.False(t, tx.Committed())
	tx.Commit(sender)
	require.True(t, tx.Committed())
	require.Panics(t, func() { tx.Claim() })
}

func TestBasicNodeLifecycle(t *testing.T) {
	dest := newTestPeerQ()
	n := queueCommit(newTestPeerQ(), dest)

	require.True(t, dest.Poll())
	got := dest.Peek()
	require.Same(t, n, got)

	dest.Pop(got)
	require.False(t, dest.Poll())
}

// TestUnicastIsolated: a single sender delivering to a single receiver
// with nothing else in flight observes its own message immediately.
func TestUnicastIsolated(t *testing.T) {
	sender := newTestPeerQ()
	dest := newTestPeerQ()

	n := queueCommit(sender, dest)

	require.True(t, dest.Poll())
	require.Same(t, n, dest.Peek())
	dest.Pop(n)
	require.Nil(t, dest.Peek())
}

// TestUnicastContested: two sends race to the same destination; the one
// committed with the lower timestamp must be observed first regardless of
// arrival order.
func TestUnicastContested(t *testing.T) {
	sender := newTestPeerQ()
	dest := newTestPeerQ()

	txA := NewTx()
	txA.Claim()
	nA := NewNode(0)
	nA.Claim()
	nA.Queue(txA, dest)

	txB := NewTx()
	txB.Claim()
	nB := NewNode(0)
	nB.Claim()
	nB.Queue(txB, dest)

	// A commits first; B's timestamp is then forced to the next even value
	// past A's committed one before B commits, so A must be observed first
	// once both are committed.
	txA.Commit(sender)
	txB.timestamp.ForceSync(txA.Timestamp() + 1)
	txB.timestamp.Commit()

	nA.Commit(dest)
	nB.Commit(dest)

	first := dest.Peek()
	require.Same(t, nA, first)
	dest.Pop(first)

	second := dest.Peek()
	require.Same(t, nB, second)
	dest.Pop(second)
}

// TestMulticastTotalOrder: the same two transactions, observed from two
// distinct destinations, must agree on relative order.
func TestMulticastTotalOrder(t *testing.T) {
	sender := newTestPeerQ()
	destA := newTestPeerQ()
	destB := newTestPeerQ()

	tx1 := NewTx()
	tx1.Claim()
	a1 := NewNode(0)
	a1.Claim()
	a1.Queue(tx1, destA)
	b1 := NewNode(0)
	b1.Claim()
	b1.Queue(tx1, destB)
	tx1.Commit(sender)
	a1.Commit(destA)
	b1.Commit(destB)

	tx2 := NewTx()
	tx2.Claim()
	a2 := NewNode(0)
	a2.Claim()
	a2.Queue(tx2, destA)
	b2 := NewNode(0)
	b2.Claim()
	b2.Queue(tx2, destB)
	tx2.Commit(sender)
	a2.Commit(destA)
	b2.Commit(destB)

	orderA := []*Node{destA.Peek()}
	destA.Pop(orderA[0])
	orderA = append(orderA, destA.Peek())
	destA.Pop(orderA[1])

	orderB := []*Node{destB.Peek()}
	destB.Pop(orderB[0])
	orderB = append(orderB, destB.Peek())
	destB.Pop(orderB[1])

	require.Equal(t, orderA[0].Timestamp(), orderB[0].Timestamp())
	require.Equal(t, orderA[1].Timestamp(), orderB[1].Timestamp())
	require.Less(t, orderA[0].Timestamp(), orderA[1].Timestamp())
}

// TestClosedQueueSilentlyDiscards: queuing onto a finalized PeerQ must not
// panic, must not block, and must leave the node's reference balanced.
func TestClosedQueueSilentlyDiscards(t *testing.T) {
	sender := newTestPeerQ()
	dest := newTestPeerQ()
	dest.Finalize()

	tx := NewTx()
	tx.Claim()
	n := NewNode(0)
	n.Claim()
	n.Queue(tx, dest)
	tx.Commit(sender)

	require.False(t, dest.Poll())
	require.EqualValues(t, 1, n.nRefs)
	require.EqualValues(t, 1, tx.Refs())
}

// TestFinalizeIsIdempotent mirrors the boundary behavior of calling
// Finalize twice: the second call must return the empty-list sentinel
// rather than re-returning already-drained nodes.
func TestFinalizeIsIdempotent(t *testing.T) {
	dest := newTestPeerQ()
	_ = queueCommit(newTestPeerQ(), dest)

	first := dest.Finalize()
	require.NotNil(t, first)

	second := dest.Finalize()
	require.Same(t, tailSentinel, second)
}

func TestConcurrentSendersPreserveSingleTotalOrder(t *testing.T) {
	const senders = 8
	const perSender = 20

	dest := newTestPeerQ()
	var wg sync.WaitGroup
	wg.Add(senders)

	for i := 0; i < senders; i++ {
		go func() {
			defer wg.Done()
			sender := newTestPeerQ()
			for j := 0; j < perSender; j++ {
				queueCommit(sender, dest)
			}
		}()
	}
	wg.Wait()

	seen := 0
	var last int64 = -1
	for dest.Poll() {
		n := dest.Peek()
		if n == nil {
			break
		}
		require.GreaterOrEqual(t, n.Timestamp(), last)
		last = n.Timestamp()
		dest.Pop(n)
		seen++
	}
	require.Equal(t, senders*perSender, seen)
}
