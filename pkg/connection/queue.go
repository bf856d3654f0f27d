package connection

import (
	"errors"
	"sync"

	"github.com/eapache/queue"

	"github.com/taylen/verso/pkg/wire"
)

// errQueueClosed means the queue consumer is gone; the session's outbound
// path is unusable and the producer must run recovery.
var errQueueClosed = errors.New("outbound queue is closed")

// outQueue is the per-session unbounded outbound FIFO. Producers are the
// caller-facing operations (any goroutine); the single consumer is the
// session's write pump. Closing the queue models the consumer going away:
// pops unblock and fail, pushes fail immediately.
type outQueue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  *queue.Queue
	closed bool
}

func newOutQueue() *outQueue {
	q := &outQueue{items: queue.New()}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// push enqueues a packet. It fails once the queue is closed.
func (q *outQueue) push(pkt wire.Packet) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return errQueueClosed
	}
	q.items.Add(pkt)
	q.cond.Signal()
	return nil
}

// pop blocks until a packet is available or the queue is closed. It returns
// ok=false once closed; pending packets are discarded, matching the abrupt
// abort semantics of the write pump.
func (q *outQueue) pop() (wire.Packet, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.items.Length() == 0 && !q.closed {
		q.cond.Wait()
	}
	if q.closed {
		return wire.Packet{}, false
	}
	return q.items.Remove().(wire.Packet), true
}

// close marks the consumer as gone and wakes every blocked producer and
// consumer. Safe to call more than once.
func (q *outQueue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	q.cond.Broadcast()
}

// isClosed reports whether the queue no longer has a live consumer.
func (q *outQueue) isClosed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}
