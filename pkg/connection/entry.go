package connection

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/taylen/verso/internal/observability"
	"github.com/taylen/verso/pkg/jid"
)

// sessionEntry is the registry bookkeeping record for one session. Fields
// are fixed at creation; the only actions taken against an entry afterwards
// are aborting its pump tasks and closing its outbound queue.
type sessionEntry struct {
	id       string
	identity jid.JID // bare
	queue    *outQueue
	openedAt time.Time

	readCtx    context.Context
	readCancel context.CancelFunc

	notifier *notifier

	// transportMu orders attachTransport against abort: whichever runs
	// second sees the other's effect, so an aborted entry always ends up
	// with a closed transport.
	transportMu sync.Mutex
	transport   Transport
	aborted     bool
}

func newSessionEntry(id string, identity jid.JID, observer Observer, logger zerolog.Logger) *sessionEntry {
	readCtx, readCancel := context.WithCancel(context.Background())
	openedAt := time.Now()

	return &sessionEntry{
		id:         id,
		identity:   identity,
		queue:      newOutQueue(),
		openedAt:   openedAt,
		readCtx:    readCtx,
		readCancel: readCancel,
		notifier:   newNotifier(id, observer, logger, openedAt),
	}
}

// attachTransport records the session's transport so abort can release it.
// An entry aborted before the transport existed closes it on arrival.
func (e *sessionEntry) attachTransport(t Transport) {
	e.transportMu.Lock()
	e.transport = t
	aborted := e.aborted
	e.transportMu.Unlock()

	if aborted {
		_ = t.Close()
	}
}

// abort cancels both pump tasks and releases the transport. Cancellation is
// unconditional and idempotent; aborting an already finished pump is a
// no-op. The write pump has no context of its own: closing the queue is its
// abort, and it also unblocks a pump parked on pop. Closing the transport
// terminates its reader so an abandoned session cannot leak the underlying
// connection.
func (e *sessionEntry) abort() {
	e.queue.close()
	e.readCancel()

	e.transportMu.Lock()
	e.aborted = true
	t := e.transport
	e.transportMu.Unlock()

	if t != nil {
		_ = t.Close()
	}
}

// notifier is the single terminal-report path for one session. Every
// terminal state, whether detected by the read pump, by close, or by
// recovery, funnels through reportAbort so the "exactly one disconnected
// per session lifetime" invariant has one implementation.
type notifier struct {
	id       string
	observer Observer
	logger   zerolog.Logger
	openedAt time.Time

	terminalOnce sync.Once
}

func newNotifier(id string, observer Observer, logger zerolog.Logger, openedAt time.Time) *notifier {
	return &notifier{
		id:       id,
		observer: observer,
		logger:   logger,
		openedAt: openedAt,
	}
}

// connected reports stream establishment. Not terminal.
func (n *notifier) connected() {
	observability.RecordStateTransition(string(StateConnected))
	n.observer.StateChanged(n.id, StateConnected)
}

// received delivers one inbound payload. Not terminal.
func (n *notifier) received(payload string) {
	observability.RecordFrameReceived()
	n.observer.Received(n.id, payload)
}

// reportAbort emits the terminal state followed by a disconnected report
// when the terminal state was not already disconnected. Only the first
// terminal report of a session lifetime is emitted; later aborts are
// swallowed so double recovery cannot re-announce a disconnection.
func (n *notifier) reportAbort(state State) {
	n.terminalOnce.Do(func() {
		observability.RecordStateTransition(string(state))
		observability.ObserveSessionDuration(time.Since(n.openedAt))
		n.observer.StateChanged(n.id, state)

		if state != StateDisconnected {
			observability.RecordStateTransition(string(StateDisconnected))
			n.observer.StateChanged(n.id, StateDisconnected)
		}
	})
}
