package connection

import (
	"github.com/taylen/verso/pkg/jid"
	"github.com/taylen/verso/pkg/wire"
)

// PacketWriter is the outbound half of a split transport. WritePacket is
// called by the session's write pump only, one packet at a time, in
// submission order.
type PacketWriter interface {
	WritePacket(pkt wire.Packet) error
}

// Transport is one bidirectional stream, already split into a writable sink
// and a readable signal source. The signal channel is closed when the source
// ends; a final StreamClosed signal classifies how.
//
// Close releases the underlying connection and any goroutines it owns. It is
// the hard abort: the registry invokes it when a session is torn down without
// a protocol shutdown, so an implementation must not rely on a clean close
// frame having been written first. Close must be idempotent.
type Transport interface {
	Writer() PacketWriter
	Signals() <-chan wire.Signal
	Close() error
}

// Dialer constructs a transport for an identity. Dialing must not block:
// connection establishment happens in the background and is reported
// through the signal source (StreamOnline on success, StreamClosed on
// failure), never as a return value.
type Dialer func(address jid.JID, credential string) Transport
