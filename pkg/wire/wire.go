// Package wire defines the frame and signal taxonomy exchanged between the
// connection core and a stream transport. Outbound traffic is a sequence of
// Packets; inbound traffic is a sequence of Signals ending with StreamClosed.
package wire

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// PacketKind discriminates outbound packets.
type PacketKind int

const (
	// PacketStanza carries one unit of protocol payload.
	PacketStanza PacketKind = iota
	// PacketStreamEnd requests a graceful stream shutdown from the remote.
	PacketStreamEnd
)

// Packet is one outbound write unit handed to the transport.
type Packet struct {
	Kind    PacketKind
	Payload string
}

// Stanza wraps a payload into a stanza packet.
func Stanza(payload string) Packet {
	return Packet{Kind: PacketStanza, Payload: payload}
}

// StreamEnd returns the stream-end sentinel packet.
func StreamEnd() Packet {
	return Packet{Kind: PacketStreamEnd}
}

// SignalKind discriminates inbound signals.
type SignalKind int

const (
	// StreamOnline indicates the stream is established and authenticated.
	StreamOnline SignalKind = iota
	// StanzaReceived carries one received payload.
	StanzaReceived
	// StreamClosed indicates the signal source has ended. Err is nil on a
	// clean end-of-stream and non-nil otherwise; AuthError and ConnError
	// classify the failure layer.
	StreamClosed
)

// Signal is one inbound unit produced by a transport signal source.
type Signal struct {
	Kind    SignalKind
	Payload string
	Err     error
}

// Online returns a stream-established signal.
func Online() Signal {
	return Signal{Kind: StreamOnline}
}

// Received wraps a payload into a receive signal.
func Received(payload string) Signal {
	return Signal{Kind: StanzaReceived, Payload: payload}
}

// Closed returns a stream-closed signal. A nil err means a clean close.
func Closed(err error) Signal {
	return Signal{Kind: StreamClosed, Err: err}
}

// AuthError marks a stream failure in the authentication layer.
type AuthError struct {
	Reason string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed: %s", e.Reason)
}

// ConnError marks a stream failure in the connection or network layer.
type ConnError struct {
	Err error
}

func (e *ConnError) Error() string {
	return fmt.Sprintf("connection failed: %v", e.Err)
}

func (e *ConnError) Unwrap() error {
	return e.Err
}

// ValidateStanza checks that a payload is one well-formed XML element.
// Transports only accept framed elements, so a malformed payload must be
// rejected before it is enqueued.
func ValidateStanza(payload string) error {
	trimmed := strings.TrimSpace(payload)
	if trimmed == "" {
		return fmt.Errorf("stanza is empty")
	}

	decoder := xml.NewDecoder(strings.NewReader(trimmed))
	depth := 0
	elements := 0
	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("stanza is not well-formed: %w", err)
		}

		switch t := token.(type) {
		case xml.StartElement:
			if depth == 0 {
				elements++
			}
			depth++
		case xml.EndElement:
			depth--
		case xml.CharData:
			if depth == 0 && strings.TrimSpace(string(t)) != "" {
				return fmt.Errorf("stanza has text outside the root element")
			}
		}
	}

	if depth != 0 {
		return fmt.Errorf("stanza has unbalanced elements")
	}
	if elements != 1 {
		return fmt.Errorf("stanza must be exactly one element, got %d", elements)
	}
	return nil
}
