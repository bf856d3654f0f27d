package gateway

import (
	"github.com/taylen/verso/pkg/connection"
)

// StreamEvents forwards session lifecycle and inbound stanzas to
// gateway clients. It implements connection.Observer, so a Manager
// configured with it pushes every state transition and received
// payload out as a broadcast event.
type StreamEvents struct {
	broadcaster *EventBroadcaster
}

// NewStreamEvents creates an observer that broadcasts through b.
func NewStreamEvents(b *EventBroadcaster) *StreamEvents {
	return &StreamEvents{broadcaster: b}
}

// StateChanged broadcasts a "stream:state" event for the session.
func (s *StreamEvents) StateChanged(id string, state connection.State) {
	s.broadcaster.Broadcast("stream:state", map[string]interface{}{
		"session": id,
		"state":   string(state),
	})
}

// Received broadcasts a "stream:receive" event carrying the raw stanza.
func (s *StreamEvents) Received(id string, payload string) {
	s.broadcaster.Broadcast("stream:receive", map[string]interface{}{
		"session": id,
		"stanza":  payload,
	})
}
