package connection

// State describes one observable lifecycle transition of a session. States
// are report values pushed to the Observer; the registry never stores them.
type State string

const (
	// StateConnected is reported once the transport signals establishment.
	// It is entered at most once per session.
	StateConnected State = "connected"
	// StateDisconnected is the universal terminal signal. Every session
	// lifetime ends with exactly one disconnected report, regardless of
	// which failure state preceded it.
	StateDisconnected State = "disconnected"
	// StateAuthenticationFailure reports a stream end in the auth layer.
	StateAuthenticationFailure State = "authentication-failure"
	// StateConnectionError reports a stream end in the connection layer,
	// a generic stream failure, or a dead outbound channel (recovery).
	StateConnectionError State = "connection-error"
	// StateConnectionTimeout reports that no signal arrived inside the
	// rolling read-timeout window.
	StateConnectionTimeout State = "connection-timeout"
)

// Terminal reports whether the state ends a session's active lifetime.
func (s State) Terminal() bool {
	return s != StateConnected
}

func (s State) String() string {
	return string(s)
}
