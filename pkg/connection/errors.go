package connection

import "errors"

// Open errors. Each is detected locally and returned synchronously; no
// background work is started when Open fails.
var (
	// ErrInvalidAddress means the address did not parse into a usable JID.
	ErrInvalidAddress = errors.New("invalid address, cannot open session")
	// ErrAnotherSessionBound means a live session already holds the same
	// bare identity.
	ErrAnotherSessionBound = errors.New("another session is bound to the identity")
	// ErrSessionAlreadyExists means the session id is already registered.
	ErrSessionAlreadyExists = errors.New("session id already exists")
)

// Send and Close errors.
var (
	// ErrCannotWrite means the outbound queue has no live consumer. The
	// failing operation has already triggered recovery by the time the
	// caller sees this error.
	ErrCannotWrite = errors.New("cannot write to session sender")
	// ErrCannotParse means the outbound payload is not a well-formed frame.
	ErrCannotParse = errors.New("cannot parse payload to send")
	// ErrSessionNotFound means no session with the given id is registered.
	ErrSessionNotFound = errors.New("session does not exist")
)

// Pump-internal errors. These never cross the package boundary as return
// values; pumps absorb them into logs and observer notifications.
var (
	errPollAuth    = errors.New("authentication error")
	errPollConn    = errors.New("connection error")
	errPollTimeout = errors.New("timeout error")
	errPollOther   = errors.New("other error")
	errPacketSend  = errors.New("packet send error")
)
