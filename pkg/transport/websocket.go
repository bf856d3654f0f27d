// Package transport provides the WebSocket stream transport: RFC 7395 style
// framing where every WebSocket text message carries one XML element. The
// transport dials and authenticates in the background and reports progress
// through its signal source, never through return values.
package transport

import (
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/taylen/verso/pkg/connection"
	"github.com/taylen/verso/pkg/jid"
	"github.com/taylen/verso/pkg/wire"
)

const (
	framingNamespace = "urn:ietf:params:xml:ns:xmpp-framing"
	saslNamespace    = "urn:ietf:params:xml:ns:xmpp-sasl"

	defaultDialTimeout  = 30 * time.Second
	defaultWriteTimeout = 30 * time.Second
)

// Config holds transport settings shared by all sessions of one dialer.
type Config struct {
	// URL overrides the endpoint for every dialed session. When empty the
	// endpoint is derived from the address domain as wss://<domain>:5443/ws.
	URL          string
	DialTimeout  time.Duration
	WriteTimeout time.Duration
	Logger       zerolog.Logger
}

// NewDialer returns a connection.Dialer producing WebSocket transports.
func NewDialer(cfg Config) connection.Dialer {
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = defaultDialTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaultWriteTimeout
	}

	return func(address jid.JID, credential string) connection.Transport {
		s := &stream{
			address:    address,
			credential: credential,
			cfg:        cfg,
			logger:     cfg.Logger.With().Str("endpoint", endpointFor(cfg, address)).Logger(),
			signals:    make(chan wire.Signal, 8),
			ready:      make(chan struct{}),
			done:       make(chan struct{}),
		}
		go s.run()
		return s
	}
}

func endpointFor(cfg Config, address jid.JID) string {
	if cfg.URL != "" {
		return cfg.URL
	}
	return fmt.Sprintf("wss://%s:5443/ws", address.Domain)
}

// stream is one dialed WebSocket session. A single internal goroutine owns
// the read side; the connection core's write pump is the only writer.
type stream struct {
	address    jid.JID
	credential string
	cfg        Config
	logger     zerolog.Logger

	signals chan wire.Signal

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool

	ready    chan struct{}
	readyErr error
	done     chan struct{}
}

func (s *stream) Writer() connection.PacketWriter { return s }

func (s *stream) Signals() <-chan wire.Signal { return s.signals }

// Close hard-aborts the stream: the WebSocket connection is torn down,
// which unblocks the internal reader, and emit stops delivering so the
// reader cannot park on an undrained signal channel. Idempotent.
func (s *stream) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	conn := s.conn
	s.mu.Unlock()

	close(s.done)
	if conn != nil {
		return conn.Close()
	}
	return nil
}

// emit delivers one signal unless the stream was closed. It reports false
// when delivery is abandoned so pump loops can stop.
func (s *stream) emit(sig wire.Signal) bool {
	select {
	case s.signals <- sig:
		return true
	case <-s.done:
		return false
	}
}

// WritePacket forwards one packet to the remote. It blocks until the stream
// is established; an establishment failure is returned to the write pump,
// which stops and leaves the failure for the core to reconcile.
func (s *stream) WritePacket(pkt wire.Packet) error {
	<-s.ready
	if s.readyErr != nil {
		return s.readyErr
	}

	if err := s.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout)); err != nil {
		return err
	}

	switch pkt.Kind {
	case wire.PacketStanza:
		return s.conn.WriteMessage(websocket.TextMessage, []byte(pkt.Payload))

	case wire.PacketStreamEnd:
		closeFrame := fmt.Sprintf(`<close xmlns="%s"/>`, framingNamespace)
		if err := s.conn.WriteMessage(websocket.TextMessage, []byte(closeFrame)); err != nil {
			return err
		}
		deadline := time.Now().Add(s.cfg.WriteTimeout)
		return s.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			deadline,
		)

	default:
		return fmt.Errorf("unknown packet kind %d", pkt.Kind)
	}
}

// run dials, performs the open/auth handshake, then pumps inbound frames
// into the signal channel until the stream ends.
func (s *stream) run() {
	defer close(s.signals)

	endpoint := endpointFor(s.cfg, s.address)
	dialer := &websocket.Dialer{
		HandshakeTimeout: s.cfg.DialTimeout,
		Subprotocols:     []string{"xmpp"},
	}

	conn, _, err := dialer.Dial(endpoint, nil)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Stream dial failed")
		s.establishFailed(&wire.ConnError{Err: err})
		return
	}
	defer conn.Close()

	// Register the connection so Close can abort it; a stream closed while
	// the dial was in flight tears it down immediately.
	s.mu.Lock()
	s.conn = conn
	closed := s.closed
	s.mu.Unlock()
	if closed {
		conn.Close()
	}

	if err := s.handshake(); err != nil {
		s.logger.Warn().Err(err).Msg("Stream handshake failed")
		s.establishFailed(err)
		return
	}

	// Established: unblock the writer, then hand the rolling-timeout
	// responsibility back to the connection core.
	_ = conn.SetReadDeadline(time.Time{})
	close(s.ready)
	s.emit(wire.Online())
	s.logger.Info().Msg("Stream established")

	s.readFrames()
}

func (s *stream) establishFailed(err error) {
	s.readyErr = err
	close(s.ready)
	s.emit(wire.Closed(err))
}

// handshake drives the framed open and SASL PLAIN exchange. Handshake reads
// are bounded by the dial timeout; the core's rolling timeout only governs
// the established stream.
func (s *stream) handshake() error {
	openFrame := fmt.Sprintf(`<open xmlns="%s" to="%s" version="1.0"/>`, framingNamespace, s.address.Domain)

	if err := s.writeHandshake(openFrame); err != nil {
		return &wire.ConnError{Err: err}
	}
	if _, err := s.readHandshake("open"); err != nil {
		return err
	}

	token := base64.StdEncoding.EncodeToString([]byte("\x00" + s.address.Local + "\x00" + s.credential))
	authFrame := fmt.Sprintf(`<auth xmlns="%s" mechanism="PLAIN">%s</auth>`, saslNamespace, token)
	if err := s.writeHandshake(authFrame); err != nil {
		return &wire.ConnError{Err: err}
	}

	name, err := s.readHandshake("success", "failure")
	if err != nil {
		return err
	}
	if name == "failure" {
		return &wire.AuthError{Reason: "credentials rejected by server"}
	}

	// Stream restart after authentication.
	if err := s.writeHandshake(openFrame); err != nil {
		return &wire.ConnError{Err: err}
	}
	if _, err := s.readHandshake("open"); err != nil {
		return err
	}
	return nil
}

func (s *stream) writeHandshake(frame string) error {
	if err := s.conn.SetWriteDeadline(time.Now().Add(s.cfg.DialTimeout)); err != nil {
		return err
	}
	return s.conn.WriteMessage(websocket.TextMessage, []byte(frame))
}

// readHandshake reads one frame and requires its root element to be one of
// the expected names. Unexpected frames fail the handshake.
func (s *stream) readHandshake(expected ...string) (string, error) {
	if err := s.conn.SetReadDeadline(time.Now().Add(s.cfg.DialTimeout)); err != nil {
		return "", &wire.ConnError{Err: err}
	}

	_, data, err := s.conn.ReadMessage()
	if err != nil {
		return "", &wire.ConnError{Err: err}
	}

	name, err := rootElement(string(data))
	if err != nil {
		return "", &wire.ConnError{Err: err}
	}
	for _, want := range expected {
		if name == want {
			return name, nil
		}
	}
	return "", &wire.ConnError{Err: fmt.Errorf("unexpected %q frame during handshake", name)}
}

// readFrames pumps established-stream frames into the signal channel. It
// ends when the connection fails, the remote closes the stream, or Close
// aborts delivery.
func (s *stream) readFrames() {
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.emit(wire.Closed(nil))
			} else {
				s.emit(wire.Closed(&wire.ConnError{Err: err}))
			}
			return
		}

		payload := string(data)
		name, err := rootElement(payload)
		if err != nil {
			s.logger.Warn().Err(err).Msg("Dropping unparsable inbound frame")
			continue
		}
		if name == "close" {
			s.emit(wire.Closed(nil))
			return
		}
		if !s.emit(wire.Received(payload)) {
			return
		}
	}
}

// rootElement returns the local name of a frame's root element.
func rootElement(payload string) (string, error) {
	decoder := xml.NewDecoder(strings.NewReader(payload))
	for {
		token, err := decoder.Token()
		if err != nil {
			return "", fmt.Errorf("frame has no root element: %w", err)
		}
		if start, ok := token.(xml.StartElement); ok {
			return start.Name.Local, nil
		}
	}
}
