// Package connection implements the session lifecycle core: a registry of
// concurrent long-lived stream sessions, the paired inbound/outbound pumps
// driving each of them, and the recovery path for a dead outbound channel.
package connection

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/taylen/verso/internal/observability"
	"github.com/taylen/verso/pkg/jid"
	"github.com/taylen/verso/pkg/wire"
)

// DefaultReadTimeout bounds the wait for the next transport signal when a
// session does not override it. It should track the keepalive interval used
// by the session initiator.
const DefaultReadTimeout = 300000 * time.Millisecond

// Config holds manager dependencies and defaults.
type Config struct {
	Dialer      Dialer
	Observer    Observer
	Logger      zerolog.Logger
	ReadTimeout time.Duration
}

// Manager is the session registry and lifecycle controller. It is the only
// shared mutable structure; the lock guards the map alone and is never held
// across a blocking operation.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*sessionEntry

	dial        Dialer
	observer    Observer
	logger      zerolog.Logger
	readTimeout time.Duration
}

// SessionInfo is a read-only snapshot of one registry entry.
type SessionInfo struct {
	ID       string    `json:"id"`
	Identity string    `json:"identity"`
	OpenedAt time.Time `json:"openedAt"`
	Writable bool      `json:"writable"`
}

// NewManager creates a session manager.
func NewManager(cfg Config) (*Manager, error) {
	observability.EnsureRegistered()

	if cfg.Dialer == nil {
		return nil, fmt.Errorf("dialer is required")
	}
	if cfg.Observer == nil {
		return nil, fmt.Errorf("observer is required")
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = DefaultReadTimeout
	}

	return &Manager{
		sessions:    make(map[string]*sessionEntry),
		dial:        cfg.Dialer,
		observer:    cfg.Observer,
		logger:      cfg.Logger,
		readTimeout: cfg.ReadTimeout,
	}, nil
}

type openOptions struct {
	readTimeout time.Duration
}

// OpenOption overrides per-session open behavior.
type OpenOption func(*openOptions)

// WithReadTimeout overrides the rolling read-timeout window for a session.
func WithReadTimeout(d time.Duration) OpenOption {
	return func(o *openOptions) {
		if d > 0 {
			o.readTimeout = d
		}
	}
}

// Open registers a new session and starts its transport and pumps. The id
// must be unused and no live session may hold the same bare identity. Open
// sends no observer notification itself: the connected report arrives from
// the inbound pump once the transport actually signals establishment.
func (m *Manager) Open(id, address, credential string, opts ...OpenOption) error {
	options := openOptions{readTimeout: m.readTimeout}
	for _, opt := range opts {
		opt(&options)
	}

	logger := m.logger.With().Str("session_id", id).Logger()
	logger.Info().Str("address", address).Msg("Session open requested")

	full, err := jid.Parse(address)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	bare := full.Bare()

	// Build the complete entry before taking the lock: every step here is
	// a plain allocation, so the entry can be registered in the same
	// critical section that validates uniqueness. This closes the window
	// in which a concurrent open for the same identity could pass the scan
	// before this one inserts.
	entry := newSessionEntry(id, bare, m.observer, logger)

	m.mu.Lock()
	if _, exists := m.sessions[id]; exists {
		m.mu.Unlock()
		entry.abort()
		return ErrSessionAlreadyExists
	}
	for otherID, other := range m.sessions {
		if other.identity.Equal(bare) {
			m.mu.Unlock()
			entry.abort()
			logger.Error().
				Str("conflicting_session_id", otherID).
				Msg("Session open request conflicts with a bound identity")
			return ErrAnotherSessionBound
		}
	}
	m.sessions[id] = entry
	count := len(m.sessions)
	m.mu.Unlock()

	observability.SetActiveSessions(count)

	transport := m.dial(full, credential)
	m.startPumps(entry, transport, options.readTimeout, logger)

	logger.Info().Int("sessions", count).Msg("Session open request complete")
	return nil
}

// Send validates a payload and enqueues it on the session's outbound queue.
// A dead queue means the write pump is gone: recovery runs before the error
// returns so observers learn about the implicit disconnection.
func (m *Manager) Send(id, payload string) error {
	entry, ok := m.lookup(id)
	if !ok {
		m.logger.Error().Str("session_id", id).Msg("Session send request failed, session does not exist")
		return ErrSessionNotFound
	}

	if err := wire.ValidateStanza(payload); err != nil {
		return fmt.Errorf("%w: %v", ErrCannotParse, err)
	}

	if err := entry.queue.push(wire.Stanza(payload)); err != nil {
		observability.RecordSendFailure()
		m.recover(entry)
		return ErrCannotWrite
	}

	m.logger.Debug().Str("session_id", id).Msg("Session send request complete")
	return nil
}

// Close requests a graceful shutdown: it aborts the inbound pump so no
// further signals are processed, enqueues the stream-end sentinel, and
// reports disconnected immediately. The remote may never acknowledge a
// clean close, especially after a network failure, so close never waits
// for one.
func (m *Manager) Close(id string) error {
	entry, ok := m.lookup(id)
	if !ok {
		m.logger.Error().Str("session_id", id).Msg("Session close request failed, session does not exist")
		return ErrSessionNotFound
	}

	entry.readCancel()

	if err := entry.queue.push(wire.StreamEnd()); err != nil {
		observability.RecordSendFailure()
		m.recover(entry)
		return ErrCannotWrite
	}

	entry.notifier.reportAbort(StateDisconnected)
	m.logger.Info().Str("session_id", id).Msg("Session close request complete")
	return nil
}

// Destroy removes a session's bookkeeping: it aborts both pumps and drops
// the registry entry. Destroy never performs a protocol shutdown; callers
// invoke it only after observing a terminal state. Destroying an unknown id
// is a no-op.
func (m *Manager) Destroy(id string) {
	m.mu.Lock()
	entry, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	count := len(m.sessions)
	m.mu.Unlock()

	if !ok {
		m.logger.Warn().Str("session_id", id).Msg("Session destroy request complete, but was already destroyed")
		return
	}

	entry.abort()
	observability.SetActiveSessions(count)
	m.logger.Info().Str("session_id", id).Int("sessions", count).Msg("Session destroy request complete")
}

// List returns a snapshot of all registered sessions.
func (m *Manager) List() []SessionInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()

	infos := make([]SessionInfo, 0, len(m.sessions))
	for _, entry := range m.sessions {
		infos = append(infos, SessionInfo{
			ID:       entry.id,
			Identity: entry.identity.String(),
			OpenedAt: entry.openedAt,
			Writable: !entry.queue.isClosed(),
		})
	}
	return infos
}

// Count returns the number of registered sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *Manager) lookup(id string) (*sessionEntry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entry, ok := m.sessions[id]
	return entry, ok
}

// recover reconciles observer-visible state after send or close found the
// outbound queue without a consumer. The session is treated as implicitly
// disconnected: both pumps are aborted and a connection-error abort is
// reported. The entry stays registered until the caller destroys it.
func (m *Manager) recover(entry *sessionEntry) {
	m.logger.Info().
		Str("session_id", entry.id).
		Msg("Recovering: raising an implicit disconnected event for session")

	entry.abort()
	entry.notifier.reportAbort(StateConnectionError)
}

// startPumps spawns the paired pump goroutines for a freshly registered
// entry. The entry is already visible in the registry; a destroy racing
// this call only makes both pumps exit immediately and the transport close.
func (m *Manager) startPumps(entry *sessionEntry, transport Transport, readTimeout time.Duration, logger zerolog.Logger) {
	entry.attachTransport(transport)

	go func() {
		logger.Info().Msg("Session write pump has started")
		if err := writeLoop(entry.queue, transport.Writer(), logger); err != nil {
			logger.Warn().Err(err).Msg("Session write pump terminated with error")
		} else {
			logger.Info().Msg("Session write pump was stopped")
		}
	}()

	go func() {
		logger.Info().Dur("read_timeout", readTimeout).Msg("Session read pump has started")
		if err := readLoop(entry.readCtx, entry.notifier, readTimeout, transport.Signals(), logger); err != nil {
			logger.Warn().Err(err).Msg("Session read pump terminated with error")
			// The stream ended abnormally; release the transport now so a
			// timed-out session does not hold its connection open until the
			// caller destroys it.
			entry.abort()
		} else {
			logger.Info().Msg("Session read pump was stopped")
		}
	}()
}
