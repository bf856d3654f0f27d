package daemon

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/taylen/verso/internal/config"
	"github.com/taylen/verso/pkg/connection"
)

// Keepalive sends periodic ping stanzas on every writable session so
// quiet streams keep producing inbound traffic inside the read timeout.
type Keepalive struct {
	manager *connection.Manager
	logger  zerolog.Logger

	mu  sync.Mutex
	cfg config.KeepaliveConfig
	c   *cron.Cron
}

// NewKeepalive creates a keepalive service
func NewKeepalive(manager *connection.Manager, cfg config.KeepaliveConfig, logger zerolog.Logger) *Keepalive {
	return &Keepalive{
		manager: manager,
		logger:  logger,
		cfg:     cfg,
	}
}

// Start starts the keepalive schedule
func (k *Keepalive) Start() error {
	k.mu.Lock()
	defer k.mu.Unlock()

	return k.startLocked()
}

func (k *Keepalive) startLocked() error {
	if !k.cfg.Enabled {
		k.logger.Info().Msg("Keepalive disabled")
		return nil
	}

	c := cron.New()
	if _, err := c.AddFunc(k.cfg.Schedule, k.pingAll); err != nil {
		return fmt.Errorf("invalid keepalive schedule %q: %w", k.cfg.Schedule, err)
	}

	c.Start()
	k.c = c

	k.logger.Info().Str("schedule", k.cfg.Schedule).Msg("Keepalive started")
	return nil
}

// Stop stops the keepalive schedule
func (k *Keepalive) Stop() {
	k.mu.Lock()
	defer k.mu.Unlock()

	k.stopLocked()
}

func (k *Keepalive) stopLocked() {
	if k.c != nil {
		<-k.c.Stop().Done()
		k.c = nil
	}
}

// Update replaces the schedule. Used on config reload.
func (k *Keepalive) Update(cfg config.KeepaliveConfig) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if cfg == k.cfg {
		return
	}

	k.stopLocked()
	k.cfg = cfg

	if err := k.startLocked(); err != nil {
		k.logger.Error().Err(err).Msg("Failed to apply keepalive config")
	}
}

// pingAll sends one ping on each writable session
func (k *Keepalive) pingAll() {
	for _, session := range k.manager.List() {
		if !session.Writable {
			continue
		}

		stanza := fmt.Sprintf(
			`<iq type="get" id="%s"><ping xmlns="urn:xmpp:ping"/></iq>`,
			uuid.NewString(),
		)

		if err := k.manager.Send(session.ID, stanza); err != nil {
			k.logger.Debug().
				Err(err).
				Str("session_id", session.ID).
				Msg("Keepalive ping failed")
			continue
		}

		k.logger.Debug().Str("session_id", session.ID).Msg("Keepalive ping sent")
	}
}
