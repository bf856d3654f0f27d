package daemon

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/taylen/verso/internal/config"
	"github.com/taylen/verso/internal/logger"
	"github.com/taylen/verso/internal/observability"
	"github.com/taylen/verso/pkg/connection"
	"github.com/taylen/verso/pkg/gateway"
	"github.com/taylen/verso/pkg/transport"
)

// Daemon wires together the session manager, the WebSocket transport,
// the gateway server and the keepalive schedule.
type Daemon struct {
	config *config.Config
	logger *logger.Logger

	manager       *connection.Manager
	gatewayServer *gateway.Server
	keepalive     *Keepalive
	configWatcher *config.Watcher

	eventLoop *EventLoop
	lifecycle *LifecycleManager

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	startTime time.Time
	running   bool
	mu        sync.RWMutex
}

// Status represents daemon status
type Status struct {
	Running   bool
	Uptime    time.Duration
	StartTime time.Time
	Sessions  int
}

// New creates a new daemon instance
func New(cfg *config.Config, log *logger.Logger) (*Daemon, error) {
	ctx, cancel := context.WithCancel(context.Background())

	observability.EnsureRegistered()

	d := &Daemon{
		config: cfg,
		logger: log,
		ctx:    ctx,
		cancel: cancel,
	}

	zl := log.GetZerolog()

	dialer := transport.NewDialer(transport.Config{
		URL:          cfg.Transport.URL,
		DialTimeout:  time.Duration(cfg.Transport.DialTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.Transport.WriteTimeoutSec) * time.Second,
		Logger:       zl.With().Str("component", "transport").Logger(),
	})

	// The manager reports events to the gateway, and the gateway drives
	// the manager. The relay breaks the construction cycle.
	relay := &observerRelay{}

	manager, err := connection.NewManager(connection.Config{
		Dialer:      dialer,
		Observer:    relay,
		Logger:      zl.With().Str("component", "connection").Logger(),
		ReadTimeout: time.Duration(cfg.Session.ReadTimeoutMs) * time.Millisecond,
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create session manager: %w", err)
	}

	gatewayServer, err := gateway.NewServer(gateway.Config{
		Port:         cfg.Gateway.Port,
		SharedSecret: cfg.Gateway.SharedSecret,
		TickInterval: time.Duration(cfg.Gateway.TickIntervalSec) * time.Second,
		Manager:      manager,
		Logger:       zl.With().Str("component", "gateway").Logger(),
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create gateway server: %w", err)
	}
	relay.Set(gatewayServer.Observer())

	d.manager = manager
	d.gatewayServer = gatewayServer
	d.keepalive = NewKeepalive(manager, cfg.Keepalive, zl.With().Str("component", "keepalive").Logger())
	d.eventLoop = NewEventLoop(d)
	d.lifecycle = NewLifecycleManager(d)

	return d, nil
}

// Start starts the daemon
func (d *Daemon) Start() error {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return fmt.Errorf("daemon is already running")
	}
	d.running = true
	d.startTime = time.Now()
	d.mu.Unlock()

	d.logger.Info().Msg("Starting verso daemon")

	if err := d.lifecycle.Start(); err != nil {
		return fmt.Errorf("failed to start lifecycle manager: %w", err)
	}

	if err := d.gatewayServer.Start(); err != nil {
		return fmt.Errorf("failed to start gateway server: %w", err)
	}
	d.logger.Info().Msg("Gateway server started")

	if err := d.keepalive.Start(); err != nil {
		return fmt.Errorf("failed to start keepalive: %w", err)
	}

	d.startConfigWatcher()

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.eventLoop.Run(d.ctx)
	}()

	d.logger.Info().Msg("Verso daemon started")
	return nil
}

// Stop stops the daemon
func (d *Daemon) Stop() error {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return fmt.Errorf("daemon is not running")
	}
	d.running = false
	d.mu.Unlock()

	d.logger.Info().Msg("Stopping verso daemon")

	if d.configWatcher != nil {
		if err := d.configWatcher.Stop(); err != nil {
			d.logger.Error().Err(err).Msg("Failed to stop config watcher")
		}
		d.configWatcher = nil
	}

	d.keepalive.Stop()

	// Close sessions cleanly before taking the gateway down so clients
	// see the disconnected events.
	for _, session := range d.manager.List() {
		if err := d.manager.Close(session.ID); err != nil {
			d.logger.Warn().Err(err).Str("session_id", session.ID).Msg("Failed to close session")
		}
		d.manager.Destroy(session.ID)
	}

	if err := d.gatewayServer.Stop(); err != nil {
		d.logger.Error().Err(err).Msg("Failed to stop gateway server")
	}

	d.cancel()
	d.wg.Wait()

	if err := d.lifecycle.Stop(); err != nil {
		d.logger.Error().Err(err).Msg("Failed to stop lifecycle manager")
	}

	d.logger.Info().Msg("Verso daemon stopped")
	return nil
}

// Wait blocks until an interrupt or termination signal arrives, then
// stops the daemon.
func (d *Daemon) Wait() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	d.logger.Info().Str("signal", sig.String()).Msg("Received signal")

	if err := d.Stop(); err != nil {
		d.logger.Error().Err(err).Msg("Failed to stop daemon")
	}
}

// Status returns the daemon status
func (d *Daemon) Status() Status {
	d.mu.RLock()
	defer d.mu.RUnlock()

	status := Status{
		Running:  d.running,
		Sessions: d.manager.Count(),
	}

	if d.running {
		status.Uptime = time.Since(d.startTime)
		status.StartTime = d.startTime
	}

	return status
}

// GetConfig returns the daemon configuration
func (d *Daemon) GetConfig() *config.Config {
	return d.config
}

// GetLogger returns the daemon logger
func (d *Daemon) GetLogger() *logger.Logger {
	return d.logger
}

// GetManager returns the session manager
func (d *Daemon) GetManager() *connection.Manager {
	return d.manager
}

// GetGatewayServer returns the gateway server
func (d *Daemon) GetGatewayServer() *gateway.Server {
	return d.gatewayServer
}

// startConfigWatcher wires hot reload for the settings that can change
// at runtime. Transport and gateway settings require a restart.
func (d *Daemon) startConfigWatcher() {
	loader := config.NewLoader("")
	zl := d.logger.GetZerolog()

	watcher, err := config.NewWatcher(loader, zl.With().Str("component", "config").Logger(), func(cfg *config.Config) {
		d.applyConfig(cfg)
	})
	if err != nil {
		d.logger.Warn().Err(err).Msg("Config watcher unavailable, hot reload disabled")
		return
	}

	d.configWatcher = watcher
}

func (d *Daemon) applyConfig(cfg *config.Config) {
	if level, err := zerolog.ParseLevel(cfg.Logging.Level); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	if cfg.Keepalive != d.config.Keepalive {
		d.keepalive.Update(cfg.Keepalive)
	}

	if cfg.Gateway != d.config.Gateway || cfg.Transport != d.config.Transport {
		d.logger.Warn().Msg("Gateway and transport changes take effect after restart")
	}

	d.mu.Lock()
	d.config = cfg
	d.mu.Unlock()
}
