package daemon

import (
	"context"
	"time"
)

// EventLoop handles the main event processing loop
type EventLoop struct {
	daemon *Daemon
}

// NewEventLoop creates a new event loop
func NewEventLoop(d *Daemon) *EventLoop {
	return &EventLoop{
		daemon: d,
	}
}

// Run runs the event loop with periodic maintenance tasks
func (e *EventLoop) Run(ctx context.Context) {
	e.daemon.logger.Info().Msg("Event loop started")

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.daemon.logger.Info().Msg("Event loop stopping")
			return

		case <-ticker.C:
			e.processTasks()
		}
	}
}

// processTasks processes periodic maintenance tasks
func (e *EventLoop) processTasks() {
	sessions := e.daemon.manager.List()

	writable := 0
	for _, s := range sessions {
		if s.Writable {
			writable++
		}
	}

	if len(sessions) > 0 {
		e.daemon.logger.Debug().
			Int("sessions", len(sessions)).
			Int("writable", writable).
			Msg("Session stats")
	}
}
