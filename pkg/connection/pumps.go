package connection

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/taylen/verso/internal/observability"
	"github.com/taylen/verso/pkg/wire"
)

// readLoop is the inbound pump: it waits for transport signals under a
// rolling timeout and classifies each one into a state report or a payload
// delivery. The timeout window resets after every received signal; it exists
// because the transport itself never times out an idle stream, and should
// track the keepalive interval of the session initiator.
func readLoop(ctx context.Context, n *notifier, timeout time.Duration, signals <-chan wire.Signal, logger zerolog.Logger) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-timer.C:
			logger.Warn().
				Dur("timeout", timeout).
				Msg("Timed out waiting for next signal")
			observability.RecordReadTimeout()
			n.reportAbort(StateConnectionTimeout)
			return errPollTimeout

		case sig, ok := <-signals:
			if !ok {
				// Source ended with no closing signal.
				n.reportAbort(StateDisconnected)
				return nil
			}
			done, err := handleSignal(n, sig, logger)
			if done {
				return err
			}
			if !timer.Stop() {
				<-timer.C
			}
			timer.Reset(timeout)
		}
	}
}

// handleSignal classifies one inbound signal. It returns done=true when the
// pump must stop, with the pump-level error for logging.
func handleSignal(n *notifier, sig wire.Signal, logger zerolog.Logger) (bool, error) {
	switch sig.Kind {
	case wire.StreamOnline:
		logger.Info().Msg("Received connected signal")
		n.connected()
		return false, nil

	case wire.StanzaReceived:
		logger.Debug().Msg("Received stanza signal")
		n.received(sig.Payload)
		return false, nil

	case wire.StreamClosed:
		return true, classifyClose(n, sig.Err, logger)

	default:
		logger.Warn().Int("kind", int(sig.Kind)).Msg("Ignoring unknown signal kind")
		return false, nil
	}
}

// classifyClose maps a stream-end reason onto the terminal state taxonomy:
// clean close, authentication layer, connection layer, then everything else.
func classifyClose(n *notifier, cause error, logger zerolog.Logger) error {
	if cause == nil {
		logger.Info().Msg("Received disconnected signal")
		n.reportAbort(StateDisconnected)
		return nil
	}

	var authErr *wire.AuthError
	if errors.As(cause, &authErr) {
		logger.Warn().Err(cause).Msg("Received disconnected signal with authentication error")
		n.reportAbort(StateAuthenticationFailure)
		return errPollAuth
	}

	var connErr *wire.ConnError
	if errors.As(cause, &connErr) {
		logger.Warn().Err(cause).Msg("Received disconnected signal with connection error")
		n.reportAbort(StateConnectionError)
		return errPollConn
	}

	logger.Warn().Err(cause).Msg("Received disconnected signal with error")
	n.reportAbort(StateConnectionError)
	return errPollOther
}

// writeLoop is the outbound pump: it drains the session queue and forwards
// packets to the transport sink sequentially, in submission order. It stops
// when the queue closes or a write fails. A write failure does not touch
// the registry; the failed queue is left for send or close to discover.
func writeLoop(queue *outQueue, writer PacketWriter, logger zerolog.Logger) error {
	// The pump is the queue's only consumer; once it returns, producers
	// must fail fast so recovery can run.
	defer queue.close()

	for {
		pkt, ok := queue.pop()
		if !ok {
			return nil
		}

		if err := writer.WritePacket(pkt); err != nil {
			logger.Error().Err(err).Msg("Failed sending packet over session")
			return errPacketSend
		}

		observability.RecordFrameSent()
		logger.Debug().Msg("Sent packet over session")
	}
}
