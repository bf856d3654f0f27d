package gateway

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taylen/verso/pkg/connection"
	"github.com/taylen/verso/pkg/jid"
	"github.com/taylen/verso/pkg/wire"
)

type stubWriter struct{}

func (stubWriter) WritePacket(wire.Packet) error { return nil }

type stubTransport struct {
	signals chan wire.Signal
}

func newStubTransport() *stubTransport {
	return &stubTransport{signals: make(chan wire.Signal, 16)}
}

func (t *stubTransport) Writer() connection.PacketWriter { return stubWriter{} }
func (t *stubTransport) Signals() <-chan wire.Signal     { return t.signals }
func (t *stubTransport) Close() error                    { return nil }

func newTestServer(t *testing.T) *Server {
	t.Helper()

	manager, err := connection.NewManager(connection.Config{
		Dialer: func(address jid.JID, credential string) connection.Transport {
			transport := newStubTransport()
			transport.signals <- wire.Online()
			return transport
		},
		Observer: connection.ObserverFuncs{},
		Logger:   zerolog.Nop(),
	})
	require.NoError(t, err)

	server, err := NewServer(Config{
		Port:         18080,
		SharedSecret: "test-secret",
		Manager:      manager,
		Logger:       zerolog.Nop(),
	})
	require.NoError(t, err)

	return server
}

func routeCall(server *Server, method string, params map[string]interface{}) *RPCResponse {
	return server.router.RouteRequest(&RPCRequest{
		ID:     "1",
		Method: method,
		Params: params,
	})
}

func TestStreamOpenMethod(t *testing.T) {
	server := newTestServer(t)

	t.Run("should open a session", func(t *testing.T) {
		resp := routeCall(server, "stream.open", map[string]interface{}{
			"id":         "s1",
			"address":    "alice@example.org/laptop",
			"credential": "hunter2",
		})
		require.Nil(t, resp.Error)

		result := resp.Result.(map[string]interface{})
		assert.Equal(t, "s1", result["id"])
		assert.Equal(t, 1, server.manager.Count())
	})

	t.Run("should reject duplicate session id", func(t *testing.T) {
		resp := routeCall(server, "stream.open", map[string]interface{}{
			"id":      "s1",
			"address": "bob@example.org/desk",
		})
		require.NotNil(t, resp.Error)
		assert.Equal(t, SessionConflict, resp.Error.Code)
	})

	t.Run("should reject invalid address", func(t *testing.T) {
		resp := routeCall(server, "stream.open", map[string]interface{}{
			"id":      "s2",
			"address": "not a jid",
		})
		require.NotNil(t, resp.Error)
		assert.Equal(t, InvalidParams, resp.Error.Code)
	})

	t.Run("should require id parameter", func(t *testing.T) {
		resp := routeCall(server, "stream.open", map[string]interface{}{
			"address": "alice@example.org/laptop",
		})
		require.NotNil(t, resp.Error)
		assert.Equal(t, InvalidParams, resp.Error.Code)
	})
}

func TestStreamSendMethod(t *testing.T) {
	server := newTestServer(t)

	resp := routeCall(server, "stream.open", map[string]interface{}{
		"id":      "s1",
		"address": "alice@example.org/laptop",
	})
	require.Nil(t, resp.Error)

	t.Run("should send a stanza", func(t *testing.T) {
		resp := routeCall(server, "stream.send", map[string]interface{}{
			"id":     "s1",
			"stanza": "<message to='bob@example.org'><body>hi</body></message>",
		})
		require.Nil(t, resp.Error)

		result := resp.Result.(map[string]interface{})
		assert.Equal(t, true, result["sent"])
	})

	t.Run("should reject malformed stanza", func(t *testing.T) {
		resp := routeCall(server, "stream.send", map[string]interface{}{
			"id":     "s1",
			"stanza": "<message><body>hi</message>",
		})
		require.NotNil(t, resp.Error)
		assert.Equal(t, InvalidParams, resp.Error.Code)
	})

	t.Run("should report unknown session", func(t *testing.T) {
		resp := routeCall(server, "stream.send", map[string]interface{}{
			"id":     "missing",
			"stanza": "<message/>",
		})
		require.NotNil(t, resp.Error)
		assert.Equal(t, SessionNotFound, resp.Error.Code)
	})
}

func TestStreamListMethod(t *testing.T) {
	server := newTestServer(t)

	resp := routeCall(server, "stream.open", map[string]interface{}{
		"id":      "s1",
		"address": "alice@example.org/laptop",
	})
	require.Nil(t, resp.Error)

	resp = routeCall(server, "stream.list", nil)
	require.Nil(t, resp.Error)

	result := resp.Result.(map[string]interface{})
	sessions := result["sessions"].([]map[string]interface{})
	require.Len(t, sessions, 1)
	assert.Equal(t, "s1", sessions[0]["id"])
	assert.Equal(t, "alice@example.org", sessions[0]["identity"])
	assert.Equal(t, true, sessions[0]["writable"])
}

func TestStreamCloseAndDestroyMethods(t *testing.T) {
	server := newTestServer(t)

	resp := routeCall(server, "stream.open", map[string]interface{}{
		"id":      "s1",
		"address": "alice@example.org/laptop",
	})
	require.Nil(t, resp.Error)

	t.Run("should close the session", func(t *testing.T) {
		resp := routeCall(server, "stream.close", map[string]interface{}{"id": "s1"})
		require.Nil(t, resp.Error)

		result := resp.Result.(map[string]interface{})
		assert.Equal(t, true, result["closed"])
	})

	t.Run("should report close of unknown session", func(t *testing.T) {
		resp := routeCall(server, "stream.close", map[string]interface{}{"id": "missing"})
		require.NotNil(t, resp.Error)
		assert.Equal(t, SessionNotFound, resp.Error.Code)
	})

	t.Run("should destroy the session", func(t *testing.T) {
		resp := routeCall(server, "stream.destroy", map[string]interface{}{"id": "s1"})
		require.Nil(t, resp.Error)
		assert.Equal(t, 0, server.manager.Count())
	})

	t.Run("destroy of unknown session is a no-op", func(t *testing.T) {
		resp := routeCall(server, "stream.destroy", map[string]interface{}{"id": "missing"})
		require.Nil(t, resp.Error)
	})
}

func TestServerStatusMethod(t *testing.T) {
	server := newTestServer(t)

	resp := routeCall(server, "server.status", nil)
	require.Nil(t, resp.Error)

	result := resp.Result.(map[string]interface{})
	assert.Equal(t, "ok", result["status"])
	assert.Equal(t, 0, result["sessions"])
	assert.Equal(t, 0, result["clients"])
}

func TestStreamOpenTimeoutOption(t *testing.T) {
	var stateCh = make(chan connection.State, 8)

	manager, err := connection.NewManager(connection.Config{
		Dialer: func(address jid.JID, credential string) connection.Transport {
			transport := newStubTransport()
			transport.signals <- wire.Online()
			return transport
		},
		Observer: connection.ObserverFuncs{
			OnStateChanged: func(id string, state connection.State) {
				stateCh <- state
			},
		},
		Logger: zerolog.Nop(),
	})
	require.NoError(t, err)

	server, err := NewServer(Config{
		Port:         18081,
		SharedSecret: "test-secret",
		Manager:      manager,
		Logger:       zerolog.Nop(),
	})
	require.NoError(t, err)

	resp := routeCall(server, "stream.open", map[string]interface{}{
		"id":        "s1",
		"address":   "alice@example.org/laptop",
		"timeoutMs": float64(50),
	})
	require.Nil(t, resp.Error)

	// The 50ms read timeout should abort the quiet stream.
	require.Equal(t, connection.StateConnected, waitState(t, stateCh))
	require.Equal(t, connection.StateConnectionTimeout, waitState(t, stateCh))
	require.Equal(t, connection.StateDisconnected, waitState(t, stateCh))
}

func waitState(t *testing.T, ch <-chan connection.State) connection.State {
	t.Helper()

	select {
	case state := <-ch:
		return state
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for state change")
		return ""
	}
}
