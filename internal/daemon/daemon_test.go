package daemon

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taylen/verso/internal/config"
	"github.com/taylen/verso/internal/logger"
)

func testDaemon(t *testing.T, port int) *Daemon {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.DataDir = t.TempDir()
	cfg.Gateway.Port = port
	cfg.Gateway.SharedSecret = "test-secret"
	cfg.Keepalive.Enabled = false
	cfg.Logging.Level = "error"

	log, err := logger.New(logger.Config{Level: "error", Console: false})
	require.NoError(t, err)
	t.Cleanup(func() { log.Close() })

	d, err := New(cfg, log)
	require.NoError(t, err)

	return d
}

func TestDaemonStartStop(t *testing.T) {
	d := testDaemon(t, 19561)

	require.NoError(t, d.Start())

	status := d.Status()
	assert.True(t, status.Running)
	assert.Equal(t, 0, status.Sessions)

	// Gateway should be serving
	resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/healthz", 19561))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, d.Stop())
	assert.False(t, d.Status().Running)
}

func TestDaemonDoubleStart(t *testing.T) {
	d := testDaemon(t, 19562)

	require.NoError(t, d.Start())
	defer d.Stop()

	assert.Error(t, d.Start())
}

func TestDaemonStopWithoutStart(t *testing.T) {
	d := testDaemon(t, 19563)
	assert.Error(t, d.Stop())
}

func TestLifecycleManager(t *testing.T) {
	d := testDaemon(t, 19564)

	lifecycle := NewLifecycleManager(d)
	require.NoError(t, lifecycle.Start())

	pid, err := lifecycle.GetPID()
	require.NoError(t, err)
	assert.Greater(t, pid, 0)
	assert.True(t, lifecycle.IsRunning())

	require.NoError(t, lifecycle.Stop())

	_, err = lifecycle.GetPID()
	assert.Error(t, err)
}

func TestDaemonStatusUptime(t *testing.T) {
	d := testDaemon(t, 19565)

	require.NoError(t, d.Start())
	defer d.Stop()

	time.Sleep(20 * time.Millisecond)
	status := d.Status()
	assert.Greater(t, status.Uptime, time.Duration(0))
	assert.False(t, status.StartTime.IsZero())
}
