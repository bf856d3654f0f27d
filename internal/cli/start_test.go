package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartCommand(t *testing.T) {
	t.Run("help text", func(t *testing.T) {
		cmd := GetRootCmd()
		cmd.SetArgs([]string{"start", "--help"})

		output := &bytes.Buffer{}
		cmd.SetOut(output)

		err := cmd.Execute()
		require.NoError(t, err)

		helpText := output.String()
		assert.Contains(t, helpText, "Start the verso daemon service")
	})

	t.Run("daemon not running", func(t *testing.T) {
		pidFile := filepath.Join(t.TempDir(), "test.pid")
		assert.False(t, isRunning(pidFile))
	})

	t.Run("stale pid file", func(t *testing.T) {
		pidFile := filepath.Join(t.TempDir(), "test.pid")

		// A PID that cannot be a live process
		require.NoError(t, os.WriteFile(pidFile, []byte("999999"), 0644))
		assert.False(t, isRunning(pidFile))
	})

	t.Run("own pid counts as running", func(t *testing.T) {
		pidFile := filepath.Join(t.TempDir(), "test.pid")

		require.NoError(t, os.WriteFile(pidFile, []byte(strconv.Itoa(os.Getpid())), 0644))
		assert.True(t, isRunning(pidFile))
	})
}

func TestGetPIDFilePath(t *testing.T) {
	path := getPIDFilePath()
	assert.NotEmpty(t, path)
	assert.Contains(t, path, "verso.pid")
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "5s", formatDuration(5e9))
	assert.Equal(t, "2m10s", formatDuration(130e9))
	assert.Equal(t, "1h1m5s", formatDuration(3665e9))
}
