package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStopCommand(t *testing.T) {
	t.Run("help text", func(t *testing.T) {
		cmd := GetRootCmd()
		cmd.SetArgs([]string{"stop", "--help"})

		output := &bytes.Buffer{}
		cmd.SetOut(output)

		err := cmd.Execute()
		require.NoError(t, err)

		helpText := output.String()
		assert.Contains(t, helpText, "Stop the verso daemon service")
		assert.Contains(t, helpText, "timeout")
	})
}

func TestReadPID(t *testing.T) {
	t.Run("valid pid file", func(t *testing.T) {
		pidFile := filepath.Join(t.TempDir(), "test.pid")
		require.NoError(t, os.WriteFile(pidFile, []byte("1234"), 0644))

		pid, err := readPID(pidFile)
		require.NoError(t, err)
		assert.Equal(t, 1234, pid)
	})

	t.Run("missing pid file", func(t *testing.T) {
		_, err := readPID(filepath.Join(t.TempDir(), "missing.pid"))
		assert.Error(t, err)
	})

	t.Run("malformed pid file", func(t *testing.T) {
		pidFile := filepath.Join(t.TempDir(), "test.pid")
		require.NoError(t, os.WriteFile(pidFile, []byte("not-a-pid"), 0644))

		_, err := readPID(pidFile)
		assert.Error(t, err)
	})
}

func TestStatusCommand(t *testing.T) {
	t.Run("help text", func(t *testing.T) {
		cmd := GetRootCmd()
		cmd.SetArgs([]string{"status", "--help"})

		output := &bytes.Buffer{}
		cmd.SetOut(output)

		err := cmd.Execute()
		require.NoError(t, err)

		assert.Contains(t, output.String(), "status")
	})
}
