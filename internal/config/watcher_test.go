package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcherReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "verso.json")

	initial := `{"gateway": {"port": 8080, "shared_secret": "s1"}}`
	require.NoError(t, os.WriteFile(path, []byte(initial), 0644))

	loader := NewLoader(path)
	reloaded := make(chan *Config, 1)

	watcher, err := NewWatcher(loader, zerolog.Nop(), func(cfg *Config) {
		reloaded <- cfg
	})
	require.NoError(t, err)
	defer watcher.Stop()

	updated := `{"gateway": {"port": 9090, "shared_secret": "s2"}}`
	require.NoError(t, os.WriteFile(path, []byte(updated), 0644))

	select {
	case cfg := <-reloaded:
		assert.Equal(t, 9090, cfg.Gateway.Port)
		assert.Equal(t, "s2", cfg.Gateway.SharedSecret)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for config reload")
	}
}

func TestWatcherRejectsInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "verso.json")

	initial := `{"gateway": {"port": 8080, "shared_secret": "s1"}}`
	require.NoError(t, os.WriteFile(path, []byte(initial), 0644))

	loader := NewLoader(path)
	reloaded := make(chan *Config, 1)

	watcher, err := NewWatcher(loader, zerolog.Nop(), func(cfg *Config) {
		reloaded <- cfg
	})
	require.NoError(t, err)
	defer watcher.Stop()

	// Missing shared secret fails validation, so no callback fires.
	updated := `{"gateway": {"port": 9090}}`
	require.NoError(t, os.WriteFile(path, []byte(updated), 0644))

	select {
	case <-reloaded:
		t.Fatal("invalid config should not trigger reload")
	case <-time.After(1500 * time.Millisecond):
	}
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "verso.json")

	initial := `{"gateway": {"port": 8080, "shared_secret": "s1"}}`
	require.NoError(t, os.WriteFile(path, []byte(initial), 0644))

	loader := NewLoader(path)
	reloaded := make(chan *Config, 1)

	watcher, err := NewWatcher(loader, zerolog.Nop(), func(cfg *Config) {
		reloaded <- cfg
	})
	require.NoError(t, err)
	defer watcher.Stop()

	other := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(other, []byte("hello"), 0644))

	select {
	case <-reloaded:
		t.Fatal("unrelated file should not trigger reload")
	case <-time.After(1500 * time.Millisecond):
	}
}
