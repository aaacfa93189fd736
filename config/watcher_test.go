package config

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func writeConfig(t *testing.T, path, body string, mod time.Time) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	require.NoError(t, os.Chtimes(path, mod, mod))
}

func TestNewWatcher_RequiresPath(t *testing.T) {
	_, err := NewWatcher(NewLoader())
	require.Error(t, err)

	_, err = NewWatcher(nil)
	require.Error(t, err)
}

func TestNewWatcher_MissingFile(t *testing.T) {
	w, err := NewWatcher(NewLoader().WithConfigPath(filepath.Join(t.TempDir(), "later.yaml")))
	require.NoError(t, err)
	assert.False(t, w.exists)
	assert.False(t, w.IsRunning())
}

func TestWatcher_Changed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jsoninfer.yaml")
	base := time.Now().Add(-time.Hour)
	writeConfig(t, path, "server:\n  http_port: 8081\n", base)

	w, err := NewWatcher(NewLoader().WithConfigPath(path))
	require.NoError(t, err)
	assert.False(t, w.changed())

	writeConfig(t, path, "server:\n  http_port: 8082\n", base.Add(time.Minute))
	assert.True(t, w.changed())
	assert.False(t, w.changed())

	require.NoError(t, os.Remove(path))
	assert.False(t, w.changed())

	// 重新创建视为变更
	writeConfig(t, path, "server:\n  http_port: 8083\n", base)
	assert.True(t, w.changed())
}

func TestWatcher_ReloadInvokesCallbacks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jsoninfer.yaml")
	writeConfig(t, path, "providers:\n  ollama:\n    max_attempts: 4\n", time.Now())

	w, err := NewWatcher(NewLoader().WithConfigPath(path), WithWatcherLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)

	var got *Config
	w.OnReload(func(c *Config) { got = c })

	require.NoError(t, w.reload())
	require.NotNil(t, got)
	assert.Equal(t, 4, got.Providers["ollama"].MaxAttempts)
}

func TestWatcher_ReloadRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jsoninfer.yaml")
	writeConfig(t, path, "log:\n  level: loud\n", time.Now())

	w, err := NewWatcher(NewLoader().WithConfigPath(path))
	require.NoError(t, err)

	called := false
	w.OnReload(func(*Config) { called = true })

	require.Error(t, w.reload())
	assert.False(t, called)
}

func TestWatcher_StartDetectsChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jsoninfer.yaml")
	base := time.Now().Add(-time.Hour)
	writeConfig(t, path, "server:\n  http_port: 8081\n", base)

	w, err := NewWatcher(NewLoader().WithConfigPath(path),
		WithPollInterval(10*time.Millisecond),
		WithDebounceDelay(10*time.Millisecond),
		WithWatcherLogger(zaptest.NewLogger(t)),
	)
	require.NoError(t, err)

	var port atomic.Int64
	w.OnReload(func(c *Config) { port.Store(int64(c.Server.HTTPPort)) })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	require.Error(t, w.Start(ctx))
	assert.True(t, w.IsRunning())
	defer w.Stop()

	writeConfig(t, path, "server:\n  http_port: 9191\n", base.Add(time.Minute))

	assert.Eventually(t, func() bool { return port.Load() == 9191 }, 2*time.Second, 10*time.Millisecond)
}

func TestWatcher_StopIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jsoninfer.yaml")
	writeConfig(t, path, "{}\n", time.Now())

	w, err := NewWatcher(NewLoader().WithConfigPath(path))
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	w.Stop()
	w.Stop()
	assert.False(t, w.IsRunning())
}
