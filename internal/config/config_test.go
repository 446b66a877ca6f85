package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("SELF_IDENTITY", "alice")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "alice", cfg.Identity)
	assert.Equal(t, ":8080", cfg.Server.ListenAddr)
	assert.Equal(t, "./data/calls.db", cfg.Database.Path)
	assert.Equal(t, MediaEnginePion, cfg.Media.Engine)
	assert.Equal(t, 60*time.Second, cfg.Call.RingTimeout)
	assert.Equal(t, 2*time.Minute, cfg.Call.InviteFreshness)
	assert.Equal(t, 10*time.Second, cfg.Call.SendTimeout)
	assert.Equal(t, 50, cfg.Call.HistoryLimit)
	assert.Equal(t, 100, cfg.Call.ProcessedLimit)
	assert.Empty(t, cfg.Server.APISecret)
}

func TestLoadRequiresIdentity(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("SELF_IDENTITY", "")

	_, err := Load("")

	assert.ErrorContains(t, err, "SELF_IDENTITY")
}

func TestLoadFromEnvFile(t *testing.T) {
	chdir(t, t.TempDir())
	path := filepath.Join(t.TempDir(), "calls.env")
	content := "SELF_IDENTITY=bob\nRING_TIMEOUT=30s\nICE_SERVERS=stun:a.example:3478, turn:b.example:3478\nMEDIA_ENGINE=memory\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Cleanup(func() {
		for _, k := range []string{"SELF_IDENTITY", "RING_TIMEOUT", "ICE_SERVERS", "MEDIA_ENGINE"} {
			os.Unsetenv(k)
		}
	})

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "bob", cfg.Identity)
	assert.Equal(t, 30*time.Second, cfg.Call.RingTimeout)
	assert.Equal(t, []string{"stun:a.example:3478", "turn:b.example:3478"}, cfg.Media.ICEServers)
	assert.Equal(t, MediaEngineMemory, cfg.Media.Engine)
}

func TestLoadMissingEnvFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))

	assert.Error(t, err)
}

func TestLoadRejectsBadValues(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("SELF_IDENTITY", "alice")

	t.Setenv("RING_TIMEOUT", "soon")
	_, err := Load("")
	assert.ErrorContains(t, err, "RING_TIMEOUT")

	t.Setenv("RING_TIMEOUT", "")
	t.Setenv("HISTORY_LIMIT", "-1")
	_, err = Load("")
	assert.ErrorContains(t, err, "HISTORY_LIMIT")

	t.Setenv("HISTORY_LIMIT", "")
	t.Setenv("MEDIA_ENGINE", "gstreamer")
	_, err = Load("")
	assert.ErrorContains(t, err, "MEDIA_ENGINE")
}

// chdir changes the working directory for the duration of the test
// (equivalent of testing.T.Chdir, which needs Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
