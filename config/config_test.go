package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	tunables, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)
	require.Equal(t, DefaultTunables(), tunables)
}

func TestLoadOverridesFramesInFlight(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tunables.toml")
	require.NoError(t, os.WriteFile(path, []byte("frames_in_flight = 3\n"), 0644))

	tunables, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 3, tunables.FramesInFlight)
	// unspecified fields keep their defaults
	require.Equal(t, 2*time.Second, tunables.FenceWaitTimeout)
}
