package configs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 11025, cfg.Audio.SampleRate)
	assert.Equal(t, 2048, cfg.Audio.NFFT)
	assert.Equal(t, 512, cfg.Audio.HopLength)
	assert.Equal(t, 20, cfg.Fingerprint.PeakNeighborhoodSize)
	assert.Equal(t, 5, cfg.Fingerprint.FanValue)
	assert.Equal(t, StorageMemory, cfg.Storage.Type)
}

func TestLoadConfigOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
audio:
  sample_rate: 22050
storage:
  type: sqlite
  path: /tmp/test.db
indexing:
  workers: 8
`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 22050, cfg.Audio.SampleRate)
	// Untouched keys keep their defaults.
	assert.Equal(t, 2048, cfg.Audio.NFFT)
	assert.Equal(t, StorageSQLite, cfg.Storage.Type)
	assert.Equal(t, "/tmp/test.db", cfg.Storage.Path)
	assert.Equal(t, 8, cfg.Indexing.Workers)
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"bad n_fft":   "audio:\n  n_fft: 1000\n", // not a power of two
		"bad storage": "storage:\n  type: cassette\n",
		"bad workers": "indexing:\n  workers: 0\n",
		"bad fan":     "fingerprint:\n  fan_value: -1\n",
	}
	for name, yaml := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))
			_, err := LoadConfig(path)
			assert.Error(t, err)
		})
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("STORAGE_PASSWORD", "hunter2")
	t.Setenv("STORAGE_TYPE", "sqlite")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "hunter2", cfg.Storage.Password)
	assert.Equal(t, StorageSQLite, cfg.Storage.Type)
}

func TestExtensionAllowed(t *testing.T) {
	cfg := DefaultConfig()
	assert.True(t, cfg.ExtensionAllowed("wav"))
	assert.True(t, cfg.ExtensionAllowed(".WAV"))
	assert.True(t, cfg.ExtensionAllowed(".mp3"))
	assert.False(t, cfg.ExtensionAllowed("txt"))
	assert.False(t, cfg.ExtensionAllowed(""))
}
