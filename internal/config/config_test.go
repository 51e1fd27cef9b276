package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
output:
  format: YAML
decode:
  reduce: 2
  layers: 3
logging:
  level: debug
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "yaml", cfg.Output.Format)
	assert.Equal(t, 2, cfg.Decode.Reduce)
	assert.Equal(t, 3, cfg.Decode.Layers)
	assert.Equal(t, "debug", cfg.Logging.Level)

	opts := cfg.DecodeOptions()
	assert.Equal(t, 2, opts.Reduce)
	assert.Equal(t, 3, opts.MaxLayers)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("OPENJPEG_FORMAT", "yaml")
	t.Setenv("OPENJPEG_THREADS", "4")
	t.Setenv("OPENJPEG_LOG_LEVEL", "warn")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "yaml", cfg.Output.Format)
	assert.Equal(t, 4, cfg.Decode.Threads)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoad_Invalid(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
		return path
	}

	tests := []struct {
		name string
		path string
	}{
		{"bad yaml", write("bad.yaml", "output: [")},
		{"bad format", write("format.yaml", "output:\n  format: xml\n")},
		{"negative reduce", write("reduce.yaml", "decode:\n  reduce: -1\n")},
		{"bad level", write("level.yaml", "logging:\n  level: loud\n")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.path)
			require.Error(t, err)
		})
	}

	t.Run("bad threads env", func(t *testing.T) {
		t.Setenv("OPENJPEG_THREADS", "many")
		_, err := Load("")
		require.Error(t, err)
	})
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Decode.Reduce = 1
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
