package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/logicossoftware/go-slm"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "slm.hcl")
	require.NoError(t, os.WriteFile(path, []byte(`
log_level   = "debug"
sort_layers = true
compression = "zstd"
lazy        = false
z_unit      = 100

limits {
  max_layers       = 500
  max_uncompressed = 1048576
}
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, cfg.Level())
	assert.True(t, cfg.SortLayers)
	assert.False(t, cfg.Lazy)
	assert.Equal(t, "zstd", cfg.Compression)
	require.NotNil(t, cfg.Limits)
	assert.Equal(t, 500, cfg.Limits.MaxLayers)

	logger, _ := test.NewNullLogger()
	got := slm.NewConfig(cfg.Options(logger)...)
	assert.Same(t, logger, got.Logger)
	assert.True(t, got.SortLayers)
	assert.False(t, got.LazyLoading)
	assert.Equal(t, "zstd", got.Compression)
	assert.Equal(t, uint32(100), got.ZUnit)
	assert.Equal(t, 500, got.Limits.MaxLayers)
	assert.Equal(t, uint64(1<<20), got.Limits.MaxUncompressed)
	assert.Equal(t, slm.DefaultLimits().MaxModels, got.Limits.MaxModels)
}

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse([]byte(""), "empty.hcl")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	got := slm.NewConfig(cfg.Options(logrus.New())...)
	assert.True(t, got.LazyLoading)
	assert.Equal(t, slm.DefaultLimits(), got.Limits)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"syntax", `log_level = `, "failed to parse"},
		{"unknown attribute", `colour = "red"`, "failed to decode"},
		{"wrong type", `sort_layers = "maybe"`, "failed to decode"},
		{"bad level", `log_level = "loud"`, "not a valid logrus Level"},
		{"z unit", `z_unit = -1`, "z_unit"},
		{"negative limit", "limits {\n  max_models = -4\n}\n", "limits.max_models"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.src), "bad.hcl")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.hcl"))
	require.Error(t, err)
}
