package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/arran4/chat2png/pkg/errors"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 2.0, cfg.Export.Scale)
	assert.Equal(t, 2500*time.Millisecond, cfg.Export.ImageTimeout)
	assert.Equal(t, 800*time.Millisecond, cfg.Export.DecodeTimeout)
	assert.Equal(t, 60*time.Second, cfg.Raster.Timeout)
	assert.Equal(t, "auto", cfg.Raster.Backend)
	assert.Equal(t, "127.0.0.1:8092", cfg.Server.Address())
}

func TestParse(t *testing.T) {
	t.Setenv("C2P_TEST_PORT", "9999")
	cfg, err := Parse([]byte(`
server:
  port: ${C2P_TEST_PORT}
export:
  image_timeout: 4s
  output_dir: ${C2P_TEST_UNSET:-out}
raster:
  backend: serialize
  timeout: 0s
fonts:
  regular: /fonts/Geist-Regular.ttf
`))
	require.NoError(t, err)
	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, 4*time.Second, cfg.Export.ImageTimeout)
	assert.Equal(t, "out", cfg.Export.OutputDir)
	assert.Equal(t, "serialize", cfg.Raster.Backend)
	assert.Equal(t, time.Duration(0), cfg.Raster.Timeout)
	assert.Equal(t, "/fonts/Geist-Regular.ttf", cfg.Fonts.RegularPath)
	// Untouched sections keep their defaults.
	assert.Equal(t, 800*time.Millisecond, cfg.Export.DecodeTimeout)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("CHAT2PNG_RASTER_BACKEND", "capture")
	t.Setenv("CHAT2PNG_SERVER_PORT", "7000")
	cfg, err := Parse([]byte("{}"))
	require.NoError(t, err)
	assert.Equal(t, "capture", cfg.Raster.Backend)
	assert.Equal(t, 7000, cfg.Server.Port)
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"port":    func(c *Config) { c.Server.Port = 0 },
		"scale":   func(c *Config) { c.Export.Scale = 0 },
		"decode":  func(c *Config) { c.Export.DecodeTimeout = 10 * time.Second },
		"backend": func(c *Config) { c.Raster.Backend = "gpu" },
		"pattern": func(c *Config) { c.Raster.MobilePattern = "(" },
		"format":  func(c *Config) { c.Logging.Format = "xml" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeConfigInvalid))
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chat2png.yaml")

	_, err := Load(path)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeConfigNotFound))

	cfg, err := LoadOrDefault(path)
	require.NoError(t, err)
	assert.Equal(t, Default().Export, cfg.Export)

	require.NoError(t, os.WriteFile(path, []byte("server: [oops"), 0o644))
	_, err = Load(path)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeConfigParse))
}
