package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dicompreview.yaml")
	body := "tree:\n  max_depth: 0\npreview:\n  policy: best_effort\n  jpeg_quality: 80\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	t.Setenv("DICOMPREVIEW_PREVIEW_MAX_DIMENSION", "256")
	t.Setenv("DICOMPREVIEW_PREVIEW_JPEG_QUALITY", "90")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.Tree.MaxDepth)
	assert.Equal(t, PolicyBestEffort, cfg.Preview.Policy)
	assert.Equal(t, 90, cfg.Preview.JPEGQuality)
	assert.Equal(t, 256, cfg.Preview.MaxDimension)
	assert.True(t, cfg.Preview.Enabled)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	cfg.Preview.JPEGQuality = 0
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Preview.Policy = "sometimes"
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Preview.VOIMode = "lut"
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Preview.MaxDimension = -1
	assert.Error(t, cfg.Validate())
}
