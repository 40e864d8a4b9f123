package configfiles

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verustcode/reportdesk/internal/config"
)

// TestGetBootstrapExample tests the embedded template parses and validates
func TestGetBootstrapExample(t *testing.T) {
	content := GetBootstrapExample()
	require.NotEmpty(t, content)

	path := filepath.Join(t.TempDir(), "bootstrap.yaml")
	require.NoError(t, os.WriteFile(path, content, 0644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, config.RasterizerChrome, cfg.Export.Rasterizer)
}

// TestWriteBootstrap tests that existing files are never overwritten
func TestWriteBootstrap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config", "bootstrap.yaml")

	created, err := WriteBootstrap(path)
	require.NoError(t, err)
	assert.True(t, created)

	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 1\n"), 0644))
	created, err = WriteBootstrap(path)
	require.NoError(t, err)
	assert.False(t, created)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "server:\n  port: 1\n", string(data))
}
