package server

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "0.0.0.0", cfg.Server.Address)
	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Empty(t, cfg.Server.WSAddress)
	assert.Equal(t, "info", cfg.Server.LogLevel)
	assert.Equal(t, "0.0.0.0:9999", cfg.TCPAddr())
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.hcl"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doudizhu.hcl")
	content := `
server {
  address    = "127.0.0.1"
  port       = 4242
  ws_address = ":8080"
  log_level  = "debug"
}
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", cfg.Server.Address)
	assert.Equal(t, 4242, cfg.Server.Port)
	assert.Equal(t, ":8080", cfg.Server.WSAddress)
	assert.Equal(t, "debug", cfg.Server.LogLevel)
	assert.Equal(t, "127.0.0.1:4242", cfg.TCPAddr())
}

func TestLoadConfigPartialFileGetsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doudizhu.hcl")
	require.NoError(t, os.WriteFile(path, []byte("server {\n  port = 12345\n}\n"), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0", cfg.Server.Address)
	assert.Equal(t, 12345, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Server.LogLevel)
}

func TestLoadConfigBadHCL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.hcl")
	require.NoError(t, os.WriteFile(path, []byte("server {"), 0o644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.Port = 0
	assert.Error(t, cfg.Validate())
	cfg.Server.Port = 70000
	assert.Error(t, cfg.Validate())
	cfg.Server.Port = 9999
	assert.NoError(t, cfg.Validate())
}

func TestSplitAddr(t *testing.T) {
	host, port, err := SplitAddr("127.0.0.1:9999")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", host)
	assert.Equal(t, 9999, port)

	host, port, err = SplitAddr(":8080")
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0", host)
	assert.Equal(t, 8080, port)

	_, _, err = SplitAddr("no-port")
	assert.Error(t, err)
	_, _, err = SplitAddr("host:abc")
	assert.Error(t, err)
}
