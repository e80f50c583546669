package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/victornm/livequiz/internal/config"
)

type testConfig struct {
	HTTP struct {
		Port int32
	}

	Game struct {
		BasePoints int64
		Grace      time.Duration
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(file, []byte("http:\n  port: 9090\ngame:\n  grace: 1s\n"), 0o600))

	var c testConfig
	c.HTTP.Port = 8080
	c.Game.BasePoints = 100
	c.Game.Grace = 700 * time.Millisecond

	require.NoError(t, config.Load(file, &c))

	require.Equal(t, int32(9090), c.HTTP.Port)
	require.Equal(t, time.Second, c.Game.Grace)
	require.Equal(t, int64(100), c.Game.BasePoints, "defaults should be kept when the file has no value")
}

func TestLoad_WithoutFile(t *testing.T) {
	t.Setenv("GAME_BASEPOINTS", "250")

	var c testConfig
	c.Game.BasePoints = 100

	require.NoError(t, config.Load("", &c))
	require.Equal(t, int64(250), c.Game.BasePoints)
}

func TestLoad_MissingFile(t *testing.T) {
	var c testConfig
	require.Error(t, config.Load(filepath.Join(t.TempDir(), "nope.yaml"), &c))
}
