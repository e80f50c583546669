package server_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/victornm/livequiz/internal/config"
	"github.com/victornm/livequiz/internal/server"
)

func TestConfig_Load(t *testing.T) {
	file := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
quiz:
  source: file
  dir: /srv/quizzes
game:
  skipreview: true
`), 0o600))

	t.Setenv("GAME_GRACE", "1s")
	t.Setenv("REDIS_STORE_PREFIX", "test")

	c := server.DefaultConfig()
	require.NoError(t, config.Load(file, &c))

	assert.Equal(t, server.QuizSourceFile, c.Quiz.Source)
	assert.Equal(t, "/srv/quizzes", c.Quiz.Dir)
	assert.True(t, c.Game.SkipReview)
	assert.Equal(t, time.Second, c.Game.Grace)
	assert.Equal(t, "test", c.Redis.Store.Prefix)

	// untouched defaults
	assert.Equal(t, int64(100), c.Game.BasePoints)
	assert.Equal(t, 20*time.Second, c.Game.DefaultCountdown)
	assert.Equal(t, []string{"localhost:6379"}, c.Redis.Pubsub.Addrs)
	assert.Equal(t, int32(8080), c.HTTP.Port)
}
