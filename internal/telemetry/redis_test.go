package telemetry_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/victornm/livequiz/internal/telemetry"
)

func TestMonitorRedis(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(prev) })

	rs := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: rs.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	require.NoError(t, telemetry.MonitorRedis(rdb))

	ctx := context.Background()
	require.NoError(t, rdb.Set(ctx, "k", "v", 0).Err())
	require.ErrorIs(t, rdb.Get(ctx, "missing").Err(), redis.Nil)
	require.Error(t, rdb.HGet(ctx, "k", "f").Err())

	logs := buf.String()
	assert.Contains(t, logs, "redis: command processed")
	assert.Contains(t, logs, "redis: command failed")
	assert.Equal(t, 1, bytes.Count(buf.Bytes(), []byte("redis: command failed")))
}
