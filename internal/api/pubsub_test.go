package api_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/victornm/livequiz/internal/api"
)

func TestPublisher_Mirror(t *testing.T) {
	rs := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: rs.Addr()})

	p := api.NewPublisher(api.PublisherConfig{Redis: rdb, Prefix: "test", Workers: 4})
	require.Equal(t, "test:session:S1", p.Channel("S1"))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-done)
	})

	sub := rdb.Subscribe(context.Background(), p.Channel("S1"))
	t.Cleanup(func() { _ = sub.Close() })
	_, err := sub.Receive(context.Background())
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		p.Mirror(context.Background(), "S1", []byte(fmt.Sprintf(`{"event":"countdown","data":%d}`, i)))
	}

	ch := sub.Channel()
	for i := 0; i < 10; i++ {
		select {
		case m := <-ch:
			require.Equal(t, fmt.Sprintf(`{"event":"countdown","data":%d}`, i), m.Payload)
		case <-time.After(2 * time.Second):
			require.FailNow(t, "message not published", i)
		}
	}
}
