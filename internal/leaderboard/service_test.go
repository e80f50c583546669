package leaderboard_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/victornm/livequiz/internal/domain"
	"github.com/victornm/livequiz/internal/errors"
	"github.com/victornm/livequiz/internal/event"
	"github.com/victornm/livequiz/internal/leaderboard"
)

func TestService_UpdateLeaderboard(t *testing.T) {
	s, _ := makeService(t)

	want := domain.Leaderboard{
		SessionID: "s1",
		Entries: []domain.LeaderboardEntry{
			{Rank: 1, TeamID: "t1", TeamName: "One", Score: decimal.NewFromInt(200)},
			{Rank: 2, TeamID: "t2", TeamName: "Two", Score: decimal.Zero},
		},
	}

	require.NoError(t, s.UpdateLeaderboard(context.Background(), want))

	got, err := s.GetLeaderboard(context.Background(), leaderboard.GetLeaderboardRequest{SessionID: "s1"})
	require.NoError(t, err)
	require.Len(t, got.Entries, 2)
	require.Equal(t, "t1", got.Entries[0].TeamID)
	require.True(t, decimal.NewFromInt(200).Equal(got.Entries[0].Score))
}

func TestService_GetLeaderboard_NotFound(t *testing.T) {
	s, _ := makeService(t)

	_, err := s.GetLeaderboard(context.Background(), leaderboard.GetLeaderboardRequest{SessionID: "nope"})
	require.True(t, errors.Is(err, errors.CodeNotFound))
}

func TestService_LeaderboardExpires(t *testing.T) {
	s, rs := makeService(t)

	require.NoError(t, s.UpdateLeaderboard(context.Background(), domain.Leaderboard{SessionID: "s1"}))

	rs.FastForward(2 * time.Hour)

	_, err := s.GetLeaderboard(context.Background(), leaderboard.GetLeaderboardRequest{SessionID: "s1"})
	require.True(t, errors.Is(err, errors.CodeNotFound))
}

func TestService_UpdateLeaderboard_KeepsNewest(t *testing.T) {
	tests := map[string]struct {
		versions []int
		want     int
	}{
		"in order": {
			versions: []int{1, 2, 3},
			want:     3,
		},
		"older update after newer one": {
			versions: []int{1, 3, 2},
			want:     3,
		},
		"same version replaces": {
			versions: []int{2, 2},
			want:     2,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			s, _ := makeService(t)

			for i, v := range tt.versions {
				require.NoError(t, s.UpdateLeaderboard(context.Background(), domain.Leaderboard{
					SessionID: "s1",
					Version:   v,
					Entries: []domain.LeaderboardEntry{
						{Rank: 1, TeamID: "t1", Score: decimal.NewFromInt(int64(v * 100))},
					},
				}), "update %d", i)
			}

			got, err := s.GetLeaderboard(context.Background(), leaderboard.GetLeaderboardRequest{SessionID: "s1"})
			require.NoError(t, err)
			require.Equal(t, tt.want, got.Version)
			require.True(t, decimal.NewFromInt(int64(tt.want*100)).Equal(got.Entries[0].Score))
		})
	}
}

func TestService_BurstOfEvents_StoresLatest(t *testing.T) {
	eb := event.NewBus()
	s, _ := makeService(t, withEventBus(eb))

	for v := 1; v <= 5; v++ {
		eb.Publish(context.Background(), domain.EventLeaderboardUpdated{
			Leaderboard: domain.Leaderboard{
				SessionID: "s1",
				Version:   v,
				Entries:   []domain.LeaderboardEntry{{Rank: 1, TeamID: "t1", Score: decimal.NewFromInt(int64(v * 100))}},
			},
		})
	}
	eb.Stop()

	got, err := s.GetLeaderboard(context.Background(), leaderboard.GetLeaderboardRequest{SessionID: "s1"})
	require.NoError(t, err)
	require.Equal(t, 5, got.Version)
	require.True(t, decimal.NewFromInt(500).Equal(got.Entries[0].Score))
}

func TestService_SubscribesToEvents(t *testing.T) {
	tests := map[string]struct {
		publish event.Event
	}{
		"should store leaderboard after leaderboard.updated": {
			publish: domain.EventLeaderboardUpdated{
				Leaderboard: domain.Leaderboard{SessionID: "s1", Entries: []domain.LeaderboardEntry{{TeamID: "t1", Score: decimal.NewFromInt(100)}}},
			},
		},
		"should store leaderboard after quiz.completed": {
			publish: domain.EventQuizCompleted{
				SessionID:   "s1",
				Leaderboard: domain.Leaderboard{SessionID: "s1", Entries: []domain.LeaderboardEntry{{TeamID: "t1", Score: decimal.NewFromInt(100)}}},
			},
		},
	}

	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			eb := event.NewBus()
			s, _ := makeService(t, withEventBus(eb))

			eb.Publish(context.Background(), tt.publish)
			eb.Stop()

			got, err := s.GetLeaderboard(context.Background(), leaderboard.GetLeaderboardRequest{SessionID: "s1"})
			require.NoError(t, err)
			require.Len(t, got.Entries, 1)
		})
	}
}

func makeService(t *testing.T, opts ...options) (*leaderboard.Service, *miniredis.Miniredis) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	rs := miniredis.RunT(t)
	rc := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs: []string{rs.Addr()},
	})
	require.NoError(t, rc.Ping(ctx).Err(), "should be able to ping redis")

	c := leaderboard.Config{
		EventBus: event.NewBus(),
		Redis:    rc,
		Prefix:   "test",
		TTL:      time.Hour,
	}

	for _, opt := range opts {
		opt(&c)
	}

	return leaderboard.NewService(c), rs
}

type options func(c *leaderboard.Config)

func withEventBus(eb *event.Bus) options {
	return func(c *leaderboard.Config) {
		c.EventBus = eb
	}
}
