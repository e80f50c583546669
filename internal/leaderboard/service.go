package leaderboard

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/victornm/livequiz/internal/domain"
	"github.com/victornm/livequiz/internal/errors"
	"github.com/victornm/livequiz/internal/event"
)

const defaultTTL = 24 * time.Hour

// updateScript stores a leaderboard unless a higher version is already stored.
var updateScript = redis.NewScript(`
local cur = redis.call('HGET', KEYS[1], 'version')
if cur and tonumber(cur) > tonumber(ARGV[1]) then
	return 0
end
redis.call('HSET', KEYS[1], 'version', ARGV[1], 'data', ARGV[2])
redis.call('PEXPIRE', KEYS[1], ARGV[3])
return 1
`)

type Config struct {
	EventBus *event.Bus
	Redis    redis.UniversalClient
	Prefix   string
	// TTL of a stored leaderboard, refreshed on every update.
	TTL time.Duration
}

// Service keeps the latest leaderboard of every session in Redis, so it can still be read
// once the session itself has been torn down.
type Service struct {
	redis  redis.UniversalClient
	prefix string
	ttl    time.Duration
}

func NewService(c Config) *Service {
	s := &Service{
		redis:  c.Redis,
		prefix: c.Prefix,
		ttl:    c.TTL,
	}

	if s.ttl <= 0 {
		s.ttl = defaultTTL
	}

	c.EventBus.Subscribe(domain.EventNameLeaderboardUpdated, func(ctx context.Context, e event.Event) error {
		return s.UpdateLeaderboard(ctx, e.(domain.EventLeaderboardUpdated).Leaderboard)
	})

	c.EventBus.Subscribe(domain.EventNameQuizCompleted, func(ctx context.Context, e event.Event) error {
		return s.UpdateLeaderboard(ctx, e.(domain.EventQuizCompleted).Leaderboard)
	})

	return s
}

type GetLeaderboardRequest struct {
	SessionID string
}

// GetLeaderboard returns the last stored leaderboard of a session.
func (s *Service) GetLeaderboard(ctx context.Context, req GetLeaderboardRequest) (*domain.Leaderboard, error) {
	b, err := s.redis.HGet(ctx, s.getLeaderboardKey(req.SessionID), "data").Bytes()
	if stderrors.Is(err, redis.Nil) {
		return nil, errors.NotFound("leaderboard not found: session=%s", req.SessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("get leaderboard: %w", err)
	}

	var l domain.Leaderboard
	if err := json.Unmarshal(b, &l); err != nil {
		return nil, fmt.Errorf("decode leaderboard: session=%s: %w", req.SessionID, err)
	}

	return &l, nil
}

// UpdateLeaderboard stores the leaderboard of the session. Updates may arrive out of order,
// one older than the stored leaderboard is dropped.
func (s *Service) UpdateLeaderboard(ctx context.Context, l domain.Leaderboard) error {
	b, err := json.Marshal(l)
	if err != nil {
		return fmt.Errorf("encode leaderboard: %w", err)
	}

	key := s.getLeaderboardKey(l.SessionID)
	stored, err := updateScript.Run(ctx, s.redis, []string{key}, l.Version, b, s.ttl.Milliseconds()).Int()
	if err != nil {
		return fmt.Errorf("update leaderboard: %w", err)
	}

	if stored == 0 {
		slog.DebugContext(ctx, "leaderboard: stale update dropped", "session", l.SessionID, "version", l.Version)
	}

	return nil
}

func (s *Service) getLeaderboardKey(session string) string {
	return fmt.Sprintf("%s:session:%s:leaderboard", s.prefix, session)
}
