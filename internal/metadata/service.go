// Package metadata stores ancillary session records: session metadata and double-points
// category selections. Nothing in the engine reads them back. Every write refreshes the
// retention of the record, so a write racing the close of its session cannot outlive it.
package metadata

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/victornm/livequiz/internal/domain"
	"github.com/victornm/livequiz/internal/errors"
	"github.com/victornm/livequiz/internal/event"
)

const defaultRetention = 24 * time.Hour

// saveSessionScript writes the session metadata unless a higher version is already stored.
var saveSessionScript = redis.NewScript(`
local cur = redis.call('HGET', KEYS[1], 'version')
if cur and tonumber(cur) > tonumber(ARGV[1]) then
	redis.call('PEXPIRE', KEYS[1], ARGV[6])
	return 0
end
redis.call('HSET', KEYS[1], 'version', ARGV[1], 'quiz_id', ARGV[2], 'phase', ARGV[3], 'created_at', ARGV[4], 'updated_at', ARGV[5])
redis.call('PEXPIRE', KEYS[1], ARGV[6])
return 1
`)

type Config struct {
	EventBus *event.Bus
	Redis    redis.UniversalClient
	Prefix   string
	// Retention is how long records are kept after their last write.
	Retention time.Duration
}

type Service struct {
	redis     redis.UniversalClient
	prefix    string
	retention time.Duration
}

func NewService(c Config) *Service {
	s := &Service{
		redis:     c.Redis,
		prefix:    c.Prefix,
		retention: c.Retention,
	}

	if s.retention <= 0 {
		s.retention = defaultRetention
	}

	c.EventBus.Subscribe(domain.EventNameDoubleSelected, func(ctx context.Context, e event.Event) error {
		return s.SaveDoubleSelection(ctx, e.(domain.EventDoubleSelected))
	})

	c.EventBus.Subscribe(domain.EventNameSessionChanged, func(ctx context.Context, e event.Event) error {
		return s.SaveSession(ctx, e.(domain.EventSessionChanged))
	})

	c.EventBus.Subscribe(domain.EventNameSessionClosed, func(ctx context.Context, e event.Event) error {
		return s.Expire(ctx, e.(domain.EventSessionClosed).SessionID)
	})

	return s
}

// SaveDoubleSelection upserts the category a team picked for double points.
func (s *Service) SaveDoubleSelection(ctx context.Context, e domain.EventDoubleSelected) error {
	key := s.doublesKey(e.SessionID)
	_, err := s.redis.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, key, e.TeamID, e.CategoryID)
		p.Expire(ctx, key, s.retention)
		return nil
	})
	if err != nil {
		return fmt.Errorf("save double selection: session=%s team=%s: %w", e.SessionID, e.TeamID, err)
	}
	return nil
}

// GetDoubleSelections returns team id to category id.
func (s *Service) GetDoubleSelections(ctx context.Context, sessionID string) (map[string]string, error) {
	m, err := s.redis.HGetAll(ctx, s.doublesKey(sessionID)).Result()
	if err != nil {
		return nil, fmt.Errorf("get double selections: session=%s: %w", sessionID, err)
	}
	return m, nil
}

// SaveSession upserts the session metadata. A change older than the stored one is dropped.
func (s *Service) SaveSession(ctx context.Context, e domain.EventSessionChanged) error {
	ss := e.Session
	err := saveSessionScript.Run(ctx, s.redis, []string{s.metaKey(ss.SessionID)},
		e.Version,
		ss.QuizID,
		string(ss.Phase),
		ss.CreatedAt.UnixMilli(),
		e.UpdateTime.UnixMilli(),
		s.retention.Milliseconds(),
	).Err()
	if err != nil {
		return fmt.Errorf("save session: session=%s: %w", ss.SessionID, err)
	}
	return nil
}

func (s *Service) GetSession(ctx context.Context, sessionID string) (*domain.SessionInfo, error) {
	var raw struct {
		QuizID    string `redis:"quiz_id"`
		Phase     string `redis:"phase"`
		CreatedAt int64  `redis:"created_at"`
	}

	res := s.redis.HGetAll(ctx, s.metaKey(sessionID))
	if err := res.Err(); err != nil {
		return nil, fmt.Errorf("get session: session=%s: %w", sessionID, err)
	}
	if len(res.Val()) == 0 {
		return nil, errors.NotFound("session metadata not found: session=%s", sessionID)
	}
	if err := res.Scan(&raw); err != nil {
		return nil, fmt.Errorf("scan session: session=%s: %w", sessionID, err)
	}

	return &domain.SessionInfo{
		SessionID: sessionID,
		QuizID:    raw.QuizID,
		Phase:     domain.Phase(raw.Phase),
		CreatedAt: time.UnixMilli(raw.CreatedAt),
	}, nil
}

// Expire schedules the removal of every record of the session.
func (s *Service) Expire(ctx context.Context, sessionID string) error {
	_, err := s.redis.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Expire(ctx, s.metaKey(sessionID), s.retention)
		p.Expire(ctx, s.doublesKey(sessionID), s.retention)
		return nil
	})
	if err != nil {
		return fmt.Errorf("expire session: session=%s: %w", sessionID, err)
	}
	return nil
}

func (s *Service) metaKey(session string) string {
	return fmt.Sprintf("%s:session:%s:meta", s.prefix, session)
}

func (s *Service) doublesKey(session string) string {
	return fmt.Sprintf("%s:session:%s:doubles", s.prefix, session)
}
