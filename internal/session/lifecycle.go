package session

import (
	"context"
	"log/slog"

	"github.com/victornm/livequiz/internal/domain"
	"github.com/victornm/livequiz/internal/telemetry"
)

const (
	closeReasonEnded = "ended"
	closeReasonIdle  = "idle"
)

// EndSession tears a session down: its countdown is cancelled, members are told and later
// commands addressed to it fail as unknown.
func (e *Engine) EndSession(ctx context.Context, req HostRequest) error {
	return e.do(ctx, "end-session", func(ctx context.Context) error {
		s, err := e.lookup(req.SessionID)
		if err != nil {
			return err
		}

		e.teardown(ctx, s, closeReasonEnded)
		return nil
	})
}

// EvictIdle evicts the sessions without any connection for longer than the idle timeout.
// It returns the evicted session ids.
func (e *Engine) EvictIdle(ctx context.Context) ([]string, error) {
	var ids []string
	err := e.do(ctx, "evict-idle", func(ctx context.Context) error {
		ids = e.evictIdle(ctx)
		return nil
	})
	return ids, err
}

func (e *Engine) evictIdle(ctx context.Context) []string {
	if e.idleTimeout <= 0 {
		return nil
	}

	now := e.clock.Now()

	var ids []string
	for _, s := range e.store.All() {
		if s.idleFor(now) < e.idleTimeout {
			continue
		}

		ids = append(ids, s.id)
		e.teardown(ctx, s, closeReasonIdle)
	}

	if len(ids) > 0 {
		slog.InfoContext(ctx, "session: evicted idle sessions", "count", len(ids))
	}

	return ids
}

func (e *Engine) teardown(ctx context.Context, s *Session, reason string) {
	s.stopCountdown()
	s.answers.Reset()

	e.broadcast(ctx, s, domain.RoomEventSessionEnded, domain.SessionEndedPayload{Reason: reason})
	e.rooms.CloseRoom(s.id)
	e.store.Delete(s.id)
	telemetry.SessionsActive.Dec()

	e.eb.Publish(ctx, domain.EventSessionClosed{SessionID: s.id, Reason: reason})
	slog.InfoContext(ctx, "session: closed", "session", s.id, "reason", reason)
}

// abort ends a session that cannot go on. It stays in the store, in its terminal phase, so
// members can still read the leaderboard.
func (e *Engine) abort(ctx context.Context, s *Session, reason string) {
	s.stopCountdown()
	s.answers.Reset()
	s.phase = domain.PhaseEnded

	e.broadcast(ctx, s, domain.RoomEventSessionAborted, domain.SessionAbortedPayload{Reason: reason})
	e.changed(ctx, s)

	slog.WarnContext(ctx, "session: aborted", "session", s.id, "reason", reason)
}
