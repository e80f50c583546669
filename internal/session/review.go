package session

import (
	"context"
	"log/slog"

	"github.com/victornm/livequiz/internal/domain"
)

// NextReviewStep reveals the breakdown of the next question. Stepping past the last question
// ends the review.
func (e *Engine) NextReviewStep(ctx context.Context, req HostRequest) error {
	return e.do(ctx, domain.CommandNextReviewStep, func(ctx context.Context) error {
		s, err := e.lookup(req.SessionID)
		if err != nil {
			return err
		}

		if s.phase != domain.PhaseReviewing {
			return ignored("not reviewing: session=%s phase=%s", s.id, s.phase)
		}

		if s.reviewCursor >= len(s.sequence) {
			e.endReview(ctx, s)
			return nil
		}

		e.broadcast(ctx, s, domain.RoomEventReviewStep, domain.ReviewStepPayload{
			Review: s.review(s.reviewCursor),
			Index:  s.reviewCursor,
			Total:  len(s.sequence),
		})
		s.reviewCursor++
		return nil
	})
}

// EndReview ends the review at any step.
func (e *Engine) EndReview(ctx context.Context, req HostRequest) error {
	return e.do(ctx, domain.CommandEndReview, func(ctx context.Context) error {
		s, err := e.lookup(req.SessionID)
		if err != nil {
			return err
		}

		if s.phase != domain.PhaseReviewing {
			return ignored("not reviewing: session=%s phase=%s", s.id, s.phase)
		}

		e.endReview(ctx, s)
		return nil
	})
}

func (e *Engine) endReview(ctx context.Context, s *Session) {
	s.reviewCursor = len(s.sequence)
	e.broadcast(ctx, s, domain.RoomEventReviewSummary, domain.ReviewSummaryPayload{Questions: s.reviews()})
	e.complete(ctx, s)
}

// complete moves the session to its terminal phase and publishes the final leaderboard.
func (e *Engine) complete(ctx context.Context, s *Session) {
	s.stopCountdown()
	s.phase = domain.PhaseEnded

	l := s.board.Leaderboard(s.id)
	e.broadcast(ctx, s, domain.RoomEventFinalLeaderboard, domain.FinalLeaderboardPayload{Leaderboard: l})

	e.eb.Publish(ctx, domain.EventQuizCompleted{
		SessionID:   s.id,
		QuizID:      s.quiz.QuizID,
		Leaderboard: l,
		CompletedAt: e.clock.Now(),
	})
	e.changed(ctx, s)

	slog.InfoContext(ctx, "session: quiz completed", "session", s.id, "teams", len(l.Entries))
}
