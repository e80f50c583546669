package session

import (
	"context"
	"log/slog"

	"github.com/victornm/livequiz/internal/answer"
	"github.com/victornm/livequiz/internal/domain"
	"github.com/victornm/livequiz/internal/errors"
	"github.com/victornm/livequiz/internal/score"
	"github.com/victornm/livequiz/internal/telemetry"
	"github.com/victornm/livequiz/internal/timer"
)

type HostRequest struct {
	SessionID string `json:"session_id"`
}

// StartQuiz leaves the lobby and presents the first question.
func (e *Engine) StartQuiz(ctx context.Context, req HostRequest) error {
	return e.do(ctx, domain.CommandStartQuiz, func(ctx context.Context) error {
		s, err := e.lookup(req.SessionID)
		if err != nil {
			return err
		}

		if s.phase != domain.PhaseLobby || s.quiz == nil {
			return ignored("cannot start quiz: session=%s phase=%s", s.id, s.phase)
		}

		s.cursor = 0
		s.reviewCursor = 0
		s.results = make(map[string][]score.Result)
		s.board.Reset()
		s.phase = domain.PhaseQuestion

		slog.InfoContext(ctx, "session: quiz started", "session", s.id, "teams", len(s.roster))

		e.broadcast(ctx, s, domain.RoomEventQuizStarted, domain.QuizStartedPayload{TotalQuestions: len(s.sequence)})
		e.changed(ctx, s)
		e.presentQuestion(ctx, s)
		return nil
	})
}

func (e *Engine) presentQuestion(ctx context.Context, s *Session) {
	q := s.sequence[s.cursor]
	s.answers.Open(q.QuestionID)
	e.broadcast(ctx, s, domain.RoomEventNewQuestion, newQuestion(q, len(s.sequence)))
}

// NextQuestion closes the current question early, even while its countdown is running.
func (e *Engine) NextQuestion(ctx context.Context, req HostRequest) error {
	return e.do(ctx, domain.CommandNextQuestion, func(ctx context.Context) error {
		s, err := e.lookup(req.SessionID)
		if err != nil {
			return err
		}

		if s.phase != domain.PhaseQuestion {
			return ignored("no question to advance: session=%s phase=%s", s.id, s.phase)
		}

		s.stopCountdown()
		e.closeQuestion(ctx, s)
		return nil
	})
}

type StartTimerRequest struct {
	SessionID string `json:"session_id"`
	// Seconds of the countdown. Zero uses the configured default.
	Seconds int `json:"seconds"`
}

// StartTimer arms the countdown of the current question.
func (e *Engine) StartTimer(ctx context.Context, req StartTimerRequest) error {
	if req.Seconds < 0 {
		return errors.InvalidArgument("seconds must not be negative: %d", req.Seconds)
	}

	return e.do(ctx, domain.CommandStartTimer, func(ctx context.Context) error {
		s, err := e.lookup(req.SessionID)
		if err != nil {
			return err
		}

		if s.phase != domain.PhaseQuestion {
			return ignored("no question to time: session=%s phase=%s", s.id, s.phase)
		}
		if s.countdown != nil {
			return ignored("countdown already running: session=%s", s.id)
		}

		seconds := req.Seconds
		if seconds == 0 {
			seconds = e.defaultCountdown
		}

		return e.arm(ctx, s, seconds)
	})
}

// arm replaces the countdown of the session. A failure is fatal to the session.
func (e *Engine) arm(ctx context.Context, s *Session, seconds int) error {
	s.stopCountdown()

	questionID := s.answers.QuestionID()
	c, err := e.timers.Arm(seconds, timer.Callbacks{
		OnTick: func(c *timer.Countdown, remaining int) {
			e.post(func(ctx context.Context) { e.onTick(ctx, s, c, questionID, remaining) })
		},
		OnExpire: func(c *timer.Countdown) {
			e.post(func(ctx context.Context) { e.onExpire(ctx, s, c, questionID) })
		},
	})
	if err != nil {
		slog.ErrorContext(ctx, "session: arm countdown failed", "session", s.id, "error", err)
		e.abort(ctx, s, "countdown could not be started")
		return errors.New(errors.CodeAborted, errors.WithMessagef("session %s aborted", s.id), errors.WithCause(err))
	}

	s.countdown = c
	e.broadcast(ctx, s, domain.RoomEventCountdown, domain.CountdownPayload{
		QuestionID:       questionID,
		SecondsRemaining: c.Seconds(),
	})
	return nil
}

// live reports whether a countdown callback still belongs to the session's current countdown.
func (e *Engine) live(s *Session, c *timer.Countdown) bool {
	cur, ok := e.store.Get(s.id)
	return ok && cur == s && s.countdown == c
}

func (e *Engine) onTick(ctx context.Context, s *Session, c *timer.Countdown, questionID string, remaining int) {
	if !e.live(s, c) {
		return
	}

	e.broadcast(ctx, s, domain.RoomEventCountdown, domain.CountdownPayload{
		QuestionID:       questionID,
		SecondsRemaining: remaining,
	})
}

func (e *Engine) onExpire(ctx context.Context, s *Session, c *timer.Countdown, questionID string) {
	if !e.live(s, c) {
		return
	}

	s.countdown = nil
	e.broadcast(ctx, s, domain.RoomEventTimerEnded, domain.TimerEndedPayload{QuestionID: questionID})
	e.closeQuestion(ctx, s)
}

type AnswerRequest struct {
	SessionID    string `json:"session_id"`
	ConnectionID string `json:"-"`
	TeamID       string `json:"team_id"`
	QuestionID   string `json:"question_id"`
	AnswerID     string `json:"answer_id"`
}

// AnswerSelected tells the room a team is leaning towards an answer. The answer itself is not
// revealed and nothing is recorded.
func (e *Engine) AnswerSelected(ctx context.Context, req AnswerRequest) error {
	return e.do(ctx, domain.CommandAnswerSelected, func(ctx context.Context) error {
		s, err := e.lookup(req.SessionID)
		if err != nil {
			return err
		}

		team, err := e.resolveTeam(s, req.ConnectionID, req.TeamID)
		if err != nil {
			return err
		}

		q, ok := s.current()
		if !ok || (req.QuestionID != "" && req.QuestionID != q.QuestionID) || s.answers.Answered(team) {
			return ignored("answer selection out of window: session=%s team=%s", s.id, team)
		}

		e.broadcast(ctx, s, domain.RoomEventAnswerSelected, domain.TeamProgressPayload{
			TeamID:   team,
			Answered: len(s.answers.Progress()),
			Total:    len(s.roster),
		})
		return nil
	})
}

// SubmitAnswer records the answer of a team for the current question. Only the first
// submission of a team is kept, late and duplicate submissions are dropped silently.
func (e *Engine) SubmitAnswer(ctx context.Context, req AnswerRequest) error {
	if req.QuestionID == "" || req.AnswerID == "" {
		return errors.InvalidArgument("question id and answer id are required")
	}

	return e.do(ctx, domain.CommandSubmitAnswer, func(ctx context.Context) error {
		s, err := e.lookup(req.SessionID)
		if err != nil {
			return err
		}

		team, err := e.resolveTeam(s, req.ConnectionID, req.TeamID)
		if err != nil {
			return err
		}

		q, ok := s.current()
		if !ok || q.QuestionID != req.QuestionID {
			return ignored("submission out of window: session=%s team=%s question=%s", s.id, team, req.QuestionID)
		}

		if !q.HasAnswer(req.AnswerID) {
			return errors.InvalidArgument("unknown answer %s for question %s", req.AnswerID, q.QuestionID)
		}

		accepted := s.answers.Submit(q.QuestionID, answer.Submission{
			TeamID:     team,
			AnswerID:   req.AnswerID,
			SubmitTime: e.clock.Now(),
		})
		if !accepted {
			return ignored("duplicate submission: session=%s team=%s", s.id, team)
		}

		telemetry.AnswersAccepted.Inc()
		slog.DebugContext(ctx, "session: answer accepted", "session", s.id, "team", team, "question", q.QuestionID)

		e.broadcast(ctx, s, domain.RoomEventTeamAnswered, domain.TeamProgressPayload{
			TeamID:   team,
			Answered: len(s.answers.Progress()),
			Total:    len(s.roster),
		})
		return nil
	})
}

// closeQuestion ends the answer window of the current question, scores it and moves on.
func (e *Engine) closeQuestion(ctx context.Context, s *Session) {
	q, ok := s.current()
	if !ok {
		return
	}

	subs := s.answers.Close()
	results, scored := s.board.Score(score.Question{
		QuestionID:      q.QuestionID,
		CategoryID:      q.CategoryID,
		CorrectAnswerID: q.CorrectAnswer(),
	}, subs, s.doubles)
	s.answers.Reset()

	if scored {
		s.results[q.QuestionID] = results

		l := s.board.Leaderboard(s.id)
		e.broadcast(ctx, s, domain.RoomEventScoreUpdate, domain.ScoreUpdatePayload{
			QuestionID:  q.QuestionID,
			Leaderboard: l,
		})
		e.eb.Publish(ctx, domain.EventLeaderboardUpdated{Leaderboard: l})

		slog.InfoContext(ctx, "session: question scored", "session", s.id, "question", q.QuestionID, "answers", len(subs))
	}

	s.cursor++
	if s.cursor < len(s.sequence) {
		e.presentQuestion(ctx, s)
		return
	}

	e.finishQuestions(ctx, s)
}

func (e *Engine) finishQuestions(ctx context.Context, s *Session) {
	e.broadcast(ctx, s, domain.RoomEventQuizEnded, domain.QuizEndedPayload{TotalQuestions: len(s.sequence)})

	if e.skipReview {
		e.complete(ctx, s)
		return
	}

	s.phase = domain.PhaseReviewing
	s.reviewCursor = 0
	e.changed(ctx, s)
}
