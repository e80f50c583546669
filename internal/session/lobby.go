package session

import (
	"context"
	"log/slog"

	"github.com/victornm/livequiz/internal/domain"
	"github.com/victornm/livequiz/internal/errors"
	"github.com/victornm/livequiz/internal/telemetry"
)

type CreateSessionRequest struct {
	// SessionID is optional. Creating a session that already exists returns it unchanged.
	SessionID string `json:"session_id"`
	// QuizID is optional, the quiz can be attached later.
	QuizID string `json:"quiz_id"`
}

// CreateSession creates a new session in the lobby.
func (e *Engine) CreateSession(ctx context.Context, req CreateSessionRequest) (*domain.SessionInfo, error) {
	var q *domain.Quiz
	if req.QuizID != "" {
		var err error
		if q, err = e.loadQuiz(ctx, req.QuizID); err != nil {
			return nil, err
		}
	}

	var info domain.SessionInfo
	err := e.do(ctx, "create-session", func(ctx context.Context) error {
		id := req.SessionID
		if id == "" {
			id = e.store.NewID()
		}

		s, created := e.store.Create(id, sessionConfig{scoring: e.scoring}, e.clock.Now())
		if created {
			telemetry.SessionsActive.Inc()
			slog.InfoContext(ctx, "session: created", "session", s.id)
		}

		if q != nil && s.quiz == nil && s.phase == domain.PhaseLobby {
			e.applyQuiz(ctx, s, q)
		} else if created {
			e.changed(ctx, s)
		}

		info = s.info()
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &info, nil
}

type AttachQuizRequest struct {
	SessionID string `json:"session_id"`
	QuizID    string `json:"quiz_id"`
}

// AttachQuiz loads the quiz content and attaches it to a session still in the lobby.
// Attaching to a session that already has a quiz is ignored.
func (e *Engine) AttachQuiz(ctx context.Context, req AttachQuizRequest) error {
	if req.QuizID == "" {
		return errors.InvalidArgument("quiz id is required")
	}

	var load bool
	err := e.do(ctx, "attach-quiz", func(ctx context.Context) error {
		s, err := e.lookup(req.SessionID)
		if err != nil {
			return err
		}
		if s.phase != domain.PhaseLobby || s.quiz != nil {
			return ignored("quiz already attached: session=%s", s.id)
		}
		load = true
		return nil
	})
	if err != nil || !load {
		return err
	}

	q, err := e.loadQuiz(ctx, req.QuizID)
	if err != nil {
		return err
	}

	// Other jobs ran while the quiz was loading: check the guards again.
	return e.do(ctx, "attach-quiz", func(ctx context.Context) error {
		s, err := e.lookup(req.SessionID)
		if err != nil {
			return err
		}
		if s.phase != domain.PhaseLobby || s.quiz != nil {
			return ignored("quiz attached while loading: session=%s", s.id)
		}
		e.applyQuiz(ctx, s, q)
		return nil
	})
}

func (e *Engine) loadQuiz(ctx context.Context, quizID string) (*domain.Quiz, error) {
	q, err := e.quizzes.GetFullQuiz(ctx, quizID)
	if err != nil {
		if errors.Is(err, errors.CodeNotFound) || errors.Is(err, errors.CodeInvalidArgument) {
			return nil, err
		}
		return nil, errors.New(errors.CodeInternal, errors.WithMessagef("load quiz %s failed", quizID), errors.WithCause(err))
	}

	if err := q.Validate(); err != nil {
		return nil, errors.New(errors.CodeInvalidArgument, errors.WithMessagef("invalid quiz %s: %v", quizID, err))
	}

	return q, nil
}

func (e *Engine) applyQuiz(ctx context.Context, s *Session, q *domain.Quiz) {
	s.attach(q)
	slog.InfoContext(ctx, "session: quiz attached", "session", s.id, "quiz", q.QuizID, "questions", len(s.sequence))

	e.broadcast(ctx, s, domain.RoomEventQuizLoaded, quizLoaded(q))
	e.changed(ctx, s)
}

type JoinRequest struct {
	SessionID    string `json:"session_id"`
	ConnectionID string `json:"-"`
	// TeamID is the identity to resume. Defaults to the connection id.
	TeamID   string `json:"team_id"`
	TeamName string `json:"team_name"`
	Host     bool   `json:"host"`
}

// Join adds a connection to the session room and sends it a snapshot of the current phase.
// Joining again with the same team id resumes that team.
func (e *Engine) Join(ctx context.Context, req JoinRequest) error {
	if req.ConnectionID == "" {
		return errors.InvalidArgument("connection id is required")
	}

	return e.do(ctx, domain.CommandJoin, func(ctx context.Context) error {
		s, err := e.lookup(req.SessionID)
		if err != nil {
			return err
		}

		teamID := ""
		if !req.Host {
			teamID = req.TeamID
			if teamID == "" {
				teamID = req.ConnectionID
			}
		}

		added := false
		if teamID != "" {
			added = s.addTeam(teamID, req.TeamName)
		}

		s.connect(req.ConnectionID, teamID)
		e.rooms.JoinRoom(req.ConnectionID, s.id)
		e.unicast(ctx, req.ConnectionID, domain.RoomEventSnapshot, s.snapshot(teamID))

		if added {
			slog.InfoContext(ctx, "session: team joined", "session", s.id, "team", teamID)
			e.broadcast(ctx, s, domain.RoomEventTeamJoined, domain.TeamJoinedPayload{
				Team:  domain.Team{TeamID: teamID, Name: s.names[teamID]},
				Teams: s.teams(),
			})
		}

		return nil
	})
}

type DisconnectRequest struct {
	SessionID    string
	ConnectionID string
}

// Disconnect forgets a connection. Teams are kept so they can rejoin.
func (e *Engine) Disconnect(ctx context.Context, req DisconnectRequest) error {
	return e.do(ctx, "disconnect", func(ctx context.Context) error {
		s, err := e.lookup(req.SessionID)
		if err != nil {
			return err
		}
		s.disconnect(req.ConnectionID, e.clock.Now())
		return nil
	})
}

type SelectDoubleCategoryRequest struct {
	SessionID    string `json:"session_id"`
	ConnectionID string `json:"-"`
	TeamID       string `json:"team_id"`
	CategoryID   string `json:"category_id"`
}

// SelectDoubleCategory records the category a team wants double points for.
// It can be changed until the quiz starts.
func (e *Engine) SelectDoubleCategory(ctx context.Context, req SelectDoubleCategoryRequest) error {
	if req.CategoryID == "" {
		return errors.InvalidArgument("category id is required")
	}

	return e.do(ctx, domain.CommandSelectDoubleCategory, func(ctx context.Context) error {
		s, err := e.lookup(req.SessionID)
		if err != nil {
			return err
		}

		team, err := e.resolveTeam(s, req.ConnectionID, req.TeamID)
		if err != nil {
			return err
		}

		if s.phase != domain.PhaseLobby || s.quiz == nil {
			return ignored("double category selection closed: session=%s phase=%s", s.id, s.phase)
		}

		if !s.quiz.HasCategory(req.CategoryID) {
			return errors.InvalidArgument("unknown category: %s", req.CategoryID)
		}

		s.doubles[team] = req.CategoryID
		e.eb.Publish(ctx, domain.EventDoubleSelected{
			SessionID:  s.id,
			TeamID:     team,
			CategoryID: req.CategoryID,
		})

		selected, pending := s.pendingDoubles()
		e.broadcast(ctx, s, domain.RoomEventDoubleProgress, domain.DoubleProgressPayload{
			Selected: selected,
			Pending:  pending,
		})

		return nil
	})
}

// resolveTeam returns the team a command acts for: the explicit team id, or the team bound
// to the connection.
func (e *Engine) resolveTeam(s *Session, connectionID, teamID string) (string, error) {
	if teamID == "" && connectionID != "" {
		teamID = s.connections[connectionID]
	}

	if teamID == "" {
		return "", errors.InvalidArgument("team id is required")
	}

	if !s.hasTeam(teamID) {
		return "", errors.InvalidArgument("team has not joined the session: team=%s", teamID)
	}

	return teamID, nil
}

type GetSessionRequest struct {
	SessionID string
	TeamID    string
}

// Snapshot returns the current state of a session, as sent to joining connections.
func (e *Engine) Snapshot(ctx context.Context, req GetSessionRequest) (*domain.SnapshotPayload, error) {
	var p domain.SnapshotPayload
	err := e.do(ctx, "snapshot", func(ctx context.Context) error {
		s, err := e.lookup(req.SessionID)
		if err != nil {
			return err
		}
		p = s.snapshot(req.TeamID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Leaderboard returns the current leaderboard of a live session.
func (e *Engine) Leaderboard(ctx context.Context, req GetSessionRequest) (*domain.Leaderboard, error) {
	var l domain.Leaderboard
	err := e.do(ctx, "leaderboard", func(ctx context.Context) error {
		s, err := e.lookup(req.SessionID)
		if err != nil {
			return err
		}
		l = s.board.Leaderboard(s.id)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// Progress is the "N of M answered" view of the current question.
type Progress struct {
	SessionID  string   `json:"session_id"`
	QuestionID string   `json:"question_id,omitempty"`
	Answered   []string `json:"answered"`
	Pending    []string `json:"pending"`
	Total      int      `json:"total"`
}

func (e *Engine) Progress(ctx context.Context, req GetSessionRequest) (*Progress, error) {
	var p Progress
	err := e.do(ctx, "progress", func(ctx context.Context) error {
		s, err := e.lookup(req.SessionID)
		if err != nil {
			return err
		}

		p = Progress{
			SessionID:  s.id,
			QuestionID: s.answers.QuestionID(),
			Answered:   s.answers.Progress(),
			Pending:    []string{},
			Total:      len(s.roster),
		}
		for _, id := range s.roster {
			if !s.answers.Answered(id) {
				p.Pending = append(p.Pending, id)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}
