package domain

import "time"

// Names of the events published on the in-process event bus.
const (
	EventNameQuizCompleted      = "quiz.completed"
	EventNameLeaderboardUpdated = "leaderboard.updated"
	EventNameDoubleSelected     = "double.selected"
	EventNameSessionChanged     = "session.changed"
	EventNameSessionClosed      = "session.closed"
)

// EventQuizCompleted is published once a session reaches the ended phase normally.
type EventQuizCompleted struct {
	SessionID   string
	QuizID      string
	Leaderboard Leaderboard
	CompletedAt time.Time
}

func (EventQuizCompleted) Name() string { return EventNameQuizCompleted }

type EventLeaderboardUpdated struct {
	Leaderboard Leaderboard
}

func (EventLeaderboardUpdated) Name() string { return EventNameLeaderboardUpdated }

type EventDoubleSelected struct {
	SessionID  string
	TeamID     string
	CategoryID string
}

func (EventDoubleSelected) Name() string { return EventNameDoubleSelected }

type EventSessionChanged struct {
	Session SessionInfo
	// Version increases with every change of the session.
	Version    int64
	UpdateTime time.Time
}

func (EventSessionChanged) Name() string { return EventNameSessionChanged }

type EventSessionClosed struct {
	SessionID string
	Reason    string
}

func (EventSessionClosed) Name() string { return EventNameSessionClosed }
