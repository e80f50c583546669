package session

import (
	"time"

	"github.com/victornm/livequiz/internal/answer"
	"github.com/victornm/livequiz/internal/domain"
	"github.com/victornm/livequiz/internal/score"
	"github.com/victornm/livequiz/internal/timer"
)

type sessionConfig struct {
	scoring score.Config
}

// Session is the aggregate of one live session. Every field is owned by the engine loop.
type Session struct {
	id        string
	createdAt time.Time

	quiz     *domain.Quiz
	sequence []domain.SequencedQuestion

	phase        domain.Phase
	cursor       int
	reviewCursor int

	roster  []string
	names   map[string]string
	doubles map[string]string

	answers *answer.Collector
	board   *score.Board
	results map[string][]score.Result

	countdown *timer.Countdown

	// version of the last published change
	version int64

	// connection id -> team id, empty for hosts
	connections map[string]string
	emptySince  time.Time
}

func newSession(id string, c sessionConfig, now time.Time) *Session {
	return &Session{
		id:          id,
		createdAt:   now,
		phase:       domain.PhaseLobby,
		names:       make(map[string]string),
		doubles:     make(map[string]string),
		answers:     answer.NewCollector(),
		board:       score.NewBoard(c.scoring),
		results:     make(map[string][]score.Result),
		connections: make(map[string]string),
		emptySince:  now,
	}
}

func (s *Session) info() domain.SessionInfo {
	ss := domain.SessionInfo{
		SessionID: s.id,
		Phase:     s.phase,
		CreatedAt: s.createdAt,
	}
	if s.quiz != nil {
		ss.QuizID = s.quiz.QuizID
	}
	return ss
}

func (s *Session) attach(q *domain.Quiz) {
	s.quiz = q
	s.sequence = q.Sequence()
}

func (s *Session) hasTeam(id string) bool {
	_, ok := s.names[id]
	return ok
}

// addTeam registers a team and reports whether it is new.
func (s *Session) addTeam(id, name string) bool {
	if name == "" {
		name = id
	}

	if _, ok := s.names[id]; ok {
		s.names[id] = name
		s.board.AddTeam(id, name)
		return false
	}

	s.roster = append(s.roster, id)
	s.names[id] = name
	s.board.AddTeam(id, name)
	return true
}

func (s *Session) teams() []domain.Team {
	out := make([]domain.Team, 0, len(s.roster))
	for _, id := range s.roster {
		out = append(out, domain.Team{TeamID: id, Name: s.names[id]})
	}
	return out
}

func (s *Session) current() (domain.SequencedQuestion, bool) {
	if s.phase != domain.PhaseQuestion || s.cursor >= len(s.sequence) {
		return domain.SequencedQuestion{}, false
	}
	return s.sequence[s.cursor], true
}

func (s *Session) stopCountdown() {
	s.countdown.Stop()
	s.countdown = nil
}

// pendingDoubles is the set difference of the roster and the teams that picked a category.
func (s *Session) pendingDoubles() (selected, pending []string) {
	selected, pending = []string{}, []string{}
	for _, id := range s.roster {
		if _, ok := s.doubles[id]; ok {
			selected = append(selected, id)
		} else {
			pending = append(pending, id)
		}
	}
	return selected, pending
}

func (s *Session) connect(connectionID, teamID string) {
	s.connections[connectionID] = teamID
	s.emptySince = time.Time{}
}

func (s *Session) disconnect(connectionID string, now time.Time) {
	if _, ok := s.connections[connectionID]; !ok {
		return
	}

	delete(s.connections, connectionID)
	if len(s.connections) == 0 {
		s.emptySince = now
	}
}

func (s *Session) idleFor(now time.Time) time.Duration {
	if len(s.connections) > 0 || s.emptySince.IsZero() {
		return 0
	}
	return now.Sub(s.emptySince)
}
