package score

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/victornm/livequiz/internal/answer"
	"github.com/victornm/livequiz/internal/domain"
)

var (
	DefaultBasePoints       = decimal.NewFromInt(100)
	DefaultDoubleMultiplier = decimal.NewFromInt(2)
)

type Config struct {
	BasePoints       decimal.Decimal
	DoubleMultiplier decimal.Decimal
}

// Board accumulates the scores of the teams of one session.
// It is owned by the session engine and is not safe for concurrent use.
type Board struct {
	base       decimal.Decimal
	multiplier decimal.Decimal

	seq    int
	teams  map[string]*team
	scored map[string]struct{}
}

type team struct {
	id    string
	name  string
	order int
	score decimal.Decimal
}

func NewBoard(c Config) *Board {
	b := &Board{
		base:       c.BasePoints,
		multiplier: c.DoubleMultiplier,
		teams:      make(map[string]*team),
		scored:     make(map[string]struct{}),
	}

	if !b.base.IsPositive() {
		b.base = DefaultBasePoints
	}
	if !b.multiplier.IsPositive() {
		b.multiplier = DefaultDoubleMultiplier
	}

	return b
}

// AddTeam registers a team with a zero score. Registering again only updates the name,
// the join order is kept.
func (b *Board) AddTeam(id, name string) {
	if t, ok := b.teams[id]; ok {
		if name != "" {
			t.name = name
		}
		return
	}

	b.seq++
	b.teams[id] = &team{id: id, name: name, order: b.seq, score: decimal.Zero}
}

// Reset zeroes every score and forgets which questions were scored.
func (b *Board) Reset() {
	for _, t := range b.teams {
		t.score = decimal.Zero
	}
	b.scored = make(map[string]struct{})
}

type Question struct {
	QuestionID      string
	CategoryID      string
	CorrectAnswerID string
}

// Result is the outcome of one submission.
type Result struct {
	TeamID   string
	AnswerID string
	Correct  bool
	Doubled  bool
	Points   decimal.Decimal
}

// Score awards the points of a closed question. doubles maps a team to its double-points
// category. A question is scored at most once, the second call returns ok=false and
// changes nothing.
func (b *Board) Score(q Question, subs []answer.Submission, doubles map[string]string) (results []Result, ok bool) {
	if _, done := b.scored[q.QuestionID]; done {
		return nil, false
	}
	b.scored[q.QuestionID] = struct{}{}

	results = make([]Result, 0, len(subs))
	for _, s := range subs {
		r := Result{
			TeamID:   s.TeamID,
			AnswerID: s.AnswerID,
			Correct:  s.AnswerID == q.CorrectAnswerID,
			Points:   decimal.Zero,
		}

		if r.Correct {
			r.Points = b.base
			if c, ok := doubles[s.TeamID]; ok && c == q.CategoryID {
				r.Doubled = true
				r.Points = r.Points.Mul(b.multiplier)
			}
		}

		b.AddTeam(s.TeamID, "")
		t := b.teams[s.TeamID]
		t.score = t.score.Add(r.Points)

		results = append(results, r)
	}

	return results, true
}

// TeamScore returns the cumulative score of a team.
func (b *Board) TeamScore(teamID string) decimal.Decimal {
	if t, ok := b.teams[teamID]; ok {
		return t.score
	}
	return decimal.Zero
}

// Leaderboard returns every team sorted by score descending, ties by join order.
func (b *Board) Leaderboard(sessionID string) domain.Leaderboard {
	teams := make([]*team, 0, len(b.teams))
	for _, t := range b.teams {
		teams = append(teams, t)
	}

	sort.Slice(teams, func(i, j int) bool {
		if c := teams[i].score.Cmp(teams[j].score); c != 0 {
			return c > 0
		}
		return teams[i].order < teams[j].order
	})

	l := domain.Leaderboard{
		SessionID: sessionID,
		Version:   len(b.scored),
		Entries:   make([]domain.LeaderboardEntry, 0, len(teams)),
	}
	for i, t := range teams {
		l.Entries = append(l.Entries, domain.LeaderboardEntry{
			Rank:     i + 1,
			TeamID:   t.id,
			TeamName: t.name,
			Score:    t.score,
		})
	}

	return l
}
