package session

import (
	"github.com/victornm/livequiz/internal/domain"
)

func quizLoaded(q *domain.Quiz) *domain.QuizLoadedPayload {
	p := &domain.QuizLoadedPayload{
		QuizID:     q.QuizID,
		Title:      q.Title,
		Categories: make([]domain.CategoryBrief, 0, len(q.Categories)),
	}
	for _, c := range q.Categories {
		p.Categories = append(p.Categories, domain.CategoryBrief{
			CategoryID:    c.CategoryID,
			Name:          c.Name,
			QuestionCount: len(c.Questions),
		})
		p.TotalQuestions += len(c.Questions)
	}
	return p
}

func newQuestion(q domain.SequencedQuestion, total int) domain.NewQuestionPayload {
	p := domain.NewQuestionPayload{
		Question: domain.PublicQuestion{
			QuestionID:   q.QuestionID,
			Text:         q.Text,
			CategoryID:   q.CategoryID,
			CategoryName: q.CategoryName,
			Answers:      make([]domain.PublicAnswer, 0, len(q.Answers)),
		},
		Index: q.Index,
		Total: total,
	}
	for _, a := range q.Answers {
		p.Question.Answers = append(p.Question.Answers, domain.PublicAnswer{AnswerID: a.AnswerID, Text: a.Text})
	}
	return p
}

// review reveals the correct answer and what every team submitted for the i-th question.
func (s *Session) review(i int) domain.QuestionReview {
	q := s.sequence[i]

	r := domain.QuestionReview{
		Question:        q.Question,
		CategoryID:      q.CategoryID,
		CategoryName:    q.CategoryName,
		CorrectAnswerID: q.CorrectAnswer(),
		Breakdown:       make([]domain.TeamBreakdown, 0, len(s.roster)),
	}

	byTeam := make(map[string]int)
	results := s.results[q.QuestionID]
	for j, res := range results {
		byTeam[res.TeamID] = j
	}

	for _, id := range s.roster {
		b := domain.TeamBreakdown{TeamID: id, TeamName: s.names[id], Points: "0"}
		if j, ok := byTeam[id]; ok {
			res := results[j]
			b.Answered = true
			b.AnswerID = res.AnswerID
			b.Correct = res.Correct
			b.Points = res.Points.String()
		}
		r.Breakdown = append(r.Breakdown, b)
	}

	return r
}

func (s *Session) reviews() []domain.QuestionReview {
	out := make([]domain.QuestionReview, 0, len(s.sequence))
	for i := range s.sequence {
		out = append(out, s.review(i))
	}
	return out
}

// snapshot is the full state of the session as seen by the given team (empty for hosts).
func (s *Session) snapshot(teamID string) domain.SnapshotPayload {
	p := domain.SnapshotPayload{
		SessionID: s.id,
		Phase:     s.phase,
		Teams:     s.teams(),
	}

	if s.quiz != nil {
		p.Quiz = quizLoaded(s.quiz)
	}

	if teamID != "" && s.hasTeam(teamID) {
		p.You = &domain.TeamState{
			TeamID:         teamID,
			DoubleCategory: s.doubles[teamID],
			Answered:       s.answers.Answered(teamID),
			Score:          s.board.TeamScore(teamID).String(),
		}
	}

	switch s.phase {
	case domain.PhaseQuestion:
		if q, ok := s.current(); ok {
			nq := newQuestion(q, len(s.sequence))
			p.Question = &nq
		}
		if s.countdown != nil {
			p.TimerRunning = true
			p.SecondsRemaining = s.countdown.Remaining()
		}
		p.Answered = s.answers.Progress()
		l := s.board.Leaderboard(s.id)
		p.Leaderboard = &l

	case domain.PhaseReviewing, domain.PhaseEnded:
		p.ReviewIndex = s.reviewCursor
		l := s.board.Leaderboard(s.id)
		p.Leaderboard = &l
	}

	return p
}
