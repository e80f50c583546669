package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Phase is the coarse-grained state of a live session.
type Phase string

const (
	PhaseLobby     Phase = "lobby"
	PhaseQuestion  Phase = "question"
	PhaseReviewing Phase = "reviewing"
	PhaseEnded     Phase = "ended"
)

// Quiz is the read-only content of a quiz, loaded once per session.
type Quiz struct {
	QuizID     string     `json:"quiz_id" yaml:"id"`
	Title      string     `json:"title" yaml:"title"`
	Categories []Category `json:"categories" yaml:"categories"`
}

type Category struct {
	CategoryID string     `json:"category_id" yaml:"id"`
	Name       string     `json:"name" yaml:"name"`
	Questions  []Question `json:"questions" yaml:"questions"`
}

type Question struct {
	QuestionID string   `json:"question_id" yaml:"id"`
	Text       string   `json:"text" yaml:"text"`
	Answers    []Answer `json:"answers" yaml:"answers"`
}

type Answer struct {
	AnswerID string `json:"answer_id" yaml:"id"`
	Text     string `json:"text" yaml:"text"`
	Correct  bool   `json:"correct" yaml:"correct"`
}

// SequencedQuestion is a question placed in the flattened play order of a quiz.
type SequencedQuestion struct {
	Question
	CategoryID   string
	CategoryName string
	Index        int
}

// CorrectAnswer returns the id of the single correct answer.
func (q Question) CorrectAnswer() string {
	for _, a := range q.Answers {
		if a.Correct {
			return a.AnswerID
		}
	}
	return ""
}

// HasAnswer reports whether id is one of the question's answers.
func (q Question) HasAnswer(id string) bool {
	for _, a := range q.Answers {
		if a.AnswerID == id {
			return true
		}
	}
	return false
}

// Sequence flattens categories into the order questions are asked.
func (q *Quiz) Sequence() []SequencedQuestion {
	var seq []SequencedQuestion
	for _, c := range q.Categories {
		for _, qq := range c.Questions {
			seq = append(seq, SequencedQuestion{
				Question:     qq,
				CategoryID:   c.CategoryID,
				CategoryName: c.Name,
				Index:        len(seq),
			})
		}
	}
	return seq
}

func (q *Quiz) HasCategory(id string) bool {
	for _, c := range q.Categories {
		if c.CategoryID == id {
			return true
		}
	}
	return false
}

// Validate checks the invariants the session engine relies on: unique ids,
// at least one question and exactly one correct answer per question.
func (q *Quiz) Validate() error {
	if q.QuizID == "" {
		return fmt.Errorf("quiz id is empty")
	}

	seen := make(map[string]struct{})
	unique := func(kind, id string) error {
		if id == "" {
			return fmt.Errorf("%s id is empty", kind)
		}
		k := kind + ":" + id
		if _, ok := seen[k]; ok {
			return fmt.Errorf("duplicated %s id %q", kind, id)
		}
		seen[k] = struct{}{}
		return nil
	}

	total := 0
	for _, c := range q.Categories {
		if err := unique("category", c.CategoryID); err != nil {
			return err
		}
		for _, qq := range c.Questions {
			if err := unique("question", qq.QuestionID); err != nil {
				return err
			}
			correct := 0
			for _, a := range qq.Answers {
				if err := unique("answer", a.AnswerID); err != nil {
					return err
				}
				if a.Correct {
					correct++
				}
			}
			if correct != 1 {
				return fmt.Errorf("question %q has %d correct answers, want exactly 1", qq.QuestionID, correct)
			}
			total++
		}
	}

	if total == 0 {
		return fmt.Errorf("quiz %q has no questions", q.QuizID)
	}

	return nil
}

// Team is a participant identity within a session.
type Team struct {
	TeamID string `json:"team_id"`
	Name   string `json:"name"`
}

// Leaderboard is the list of teams of a session and their scores.
// Entries are sorted by score in descending order, ties by join order.
type Leaderboard struct {
	SessionID string `json:"session_id"`
	// Version is the number of questions scored so far. A leaderboard never replaces one
	// with a higher version.
	Version int                `json:"version"`
	Entries []LeaderboardEntry `json:"entries"`
}

type LeaderboardEntry struct {
	Rank     int             `json:"rank"`
	TeamID   string          `json:"team_id"`
	TeamName string          `json:"team_name"`
	Score    decimal.Decimal `json:"score"`
}

// SessionInfo is the public description of a session.
type SessionInfo struct {
	SessionID string    `json:"session_id"`
	QuizID    string    `json:"quiz_id,omitempty"`
	Phase     Phase     `json:"phase"`
	CreatedAt time.Time `json:"created_at"`
}
