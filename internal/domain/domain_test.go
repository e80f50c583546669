package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/victornm/livequiz/internal/domain"
)

func makeQuiz() *domain.Quiz {
	return &domain.Quiz{
		QuizID: "geo",
		Categories: []domain.Category{
			{
				CategoryID: "capitals",
				Name:       "Capitals",
				Questions: []domain.Question{
					{QuestionID: "q1", Answers: []domain.Answer{{AnswerID: "a1", Correct: true}, {AnswerID: "a2"}}},
					{QuestionID: "q2", Answers: []domain.Answer{{AnswerID: "a3"}, {AnswerID: "a4", Correct: true}}},
				},
			},
			{
				CategoryID: "rivers",
				Name:       "Rivers",
				Questions: []domain.Question{
					{QuestionID: "q3", Answers: []domain.Answer{{AnswerID: "a5", Correct: true}}},
				},
			},
		},
	}
}

func TestQuiz_Validate(t *testing.T) {
	tests := map[string]struct {
		arrange func(q *domain.Quiz)
		wantErr string
	}{
		"valid quiz": {
			arrange: func(q *domain.Quiz) {},
		},
		"no questions": {
			arrange: func(q *domain.Quiz) {
				q.Categories = []domain.Category{{CategoryID: "empty"}}
			},
			wantErr: "no questions",
		},
		"two correct answers": {
			arrange: func(q *domain.Quiz) {
				q.Categories[0].Questions[0].Answers[1].Correct = true
			},
			wantErr: "has 2 correct answers",
		},
		"no correct answer": {
			arrange: func(q *domain.Quiz) {
				q.Categories[1].Questions[0].Answers[0].Correct = false
			},
			wantErr: "has 0 correct answers",
		},
		"duplicated question": {
			arrange: func(q *domain.Quiz) {
				q.Categories[1].Questions[0].QuestionID = "q1"
			},
			wantErr: `duplicated question id "q1"`,
		},
		"empty category id": {
			arrange: func(q *domain.Quiz) {
				q.Categories[1].CategoryID = ""
			},
			wantErr: "category id is empty",
		},
	}

	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			q := makeQuiz()
			tt.arrange(q)

			err := q.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestQuiz_Sequence(t *testing.T) {
	seq := makeQuiz().Sequence()
	require.Len(t, seq, 3)

	for i, want := range []struct{ question, category string }{
		{"q1", "capitals"},
		{"q2", "capitals"},
		{"q3", "rivers"},
	} {
		assert.Equal(t, want.question, seq[i].QuestionID)
		assert.Equal(t, want.category, seq[i].CategoryID)
		assert.Equal(t, i, seq[i].Index)
	}

	assert.Equal(t, "a4", seq[1].CorrectAnswer())
	assert.True(t, seq[1].HasAnswer("a3"))
	assert.False(t, seq[1].HasAnswer("a1"))
}
