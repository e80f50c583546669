package quiz

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/victornm/livequiz/internal/domain"
)

// Querier is the subset of *pgxpool.Pool used by the postgres provider.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type PostgresConfig struct {
	DB Querier
}

// Postgres reads quizzes from the authoring database in a single round trip per table set.
type Postgres struct {
	db Querier
}

func NewPostgres(c PostgresConfig) *Postgres {
	return &Postgres{db: c.DB}
}

type contentRow struct {
	CategoryID   string
	CategoryName string
	QuestionID   string
	QuestionText string
	AnswerID     string
	AnswerText   string
	IsCorrect    bool
}

func (p *Postgres) GetFullQuiz(ctx context.Context, quizID string) (*domain.Quiz, error) {
	const quizStmt = `SELECT quiz_id, title FROM quizzes WHERE quiz_id = $1;`

	q := &domain.Quiz{}
	err := p.db.QueryRow(ctx, quizStmt, quizID).Scan(&q.QuizID, &q.Title)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return nil, notFound(quizID)
	}
	if err != nil {
		return nil, fmt.Errorf("get quiz: %w", err)
	}

	const contentStmt = `
SELECT c.category_id, c.name, qu.question_id, qu.text, a.answer_id, a.text, a.is_correct
FROM categories c
JOIN questions qu ON qu.category_id = c.category_id
JOIN answers a ON a.question_id = qu.question_id
WHERE c.quiz_id = $1
ORDER BY c.position, qu.position, a.position;`

	rows, err := p.db.Query(ctx, contentStmt, quizID)
	if err != nil {
		return nil, fmt.Errorf("get quiz content: %w", err)
	}

	content, err := pgx.CollectRows(rows, func(r pgx.CollectableRow) (contentRow, error) {
		var c contentRow
		err := r.Scan(&c.CategoryID, &c.CategoryName, &c.QuestionID, &c.QuestionText, &c.AnswerID, &c.AnswerText, &c.IsCorrect)
		return c, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan quiz content: %w", err)
	}

	q.Categories = assemble(content)
	return q, nil
}

// assemble groups ordered rows into categories, questions and answers.
func assemble(rows []contentRow) []domain.Category {
	var cats []domain.Category
	for _, r := range rows {
		if len(cats) == 0 || cats[len(cats)-1].CategoryID != r.CategoryID {
			cats = append(cats, domain.Category{CategoryID: r.CategoryID, Name: r.CategoryName})
		}
		c := &cats[len(cats)-1]

		if len(c.Questions) == 0 || c.Questions[len(c.Questions)-1].QuestionID != r.QuestionID {
			c.Questions = append(c.Questions, domain.Question{QuestionID: r.QuestionID, Text: r.QuestionText})
		}
		qq := &c.Questions[len(c.Questions)-1]

		qq.Answers = append(qq.Answers, domain.Answer{AnswerID: r.AnswerID, Text: r.AnswerText, Correct: r.IsCorrect})
	}
	return cats
}
