package quiz_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/victornm/livequiz/internal/errors"
	"github.com/victornm/livequiz/internal/quiz"
)

const geography = `
title: Geography
categories:
  - id: capitals
    name: Capitals
    questions:
      - id: q-france
        text: Capital of France?
        answers:
          - id: paris
            text: Paris
            correct: true
          - id: lyon
            text: Lyon
`

func TestFile_GetFullQuiz(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "geo.yaml"), []byte(geography), 0o600))

	p := quiz.NewFile(dir)

	q, err := p.GetFullQuiz(context.Background(), "geo")
	require.NoError(t, err)
	require.NoError(t, q.Validate())

	require.Equal(t, "geo", q.QuizID)
	require.Equal(t, "Geography", q.Title)
	require.Len(t, q.Categories, 1)
	require.Equal(t, "capitals", q.Categories[0].CategoryID)
	require.Equal(t, "paris", q.Categories[0].Questions[0].CorrectAnswer())

	seq := q.Sequence()
	require.Len(t, seq, 1)
	require.Equal(t, "Capitals", seq[0].CategoryName)
}

func TestFile_GetFullQuiz_Errors(t *testing.T) {
	p := quiz.NewFile(t.TempDir())

	_, err := p.GetFullQuiz(context.Background(), "missing")
	require.True(t, errors.Is(err, errors.CodeNotFound))

	_, err = p.GetFullQuiz(context.Background(), "../etc/passwd")
	require.True(t, errors.Is(err, errors.CodeInvalidArgument))
}

func TestMemory_GetFullQuiz(t *testing.T) {
	m := quiz.NewMemory()

	_, err := m.GetFullQuiz(context.Background(), "geo")
	require.True(t, errors.Is(err, errors.CodeNotFound))
}
