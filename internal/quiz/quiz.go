// Package quiz loads quiz content from the quiz authoring storage.
package quiz

import (
	"context"
	"sync"

	"github.com/victornm/livequiz/internal/domain"
	"github.com/victornm/livequiz/internal/errors"
)

// Provider returns the full content of a quiz. Implementations return a not found error
// for unknown quizzes.
type Provider interface {
	GetFullQuiz(ctx context.Context, quizID string) (*domain.Quiz, error)
}

func notFound(quizID string) error {
	return errors.NotFound("quiz not found: quiz=%s", quizID)
}

// Memory is a provider backed by a map, used by tests and demos.
type Memory struct {
	mu      sync.RWMutex
	quizzes map[string]domain.Quiz
}

func NewMemory(quizzes ...domain.Quiz) *Memory {
	m := &Memory{quizzes: make(map[string]domain.Quiz)}
	for _, q := range quizzes {
		m.Put(q)
	}
	return m
}

func (m *Memory) Put(q domain.Quiz) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.quizzes[q.QuizID] = q
}

func (m *Memory) GetFullQuiz(_ context.Context, quizID string) (*domain.Quiz, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	q, ok := m.quizzes[quizID]
	if !ok {
		return nil, notFound(quizID)
	}
	return &q, nil
}
