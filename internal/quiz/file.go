package quiz

import (
	"context"
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/victornm/livequiz/internal/domain"
	"github.com/victornm/livequiz/internal/errors"
)

var validID = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// File loads quizzes from <dir>/<quizID>.yaml.
type File struct {
	dir string
}

func NewFile(dir string) *File {
	return &File{dir: dir}
}

func (f *File) GetFullQuiz(_ context.Context, quizID string) (*domain.Quiz, error) {
	if !validID.MatchString(quizID) {
		return nil, errors.InvalidArgument("invalid quiz id: %q", quizID)
	}

	b, err := os.ReadFile(filepath.Join(f.dir, quizID+".yaml"))
	if stderrors.Is(err, fs.ErrNotExist) {
		return nil, notFound(quizID)
	}
	if err != nil {
		return nil, fmt.Errorf("read quiz %s: %w", quizID, err)
	}

	var q domain.Quiz
	if err := yaml.Unmarshal(b, &q); err != nil {
		return nil, fmt.Errorf("decode quiz %s: %w", quizID, err)
	}

	if q.QuizID == "" {
		q.QuizID = quizID
	}

	return &q, nil
}
