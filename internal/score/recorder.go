package score

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/victornm/livequiz/internal/domain"
	"github.com/victornm/livequiz/internal/event"
)

// DB is the subset of *pgxpool.Pool used by the recorder.
type DB interface {
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

type RecorderConfig struct {
	EventBus *event.Bus
	DB       DB
}

// Recorder persists final leaderboards of completed sessions.
type Recorder struct {
	db DB
}

func NewRecorder(c RecorderConfig) *Recorder {
	r := &Recorder{db: c.DB}

	c.EventBus.Subscribe(domain.EventNameQuizCompleted, func(ctx context.Context, e event.Event) error {
		return r.RecordFinalScores(ctx, e.(domain.EventQuizCompleted))
	})

	return r
}

// RecordFinalScores upserts one row per team. Recording the same session twice overwrites
// the previous rows.
func (r *Recorder) RecordFinalScores(ctx context.Context, e domain.EventQuizCompleted) error {
	const stmt = `
INSERT INTO session_scores (session_id, quiz_id, team_id, team_name, score, rank, create_time)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (session_id, team_id) DO UPDATE
SET team_name = EXCLUDED.team_name, score = EXCLUDED.score, rank = EXCLUDED.rank, create_time = EXCLUDED.create_time;`

	entries := e.Leaderboard.Entries
	if len(entries) == 0 {
		return nil
	}

	at := e.CompletedAt
	if at.IsZero() {
		at = time.Now()
	}

	b := new(pgx.Batch)
	for _, en := range entries {
		b.Queue(stmt, e.SessionID, e.QuizID, en.TeamID, en.TeamName, en.Score, en.Rank, at)
	}

	br := r.db.SendBatch(ctx, b)
	for _, en := range entries {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return fmt.Errorf("record score: session=%s team=%s: %w", e.SessionID, en.TeamID, err)
		}
	}

	return br.Close()
}
