package score_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/victornm/livequiz/internal/answer"
	"github.com/victornm/livequiz/internal/score"
)

var capitals = score.Question{
	QuestionID:      "q-france",
	CategoryID:      "capitals",
	CorrectAnswerID: "paris",
}

func TestBoard_Score(t *testing.T) {
	tests := map[string]struct {
		subs    []answer.Submission
		doubles map[string]string
		want    map[string]int64
	}{
		"correct answer in the double category should score twice the base points": {
			subs:    []answer.Submission{{TeamID: "t1", AnswerID: "paris"}},
			doubles: map[string]string{"t1": "capitals"},
			want:    map[string]int64{"t1": 200},
		},
		"correct answer in another category should score the base points": {
			subs:    []answer.Submission{{TeamID: "t1", AnswerID: "paris"}},
			doubles: map[string]string{"t1": "rivers"},
			want:    map[string]int64{"t1": 100},
		},
		"correct answer without double category should score the base points": {
			subs: []answer.Submission{{TeamID: "t1", AnswerID: "paris"}},
			want: map[string]int64{"t1": 100},
		},
		"wrong answer should score nothing even with the multiplier": {
			subs:    []answer.Submission{{TeamID: "t1", AnswerID: "lyon"}},
			doubles: map[string]string{"t1": "capitals"},
			want:    map[string]int64{"t1": 0},
		},
		"teams without submission should score nothing": {
			subs: []answer.Submission{{TeamID: "t1", AnswerID: "paris"}},
			want: map[string]int64{"t1": 100, "t2": 0},
		},
	}

	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			b := score.NewBoard(score.Config{})
			b.AddTeam("t1", "Team 1")
			b.AddTeam("t2", "Team 2")

			_, ok := b.Score(capitals, tt.subs, tt.doubles)
			require.True(t, ok)

			for team, want := range tt.want {
				assert.True(t, decimal.NewFromInt(want).Equal(b.TeamScore(team)), "team %s: got %s want %d", team, b.TeamScore(team), want)
			}
		})
	}
}

func TestBoard_Score_Idempotent(t *testing.T) {
	b := score.NewBoard(score.Config{})
	b.AddTeam("t1", "Team 1")

	subs := []answer.Submission{{TeamID: "t1", AnswerID: "paris"}}
	doubles := map[string]string{"t1": "capitals"}

	results, ok := b.Score(capitals, subs, doubles)
	require.True(t, ok)
	require.Len(t, results, 1)
	assert.True(t, results[0].Doubled)

	before := b.Leaderboard("s1")

	results, ok = b.Score(capitals, subs, doubles)
	assert.False(t, ok)
	assert.Empty(t, results)
	assert.Equal(t, before, b.Leaderboard("s1"))
	assert.Equal(t, 1, b.Leaderboard("s1").Version)
}

func TestBoard_Score_CustomPoints(t *testing.T) {
	b := score.NewBoard(score.Config{
		BasePoints:       decimal.NewFromInt(10),
		DoubleMultiplier: decimal.NewFromInt(3),
	})

	_, ok := b.Score(capitals, []answer.Submission{{TeamID: "t1", AnswerID: "paris"}}, map[string]string{"t1": "capitals"})
	require.True(t, ok)
	assert.True(t, decimal.NewFromInt(30).Equal(b.TeamScore("t1")))
}

func TestBoard_Leaderboard(t *testing.T) {
	b := score.NewBoard(score.Config{})
	b.AddTeam("late", "Late")
	b.AddTeam("early", "Early")
	b.AddTeam("best", "Best")
	b.AddTeam("late", "Renamed")

	_, ok := b.Score(capitals, []answer.Submission{
		{TeamID: "best", AnswerID: "paris"},
		{TeamID: "late", AnswerID: "lyon"},
	}, map[string]string{"best": "capitals"})
	require.True(t, ok)

	l := b.Leaderboard("s1")
	require.Len(t, l.Entries, 3)

	var got []string
	for _, e := range l.Entries {
		got = append(got, e.TeamID)
	}
	assert.Equal(t, []string{"best", "late", "early"}, got, "ties should be ordered by join order")
	assert.Equal(t, "Renamed", l.Entries[1].TeamName)
	assert.Equal(t, 1, l.Entries[0].Rank)
	assert.Equal(t, 3, l.Entries[2].Rank)

	for i := 0; i < 5; i++ {
		assert.Equal(t, l, b.Leaderboard("s1"), "leaderboard should be stable across calls")
	}
}

func TestBoard_Reset(t *testing.T) {
	b := score.NewBoard(score.Config{})
	b.AddTeam("t1", "Team 1")

	_, ok := b.Score(capitals, []answer.Submission{{TeamID: "t1", AnswerID: "paris"}}, nil)
	require.True(t, ok)

	b.Reset()
	assert.True(t, b.TeamScore("t1").IsZero())
	assert.Zero(t, b.Leaderboard("s1").Version)
	assert.Len(t, b.Leaderboard("s1").Entries, 1)
}
