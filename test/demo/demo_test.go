//go:build integration_test

package demo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/victornm/livequiz/internal/domain"
)

// Runs against a server started with QUIZ_SOURCE=file and QUIZ_DIR=test/demo/testdata.
const (
	httpAddr = "localhost:8080"
	grpcAddr = "localhost:9090"
	quizID   = "capitals"
	prefix   = "livequiz"
)

func TestQuiz(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	checkHealth(ctx, t)

	var (
		session = strings.ToUpper(uuid.NewString()[:6])
		teams   = []string{"t1", "t2", "t3"}
		wg      = new(sync.WaitGroup)
	)

	// Follow the session from outside, the way a projector would
	subscribeSession(t, makeRedis(t), wg, session)

	host := dial(t, session)
	host.send(t, "create-session", map[string]string{"quiz_id": quizID})
	host.until(t, domain.RoomEventSessionCreated)
	host.send(t, domain.CommandJoin, map[string]any{"host": true})
	host.until(t, domain.RoomEventSnapshot)

	conns := make(map[string]*client, len(teams))
	for _, team := range teams {
		c := dial(t, session)
		c.send(t, domain.CommandJoin, map[string]string{"team_id": team, "team_name": "Team " + team})
		c.until(t, domain.RoomEventSnapshot)
		c.send(t, domain.CommandSelectDoubleCategory, map[string]string{"category_id": "europe"})
		conns[team] = c
	}

	host.send(t, domain.CommandStartQuiz, nil)

	// For each question, all teams answer concurrently and the host closes the countdown early
	for {
		var q domain.NewQuestionPayload
		raw, event := host.next(t, domain.RoomEventNewQuestion, domain.RoomEventQuizEnded)
		if event == domain.RoomEventQuizEnded {
			break
		}
		require.NoError(t, json.Unmarshal(raw, &q))
		t.Logf("Question %d/%d: %s", q.Index+1, q.Total, q.Question.Text)

		host.send(t, domain.CommandStartTimer, map[string]int{"seconds": 5})

		var eg errgroup.Group
		for _, team := range teams {
			c := conns[team]
			eg.Go(func() error {
				return c.ws.WriteJSON(map[string]any{
					"event": domain.CommandSubmitAnswer,
					"data": map[string]string{
						"question_id": q.Question.QuestionID,
						"answer_id":   q.Question.Answers[0].AnswerID,
					},
				})
			})
		}
		require.NoError(t, eg.Wait())

		for range teams {
			host.until(t, domain.RoomEventTeamAnswered)
		}
		host.send(t, domain.CommandNextQuestion, nil)
		host.until(t, domain.RoomEventScoreUpdate)
	}

	for {
		host.send(t, domain.CommandNextReviewStep, nil)
		raw, event := host.next(t, domain.RoomEventReviewStep, domain.RoomEventFinalLeaderboard)
		if event == domain.RoomEventFinalLeaderboard {
			break
		}

		var step domain.ReviewStepPayload
		require.NoError(t, json.Unmarshal(raw, &step))
		t.Logf("Review %d/%d: correct answer %s", step.Index+1, step.Total, step.Review.CorrectAnswerID)
	}

	resp, err := http.Get(fmt.Sprintf("http://%s/v1/sessions/%s/leaderboard", httpAddr, session))
	require.NoError(t, err)
	defer resp.Body.Close()

	var l domain.Leaderboard
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&l))
	t.Logf("final leaderboard:\n%s", formatLeaderboard(l))

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, fmt.Sprintf("http://%s/v1/sessions/%s", httpAddr, session), nil)
	require.NoError(t, err)
	_, err = http.DefaultClient.Do(req)
	require.NoError(t, err)

	wg.Wait()
}

func checkHealth(ctx context.Context, t *testing.T) {
	conn, err := grpc.NewClient(grpcAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	defer conn.Close()

	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	require.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.Status)
}

type client struct {
	ws *websocket.Conn
}

func dial(t *testing.T, session string) *client {
	ws, _, err := websocket.DefaultDialer.Dial(fmt.Sprintf("ws://%s/v1/sessions/%s/ws", httpAddr, session), nil)
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close() })

	return &client{ws: ws}
}

func (c *client) send(t *testing.T, event string, data any) {
	require.NoError(t, c.ws.WriteJSON(map[string]any{"event": event, "data": data}))
}

func (c *client) until(t *testing.T, event string) json.RawMessage {
	raw, _ := c.next(t, event)
	return raw
}

// next reads messages until one of the given events.
func (c *client) next(t *testing.T, events ...string) (json.RawMessage, string) {
	require.NoError(t, c.ws.SetReadDeadline(time.Now().Add(30*time.Second)))

	for {
		var n struct {
			Event string          `json:"event"`
			Data  json.RawMessage `json:"data"`
		}
		require.NoError(t, c.ws.ReadJSON(&n))

		if n.Event == domain.RoomEventError {
			t.Logf("error: %s", n.Data)
		}

		for _, e := range events {
			if n.Event == e {
				return n.Data, e
			}
		}
	}
}

func subscribeSession(t *testing.T, rc redis.UniversalClient, wg *sync.WaitGroup, session string) {
	wg.Add(1)
	sub := subscribeRedis(t, rc, fmt.Sprintf("%s:session:%s", prefix, session))
	go func() {
		defer wg.Done()

		for msg := range sub {
			var n struct {
				Event string          `json:"event"`
				Data  json.RawMessage `json:"data"`
			}
			if err := json.Unmarshal([]byte(msg.Payload), &n); err != nil {
				t.Logf("unmarshal notification: %v", err)
				continue
			}

			switch n.Event {
			case domain.RoomEventScoreUpdate:
				var u domain.ScoreUpdatePayload
				if err := json.Unmarshal(n.Data, &u); err != nil {
					t.Logf("unmarshal score update: %v", err)
					continue
				}

				t.Logf("leaderboard after %s:\n%s", u.QuestionID, formatLeaderboard(u.Leaderboard))

			case domain.RoomEventSessionEnded:
				return
			}
		}
	}()
}

func subscribeRedis(t *testing.T, rc redis.UniversalClient, channel string) <-chan *redis.Message {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	t.Cleanup(cancel)

	sub := rc.Subscribe(ctx, channel)
	t.Cleanup(func() { sub.Close() })

	if _, err := sub.Receive(ctx); err != nil {
		t.Fatal(err)
	}

	c := make(chan *redis.Message)
	go func() {
		defer close(c)

		for {
			msg, err := sub.ReceiveMessage(ctx)
			if err != nil {
				t.Log(err)
				return
			}

			c <- msg
		}
	}()

	return c
}

func makeRedis(t *testing.T) redis.UniversalClient {
	r := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs: []string{"localhost:6379"},
	})
	t.Cleanup(func() { r.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := r.Ping(ctx).Err(); err != nil {
		t.Fatal(err)
	}

	return r
}

func formatLeaderboard(l domain.Leaderboard) string {
	var s string
	for _, e := range l.Entries {
		s += fmt.Sprintf("%d. %s: %s\n", e.Rank, e.TeamName, e.Score)
	}
	return s
}
