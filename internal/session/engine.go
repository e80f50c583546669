// Package session orchestrates live quiz sessions.
//
// All session state is mutated by a single goroutine (Engine.Run) consuming a queue of jobs.
// Commands from hosts and teams, countdown ticks and expiries are all jobs on that queue, so
// a tick and a submission are never interleaved. Slow I/O (loading a quiz) runs outside the
// loop and its result is applied by a later job, after the guards are checked again.
package session

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/victornm/livequiz/internal/domain"
	"github.com/victornm/livequiz/internal/errors"
	"github.com/victornm/livequiz/internal/event"
	"github.com/victornm/livequiz/internal/quiz"
	"github.com/victornm/livequiz/internal/score"
	"github.com/victornm/livequiz/internal/telemetry"
	"github.com/victornm/livequiz/internal/timer"
)

const (
	defaultCountdown = 20 * time.Second
	defaultQueueSize = 1024
)

var (
	// errIgnored is returned by handlers for commands that are well-formed but not valid in
	// the current phase. They are dropped without telling the caller.
	errIgnored = stderrors.New("session: command ignored")

	ErrStopped = stderrors.New("session: engine stopped")
)

// Broadcaster delivers events to the connections of a session.
// Events broadcast to a session must reach every member in emission order.
type Broadcaster interface {
	JoinRoom(connectionID, sessionID string)
	CloseRoom(sessionID string)
	Broadcast(ctx context.Context, sessionID, event string, payload any)
	Unicast(ctx context.Context, connectionID, event string, payload any)
}

// Timers arms question countdowns. A failure to arm is fatal to the session.
type Timers interface {
	Arm(seconds int, cb timer.Callbacks) (*timer.Countdown, error)
}

type Config struct {
	Quizzes  quiz.Provider
	Rooms    Broadcaster
	EventBus *event.Bus
	Clock    clockwork.Clock
	// Timers defaults to a timer.Scheduler on Clock with Grace.
	Timers Timers

	Scoring score.Config
	// Grace between the end of a countdown and the close of the answer window.
	Grace time.Duration
	// DefaultCountdown is used when start-timer does not say how long.
	DefaultCountdown time.Duration
	// IdleTimeout evicts sessions without any connection for that long. Zero disables it.
	IdleTimeout   time.Duration
	SweepInterval time.Duration
	// SkipReview ends the session right after the last question.
	SkipReview bool
	CodeLength int
	QueueSize  int
}

type job func(ctx context.Context)

type Engine struct {
	quizzes quiz.Provider
	rooms   Broadcaster
	eb      *event.Bus
	clock   clockwork.Clock
	timers  Timers
	store   *Store

	scoring          score.Config
	defaultCountdown int
	idleTimeout      time.Duration
	sweepInterval    time.Duration
	skipReview       bool

	jobs chan job
	done chan struct{}
}

func NewEngine(c Config) *Engine {
	e := &Engine{
		quizzes:       c.Quizzes,
		rooms:         c.Rooms,
		eb:            c.EventBus,
		clock:         c.Clock,
		timers:        c.Timers,
		store:         NewStore(c.CodeLength),
		scoring:       c.Scoring,
		idleTimeout:   c.IdleTimeout,
		sweepInterval: c.SweepInterval,
		skipReview:    c.SkipReview,
		done:          make(chan struct{}),
	}

	if e.clock == nil {
		e.clock = clockwork.NewRealClock()
	}

	if e.eb == nil {
		e.eb = event.NewBus()
	}

	if e.timers == nil {
		e.timers = timer.NewScheduler(timer.Config{Clock: e.clock, Grace: c.Grace})
	}

	cd := c.DefaultCountdown
	if cd < time.Second {
		cd = defaultCountdown
	}
	e.defaultCountdown = int(cd / time.Second)

	if e.sweepInterval <= 0 {
		e.sweepInterval = time.Minute
	}

	qs := c.QueueSize
	if qs <= 0 {
		qs = defaultQueueSize
	}
	e.jobs = make(chan job, qs)

	return e
}

// Run processes jobs until ctx is cancelled. It must be called exactly once.
func (e *Engine) Run(ctx context.Context) {
	defer close(e.done)

	var sweep <-chan time.Time
	if e.idleTimeout > 0 {
		t := e.clock.NewTicker(e.sweepInterval)
		defer t.Stop()
		sweep = t.Chan()
	}

	slog.InfoContext(ctx, "session: engine started")

	for {
		select {
		case <-ctx.Done():
			for _, s := range e.store.All() {
				s.stopCountdown()
			}
			slog.InfoContext(ctx, "session: engine stopped", "sessions", e.store.Len())
			return

		case j := <-e.jobs:
			j(ctx)

		case <-sweep:
			e.evictIdle(ctx)
		}
	}
}

// do runs fn on the engine loop and waits for its result.
func (e *Engine) do(ctx context.Context, command string, fn func(ctx context.Context) error) error {
	reply := make(chan error, 1)
	j := func(ctx context.Context) {
		reply <- fn(ctx)
	}

	select {
	case e.jobs <- j:
	case <-ctx.Done():
		return ctx.Err()
	case <-e.done:
		return ErrStopped
	}

	var err error
	select {
	case err = <-reply:
	case <-ctx.Done():
		return ctx.Err()
	case <-e.done:
		return ErrStopped
	}

	switch {
	case err == nil:
		telemetry.Commands.WithLabelValues(command, "ok").Inc()
	case stderrors.Is(err, errIgnored):
		telemetry.Commands.WithLabelValues(command, "ignored").Inc()
		slog.DebugContext(ctx, "session: command ignored", "command", command, "reason", err)
		return nil
	default:
		telemetry.Commands.WithLabelValues(command, "error").Inc()
	}

	return err
}

// post queues fn without waiting. Used by countdown callbacks.
func (e *Engine) post(fn job) {
	select {
	case e.jobs <- fn:
	case <-e.done:
	}
}

func (e *Engine) lookup(id string) (*Session, error) {
	if id == "" {
		return nil, errors.InvalidArgument("session id is required")
	}

	s, ok := e.store.Get(id)
	if !ok {
		return nil, errors.NotFound("session not found: session=%s", NormalizeID(id))
	}
	return s, nil
}

func ignored(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errIgnored, fmt.Sprintf(format, args...))
}

func (e *Engine) broadcast(ctx context.Context, s *Session, name string, payload any) {
	telemetry.Broadcasts.WithLabelValues(name).Inc()
	e.rooms.Broadcast(ctx, s.id, name, payload)
}

func (e *Engine) unicast(ctx context.Context, connectionID, name string, payload any) {
	telemetry.Broadcasts.WithLabelValues(name).Inc()
	e.rooms.Unicast(ctx, connectionID, name, payload)
}

func (e *Engine) changed(ctx context.Context, s *Session) {
	s.version++
	e.eb.Publish(ctx, domain.EventSessionChanged{
		Session:    s.info(),
		Version:    s.version,
		UpdateTime: e.clock.Now(),
	})
}
