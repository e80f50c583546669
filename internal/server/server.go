package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/victornm/livequiz/internal/api"
	"github.com/victornm/livequiz/internal/event"
	"github.com/victornm/livequiz/internal/leaderboard"
	"github.com/victornm/livequiz/internal/metadata"
	"github.com/victornm/livequiz/internal/quiz"
	"github.com/victornm/livequiz/internal/room"
	"github.com/victornm/livequiz/internal/score"
	"github.com/victornm/livequiz/internal/session"
	"github.com/victornm/livequiz/internal/telemetry"
)

const (
	QuizSourcePostgres = "postgres"
	QuizSourceFile     = "file"
)

type Config struct {
	HTTP struct {
		Port int32
	}

	GRPC struct {
		Port int32
	}

	Log struct {
		Level string
	}

	Redis struct {
		Store struct {
			Addrs  []string
			Pass   string
			Prefix string
		}

		Pubsub struct {
			Addrs  []string
			Pass   string
			Prefix string
		}
	}

	Postgres struct {
		Addr string
		User string
		Pass string
		Name string
	}

	Quiz struct {
		// Source is postgres or file.
		Source string
		Dir    string
	}

	Game struct {
		BasePoints       int64
		DoubleMultiplier int64
		Grace            time.Duration
		DefaultCountdown time.Duration
		IdleTimeout      time.Duration
		SweepInterval    time.Duration
		SkipReview       bool
		CodeLength       int
	}

	Leaderboard struct {
		TTL time.Duration
	}

	Events struct {
		PoolSize       int
		HandlerTimeout time.Duration
	}

	WebSocket struct {
		WriteTimeout   time.Duration
		ReadTimeout    time.Duration
		PingInterval   time.Duration
		MaxMessageSize int64
		SendBuffer     int
	}
}

// DefaultConfig is the configuration used for every key missing from the file and the env.
func DefaultConfig() Config {
	var c Config
	c.HTTP.Port = 8080
	c.GRPC.Port = 9090
	c.Log.Level = "info"
	c.Redis.Store.Addrs = []string{"localhost:6379"}
	c.Redis.Store.Prefix = "livequiz"
	c.Redis.Pubsub.Addrs = []string{"localhost:6379"}
	c.Redis.Pubsub.Prefix = "livequiz"
	c.Postgres.Addr = "localhost:5432"
	c.Postgres.User = "livequiz"
	c.Postgres.Name = "livequiz"
	c.Quiz.Source = QuizSourcePostgres
	c.Game.BasePoints = 100
	c.Game.DoubleMultiplier = 2
	c.Game.Grace = 700 * time.Millisecond
	c.Game.DefaultCountdown = 20 * time.Second
	c.Game.IdleTimeout = 30 * time.Minute
	c.Game.SweepInterval = time.Minute
	c.Game.CodeLength = 6
	c.Leaderboard.TTL = 24 * time.Hour
	c.Events.PoolSize = 1000
	c.Events.HandlerTimeout = 30 * time.Second
	c.WebSocket.WriteTimeout = 10 * time.Second
	c.WebSocket.ReadTimeout = 60 * time.Second
	c.WebSocket.PingInterval = 30 * time.Second
	c.WebSocket.MaxMessageSize = 4096
	c.WebSocket.SendBuffer = 256
	return c
}

type Server struct {
	c Config

	eb *event.Bus

	infra struct {
		redis struct {
			store  redis.UniversalClient
			pubsub redis.UniversalClient
		}

		postgres *pgxpool.Pool
	}

	service struct {
		quizzes     quiz.Provider
		engine      *session.Engine
		recorder    *score.Recorder
		leaderboard *leaderboard.Service
		metadata    *metadata.Service
		publisher   *api.Publisher
	}

	hub    *room.Hub
	health *health.Server
	http   *http.Server
	grpc   *grpc.Server

	cancel context.CancelFunc
}

func Init(c Config) (*Server, error) {
	s := &Server{c: c}

	s.eb = event.NewBus(
		event.WithPoolSize(c.Events.PoolSize),
		event.WithTimeout(c.Events.HandlerTimeout),
	)

	if err := s.initInfra(); err != nil {
		return nil, fmt.Errorf("server: init infra: %w", err)
	}

	s.initService()
	s.initAPI()
	return s, nil
}

func (s *Server) initInfra() error {
	if err := s.initRedis(); err != nil {
		return fmt.Errorf("redis: %w", err)
	}

	if err := s.initPostgres(); err != nil {
		return fmt.Errorf("postgres: %w", err)
	}

	return nil
}

func (s *Server) initRedis() error {
	connect := func(addrs []string, pass string) (redis.UniversalClient, error) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		r := redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:    addrs,
			Password: pass,
		})

		if err := telemetry.MonitorRedis(r); err != nil {
			return nil, err
		}

		if err := r.Ping(ctx).Err(); err != nil {
			return nil, err
		}

		return r, nil
	}

	var err error
	s.infra.redis.store, err = connect(s.c.Redis.Store.Addrs, s.c.Redis.Store.Pass)
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}

	s.infra.redis.pubsub, err = connect(s.c.Redis.Pubsub.Addrs, s.c.Redis.Pubsub.Pass)
	if err != nil {
		return fmt.Errorf("pubsub: %w", err)
	}

	return nil
}

// initPostgres connects the pool holding quizzes and final scores.
func (s *Server) initPostgres() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	p := s.c.Postgres
	cc, err := pgxpool.ParseConfig(fmt.Sprintf("postgres://%s:%s@%s/%s", p.User, p.Pass, p.Addr, p.Name))
	if err != nil {
		return err
	}

	db, err := pgxpool.NewWithConfig(ctx, cc)
	if err != nil {
		return err
	}

	if err := db.Ping(ctx); err != nil {
		return err
	}

	s.infra.postgres = db
	return nil
}

func (s *Server) initService() {
	switch s.c.Quiz.Source {
	case QuizSourceFile:
		s.service.quizzes = quiz.NewFile(s.c.Quiz.Dir)
	default:
		s.service.quizzes = quiz.NewPostgres(quiz.PostgresConfig{DB: s.infra.postgres})
	}

	s.service.recorder = score.NewRecorder(score.RecorderConfig{
		EventBus: s.eb,
		DB:       s.infra.postgres,
	})

	s.service.leaderboard = leaderboard.NewService(leaderboard.Config{
		EventBus: s.eb,
		Redis:    s.infra.redis.store,
		Prefix:   s.c.Redis.Store.Prefix,
		TTL:      s.c.Leaderboard.TTL,
	})

	s.service.metadata = metadata.NewService(metadata.Config{
		EventBus:  s.eb,
		Redis:     s.infra.redis.store,
		Prefix:    s.c.Redis.Store.Prefix,
		Retention: s.c.Leaderboard.TTL,
	})

	s.service.publisher = api.NewPublisher(api.PublisherConfig{
		Redis:  s.infra.redis.pubsub,
		Prefix: s.c.Redis.Pubsub.Prefix,
	})

	ws := s.c.WebSocket
	s.hub = room.NewHub(room.Config{
		WriteTimeout:   ws.WriteTimeout,
		ReadTimeout:    ws.ReadTimeout,
		PingInterval:   ws.PingInterval,
		MaxMessageSize: ws.MaxMessageSize,
		SendBuffer:     ws.SendBuffer,
		Mirror:         s.service.publisher,
	})

	g := s.c.Game
	s.service.engine = session.NewEngine(session.Config{
		Quizzes:  s.service.quizzes,
		Rooms:    s.hub,
		EventBus: s.eb,
		Clock:    clockwork.NewRealClock(),
		Scoring: score.Config{
			BasePoints:       decimal.NewFromInt(g.BasePoints),
			DoubleMultiplier: decimal.NewFromInt(g.DoubleMultiplier),
		},
		Grace:            g.Grace,
		DefaultCountdown: g.DefaultCountdown,
		IdleTimeout:      g.IdleTimeout,
		SweepInterval:    g.SweepInterval,
		SkipReview:       g.SkipReview,
		CodeLength:       g.CodeLength,
	})
}

func (s *Server) initAPI() {
	e := gin.New()
	e.GET("/metrics", gin.WrapH(promhttp.Handler()))
	pprof.Register(e, "/debug/pprof")
	e.Use(gin.Recovery())

	api.New(api.Config{
		Router:      e,
		Engine:      s.service.engine,
		Hub:         s.hub,
		Leaderboard: s.service.leaderboard,
		Metadata:    s.service.metadata,
	})

	s.grpc = grpc.NewServer(telemetry.GRPCServerInterceptors()...)
	s.health = health.NewServer()
	healthpb.RegisterHealthServer(s.grpc, s.health)
	reflection.Register(s.grpc)

	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.c.HTTP.Port),
		Handler:           e,
		ReadHeaderTimeout: 60 * time.Second,
	}
}

func (s *Server) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", s.c.GRPC.Port))
	if err != nil {
		slog.ErrorContext(ctx, "grpc server: listen failed", "error", err)
		panic(err)
	}

	var eg errgroup.Group
	eg.Go(func() error {
		s.service.engine.Run(ctx)
		return nil
	})

	eg.Go(func() error {
		return s.service.publisher.Run(ctx)
	})

	eg.Go(func() error {
		s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
		slog.InfoContext(ctx, fmt.Sprintf("server: gRPC listening on port %d", s.c.GRPC.Port))
		return s.grpc.Serve(lis)
	})

	eg.Go(func() error {
		slog.InfoContext(ctx, fmt.Sprintf("server: HTTP listening on port %d", s.c.HTTP.Port))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	err = eg.Wait()
	if err != nil {
		slog.ErrorContext(ctx, "server: shutdown with error", "error", err)
	}
}

func (s *Server) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.health.Shutdown()
	s.grpc.GracefulStop()

	s.hub.Close()
	if err := s.http.Shutdown(ctx); err != nil {
		slog.ErrorContext(ctx, "server: shutdown HTTP failed", "error", err)
	}

	if s.cancel != nil {
		s.cancel()
	}

	s.eb.Stop()
	s.infra.postgres.Close()
	_ = s.infra.redis.store.Close()
	_ = s.infra.redis.pubsub.Close()

	slog.InfoContext(ctx, "server: shutdown completed")
}
