package api

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

const (
	defaultPublishers = 8
	publishQueueSize  = 1024
)

type Redis interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

type PublisherConfig struct {
	Redis  Redis
	Prefix string
	// Workers publishing concurrently. Messages of one session always go through the same worker.
	Workers int
}

// Publisher mirrors room broadcasts to Redis channels, one channel per session, so that
// observers outside this process (dashboards, projectors) can follow a session.
type Publisher struct {
	redis  Redis
	prefix string
	queues []chan publication
}

type publication struct {
	ctx     context.Context
	channel string
	msg     []byte
}

func NewPublisher(c PublisherConfig) *Publisher {
	n := c.Workers
	if n <= 0 {
		n = defaultPublishers
	}

	p := &Publisher{
		redis:  c.Redis,
		prefix: c.Prefix,
		queues: make([]chan publication, n),
	}
	for i := range p.queues {
		p.queues[i] = make(chan publication, publishQueueSize)
	}

	return p
}

// Channel is the Redis channel of a session.
func (p *Publisher) Channel(sessionID string) string {
	return fmt.Sprintf("%s:session:%s", p.prefix, sessionID)
}

// Mirror queues msg for publishing. It never blocks: when the queue of the session is full
// the message is dropped.
func (p *Publisher) Mirror(ctx context.Context, sessionID string, msg []byte) {
	h := fnv.New32a()
	_, _ = h.Write([]byte(sessionID))
	q := p.queues[h.Sum32()%uint32(len(p.queues))]

	select {
	case q <- publication{ctx: context.WithoutCancel(ctx), channel: p.Channel(sessionID), msg: msg}:
	default:
		slog.WarnContext(ctx, "pubsub: queue full, dropping message", "session", sessionID)
	}
}

// Run publishes queued messages until ctx is cancelled.
func (p *Publisher) Run(ctx context.Context) error {
	eg, ctx := errgroup.WithContext(ctx)

	for _, q := range p.queues {
		eg.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return nil
				case m := <-q:
					if err := p.redis.Publish(m.ctx, m.channel, m.msg).Err(); err != nil {
						slog.ErrorContext(m.ctx, "pubsub: publish failed", "channel", m.channel, "error", err)
					}
				}
			}
		})
	}

	return eg.Wait()
}
