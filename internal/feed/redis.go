package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const redisChannelPrefix = "wachat:feed:"

// Redis fans events out through Redis pub/sub, one channel per table, so
// several server processes share one feed. Filtering happens on the
// subscriber side.
type Redis struct {
	client *redis.Client
	log    zerolog.Logger

	mu     sync.Mutex
	subs   map[string]*Subscription
	closed bool
}

// NewRedisFromURL connects to the Redis instance at url and verifies it with
// a ping.
func NewRedisFromURL(url string, log zerolog.Logger) (*Redis, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis: parse url: %w", err)
	}
	c := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := c.Ping(ctx).Err(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}
	return NewRedis(c, log), nil
}

// NewRedis wraps an existing client. The feed takes ownership of it.
func NewRedis(client *redis.Client, log zerolog.Logger) *Redis {
	return &Redis{
		client: client,
		log:    log.With().Str("component", "feed.redis").Logger(),
		subs:   make(map[string]*Subscription),
	}
}

var _ Feed = (*Redis)(nil)

func channelFor(table string) string {
	return redisChannelPrefix + table
}

func (r *Redis) Publish(ctx context.Context, e Event) error {
	stamp(&e)
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("redis: encode event: %w", err)
	}
	if err := r.client.Publish(ctx, channelFor(e.Table), payload).Err(); err != nil {
		return fmt.Errorf("redis: publish: %w", err)
	}
	return nil
}

func (r *Redis) Subscribe(ctx context.Context, f Filter, h Handler) (*Subscription, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, ErrClosed
	}
	r.mu.Unlock()

	ps := r.client.Subscribe(ctx, channelFor(f.Table))
	// Wait for the subscription confirmation so no event published after
	// Subscribe returns can be missed.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("redis: subscribe: %w", err)
	}

	s := NewSubscription(ctx, f, h, func(id string) {
		if err := ps.Close(); err != nil {
			r.log.Warn().Err(err).Str("subscription", id).Msg("closing pubsub")
		}
		r.mu.Lock()
		delete(r.subs, id)
		r.mu.Unlock()
	})

	r.mu.Lock()
	if s.Active() {
		r.subs[s.ID()] = s
	}
	r.mu.Unlock()

	go r.pump(ps, s)
	r.log.Debug().Str("subscription", s.ID()).Stringer("filter", f).Msg("subscribed")
	return s, nil
}

func (r *Redis) pump(ps *redis.PubSub, s *Subscription) {
	for msg := range ps.Channel() {
		var e Event
		if err := json.Unmarshal([]byte(msg.Payload), &e); err != nil {
			r.log.Warn().Err(err).Str("channel", msg.Channel).Msg("dropping undecodable event")
			continue
		}
		if err := s.Deliver(context.Background(), e); errors.Is(err, ErrClosed) {
			return
		}
	}
}

func (r *Redis) Close() error {
	r.mu.Lock()
	r.closed = true
	subs := make([]*Subscription, 0, len(r.subs))
	for _, s := range r.subs {
		subs = append(subs, s)
	}
	r.mu.Unlock()

	for _, s := range subs {
		s.Unsubscribe()
	}
	return r.client.Close()
}
