package feed

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Memory is an in-process broker.
type Memory struct {
	mu     sync.RWMutex
	subs   map[string]*Subscription
	closed bool
	log    zerolog.Logger
}

func NewMemory(log zerolog.Logger) *Memory {
	return &Memory{
		subs: make(map[string]*Subscription),
		log:  log.With().Str("component", "feed.memory").Logger(),
	}
}

var _ Feed = (*Memory)(nil)

func (m *Memory) Publish(ctx context.Context, e Event) error {
	stamp(&e)

	m.mu.RLock()
	if m.closed {
		m.mu.RUnlock()
		return ErrClosed
	}
	targets := make([]*Subscription, 0, len(m.subs))
	for _, s := range m.subs {
		if s.filter.Matches(e) {
			targets = append(targets, s)
		}
	}
	m.mu.RUnlock()

	for _, s := range targets {
		if err := s.Deliver(ctx, e); err != nil {
			if errors.Is(err, ErrClosed) {
				continue
			}
			return err
		}
	}
	return nil
}

func (m *Memory) Subscribe(ctx context.Context, f Filter, h Handler) (*Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}

	s := NewSubscription(ctx, f, h, m.forget)
	m.subs[s.ID()] = s
	m.log.Debug().Str("subscription", s.ID()).Stringer("filter", f).Msg("subscribed")
	return s, nil
}

// Len returns the number of live subscriptions.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subs)
}

func (m *Memory) Close() error {
	m.mu.Lock()
	m.closed = true
	subs := make([]*Subscription, 0, len(m.subs))
	for _, s := range m.subs {
		subs = append(subs, s)
	}
	m.mu.Unlock()

	for _, s := range subs {
		s.Unsubscribe()
	}
	return nil
}

func (m *Memory) forget(id string) {
	m.mu.Lock()
	delete(m.subs, id)
	m.mu.Unlock()
	m.log.Debug().Str("subscription", id).Msg("unsubscribed")
}

func stamp(e *Event) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CommittedAt.IsZero() {
		e.CommittedAt = time.Now().UTC()
	}
}
