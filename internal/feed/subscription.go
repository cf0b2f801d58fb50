package feed

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

const defaultBuffer = 64

// Subscription is a cancellable handle with a single owner. Events are
// handed to the handler one at a time, in the order they were delivered.
type Subscription struct {
	id     string
	filter Filter
	events chan Event

	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	once    sync.Once
	release func(id string)

	mu   sync.Mutex
	stop func() bool
}

// NewSubscription starts the delivery loop for h. release, if set, runs once
// when the subscription is torn down. Feed implementations use it to drop
// their bookkeeping.
func NewSubscription(ctx context.Context, f Filter, h Handler, release func(id string)) *Subscription {
	subCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s := &Subscription{
		id:      uuid.NewString(),
		filter:  f,
		events:  make(chan Event, defaultBuffer),
		ctx:     subCtx,
		cancel:  cancel,
		done:    make(chan struct{}),
		release: release,
	}
	s.mu.Lock()
	s.stop = context.AfterFunc(ctx, s.Unsubscribe)
	s.mu.Unlock()
	go s.run(h)
	return s
}

func (s *Subscription) ID() string     { return s.id }
func (s *Subscription) Filter() Filter { return s.filter }

// Done is closed once the delivery loop has exited.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// Active reports whether the subscription has not been released yet.
func (s *Subscription) Active() bool { return s.ctx.Err() == nil }

// Deliver queues e if it matches the filter. It blocks while the buffer is
// full and returns ErrClosed once the subscription is released.
func (s *Subscription) Deliver(ctx context.Context, e Event) error {
	if !s.filter.Matches(e) {
		return nil
	}
	if s.ctx.Err() != nil {
		return ErrClosed
	}
	select {
	case s.events <- e:
		return nil
	case <-s.ctx.Done():
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Unsubscribe releases the subscription. It is safe to call more than once
// and from inside the handler.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.mu.Lock()
		stop := s.stop
		s.mu.Unlock()
		if stop != nil {
			stop()
		}
		s.cancel()
		if s.release != nil {
			s.release(s.id)
		}
	})
}

func (s *Subscription) run(h Handler) {
	defer close(s.done)
	for {
		select {
		case <-s.ctx.Done():
			return
		case e := <-s.events:
			if s.ctx.Err() != nil {
				return
			}
			h(s.ctx, e)
		}
	}
}
