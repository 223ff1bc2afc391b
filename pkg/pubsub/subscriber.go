package pubsub

import (
	"context"
	"sync"
)

// subscriber owns one subscription. Publishers append to an unbounded
// buffer so they never block; run drains it into ch.
type subscriber[T any] struct {
	id    uint64
	topic string // Empty means all topics
	ch    chan Event[T]
	ctx   context.Context

	mu     sync.Mutex
	buffer []Event[T]
	notify chan struct{}
	closed bool
}

func newSubscriber[T any](ctx context.Context, id uint64, topic string) *subscriber[T] {
	return &subscriber[T]{
		id:     id,
		topic:  topic,
		ch:     make(chan Event[T], 64),
		ctx:    ctx,
		notify: make(chan struct{}, 1),
	}
}

func (s *subscriber[T]) wants(topic string) bool {
	return s.topic == "" || s.topic == topic
}

func (s *subscriber[T]) send(event Event[T]) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.buffer = append(s.buffer, event)
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
}

func (s *subscriber[T]) run(done func()) {
	defer done()
	defer close(s.ch)

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-s.notify:
			s.drain()
		}
	}
}

func (s *subscriber[T]) drain() {
	for {
		s.mu.Lock()
		if len(s.buffer) == 0 || s.closed {
			s.mu.Unlock()
			return
		}
		events := s.buffer
		s.buffer = nil
		s.mu.Unlock()

		for _, event := range events {
			select {
			case s.ch <- event:
			case <-s.ctx.Done():
				return
			}
		}
	}
}

func (s *subscriber[T]) close() {
	s.mu.Lock()
	s.closed = true
	s.buffer = nil
	s.mu.Unlock()
}
