// Package pubsub is a small in-process publish/subscribe broker.
package pubsub

import (
	"context"
	"sync"
	"time"
)

// Broker fans out events to subscribers. Publish never blocks.
type Broker[T any] struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[uint64]*subscriber[T]
	cancel map[uint64]context.CancelFunc
	closed bool
	wg     sync.WaitGroup
}

func NewBroker[T any]() *Broker[T] {
	return &Broker[T]{
		subs:   make(map[uint64]*subscriber[T]),
		cancel: make(map[uint64]context.CancelFunc),
	}
}

// Subscribe returns a channel receiving events published on topic, or on
// every topic when topic is empty. The channel is closed when ctx is done
// or the broker is closed.
func (b *Broker[T]) Subscribe(ctx context.Context, topic string) <-chan Event[T] {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		ch := make(chan Event[T])
		close(ch)
		return ch
	}

	ctx, cancel := context.WithCancel(ctx)
	b.nextID++
	id := b.nextID
	sub := newSubscriber[T](ctx, id, topic)
	b.subs[id] = sub
	b.cancel[id] = cancel

	b.wg.Add(1)
	go sub.run(func() {
		b.remove(id)
		b.wg.Done()
	})

	return sub.ch
}

func (b *Broker[T]) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if sub, ok := b.subs[id]; ok {
		sub.close()
		delete(b.subs, id)
	}
	if cancel, ok := b.cancel[id]; ok {
		cancel()
		delete(b.cancel, id)
	}
}

// Publish delivers data to the subscribers of topic.
func (b *Broker[T]) Publish(topic string, data T) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}

	event := Event[T]{Topic: topic, Time: time.Now(), Data: data}
	for _, sub := range b.subs {
		if sub.wants(topic) {
			sub.send(event)
		}
	}
}

// SubscriberCount returns the number of live subscriptions.
func (b *Broker[T]) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close ends every subscription and waits for their channels to close.
func (b *Broker[T]) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	cancels := make([]context.CancelFunc, 0, len(b.cancel))
	for _, cancel := range b.cancel {
		cancels = append(cancels, cancel)
	}
	b.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
	b.wg.Wait()
}
