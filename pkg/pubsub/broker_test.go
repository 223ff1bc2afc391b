package pubsub

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive[T any](t *testing.T, ch <-chan Event[T]) Event[T] {
	t.Helper()
	select {
	case ev, ok := <-ch:
		require.True(t, ok, "channel closed unexpectedly")
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return Event[T]{}
	}
}

func TestBroker_PublishToTopic(t *testing.T) {
	t.Parallel()

	b := NewBroker[string]()
	defer b.Close()

	progress := b.Subscribe(t.Context(), "progress")
	all := b.Subscribe(t.Context(), "")

	b.Publish("other", "ignored-by-progress")
	b.Publish("progress", "uploading")

	assert.Equal(t, "ignored-by-progress", receive(t, all).Data)
	assert.Equal(t, "uploading", receive(t, all).Data)

	ev := receive(t, progress)
	assert.Equal(t, "progress", ev.Topic)
	assert.Equal(t, "uploading", ev.Data)
	assert.False(t, ev.Time.IsZero())
}

func TestBroker_PreservesOrder(t *testing.T) {
	t.Parallel()

	b := NewBroker[int]()
	defer b.Close()

	ch := b.Subscribe(t.Context(), "n")
	for i := range 500 {
		b.Publish("n", i)
	}
	for i := range 500 {
		assert.Equal(t, i, receive(t, ch).Data)
	}
}

func TestBroker_UnsubscribeOnContextDone(t *testing.T) {
	t.Parallel()

	b := NewBroker[int]()
	defer b.Close()

	ctx, cancel := context.WithCancel(t.Context())
	ch := b.Subscribe(ctx, "")
	assert.Equal(t, 1, b.SubscriberCount())

	cancel()

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("channel not closed")
	}
	assert.Eventually(t, func() bool { return b.SubscriberCount() == 0 }, time.Second, 10*time.Millisecond)
}

func TestBroker_Close(t *testing.T) {
	t.Parallel()

	b := NewBroker[int]()
	ch := b.Subscribe(t.Context(), "")

	b.Close()
	b.Close()

	_, ok := <-ch
	assert.False(t, ok)

	late := b.Subscribe(t.Context(), "")
	_, ok = <-late
	assert.False(t, ok, "subscribing to a closed broker returns a closed channel")

	b.Publish("x", 1)
}
