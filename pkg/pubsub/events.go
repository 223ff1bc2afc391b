package pubsub

import "time"

// Event is a message delivered to subscribers of a topic.
type Event[T any] struct {
	Topic string
	Time  time.Time
	Data  T
}
