package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
)

// Event[T] binds a topic name to its payload type for type-safe publishing.
//
// Event also reports its payload type, so a struct field of type Event[T] describes
// the messages it carries to schema introspection.
type Event[T any] struct {
	topicName string
}

// NewEvent creates a typed event for the given topic.
func NewEvent[T any](name string) Event[T] {
	return Event[T]{topicName: name}
}

// Name returns the topic name.
func (e Event[T]) Name() string {
	return e.topicName
}

// PayloadType returns the Go type of the event's payload.
func (e Event[T]) PayloadType() reflect.Type {
	return reflect.TypeFor[T]()
}

// Publish sends a typed event. The compiler ensures payload matches T.
func Publish[T any](ctx context.Context, p Publisher, event Event[T], payload T) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode %s payload: %w", event.Name(), err)
	}

	return p.Publish(ctx, Message{
		Topic:   event.Name(),
		Payload: data,
	})
}

// Subscribe delivers decoded payloads of event to handler. Messages that do not decode
// as T are logged by the subscriber and skipped.
func Subscribe[T any](ctx context.Context, s Subscriber, event Event[T], handler func(context.Context, T) error) error {
	return s.Subscribe(ctx, event.Name(), func(ctx context.Context, msg Message) error {
		var payload T
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return fmt.Errorf("failed to decode %s payload: %w", event.Name(), err)
		}
		return handler(ctx, payload)
	})
}
