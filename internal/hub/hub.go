package hub

import (
	"context"
	"log/slog"
)

// Subscriber is one websocket client receiving diagram updates from the Hub.
type Subscriber struct {
	// Send is a buffered channel of outbound messages. The Hub closes it when the
	// subscriber is unregistered or falls behind.
	Send chan []byte
}

// NewSubscriber creates a subscriber with the given send buffer.
func NewSubscriber(buffer int) *Subscriber {
	return &Subscriber{Send: make(chan []byte, buffer)}
}

// Hub fans out messages to every registered subscriber.
type Hub struct {
	subscribers map[*Subscriber]bool

	// Broadcast delivers a message to all subscribers.
	Broadcast chan []byte
	// Register adds a subscriber.
	Register chan *Subscriber
	// Unregister removes a subscriber and closes its Send channel.
	Unregister chan *Subscriber
}

// NewHub creates and returns a new Hub instance.
func NewHub() *Hub {
	return &Hub{
		Broadcast:   make(chan []byte),
		Register:    make(chan *Subscriber),
		Unregister:  make(chan *Subscriber),
		subscribers: make(map[*Subscriber]bool),
	}
}

// Run processes hub traffic until ctx is cancelled, then closes every subscriber.
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		for subscriber := range h.subscribers {
			close(subscriber.Send)
			delete(h.subscribers, subscriber)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case subscriber := <-h.Register:
			h.subscribers[subscriber] = true
			slog.Debug("Diagram subscriber registered", "total_subscribers", len(h.subscribers))

		case subscriber := <-h.Unregister:
			if _, ok := h.subscribers[subscriber]; ok {
				delete(h.subscribers, subscriber)
				close(subscriber.Send)
				slog.Debug("Diagram subscriber unregistered", "total_subscribers", len(h.subscribers))
			}

		case message := <-h.Broadcast:
			for subscriber := range h.subscribers {
				select {
				case subscriber.Send <- message:
				default:
					// full buffer means the client stopped reading
					close(subscriber.Send)
					delete(h.subscribers, subscriber)
					slog.Warn("Dropping slow diagram subscriber", "total_subscribers", len(h.subscribers))
				}
			}
		}
	}
}
