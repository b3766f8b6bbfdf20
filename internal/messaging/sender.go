// Package messaging publishes ad-hoc messages to the process's own outgoing channels.
package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nfrund/msgtopology/internal/metrics"
	"github.com/nfrund/msgtopology/internal/pubsub"
	"github.com/nfrund/msgtopology/internal/topology"
)

// Metadata keys attached to sent messages.
const (
	MetaDestination = "destination"
	MetaConnector   = "connector"
)

// Sender publishes payloads on the bus under an outgoing channel's name.
// Delivery is at-most-once.
type Sender struct {
	store     *topology.Store
	publisher pubsub.Publisher
}

// NewSender creates a sender that validates channels against store.
func NewSender(store *topology.Store, publisher pubsub.Publisher) *Sender {
	return &Sender{store: store, publisher: publisher}
}

// Send publishes payload to channel and returns the topic the channel is bound to.
// Strings are sent verbatim; anything else is JSON encoded.
func (s *Sender) Send(ctx context.Context, channel string, payload any) (string, error) {
	if channel == "" {
		return "", &topology.Error{Kind: topology.ErrorInvalidInput, Message: "channel is required"}
	}
	if payload == nil {
		return "", &topology.Error{Kind: topology.ErrorInvalidInput, Channel: channel, Message: "payload is required"}
	}

	t := s.store.Get()
	if t == nil {
		return "", &topology.Error{Kind: topology.ErrorNotInitialized, Channel: channel, Message: "topology not initialized"}
	}

	ch, ok := t.FindChannel(channel, topology.Outgoing)
	if !ok {
		return "", &topology.Error{
			Kind:    topology.ErrorChannelNotFound,
			Channel: channel,
			Message: fmt.Sprintf("channel not found or not outgoing: %s", channel),
		}
	}

	data, err := encode(payload)
	if err != nil {
		return "", &topology.Error{Kind: topology.ErrorInvalidInput, Channel: channel, Message: "payload is not encodable", Cause: err}
	}

	topic := ch.EffectiveTopic()
	err = s.publisher.Publish(ctx, pubsub.Message{
		Topic:   channel,
		Payload: data,
		Metadata: map[string]string{
			MetaDestination: topic,
			MetaConnector:   ch.Connector,
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to publish to %s: %w", channel, err)
	}

	metrics.MessagesSentTotal.WithLabelValues(channel).Inc()
	slog.Info("Message sent", "channel", channel, "topic", topic, "bytes", len(data))
	return topic, nil
}

func encode(payload any) ([]byte, error) {
	switch p := payload.(type) {
	case string:
		return []byte(p), nil
	case []byte:
		return p, nil
	case json.RawMessage:
		return p, nil
	default:
		return json.Marshal(payload)
	}
}
