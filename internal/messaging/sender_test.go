package messaging

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nfrund/msgtopology/internal/pubsub"
	"github.com/nfrund/msgtopology/internal/topology"
)

type recordingPublisher struct {
	sent []pubsub.Message
	err  error
}

func (p *recordingPublisher) Publish(ctx context.Context, msg pubsub.Message) error {
	if p.err != nil {
		return p.err
	}
	p.sent = append(p.sent, msg)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func newSender(t *testing.T) (*Sender, *recordingPublisher) {
	t.Helper()

	out := topology.NewChannel("orders-out", topology.Outgoing, "orders.Service", "NewOrders")
	out.Topic = "orders.v1"
	out.Connector = "gochannel"

	store := topology.NewStore(&topology.Topology{
		ServiceName: "orders",
		Channels: []topology.Channel{
			out,
			topology.NewChannel("payments", topology.Incoming, "orders.Service", "OnPayment"),
		},
	})
	pub := &recordingPublisher{}
	return NewSender(store, pub), pub
}

func TestSend(t *testing.T) {
	ctx := context.Background()

	t.Run("structured payloads are json encoded", func(t *testing.T) {
		s, pub := newSender(t)

		topic, err := s.Send(ctx, "orders-out", map[string]any{"id": "o-1"})
		require.NoError(t, err)
		assert.Equal(t, "orders.v1", topic)

		require.Len(t, pub.sent, 1)
		assert.Equal(t, "orders-out", pub.sent[0].Topic)
		assert.JSONEq(t, `{"id":"o-1"}`, string(pub.sent[0].Payload))
		assert.Equal(t, "orders.v1", pub.sent[0].Metadata[MetaDestination])
		assert.Equal(t, "gochannel", pub.sent[0].Metadata[MetaConnector])
	})

	t.Run("strings are sent verbatim", func(t *testing.T) {
		s, pub := newSender(t)

		_, err := s.Send(ctx, "orders-out", `{"raw":true}`)
		require.NoError(t, err)
		assert.Equal(t, `{"raw":true}`, string(pub.sent[0].Payload))
	})
}

func TestSend_Rejections(t *testing.T) {
	ctx := context.Background()
	s, pub := newSender(t)

	cases := map[string]struct {
		channel string
		payload any
		kind    topology.ErrorKind
	}{
		"missing channel":  {"", "x", topology.ErrorInvalidInput},
		"missing payload":  {"orders-out", nil, topology.ErrorInvalidInput},
		"unknown channel":  {"nope", "x", topology.ErrorChannelNotFound},
		"incoming channel": {"payments", "x", topology.ErrorChannelNotFound},
		"unencodable":      {"orders-out", make(chan int), topology.ErrorInvalidInput},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := s.Send(ctx, tc.channel, tc.payload)

			var terr *topology.Error
			require.True(t, errors.As(err, &terr), "got %v", err)
			assert.Equal(t, tc.kind, terr.Kind)
		})
	}
	assert.Empty(t, pub.sent)

	t.Run("no topology", func(t *testing.T) {
		empty := NewSender(topology.NewStore(nil), pub)
		_, err := empty.Send(ctx, "orders-out", "x")
		assert.ErrorIs(t, err, &topology.Error{Kind: topology.ErrorNotInitialized})
	})

	t.Run("publish failure is wrapped", func(t *testing.T) {
		failing := NewSender(s.store, &recordingPublisher{err: assert.AnError})
		_, err := failing.Send(ctx, "orders-out", "x")
		assert.ErrorIs(t, err, assert.AnError)
	})
}

func TestSend_OverBus(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := pubsub.NewWatermillBridge()
	defer bus.Close()

	received := make(chan pubsub.Message, 1)
	require.NoError(t, bus.Subscribe(ctx, "orders-out", func(ctx context.Context, msg pubsub.Message) error {
		received <- msg
		return nil
	}))

	s, _ := newSender(t)
	s.publisher = bus
	_, err := s.Send(ctx, "orders-out", map[string]int{"n": 1})
	require.NoError(t, err)

	select {
	case msg := <-received:
		assert.Equal(t, "orders.v1", msg.Metadata[MetaDestination])
	case <-time.After(2 * time.Second):
		t.Fatal("message not delivered")
	}
}
