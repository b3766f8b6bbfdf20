package pubsub

import (
	"bytes"
	"context"
	"log/slog"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ping struct {
	Seq int `json:"seq"`
}

func TestWatermillBridge_RoundTrip(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tracer, shutdown, err := SetupTracing(ctx, TracingConfig{})
	require.NoError(t, err)
	defer shutdown(ctx)

	bus := NewWatermillBridge(WithTracer(tracer))
	defer bus.Close()

	received := make(chan Message, 1)
	require.NoError(t, bus.Subscribe(ctx, "orders", func(ctx context.Context, msg Message) error {
		received <- msg
		return nil
	}))

	require.NoError(t, bus.Publish(ctx, Message{
		Topic:    "orders",
		Payload:  []byte(`{"id":1}`),
		Metadata: map[string]string{"source": "test"},
	}))

	select {
	case msg := <-received:
		assert.Equal(t, "orders", msg.Topic)
		assert.JSONEq(t, `{"id":1}`, string(msg.Payload))
		assert.Equal(t, "test", msg.Metadata["source"])
		assert.NotContains(t, msg.Metadata, MetaTopic)
	case <-time.After(2 * time.Second):
		t.Fatal("message not delivered")
	}
}

// lockedBuffer lets the bus goroutines log while the test reads.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestWatermillBridge_HandlerErrorDoesNotStall(t *testing.T) {
	var logs lockedBuffer
	originalLogger := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&logs, nil)))
	defer slog.SetDefault(originalLogger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := NewWatermillBridge()
	defer bus.Close()

	calls := make(chan int, 4)
	n := 0
	require.NoError(t, bus.Subscribe(ctx, "flaky", func(ctx context.Context, msg Message) error {
		n++
		calls <- n
		if n == 1 {
			return assert.AnError
		}
		return nil
	}))

	require.NoError(t, bus.Publish(ctx, Message{Topic: "flaky", Payload: []byte("1")}))
	require.NoError(t, bus.Publish(ctx, Message{Topic: "flaky", Payload: []byte("2")}))

	for want := 1; want <= 2; want++ {
		select {
		case got := <-calls:
			assert.Equal(t, want, got)
		case <-time.After(2 * time.Second):
			t.Fatalf("delivery %d missing", want)
		}
	}

	assert.Contains(t, logs.String(), "Failed to handle message")
	assert.Contains(t, logs.String(), "topic=flaky")
}

func TestEvent_Typed(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := NewWatermillBridge()
	defer bus.Close()

	event := NewEvent[ping]("test.ping")
	assert.Equal(t, "test.ping", event.Name())
	assert.Equal(t, reflect.TypeFor[ping](), event.PayloadType())

	got := make(chan ping, 1)
	require.NoError(t, Subscribe(ctx, bus, event, func(ctx context.Context, p ping) error {
		got <- p
		return nil
	}))
	require.NoError(t, Publish(ctx, bus, event, ping{Seq: 7}))

	select {
	case p := <-got:
		assert.Equal(t, 7, p.Seq)
	case <-time.After(2 * time.Second):
		t.Fatal("typed event not delivered")
	}
}
