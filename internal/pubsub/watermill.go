package pubsub

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"go.opentelemetry.io/otel/trace"
)

// WatermillBridge implements Publisher and Subscriber on top of watermill's GoChannel.
type WatermillBridge struct {
	pub    message.Publisher
	sub    message.Subscriber
	logger watermill.LoggerAdapter
}

// MetaTopic is the metadata key carrying the logical topic through watermill.
const MetaTopic = "topic"

// Option configures a WatermillBridge.
type Option func(*bridgeOptions)

type bridgeOptions struct {
	tracer trace.Tracer
	buffer int64
}

// WithTracer wraps publishing with spans from tracer.
func WithTracer(tracer trace.Tracer) Option {
	return func(o *bridgeOptions) { o.tracer = tracer }
}

// WithBuffer sets the per-subscriber output buffer size.
func WithBuffer(size int64) Option {
	return func(o *bridgeOptions) { o.buffer = size }
}

// NewWatermillBridge initializes an in-memory bus.
func NewWatermillBridge(opts ...Option) *WatermillBridge {
	options := bridgeOptions{buffer: 64}
	for _, opt := range opts {
		opt(&options)
	}

	logger := watermill.NewSlogLogger(nil)
	goChannel := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: options.buffer},
		logger,
	)

	var pub message.Publisher = goChannel
	if options.tracer != nil {
		pub = NewTracingPublisher(goChannel, options.tracer)
	}

	return &WatermillBridge{
		pub:    pub,
		sub:    goChannel,
		logger: logger,
	}
}

func toWatermill(ctx context.Context, msg Message) *message.Message {
	wmMsg := message.NewMessage(watermill.NewUUID(), msg.Payload)
	wmMsg.SetContext(ctx)

	for k, v := range msg.Metadata {
		wmMsg.Metadata.Set(k, v)
	}
	wmMsg.Metadata.Set(MetaTopic, msg.Topic)
	return wmMsg
}

func fromWatermill(wmMsg *message.Message) Message {
	metadata := make(map[string]string, len(wmMsg.Metadata))
	for k, v := range wmMsg.Metadata {
		if k != MetaTopic {
			metadata[k] = v
		}
	}

	return Message{
		Topic:    wmMsg.Metadata.Get(MetaTopic),
		Payload:  wmMsg.Payload,
		Metadata: metadata,
	}
}

// Publish implements the Publisher interface.
func (wb *WatermillBridge) Publish(ctx context.Context, msg Message) error {
	return wb.pub.Publish(msg.Topic, toWatermill(ctx, msg))
}

// Subscribe implements the Subscriber interface.
func (wb *WatermillBridge) Subscribe(ctx context.Context, topic string, handler Handler) error {
	messages, err := wb.sub.Subscribe(ctx, topic)
	if err != nil {
		return err
	}

	go func() {
		for wmMsg := range messages {
			msg := fromWatermill(wmMsg)

			if err := handler(ctx, msg); err != nil {
				// gochannel resends nacked messages forever, so failures are logged and acked
				wb.logger.Error("Failed to handle message", err, watermill.LogFields{"topic": topic, "msg_id": wmMsg.UUID})
			}
			wmMsg.Ack()
		}
		wb.logger.Debug("Subscription message loop ended", watermill.LogFields{"topic": topic})
	}()

	return nil
}

// Close shuts down the bus and ends every subscription.
func (wb *WatermillBridge) Close() error {
	return wb.sub.Close()
}
