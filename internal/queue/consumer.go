package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/your-org/suspectwatch/internal/models"
)

type MessageHandler func(ctx context.Context, msg jetstream.Msg) error

type Consumer struct {
	nc *nats.Conn
	js jetstream.JetStream
}

func NewConsumer(natsURL string) (*Consumer, error) {
	nc, err := connect(natsURL)
	if err != nil {
		return nil, err
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create jetstream context: %w", err)
	}

	return &Consumer{nc: nc, js: js}, nil
}

// pullConfig describes a durable pull consumer and how its messages are
// processed.
type pullConfig struct {
	stream  string
	subject string
	name    string
	ackWait time.Duration
	deliver jetstream.DeliverPolicy
	batch   int
	workers int
	label   string // used in logs
}

// ConsumeObservations starts consuming observations from the OBSERVATIONS
// stream. workerCount determines how many goroutines process messages
// concurrently.
func (c *Consumer) ConsumeObservations(ctx context.Context, consumerName string, handler MessageHandler, workerCount int) error {
	workerCount = max(workerCount, 1)
	return c.pull(ctx, pullConfig{
		stream:  ObservationsStreamName,
		subject: ObservationsSubjectBase + ".>",
		name:    consumerName,
		ackWait: 30 * time.Second,
		deliver: jetstream.DeliverAllPolicy,
		batch:   workerCount,
		workers: workerCount,
		label:   "observation",
	}, handler)
}

// ConsumeSightings starts consuming new sightings on a single goroutine so
// WebSocket clients see them in order.
func (c *Consumer) ConsumeSightings(ctx context.Context, consumerName string, handler MessageHandler) error {
	return c.pull(ctx, pullConfig{
		stream:  SightingsStreamName,
		subject: SightingsSubjectBase + ".>",
		name:    consumerName,
		ackWait: 10 * time.Second,
		deliver: jetstream.DeliverNewPolicy,
		batch:   10,
		workers: 1,
		label:   "sighting",
	}, handler)
}

func (c *Consumer) pull(ctx context.Context, pc pullConfig, handler MessageHandler) error {
	stream, err := c.js.Stream(ctx, pc.stream)
	if err != nil {
		return fmt.Errorf("get stream %s: %w", pc.stream, err)
	}

	cons, err := stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		Name:          pc.name,
		Durable:       pc.name,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       pc.ackWait,
		MaxDeliver:    3,
		FilterSubject: pc.subject,
		DeliverPolicy: pc.deliver,
	})
	if err != nil {
		return fmt.Errorf("create consumer %s: %w", pc.name, err)
	}

	msgs := fetchLoop(ctx, cons, pc.batch, pc.label)
	for i := 0; i < pc.workers; i++ {
		go settle(ctx, msgs, handler, pc.label, i)
	}

	slog.Info(pc.label+" consumer started", "consumer", pc.name, "workers", pc.workers)
	return nil
}

type fetcher interface {
	Fetch(batch int, opts ...jetstream.FetchOpt) (jetstream.MessageBatch, error)
}

// fetchLoop pulls batches until ctx is done, then closes the returned channel.
func fetchLoop(ctx context.Context, f fetcher, batch int, label string) <-chan jetstream.Msg {
	out := make(chan jetstream.Msg, batch*2)
	go func() {
		defer close(out)
		for ctx.Err() == nil {
			b, err := f.Fetch(batch, jetstream.FetchMaxWait(5*time.Second))
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				slog.Warn("fetch "+label+"s", "error", err)
				select {
				case <-time.After(time.Second):
				case <-ctx.Done():
					return
				}
				continue
			}

			for msg := range b.Messages() {
				select {
				case out <- msg:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

// settle runs handler on each message and acknowledges it. Failed messages
// are redelivered, except data conversion failures which no retry can fix.
func settle(ctx context.Context, msgs <-chan jetstream.Msg, handler MessageHandler, label string, worker int) {
	for msg := range msgs {
		err := handler(ctx, msg)
		switch {
		case err == nil:
			_ = msg.Ack()
		case models.KindOf(err) == models.KindDataConversion:
			slog.Warn("drop "+label, "worker", worker, "error", err, "subject", msg.Subject())
			_ = msg.Term()
		default:
			slog.Error("process "+label, "worker", worker, "error", err, "subject", msg.Subject())
			_ = msg.Nak()
		}
	}
}

// SubscribeControl delivers control commands published with PublishControl.
// Malformed payloads are logged and dropped.
func (c *Consumer) SubscribeControl(handler func(ControlMessage)) (*nats.Subscription, error) {
	sub, err := c.nc.Subscribe(ControlSubject, func(m *nats.Msg) {
		var msg ControlMessage
		if err := json.Unmarshal(m.Data, &msg); err != nil {
			slog.Warn("invalid control message", "error", err)
			return
		}
		handler(msg)
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", ControlSubject, err)
	}
	return sub, nil
}

func (c *Consumer) Close() {
	c.nc.Close()
}
