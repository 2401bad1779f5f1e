package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/your-org/suspectwatch/internal/models"
)

const (
	ObservationsStreamName  = "OBSERVATIONS"
	ObservationsSubjectBase = "observations"
	SightingsStreamName     = "SIGHTINGS"
	SightingsSubjectBase    = "sightings"

	// ControlSubject carries core NATS commands between the API and workers.
	ControlSubject = "suspects.reload"
)

// Control commands.
const (
	CommandReload = "reload"
)

// ControlMessage asks workers to act on suspect data changes.
type ControlMessage struct {
	Command   string `json:"command"`
	SuspectID string `json:"suspect_id,omitempty"`
}

type Producer struct {
	nc *nats.Conn
	js jetstream.JetStream
}

func NewProducer(natsURL string) (*Producer, error) {
	nc, err := connect(natsURL)
	if err != nil {
		return nil, err
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create jetstream context: %w", err)
	}

	return &Producer{nc: nc, js: js}, nil
}

func connect(natsURL string) (*nats.Conn, error) {
	nc, err := nats.Connect(natsURL,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	return nc, nil
}

func streamConfigs() []jetstream.StreamConfig {
	return []jetstream.StreamConfig{
		{
			Name:        ObservationsStreamName,
			Subjects:    []string{ObservationsSubjectBase + ".>"},
			Retention:   jetstream.WorkQueuePolicy,
			MaxAge:      10 * time.Minute,
			MaxMsgs:     100000,
			MaxBytes:    512 * 1024 * 1024,
			Storage:     jetstream.FileStorage,
			Discard:     jetstream.DiscardOld,
			Duplicates:  time.Minute,
			Description: "Face observations awaiting matching",
		},
		{
			Name:        SightingsStreamName,
			Subjects:    []string{SightingsSubjectBase + ".>"},
			Retention:   jetstream.InterestPolicy,
			MaxAge:      24 * time.Hour,
			MaxMsgs:     1000000,
			Storage:     jetstream.FileStorage,
			Description: "Stored sightings for live feeds",
		},
	}
}

// EnsureStreams creates JetStream streams if they don't exist.
// Retries up to 30 times (1s apart) to handle NATS startup delay.
func (p *Producer) EnsureStreams(ctx context.Context) error {
	const maxAttempts = 30
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		allOK := true
		for _, cfg := range streamConfigs() {
			opCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			_, err := p.js.CreateOrUpdateStream(opCtx, cfg)
			cancel()
			if err != nil {
				allOK = false
				if attempt == maxAttempts {
					return fmt.Errorf("create stream %s: %w (after %d attempts)", cfg.Name, err, maxAttempts)
				}
				slog.Warn("ensure NATS stream (retrying...)", "name", cfg.Name, "attempt", attempt, "error", err)
				break
			}
			slog.Info("ensured NATS stream", "name", cfg.Name)
		}
		if allOK {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(1 * time.Second):
		}
	}
	return nil
}

// SubjectToken makes an arbitrary device ID safe to use as one subject token.
func SubjectToken(id string) string {
	if id == "" {
		return "unknown"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\n', '\r':
			return '_'
		}
		return r
	}, id)
}

// PublishObservation enqueues an observation for the workers. The
// observation ID is the JetStream message ID, so redelivered uploads
// within the duplicate window are dropped.
func (p *Producer) PublishObservation(ctx context.Context, obs models.Observation) error {
	payload, err := json.Marshal(obs)
	if err != nil {
		return fmt.Errorf("marshal observation: %w", err)
	}

	subject := ObservationsSubjectBase + "." + SubjectToken(obs.DeviceID)
	_, err = p.js.Publish(ctx, subject, payload, jetstream.WithMsgID(obs.ID.String()))
	if err != nil {
		return fmt.Errorf("publish observation: %w", err)
	}
	return nil
}

// PublishSighting publishes a processed sighting for live subscribers.
func (p *Producer) PublishSighting(ctx context.Context, res models.SightingResult) error {
	payload, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("marshal sighting: %w", err)
	}

	subject := SightingsSubjectBase + "." + SubjectToken(res.DeviceID)
	_, err = p.js.Publish(ctx, subject, payload)
	if err != nil {
		return fmt.Errorf("publish sighting: %w", err)
	}
	return nil
}

// QueueDepth returns the number of pending messages in the OBSERVATIONS stream.
func (p *Producer) QueueDepth(ctx context.Context) (uint64, error) {
	stream, err := p.js.Stream(ctx, ObservationsStreamName)
	if err != nil {
		return 0, err
	}
	info, err := stream.Info(ctx)
	if err != nil {
		return 0, err
	}
	return info.State.Msgs, nil
}

// PublishControl publishes a control command via raw NATS (not JetStream).
// Workers subscribe to ControlSubject to refresh their suspect index.
func (p *Producer) PublishControl(msg ControlMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal control: %w", err)
	}
	return p.nc.Publish(ControlSubject, data)
}

func (p *Producer) Ping() error {
	if !p.nc.IsConnected() {
		return fmt.Errorf("nats not connected")
	}
	return nil
}

func (p *Producer) Close() {
	p.nc.Close()
}
