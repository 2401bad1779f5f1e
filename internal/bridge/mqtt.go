package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/your-org/suspectwatch/internal/config"
	"github.com/your-org/suspectwatch/internal/models"
)

// ObservationPublisher is the NATS side of the bridge.
type ObservationPublisher interface {
	PublishObservation(ctx context.Context, obs models.Observation) error
}

// MQTTBridge forwards observations that edge devices publish over MQTT
// onto the NATS work queue.
type MQTTBridge struct {
	cfg       config.MQTTConfig
	publisher ObservationPublisher
	client    mqtt.Client
}

func NewMQTTBridge(cfg config.MQTTConfig, publisher ObservationPublisher) *MQTTBridge {
	return &MQTTBridge{cfg: cfg, publisher: publisher}
}

// Start connects to the broker and subscribes. Subscriptions are renewed
// on every reconnect.
func (b *MQTTBridge) Start(ctx context.Context) error {
	clientID := "suspectwatch-" + uuid.New().String()

	opts := mqtt.NewClientOptions().AddBroker(b.cfg.Broker).SetClientID(clientID)
	opts.SetUsername(b.cfg.Username)
	opts.SetPassword(b.cfg.Password)
	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetConnectTimeout(30 * time.Second)
	opts.SetAutoReconnect(true)

	opts.OnConnect = func(c mqtt.Client) {
		slog.Info("connected to MQTT", "broker", b.cfg.Broker)
		token := c.Subscribe(b.cfg.Topic, b.cfg.QoS, func(_ mqtt.Client, m mqtt.Message) {
			b.handle(ctx, m.Topic(), m.Payload())
		})
		if token.Wait() && token.Error() != nil {
			slog.Error("mqtt subscribe", "topic", b.cfg.Topic, "error", token.Error())
			return
		}
		slog.Info("subscribed to MQTT topic", "topic", b.cfg.Topic)
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		slog.Warn("MQTT connection lost", "error", err)
	}

	b.client = mqtt.NewClient(opts)
	if token := b.client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("connect to mqtt: %w", token.Error())
	}
	return nil
}

func (b *MQTTBridge) handle(ctx context.Context, topic string, payload []byte) {
	obs, err := DecodeObservation(payload)
	if err != nil {
		slog.Warn("drop MQTT observation", "topic", topic, "error", err)
		return
	}
	if err := b.publisher.PublishObservation(ctx, obs); err != nil {
		slog.Error("forward MQTT observation", "id", obs.ID, "error", err)
	}
}

// Stop disconnects from the broker.
func (b *MQTTBridge) Stop() {
	if b.client != nil && b.client.IsConnected() {
		b.client.Disconnect(250)
	}
}

// DecodeObservation parses and validates an MQTT payload. Missing IDs and
// timestamps are filled in.
func DecodeObservation(payload []byte) (models.Observation, error) {
	var obs models.Observation
	if err := json.Unmarshal(payload, &obs); err != nil {
		return obs, models.WrapError(models.KindDataConversion, "observation json", err)
	}
	if err := obs.Validate(); err != nil {
		return obs, err
	}
	if obs.ID == uuid.Nil {
		obs.ID = uuid.New()
	}
	if obs.Timestamp.IsZero() {
		obs.Timestamp = time.Now().UTC()
	}
	return obs, nil
}
