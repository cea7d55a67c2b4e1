package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// DefaultTopic is the MQTT topic prefix for user messages.
const DefaultTopic = "qrhunt/messages"

// MQTTConfig configures the MQTT sender.
type MQTTConfig struct {
	Broker   string
	Topic    string
	ClientID string
	Username string
	Password string
}

// Publisher is the part of mqtt.Client the sender uses.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTT publishes each message as JSON to "<topic>/<user id>".
type MQTT struct {
	pub   Publisher
	topic string
}

// NewMQTT returns a sender publishing through pub.
func NewMQTT(pub Publisher, topic string) *MQTT {
	if topic == "" {
		topic = DefaultTopic
	}
	return &MQTT{pub: pub, topic: topic}
}

// ConnectMQTT connects to the broker and returns the sender together with the
// client, which the caller disconnects on shutdown.
func ConnectMQTT(ctx context.Context, cfg MQTTConfig) (*MQTT, mqtt.Client, error) {
	if cfg.Broker == "" {
		return nil, nil, errors.New("mqtt broker is required")
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	token := client.Connect()

	select {
	case <-token.Done():
	case <-ctx.Done():
		return nil, nil, fmt.Errorf("connection aborted: %w", ctx.Err())
	case <-time.After(30 * time.Second):
		return nil, nil, errors.New("connection timeout")
	}
	if err := token.Error(); err != nil {
		return nil, nil, fmt.Errorf("connection error: %w", err)
	}

	return NewMQTT(client, cfg.Topic), client, nil
}

// Send implements Sender.
func (m *MQTT) Send(ctx context.Context, userID, text string, attachments ...string) error {
	payload, err := json.Marshal(Message{UserID: userID, Text: text, Attachments: attachments})
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	token := m.pub.Publish(m.topic+"/"+userID, 1, false, payload)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(10 * time.Second):
		return errors.New("publish timeout")
	}
	return token.Error()
}
