package mqtt

import (
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/edgeflare/feedview/pkg/stream"
	"go.uber.org/zap"
)

var errNotConnected = errors.New("MQTT client not connected")

// Config represents MQTT configuration
type Config struct {
	Servers  []string `json:"servers"`
	ClientID string   `json:"clientID"`
	Username string   `json:"username,omitempty"`
	Password string   `json:"password,omitempty"`
	QoS      byte     `json:"qos,omitempty"`
}

// SourceMQTT consumes event topics from an MQTT broker. MQTT has no replayable
// backlog, so this source only sees events published while connected; it suits
// deployments where the view is warmed by a broker-side retained mirror.
type SourceMQTT struct {
	client mqtt.Client
	config Config
	logger *zap.Logger
	msgs   chan stream.Message
}

func (s *SourceMQTT) Connect(config json.RawMessage, _ ...any) error {
	if len(config) > 0 {
		if err := json.Unmarshal(config, &s.config); err != nil {
			return fmt.Errorf("failed to unmarshal MQTT config: %w", err)
		}
	}

	if len(s.config.Servers) == 0 {
		s.config.Servers = []string{"tcp://localhost:1883"}
	}
	s.config.ClientID = cmp.Or(s.config.ClientID, "feedview-consumer")

	if s.logger == nil {
		s.logger, _ = zap.NewProduction()
	}

	opts := mqtt.NewClientOptions().
		SetClientID(s.config.ClientID).
		SetAutoReconnect(true).
		SetMaxReconnectInterval(30 * time.Second).
		SetConnectTimeout(5 * time.Second)
	for _, server := range s.config.Servers {
		opts.AddBroker(server)
	}
	if s.config.Username != "" {
		opts.SetUsername(s.config.Username)
		opts.SetPassword(s.config.Password)
	}
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		s.logger.Warn("MQTT connection lost", zap.Error(err))
	})

	s.client = mqtt.NewClient(opts)
	if token := s.client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	return nil
}

func (s *SourceMQTT) Sub(topics ...string) (<-chan stream.Message, error) {
	if s.client == nil || !s.client.IsConnected() {
		return nil, errNotConnected
	}
	if len(topics) == 0 {
		return nil, errors.New("no topics to subscribe")
	}

	s.msgs = make(chan stream.Message, 100)

	filters := make(map[string]byte, len(topics))
	for _, topic := range topics {
		filters[topic] = s.config.QoS
	}

	token := s.client.SubscribeMultiple(filters, func(_ mqtt.Client, msg mqtt.Message) {
		s.msgs <- stream.Message{
			Topic:  msg.Topic(),
			Offset: int64(msg.MessageID()),
			Value:  msg.Payload(),
		}
	})
	if token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to subscribe: %w", token.Error())
	}

	return s.msgs, nil
}

func (s *SourceMQTT) Disconnect() error {
	if s.client != nil && s.client.IsConnected() {
		s.client.Disconnect(250)
	}
	if s.msgs != nil {
		close(s.msgs)
	}
	return nil
}

func init() {
	stream.RegisterSource(stream.SourceMQTT, &SourceMQTT{})
}
