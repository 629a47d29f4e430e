package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/IBM/sarama"
	"github.com/edgeflare/feedview/pkg/stream"
	"github.com/edgeflare/feedview/pkg/util"
	"go.uber.org/zap"
)

var errNotConnected = errors.New("Kafka consumer group not initialized")

// SourceKafka consumes the event topics through a sarama consumer group.
type SourceKafka struct {
	group  sarama.ConsumerGroup
	config *Config
	logger *zap.Logger
	cancel context.CancelFunc
}

func (s *SourceKafka) Connect(config json.RawMessage, _ ...any) error {
	var cfg Config
	if len(config) > 0 {
		if err := json.Unmarshal(config, &cfg); err != nil {
			return fmt.Errorf("failed to unmarshal Kafka config: %w", err)
		}
	}

	// Set defaults if not provided
	if len(cfg.Brokers) == 0 {
		cfg.Brokers = strings.Split(util.GetEnvOrDefault("KAFKA_BROKERS", "localhost:9092"), ",")
	}
	if cfg.GroupID == "" {
		cfg.GroupID = "feedview"
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "feedview-consumer"
	}
	if cfg.Version == "" {
		cfg.Version = "2.1.1"
	}

	saramaConfig, err := cfg.ToSaramaConfig()
	if err != nil {
		return err
	}

	group, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.GroupID, saramaConfig)
	if err != nil {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	s.group = group
	s.config = &cfg
	if s.logger == nil {
		s.logger, _ = zap.NewProduction()
	}

	return nil
}

func (s *SourceKafka) Sub(topics ...string) (<-chan stream.Message, error) {
	if s.group == nil {
		return nil, errNotConnected
	}
	if len(topics) == 0 {
		return nil, errors.New("no topics to subscribe")
	}

	msgs := make(chan stream.Message, 100)
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	handler := &groupHandler{msgs: msgs}

	go func() {
		defer close(msgs)
		for {
			// Consume returns on every rebalance; loop until canceled.
			if err := s.group.Consume(ctx, topics, handler); err != nil {
				if errors.Is(err, sarama.ErrClosedConsumerGroup) {
					return
				}
				s.logger.Error("consumer group session ended", zap.Error(err))
				return
			}
			if ctx.Err() != nil {
				return
			}
		}
	}()

	go func() {
		for err := range s.group.Errors() {
			s.logger.Error("consumer group error", zap.Error(err))
		}
	}()

	return msgs, nil
}

func (s *SourceKafka) Disconnect() error {
	if s.cancel != nil {
		s.cancel()
	}
	if s.group != nil {
		return s.group.Close()
	}
	return nil
}

// groupHandler forwards claimed messages to the source channel.
type groupHandler struct {
	msgs chan<- stream.Message
}

func (h *groupHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *groupHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *groupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for msg := range claim.Messages() {
		h.msgs <- stream.Message{
			Topic:     msg.Topic,
			Partition: msg.Partition,
			Offset:    msg.Offset,
			Key:       msg.Key,
			Value:     msg.Value,
		}
		session.MarkMessage(msg, "")
	}
	return nil
}

func init() {
	stream.RegisterSource(stream.SourceKafka, &SourceKafka{})
}
