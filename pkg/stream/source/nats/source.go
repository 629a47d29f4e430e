package nats

import (
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/edgeflare/feedview/pkg/stream"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

var errConnNotInitialized = errors.New("NATS connection not initialized")

// Config represents NATS configuration
type Config struct {
	Servers  []string `json:"servers"`
	Stream   string   `json:"stream"`
	Durable  string   `json:"durable"`
	Username string   `json:"username,omitempty"`
	Password string   `json:"password,omitempty"`
	TLS      struct {
		Enabled  bool   `json:"enabled"`
		CertFile string `json:"certFile,omitempty"`
		KeyFile  string `json:"keyFile,omitempty"`
		CAFile   string `json:"caFile,omitempty"`
	} `json:"tls,omitempty"`
}

// SourceNATS consumes the event topics as JetStream subjects.
type SourceNATS struct {
	nc     *nats.Conn
	js     nats.JetStreamContext
	config Config
	logger *zap.Logger
}

// Connect establishes a connection to the NATS server
func (s *SourceNATS) Connect(config json.RawMessage, _ ...any) error {
	if len(config) > 0 {
		if err := json.Unmarshal(config, &s.config); err != nil {
			return fmt.Errorf("unmarshal NATS config: %w", err)
		}
	}

	// Set defaults
	if len(s.config.Servers) == 0 {
		s.config.Servers = []string{nats.DefaultURL}
	}
	s.config.Stream = cmp.Or(s.config.Stream, "feedview-events")
	s.config.Durable = cmp.Or(s.config.Durable, "feedview")

	if s.logger == nil {
		s.logger, _ = zap.NewProduction()
	}

	opts := defaultOptions(s.config)

	// Connect to first available server
	var err error
	for _, server := range s.config.Servers {
		s.nc, err = nats.Connect(server, opts...)
		if err == nil {
			break
		}
	}
	if err != nil {
		return fmt.Errorf("connect to NATS server: %w", err)
	}

	if s.js, err = s.nc.JetStream(); err != nil {
		s.nc.Close()
		return fmt.Errorf("create JetStream context: %w", err)
	}

	return nil
}

// Sub subscribes to the given subjects, replaying the full stream backlog.
func (s *SourceNATS) Sub(topics ...string) (<-chan stream.Message, error) {
	if s.js == nil {
		return nil, errConnNotInitialized
	}
	if len(topics) == 0 {
		return nil, errors.New("no topics to subscribe")
	}

	msgs := make(chan stream.Message, 100)
	var wg sync.WaitGroup

	for _, topic := range topics {
		durable := fmt.Sprintf("%s-%s", s.config.Durable, topic)

		_, err := s.js.AddConsumer(s.config.Stream, &nats.ConsumerConfig{
			Durable:       durable,
			AckPolicy:     nats.AckExplicitPolicy,
			DeliverPolicy: nats.DeliverAllPolicy,
			AckWait:       time.Minute,
			FilterSubject: topic,
		})
		if err != nil {
			return nil, fmt.Errorf("create consumer for %s: %w", topic, err)
		}

		sub, err := s.js.PullSubscribe(topic, durable)
		if err != nil {
			return nil, fmt.Errorf("create subscription for %s: %w", topic, err)
		}

		wg.Add(1)
		go s.processMessages(&wg, sub, topic, msgs)
	}

	// One closed channel signals loss of all subscriptions.
	go func() {
		wg.Wait()
		close(msgs)
	}()

	return msgs, nil
}

// processMessages handles subscription message processing
func (s *SourceNATS) processMessages(wg *sync.WaitGroup, sub *nats.Subscription, topic string, msgs chan<- stream.Message) {
	defer wg.Done()

	for {
		batch, err := sub.Fetch(10, nats.MaxWait(time.Second))
		if err != nil {
			if errors.Is(err, nats.ErrTimeout) {
				continue
			}
			if errors.Is(err, nats.ErrConnectionClosed) || errors.Is(err, nats.ErrBadSubscription) {
				return
			}
			s.logger.Warn("fetch messages", zap.String("topic", topic), zap.Error(err))
			continue
		}

		for _, msg := range batch {
			var offset int64
			if meta, err := msg.Metadata(); err == nil {
				offset = int64(meta.Sequence.Stream)
			}

			msgs <- stream.Message{
				Topic:  topic,
				Offset: offset,
				Value:  msg.Data,
			}
			if err := msg.Ack(); err != nil {
				s.logger.Warn("ack message", zap.String("topic", topic), zap.Error(err))
			}
		}
	}
}

// Disconnect closes the NATS connection
func (s *SourceNATS) Disconnect() error {
	if s.nc != nil {
		s.nc.Close()
	}
	return nil
}

func defaultOptions(c Config) []nats.Option {
	opts := []nats.Option{
		nats.Timeout(5 * time.Second),
		nats.PingInterval(10 * time.Second),
		nats.MaxPingsOutstanding(3),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
	}

	if c.Username != "" && c.Password != "" {
		opts = append(opts, nats.UserInfo(c.Username, c.Password))
	}

	if c.TLS.Enabled {
		var tlsOpt nats.Option
		if c.TLS.CAFile != "" {
			tlsOpt = nats.RootCAs(c.TLS.CAFile)
		} else if c.TLS.CertFile != "" && c.TLS.KeyFile != "" {
			tlsOpt = nats.ClientCert(c.TLS.CertFile, c.TLS.KeyFile)
		}
		if tlsOpt != nil {
			opts = append(opts, tlsOpt)
		}
	}

	return opts
}

func init() {
	stream.RegisterSource(stream.SourceNATS, &SourceNATS{})
}
