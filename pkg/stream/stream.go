// Package stream provides the broker-facing side of the engine: a Source
// connector abstraction over Kafka, NATS and MQTT, and the Consumer loop that
// folds raw topic messages into the materialized view.
package stream

import "encoding/json"

// Message is one raw payload received from a subscribed topic, with enough
// provenance to log a processing fault usefully.
type Message struct {
	Topic     string
	Partition int32
	Offset    int64
	Key       []byte
	Value     []byte
}

// A Source delivers raw messages from a message bus.
type Source interface {
	// Connect initializes the source with connector-specific settings.
	Connect(config json.RawMessage, args ...any) error

	// Sub subscribes to the given topics and returns a channel of raw
	// messages. The channel is closed when the source loses its connection
	// for good or is disconnected.
	Sub(topics ...string) (<-chan Message, error)

	Disconnect() error
}

// Predefined sources
const (
	SourceKafka = "kafka"
	SourceNATS  = "nats"
	SourceMQTT  = "mqtt"
)

var sources = make(map[string]Source)

// RegisterSource adds a source to the registry. Source packages register
// themselves in init; cmd wires them with blank imports.
func RegisterSource(name string, s Source) {
	sources[name] = s
}

// LookupSource returns the registered source for name, if any.
func LookupSource(name string) (Source, bool) {
	s, ok := sources[name]
	return s, ok
}
