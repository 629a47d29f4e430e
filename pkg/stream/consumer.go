package stream

import (
	"context"
	"errors"

	"github.com/edgeflare/feedview/pkg/event"
	"github.com/edgeflare/feedview/pkg/metrics"
	"github.com/edgeflare/feedview/pkg/readiness"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrSourceClosed is returned by Run when the source channel closes, which
// means an established connection was lost mid-stream. Callers should treat it
// as a reportable fault and shut down.
var ErrSourceClosed = errors.New("event source closed")

// Applier folds a decoded event into the materialized view.
type Applier interface {
	Apply(ctx context.Context, evt event.Event) error
}

// Consumer drains raw topic messages, decodes them and hands them to the
// applier. Bad messages of any kind are logged and dropped; the loop itself
// only stops on context cancellation or source closure.
type Consumer struct {
	applier Applier
	gate    *readiness.Gate
	logger  *zap.Logger
}

func NewConsumer(applier Applier, gate *readiness.Gate, logger *zap.Logger) *Consumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Consumer{applier: applier, gate: gate, logger: logger}
}

// Run consumes msgs until ctx is canceled or the channel closes.
func (c *Consumer) Run(ctx context.Context, msgs <-chan Message) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				return ErrSourceClosed
			}
			c.handle(ctx, msg)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, msg Message) {
	fields := []zap.Field{
		zap.String("topic", msg.Topic),
		zap.Int32("partition", msg.Partition),
		zap.Int64("offset", msg.Offset),
		zap.String("correlation_id", uuid.NewString()),
	}

	evt, err := event.Decode(msg.Value)
	if err != nil {
		if errors.Is(err, event.ErrUnknownEventType) {
			c.logger.Warn("dropping message with unrecognized event type",
				append(fields, zap.Error(err))...)
			metrics.DroppedEvents.WithLabelValues(msg.Topic, metrics.ReasonUnknownType).Inc()
			return
		}
		c.logger.Warn("dropping malformed message", append(fields, zap.Error(err))...)
		metrics.DroppedEvents.WithLabelValues(msg.Topic, metrics.ReasonMalformed).Inc()
		return
	}

	// A fault while applying one event must never kill the consumption loop.
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("processing fault, dropping message",
				append(fields, zap.Any("panic", r))...)
			metrics.DroppedEvents.WithLabelValues(msg.Topic, metrics.ReasonProcessingFault).Inc()
		}
	}()

	if err := c.applier.Apply(ctx, evt); err != nil {
		c.logger.Error("failed to apply event, dropping message",
			append(fields, zap.String("type", string(evt.EventType())), zap.Error(err))...)
		metrics.DroppedEvents.WithLabelValues(msg.Topic, metrics.ReasonProcessingFault).Inc()
		return
	}

	metrics.ProcessedEvents.WithLabelValues(msg.Topic, string(evt.EventType())).Inc()
	if c.gate != nil {
		c.gate.Observe()
	}
}
