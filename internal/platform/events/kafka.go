package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// ErrQueueFull is returned by KafkaPublisher.Publish when the send buffer is
// full; the event is dropped.
var ErrQueueFull = errors.New("kafka publish queue full")

var errPublisherClosed = errors.New("kafka publisher closed")

const defaultKafkaBuffer = 256

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes events to a Kafka topic keyed by subject, so events
// about one admission or consultation stay ordered within a partition.
// Publish only enqueues; a single sender goroutine writes to the broker and
// logs failures.
type KafkaPublisher struct {
	w       messageWriter
	logger  zerolog.Logger
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
	queue  chan kafka.Message
	done   chan struct{}
}

func NewKafkaPublisher(brokers []string, topic string, logger zerolog.Logger) *KafkaPublisher {
	w := kafka.NewWriter(kafka.WriterConfig{
		Brokers:      brokers,
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
	})
	return newKafkaPublisher(w, logger, defaultKafkaBuffer)
}

func newKafkaPublisher(w messageWriter, logger zerolog.Logger, buffer int) *KafkaPublisher {
	p := &KafkaPublisher{
		w:       w,
		logger:  logger,
		timeout: 10 * time.Second,
		queue:   make(chan kafka.Message, buffer),
		done:    make(chan struct{}),
	}
	go p.run()
	return p
}

func (p *KafkaPublisher) Publish(_ context.Context, evt Event) error {
	value, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(evt.Subject),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(evt.Type)},
		},
		Time: evt.OccurredAt,
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return errPublisherClosed
	}
	select {
	case p.queue <- msg:
		return nil
	default:
		return fmt.Errorf("%w: dropped %s for %s", ErrQueueFull, evt.Type, evt.Subject)
	}
}

func (p *KafkaPublisher) run() {
	defer close(p.done)
	for msg := range p.queue {
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		err := p.w.WriteMessages(ctx, msg)
		cancel()
		if err != nil {
			p.logger.Warn().Err(err).
				Str("type", headerValue(msg, "event-type")).
				Str("subject", string(msg.Key)).
				Msg("write event to kafka")
		}
	}
}

// Close stops accepting events, flushes the queue and closes the writer.
func (p *KafkaPublisher) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	<-p.done
	return p.w.Close()
}

func headerValue(msg kafka.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}
