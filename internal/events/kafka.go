package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// ErrPublisherClosed is returned by Publish after Close.
var ErrPublisherClosed = errors.New("event publisher closed")

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher queues envelopes and writes them from a single goroutine.
type KafkaPublisher struct {
	w        messageWriter
	producer string
	inbox    chan kafka.Message
	stop     chan struct{}
	done     chan struct{}
	once     sync.Once
	logger   *zap.Logger
	now      func() time.Time
}

// NewKafkaPublisher creates a publisher for topic. buf bounds the queue.
func NewKafkaPublisher(brokers []string, topic, producer string, buf int, logger *zap.Logger) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
	}
	return newKafkaPublisher(w, producer, buf, logger)
}

func newKafkaPublisher(w messageWriter, producer string, buf int, logger *zap.Logger) *KafkaPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if buf <= 0 {
		buf = 256
	}
	return &KafkaPublisher{
		w:        w,
		producer: producer,
		inbox:    make(chan kafka.Message, buf),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger,
		now:      time.Now,
	}
}

// Start runs the write loop until Close is called. Events still queued at
// Close are flushed before the writer shuts down.
func (p *KafkaPublisher) Start() {
	go func() {
		defer close(p.done)
		for {
			select {
			case m := <-p.inbox:
				p.write(m)
			case <-p.stop:
				for {
					select {
					case m := <-p.inbox:
						p.write(m)
					default:
						if err := p.w.Close(); err != nil {
							p.logger.Warn("failed to close kafka writer", zap.Error(err))
						}
						return
					}
				}
			}
		}
	}()
}

func (p *KafkaPublisher) write(m kafka.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := p.w.WriteMessages(ctx, m); err != nil {
		p.logger.Error("failed to write event",
			zap.String("key", string(m.Key)),
			zap.Error(err))
	}
}

// Publish enqueues the event. It blocks only while the queue is full.
func (p *KafkaPublisher) Publish(ctx context.Context, eventType, key string, payload any) error {
	env, err := NewEnvelope(p.producer, eventType, key, payload, p.now())
	if err != nil {
		return err
	}
	value, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: value,
		Time:  env.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(eventType)},
		},
	}

	select {
	case <-p.stop:
		return ErrPublisherClosed
	default:
	}

	select {
	case p.inbox <- msg:
		return nil
	case <-p.stop:
		return ErrPublisherClosed
	case <-ctx.Done():
		return fmt.Errorf("enqueue %s: %w", eventType, ctx.Err())
	}
}

// Close flushes queued events and waits for the writer to shut down.
// Publish calls after Close fail with ErrPublisherClosed.
func (p *KafkaPublisher) Close() {
	p.once.Do(func() { close(p.stop) })
	<-p.done
}
