// Package progress publishes slot commit events to Kafka so downstream
// consumers can follow the indexer's advance without polling the store.
package progress

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"go.uber.org/zap"

	"github.com/slotscan/solana-indexer/pkg/metrics"
)

const queueFullRetryDelay = time.Second

// Publisher is a synchronous Kafka publisher for progress events.
//
// Publish blocks until a delivery confirmation is received from Kafka.
// Background goroutines process Kafka producer events and logs.
//
// Close MUST be called at least once to stop background goroutines and flush
// all in-flight events.
type Publisher struct {
	producer   *kafka.Producer
	sugar      *zap.SugaredLogger
	metrics    *metrics.Metrics // nil if metrics disabled
	cfg        Config
	errCh      chan error
	eventsDone chan struct{}
	logsDone   chan struct{}
	closedCh   chan struct{}
	once       sync.Once
}

// Option configures the Publisher.
type Option func(*Publisher)

// WithMetrics enables metrics collection for published events.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Publisher) {
		p.metrics = m
	}
}

// NewPublisher creates a Kafka-backed progress publisher.
//
// The provided context controls the lifetime of background goroutines.
// Callers must call Close to flush events and release resources.
func NewPublisher(ctx context.Context, cfg Config, sugar *zap.SugaredLogger, opts ...Option) (*Publisher, error) {
	producer, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers":      cfg.BootstrapServers,
		"go.logs.channel.enable": cfg.EnableLogs,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	p := &Publisher{
		producer:   producer,
		sugar:      sugar,
		cfg:        cfg,
		errCh:      make(chan error, 1),
		eventsDone: make(chan struct{}),
		logsDone:   make(chan struct{}),
		closedCh:   make(chan struct{}),
	}

	for _, opt := range opts {
		opt(p)
	}

	if cfg.EnableLogs {
		go p.printKafkaLogs(ctx)
	} else {
		close(p.logsDone)
	}

	go p.monitorProducerEvents(ctx)

	return p, nil
}

// EnsureTopic creates the progress topic if it does not exist. Safe to call
// on every startup.
func (p *Publisher) EnsureTopic(ctx context.Context) error {
	admin, err := kafka.NewAdminClientFromProducer(p.producer)
	if err != nil {
		return fmt.Errorf("failed to create kafka admin client: %w", err)
	}
	defer admin.Close()

	results, err := admin.CreateTopics(ctx, []kafka.TopicSpecification{{
		Topic:             p.cfg.Topic,
		NumPartitions:     p.cfg.NumPartitions,
		ReplicationFactor: p.cfg.ReplicationFactor,
	}})
	if err != nil {
		return fmt.Errorf("failed to create topic %q: %w", p.cfg.Topic, err)
	}

	for _, result := range results {
		switch result.Error.Code() {
		case kafka.ErrNoError:
			p.sugar.Infow("created progress topic",
				"topic", result.Topic,
				"partitions", p.cfg.NumPartitions,
				"replicationFactor", p.cfg.ReplicationFactor)
		case kafka.ErrTopicAlreadyExists:
			p.sugar.Infow("progress topic already exists", "topic", result.Topic)
		default:
			return fmt.Errorf("failed to create topic %q: %w", result.Topic, result.Error)
		}
	}

	return nil
}

// Publish synchronously publishes a progress event.
//
// Publish blocks until either a delivery receipt is received from Kafka or
// the provided context is canceled. If the producer queue is full, the event
// is retried internally. If the context is canceled before delivery
// confirmation, the event MAY still be delivered; consumers should tolerate
// duplicates.
func (p *Publisher) Publish(ctx context.Context, event Event) error {
	err := p.publish(ctx, event)
	p.metrics.RecordProgressEvent(err)
	return err
}

func (p *Publisher) publish(ctx context.Context, event Event) error {
	payload, err := event.Marshal()
	if err != nil {
		return err
	}

	// Never closed: when the context cancels before the delivery report
	// arrives, librdkafka still sends on this channel later. The buffered
	// channel absorbs that late report and is left to the garbage collector.
	deliveryCh := make(chan kafka.Event, 1)

	msg := &kafka.Message{
		TopicPartition: kafka.TopicPartition{
			Topic:     &p.cfg.Topic,
			Partition: kafka.PartitionAny,
		},
		Key:   []byte(event.Network),
		Value: payload,
	}

	if err := p.produceWithRetry(ctx, msg, deliveryCh); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case ev := <-deliveryCh:
		return p.handleDeliveryEvent(msg, ev)
	}
}

// Errors returns a channel that receives at most one fatal error.
// The channel is closed when the publisher shuts down.
// Non-fatal Kafka errors are logged and ignored.
func (p *Publisher) Errors() <-chan error {
	return p.errCh
}

// Close stops background goroutines and flushes all pending events.
//
// Close blocks until all queued events are delivered to Kafka or the
// configured flush timeout is reached. Calling Close multiple times does
// nothing after the first call.
func (p *Publisher) Close() {
	p.once.Do(func() {
		p.sugar.Info("closing progress publisher")
		defer close(p.errCh)

		close(p.closedCh)
		<-p.eventsDone
		<-p.logsDone

		pending := p.producer.Flush(int(p.cfg.FlushTimeout.Milliseconds()))
		if pending > 0 {
			p.sugar.Warnf("flush incomplete, events will be lost. pending: %d", pending)
		}

		p.producer.Close()
		p.sugar.Info("progress publisher closed")
	})
}

func (p *Publisher) produceWithRetry(ctx context.Context, msg *kafka.Message, deliveryCh chan kafka.Event) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err := p.producer.Produce(msg, deliveryCh)
		if err == nil {
			return nil
		}

		kafkaErr, ok := err.(kafka.Error)
		if ok && kafkaErr.Code() == kafka.ErrQueueFull {
			p.sugar.Warnw("producer queue full, retrying", "delay", queueFullRetryDelay)
			select {
			case <-time.After(queueFullRetryDelay):
				continue
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		return fmt.Errorf("failed to produce progress event: %w", err)
	}
}

func (p *Publisher) handleDeliveryEvent(msg *kafka.Message, ev kafka.Event) error {
	e, ok := ev.(*kafka.Message)
	if !ok {
		return fmt.Errorf("unexpected delivery event: %T", ev)
	}

	if err := e.TopicPartition.Error; err != nil {
		return fmt.Errorf("delivery failed: %w", err)
	}

	p.sugar.Debugf("delivered to topic [%s] partition [%d] at offset [%d]",
		*msg.TopicPartition.Topic, e.TopicPartition.Partition, e.TopicPartition.Offset)
	return nil
}

func (p *Publisher) printKafkaLogs(ctx context.Context) {
	defer close(p.logsDone)
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.closedCh:
			return
		case log, ok := <-p.producer.Logs():
			if !ok {
				return
			}
			p.sugar.Debugf("level: %d tag: %s message: %s", log.Level, log.Tag, log.Message)
		}
	}
}

func (p *Publisher) monitorProducerEvents(ctx context.Context) {
	defer close(p.eventsDone)
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.closedCh:
			return
		case ev, ok := <-p.producer.Events():
			if !ok {
				p.reportFatal(fmt.Errorf("kafka producer event channel closed"))
				return
			}

			switch e := ev.(type) {
			case *kafka.Message:
				// Delivery receipts are consumed on per-publish channels.
				if e.TopicPartition.Error != nil {
					p.sugar.Errorw("failed to deliver progress event", "partition", e.TopicPartition)
				}
			case kafka.Error:
				if e.IsFatal() || e.Code() == kafka.ErrAllBrokersDown {
					p.reportFatal(fmt.Errorf("fatal kafka error: %#x, %w", e.Code(), e))
					return
				}
				p.sugar.Warnw("ignoring kafka error", "code", e.Code(), "error", e)
			default:
				p.sugar.Debugf("ignoring kafka event: %+v", e)
			}
		}
	}
}

func (p *Publisher) reportFatal(err error) {
	select {
	case p.errCh <- err:
	default:
		p.sugar.Warnw("error channel full, dropping", "error", err)
	}
}
