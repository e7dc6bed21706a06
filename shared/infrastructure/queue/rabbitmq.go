package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"

	"mavencrawler/shared/application/ports"
)

// channel is the part of *amqp091.Channel the publisher needs.
type channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp091.Table) (amqp091.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
	Close() error
}

// RabbitMQQueue publishes persistent JSON messages onto durable queues. A
// publish that finds the channel closed redials once and retries; a failed
// redial leaves the queue disconnected and the next publish dials again.
type RabbitMQQueue struct {
	dial     func() (channel, io.Closer, error)
	conn     io.Closer
	channel  channel
	logger   ports.Logger
	metrics  ports.Metrics
	mu       sync.Mutex
	declared map[string]bool
}

func NewRabbitMQQueue(url string, obs ports.Observability) (*RabbitMQQueue, error) {
	logger, metrics, err := obs.ComponentsScoped("queue.rabbitmq")
	if err != nil {
		return nil, fmt.Errorf("failed to get observability components: %w", err)
	}

	q := newRabbitMQQueue(nil, logger, metrics)
	q.dial = func() (channel, io.Closer, error) {
		conn, err := amqp091.Dial(url)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
		}
		ch, err := conn.Channel()
		if err != nil {
			conn.Close()
			return nil, nil, fmt.Errorf("failed to create channel: %w", err)
		}
		return ch, conn, nil
	}

	if err := q.connect(); err != nil {
		logger.Error("RabbitMQ unreachable", "error", err)
		return nil, err
	}
	logger.Info("RabbitMQ queue initialized successfully")
	return q, nil
}

func newRabbitMQQueue(ch channel, logger ports.Logger, metrics ports.Metrics) *RabbitMQQueue {
	return &RabbitMQQueue{
		channel:  ch,
		logger:   logger,
		metrics:  metrics,
		declared: make(map[string]bool),
	}
}

// connect opens a channel when none is live. Callers hold q.mu, except the
// constructor.
func (q *RabbitMQQueue) connect() error {
	if q.channel != nil {
		return nil
	}
	if q.dial == nil {
		return errors.New("rabbitmq channel is closed")
	}

	ch, conn, err := q.dial()
	if err != nil {
		return err
	}
	q.channel, q.conn = ch, conn
	q.declared = make(map[string]bool)
	return nil
}

// disconnect drops the current channel so the next connect redials.
func (q *RabbitMQQueue) disconnect() {
	if q.channel != nil {
		q.channel.Close()
	}
	if q.conn != nil {
		q.conn.Close()
	}
	q.channel, q.conn = nil, nil
}

func (q *RabbitMQQueue) Publish(ctx context.Context, message *ports.QueueMessage) error {
	startTime := time.Now()
	defer func() {
		q.metrics.RecordHistogram("queue.publish.duration_ms",
			float64(time.Since(startTime).Milliseconds()),
			map[string]string{"target": message.Target})
	}()

	body, err := json.Marshal(message.Body)
	if err != nil {
		q.logger.Error("failed to marshal message", "error", err)
		q.metrics.IncrementCounter("queue.publish.error",
			map[string]string{"target": message.Target, "error": "marshal_failed"})
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	id := message.ID
	if id == "" {
		id = uuid.NewString()
	}

	headers := amqp091.Table{}
	for k, v := range message.Headers {
		headers[k] = v
	}

	publishing := amqp091.Publishing{
		DeliveryMode: amqp091.Persistent,
		ContentType:  "application/json",
		MessageId:    id,
		Headers:      headers,
		Body:         body,
		Timestamp:    time.Now(),
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	err = q.send(ctx, message.Target, publishing)
	if errors.Is(err, amqp091.ErrClosed) && q.dial != nil {
		q.logger.Info("RabbitMQ channel closed, reconnecting", "target", message.Target)
		q.metrics.IncrementCounter("queue.reconnects", nil)
		q.disconnect()
		err = q.send(ctx, message.Target, publishing)
	}
	if err != nil {
		return err
	}

	q.metrics.IncrementCounter("queue.publish.success",
		map[string]string{"target": message.Target})
	return nil
}

// send declares target and publishes onto it. Callers hold q.mu.
func (q *RabbitMQQueue) send(ctx context.Context, target string, publishing amqp091.Publishing) error {
	if err := q.connect(); err != nil {
		q.logger.Error("failed to connect to RabbitMQ", "error", err)
		q.metrics.IncrementCounter("queue.publish.error",
			map[string]string{"target": target, "error": "connect_failed"})
		return fmt.Errorf("failed to publish message: %w", err)
	}

	if err := q.declare(target); err != nil {
		q.metrics.IncrementCounter("queue.publish.error",
			map[string]string{"target": target, "error": "declare_failed"})
		return err
	}

	err := q.channel.PublishWithContext(
		ctx,
		"",     // default exchange
		target, // routing key is the queue name
		false,
		false,
		publishing,
	)
	if err != nil {
		q.logger.Error("failed to publish message", "error", err, "target", target)
		q.metrics.IncrementCounter("queue.publish.error",
			map[string]string{"target": target, "error": "publish_failed"})
		return fmt.Errorf("failed to publish message: %w", err)
	}
	return nil
}

// declare is idempotent on the broker; the result is cached per target.
// Callers hold q.mu.
func (q *RabbitMQQueue) declare(target string) error {
	if q.declared[target] {
		return nil
	}
	_, err := q.channel.QueueDeclare(
		target,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		q.logger.Error("failed to declare queue", "error", err, "queue", target)
		return fmt.Errorf("failed to declare queue: %w", err)
	}
	q.declared[target] = true
	return nil
}

func (q *RabbitMQQueue) PublishBatch(ctx context.Context, messages []*ports.QueueMessage) error {
	for _, msg := range messages {
		if err := q.Publish(ctx, msg); err != nil {
			return fmt.Errorf("failed to publish message in batch: %w", err)
		}
	}
	return nil
}

func (q *RabbitMQQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.disconnect()
	q.dial = nil
	return nil
}
