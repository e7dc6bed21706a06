package runtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/streadway/amqp"

	"mavencrawler/shared/application/ports"
	"mavencrawler/shared/infrastructure/config"
)

// channel is the part of *amqp.Channel the consumer needs.
type channel interface {
	Qos(prefetchCount, prefetchSize int, global bool) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	Cancel(consumer string, noWait bool) error
	Close() error
}

// RabbitMQRuntime consumes the download queue and hands each delivery to a
// Handler, running at most Concurrency handlers at once.
//
// Outcomes map to broker acknowledgements as follows: success acks,
// retryable failures and handler errors nack with requeue, everything else
// is acked and dropped.
type RabbitMQRuntime struct {
	handler     ports.Handler
	logger      ports.Logger
	metrics     ports.Metrics
	config      *config.QueueConfig
	concurrency int
	consumerTag string

	// connect opens the broker channel; replaced in tests.
	connect func() (channel, io.Closer, error)

	mu       sync.Mutex
	channel  channel
	conn     io.Closer
	done     chan struct{}
	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewRabbitMQRuntime creates a consumer for cfg.Name.
func NewRabbitMQRuntime(cfg *config.QueueConfig, concurrency int, handler ports.Handler, obs ports.Observability) (*RabbitMQRuntime, error) {
	logger, metrics, err := obs.ComponentsScoped("runtime.rabbitmq")
	if err != nil {
		return nil, fmt.Errorf("failed to create runtime: observability was not initialized: %w", err)
	}
	if handler == nil {
		return nil, errors.New("failed to create runtime: handler is required")
	}
	if concurrency < 1 {
		concurrency = 1
	}

	runtime := &RabbitMQRuntime{
		handler:     handler,
		logger:      logger,
		metrics:     metrics,
		config:      cfg,
		concurrency: concurrency,
		consumerTag: "downloader-" + uuid.NewString(),
		stop:        make(chan struct{}),
	}
	runtime.connect = runtime.dial
	return runtime, nil
}

func (runtime *RabbitMQRuntime) dial() (channel, io.Closer, error) {
	conn, err := amqp.Dial(runtime.config.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("failed to open channel: %w", err)
	}
	return ch, conn, nil
}

// ErrBrokerLost is returned by Start when the broker connection dropped and
// could not be re-established within QueueConfig.ReconnectAttempts.
var ErrBrokerLost = errors.New("rabbitmq connection lost")

// errDeliveriesClosed marks a session the broker ended.
var errDeliveriesClosed = errors.New("broker closed the delivery channel")

const maxReconnectDelay = 30 * time.Second

// Start consumes until ctx is cancelled or Stop is called, then returns nil
// once every in-flight handler finished. When the broker closes the session
// the consumer reconnects with exponential backoff; after
// ReconnectAttempts consecutive failures it returns ErrBrokerLost.
func (runtime *RabbitMQRuntime) Start(ctx context.Context) error {
	done := make(chan struct{})
	runtime.mu.Lock()
	runtime.done = done
	runtime.mu.Unlock()
	defer close(done)

	// Handlers outlive a cancelled Start so that in-flight jobs can finish.
	handlerCtx := context.WithoutCancel(ctx)
	slots := make(chan struct{}, runtime.concurrency)

	delay := runtime.config.ReconnectDelay
	failures := 0
	for {
		subscribed, err := runtime.consume(ctx, handlerCtx, slots)
		if err == nil {
			return nil
		}
		if subscribed {
			failures = 0
			delay = runtime.config.ReconnectDelay
		}
		failures++
		if failures > runtime.config.ReconnectAttempts {
			runtime.metrics.IncrementCounter("rabbitmq.lost", nil)
			return fmt.Errorf("%w after %d attempts: %w", ErrBrokerLost, failures, err)
		}

		runtime.logger.Error("RabbitMQ session ended, reconnecting",
			"error", err,
			"attempt", failures,
			"backoff", delay.String())
		runtime.metrics.IncrementCounter("rabbitmq.reconnects", nil)

		select {
		case <-ctx.Done():
			return nil
		case <-runtime.stop:
			return nil
		case <-time.After(delay):
		}
		delay = min(delay*2, maxReconnectDelay)
	}
}

// consume runs one broker session. It returns nil when ctx is done or Stop
// was called. subscribed reports whether deliveries started flowing, which
// resets the reconnect budget.
func (runtime *RabbitMQRuntime) consume(ctx, handlerCtx context.Context, slots chan struct{}) (subscribed bool, err error) {
	ch, conn, err := runtime.connect()
	if err != nil {
		return false, err
	}

	msgs, err := runtime.subscribe(ch)
	if err != nil {
		closeSession(ch, conn)
		return false, err
	}

	runtime.mu.Lock()
	if runtime.stopping() {
		runtime.mu.Unlock()
		closeSession(ch, conn)
		return true, nil
	}
	runtime.channel = ch
	runtime.conn = conn
	runtime.mu.Unlock()

	runtime.logger.Info("RabbitMQ consumer started",
		"queue", runtime.config.Name,
		"prefetch", runtime.config.PrefetchCount,
		"concurrency", runtime.concurrency)
	runtime.metrics.IncrementCounter("rabbitmq.starts", nil)

	for {
		select {
		case <-ctx.Done():
			if err := ch.Cancel(runtime.consumerTag, false); err != nil {
				runtime.logger.Error("Failed to cancel consumer", "error", err)
			}
			runtime.wg.Wait()
			return true, nil

		case msg, ok := <-msgs:
			if !ok {
				// Acks for these handlers fail on the dead channel; the
				// broker redelivers the messages to the next session.
				runtime.wg.Wait()
				if runtime.stopping() {
					return true, nil
				}

				runtime.mu.Lock()
				if runtime.channel == ch {
					runtime.channel, runtime.conn = nil, nil
				}
				runtime.mu.Unlock()
				closeSession(ch, conn)
				return true, errDeliveriesClosed
			}

			select {
			case slots <- struct{}{}:
			case <-ctx.Done():
				// Unacked; the broker redelivers it once the channel closes.
				continue
			}

			runtime.wg.Add(1)
			go func(msg amqp.Delivery) {
				defer runtime.wg.Done()
				defer func() { <-slots }()
				runtime.processMessage(handlerCtx, msg)
			}(msg)
		}
	}
}

func (runtime *RabbitMQRuntime) stopping() bool {
	select {
	case <-runtime.stop:
		return true
	default:
		return false
	}
}

func closeSession(ch channel, conn io.Closer) {
	ch.Close()
	if conn != nil {
		conn.Close()
	}
}

func (runtime *RabbitMQRuntime) subscribe(ch channel) (<-chan amqp.Delivery, error) {
	if runtime.config.PrefetchCount > 0 {
		if err := ch.Qos(runtime.config.PrefetchCount, 0, false); err != nil {
			return nil, fmt.Errorf("failed to set QoS: %w", err)
		}
	}

	q, err := ch.QueueDeclare(
		runtime.config.Name, // name
		true,                // durable
		false,               // delete when unused
		false,               // exclusive
		false,               // no-wait
		nil,                 // arguments
	)
	if err != nil {
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	msgs, err := ch.Consume(
		q.Name,
		runtime.consumerTag,
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to consume: %w", err)
	}
	return msgs, nil
}

func (runtime *RabbitMQRuntime) processMessage(ctx context.Context, msg amqp.Delivery) {
	startTime := time.Now()

	if runtime.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, runtime.config.Timeout)
		defer cancel()
	}

	req := ports.RuntimeRequest{
		ID:          msg.MessageId,
		Source:      "rabbitmq",
		Type:        extractType(msg),
		Payload:     json.RawMessage(msg.Body),
		Metadata:    buildMetadata(msg),
		Timestamp:   msg.Timestamp,
		Redelivered: msg.Redelivered,
	}
	if req.ID == "" {
		req.ID = fmt.Sprintf("rmq-%d", msg.DeliveryTag)
	}
	if req.Timestamp.IsZero() {
		req.Timestamp = time.Now().UTC()
	}

	runtime.metrics.IncrementCounter("rabbitmq.messages", nil)

	resp, err := runtime.handler.Handle(ctx, req)

	switch {
	case err == nil && resp.Success:
		if ackErr := msg.Ack(false); ackErr != nil {
			runtime.logger.Error("Failed to ack message", "id", req.ID, "error", ackErr)
		}
		runtime.metrics.IncrementCounter("rabbitmq.success", nil)

	case err != nil || resp.Retryable:
		if nackErr := msg.Nack(false, true); nackErr != nil {
			runtime.logger.Error("Failed to nack message", "id", req.ID, "error", nackErr)
		}
		reason := resp.Error
		if err != nil {
			reason = err.Error()
		}
		runtime.logger.Error("Message requeued",
			"id", req.ID,
			"error", reason,
			"redelivered", msg.Redelivered)
		runtime.metrics.IncrementCounter("rabbitmq.failure", map[string]string{"outcome": "requeued"})

	default:
		if ackErr := msg.Ack(false); ackErr != nil {
			runtime.logger.Error("Failed to ack message", "id", req.ID, "error", ackErr)
		}
		runtime.logger.Error("Message dropped", "id", req.ID, "error", resp.Error)
		runtime.metrics.IncrementCounter("rabbitmq.failure", map[string]string{"outcome": "dropped"})
	}

	runtime.metrics.RecordHistogram("rabbitmq.duration_ms",
		float64(time.Since(startTime).Milliseconds()), nil)
}

// Stop cancels the consumer, waits for in-flight handlers (bounded by ctx)
// and then closes the channel and connection.
func (runtime *RabbitMQRuntime) Stop(ctx context.Context) error {
	runtime.stopOnce.Do(func() { close(runtime.stop) })

	runtime.mu.Lock()
	ch, conn, done := runtime.channel, runtime.conn, runtime.done
	runtime.channel, runtime.conn = nil, nil
	runtime.mu.Unlock()

	if ch != nil {
		if err := ch.Cancel(runtime.consumerTag, false); err != nil {
			runtime.logger.Error("Failed to cancel consumer", "error", err)
		}
	}

	var waitErr error
	if done != nil {
		select {
		case <-done:
		case <-ctx.Done():
			waitErr = fmt.Errorf("in-flight handlers did not finish: %w", ctx.Err())
		}
	}

	if ch != nil {
		closeSession(ch, conn)
	}
	runtime.logger.Info("RabbitMQ consumer stopped")
	return waitErr
}

// extractType gets message type from headers or routing key
func extractType(msg amqp.Delivery) string {
	if t, ok := msg.Headers["type"]; ok {
		return fmt.Sprintf("%v", t)
	}
	if msg.RoutingKey != "" {
		return msg.RoutingKey
	}
	return "message"
}

func buildMetadata(msg amqp.Delivery) map[string]string {
	meta := make(map[string]string)

	if msg.RoutingKey != "" {
		meta["routing_key"] = msg.RoutingKey
	}
	if msg.Exchange != "" {
		meta["exchange"] = msg.Exchange
	}
	if msg.CorrelationId != "" {
		meta["correlation_id"] = msg.CorrelationId
	}
	meta["redelivered"] = fmt.Sprintf("%v", msg.Redelivered)

	for k, v := range msg.Headers {
		meta[fmt.Sprintf("header_%s", k)] = fmt.Sprintf("%v", v)
	}
	return meta
}
