package runtime

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mavencrawler/shared/application/ports"
	"mavencrawler/shared/infrastructure/config"
	"mavencrawler/shared/infrastructure/observability"
	"mavencrawler/shared/infrastructure/observability/adapters/noop"
)

type fakeChannel struct {
	deliveries chan amqp.Delivery
	cancelOnce sync.Once
	closed     atomic.Bool
	prefetch   int
}

func newFakeChannel(buffer int) *fakeChannel {
	return &fakeChannel{deliveries: make(chan amqp.Delivery, buffer)}
}

func (c *fakeChannel) Qos(prefetchCount, _ int, _ bool) error {
	c.prefetch = prefetchCount
	return nil
}

func (c *fakeChannel) QueueDeclare(name string, _, _, _, _ bool, _ amqp.Table) (amqp.Queue, error) {
	return amqp.Queue{Name: name}, nil
}

func (c *fakeChannel) Consume(string, string, bool, bool, bool, bool, amqp.Table) (<-chan amqp.Delivery, error) {
	return c.deliveries, nil
}

func (c *fakeChannel) Cancel(string, bool) error {
	c.cancelOnce.Do(func() { close(c.deliveries) })
	return nil
}

// drop closes the delivery channel the way a broker restart does.
func (c *fakeChannel) drop() {
	c.cancelOnce.Do(func() { close(c.deliveries) })
}

func (c *fakeChannel) Close() error {
	c.closed.Store(true)
	return nil
}

// acker records the acknowledgement of each delivery tag.
type acker struct {
	mu       sync.Mutex
	outcomes map[uint64]string
}

func newAcker() *acker { return &acker{outcomes: make(map[uint64]string)} }

func (a *acker) set(tag uint64, outcome string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.outcomes[tag] = outcome
	return nil
}

func (a *acker) Ack(tag uint64, _ bool) error { return a.set(tag, "ack") }

func (a *acker) Nack(tag uint64, _ bool, requeue bool) error {
	if requeue {
		return a.set(tag, "requeue")
	}
	return a.set(tag, "nack")
}

func (a *acker) Reject(tag uint64, requeue bool) error { return a.Nack(tag, false, requeue) }

func (a *acker) get(tag uint64) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.outcomes[tag]
}

type handlerFunc func(ctx context.Context, req ports.RuntimeRequest) (ports.RuntimeResponse, error)

func (f handlerFunc) Handle(ctx context.Context, req ports.RuntimeRequest) (ports.RuntimeResponse, error) {
	return f(ctx, req)
}

func newTestRuntime(t *testing.T, ch *fakeChannel, concurrency int, h ports.Handler) *RabbitMQRuntime {
	t.Helper()
	obs := observability.New(&config.Config{ServiceName: "test"}, noop.Logger{}, noop.Metrics{})
	rt, err := NewRabbitMQRuntime(&config.QueueConfig{Name: "maven-downloads", PrefetchCount: 8}, concurrency, h, obs)
	require.NoError(t, err)
	rt.connect = func() (channel, io.Closer, error) { return ch, nil, nil }
	return rt
}

func delivery(a *acker, tag uint64, body string) amqp.Delivery {
	return amqp.Delivery{Acknowledger: a, DeliveryTag: tag, Body: []byte(body), RoutingKey: "maven-downloads"}
}

func TestAckPolicy(t *testing.T) {
	ch := newFakeChannel(4)
	a := newAcker()

	rt := newTestRuntime(t, ch, 2, handlerFunc(func(_ context.Context, req ports.RuntimeRequest) (ports.RuntimeResponse, error) {
		var body map[string]string
		if err := json.Unmarshal(req.Payload, &body); err != nil {
			return ports.RuntimeResponse{Error: "bad json"}, nil
		}
		switch body["case"] {
		case "ok":
			return ports.RuntimeResponse{Success: true}, nil
		case "retry":
			return ports.RuntimeResponse{Retryable: true, Error: "not found"}, nil
		case "boom":
			return ports.RuntimeResponse{}, errors.New("unexpected")
		default:
			return ports.RuntimeResponse{Error: "invalid job"}, nil
		}
	}))

	ch.deliveries <- delivery(a, 1, `{"case":"ok"}`)
	ch.deliveries <- delivery(a, 2, `{"case":"retry"}`)
	ch.deliveries <- delivery(a, 3, `{"case":"invalid"}`)
	ch.deliveries <- delivery(a, 4, `not json`)

	errCh := make(chan error, 1)
	go func() { errCh <- rt.Start(context.Background()) }()

	require.Eventually(t, func() bool { return a.get(4) != "" && a.get(1) != "" && a.get(2) != "" && a.get(3) != "" },
		2*time.Second, 10*time.Millisecond)

	require.NoError(t, rt.Stop(context.Background()))
	require.NoError(t, <-errCh)

	assert.Equal(t, "ack", a.get(1))
	assert.Equal(t, "requeue", a.get(2))
	assert.Equal(t, "ack", a.get(3))
	assert.Equal(t, "ack", a.get(4))
	assert.Equal(t, 8, ch.prefetch)
	assert.True(t, ch.closed.Load())
}

func TestHandlerErrorRequeues(t *testing.T) {
	ch := newFakeChannel(1)
	a := newAcker()
	rt := newTestRuntime(t, ch, 1, handlerFunc(func(context.Context, ports.RuntimeRequest) (ports.RuntimeResponse, error) {
		return ports.RuntimeResponse{}, errors.New("database down")
	}))

	ch.deliveries <- delivery(a, 7, `{}`)
	go rt.Start(context.Background())

	require.Eventually(t, func() bool { return a.get(7) == "requeue" }, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, rt.Stop(context.Background()))
}

func TestConcurrencyIsBounded(t *testing.T) {
	const messages = 6
	ch := newFakeChannel(messages)
	a := newAcker()

	var running, peak atomic.Int32
	rt := newTestRuntime(t, ch, 2, handlerFunc(func(context.Context, ports.RuntimeRequest) (ports.RuntimeResponse, error) {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		running.Add(-1)
		return ports.RuntimeResponse{Success: true}, nil
	}))

	for i := 1; i <= messages; i++ {
		ch.deliveries <- delivery(a, uint64(i), `{}`)
	}
	go rt.Start(context.Background())

	require.Eventually(t, func() bool {
		for i := 1; i <= messages; i++ {
			if a.get(uint64(i)) != "ack" {
				return false
			}
		}
		return true
	}, 3*time.Second, 10*time.Millisecond)
	require.NoError(t, rt.Stop(context.Background()))

	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestStopWaitsForInFlightHandlers(t *testing.T) {
	ch := newFakeChannel(1)
	a := newAcker()

	started := make(chan struct{})
	release := make(chan struct{})
	rt := newTestRuntime(t, ch, 1, handlerFunc(func(ctx context.Context, _ ports.RuntimeRequest) (ports.RuntimeResponse, error) {
		close(started)
		<-release
		return ports.RuntimeResponse{Success: true}, nil
	}))

	ch.deliveries <- delivery(a, 1, `{}`)

	ctx, cancel := context.WithCancel(context.Background())
	startErr := make(chan error, 1)
	go func() { startErr <- rt.Start(ctx) }()
	<-started

	cancel()
	stopped := make(chan error, 1)
	go func() { stopped <- rt.Stop(context.Background()) }()

	select {
	case <-stopped:
		t.Fatal("Stop returned before the in-flight handler finished")
	case <-time.After(50 * time.Millisecond):
	}
	assert.False(t, ch.closed.Load())

	close(release)
	require.NoError(t, <-stopped)
	require.NoError(t, <-startErr)
	assert.Equal(t, "ack", a.get(1))
	assert.True(t, ch.closed.Load())
}

func TestStopHonoursDeadline(t *testing.T) {
	ch := newFakeChannel(1)
	a := newAcker()

	started := make(chan struct{})
	release := make(chan struct{})
	defer close(release)
	rt := newTestRuntime(t, ch, 1, handlerFunc(func(context.Context, ports.RuntimeRequest) (ports.RuntimeResponse, error) {
		close(started)
		<-release
		return ports.RuntimeResponse{Success: true}, nil
	}))

	ch.deliveries <- delivery(a, 1, `{}`)
	go rt.Start(context.Background())
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := rt.Stop(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRequestMapping(t *testing.T) {
	ch := newFakeChannel(1)
	a := newAcker()

	got := make(chan ports.RuntimeRequest, 1)
	rt := newTestRuntime(t, ch, 1, handlerFunc(func(_ context.Context, req ports.RuntimeRequest) (ports.RuntimeResponse, error) {
		got <- req
		return ports.RuntimeResponse{Success: true}, nil
	}))

	d := delivery(a, 42, `{"groupId":"g"}`)
	d.Redelivered = true
	d.Headers = amqp.Table{"source": "enqueuer"}
	ch.deliveries <- d
	go rt.Start(context.Background())

	req := <-got
	require.NoError(t, rt.Stop(context.Background()))

	assert.Equal(t, "rmq-42", req.ID)
	assert.Equal(t, "rabbitmq", req.Source)
	assert.Equal(t, "maven-downloads", req.Type)
	assert.True(t, req.Redelivered)
	assert.Equal(t, "enqueuer", req.Metadata["header_source"])
	assert.JSONEq(t, `{"groupId":"g"}`, string(req.Payload))
	assert.False(t, req.Timestamp.IsZero())
}

func TestBrokerLossReturnsErrorAfterReconnectBudget(t *testing.T) {
	ch := newFakeChannel(0)
	ch.drop()

	rt := newTestRuntime(t, ch, 1, handlerFunc(func(context.Context, ports.RuntimeRequest) (ports.RuntimeResponse, error) {
		return ports.RuntimeResponse{Success: true}, nil
	}))
	rt.config.ReconnectAttempts = 2
	rt.config.ReconnectDelay = time.Millisecond

	var connects atomic.Int32
	rt.connect = func() (channel, io.Closer, error) {
		if connects.Add(1) == 1 {
			return ch, nil, nil
		}
		return nil, nil, errors.New("connection refused")
	}

	err := rt.Start(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBrokerLost)
	assert.ErrorContains(t, err, "connection refused")
	assert.EqualValues(t, 3, connects.Load())
	assert.True(t, ch.closed.Load())
}

func TestReconnectsAfterBrokerRestart(t *testing.T) {
	first := newFakeChannel(0)
	first.drop()
	second := newFakeChannel(1)
	a := newAcker()
	second.deliveries <- delivery(a, 1, `{}`)

	rt := newTestRuntime(t, first, 1, handlerFunc(func(context.Context, ports.RuntimeRequest) (ports.RuntimeResponse, error) {
		return ports.RuntimeResponse{Success: true}, nil
	}))
	rt.config.ReconnectAttempts = 3
	rt.config.ReconnectDelay = time.Millisecond

	sessions := []*fakeChannel{first, second}
	var connects atomic.Int32
	rt.connect = func() (channel, io.Closer, error) {
		n := int(connects.Add(1)) - 1
		if n >= len(sessions) {
			return nil, nil, errors.New("unexpected reconnect")
		}
		return sessions[n], nil, nil
	}

	errCh := make(chan error, 1)
	go func() { errCh <- rt.Start(context.Background()) }()

	require.Eventually(t, func() bool { return a.get(1) == "ack" }, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, rt.Stop(context.Background()))
	require.NoError(t, <-errCh)

	assert.EqualValues(t, 2, connects.Load())
	assert.True(t, first.closed.Load())
	assert.True(t, second.closed.Load())
}

func TestStopDuringBackoff(t *testing.T) {
	ch := newFakeChannel(0)
	rt := newTestRuntime(t, ch, 1, handlerFunc(func(context.Context, ports.RuntimeRequest) (ports.RuntimeResponse, error) {
		return ports.RuntimeResponse{Success: true}, nil
	}))
	rt.config.ReconnectAttempts = 5
	rt.config.ReconnectDelay = time.Hour

	var connects atomic.Int32
	rt.connect = func() (channel, io.Closer, error) {
		connects.Add(1)
		return nil, nil, errors.New("connection refused")
	}

	errCh := make(chan error, 1)
	go func() { errCh <- rt.Start(context.Background()) }()

	require.Eventually(t, func() bool { return connects.Load() == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, rt.Stop(context.Background()))
	require.NoError(t, <-errCh)
}
