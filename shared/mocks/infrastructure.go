package mocks

import (
	"context"
	"io"
	"time"

	"github.com/stretchr/testify/mock"

	"mavencrawler/shared/application/ports"
)

type Queue struct {
	mock.Mock
}

func (m *Queue) Publish(ctx context.Context, message *ports.QueueMessage) error {
	return m.Called(ctx, message).Error(0)
}

func (m *Queue) PublishBatch(ctx context.Context, messages []*ports.QueueMessage) error {
	return m.Called(ctx, messages).Error(0)
}

func (m *Queue) Close() error {
	return m.Called().Error(0)
}

type Storage struct {
	mock.Mock
}

// Put drains reader before recording the call so tests can assert on the
// payload through the returned byte count.
func (m *Storage) Put(ctx context.Context, key string, reader io.Reader, metadata ports.ObjectMetadata) (int64, error) {
	n, _ := io.Copy(io.Discard, reader)
	args := m.Called(ctx, key, metadata)
	if err := args.Error(0); err != nil {
		return 0, err
	}
	return n, nil
}

func (m *Storage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	args := m.Called(ctx, key)
	rc, _ := args.Get(0).(io.ReadCloser)
	return rc, args.Error(1)
}

func (m *Storage) Exists(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *Storage) Delete(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func (m *Storage) List(ctx context.Context, prefix string) ([]ports.ObjectInfo, error) {
	args := m.Called(ctx, prefix)
	list, _ := args.Get(0).([]ports.ObjectInfo)
	return list, args.Error(1)
}

func (m *Storage) URI(key string) string {
	return "mem://" + key
}

type Fetcher struct {
	mock.Mock
}

func (m *Fetcher) Fetch(ctx context.Context, url string) (io.ReadCloser, error) {
	args := m.Called(ctx, url)
	rc, _ := args.Get(0).(io.ReadCloser)
	return rc, args.Error(1)
}

type InFlightTracker struct {
	mock.Mock
}

func (m *InFlightTracker) Mark(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *InFlightTracker) Clear(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

type Leaser struct {
	mock.Mock
}

// Acquire returns a release func that records a "Release" call.
func (m *Leaser) Acquire(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, bool, error) {
	args := m.Called(ctx, key, ttl)
	if !args.Bool(0) || args.Error(1) != nil {
		return nil, args.Bool(0), args.Error(1)
	}
	release := func(ctx context.Context) error {
		return m.MethodCalled("Release", ctx, key).Error(0)
	}
	return release, true, nil
}
