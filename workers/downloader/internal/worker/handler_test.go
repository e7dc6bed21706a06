package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"mavencrawler/shared/application/ports"
	"mavencrawler/shared/application/usecase/download"
	"mavencrawler/shared/domain/entity"
	"mavencrawler/shared/infrastructure/observability/adapters/noop"
	"mavencrawler/shared/mocks"
)

type mockExecutor struct {
	mock.Mock
}

func (m *mockExecutor) Execute(ctx context.Context, job entity.DownloadJob) (*download.Result, error) {
	args := m.Called(ctx, job)
	res, _ := args.Get(0).(*download.Result)
	return res, args.Error(1)
}

var job = entity.DownloadJob{
	GroupID:    "com.google.code.gson",
	ArtifactID: "gson",
	Repository: "https://repo1.maven.org/maven2",
	Version:    "2.10.1",
}

func newHandler(t *testing.T, exec download.Executor) *DownloadHandler {
	t.Helper()
	h, err := NewDownloadHandler(exec, &mocks.Observability{Log: noop.Logger{}, Met: noop.Metrics{}})
	require.NoError(t, err)
	return h
}

func request(t *testing.T, payload interface{}) ports.RuntimeRequest {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return ports.RuntimeRequest{ID: "msg-1", Source: "rabbitmq", Type: "download", Payload: raw}
}

func TestDownloadHandler_Handle(t *testing.T) {
	ctx := context.Background()

	t.Run("success carries the result", func(t *testing.T) {
		exec := &mockExecutor{}
		exec.On("Execute", mock.Anything, job).Return(&download.Result{
			Job:         job,
			Extension:   "jar",
			StoragePath: "/data/com.google.code.gson.gson/gson-2.10.1.jar",
			Bytes:       283367,
		}, nil)

		resp, err := newHandler(t, exec).Handle(ctx, request(t, job))
		require.NoError(t, err)
		assert.True(t, resp.Success)

		var got download.Result
		require.NoError(t, json.Unmarshal(resp.Data, &got))
		assert.Equal(t, "jar", got.Extension)
		assert.EqualValues(t, 283367, got.Bytes)
		exec.AssertExpectations(t)
	})

	t.Run("malformed payload is dropped", func(t *testing.T) {
		exec := &mockExecutor{}
		resp, err := newHandler(t, exec).Handle(ctx, ports.RuntimeRequest{ID: "msg-2", Payload: []byte("{not json")})
		require.NoError(t, err)
		assert.False(t, resp.Success)
		assert.False(t, resp.Retryable)
		assert.Contains(t, resp.Error, "invalid payload")
		exec.AssertNotCalled(t, "Execute", mock.Anything, mock.Anything)
	})

	t.Run("retryable domain error requeues", func(t *testing.T) {
		exec := &mockExecutor{}
		exec.On("Execute", mock.Anything, job).
			Return(nil, download.NewDomainError(download.CodeNotFound, "artifact not found as jar or aar", nil, true))

		resp, err := newHandler(t, exec).Handle(ctx, request(t, job))
		require.NoError(t, err)
		assert.False(t, resp.Success)
		assert.True(t, resp.Retryable)
		assert.Contains(t, resp.Error, download.CodeNotFound)
	})

	t.Run("invalid job is not retried", func(t *testing.T) {
		exec := &mockExecutor{}
		incomplete := job
		incomplete.Version = ""
		exec.On("Execute", mock.Anything, incomplete).
			Return(nil, download.NewDomainError(download.CodeInvalidJob, "incomplete download job", entity.ErrIncompleteJob, false))

		resp, err := newHandler(t, exec).Handle(ctx, request(t, incomplete))
		require.NoError(t, err)
		assert.False(t, resp.Success)
		assert.False(t, resp.Retryable)
	})

	t.Run("unexpected errors are retryable", func(t *testing.T) {
		exec := &mockExecutor{}
		exec.On("Execute", mock.Anything, job).Return(nil, errors.New("boom"))

		resp, err := newHandler(t, exec).Handle(ctx, request(t, job))
		require.NoError(t, err)
		assert.True(t, resp.Retryable)
		assert.Contains(t, resp.Error, download.CodeDownloadFailed)
	})
}
