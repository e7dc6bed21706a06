package download

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"mavencrawler/shared/domain/entity"
	"mavencrawler/shared/mocks"
)

type recordingExecutor struct {
	mu   sync.Mutex
	seen []entity.DownloadJob
	fn   func(entity.DownloadJob) (*Result, error)
}

func (e *recordingExecutor) Execute(_ context.Context, job entity.DownloadJob) (*Result, error) {
	e.mu.Lock()
	e.seen = append(e.seen, job)
	e.mu.Unlock()
	return e.fn(job)
}

func metadata(group, artifact string, versions ...string) *entity.Metadata {
	return &entity.Metadata{GroupID: group, ArtifactID: artifact, Repository: repo, Versions: versions}
}

func TestDownloadAll(t *testing.T) {
	ctx := context.Background()

	t.Run("pages through every record", func(t *testing.T) {
		repoMock := &mocks.MetadataRepository{}
		first := []*entity.Metadata{metadata("a", "one", "1.0", "1.1"), metadata("b", "two", "2.0")}
		second := []*entity.Metadata{metadata("c", "three", "3.0")}
		repoMock.On("List", mock.Anything, entity.Coordinate{}, 2).Return(first, nil).Once()
		repoMock.On("List", mock.Anything, entity.Coordinate{GroupID: "b", ArtifactID: "two"}, 2).Return(second, nil).Once()

		exec := &recordingExecutor{fn: func(j entity.DownloadJob) (*Result, error) {
			switch j.Version {
			case "1.1":
				return &Result{Job: j, AlreadyStored: true}, nil
			case "3.0":
				return nil, NewDomainError(CodeNotFound, "missing", nil, true)
			}
			return &Result{Job: j}, nil
		}}

		uc, err := NewDownloadAll(repoMock, exec, 2, 3, testObs)
		require.NoError(t, err)

		res, err := uc.Run(ctx)
		require.NoError(t, err)
		assert.Equal(t, BatchResult{Jobs: 4, Downloaded: 2, AlreadyStored: 1, Failed: 1}, res)
		assert.Len(t, exec.seen, 4)
		repoMock.AssertExpectations(t)
	})

	t.Run("list failure is returned after draining", func(t *testing.T) {
		repoMock := &mocks.MetadataRepository{}
		repoMock.On("List", mock.Anything, mock.Anything, 500).Return(nil, errors.New("db down"))

		exec := &recordingExecutor{fn: func(j entity.DownloadJob) (*Result, error) { return &Result{Job: j}, nil }}
		uc, err := NewDownloadAll(repoMock, exec, 0, 0, testObs)
		require.NoError(t, err)

		res, err := uc.Run(ctx)
		require.Error(t, err)
		assert.Zero(t, res.Jobs)
	})

	t.Run("cancelled context stops producing", func(t *testing.T) {
		repoMock := &mocks.MetadataRepository{}
		repoMock.On("List", mock.Anything, mock.Anything, mock.Anything).
			Return([]*entity.Metadata{metadata("a", "one", "1.0", "1.1", "1.2")}, nil)

		cctx, cancel := context.WithCancel(ctx)
		exec := &recordingExecutor{fn: func(j entity.DownloadJob) (*Result, error) {
			cancel()
			return &Result{Job: j}, nil
		}}
		uc, err := NewDownloadAll(repoMock, exec, 10, 1, testObs)
		require.NoError(t, err)

		_, err = uc.Run(cctx)
		assert.ErrorIs(t, err, context.Canceled)
	})
}
