package s3

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"mavencrawler/shared/application/ports"
	"mavencrawler/shared/infrastructure/config"
	"mavencrawler/shared/infrastructure/observability/adapters/noop"
)

type mockAPI struct {
	mock.Mock
}

func (m *mockAPI) HeadObject(ctx context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	args := m.Called(aws.ToString(in.Key))
	out, _ := args.Get(0).(*s3.HeadObjectOutput)
	return out, args.Error(1)
}

func (m *mockAPI) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	args := m.Called(aws.ToString(in.Key))
	out, _ := args.Get(0).(*s3.GetObjectOutput)
	return out, args.Error(1)
}

func (m *mockAPI) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	args := m.Called(aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, args.Error(0)
}

func (m *mockAPI) HeadBucket(ctx context.Context, in *s3.HeadBucketInput, _ ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	args := m.Called(aws.ToString(in.Bucket))
	return &s3.HeadBucketOutput{}, args.Error(0)
}

func (m *mockAPI) CreateBucket(ctx context.Context, in *s3.CreateBucketInput, _ ...func(*s3.Options)) (*s3.CreateBucketOutput, error) {
	args := m.Called(aws.ToString(in.Bucket))
	return &s3.CreateBucketOutput{}, args.Error(0)
}

func (m *mockAPI) ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	args := m.Called(aws.ToString(in.Prefix))
	out, _ := args.Get(0).(*s3.ListObjectsV2Output)
	return out, args.Error(1)
}

type mockUploader struct {
	mock.Mock
	body string
}

func (m *mockUploader) Upload(ctx context.Context, in *s3.PutObjectInput, _ ...func(*manager.Uploader)) (*manager.UploadOutput, error) {
	data, _ := io.ReadAll(in.Body)
	m.body = string(data)
	args := m.Called(aws.ToString(in.Bucket), aws.ToString(in.Key), in.Metadata)
	return &manager.UploadOutput{}, args.Error(0)
}

func newTestClient(prefix string) (*Client, *mockAPI, *mockUploader) {
	a := &mockAPI{}
	u := &mockUploader{}
	cfg := &config.S3Config{Bucket: "artifacts", Prefix: prefix}
	return newClient(a, u, cfg, noop.Logger{}, noop.Metrics{}), a, u
}

func TestPutStreamsThroughUploader(t *testing.T) {
	c, _, u := newTestClient("maven/")

	u.On("Upload", "artifacts", "maven/g.a/a-1.jar", map[string]string{"source-url": "https://repo/a-1.jar"}).Return(nil)

	n, err := c.Put(context.Background(), "g.a/a-1.jar", strings.NewReader("payload"), ports.ObjectMetadata{
		ContentType: "application/java-archive",
		SourceURL:   "https://repo/a-1.jar",
	})
	require.NoError(t, err)
	assert.EqualValues(t, 7, n)
	assert.Equal(t, "payload", u.body)
	u.AssertExpectations(t)

	assert.Equal(t, "s3://artifacts/maven/g.a/a-1.jar", c.URI("g.a/a-1.jar"))
}

func TestPutFailure(t *testing.T) {
	c, _, u := newTestClient("")
	u.On("Upload", "artifacts", "g.a/a-1.jar", mock.Anything).Return(errors.New("throttled"))

	_, err := c.Put(context.Background(), "g.a/a-1.jar", strings.NewReader("x"), ports.ObjectMetadata{})
	assert.ErrorContains(t, err, "throttled")
}

func TestExists(t *testing.T) {
	c, a, _ := newTestClient("")

	a.On("HeadObject", "g.a/a-1.jar").Return(&s3.HeadObjectOutput{}, nil)
	a.On("HeadObject", "g.a/a-1.aar").Return(nil, &s3types.NotFound{})
	a.On("HeadObject", "g.a/a-2.jar").Return(nil, errors.New("access denied"))

	ok, err := c.Exists(context.Background(), "g.a/a-1.jar")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.Exists(context.Background(), "g.a/a-1.aar")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = c.Exists(context.Background(), "g.a/a-2.jar")
	assert.Error(t, err)
}

func TestGetMissing(t *testing.T) {
	c, a, _ := newTestClient("")
	a.On("GetObject", "x").Return(nil, &s3types.NoSuchKey{})

	_, err := c.Get(context.Background(), "x")
	assert.ErrorIs(t, err, ports.ErrObjectNotFound)
}

func TestListStripsPrefix(t *testing.T) {
	c, a, _ := newTestClient("maven")
	a.On("ListObjectsV2", "maven/g.a/").Return(&s3.ListObjectsV2Output{
		Contents: []s3types.Object{
			{Key: aws.String("maven/g.a/a-1.jar"), Size: aws.Int64(10)},
			{Key: aws.String("maven/g.a/a-2.jar"), Size: aws.Int64(20)},
		},
	}, nil)

	objects, err := c.List(context.Background(), "g.a/")
	require.NoError(t, err)
	require.Len(t, objects, 2)
	assert.Equal(t, "g.a/a-1.jar", objects[0].Key)
	assert.EqualValues(t, 20, objects[1].Size)
}

func TestEnsureBucketCreatesMissingBucket(t *testing.T) {
	c, a, _ := newTestClient("")
	a.On("HeadBucket", "artifacts").Return(&s3types.NotFound{})
	a.On("CreateBucket", "artifacts").Return(nil)

	require.NoError(t, c.ensureBucketExists(context.Background()))
	a.AssertExpectations(t)
}
