package minio

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/turtacn/OpportunityRadar/internal/testutil"
	"github.com/turtacn/OpportunityRadar/pkg/errors"
)

type MockMinIOAPI struct {
	mock.Mock
}

func (m *MockMinIOAPI) ListBuckets(ctx context.Context) ([]minio.BucketInfo, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]minio.BucketInfo), args.Error(1)
}

func (m *MockMinIOAPI) BucketExists(ctx context.Context, bucketName string) (bool, error) {
	args := m.Called(ctx, bucketName)
	return args.Bool(0), args.Error(1)
}

func (m *MockMinIOAPI) MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error {
	args := m.Called(ctx, bucketName, opts)
	return args.Error(0)
}

func (m *MockMinIOAPI) PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	args := m.Called(ctx, bucketName, objectName, reader, objectSize, opts)
	return args.Get(0).(minio.UploadInfo), args.Error(1)
}

// GetObject is never reached in unit tests: *minio.Object cannot be built
// without a server, so tests replace Client.open instead.
func (m *MockMinIOAPI) GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (*minio.Object, error) {
	args := m.Called(ctx, bucketName, objectName, opts)
	return nil, args.Error(1)
}

func (m *MockMinIOAPI) StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error) {
	args := m.Called(ctx, bucketName, objectName, opts)
	return args.Get(0).(minio.ObjectInfo), args.Error(1)
}

type ClientTestSuite struct {
	suite.Suite
	api    *MockMinIOAPI
	client *Client
}

func (s *ClientTestSuite) SetupTest() {
	s.api = new(MockMinIOAPI)
	s.client = newClientWithAPI(s.api, Config{Endpoint: "localhost:9000"}, testutil.NewMockLogger())
}

func (s *ClientTestSuite) TestApplyDefaults() {
	cfg := Config{}
	applyDefaults(&cfg)
	assert.Equal(s.T(), "us-east-1", cfg.Region)
	assert.Equal(s.T(), 10*time.Second, cfg.ConnectTimeout)
}

func (s *ClientTestSuite) TestNewClient_RequiresEndpoint() {
	_, err := NewClient(Config{}, nil)
	assert.True(s.T(), errors.IsCode(err, errors.ErrCodeValidation))
}

func (s *ClientTestSuite) TestEnsureBucket_Creates() {
	ctx := context.Background()
	s.api.On("BucketExists", ctx, "radar").Return(false, nil).Once()
	s.api.On("MakeBucket", ctx, "radar", minio.MakeBucketOptions{Region: "us-east-1"}).Return(nil).Once()

	assert.NoError(s.T(), s.client.EnsureBucket(ctx, "radar"))
	s.api.AssertExpectations(s.T())
}

func (s *ClientTestSuite) TestEnsureBucket_Exists() {
	ctx := context.Background()
	s.api.On("BucketExists", ctx, "radar").Return(true, nil).Once()

	assert.NoError(s.T(), s.client.EnsureBucket(ctx, "radar"))
	s.api.AssertNotCalled(s.T(), "MakeBucket", mock.Anything, mock.Anything, mock.Anything)
}

func (s *ClientTestSuite) TestEnsureBucket_Error() {
	ctx := context.Background()
	s.api.On("BucketExists", ctx, "radar").Return(false, assert.AnError).Once()
	err := s.client.EnsureBucket(ctx, "radar")
	assert.True(s.T(), errors.IsCode(err, errors.ErrCodeStorage))
}

func (s *ClientTestSuite) TestGet_NotFound() {
	s.client.open = func(context.Context, string, string) (io.ReadCloser, error) {
		return nil, minio.ErrorResponse{Code: "NoSuchKey"}
	}
	_, err := s.client.Get(context.Background(), "radar", "missing.csv")
	assert.True(s.T(), errors.IsCode(err, errors.ErrCodeArtifactNotFound))
}

func (s *ClientTestSuite) TestGet_OtherError() {
	s.client.open = func(context.Context, string, string) (io.ReadCloser, error) {
		return nil, assert.AnError
	}
	_, err := s.client.Get(context.Background(), "radar", "x.csv")
	assert.True(s.T(), errors.IsCode(err, errors.ErrCodeStorage))
}

func (s *ClientTestSuite) TestHealthCheck() {
	ctx := context.Background()
	s.api.On("ListBuckets", ctx).Return([]minio.BucketInfo{{Name: "radar"}}, nil).Once()
	assert.NoError(s.T(), s.client.HealthCheck(ctx))

	s.api.On("ListBuckets", ctx).Return(nil, assert.AnError).Once()
	err := s.client.HealthCheck(ctx)
	assert.True(s.T(), errors.IsCode(err, errors.ErrCodeServiceUnavailable))
}

func TestClientTestSuite(t *testing.T) {
	suite.Run(t, new(ClientTestSuite))
}
