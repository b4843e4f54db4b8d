package minio

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/turtacn/OpportunityRadar/internal/infrastructure/tabular"
	"github.com/turtacn/OpportunityRadar/pkg/errors"
	"github.com/turtacn/OpportunityRadar/pkg/types/opportunity"
)

// memoryObjects serves Client.open from an in-memory bucket.
type memoryObjects struct {
	mu      sync.Mutex
	objects map[string]string
	opened  []string
}

func (m *memoryObjects) open(_ context.Context, bucket, key string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.opened = append(m.opened, bucket+"/"+key)
	body, ok := m.objects[bucket+"/"+key]
	if !ok {
		return nil, minio.ErrorResponse{Code: "NoSuchKey"}
	}
	return io.NopCloser(strings.NewReader(body)), nil
}

type RepositoryTestSuite struct {
	suite.Suite
	api    *MockMinIOAPI
	client *Client
	store  *memoryObjects
}

func (s *RepositoryTestSuite) SetupTest() {
	s.api = new(MockMinIOAPI)
	s.client = newClientWithAPI(s.api, Config{}, nil)
	s.store = &memoryObjects{objects: map[string]string{
		"radar/in/" + tabular.FileTransactions: "product_id,discount_pct,units\nW1,0,2\n",
		"radar/in/" + tabular.FileSearchLogs:   "query,results_found,clicks,added_to_cart\nsmart watch,0,0,0\n",
		"radar/in/" + tabular.FileReviews:      "product_id,rating,review_text\nW1,5,great\n",
		"radar/in/" + tabular.FileCatalog:      "product_id,category,name,features\nW1,Wearables,Watch,gps\n",
		"radar/in/" + tabular.FileCompetitors:  "category,key_features\nWearables,ecg\n",
	}}
	s.client.open = s.store.open
}

func (s *RepositoryTestSuite) TestSource_Load() {
	src := NewSource(s.client, "radar", "in")
	assert.Equal(s.T(), "s3://radar/in", src.Describe())

	tables, err := src.Load(context.Background())
	require.NoError(s.T(), err)
	assert.Len(s.T(), tables.Transactions, 1)
	assert.Len(s.T(), tables.Searches, 1)
	assert.Len(s.T(), tables.Reviews, 1)
	assert.Len(s.T(), tables.Catalog, 1)
	assert.Equal(s.T(), "ecg", tables.Competitors[0].KeyFeatures)
	assert.Len(s.T(), s.store.opened, len(tabular.InputFiles))
}

func (s *RepositoryTestSuite) TestSource_MissingObject() {
	delete(s.store.objects, "radar/in/"+tabular.FileCatalog)
	_, err := NewSource(s.client, "radar", "in").Load(context.Background())
	assert.True(s.T(), errors.IsCode(err, errors.ErrCodeInputUnavailable))
}

func (s *RepositoryTestSuite) TestSink_WriteUploadsOneObject() {
	ctx := context.Background()
	var uploaded []byte
	s.api.On("PutObject", ctx, "radar", "out/opportunities.csv", mock.Anything, mock.AnythingOfType("int64"),
		minio.PutObjectOptions{ContentType: csvContentType}).
		Run(func(args mock.Arguments) {
			data, _ := io.ReadAll(args.Get(3).(io.Reader))
			uploaded = data
		}).
		Return(minio.UploadInfo{Size: 10}, nil).Once()

	sink := NewSink(s.client, "radar", "out/opportunities.csv")
	assert.Equal(s.T(), "s3://radar/out/opportunities.csv", sink.Destination())

	rows := opportunity.Opportunities{{Category: "Pets", SearchVolume: 3, OpportunityScore: 0.2}}
	require.NoError(s.T(), sink.Write(ctx, rows))
	s.api.AssertExpectations(s.T())

	back, err := tabular.ReadOpportunities(bytes.NewReader(uploaded))
	require.NoError(s.T(), err)
	assert.Equal(s.T(), rows, back)
}

func (s *RepositoryTestSuite) TestSink_CreatesBucketWhenConfigured() {
	ctx := context.Background()
	s.client.config.CreateBucket = true
	s.api.On("BucketExists", ctx, "radar").Return(false, nil).Once()
	s.api.On("MakeBucket", ctx, "radar", mock.Anything).Return(nil).Once()
	s.api.On("PutObject", ctx, "radar", "o.csv", mock.Anything, mock.Anything, mock.Anything).
		Return(minio.UploadInfo{}, nil).Once()

	require.NoError(s.T(), NewSink(s.client, "radar", "o.csv").Write(ctx, nil))
	s.api.AssertExpectations(s.T())
}

func (s *RepositoryTestSuite) TestSink_UploadFailure() {
	ctx := context.Background()
	s.api.On("PutObject", ctx, "radar", "o.csv", mock.Anything, mock.Anything, mock.Anything).
		Return(minio.UploadInfo{}, assert.AnError).Once()

	err := NewSink(s.client, "radar", "o.csv").Write(ctx, nil)
	assert.True(s.T(), errors.IsCode(err, errors.ErrCodeOutputWriteFailed))
}

func (s *RepositoryTestSuite) TestArtifactReader() {
	s.store.objects["radar/out/opportunities.csv"] = strings.Join(opportunity.OutputColumns, ",") + "\nHome,2,0.5,,,,0.275,\n"
	rows, err := NewArtifactReader(s.client, "radar", "out/opportunities.csv").Read(context.Background())
	require.NoError(s.T(), err)
	require.Len(s.T(), rows, 1)
	assert.Equal(s.T(), "Home", rows[0].Category)
	assert.InDelta(s.T(), 0.275, rows[0].OpportunityScore, 1e-12)

	_, err = NewArtifactReader(s.client, "radar", "nope.csv").Read(context.Background())
	assert.True(s.T(), errors.IsCode(err, errors.ErrCodeArtifactNotFound))
}

func TestObjectKey(t *testing.T) {
	assert.Equal(t, "reviews.csv", objectKey("", "reviews.csv"))
	assert.Equal(t, "in/reviews.csv", objectKey("in", "reviews.csv"))
	assert.Equal(t, "a/b/reviews.csv", objectKey("/a/b/", "reviews.csv"))
}

func TestRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(RepositoryTestSuite))
}
