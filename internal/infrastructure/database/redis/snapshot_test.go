package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/turtacn/OpportunityRadar/internal/application/pipeline"
	"github.com/turtacn/OpportunityRadar/pkg/errors"
	"github.com/turtacn/OpportunityRadar/pkg/types/opportunity"
)

type SnapshotTestSuite struct {
	suite.Suite
	ctx    context.Context
	client *Client
	mr     *miniredis.Miniredis
	pub    *SnapshotPublisher
	reader *SnapshotReader
}

func (s *SnapshotTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.client, s.mr = newTestClient(s.T())
	s.pub = NewSnapshotPublisher(s.client)
	s.reader = NewSnapshotReader(s.client)
}

func result(runID string, rows ...opportunity.CategoryOpportunity) *pipeline.RunResult {
	return &pipeline.RunResult{
		RunID:         runID,
		FinishedAt:    time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Destination:   "data/opportunities.csv",
		Opportunities: rows,
	}
}

func (s *SnapshotTestSuite) TestPublish_WritesLatestRunAndScores() {
	price := 0.5
	res := result("run-1",
		opportunity.CategoryOpportunity{Category: "Wearables", SearchVolume: 2, PriceSensitivity: &price, OpportunityScore: 1},
		opportunity.CategoryOpportunity{Category: "Home", SearchVolume: 2, OpportunityScore: 0.275},
	)
	assert.Equal(s.T(), "redis", s.pub.Name())
	require.NoError(s.T(), s.pub.Publish(s.ctx, res))

	latest, err := s.reader.Read(s.ctx)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), res.Opportunities, latest)

	snap, err := s.reader.Run(s.ctx, "run-1")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "data/opportunities.csv", snap.Destination)
	assert.True(s.T(), res.FinishedAt.Equal(snap.FinishedAt))
	assert.Equal(s.T(), 7*24*time.Hour, s.mr.TTL("radar:run:run-1"))
	assert.Zero(s.T(), s.mr.TTL("radar:latest"))

	top, err := s.reader.TopCategories(s.ctx, 1)
	require.NoError(s.T(), err)
	require.Len(s.T(), top, 1)
	assert.Equal(s.T(), "Wearables", top[0].Member)
}

func (s *SnapshotTestSuite) TestPublish_ReplacesScores() {
	require.NoError(s.T(), s.pub.Publish(s.ctx, result("run-1",
		opportunity.CategoryOpportunity{Category: "Kitchen", OpportunityScore: 0.3})))
	require.NoError(s.T(), s.pub.Publish(s.ctx, result("run-2",
		opportunity.CategoryOpportunity{Category: "Pets", OpportunityScore: 0.9})))

	top, err := s.reader.TopCategories(s.ctx, 10)
	require.NoError(s.T(), err)
	require.Len(s.T(), top, 1)
	assert.Equal(s.T(), "Pets", top[0].Member)

	_, err = s.reader.Run(s.ctx, "run-1")
	assert.NoError(s.T(), err, "older runs stay readable until they expire")
}

func (s *SnapshotTestSuite) TestPublish_EmptyRunClearsScores() {
	require.NoError(s.T(), s.pub.Publish(s.ctx, result("run-1",
		opportunity.CategoryOpportunity{Category: "Kitchen", OpportunityScore: 0.3})))
	require.NoError(s.T(), s.pub.Publish(s.ctx, result("run-2")))

	assert.False(s.T(), s.mr.Exists("radar:scores"))
	latest, err := s.reader.Read(s.ctx)
	require.NoError(s.T(), err)
	assert.Empty(s.T(), latest)
}

func (s *SnapshotTestSuite) TestRead_NotCached() {
	_, err := s.reader.Read(s.ctx)
	assert.True(s.T(), errors.IsCode(err, errors.ErrCodeArtifactNotFound))
}

func (s *SnapshotTestSuite) TestRead_CorruptSnapshot() {
	require.NoError(s.T(), s.mr.Set("radar:latest", "{not json"))
	_, err := s.reader.Read(s.ctx)
	assert.True(s.T(), errors.IsCode(err, errors.ErrCodeSerialization))
}

func (s *SnapshotTestSuite) TestPublish_ServerDown() {
	s.mr.Close()
	err := s.pub.Publish(s.ctx, result("run-1"))
	assert.True(s.T(), errors.IsCode(err, errors.ErrCodePublishFailed))
}

func (s *SnapshotTestSuite) TestPublish_NilResult() {
	assert.True(s.T(), errors.IsCode(s.pub.Publish(s.ctx, nil), errors.ErrCodeValidation))
}

func TestSnapshotTestSuite(t *testing.T) {
	suite.Run(t, new(SnapshotTestSuite))
}
