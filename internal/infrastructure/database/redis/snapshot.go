package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/turtacn/OpportunityRadar/internal/application/pipeline"
	"github.com/turtacn/OpportunityRadar/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/OpportunityRadar/pkg/errors"
	"github.com/turtacn/OpportunityRadar/pkg/types/opportunity"
)

// PublisherName identifies the Redis publisher in run results.
const PublisherName = "redis"

// Key names below the configured prefix.
const (
	KeyLatest = "latest"
	KeyScores = "scores"
	keyRun    = "run:"
)

// Snapshot is the JSON document stored per run.
type Snapshot struct {
	RunID         string                    `json:"run_id"`
	FinishedAt    time.Time                 `json:"finished_at"`
	Destination   string                    `json:"destination"`
	Opportunities opportunity.Opportunities `json:"opportunities"`
}

// SnapshotPublisher caches each run's ranking for low-latency readers.
//
// It writes three keys in one MULTI/EXEC: the latest snapshot, a per-run
// snapshot that expires after SnapshotTTL, and a sorted set of category
// scores.
type SnapshotPublisher struct {
	client *Client
	logger logging.Logger
}

// NewSnapshotPublisher returns a publisher backed by client.
func NewSnapshotPublisher(client *Client) *SnapshotPublisher {
	return &SnapshotPublisher{client: client, logger: client.logger}
}

// Name implements pipeline.Publisher.
func (p *SnapshotPublisher) Name() string { return PublisherName }

// Publish implements pipeline.Publisher.
func (p *SnapshotPublisher) Publish(ctx context.Context, result *pipeline.RunResult) error {
	if result == nil {
		return errors.NewValidation("nil run result")
	}
	rdb, err := p.client.Underlying()
	if err != nil {
		return errors.Wrap(err, errors.ErrCodePublishFailed, "redis publish failed")
	}
	data, err := json.Marshal(Snapshot{
		RunID:         result.RunID,
		FinishedAt:    result.FinishedAt,
		Destination:   result.Destination,
		Opportunities: result.Opportunities,
	})
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "encode snapshot")
	}

	scoresKey := p.client.Key(KeyScores)
	members := make([]redis.Z, 0, len(result.Opportunities))
	for _, o := range result.Opportunities {
		members = append(members, redis.Z{Score: o.OpportunityScore, Member: o.Category})
	}

	_, err = rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, p.client.Key(KeyLatest), data, 0)
		pipe.Set(ctx, p.client.Key(keyRun+result.RunID), data, p.client.config.SnapshotTTL)
		pipe.Del(ctx, scoresKey)
		if len(members) > 0 {
			pipe.ZAdd(ctx, scoresKey, members...)
		}
		return nil
	})
	if err != nil {
		return errors.Wrap(err, errors.ErrCodePublishFailed, "redis publish failed")
	}
	p.logger.Debug("snapshot cached",
		logging.String(logging.FieldRunID, result.RunID),
		logging.Int(logging.FieldRows, len(result.Opportunities)),
	)
	return nil
}

// SnapshotReader reads cached snapshots.
type SnapshotReader struct {
	client *Client
}

// NewSnapshotReader returns a reader backed by client.
func NewSnapshotReader(client *Client) *SnapshotReader {
	return &SnapshotReader{client: client}
}

// Read returns the latest cached ranking.
func (r *SnapshotReader) Read(ctx context.Context) (opportunity.Opportunities, error) {
	snap, err := r.load(ctx, r.client.Key(KeyLatest))
	if err != nil {
		return nil, err
	}
	return snap.Opportunities, nil
}

// Run returns the snapshot of a specific run while it has not expired.
func (r *SnapshotReader) Run(ctx context.Context, runID string) (*Snapshot, error) {
	return r.load(ctx, r.client.Key(keyRun+runID))
}

// TopCategories returns up to n categories by descending score.
func (r *SnapshotReader) TopCategories(ctx context.Context, n int64) ([]redis.Z, error) {
	rdb, err := r.client.Underlying()
	if err != nil {
		return nil, err
	}
	members, err := rdb.ZRevRangeWithScores(ctx, r.client.Key(KeyScores), 0, n-1).Result()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeCacheError, "read scores")
	}
	return members, nil
}

func (r *SnapshotReader) load(ctx context.Context, key string) (*Snapshot, error) {
	rdb, err := r.client.Underlying()
	if err != nil {
		return nil, err
	}
	data, err := rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, errors.New(errors.ErrCodeArtifactNotFound, "snapshot not cached").WithDetail(key)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeCacheError, "read snapshot")
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "decode snapshot")
	}
	return &snap, nil
}
