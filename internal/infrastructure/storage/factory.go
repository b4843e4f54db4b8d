package storage

import (
	"context"

	"github.com/turtacn/OpportunityRadar/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/OpportunityRadar/internal/infrastructure/storage/local"
	"github.com/turtacn/OpportunityRadar/internal/infrastructure/storage/minio"
	"github.com/turtacn/OpportunityRadar/pkg/errors"
	"github.com/turtacn/OpportunityRadar/pkg/types/opportunity"
)

// InputSource loads the five input tables.
type InputSource interface {
	Load(ctx context.Context) (*opportunity.InputTables, error)
	Describe() string
}

// ArtifactSink writes the opportunity artifact.
type ArtifactSink interface {
	Write(ctx context.Context, rows opportunity.Opportunities) error
	Destination() string
}

// ArtifactReader reads the opportunity artifact.
type ArtifactReader interface {
	Read(ctx context.Context) (opportunity.Opportunities, error)
}

var errObjectStoreNotConfigured = errors.NewValidation("s3 location requires minio configuration")

// OpenSource returns the input source for loc.  objects may be nil when loc
// is local.
func OpenSource(loc Location, objects *minio.Client, logger logging.Logger) (InputSource, error) {
	if !loc.IsRemote() {
		return local.NewSource(loc.Path, logger), nil
	}
	if objects == nil {
		return nil, errObjectStoreNotConfigured
	}
	return minio.NewSource(objects, loc.Bucket, loc.Path), nil
}

// OpenSink returns the artifact sink for loc.
func OpenSink(loc Location, objects *minio.Client) (ArtifactSink, error) {
	if !loc.IsRemote() {
		return local.NewSink(loc.Path), nil
	}
	if objects == nil {
		return nil, errObjectStoreNotConfigured
	}
	if loc.Path == "" {
		return nil, errors.NewValidation("s3 destination lacks an object key").WithDetail(loc.String())
	}
	return minio.NewSink(objects, loc.Bucket, loc.Path), nil
}

// OpenArtifact returns a reader for the artifact at loc.
func OpenArtifact(loc Location, objects *minio.Client) (ArtifactReader, error) {
	if !loc.IsRemote() {
		return local.NewArtifactReader(loc.Path), nil
	}
	if objects == nil {
		return nil, errObjectStoreNotConfigured
	}
	return minio.NewArtifactReader(objects, loc.Bucket, loc.Path), nil
}
