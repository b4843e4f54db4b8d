package minio

import (
	"bytes"
	"context"
	"path"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/turtacn/OpportunityRadar/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/OpportunityRadar/internal/infrastructure/tabular"
	"github.com/turtacn/OpportunityRadar/pkg/errors"
	"github.com/turtacn/OpportunityRadar/pkg/types/opportunity"
)

const csvContentType = "text/csv"

func objectKey(prefix, name string) string {
	return strings.TrimPrefix(path.Join(prefix, name), "/")
}

// Source loads the five input tables from bucket/prefix.
type Source struct {
	client *Client
	bucket string
	prefix string
}

// NewSource returns a Source over bucket and key prefix.
func NewSource(client *Client, bucket, prefix string) *Source {
	return &Source{client: client, bucket: bucket, prefix: prefix}
}

// Describe returns the s3:// address of the input prefix.
func (s *Source) Describe() string {
	return "s3://" + s.bucket + "/" + s.prefix
}

// Load fetches and decodes every input object concurrently.
func (s *Source) Load(ctx context.Context) (*opportunity.InputTables, error) {
	decoded := make([]opportunity.InputTables, len(tabular.InputFiles))
	g, ctx := errgroup.WithContext(ctx)
	for i, name := range tabular.InputFiles {
		i, name := i, name
		g.Go(func() error {
			key := objectKey(s.prefix, name)
			data, err := s.client.Get(ctx, s.bucket, key)
			if err != nil {
				if errors.IsCode(err, errors.ErrCodeArtifactNotFound) {
					return errors.New(errors.ErrCodeInputUnavailable, "input object not found").WithCause(err).WithDetail(key)
				}
				return err
			}
			if err := tabular.Decode(name, bytes.NewReader(data), &decoded[i]); err != nil {
				return err
			}
			s.client.logger.Debug("input loaded", logging.String(logging.FieldTable, name), logging.String("key", key))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &opportunity.InputTables{
		Transactions: decoded[0].Transactions,
		Searches:     decoded[1].Searches,
		Reviews:      decoded[2].Reviews,
		Catalog:      decoded[3].Catalog,
		Competitors:  decoded[4].Competitors,
	}, nil
}

// Sink writes the artifact as a single object.
type Sink struct {
	client *Client
	bucket string
	key    string
}

// NewSink returns a Sink writing to bucket/key.
func NewSink(client *Client, bucket, key string) *Sink {
	return &Sink{client: client, bucket: bucket, key: key}
}

// Destination returns the s3:// address of the artifact.
func (s *Sink) Destination() string { return "s3://" + s.bucket + "/" + s.key }

// Write encodes rows in memory and uploads them in one PUT.
func (s *Sink) Write(ctx context.Context, rows opportunity.Opportunities) error {
	var buf bytes.Buffer
	if err := tabular.WriteOpportunities(&buf, rows); err != nil {
		return err
	}
	if err := s.client.Put(ctx, s.bucket, s.key, bytes.NewReader(buf.Bytes()), int64(buf.Len()), csvContentType); err != nil {
		return errors.Wrap(err, errors.ErrCodeOutputWriteFailed, "upload artifact")
	}
	return nil
}

// ArtifactReader reads the artifact object.
type ArtifactReader struct {
	client *Client
	bucket string
	key    string
}

// NewArtifactReader returns a reader for bucket/key.
func NewArtifactReader(client *Client, bucket, key string) *ArtifactReader {
	return &ArtifactReader{client: client, bucket: bucket, key: key}
}

// Read downloads and decodes the artifact.
func (r *ArtifactReader) Read(ctx context.Context) (opportunity.Opportunities, error) {
	data, err := r.client.Get(ctx, r.bucket, r.key)
	if err != nil {
		return nil, err
	}
	return tabular.ReadOpportunities(bytes.NewReader(data))
}
