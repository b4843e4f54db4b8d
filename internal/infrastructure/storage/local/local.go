// Package local reads input tables from a directory and writes the artifact
// to the local filesystem.
package local

import (
	"bytes"
	"context"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/turtacn/OpportunityRadar/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/OpportunityRadar/internal/infrastructure/tabular"
	"github.com/turtacn/OpportunityRadar/pkg/errors"
	"github.com/turtacn/OpportunityRadar/pkg/types/opportunity"
)

// Source loads the five input tables from a directory.
type Source struct {
	dir    string
	logger logging.Logger
}

// NewSource returns a Source reading from dir.
func NewSource(dir string, logger logging.Logger) *Source {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Source{dir: dir, logger: logger}
}

// Describe returns the input directory.
func (s *Source) Describe() string { return s.dir }

// Load decodes all input files concurrently.  The first failure cancels the
// remaining reads and is returned.
func (s *Source) Load(ctx context.Context) (*opportunity.InputTables, error) {
	tables := &opportunity.InputTables{}
	decoded := make([]opportunity.InputTables, len(tabular.InputFiles))

	g, ctx := errgroup.WithContext(ctx)
	for i, name := range tabular.InputFiles {
		i, name := i, name
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			p := filepath.Join(s.dir, name)
			f, err := os.Open(p)
			if err != nil {
				return errors.New(errors.ErrCodeInputUnavailable, "open input").WithCause(err).WithDetail(p)
			}
			defer f.Close()
			if err := tabular.Decode(name, f, &decoded[i]); err != nil {
				return err
			}
			s.logger.Debug("input loaded", logging.String(logging.FieldTable, name))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	for _, d := range decoded {
		merge(tables, d)
	}
	return tables, nil
}

func merge(dst *opportunity.InputTables, src opportunity.InputTables) {
	dst.Transactions = append(dst.Transactions, src.Transactions...)
	dst.Searches = append(dst.Searches, src.Searches...)
	dst.Reviews = append(dst.Reviews, src.Reviews...)
	dst.Catalog = append(dst.Catalog, src.Catalog...)
	dst.Competitors = append(dst.Competitors, src.Competitors...)
}

// Sink writes the artifact to a file path, replacing it atomically.
type Sink struct {
	path string
}

// NewSink returns a Sink writing to path.
func NewSink(path string) *Sink { return &Sink{path: path} }

// Destination returns the artifact path.
func (s *Sink) Destination() string { return s.path }

// Write encodes rows to a temporary file beside the destination and renames
// it into place, so readers see either the old artifact or the new one.
func (s *Sink) Write(ctx context.Context, rows opportunity.Opportunities) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeOutputWriteFailed, "write cancelled")
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.New(errors.ErrCodeOutputWriteFailed, "create output directory").WithCause(err).WithDetail(dir)
	}

	var buf bytes.Buffer
	if err := tabular.WriteOpportunities(&buf, rows); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return errors.New(errors.ErrCodeOutputWriteFailed, "create temp file").WithCause(err).WithDetail(dir)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		cleanup()
		return errors.Wrap(err, errors.ErrCodeOutputWriteFailed, "write temp file")
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return errors.Wrap(err, errors.ErrCodeOutputWriteFailed, "sync temp file")
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return errors.Wrap(err, errors.ErrCodeOutputWriteFailed, "close temp file")
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		cleanup()
		return errors.Wrap(err, errors.ErrCodeOutputWriteFailed, "chmod temp file")
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		cleanup()
		return errors.New(errors.ErrCodeOutputWriteFailed, "replace artifact").WithCause(err).WithDetail(s.path)
	}
	return nil
}

// ArtifactReader reads a previously written artifact from disk.
type ArtifactReader struct {
	path string
}

// NewArtifactReader returns a reader for the artifact at path.
func NewArtifactReader(path string) *ArtifactReader { return &ArtifactReader{path: path} }

// Path returns the artifact path.
func (r *ArtifactReader) Path() string { return r.path }

// Read decodes the artifact.  A missing file is ErrCodeArtifactNotFound.
func (r *ArtifactReader) Read(ctx context.Context) (opportunity.Opportunities, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(errors.ErrCodeArtifactNotFound, "opportunity artifact not found").WithDetail(r.path)
		}
		return nil, errors.Wrap(err, errors.ErrCodeInputUnavailable, "open artifact")
	}
	defer f.Close()
	return tabular.ReadOpportunities(f)
}
