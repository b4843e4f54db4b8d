package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/OpportunityRadar/internal/infrastructure/storage/local"
	"github.com/turtacn/OpportunityRadar/pkg/errors"
)

func TestParseLocation(t *testing.T) {
	tests := []struct {
		raw  string
		want Location
	}{
		{"data", Location{Scheme: SchemeFile, Path: "data"}},
		{"./data/", Location{Scheme: SchemeFile, Path: "data"}},
		{"file:///tmp/in", Location{Scheme: SchemeFile, Path: "/tmp/in"}},
		{"s3://radar", Location{Scheme: SchemeS3, Bucket: "radar"}},
		{"s3://radar/in/", Location{Scheme: SchemeS3, Bucket: "radar", Path: "in"}},
		{"s3://radar/out/opportunities.csv", Location{Scheme: SchemeS3, Bucket: "radar", Path: "out/opportunities.csv"}},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseLocation(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseLocation_Invalid(t *testing.T) {
	for _, raw := range []string{"", "  ", "s3://", "s3:///key", "gs://bucket/x"} {
		_, err := ParseLocation(raw)
		assert.True(t, errors.IsCode(err, errors.ErrCodeValidation), raw)
	}
}

func TestLocation_JoinAndString(t *testing.T) {
	s3, _ := ParseLocation("s3://radar/in")
	assert.Equal(t, "s3://radar/in/reviews.csv", s3.Join("reviews.csv").String())
	assert.True(t, s3.IsRemote())

	root, _ := ParseLocation("s3://radar")
	assert.Equal(t, "s3://radar", root.String())
	assert.Equal(t, "s3://radar/reviews.csv", root.Join("reviews.csv").String())

	dir, _ := ParseLocation("data")
	assert.Equal(t, filepath.Join("data", "reviews.csv"), dir.Join("reviews.csv").String())
	assert.False(t, dir.IsRemote())
}

func TestOpen_Local(t *testing.T) {
	loc, _ := ParseLocation("data")
	src, err := OpenSource(loc, nil, nil)
	require.NoError(t, err)
	assert.IsType(t, &local.Source{}, src)

	sink, err := OpenSink(loc.Join("opportunities.csv"), nil)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("data", "opportunities.csv"), sink.Destination())

	reader, err := OpenArtifact(loc.Join("opportunities.csv"), nil)
	require.NoError(t, err)
	assert.IsType(t, &local.ArtifactReader{}, reader)
}

func TestOpen_RemoteWithoutClient(t *testing.T) {
	loc, _ := ParseLocation("s3://radar/in")
	_, err := OpenSource(loc, nil, nil)
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))
	_, err = OpenSink(loc, nil)
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))
	_, err = OpenArtifact(loc, nil)
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))
}
