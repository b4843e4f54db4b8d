// Package storage resolves input and output locations to the local filesystem
// or an S3-compatible object store.
package storage

import (
	"path"
	"path/filepath"
	"strings"

	"github.com/turtacn/OpportunityRadar/pkg/errors"
)

// Location schemes.
const (
	SchemeFile = "file"
	SchemeS3   = "s3"
)

// Location is a parsed input directory or output artifact address.
//
// For SchemeFile, Path is a filesystem path.  For SchemeS3, Bucket names the
// bucket and Path is the object key or key prefix without a leading slash.
type Location struct {
	Scheme string
	Bucket string
	Path   string
}

// ParseLocation accepts a local path, a file:// URL or s3://bucket/key.
func ParseLocation(raw string) (Location, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Location{}, errors.NewValidation("location must not be empty")
	}
	switch {
	case strings.HasPrefix(raw, "s3://"):
		rest := strings.TrimPrefix(raw, "s3://")
		bucket, key, _ := strings.Cut(rest, "/")
		if bucket == "" {
			return Location{}, errors.NewValidation("s3 location lacks a bucket").WithDetail(raw)
		}
		return Location{Scheme: SchemeS3, Bucket: bucket, Path: strings.Trim(key, "/")}, nil
	case strings.HasPrefix(raw, "file://"):
		return Location{Scheme: SchemeFile, Path: filepath.Clean(strings.TrimPrefix(raw, "file://"))}, nil
	case strings.Contains(raw, "://"):
		return Location{}, errors.NewValidation("unsupported location scheme").WithDetail(raw)
	}
	return Location{Scheme: SchemeFile, Path: filepath.Clean(raw)}, nil
}

// Join returns the location of name inside l.
func (l Location) Join(name string) Location {
	if l.Scheme == SchemeS3 {
		return Location{Scheme: SchemeS3, Bucket: l.Bucket, Path: strings.TrimPrefix(path.Join(l.Path, name), "/")}
	}
	return Location{Scheme: l.Scheme, Path: filepath.Join(l.Path, name)}
}

// IsRemote reports whether l addresses an object store.
func (l Location) IsRemote() bool { return l.Scheme == SchemeS3 }

func (l Location) String() string {
	if l.Scheme == SchemeS3 {
		if l.Path == "" {
			return "s3://" + l.Bucket
		}
		return "s3://" + l.Bucket + "/" + l.Path
	}
	return l.Path
}
