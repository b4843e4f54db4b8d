// Package snapshot keeps the latest opportunity table in memory for the read
// API and reloads it when the underlying artifact changes.
package snapshot

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/turtacn/OpportunityRadar/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/OpportunityRadar/pkg/errors"
	"github.com/turtacn/OpportunityRadar/pkg/types/opportunity"
)

// Reader loads the current opportunity table from a backing store.
type Reader interface {
	Read(ctx context.Context) (opportunity.Opportunities, error)
}

// ReloadObserver is notified of every reload attempt.
type ReloadObserver interface {
	ObserveSnapshotReload(err error)
}

// Snapshot is an immutable view of one loaded table.
type Snapshot struct {
	Opportunities opportunity.Opportunities `json:"opportunities"`
	LoadedAt      time.Time                 `json:"loaded_at"`
	Source        string                    `json:"source"`
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithObserver reports reloads to o.
func WithObserver(o ReloadObserver) Option {
	return func(s *Store) { s.observer = o }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Store serves the last successfully loaded snapshot.  Concurrent reloads
// share one read of the backing store.
type Store struct {
	reader   Reader
	source   string
	logger   logging.Logger
	observer ReloadObserver
	now      func() time.Time

	group   singleflight.Group
	mu      sync.RWMutex
	current *Snapshot
}

// NewStore returns an empty Store over reader.  source names the backing
// store in logs and responses.
func NewStore(reader Reader, source string, opts ...Option) *Store {
	s := &Store{
		reader: reader,
		source: source,
		logger: logging.NewNopLogger(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.Named("snapshot")
	return s
}

// Reload reads the backing store and swaps the snapshot in.  A failed reload
// keeps the previous snapshot.
func (s *Store) Reload(ctx context.Context) (*Snapshot, error) {
	v, err, shared := s.group.Do("reload", func() (interface{}, error) {
		rows, err := s.reader.Read(ctx)
		if s.observer != nil {
			s.observer.ObserveSnapshotReload(err)
		}
		if err != nil {
			return nil, err
		}
		if rows == nil {
			rows = opportunity.Opportunities{}
		}
		snap := &Snapshot{Opportunities: rows, LoadedAt: s.now(), Source: s.source}
		s.mu.Lock()
		s.current = snap
		s.mu.Unlock()
		return snap, nil
	})
	if err != nil {
		s.logger.Warn("snapshot reload failed", logging.String("source", s.source), logging.Err(err))
		return nil, err
	}
	snap := v.(*Snapshot)
	if !shared {
		s.logger.Info("snapshot reloaded",
			logging.String("source", s.source),
			logging.Int("categories", len(snap.Opportunities)))
	}
	return snap, nil
}

// Current returns the loaded snapshot or ErrCodeArtifactNotFound before the
// first successful reload.
func (s *Store) Current() (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil, errors.New(errors.ErrCodeArtifactNotFound, "no opportunity snapshot loaded").WithDetail(s.source)
	}
	return s.current, nil
}

// Ready reports whether a snapshot is loaded.
func (s *Store) Ready() bool {
	_, err := s.Current()
	return err == nil
}

// Top returns at most limit rows in rank order; limit <= 0 returns all rows.
func (s *Store) Top(limit int) (opportunity.Opportunities, error) {
	snap, err := s.Current()
	if err != nil {
		return nil, err
	}
	return snap.Opportunities.Top(limit), nil
}

// Find returns the row of category.  Category matching ignores case.
func (s *Store) Find(category string) (opportunity.CategoryOpportunity, error) {
	snap, err := s.Current()
	if err != nil {
		return opportunity.CategoryOpportunity{}, err
	}
	if row, ok := snap.Opportunities.Find(category); ok {
		return row, nil
	}
	for _, row := range snap.Opportunities {
		if strings.EqualFold(row.Category, category) {
			return row, nil
		}
	}
	return opportunity.CategoryOpportunity{}, errors.New(errors.ErrCodeCategoryNotFound, "category not found").WithDetail(category)
}
