package snapshot

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/turtacn/OpportunityRadar/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/OpportunityRadar/pkg/errors"
)

// DefaultDebounce groups the events of one atomic artifact replacement.
const DefaultDebounce = 250 * time.Millisecond

// WatchFile reloads the store whenever the artifact at path is written or
// renamed into place.  The parent directory is watched because the artifact
// sink replaces the file by rename.  WatchFile blocks until ctx is done.
func (s *Store) WatchFile(ctx context.Context, path string, debounce time.Duration) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to create artifact watcher")
	}
	defer watcher.Close()

	target := filepath.Clean(path)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to watch artifact directory")
	}
	s.logger.Info("watching artifact", logging.String("path", target))

	var (
		timer   *time.Timer
		timerCh <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target || !ev.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			timerCh = timer.C
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("artifact watcher error", logging.Err(err))
		case <-timerCh:
			timerCh = nil
			_, _ = s.Reload(ctx)
		}
	}
}

// Poll reloads the store every interval until ctx is done.
func (s *Store) Poll(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = s.Reload(ctx)
		}
	}
}
