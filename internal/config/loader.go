package config

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/turtacn/OpportunityRadar/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/OpportunityRadar/pkg/errors"
)

// envPrefix is the environment variable prefix of every setting.
const envPrefix = "RADAR"

// watchDebounce collapses the burst of events editors emit on save.
const watchDebounce = 200 * time.Millisecond

// newViper maps nested keys like "postgres.host" to RADAR_POSTGRES_HOST.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, value := range defaultValues() {
		v.SetDefault(key, value)
	}
	for _, key := range envKeys {
		_ = v.BindEnv(key)
	}
	return v
}

// Load reads the YAML file at configPath, merges RADAR_* overrides, applies
// defaults and validates the result.  An empty configPath loads from the
// environment only.
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		return LoadFromEnv()
	}
	v := newViper()
	v.SetConfigFile(configPath)
	if err := v.ReadInConfig(); err != nil {
		return nil, errors.New(errors.ErrCodeValidation, "config: failed to read config file").
			WithCause(err).WithDetail(configPath)
	}
	return unmarshalAndFinalize(v)
}

// LoadFromEnv builds a Config from RADAR_* variables and defaults only.
//
//	RADAR_<SECTION>_<FIELD>   e.g.  RADAR_POSTGRES_HOST, RADAR_KAFKA_BROKERS
func LoadFromEnv() (*Config, error) {
	return unmarshalAndFinalize(newViper())
}

func unmarshalAndFinalize(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeValidation, "config: failed to unmarshal configuration")
	}
	ApplyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// MustLoad panics on any error.  It is intended for main().
func MustLoad(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		panic("config: MustLoad failed: " + err.Error())
	}
	return cfg
}

// Watch reloads configPath whenever it changes on disk and passes each valid
// result to onChange.  Invalid revisions are logged and skipped.  Watch
// watches the parent directory so editors that replace the file by rename
// keep triggering reloads.  It blocks until ctx is cancelled.
func Watch(ctx context.Context, configPath string, logger logging.Logger, onChange func(*Config)) error {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "config: failed to create watcher")
	}
	defer watcher.Close()

	target := filepath.Clean(configPath)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "config: failed to watch config directory")
	}

	var (
		timer   *time.Timer
		timerCh <-chan time.Time
	)
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(watchDebounce)
			} else {
				timer.Reset(watchDebounce)
			}
			timerCh = timer.C
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("config watcher error", logging.Err(err))
		case <-timerCh:
			timerCh = nil
			cfg, err := Load(configPath)
			if err != nil {
				logger.Warn("ignoring invalid config revision", logging.String("path", configPath), logging.Err(err))
				continue
			}
			logger.Info("config reloaded", logging.String("path", configPath))
			onChange(cfg)
		}
	}
}
