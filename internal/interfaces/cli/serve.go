package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/turtacn/OpportunityRadar/internal/application/snapshot"
	"github.com/turtacn/OpportunityRadar/internal/config"
	"github.com/turtacn/OpportunityRadar/internal/infrastructure/database/postgres"
	"github.com/turtacn/OpportunityRadar/internal/infrastructure/database/redis"
	"github.com/turtacn/OpportunityRadar/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/OpportunityRadar/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/OpportunityRadar/internal/infrastructure/storage"
	apihttp "github.com/turtacn/OpportunityRadar/internal/interfaces/http"
	"github.com/turtacn/OpportunityRadar/internal/interfaces/http/handlers"
	"github.com/turtacn/OpportunityRadar/internal/interfaces/http/middleware"
)

type serveOptions struct {
	Addr string
	// onListen observes the bound address; tests use it with port 0.
	onListen func(addr string)
}

// NewServeCmd creates the "serve" command.
func NewServeCmd() *cobra.Command {
	opts := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the opportunity table over HTTP",
		Long: "Loads the latest opportunity table from the artifact, Redis or PostgreSQL\n" +
			"(server.snapshot_source) and serves it read-only.  The table reloads when\n" +
			"the artifact changes, on server.reload_interval, or on run-completed events.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, cliCtx, opts)
		},
	}
	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (default: server.addr)")
	return cmd
}

func runServer(ctx context.Context, cliCtx *CLIContext, opts *serveOptions) error {
	cfg := cliCtx.Config
	logger := cliCtx.Logger

	comps := newComponents(cfg, logger)
	defer comps.Close()

	collector, metrics, err := comps.Metrics()
	if err != nil {
		return err
	}

	src, err := openSnapshotSource(ctx, comps)
	if err != nil {
		return err
	}
	store := snapshot.NewStore(src.reader, src.name,
		snapshot.WithLogger(logger),
		snapshot.WithObserver(metrics))
	if _, err := store.Reload(ctx); err != nil {
		logger.Warn("initial snapshot load failed; serving not-ready until the next reload",
			logging.String("source", src.name))
	}

	checkers := append([]handlers.HealthChecker{handlers.CheckFunc{
		ComponentName: "snapshot",
		Fn: func(context.Context) error {
			_, err := store.Current()
			return err
		},
	}}, src.checkers...)

	cors := middleware.DefaultCORSConfig()
	cors.AllowedOrigins = cfg.Server.CORSOrigins
	router := apihttp.NewRouter(apihttp.RouterConfig{
		OpportunityHandler: handlers.NewOpportunityHandler(store, logger, cfg.Server.DefaultLimit, cfg.Server.MaxLimit),
		HealthHandler:      handlers.NewHealthHandler(Version, checkers...),
		Mode:               cfg.Server.Mode,
		CORS:               &cors,
		Logging:            middleware.DefaultLoggingConfig(),
		Logger:             logger,
		Metrics:            metrics,
		MetricsHandler:     collector.Handler(),
	})

	addr := cfg.Server.Addr
	if opts.Addr != "" {
		addr = opts.Addr
	}
	server := apihttp.NewServer(apihttp.ServerConfig{
		Addr:            addr,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, router, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(server.Start)
	g.Go(func() error {
		<-gctx.Done()
		return server.Stop(context.Background())
	})
	if src.watchPath != "" {
		g.Go(func() error {
			if err := store.WatchFile(gctx, src.watchPath, snapshot.DefaultDebounce); err != nil {
				logger.Warn("artifact watch disabled", logging.Err(err))
			}
			return nil
		})
	}
	if cfg.Server.ReloadInterval > 0 {
		g.Go(func() error {
			store.Poll(gctx, cfg.Server.ReloadInterval)
			return nil
		})
	}
	if cfg.Kafka.Enabled() {
		consumer, err := kafka.NewConsumer(serveConsumerConfig(cfg.Kafka), logger)
		if err != nil {
			return err
		}
		defer consumer.Close()
		g.Go(func() error { return consumer.Run(gctx, reloadOnRunCompleted(store, logger)) })
	}
	if cliCtx.ConfigPath != "" {
		g.Go(func() error {
			return config.Watch(gctx, cliCtx.ConfigPath, logger, func(*config.Config) {
				logger.Info("configuration changed; reloading snapshot, restart to apply server settings")
				_, _ = store.Reload(gctx)
			})
		})
	}
	if opts.onListen != nil {
		g.Go(func() error {
			select {
			case <-server.Ready():
				opts.onListen(server.Addr())
			case <-gctx.Done():
			}
			return nil
		})
	}

	logger.Info("read API starting",
		logging.String("addr", addr),
		logging.String("snapshot_source", src.name))
	return g.Wait()
}

// snapshotSource is the backend the read API loads from.
type snapshotSource struct {
	name      string
	reader    snapshot.Reader
	watchPath string
	checkers  []handlers.HealthChecker
}

func openSnapshotSource(ctx context.Context, comps *components) (*snapshotSource, error) {
	cfg := comps.cfg
	switch cfg.Server.SnapshotSource {
	case config.SnapshotSourceRedis:
		client, err := comps.Redis()
		if err != nil {
			return nil, err
		}
		return &snapshotSource{
			name:     config.SnapshotSourceRedis,
			reader:   redis.NewSnapshotReader(client),
			checkers: []handlers.HealthChecker{handlers.CheckFunc{ComponentName: "redis", Fn: client.HealthCheck}},
		}, nil
	case config.SnapshotSourcePostgres:
		pool, err := comps.Postgres(ctx)
		if err != nil {
			return nil, err
		}
		return &snapshotSource{
			name:     config.SnapshotSourcePostgres,
			reader:   postgres.NewLatestReader(pool),
			checkers: []handlers.HealthChecker{handlers.CheckFunc{ComponentName: "postgres", Fn: pool.HealthCheck}},
		}, nil
	}

	loc, err := storage.ParseLocation(cfg.Output.Destination)
	if err != nil {
		return nil, err
	}
	objects, err := comps.ObjectStore()
	if err != nil {
		return nil, err
	}
	reader, err := storage.OpenArtifact(loc, objects)
	if err != nil {
		return nil, err
	}
	src := &snapshotSource{name: loc.String(), reader: reader}
	if loc.IsRemote() {
		src.checkers = append(src.checkers, handlers.CheckFunc{ComponentName: "minio", Fn: objects.HealthCheck})
	} else {
		src.watchPath = loc.Path
	}
	return src, nil
}

// serveConsumerConfig gives each serving process its own consumer group so
// every replica sees every run-completed event.
func serveConsumerConfig(cfg kafka.Config) kafka.Config {
	if cfg.GroupID == "" {
		cfg.GroupID = kafka.DefaultGroupID
	}
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "local"
	}
	cfg.GroupID += "-serve-" + host
	return cfg
}

func reloadOnRunCompleted(store *snapshot.Store, logger logging.Logger) kafka.EnvelopeHandler {
	return func(ctx context.Context, env *kafka.EventEnvelope) error {
		if env.EventType != kafka.EventTypeRunCompleted {
			return nil
		}
		var payload kafka.RunCompletedPayload
		if err := env.DecodePayload(&payload); err != nil {
			return err
		}
		logger.Info("run completed event received",
			logging.String("run_id", payload.RunID),
			logging.Int("categories", payload.Categories))
		_, err := store.Reload(ctx)
		return err
	}
}
