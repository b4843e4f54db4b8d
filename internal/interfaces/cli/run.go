package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/turtacn/OpportunityRadar/internal/application/pipeline"
	"github.com/turtacn/OpportunityRadar/internal/infrastructure/database/redis"
	"github.com/turtacn/OpportunityRadar/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/OpportunityRadar/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/OpportunityRadar/internal/infrastructure/storage"
)

const metricsPushTimeout = 10 * time.Second

type runOptions struct {
	Input       string
	Destination string
	NoPublish   bool
}

// RunSummary is the JSON form of a finished run.
type RunSummary struct {
	RunID         string                  `json:"run_id"`
	Destination   string                  `json:"destination"`
	Categories    int                     `json:"categories"`
	TopCategory   string                  `json:"top_category,omitempty"`
	DurationMs    int64                   `json:"duration_ms"`
	PublishErrors []pipeline.PublishError `json:"publish_errors,omitempty"`
}

// NewRunCmd creates the "run" command.
func NewRunCmd() *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Compute the opportunity table and write the artifact",
		Long: "Reads the five input tables, ranks categories and writes the artifact\n" +
			"atomically.  Configured publishers (postgres, redis, kafka) then receive the result.",
		Example: "  radar run --input data --dest data/opportunities.csv\n" +
			"  radar run --input s3://radar/inputs --dest s3://radar/out/opportunities.csv",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.Input, "input", "i", "", "input directory or s3://bucket/prefix (default: input.location)")
	cmd.Flags().StringVarP(&opts.Destination, "dest", "d", "", "artifact path or s3://bucket/key (default: output.destination)")
	cmd.Flags().BoolVar(&opts.NoPublish, "no-publish", false, "skip postgres, redis and kafka publishers")
	return cmd
}

func runPipeline(cmd *cobra.Command, opts *runOptions) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}
	cfg := cliCtx.Config
	logger := cliCtx.Logger

	input := cfg.Input.Location
	if opts.Input != "" {
		input = opts.Input
	}
	dest := cfg.Output.Destination
	if opts.Destination != "" {
		dest = opts.Destination
	}
	inLoc, err := storage.ParseLocation(input)
	if err != nil {
		return err
	}
	outLoc, err := storage.ParseLocation(dest)
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(cmd, cfg.Pipeline.Timeout)
	defer cancel()

	comps := newComponents(cfg, logger)
	defer comps.Close()

	objects, err := comps.ObjectStore()
	if err != nil {
		return err
	}
	source, err := storage.OpenSource(inLoc, objects, logger)
	if err != nil {
		return err
	}
	sink, err := storage.OpenSink(outLoc, objects)
	if err != nil {
		return err
	}

	collector, metrics, err := comps.Metrics()
	if err != nil {
		return err
	}
	if cfg.Metrics.PushURL != "" {
		defer pushMetrics(collector, cliCtx)
	}

	var publishers []pipeline.Publisher
	if !opts.NoPublish {
		if publishers, err = comps.Publishers(ctx); err != nil {
			return err
		}
	}

	if cfg.Redis.Enabled() {
		client, err := comps.Redis()
		if err != nil {
			return err
		}
		lock := redis.NewMutex(client, redis.RunLockName, 0)
		if err := lock.TryLock(ctx); err != nil {
			return err
		}
		defer func() {
			if err := lock.Unlock(context.Background()); err != nil {
				logger.Warn("failed to release run lock", logging.Err(err))
			}
		}()
	}

	svc, err := pipeline.NewService(pipeline.Deps{
		Source:     source,
		Sink:       sink,
		Publishers: publishers,
		Metrics:    metrics,
		Logger:     logger,
		Options:    pipelineOptions(cfg.Pipeline),
	})
	if err != nil {
		return err
	}

	result, err := svc.Run(ctx)
	if err != nil {
		return err
	}

	for _, pe := range result.PublishErrors {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: publisher %s failed: %s\n", pe.Publisher, pe.Error)
	}
	if cliCtx.OutputFormat == "json" {
		return printJSON(cmd, RunSummary{
			RunID:         result.RunID,
			Destination:   result.Destination,
			Categories:    len(result.Opportunities),
			TopCategory:   result.TopCategory(),
			DurationMs:    result.Duration().Milliseconds(),
			PublishErrors: result.PublishErrors,
		})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Saved %s\n", result.Destination)
	return nil
}

// pushMetrics runs after success and failure alike so failed runs are
// visible on the gateway.
func pushMetrics(collector prometheus.MetricsCollector, cliCtx *CLIContext) {
	mc := cliCtx.Config.Metrics
	instance := mc.PushInstance
	if instance == "" {
		instance, _ = os.Hostname()
	}
	ctx, cancel := context.WithTimeout(context.Background(), metricsPushTimeout)
	defer cancel()
	if err := prometheus.NewPusher(mc.PushURL, mc.PushJob, instance, collector).Push(ctx); err != nil {
		cliCtx.Logger.Warn("metrics push failed", logging.Err(err), logging.String("url", mc.PushURL))
	}
}
