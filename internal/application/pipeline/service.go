// Package pipeline orchestrates a single opportunity-scoring run: load the five
// input tables, run the analyzers in dependency order, compose the ranked
// table, write the artifact and notify downstream publishers.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/turtacn/OpportunityRadar/internal/application/competitive"
	"github.com/turtacn/OpportunityRadar/internal/application/demand"
	composer "github.com/turtacn/OpportunityRadar/internal/application/opportunity"
	"github.com/turtacn/OpportunityRadar/internal/application/painpoint"
	"github.com/turtacn/OpportunityRadar/internal/application/pricing"
	"github.com/turtacn/OpportunityRadar/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/OpportunityRadar/pkg/errors"
	"github.com/turtacn/OpportunityRadar/pkg/types/opportunity"
)

// Stage names used for row-count logging and metrics.
const (
	StageDemand      = "demand"
	StagePricing     = "pricing"
	StagePainPoints  = "pain_points"
	StageFeatureGaps = "feature_gaps"
	StageCompose     = "compose"
)

// Run statuses.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// Source supplies the five input tables of a run.
type Source interface {
	Load(ctx context.Context) (*opportunity.InputTables, error)
	Describe() string
}

// Sink persists the ranked table.  Write must leave either the complete
// artifact or nothing at the destination.
type Sink interface {
	Write(ctx context.Context, rows opportunity.Opportunities) error
	Destination() string
}

// Publisher forwards a finished run to a downstream system.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, result *RunResult) error
}

// Metrics records run telemetry.
type Metrics interface {
	ObserveRun(status string, duration time.Duration)
	SetStageRows(stage string, rows int)
	SetCategories(n int)
	IncPublisherError(publisher string)
}

// Options tunes the analyzers.
type Options struct {
	TopK               int
	VocabularySize     int
	LowRatingThreshold int
	KeywordRules       []composer.KeywordRule
}

// PublishError records one failed publisher.
type PublishError struct {
	Publisher string `json:"publisher"`
	Error     string `json:"error"`
}

// RunResult describes a completed run.
type RunResult struct {
	RunID         string                    `json:"run_id"`
	StartedAt     time.Time                 `json:"started_at"`
	FinishedAt    time.Time                 `json:"finished_at"`
	Destination   string                    `json:"destination"`
	Opportunities opportunity.Opportunities `json:"opportunities"`
	PublishErrors []PublishError            `json:"publish_errors,omitempty"`
}

// TopCategory returns the highest-ranked category, or "" for an empty run.
func (r *RunResult) TopCategory() string {
	if r == nil || len(r.Opportunities) == 0 {
		return ""
	}
	return r.Opportunities[0].Category
}

// Duration is the wall time of the run.
func (r *RunResult) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Service runs the opportunity pipeline.
type Service interface {
	// Run loads inputs, computes the table, writes it and publishes it.
	Run(ctx context.Context) (*RunResult, error)
	// Compute is the pure transform from input tables to the ranked table.
	Compute(tables *opportunity.InputTables) opportunity.Opportunities
}

// Deps bundles the collaborators of a Service.
type Deps struct {
	Source     Source
	Sink       Sink
	Publishers []Publisher
	Metrics    Metrics
	Logger     logging.Logger
	Options    Options
	// Now is overridable in tests.
	Now func() time.Time
}

type serviceImpl struct {
	source     Source
	sink       Sink
	publishers []Publisher
	metrics    Metrics
	logger     logging.Logger
	extract    painpoint.Options
	composer   *composer.Composer
	now        func() time.Time
}

// NewService validates deps and returns a Service.
func NewService(deps Deps) (Service, error) {
	if deps.Source == nil {
		return nil, errors.NewValidation("pipeline source is required")
	}
	if deps.Sink == nil {
		return nil, errors.NewValidation("pipeline sink is required")
	}
	if deps.Logger == nil {
		deps.Logger = logging.NewNopLogger()
	}
	if deps.Metrics == nil {
		deps.Metrics = NopMetrics{}
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	for _, p := range deps.Publishers {
		if p == nil {
			return nil, errors.NewValidation("pipeline publisher must not be nil")
		}
	}
	return &serviceImpl{
		source:     deps.Source,
		sink:       deps.Sink,
		publishers: deps.Publishers,
		metrics:    deps.Metrics,
		logger:     deps.Logger.Named("pipeline"),
		extract: painpoint.Options{
			TopK:               deps.Options.TopK,
			VocabularySize:     deps.Options.VocabularySize,
			LowRatingThreshold: deps.Options.LowRatingThreshold,
		},
		composer: composer.NewComposer(composer.NewTaxonomy(deps.Options.KeywordRules), deps.Logger.Named("composer")),
		now:      deps.Now,
	}, nil
}

func (s *serviceImpl) Run(ctx context.Context) (*RunResult, error) {
	result := &RunResult{
		RunID:       uuid.NewString(),
		StartedAt:   s.now(),
		Destination: s.sink.Destination(),
	}
	log := s.logger.With(logging.String(logging.FieldRunID, result.RunID))
	log.Info("pipeline run started",
		logging.String("source", s.source.Describe()),
		logging.String("destination", result.Destination))

	fail := func(err error) (*RunResult, error) {
		s.metrics.ObserveRun(StatusFailure, s.now().Sub(result.StartedAt))
		log.Error("pipeline run failed", logging.Err(err))
		return nil, err
	}

	tables, err := s.source.Load(ctx)
	if err != nil {
		return fail(wrapKeepCode(err, errors.ErrCodeInputUnavailable, "load inputs"))
	}
	if err := ctx.Err(); err != nil {
		return fail(errors.Wrap(err, errors.ErrCodePipelineFailed, "run cancelled"))
	}

	result.Opportunities = s.compute(tables, log)

	if err := s.sink.Write(ctx, result.Opportunities); err != nil {
		return fail(wrapKeepCode(err, errors.ErrCodeOutputWriteFailed, "write opportunities"))
	}
	result.FinishedAt = s.now()

	s.metrics.SetCategories(len(result.Opportunities))
	s.metrics.ObserveRun(StatusSuccess, result.Duration())
	log.Info("pipeline run completed",
		logging.Int("categories", len(result.Opportunities)),
		logging.String("top_category", result.TopCategory()),
		logging.Duration("duration", result.Duration()))

	result.PublishErrors = s.publish(ctx, result, log)
	return result, nil
}

func (s *serviceImpl) Compute(tables *opportunity.InputTables) opportunity.Opportunities {
	return s.compute(tables, s.logger)
}

func (s *serviceImpl) compute(tables *opportunity.InputTables, log logging.Logger) opportunity.Opportunities {
	if tables == nil {
		tables = &opportunity.InputTables{}
	}
	stage := func(name string, rows int) {
		s.metrics.SetStageRows(name, rows)
		log.Debug("stage finished", logging.String(logging.FieldStage, name), logging.Int(logging.FieldRows, rows))
	}

	unmet := demand.Summarize(tables.Searches)
	stage(StageDemand, len(unmet))

	prices := pricing.Estimate(tables.Transactions)
	stage(StagePricing, len(prices))

	pains := painpoint.Extract(tables.Reviews, s.extract)
	stage(StagePainPoints, len(pains))
	if len(pains) == 0 && hasLowRated(tables.Reviews, s.extract.LowRatingThreshold) {
		log.Debug("low-rated reviews produced an empty vocabulary")
	}

	gaps := competitive.Analyze(tables.Catalog, tables.Competitors)
	stage(StageFeatureGaps, len(gaps))

	out := s.composer.Compose(composer.Signals{
		Demand:  unmet,
		Prices:  prices,
		Pains:   pains,
		Gaps:    gaps,
		Catalog: tables.Catalog,
	})
	stage(StageCompose, len(out))
	return out
}

// publish runs every publisher concurrently.  Failures are collected and
// never abort the run.
func (s *serviceImpl) publish(ctx context.Context, result *RunResult, log logging.Logger) []PublishError {
	if len(s.publishers) == 0 {
		return nil
	}
	slots := make([]*PublishError, len(s.publishers))
	var g errgroup.Group
	for i, p := range s.publishers {
		i, p := i, p
		g.Go(func() error {
			if err := p.Publish(ctx, result); err != nil {
				s.metrics.IncPublisherError(p.Name())
				log.Warn("publisher failed", logging.String("publisher", p.Name()), logging.Err(err))
				slots[i] = &PublishError{Publisher: p.Name(), Error: err.Error()}
				return nil
			}
			log.Debug("published", logging.String("publisher", p.Name()))
			return nil
		})
	}
	_ = g.Wait()

	var failed []PublishError
	for _, f := range slots {
		if f != nil {
			failed = append(failed, *f)
		}
	}
	return failed
}

// wrapKeepCode wraps err, keeping its code when it already carries one.
func wrapKeepCode(err error, fallback errors.ErrorCode, message string) error {
	code := errors.GetCode(err)
	if code == errors.CodeUnknown {
		code = fallback
	}
	return errors.Wrap(err, code, message)
}

func hasLowRated(reviews []opportunity.Review, threshold int) bool {
	if threshold <= 0 {
		threshold = painpoint.DefaultLowRatingThreshold
	}
	for _, r := range reviews {
		if r.Rating <= threshold {
			return true
		}
	}
	return false
}

// NopMetrics discards all telemetry.
type NopMetrics struct{}

func (NopMetrics) ObserveRun(string, time.Duration) {}
func (NopMetrics) SetStageRows(string, int)         {}
func (NopMetrics) SetCategories(int)                {}
func (NopMetrics) IncPublisherError(string)         {}
