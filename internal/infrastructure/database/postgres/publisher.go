package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/turtacn/OpportunityRadar/internal/application/pipeline"
	"github.com/turtacn/OpportunityRadar/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/OpportunityRadar/pkg/errors"
	"github.com/turtacn/OpportunityRadar/pkg/types/opportunity"
)

const (
	// PublisherName identifies the Postgres publisher in run results.
	PublisherName = "postgres"

	// TableOpportunities holds the ranked rows of the latest run.
	TableOpportunities = "category_opportunities"
)

var opportunityColumns = []string{
	"category",
	"run_id",
	"rank",
	"search_volume",
	"unmet_signal",
	"price_sensitivity",
	"missing_features",
	"pain_points",
	"opportunity_score",
	"recommended_actions",
}

const (
	insertRunSQL = `INSERT INTO opportunity_runs
		(run_id, started_at, finished_at, destination, categories, top_category)
		VALUES ($1, $2, $3, $4, $5, $6)`
	deleteOpportunitiesSQL = `DELETE FROM category_opportunities`
)

// Publisher replaces the opportunity table with the rows of each run.
type Publisher struct {
	db     TxRunner
	logger logging.Logger
}

// NewPublisher returns a Publisher writing through db.
func NewPublisher(db TxRunner, log logging.Logger) *Publisher {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Publisher{db: db, logger: log}
}

// Name implements pipeline.Publisher.
func (p *Publisher) Name() string { return PublisherName }

// Publish records the run and swaps the opportunity table contents in one
// transaction, so readers see either the previous ranking or the new one.
func (p *Publisher) Publish(ctx context.Context, result *pipeline.RunResult) error {
	if result == nil {
		return errors.NewValidation("nil run result")
	}
	err := p.db.WithTransaction(ctx, func(q Querier) error {
		if _, err := q.Exec(ctx, insertRunSQL,
			result.RunID,
			result.StartedAt,
			result.FinishedAt,
			result.Destination,
			len(result.Opportunities),
			result.TopCategory(),
		); err != nil {
			return errors.Wrap(err, errors.ErrCodeDatabaseError, "insert run")
		}

		if _, err := q.Exec(ctx, deleteOpportunitiesSQL); err != nil {
			return errors.Wrap(err, errors.ErrCodeDatabaseError, "clear opportunities")
		}

		n, err := q.CopyFrom(ctx, pgx.Identifier{TableOpportunities}, opportunityColumns, pgx.CopyFromRows(opportunityRows(result)))
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeDatabaseError, "copy opportunities")
		}
		p.logger.Debug("opportunities stored",
			logging.String(logging.FieldRunID, result.RunID),
			logging.Int64(logging.FieldRows, n),
		)
		return nil
	})
	if err != nil {
		return errors.Wrap(err, errors.ErrCodePublishFailed, "postgres publish failed")
	}
	return nil
}

func opportunityRows(result *pipeline.RunResult) [][]any {
	rows := make([][]any, 0, len(result.Opportunities))
	for i, o := range result.Opportunities {
		var price any
		if o.PriceSensitivity != nil {
			price = *o.PriceSensitivity
		}
		rows = append(rows, []any{
			o.Category,
			result.RunID,
			i + 1,
			o.SearchVolume,
			o.UnmetSignal,
			price,
			o.MissingFeatures,
			o.PainPoints,
			o.OpportunityScore,
			o.RecommendedActions,
		})
	}
	return rows
}

const selectLatestSQL = `SELECT category, search_volume, unmet_signal, price_sensitivity,
		missing_features, pain_points, opportunity_score, recommended_actions
	FROM category_opportunities ORDER BY rank`

// LatestReader serves the most recently published ranking from the database.
type LatestReader struct {
	pool *Pool
}

// NewLatestReader returns a reader over pool.
func NewLatestReader(pool *Pool) *LatestReader {
	return &LatestReader{pool: pool}
}

// Read returns the stored rows in rank order.
func (r *LatestReader) Read(ctx context.Context) (opportunity.Opportunities, error) {
	rows, err := r.pool.pool.Query(ctx, selectLatestSQL)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "query opportunities")
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (opportunity.CategoryOpportunity, error) {
		var o opportunity.CategoryOpportunity
		err := row.Scan(&o.Category, &o.SearchVolume, &o.UnmetSignal, &o.PriceSensitivity,
			&o.MissingFeatures, &o.PainPoints, &o.OpportunityScore, &o.RecommendedActions)
		return o, err
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "scan opportunities")
	}
	if len(out) == 0 {
		return nil, errors.New(errors.ErrCodeArtifactNotFound, "no published opportunities")
	}
	return out, nil
}
