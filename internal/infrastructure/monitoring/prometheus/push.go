package prometheus

import (
	"context"

	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/turtacn/OpportunityRadar/pkg/errors"
)

// DefaultPushJob is the Pushgateway job name of batch runs.
const DefaultPushJob = "opportunity_radar"

// Pusher sends the collector's metrics to a Pushgateway.  Batch runs exit
// before any scrape, so the run command pushes instead.
type Pusher struct {
	pusher *push.Pusher
}

// NewPusher returns a Pusher for url grouping by instance.
func NewPusher(url, job, instance string, collector MetricsCollector) *Pusher {
	if job == "" {
		job = DefaultPushJob
	}
	p := push.New(url, job).Gatherer(collector.Gatherer())
	if instance != "" {
		p = p.Grouping("instance", instance)
	}
	return &Pusher{pusher: p}
}

// Push replaces the metrics of this job and grouping.
func (p *Pusher) Push(ctx context.Context) error {
	if err := p.pusher.PushContext(ctx); err != nil {
		return errors.Wrap(err, errors.ErrCodeServiceUnavailable, "failed to push metrics")
	}
	return nil
}
