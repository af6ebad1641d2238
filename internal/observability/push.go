package observability

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// PushJob is the Pushgateway job name for import runs.
const PushJob = "city_import"

// Push sends every metric in g to the Pushgateway at url, grouped by run ID.
func Push(ctx context.Context, url, runID string, g prometheus.Gatherer) error {
	err := push.New(url, PushJob).
		Gatherer(g).
		Grouping("run_id", runID).
		PushContext(ctx)
	if err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
