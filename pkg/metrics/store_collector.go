package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/aerae/accelerator/internal/store"
	"github.com/aerae/accelerator/internal/store/model"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const collectTimeout = 5 * time.Second

type storeStatsCollector struct {
	store    store.Store
	jobs     *prometheus.Desc
	policies *prometheus.Desc
}

// NewStoreStatsCollector exposes the number of jobs per status and the size of the policy
// corpus, read from the store on every scrape.
func NewStoreStatsCollector(s store.Store) prometheus.Collector {
	fqName := func(name string) string {
		return fmt.Sprintf("%s_%s", aerae, name)
	}

	return &storeStatsCollector{
		store: s,
		jobs: prometheus.NewDesc(
			fqName("jobs"),
			"Number of assessment jobs by status.",
			[]string{"status"},
			prometheus.Labels{},
		),
		policies: prometheus.NewDesc(
			fqName("policies"),
			"Number of policies in the retrieval corpus.",
			nil,
			prometheus.Labels{},
		),
	}
}

func (c *storeStatsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.jobs
	ch <- c.policies
}

// Collect implements Collector.
func (c *storeStatsCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), collectTimeout)
	defer cancel()

	stats, err := c.store.Statistics(ctx)
	if err != nil {
		zap.S().Named("store_collector").Errorf("failed to collect store statistics: %s", err)
		return
	}

	for _, status := range []model.JobStatus{model.JobStatusProcessing, model.JobStatusComplete, model.JobStatusFailed} {
		ch <- prometheus.MustNewConstMetric(c.jobs, prometheus.GaugeValue, float64(stats.JobsByStatus[status]), string(status))
	}
	ch <- prometheus.MustNewConstMetric(c.policies, prometheus.GaugeValue, float64(stats.Policies))
}
