package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/studyhall/solver/internal/store"
	"go.uber.org/zap"
)

// statusCollector reads per-status assignment counts straight from the
// store on every scrape.
type statusCollector struct {
	store            store.Store
	totalAssignments *prometheus.Desc
	byStatus         *prometheus.Desc
	totalUsers       *prometheus.Desc
}

func NewStatusCollector(s store.Store) prometheus.Collector {
	fqName := func(name string) string {
		return fmt.Sprintf("%s_%s", subsystem, name)
	}

	return &statusCollector{
		store: s,
		totalAssignments: prometheus.NewDesc(
			fqName("assignments_total"),
			"Total number of assignments.",
			nil,
			prometheus.Labels{},
		),
		byStatus: prometheus.NewDesc(
			fqName("assignments_by_status"),
			"Number of assignments in each lifecycle status.",
			[]string{"status"},
			prometheus.Labels{},
		),
		totalUsers: prometheus.NewDesc(
			fqName("users_total"),
			"Total number of registered users.",
			nil,
			prometheus.Labels{},
		),
	}
}

func (c *statusCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.totalAssignments
	ch <- c.byStatus
	ch <- c.totalUsers
}

func (c *statusCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stats, err := c.store.Statistics(ctx)
	if err != nil {
		zap.S().Named("metrics").Warnw("failed to collect assignment statistics", "error", err)
		return
	}

	ch <- prometheus.MustNewConstMetric(c.totalAssignments, prometheus.GaugeValue, float64(stats.Total))
	ch <- prometheus.MustNewConstMetric(c.totalUsers, prometheus.GaugeValue, float64(stats.TotalUsers))
	for status, count := range stats.ByStatus {
		ch <- prometheus.MustNewConstMetric(c.byStatus, prometheus.GaugeValue, float64(count), status)
	}
}
