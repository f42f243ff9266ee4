package metric

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/yndnr/botvault/internal/core/domain"
)

// QueueSource reports the redemption queue depth of every open account,
// indexed by domain.Priority.
type QueueSource interface {
	QueueDepths() map[string][3]int
}

// QueueCollector exports queue depth per account and tier at scrape time.
type QueueCollector struct {
	source QueueSource
	depth  *prometheus.Desc
}

// NewQueueCollector creates a collector reading from source.
func NewQueueCollector(source QueueSource) *QueueCollector {
	return &QueueCollector{
		source: source,
		depth: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "redeem", "queue_depth"),
			"Items waiting in the background redemption queue",
			[]string{"account", "priority"}, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *QueueCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.depth
}

// Collect implements prometheus.Collector.
func (c *QueueCollector) Collect(ch chan<- prometheus.Metric) {
	for account, depths := range c.source.QueueDepths() {
		for _, p := range domain.Priorities {
			ch <- prometheus.MustNewConstMetric(c.depth, prometheus.GaugeValue,
				float64(depths[p]), account, p.String())
		}
	}
}
