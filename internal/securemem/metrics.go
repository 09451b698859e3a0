package securemem

import "github.com/prometheus/client_golang/prometheus"

const metricsSubsystem = "arena"

// collector exports Arena.Stats as gauges on every scrape.
type collector struct {
	arena *Arena

	total       *prometheus.Desc
	allocated   *prometheus.Desc
	allocations *prometheus.Desc
	free        *prometheus.Desc
	chunks      *prometheus.Desc
}

// NewCollector returns a Prometheus collector reporting a's usage under
// namespace. A stopped arena reports zeros.
func NewCollector(a *Arena, namespace string) prometheus.Collector {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, metricsSubsystem, name), help, nil, nil)
	}
	return &collector{
		arena:       a,
		total:       desc("total_bytes", "Usable length of the secure arena in bytes."),
		allocated:   desc("allocated_bytes", "Bytes held by live secure allocations."),
		allocations: desc("allocations", "Number of live secure allocations."),
		free:        desc("free_bytes", "Bytes available in free arena chunks."),
		chunks:      desc("chunks", "Number of arena chunks, free and allocated."),
	}
}

// Describe implements prometheus.Collector.
func (c *collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.total
	ch <- c.allocated
	ch <- c.allocations
	ch <- c.free
	ch <- c.chunks
}

// Collect implements prometheus.Collector.
func (c *collector) Collect(ch chan<- prometheus.Metric) {
	s := c.arena.Stats()
	ch <- prometheus.MustNewConstMetric(c.total, prometheus.GaugeValue, float64(s.Total))
	ch <- prometheus.MustNewConstMetric(c.allocated, prometheus.GaugeValue, float64(s.Allocated))
	ch <- prometheus.MustNewConstMetric(c.allocations, prometheus.GaugeValue, float64(s.Count))
	ch <- prometheus.MustNewConstMetric(c.free, prometheus.GaugeValue, float64(s.Free))
	ch <- prometheus.MustNewConstMetric(c.chunks, prometheus.GaugeValue, float64(s.Chunks))
}
