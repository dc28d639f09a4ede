package report

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/roach88/fixrun/internal/ir"
)

// Metrics exports run totals in the Prometheus text format, for the node
// exporter textfile collector.
type Metrics struct {
	// Path is the textfile to write. Empty means metrics are only kept in
	// the registry.
	Path string

	registry   *prometheus.Registry
	fixtures   prometheus.Gauge
	assertions *prometheus.GaugeVec
	synthetic  prometheus.Gauge
	duration   prometheus.Gauge
	lastRun    prometheus.Gauge

	now     func() time.Time
	started time.Time
}

// NewMetrics creates a metrics reporter. now defaults to time.Now.
func NewMetrics(path string, now func() time.Time) *Metrics {
	if now == nil {
		now = time.Now
	}
	m := &Metrics{
		Path:     path,
		registry: prometheus.NewRegistry(),
		fixtures: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "fixrun",
			Name:      "fixtures",
			Help:      "Number of fixtures reported in the last run.",
		}),
		assertions: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "fixrun",
			Name:      "assertions",
			Help:      "Number of assertions in the last run by result.",
		}, []string{"result"}),
		synthetic: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "fixrun",
			Name:      "load_failures",
			Help:      "Number of fixtures that could not be evaluated in the last run.",
		}),
		duration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "fixrun",
			Name:      "run_duration_seconds",
			Help:      "Wall time of the last run.",
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "fixrun",
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished.",
		}),
		now: now,
	}
	m.registry.MustRegister(m.fixtures, m.assertions, m.synthetic, m.duration, m.lastRun)
	m.started = now()
	return m
}

// Registry returns the registry holding the run metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Describe implements Reporter.
func (m *Metrics) Describe(ir.FixturePath) Group { return nopGroup{} }

// Finish implements Reporter.
func (m *Metrics) Finish(summary *ir.RunSummary) error {
	finished := m.now()

	synthetic := 0
	for _, fr := range summary.Fixtures {
		for _, a := range fr.Assertions {
			if a.Synthetic {
				synthetic++
			}
		}
	}

	m.fixtures.Set(float64(len(summary.Fixtures)))
	m.assertions.WithLabelValues("passed").Set(float64(summary.Passed))
	m.assertions.WithLabelValues("failed").Set(float64(summary.Failed))
	m.synthetic.Set(float64(synthetic))
	m.duration.Set(finished.Sub(m.started).Seconds())
	m.lastRun.Set(float64(finished.Unix()))

	if m.Path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(m.Path, m.registry); err != nil {
		return fmt.Errorf("metrics report: %w", err)
	}
	return nil
}
