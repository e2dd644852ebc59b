// Package metrics records per-run gauges and pushes them to a Prometheus
// Pushgateway. A batch job has no scrape endpoint, so push is the only way out.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

const (
	// MetricsNamespace prefixes every metric name.
	MetricsNamespace = "job_digest"

	// JobName is the Pushgateway grouping job.
	JobName = "job_digest"
)

// RunStats is what one run reports.
type RunStats struct {
	Source       string
	Fetched      int
	Malformed    int
	Rejected     int
	Ranked       int
	AlreadySeen  int
	Selected     int
	Committed    int
	SinkFailures int
	Duration     time.Duration
	Succeeded    bool
}

type Metrics struct {
	reg *prometheus.Registry

	Jobs            *prometheus.GaugeVec
	SinkFailures    prometheus.Gauge
	DurationSeconds prometheus.Gauge
	LastSuccess     prometheus.Gauge
	LastRun         prometheus.Gauge
}

// New registers the run metrics on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		reg: reg,
		Jobs: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: MetricsNamespace,
			Name:      "jobs",
			Help:      "Jobs at each stage of the last run",
		}, []string{"source", "stage"}),
		SinkFailures: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: MetricsNamespace,
			Name:      "sink_failures",
			Help:      "Notification and spreadsheet failures in the last run",
		}),
		DurationSeconds: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: MetricsNamespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of the last run",
		}),
		LastSuccess: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: MetricsNamespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last run that committed",
		}),
		LastRun: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: MetricsNamespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time of the last run",
		}),
	}
}

func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// Observe sets every gauge from the run stats.
func (m *Metrics) Observe(s RunStats, now time.Time) {
	stages := map[string]int{
		"fetched":      s.Fetched,
		"malformed":    s.Malformed,
		"rejected":     s.Rejected,
		"ranked":       s.Ranked,
		"already_seen": s.AlreadySeen,
		"selected":     s.Selected,
		"committed":    s.Committed,
	}
	for stage, n := range stages {
		m.Jobs.WithLabelValues(s.Source, stage).Set(float64(n))
	}
	m.SinkFailures.Set(float64(s.SinkFailures))
	m.DurationSeconds.Set(s.Duration.Seconds())
	m.LastRun.Set(float64(now.Unix()))
	if s.Succeeded {
		m.LastSuccess.Set(float64(now.Unix()))
	}
}

// Push sends the registry to the Pushgateway at url, replacing the previous
// push for this job.
func (m *Metrics) Push(url string) error {
	if err := push.New(url, JobName).Gatherer(m.reg).Push(); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
