// Package metrics exports pipeline run counters to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/custodia-labs/slackpanel/internal/core/domain"
	"github.com/custodia-labs/slackpanel/internal/core/ports/driven"
)

const namespace = "slackpanel"

// Ensure Metrics implements the interface.
var _ driven.RunObserver = (*Metrics)(nil)

// Metrics holds the run collectors.
type Metrics struct {
	runs          *prometheus.CounterVec
	runDuration   *prometheus.HistogramVec
	days          *prometheus.CounterVec
	filesUploaded *prometheus.CounterVec
	filesFailed   *prometheus.CounterVec
	records       *prometheus.CounterVec
	lastSuccess   *prometheus.GaugeVec
}

// New creates the collectors and registers them with reg when non-nil.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Total number of pipeline runs.",
		}, []string{"pipeline", "status"}),
		runDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall-clock duration of pipeline runs.",
			Buckets:   []float64{1, 5, 15, 60, 300, 900, 1800, 3600, 7200},
		}, []string{"pipeline"}),
		days: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extract_days_total",
			Help:      "Days processed by the extract stage, by outcome.",
		}, []string{"kind", "outcome"}),
		filesUploaded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "load_files_uploaded_total",
			Help:      "Day-file uploads that succeeded, counted per phase.",
		}, []string{"kind"}),
		filesFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "load_files_failed_total",
			Help:      "Day-file uploads that failed, counted per phase.",
		}, []string{"kind"}),
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "load_records_total",
			Help:      "Records sent to the destination, by phase.",
		}, []string{"kind", "phase"}),
		lastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run.",
		}, []string{"pipeline"}),
	}

	if reg != nil {
		for _, c := range []prometheus.Collector{
			m.runs, m.runDuration, m.days, m.filesUploaded, m.filesFailed, m.records, m.lastSuccess,
		} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

// ObserveRun records a finished run.
func (m *Metrics) ObserveRun(report *domain.RunReport) {
	if report == nil {
		return
	}
	m.runs.WithLabelValues(report.Pipeline, report.Status).Inc()
	m.runDuration.WithLabelValues(report.Pipeline).Observe(float64(report.Timing.DurationMS) / 1000)
	if report.Status == domain.RunStatusSuccess {
		m.lastSuccess.WithLabelValues(report.Pipeline).Set(float64(report.Timing.End.Unix()))
	}

	for kind, e := range report.Extract {
		if e == nil {
			continue
		}
		k := string(kind)
		m.days.WithLabelValues(k, "extracted").Add(float64(e.Extracted))
		m.days.WithLabelValues(k, "skipped").Add(float64(e.Skipped))
		m.days.WithLabelValues(k, "failed").Add(float64(e.Failed))
	}
	for kind, l := range report.Load {
		if l == nil {
			continue
		}
		k := string(kind)
		m.filesUploaded.WithLabelValues(k).Add(float64(l.Uploaded))
		m.filesFailed.WithLabelValues(k).Add(float64(l.Failed))
		m.records.WithLabelValues(k, "events").Add(float64(l.Results.Events.Count))
		m.records.WithLabelValues(k, "profiles").Add(float64(l.Results.Profiles.Count))
	}
}
