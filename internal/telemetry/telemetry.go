package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	OutcomeOK         = "ok"
	OutcomeStructural = "structural_error"
	OutcomeStale      = "stale"
	OutcomeFailed     = "failed"
)

// Metrics holds the ingestion collectors on their own registry.
type Metrics struct {
	reg *prometheus.Registry

	Ingests       *prometheus.CounterVec
	RowsIngested  prometheus.Counter
	IngestSeconds prometheus.Histogram
	FetchAttempts *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		reg: reg,
		Ingests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "insights_ingest_total",
			Help: "Uploaded exports processed, by outcome.",
		}, []string{"outcome"}),
		RowsIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "insights_rows_ingested_total",
			Help: "Metric rows produced by successful ingestions.",
		}),
		IngestSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "insights_ingest_duration_seconds",
			Help:    "Time from upload read to dataset commit.",
			Buckets: prometheus.DefBuckets,
		}),
		FetchAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "insights_remote_fetch_attempts_total",
			Help: "HTTP attempts made when importing a remote export.",
		}, []string{"result"}),
	}
	reg.MustRegister(
		m.Ingests, m.RowsIngested, m.IngestSeconds, m.FetchAttempts,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// TrackSessions exports fn as insights_sessions_active.
func (m *Metrics) TrackSessions(fn func() int) {
	m.reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "insights_sessions_active",
		Help: "Sessions currently holding a dataset in this process.",
	}, func() float64 { return float64(fn()) }))
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}
