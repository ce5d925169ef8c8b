package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vanshika/netpurchase/internal/domain"
)

const namespace = "netpurchase"

// Metrics holds the detector collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	events        *prometheus.CounterVec
	flagged       prometheus.Counter
	malformed     *prometheus.CounterVec
	affected      prometheus.Histogram
	phaseDuration *prometheus.GaugeVec
	exported      *prometheus.CounterVec
}

// New registers every collector on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		events: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_processed_total",
			Help:      "Events applied to the social graph by phase and kind",
		}, []string{"phase", "kind"}),
		flagged: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "purchases_flagged_total",
			Help:      "Stream purchases flagged as anomalous",
		}),
		malformed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "malformed_records_total",
			Help:      "Input lines skipped because they could not be decoded",
		}, []string{"phase"}),
		affected: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "network_recompute_users",
			Help:      "Users whose network statistics were recomputed per friendship change",
			Buckets:   []float64{1, 2, 5, 10, 25, 50, 100, 250, 1000},
		}),
		phaseDuration: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "phase_duration_seconds",
			Help:      "Wall time of the last completed phase",
		}, []string{"phase"}),
		exported: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "graph_export_records_total",
			Help:      "Records written to the graph store by stage",
		}, []string{"stage"}),
	}
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// EventProcessed counts an applied event by phase and kind.
func (m *Metrics) EventProcessed(phase domain.Phase, kind domain.EventKind) {
	m.events.WithLabelValues(string(phase), string(kind)).Inc()
}

// PurchaseFlagged counts a stream purchase that met the threshold.
func (m *Metrics) PurchaseFlagged() { m.flagged.Inc() }

// NetworkRecomputed observes how many users a friendship change touched.
func (m *Metrics) NetworkRecomputed(affected int) { m.affected.Observe(float64(affected)) }

// PhaseCompleted records the wall time of a finished phase.
func (m *Metrics) PhaseCompleted(phase domain.Phase, elapsed time.Duration) {
	m.phaseDuration.WithLabelValues(string(phase)).Set(elapsed.Seconds())
}

// RecordSkipped counts a malformed input line.
func (m *Metrics) RecordSkipped(phase domain.Phase) {
	m.malformed.WithLabelValues(string(phase)).Inc()
}

// RecordExported counts records written by an export stage.
func (m *Metrics) RecordExported(stage string, n int) {
	m.exported.WithLabelValues(stage).Add(float64(n))
}
