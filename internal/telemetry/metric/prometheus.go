package metric

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "botvault"

// Redemption outcomes recorded by RedeemAttempt.
const (
	OutcomeRedeemed  = "redeemed"
	OutcomeRejected  = "rejected"
	OutcomeTransient = "transient"
)

// Metrics holds every application metric.
type Metrics struct {
	registry *prometheus.Registry

	savesScheduled *prometheus.CounterVec
	savesTotal     *prometheus.CounterVec
	saveDuration   *prometheus.HistogramVec
	swept          *prometheus.CounterVec
	sweepRuns      prometheus.Counter
	redeemAttempts *prometheus.CounterVec
}

// New creates the metric set in a fresh registry, including Go runtime and
// process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		savesScheduled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "saves_scheduled_total",
			Help:      "Database write-backs requested by mutations",
		}, []string{"account"}),

		savesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "saves_total",
			Help:      "Database writes performed, by result",
		}, []string{"account", "result"}),

		saveDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "save_duration_seconds",
			Help:      "Time to encode and write a database file",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		}, []string{"account"}),

		swept: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "maintenance",
			Name:      "expired_entries_removed_total",
			Help:      "Risky-ignored entries removed by the maintenance sweep",
		}, []string{"account"}),

		sweepRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "maintenance",
			Name:      "runs_total",
			Help:      "Maintenance passes over all accounts",
		}),

		redeemAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "redeem",
			Name:      "attempts_total",
			Help:      "Background redemption attempts, by outcome",
		}, []string{"account", "outcome"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.savesScheduled,
		m.savesTotal,
		m.saveDuration,
		m.swept,
		m.sweepRuns,
		m.redeemAttempts,
	)
	return m
}

// Registry returns the registry backing m.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// MustRegister registers additional collectors, such as a QueueCollector.
func (m *Metrics) MustRegister(cs ...prometheus.Collector) {
	m.registry.MustRegister(cs...)
}

// Handler returns the /metrics HTTP handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// SweepRun counts one maintenance pass.
func (m *Metrics) SweepRun() {
	m.sweepRuns.Inc()
}

// RedeemAttempt counts one redemption attempt for account.
func (m *Metrics) RedeemAttempt(account, outcome string) {
	m.redeemAttempts.WithLabelValues(account, outcome).Inc()
}

// ForAccount returns a database observer labelled with account.
func (m *Metrics) ForAccount(account string) *AccountObserver {
	return &AccountObserver{
		scheduled: m.savesScheduled.WithLabelValues(account),
		saved:     m.savesTotal.WithLabelValues(account, "ok"),
		failed:    m.savesTotal.WithLabelValues(account, "error"),
		duration:  m.saveDuration.WithLabelValues(account),
		swept:     m.swept.WithLabelValues(account),
	}
}

// AccountObserver records database events of one account.
type AccountObserver struct {
	scheduled prometheus.Counter
	saved     prometheus.Counter
	failed    prometheus.Counter
	duration  prometheus.Observer
	swept     prometheus.Counter
}

func (o *AccountObserver) SaveScheduled() {
	o.scheduled.Inc()
}

func (o *AccountObserver) SaveCompleted(elapsed time.Duration, err error) {
	o.duration.Observe(elapsed.Seconds())
	if err != nil {
		o.failed.Inc()
		return
	}
	o.saved.Inc()
}

func (o *AccountObserver) Swept(removed int) {
	if removed > 0 {
		o.swept.Add(float64(removed))
	}
}
