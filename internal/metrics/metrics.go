package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the service's prometheus collectors. Constructed once and
// injected; nothing here is package-global.
type Metrics struct {
	Registry *prometheus.Registry

	CampaignsLoaded prometheus.Gauge
	PollErrors      prometheus.Counter
	DonationEvents  prometheus.Counter
	RPCDuration     *prometheus.HistogramVec
}

// New builds and registers the collectors on a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		Registry: registry,
		CampaignsLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fundscope_campaigns_loaded",
			Help: "Number of campaigns currently held in the catalog",
		}),
		PollErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fundscope_poll_errors_total",
			Help: "Failed head or count polls",
		}),
		DonationEvents: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fundscope_donation_events_total",
			Help: "DonationMade logs decoded during history scans",
		}),
		RPCDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "fundscope_rpc_call_duration_seconds",
			Help:    "Duration of chain RPC calls in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"method"}),
	}

	registry.MustRegister(m.CampaignsLoaded, m.PollErrors, m.DonationEvents, m.RPCDuration)
	return m
}
