package livesync

import "github.com/prometheus/client_golang/prometheus"

var (
	fetchesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "propdesk",
		Subsystem: "livesync",
		Name:      "fetches_total",
		Help:      "Feed fetches by trigger (background, manual) and result (ok, error, stale, abandoned).",
	}, []string{"feed", "trigger", "result"})

	skippedTicksTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "propdesk",
		Subsystem: "livesync",
		Name:      "skipped_ticks_total",
		Help:      "Poll ticks skipped because a fetch for the same feed was still in flight.",
	}, []string{"feed"})

	fetchDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "propdesk",
		Subsystem: "livesync",
		Name:      "fetch_duration_seconds",
		Help:      "Time spent waiting on feed fetches.",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
	}, []string{"feed"})

	newEntriesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "propdesk",
		Subsystem: "livesync",
		Name:      "new_entries_total",
		Help:      "Entries marked new after appearing between two fetches.",
	}, []string{"feed"})

	highlightedGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "propdesk",
		Subsystem: "livesync",
		Name:      "highlighted_entries",
		Help:      "Entries currently carrying a new marker.",
	}, []string{"feed"})
)

func init() {
	prometheus.MustRegister(fetchesTotal, skippedTicksTotal, fetchDuration, newEntriesTotal, highlightedGauge)
}
