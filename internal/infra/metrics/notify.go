package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(notifyRequestsTotal, sendsTotal, fanoutLatencyMs, fanoutSize)
}

var notifyRequestsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "notify_requests_total",
		Help: "Notify requests by outcome (ok/unauthorized/invalid/rate_limited).",
	},
	[]string{"outcome"},
)

var sendsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "telegram_sends_total",
		Help: "Per-chat send attempts by result.",
	},
	[]string{"success"},
)

var fanoutLatencyMs = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "notify_fanout_latency_ms",
		Help:    "Whole fan-out latency (barrier wait) in milliseconds.",
		Buckets: []float64{10, 25, 50, 100, 200, 400, 800, 1600, 3000, 5000, 10000},
	},
)

var fanoutSize = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "notify_fanout_size",
		Help:    "Number of authorized chats per notify request.",
		Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100},
	},
)

func IncNotifyRequest(outcome string) {
	notifyRequestsTotal.WithLabelValues(outcome).Inc()
}

func IncSend(success bool) {
	sendsTotal.WithLabelValues(strconv.FormatBool(success)).Inc()
}

func ObserveFanout(chats int, latencyMs float64) {
	fanoutSize.Observe(float64(chats))
	fanoutLatencyMs.Observe(latencyMs)
}
