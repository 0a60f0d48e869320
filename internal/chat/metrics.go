package chat

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	messagesProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ordergate_chat_messages_total",
		Help: "Chat messages by pipeline outcome (ok, denied, blocked) and cache hit.",
	}, []string{"outcome", "cached"})

	messageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ordergate_chat_message_duration_seconds",
		Help:    "End-to-end pipeline latency per message.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
)

func observeMessage(outcome string, cached bool, elapsed time.Duration) {
	messagesProcessed.WithLabelValues(outcome, strconv.FormatBool(cached)).Inc()
	messageDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}
