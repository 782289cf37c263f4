// Package observability exposes the Prometheus collectors shared by the
// server, the worker and the sync reconciler.
package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	pushCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "timeledger",
		Subsystem: "sync",
		Name:      "push_records_total",
		Help:      "Number of records pushed to the remote store, by outcome.",
	}, []string{"outcome"})

	pullCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "timeledger",
		Subsystem: "sync",
		Name:      "pull_records_total",
		Help:      "Number of remote records merged into the local store, by outcome.",
	}, []string{"outcome"})

	lastPushGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "timeledger",
		Subsystem: "sync",
		Name:      "last_push_timestamp_seconds",
		Help:      "Unix timestamp of the most recent attempted push batch.",
	})

	requestCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "timeledger",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Number of handled HTTP requests.",
	}, []string{"method", "path", "status"})

	messageCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "timeledger",
		Subsystem: "worker",
		Name:      "messages_processed_total",
		Help:      "Number of consumed queue messages, by type and outcome.",
	}, []string{"type", "outcome"})
)

func init() {
	prometheus.MustRegister(pushCounter, pullCounter, lastPushGauge, requestCounter, messageCounter)
}

// RecordPush adds one push batch to the sync counters.
func RecordPush(synced, failed int) {
	pushCounter.WithLabelValues("synced").Add(float64(synced))
	pushCounter.WithLabelValues("failed").Add(float64(failed))
}

// RecordPull adds one pull merge to the sync counters.
func RecordPull(merged, failed int) {
	pullCounter.WithLabelValues("merged").Add(float64(merged))
	pullCounter.WithLabelValues("failed").Add(float64(failed))
}

// RecordSyncTime moves the push watermark gauge.
func RecordSyncTime(ts time.Time) {
	if ts.IsZero() {
		return
	}
	lastPushGauge.Set(float64(ts.Unix()))
}

// RecordRequest counts one handled HTTP request.
func RecordRequest(method, path string, status int) {
	requestCounter.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
}

// RecordMessage counts one consumed queue message.
func RecordMessage(msgType, outcome string) {
	messageCounter.WithLabelValues(msgType, outcome).Inc()
}
