// Package metrics registers the process-wide prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	InflightRequests = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "inferd",
		Name:      "inflight_requests",
		Help:      "Number of inference requests currently executing",
	})

	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "inferd",
		Name:      "requests_total",
		Help:      "Total inference requests by model and outcome",
	}, []string{"model", "outcome"})

	NormalizationErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "inferd",
		Name:      "normalization_errors_total",
		Help:      "Total request normalization failures by protocol version",
	}, []string{"protocol"})

	OutputBytesAllocated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "inferd",
		Name:      "output_bytes_allocated_total",
		Help:      "Total bytes handed out by response output allocators",
	}, []string{"memory_type"})
)
