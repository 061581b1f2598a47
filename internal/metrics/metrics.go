// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "debitsheet_http_requests_total",
	Help: "Total number of HTTP requests labelled by route and status",
}, []string{"route", "status"})

var extractionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "debitsheet_extractions_total",
	Help: "Extractions labelled by method and final status",
}, []string{"method", "status"})

var modelAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "debitsheet_model_call_attempts_total",
	Help: "Model provider call attempts labelled by provider and outcome",
}, []string{"provider", "outcome"})

var pipelineDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "debitsheet_pipeline_duration_seconds",
	Help:    "Time spent processing one document.",
	Buckets: []float64{.1, .5, 1, 2, 5, 10, 30, 60},
}, []string{"status"})

var batchQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "debitsheet_batch_jobs_in_queue",
	Help: "Number of batch jobs waiting for a worker",
})

// StatusRecorder captures the status code written by a handler.
type StatusRecorder struct {
	http.ResponseWriter
	Status int
}

func (r *StatusRecorder) WriteHeader(code int) {
	r.Status = code
	r.ResponseWriter.WriteHeader(code)
}

func ObserveHTTPRequest(route, status string) {
	httpRequestsTotal.WithLabelValues(route, status).Inc()
}

func ObserveExtraction(method, status string, elapsed time.Duration) {
	extractionsTotal.WithLabelValues(method, status).Inc()
	pipelineDuration.WithLabelValues(status).Observe(elapsed.Seconds())
}

func ObserveModelAttempt(provider, outcome string) {
	modelAttemptsTotal.WithLabelValues(provider, outcome).Inc()
}

func IncrementJobsInQueue() {
	batchQueueDepth.Inc()
}

func DecrementJobsInQueue() {
	batchQueueDepth.Dec()
}
