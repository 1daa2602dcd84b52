package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type WorkerMetrics struct {
	registry *prometheus.Registry

	processTotal       *prometheus.CounterVec
	processDuration    *prometheus.HistogramVec
	processInFlight    prometheus.Gauge
	chunksIndexed      *prometheus.CounterVec
	indexBatchFailures *prometheus.CounterVec
	queueLag           *prometheus.HistogramVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	processTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "manualingest",
			Subsystem: "worker",
			Name:      "document_process_total",
			Help:      "Total processed documents by outcome.",
		},
		[]string{"service", "status"},
	)
	processDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "manualingest",
			Subsystem: "worker",
			Name:      "document_process_duration_seconds",
			Help:      "Document processing duration in seconds by outcome.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"service", "status"},
	)
	processInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "manualingest",
			Subsystem: "worker",
			Name:      "document_process_in_flight",
			Help:      "Number of in-flight document processing tasks.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	chunksIndexed := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "manualingest",
			Subsystem: "index",
			Name:      "chunks_committed_total",
			Help:      "Total chunks committed to the vector store.",
		},
		[]string{"service"},
	)
	indexBatchFailures := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "manualingest",
			Subsystem: "index",
			Name:      "batch_failures_total",
			Help:      "Total index batches dropped after embed or upsert errors.",
		},
		[]string{"service"},
	)
	queueLag := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "manualingest",
			Subsystem: "worker",
			Name:      "queue_lag_seconds",
			Help:      "Delay between staging a document and processing start.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"service"},
	)

	registry.MustRegister(processTotal, processDuration, processInFlight, chunksIndexed, indexBatchFailures, queueLag)

	return &WorkerMetrics{
		registry:           registry,
		processTotal:       processTotal,
		processDuration:    processDuration,
		processInFlight:    processInFlight,
		chunksIndexed:      chunksIndexed,
		indexBatchFailures: indexBatchFailures,
		queueLag:           queueLag,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartDocument() {
	m.processInFlight.Inc()
}

func (m *WorkerMetrics) FinishDocument(service string, duration time.Duration, err error) {
	m.processInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}

	m.processTotal.WithLabelValues(service, status).Inc()
	m.processDuration.WithLabelValues(service, status).Observe(duration.Seconds())
}

func (m *WorkerMetrics) AddChunksCommitted(service string, count int) {
	if count <= 0 {
		return
	}
	m.chunksIndexed.WithLabelValues(service).Add(float64(count))
}

func (m *WorkerMetrics) AddIndexBatchFailure(service string) {
	m.indexBatchFailures.WithLabelValues(service).Inc()
}

func (m *WorkerMetrics) ObserveQueueLag(service string, lag time.Duration) {
	if lag < 0 {
		return
	}
	m.queueLag.WithLabelValues(service).Observe(lag.Seconds())
}
