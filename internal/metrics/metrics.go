// Package metrics exposes Prometheus instrumentation for the vision-speech pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcomes recorded for every processed request.
const (
	OutcomeUploaded        = "uploaded"
	OutcomeInvalidPayload  = "invalid_payload"
	OutcomeMissingCaption  = "missing_caption"
	OutcomeSynthesisFailed = "synthesis_failed"
	OutcomeFault           = "fault"
)

// Pipeline stages timed by StageDuration.
const (
	StageSynthesis = "synthesis"
	StageUpload    = "upload"
)

// Sources of a request.
const (
	SourceHTTP = "http"
	SourceNATS = "nats"
)

// Metrics holds the service collectors and the registry they are registered with.
type Metrics struct {
	registry *prometheus.Registry

	requests      *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	audioBytes    prometheus.Histogram
}

// New creates the collectors on a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,

		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vision_speech_requests_total",
				Help: "Processed vision-to-speech requests by source and outcome.",
			},
			[]string{"source", "outcome"},
		),

		stageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "vision_speech_stage_duration_seconds",
				Help:    "Time spent in each pipeline stage.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"stage"},
		),

		audioBytes: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "vision_speech_audio_bytes",
				Help:    "Size of uploaded audio files.",
				Buckets: prometheus.ExponentialBuckets(16*1024, 2, 10),
			},
		),
	}

	registry.MustRegister(
		m.requests,
		m.stageDuration,
		m.audioBytes,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// RecordRequest counts one finished request.
func (m *Metrics) RecordRequest(source, outcome string) {
	m.requests.WithLabelValues(source, outcome).Inc()
}

// ObserveStage records how long a stage took.
func (m *Metrics) ObserveStage(stage string, elapsed time.Duration) {
	m.stageDuration.WithLabelValues(stage).Observe(elapsed.Seconds())
}

// ObserveAudioBytes records the size of an uploaded file.
func (m *Metrics) ObserveAudioBytes(size int64) {
	m.audioBytes.Observe(float64(size))
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
