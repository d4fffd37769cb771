// Package metrics exposes watcher and sensor counters to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	framesProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "firewatch_frames_total",
		Help: "Frames processed by outcome (fire, clear, capture_error)",
	}, []string{"camera", "outcome"})
	verdictConfidence = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "firewatch_verdict_confidence",
		Help:    "Confidence of positive fire verdicts by classifier",
		Buckets: prometheus.LinearBuckets(0.5, 0.05, 10),
	}, []string{"source"})
	stepFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "firewatch_step_failures_total",
		Help: "Failures of alert side effects (upload, record, notify)",
	}, []string{"step"})
	sensorReadings = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "firewatch_sensor_readings_total",
		Help: "Gateway readings by node and risk level",
	}, []string{"node", "risk"})
	frameDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "firewatch_frame_duration_seconds",
		Help:    "Time to capture and classify one frame",
		Buckets: prometheus.DefBuckets,
	})
)

// Outcome labels for ObserveFrame.
const (
	OutcomeFire         = "fire"
	OutcomeClear        = "clear"
	OutcomeCaptureError = "capture_error"
)

// Alert side-effect steps for ObserveFailure.
const (
	StepUpload = "upload"
	StepRecord = "record"
	StepNotify = "notify"
)

// ObserveFrame counts a processed frame and its duration in seconds.
func ObserveFrame(camera, outcome string, seconds float64) {
	framesProcessed.WithLabelValues(camera, outcome).Inc()
	frameDuration.Observe(seconds)
}

// ObserveVerdict records the confidence of a positive verdict.
func ObserveVerdict(source string, confidence float64) {
	verdictConfidence.WithLabelValues(source).Observe(confidence)
}

// ObserveFailure counts a failed alert step.
func ObserveFailure(step string) {
	stepFailures.WithLabelValues(step).Inc()
}

// ObserveSensorReading counts a gateway reading and its risk level.
func ObserveSensorReading(node, risk string) {
	sensorReadings.WithLabelValues(node, risk).Inc()
}
