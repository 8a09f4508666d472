package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the voice agent service
type Metrics struct {
	// Media stream metrics
	EventsReceived prometheus.Counter
	EventErrors    prometheus.Counter
	FramesReceived prometheus.Counter
	FramesSent     prometheus.Counter

	// Call session metrics
	ActiveCalls    prometheus.Gauge
	CallsStarted   prometheus.Counter
	CallsCompleted prometheus.Counter
	CallDuration   prometheus.Histogram
	RecordsWritten prometheus.Counter
	RecordFailures prometheus.Counter

	// Turn pipeline metrics
	TurnsStarted    prometheus.Counter
	TurnsSuppressed prometheus.Counter
	TurnDuration    prometheus.Histogram
	StageFailures   *prometheus.CounterVec
	FallbackReplies prometheus.Counter

	// Outbound notification metrics
	SMSSent     prometheus.Counter
	SMSFailures prometheus.Counter

	// HTTP API metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPErrors          *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics() *Metrics {
	return &Metrics{
		// Media stream metrics
		EventsReceived: promauto.NewCounter(prometheus.CounterOpts{
			Name: "voiceagent_events_received_total",
			Help: "Total number of media stream events received",
		}),
		EventErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "voiceagent_event_errors_total",
			Help: "Total number of malformed or undecodable media stream events",
		}),
		FramesReceived: promauto.NewCounter(prometheus.CounterOpts{
			Name: "voiceagent_frames_received_total",
			Help: "Total number of inbound audio frames received",
		}),
		FramesSent: promauto.NewCounter(prometheus.CounterOpts{
			Name: "voiceagent_frames_sent_total",
			Help: "Total number of outbound audio frames sent",
		}),

		// Call session metrics
		ActiveCalls: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "voiceagent_active_calls",
			Help: "Current number of active call sessions",
		}),
		CallsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "voiceagent_calls_started_total",
			Help: "Total number of call sessions started",
		}),
		CallsCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "voiceagent_calls_completed_total",
			Help: "Total number of call sessions completed",
		}),
		CallDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "voiceagent_call_duration_seconds",
			Help:    "Duration of call sessions in seconds",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10), // 1s to ~17 minutes
		}),
		RecordsWritten: promauto.NewCounter(prometheus.CounterOpts{
			Name: "voiceagent_records_written_total",
			Help: "Total number of call records persisted",
		}),
		RecordFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "voiceagent_record_failures_total",
			Help: "Total number of call record write failures",
		}),

		// Turn pipeline metrics
		TurnsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "voiceagent_turns_started_total",
			Help: "Total number of conversational turns started",
		}),
		TurnsSuppressed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "voiceagent_turns_suppressed_total",
			Help: "Total number of turns suppressed by the reply cooldown or an in-flight turn",
		}),
		TurnDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "voiceagent_turn_duration_seconds",
			Help:    "End-to-end duration of conversational turns",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~2 minutes
		}),
		StageFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "voiceagent_stage_failures_total",
			Help: "Total number of degraded speech pipeline stages",
		}, []string{"stage"}),
		FallbackReplies: promauto.NewCounter(prometheus.CounterOpts{
			Name: "voiceagent_fallback_replies_total",
			Help: "Total number of turns answered with the fallback sentence",
		}),

		// Outbound notification metrics
		SMSSent: promauto.NewCounter(prometheus.CounterOpts{
			Name: "voiceagent_sms_sent_total",
			Help: "Total number of follow-up SMS messages sent",
		}),
		SMSFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "voiceagent_sms_failures_total",
			Help: "Total number of follow-up SMS send failures",
		}),

		// HTTP API metrics
		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "voiceagent_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "endpoint", "status_code"}),
		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "voiceagent_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
		HTTPErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "voiceagent_http_errors_total",
			Help: "Total number of HTTP errors",
		}, []string{"method", "endpoint", "error_type"}),
	}
}

// RecordEventReceived increments the events received counter
func (m *Metrics) RecordEventReceived() {
	m.EventsReceived.Inc()
}

// RecordEventError increments the event errors counter
func (m *Metrics) RecordEventError() {
	m.EventErrors.Inc()
}

// RecordFrameReceived increments the inbound frame counter
func (m *Metrics) RecordFrameReceived() {
	m.FramesReceived.Inc()
}

// RecordFramesSent adds to the outbound frame counter
func (m *Metrics) RecordFramesSent(count int) {
	m.FramesSent.Add(float64(count))
}

// SetActiveCalls sets the current number of active call sessions
func (m *Metrics) SetActiveCalls(count int) {
	m.ActiveCalls.Set(float64(count))
}

// RecordCallStarted increments the calls started counter
func (m *Metrics) RecordCallStarted() {
	m.CallsStarted.Inc()
}

// RecordCallCompleted increments the calls completed counter and records duration
func (m *Metrics) RecordCallCompleted(durationSeconds float64) {
	m.CallsCompleted.Inc()
	m.CallDuration.Observe(durationSeconds)
}

// RecordRecordWritten increments the records written counter
func (m *Metrics) RecordRecordWritten() {
	m.RecordsWritten.Inc()
}

// RecordRecordFailure increments the record write failure counter
func (m *Metrics) RecordRecordFailure() {
	m.RecordFailures.Inc()
}

// RecordTurnStarted increments the turns started counter
func (m *Metrics) RecordTurnStarted() {
	m.TurnsStarted.Inc()
}

// RecordTurnSuppressed increments the suppressed turns counter
func (m *Metrics) RecordTurnSuppressed() {
	m.TurnsSuppressed.Inc()
}

// RecordTurnCompleted records one finished turn
func (m *Metrics) RecordTurnCompleted(durationSeconds float64) {
	m.TurnDuration.Observe(durationSeconds)
}

// RecordStageFailure records a degraded speech pipeline stage
func (m *Metrics) RecordStageFailure(stage string) {
	m.StageFailures.WithLabelValues(stage).Inc()
}

// RecordFallbackReply increments the fallback reply counter
func (m *Metrics) RecordFallbackReply() {
	m.FallbackReplies.Inc()
}

// RecordSMSSent increments the SMS sent counter
func (m *Metrics) RecordSMSSent() {
	m.SMSSent.Inc()
}

// RecordSMSFailure increments the SMS failure counter
func (m *Metrics) RecordSMSFailure() {
	m.SMSFailures.Inc()
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, durationSeconds float64) {
	m.HTTPRequests.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(durationSeconds)
}

// RecordHTTPError records an HTTP error
func (m *Metrics) RecordHTTPError(method, endpoint, errorType string) {
	m.HTTPErrors.WithLabelValues(method, endpoint, errorType).Inc()
}
