package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type moduleMetrics struct {
	activeSessions   prometheus.Gauge
	stateTransitions *prometheus.CounterVec
	framesSent       prometheus.Counter
	framesReceived   prometheus.Counter
	sendFailures     prometheus.Counter
	readTimeouts     prometheus.Counter
	sessionDuration  prometheus.Histogram

	gatewayClients  prometheus.Gauge
	gatewayRequests *prometheus.CounterVec
}

var (
	metricsOnce sync.Once
	metricsInst *moduleMetrics
)

func getMetrics() *moduleMetrics {
	metricsOnce.Do(func() {
		m := &moduleMetrics{
			activeSessions: prometheus.NewGauge(
				prometheus.GaugeOpts{
					Name: "verso_active_sessions",
					Help: "Current registered session count.",
				},
			),
			stateTransitions: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "verso_state_transitions_total",
					Help: "Total session state reports by state.",
				},
				[]string{"state"},
			),
			framesSent: prometheus.NewCounter(
				prometheus.CounterOpts{
					Name: "verso_frames_sent_total",
					Help: "Total frames written to transports.",
				},
			),
			framesReceived: prometheus.NewCounter(
				prometheus.CounterOpts{
					Name: "verso_frames_received_total",
					Help: "Total payload frames delivered to observers.",
				},
			),
			sendFailures: prometheus.NewCounter(
				prometheus.CounterOpts{
					Name: "verso_send_failures_total",
					Help: "Total send or close operations that found a dead outbound queue.",
				},
			),
			readTimeouts: prometheus.NewCounter(
				prometheus.CounterOpts{
					Name: "verso_read_timeouts_total",
					Help: "Total sessions ended by the rolling read timeout.",
				},
			),
			sessionDuration: prometheus.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "verso_session_duration_seconds",
					Help:    "Session lifetime from open to terminal report in seconds.",
					Buckets: prometheus.ExponentialBuckets(1, 4, 10),
				},
			),
			gatewayClients: prometheus.NewGauge(
				prometheus.GaugeOpts{
					Name: "verso_gateway_clients",
					Help: "Current connected gateway client count.",
				},
			),
			gatewayRequests: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "verso_gateway_requests_total",
					Help: "Total gateway RPC requests by method and status.",
				},
				[]string{"method", "status"},
			),
		}

		prometheus.MustRegister(
			m.activeSessions,
			m.stateTransitions,
			m.framesSent,
			m.framesReceived,
			m.sendFailures,
			m.readTimeouts,
			m.sessionDuration,
			m.gatewayClients,
			m.gatewayRequests,
		)

		metricsInst = m
	})

	return metricsInst
}

// EnsureRegistered initializes and registers metrics the first time it is called.
func EnsureRegistered() {
	_ = getMetrics()
}

func MetricsHandler() http.Handler {
	EnsureRegistered()
	return promhttp.Handler()
}

func SetActiveSessions(count int) {
	getMetrics().activeSessions.Set(float64(count))
}

func RecordStateTransition(state string) {
	getMetrics().stateTransitions.WithLabelValues(state).Inc()
}

func RecordFrameSent() {
	getMetrics().framesSent.Inc()
}

func RecordFrameReceived() {
	getMetrics().framesReceived.Inc()
}

func RecordSendFailure() {
	getMetrics().sendFailures.Inc()
}

func RecordReadTimeout() {
	getMetrics().readTimeouts.Inc()
}

func ObserveSessionDuration(duration time.Duration) {
	getMetrics().sessionDuration.Observe(duration.Seconds())
}

func SetGatewayClients(count int) {
	getMetrics().gatewayClients.Set(float64(count))
}

func RecordGatewayRequest(method string, success bool) {
	status := "error"
	if success {
		status = "success"
	}
	getMetrics().gatewayRequests.WithLabelValues(method, status).Inc()
}
