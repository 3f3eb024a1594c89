// Package metrics provides Prometheus instrumentation for the engine.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// CommandsTotal counts executed commands by name and outcome.
	CommandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "coinmint_commands_total",
		Help: "Total commands executed",
	}, []string{"command", "outcome"})

	// CommandLatency tracks command resolution latency.
	CommandLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "coinmint_command_latency_seconds",
		Help:    "Command resolution latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"command"})

	// MarketTicksTotal counts simulator ticks by kind.
	MarketTicksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "coinmint_market_ticks_total",
		Help: "Market simulator ticks applied",
	}, []string{"kind"})

	// ShockEventsTotal counts injected price shocks by direction.
	ShockEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "coinmint_shock_events_total",
		Help: "Market shock events injected",
	}, []string{"direction"})

	// ActiveSessions tracks live blackjack sessions.
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "coinmint_active_sessions",
		Help: "Live blackjack sessions",
	})

	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "coinmint_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})
)

// ObserveCommand records one command execution.
func ObserveCommand(name string, ok bool, d time.Duration) {
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	CommandsTotal.WithLabelValues(name, outcome).Inc()
	CommandLatency.WithLabelValues(name).Observe(d.Seconds())
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware records request counts per route.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wrapped := &statusWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(wrapped, r)
		HTTPRequestsTotal.WithLabelValues(r.Method, r.URL.Path, strconv.Itoa(wrapped.status)).Inc()
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
