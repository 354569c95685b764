// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package metrics exposes Prometheus collectors for the authorization core.

Collectors are owned by a [Recorder] registered against an injected
registry, so tests can use a private registry and production wires the
default one. A nil *Recorder is valid and records nothing.
*/
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Decision stages.
const (
	StageAuthenticate = "authenticate"
	StageRBAC         = "rbac"
	StageTenant       = "tenant"
)

// Outcomes shared by decisions and token operations.
const (
	OutcomeAllow = "allow"
	OutcomeDeny  = "deny"
	OutcomeError = "error"
	OutcomeOK    = "ok"
	OutcomeRace  = "race"
)

// Cache lookup results.
const (
	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheError = "error"
)

// Recorder owns every collector of the service.
type Recorder struct {
	authDecisions *prometheus.CounterVec
	cacheLookups  *prometheus.CounterVec
	tokenOps      *prometheus.CounterVec

	httpInFlight        prometheus.Gauge
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// New creates the collectors and registers them with registerer.
func New(registerer prometheus.Registerer) *Recorder {
	recorder := &Recorder{
		authDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_decisions_total",
			Help: "Access-control decisions by stage and outcome.",
		}, []string{"stage", "outcome"}),

		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "permission_cache_lookups_total",
			Help: "Permission snapshot lookups by result.",
		}, []string{"result"}),

		tokenOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "token_operations_total",
			Help: "Token issue/refresh/revoke operations by outcome.",
		}, []string{"operation", "outcome"}),

		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "http_in_flight_requests",
			Help: "In-flight HTTP requests.",
		}),

		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "route", "status"}),

		httpRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}

	registerer.MustRegister(
		recorder.authDecisions,
		recorder.cacheLookups,
		recorder.tokenOps,
		recorder.httpInFlight,
		recorder.httpRequestsTotal,
		recorder.httpRequestDuration,
	)

	return recorder
}

// AuthDecision counts one access-control decision.
func (r *Recorder) AuthDecision(stage, outcome string) {
	if r == nil {
		return
	}
	r.authDecisions.WithLabelValues(stage, outcome).Inc()
}

// CacheLookup counts one permission snapshot lookup.
func (r *Recorder) CacheLookup(result string) {
	if r == nil {
		return
	}
	r.cacheLookups.WithLabelValues(result).Inc()
}

// TokenOperation counts one token lifecycle operation.
func (r *Recorder) TokenOperation(operation, outcome string) {
	if r == nil {
		return
	}
	r.tokenOps.WithLabelValues(operation, outcome).Inc()
}

// Instrument measures request rate, latency and concurrency.
//
// The chi route pattern is used as label so path parameters do not explode
// the series cardinality.
func (r *Recorder) Instrument(next http.Handler) http.Handler {
	if r == nil {
		return next
	}
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		r.httpInFlight.Inc()
		defer r.httpInFlight.Dec()

		start := time.Now()
		recorder := &statusWriter{ResponseWriter: writer, code: http.StatusOK}
		next.ServeHTTP(recorder, request)

		route := "unmatched"
		if routeContext := chi.RouteContext(request.Context()); routeContext != nil {
			if pattern := routeContext.RoutePattern(); pattern != "" {
				route = pattern
			}
		}

		status := strconv.Itoa(recorder.code)
		r.httpRequestDuration.WithLabelValues(request.Method, route, status).Observe(time.Since(start).Seconds())
		r.httpRequestsTotal.WithLabelValues(request.Method, route, status).Inc()
	})
}

// Handler serves the metrics of gatherer in the Prometheus text format.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
