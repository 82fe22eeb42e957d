package metrics

/*
domcheck — domain availability checks over DNS and WHOIS
Copyright (C) 2025  Pepijn van der Stap <rxtls@vanderstap.info>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU Affero General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU Affero General Public License for more details.

You should have received a copy of the GNU Affero General Public License
along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

var (
	registry           = prometheus.NewRegistry()
	defaultRegisterer  = promauto.With(registry)
	metricsInitialized sync.Once
	metricsEnabled     atomic.Bool
	metricsServer      *http.Server
)

// Metrics contains all the Prometheus metrics for the application
type Metrics struct {
	// WHOIS transport metrics
	WhoisQueryDuration *prometheus.HistogramVec
	WhoisQueriesTotal  *prometheus.CounterVec
	WhoisResponseBytes *prometheus.HistogramVec
	WhoisReferrals     *prometheus.CounterVec

	// DNS probe metrics
	DNSProbeDuration *prometheus.HistogramVec
	DNSProbesTotal   *prometheus.CounterVec

	// Classification metrics
	ClassificationsTotal *prometheus.CounterVec

	// Scanner metrics
	ScanDuration        prometheus.Histogram
	ScanCandidatesTotal *prometheus.CounterVec
	ScanInFlight        prometheus.Gauge
	ScanRateLimit       prometheus.Gauge
	ScanRateLimitDelay  prometheus.Histogram
	WorkerPanics        *prometheus.CounterVec

	// HTTP front end metrics
	HTTPRequestsTotal *prometheus.CounterVec
}

// Global instance of metrics
var globalMetrics *Metrics
var metricsOnce sync.Once

// GetMetrics returns the global metrics instance
func GetMetrics() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = newMetrics()
	})
	return globalMetrics
}

// EnableMetrics enables metrics collection
func EnableMetrics() {
	metricsEnabled.Store(true)
}

// IsMetricsEnabled returns whether metrics collection is enabled
func IsMetricsEnabled() bool {
	return metricsEnabled.Load()
}

// Registry exposes the dedicated registry, mostly for tests.
func Registry() *prometheus.Registry {
	return registry
}

// newMetrics creates and registers all metrics
func newMetrics() *Metrics {
	buckets := []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
	byteBuckets := []float64{0, 64, 256, 1024, 4 * 1024, 16 * 1024, 64 * 1024, 256 * 1024, 1024 * 1024}

	return &Metrics{
		WhoisQueryDuration: defaultRegisterer.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "domcheck_whois_query_duration_seconds",
				Help:    "Time spent on a single WHOIS round-trip",
				Buckets: buckets,
			},
			[]string{"server"},
		),
		WhoisQueriesTotal: defaultRegisterer.NewCounterVec(
			prometheus.CounterOpts{
				Name: "domcheck_whois_queries_total",
				Help: "Total number of WHOIS queries by outcome",
			},
			[]string{"server", "outcome"},
		),
		WhoisResponseBytes: defaultRegisterer.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "domcheck_whois_response_bytes",
				Help:    "Size of WHOIS responses",
				Buckets: byteBuckets,
			},
			[]string{"server"},
		),
		WhoisReferrals: defaultRegisterer.NewCounterVec(
			prometheus.CounterOpts{
				Name: "domcheck_whois_referrals_total",
				Help: "How the authoritative WHOIS server was chosen",
			},
			[]string{"source"},
		),

		DNSProbeDuration: defaultRegisterer.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "domcheck_dns_probe_duration_seconds",
				Help:    "Time spent on a DNS record existence probe",
				Buckets: buckets,
			},
			[]string{"type"},
		),
		DNSProbesTotal: defaultRegisterer.NewCounterVec(
			prometheus.CounterOpts{
				Name: "domcheck_dns_probes_total",
				Help: "Total number of DNS probes by record type and outcome",
			},
			[]string{"type", "outcome"},
		),

		ClassificationsTotal: defaultRegisterer.NewCounterVec(
			prometheus.CounterOpts{
				Name: "domcheck_classifications_total",
				Help: "Availability verdicts by verdict and reason",
			},
			[]string{"verdict", "reason"},
		),

		ScanDuration: defaultRegisterer.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "domcheck_scan_duration_seconds",
				Help:    "Time spent scanning a subdomain wordlist",
				Buckets: []float64{.1, .5, 1, 2.5, 5, 10, 30, 60, 120},
			},
		),
		ScanCandidatesTotal: defaultRegisterer.NewCounterVec(
			prometheus.CounterOpts{
				Name: "domcheck_scan_candidates_total",
				Help: "Subdomain candidates scanned by availability guess",
			},
			[]string{"guess"},
		),
		ScanInFlight: defaultRegisterer.NewGauge(
			prometheus.GaugeOpts{
				Name: "domcheck_scan_in_flight",
				Help: "Candidates currently being probed",
			},
		),
		ScanRateLimit: defaultRegisterer.NewGauge(
			prometheus.GaugeOpts{
				Name: "domcheck_scan_rate_limit",
				Help: "Current candidate dispatch rate limit (candidates/s)",
			},
		),
		ScanRateLimitDelay: defaultRegisterer.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "domcheck_scan_rate_limit_delay_seconds",
				Help:    "Time spent waiting on the dispatch rate limiter",
				Buckets: buckets,
			},
		),
		WorkerPanics: defaultRegisterer.NewCounterVec(
			prometheus.CounterOpts{
				Name: "domcheck_worker_panics_total",
				Help: "Total number of panics recovered by a worker",
			},
			[]string{"worker_id"},
		),

		HTTPRequestsTotal: defaultRegisterer.NewCounterVec(
			prometheus.CounterOpts{
				Name: "domcheck_http_requests_total",
				Help: "HTTP API requests by path and status code",
			},
			[]string{"path", "code"},
		),
	}
}

// StartMetricsServer starts an HTTP server to expose Prometheus metrics
func StartMetricsServer(addr string) error {
	if !IsMetricsEnabled() {
		return nil
	}
	if addr == "" {
		return errors.New("metrics: empty listen address")
	}

	metricsInitialized.Do(func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

		metricsServer = &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}

		go func() {
			log.Info().Str("addr", addr).Msg("Starting metrics server")
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("Metrics server error")
			}
		}()
	})

	return nil
}

// ShutdownMetricsServer gracefully shuts down the metrics server
func ShutdownMetricsServer(ctx context.Context) error {
	if metricsServer != nil {
		log.Info().Msg("Shutting down metrics server")
		return metricsServer.Shutdown(ctx)
	}
	return nil
}

// MeasureDuration is a helper to measure the duration of a function
func MeasureDuration(histogram *prometheus.HistogramVec, labels prometheus.Labels) func() {
	if !IsMetricsEnabled() {
		return func() {}
	}

	start := time.Now()
	return func() {
		histogram.With(labels).Observe(time.Since(start).Seconds())
	}
}

// ObserveWhoisQuery records a finished WHOIS round-trip.
func (m *Metrics) ObserveWhoisQuery(server, outcome string, bytes int, d time.Duration) {
	if !IsMetricsEnabled() {
		return
	}
	m.WhoisQueryDuration.WithLabelValues(server).Observe(d.Seconds())
	m.WhoisQueriesTotal.WithLabelValues(server, outcome).Inc()
	m.WhoisResponseBytes.WithLabelValues(server).Observe(float64(bytes))
}

// RecordReferral records whether the authoritative server came from the IANA
// referral, the fallback table, or neither.
func (m *Metrics) RecordReferral(source string) {
	if !IsMetricsEnabled() {
		return
	}
	m.WhoisReferrals.WithLabelValues(source).Inc()
}

// ObserveDNSProbe records a finished DNS existence probe.
func (m *Metrics) ObserveDNSProbe(rrType, outcome string, d time.Duration) {
	if !IsMetricsEnabled() {
		return
	}
	m.DNSProbeDuration.WithLabelValues(rrType).Observe(d.Seconds())
	m.DNSProbesTotal.WithLabelValues(rrType, outcome).Inc()
}

// RecordClassification records an availability verdict.
func (m *Metrics) RecordClassification(available bool, reason string) {
	if !IsMetricsEnabled() {
		return
	}
	verdict := "registered"
	if available {
		verdict = "available"
	}
	m.ClassificationsTotal.WithLabelValues(verdict, reason).Inc()
}

// RecordCandidate records one scanned subdomain candidate.
func (m *Metrics) RecordCandidate(availableGuess bool) {
	if !IsMetricsEnabled() {
		return
	}
	guess := "taken"
	if availableGuess {
		guess = "available"
	}
	m.ScanCandidatesTotal.WithLabelValues(guess).Inc()
}

// UpdateScanRateLimit updates the dispatch rate gauge.
func (m *Metrics) UpdateScanRateLimit(limit float64) {
	if !IsMetricsEnabled() {
		return
	}
	m.ScanRateLimit.Set(limit)
}
