// Package metrics exports Prometheus metrics for the receitas API:
// HTTP traffic, rate limiting and prescription extraction outcomes.
// Everything is registered with the default registry at init.
package metrics

import (
	"time"

	"github.com/giygas/receitas-api/prescription"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "receitas"

var (
	HTTPRequestTotals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"method", "path"},
	)

	HTTPRequestInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_in_flight",
			Help:      "Current in-flight requests",
		},
	)

	RateLimiterBuckets = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rate_limiter_buckets",
			Help:      "Client buckets held by the rate limiter",
		},
	)

	ExtractionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extractions_total",
			Help:      "Prescription extractions by outcome",
		},
		[]string{"outcome"},
	)

	ExtractionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "extraction_duration_seconds",
			Help:      "Time spent decoding and parsing one prescription",
			Buckets:   []float64{.0001, .0005, .001, .0025, .005, .01, .025, .05, .1},
		},
	)

	MedicationsExtracted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "medications_extracted_total",
			Help:      "Medication entries committed, by the rule that matched",
		},
		[]string{"rule"},
	)

	TokensFound = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_found_total",
			Help:      "Pharmacy tokens found, by source",
		},
		[]string{"source"},
	)

	StoredResults = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stored_results",
			Help:      "Extraction results currently held in the result store",
		},
	)
)

// Extraction outcomes
const (
	OutcomeParsed  = "parsed"
	OutcomeEmpty   = "empty"
	OutcomeInvalid = "invalid_input"
)

func init() {
	prometheus.MustRegister(
		HTTPRequestTotals,
		HTTPRequestDuration,
		HTTPRequestInFlight,
		RateLimiterBuckets,
		ExtractionsTotal,
		ExtractionDuration,
		MedicationsExtracted,
		TokensFound,
		StoredResults,
	)
}

// RecordExtraction records one successful analysis
func RecordExtraction(a prescription.Analysis, elapsed time.Duration) {
	ExtractionDuration.Observe(elapsed.Seconds())

	outcome := OutcomeParsed
	if len(a.Result.Medications) == 0 && !a.Result.HasToken() {
		outcome = OutcomeEmpty
	}
	ExtractionsTotal.WithLabelValues(outcome).Inc()

	for rule, n := range a.RuleHits {
		MedicationsExtracted.WithLabelValues(rule.String()).Add(float64(n))
	}

	if a.Result.HasToken() {
		source := "marker"
		if a.TokenFromFallback {
			source = "fallback"
		}
		TokensFound.WithLabelValues(source).Inc()
	}
}

// RecordInvalidInput counts a rejected document
func RecordInvalidInput() {
	ExtractionsTotal.WithLabelValues(OutcomeInvalid).Inc()
}
