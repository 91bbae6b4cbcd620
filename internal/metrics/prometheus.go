package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal counts HTTP requests by route and status
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moodtrack_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	// RequestDuration observes HTTP request latency
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "moodtrack_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// DataPointsRecorded counts points written to the longitudinal store
	DataPointsRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moodtrack_data_points_recorded_total",
			Help: "Total number of data points recorded",
		},
		[]string{"metric_type"},
	)

	// AnalysesTotal counts analyze calls by outcome (ok, no_data, error)
	AnalysesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moodtrack_analyses_total",
			Help: "Total number of longitudinal analyses",
		},
		[]string{"outcome"},
	)

	// AnalysisLatency observes end-to-end analysis time
	AnalysisLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "moodtrack_analysis_latency_seconds",
			Help:    "Longitudinal analysis latency in seconds",
			Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
	)

	// PatternsDetected counts detected temporal patterns by type
	PatternsDetected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moodtrack_patterns_detected_total",
			Help: "Total number of temporal patterns detected",
		},
		[]string{"pattern_type"},
	)

	// RiskAssessments counts crisis assessments by risk level
	RiskAssessments = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moodtrack_risk_assessments_total",
			Help: "Total number of crisis risk assessments",
		},
		[]string{"risk_level"},
	)

	// LastRiskScore holds the most recent risk score
	LastRiskScore = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "moodtrack_last_risk_score",
			Help: "Risk score of the most recent crisis assessment",
		},
	)

	// ActiveSubjects is the number of subjects holding data points
	ActiveSubjects = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "moodtrack_active_subjects",
			Help: "Number of subjects with tracked data",
		},
	)

	// SummaryCacheRequests counts evolution summary cache lookups
	SummaryCacheRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moodtrack_summary_cache_requests_total",
			Help: "Evolution summary cache lookups by result",
		},
		[]string{"result"},
	)
)
