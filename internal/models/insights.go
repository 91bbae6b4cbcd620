package models

import "time"

// PatternType represents the time scale a pattern recurs on
type PatternType string

const (
	PatternTypeDaily    PatternType = "daily"
	PatternTypeWeekly   PatternType = "weekly"
	PatternTypeSeasonal PatternType = "seasonal"
)

// TrendDirection represents the direction of a trend or pattern
type TrendDirection string

const (
	TrendImproving TrendDirection = "improving"
	TrendDeclining TrendDirection = "declining"
	TrendStable    TrendDirection = "stable"
	TrendVariable  TrendDirection = "variable"
	TrendCyclical  TrendDirection = "cyclical"
)

// TrendStrength labels the magnitude of a trend score
type TrendStrength string

const (
	StrengthStrong   TrendStrength = "strong"
	StrengthModerate TrendStrength = "moderate"
	StrengthWeak     TrendStrength = "weak"
)

// RiskLevel is the discrete tier derived from a continuous risk score
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskModerate RiskLevel = "moderate"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
	// RiskUnknown marks an assessment recovered from an internal failure
	RiskUnknown RiskLevel = "unknown"
)

// AtLeast reports whether l is at or above other in severity.
// RiskUnknown is never at least anything.
func (l RiskLevel) AtLeast(other RiskLevel) bool {
	return l.rank() >= other.rank() && l.rank() > 0
}

func (l RiskLevel) rank() int {
	switch l {
	case RiskLow:
		return 1
	case RiskModerate:
		return 2
	case RiskHigh:
		return 3
	case RiskCritical:
		return 4
	default:
		return 0
	}
}

// RiskIndicator names one weighted component of the crisis risk model
type RiskIndicator string

const (
	IndicatorEmotionalIntensity RiskIndicator = "emotional_intensity"
	IndicatorNegativeValence    RiskIndicator = "negative_valence"
	IndicatorPatternDisruption  RiskIndicator = "pattern_disruption"
	IndicatorFrequencyIncrease  RiskIndicator = "frequency_increase"
	IndicatorDurationExtension  RiskIndicator = "duration_extension"
)

// TemporalPattern is a recurring high/low detected in a subject's data
type TemporalPattern struct {
	PatternType    PatternType    `json:"pattern_type"`
	Metric         string         `json:"metric"`
	Description    string         `json:"description"`
	Confidence     float64        `json:"confidence"`
	PeakLabels     []string       `json:"peak_labels"`
	LowLabels      []string       `json:"low_labels"`
	TrendDirection TrendDirection `json:"trend_direction"`
	Significance   float64        `json:"significance"`
	DetectedAt     time.Time      `json:"detected_at"`
}

// CrisisRiskAssessment is the weighted risk verdict for a subject
type CrisisRiskAssessment struct {
	ID                string                    `json:"id"`
	SubjectID         string                    `json:"subject_id"`
	RiskLevel         RiskLevel                 `json:"risk_level"`
	RiskScore         float64                   `json:"risk_score"`
	SubScores         map[RiskIndicator]float64 `json:"sub_scores,omitempty"`
	RiskFactors       []string                  `json:"risk_factors"`
	ProtectiveFactors []string                  `json:"protective_factors"`
	ImmediateActions  []string                  `json:"immediate_actions"`
	Confidence        float64                   `json:"confidence"`
	ModelVersion      string                    `json:"model_version"`
	AssessedAt        time.Time                 `json:"assessed_at"`
}

// MetricStats holds descriptive statistics for one metric
type MetricStats struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Range  float64 `json:"range"`
}

// MetricTrend holds the normalized linear trend of one metric
type MetricTrend struct {
	Score     float64        `json:"trend_score"`
	Direction TrendDirection `json:"direction"`
	Strength  TrendStrength  `json:"strength"`
}

// EvolutionSummary describes how a subject's metrics evolved over a window
type EvolutionSummary struct {
	SubjectID           string                 `json:"subject_id"`
	WindowDays          int                    `json:"window_days"`
	TotalDataPoints     int                    `json:"total_data_points"`
	Metrics             map[string]MetricStats `json:"metrics"`
	Trends              map[string]MetricTrend `json:"trends"`
	OverallTrend        TrendDirection         `json:"overall_trend"`
	OverallTrendScore   float64                `json:"overall_trend_score"`
	TimeSpanDays        int                    `json:"time_span_days"`
	AveragePointsPerDay float64                `json:"average_points_per_day"`
	Series              map[string][]DataPoint `json:"series"`
	GeneratedAt         time.Time              `json:"generated_at"`
}

// AnalysisSummary is the short digest included in an analysis report
type AnalysisSummary struct {
	TotalDataPoints  int            `json:"total_data_points"`
	PatternsDetected int            `json:"patterns_detected"`
	CurrentRiskLevel RiskLevel      `json:"current_risk_level"`
	OverallTrend     TrendDirection `json:"overall_trend"`
	Recommendations  []string       `json:"recommendations"`
}

// AnalysisReport bundles evolution, patterns and crisis risk for a subject
type AnalysisReport struct {
	SubjectID        string                `json:"subject_id"`
	WindowDays       int                   `json:"window_days"`
	Evolution        *EvolutionSummary     `json:"emotional_evolution"`
	Patterns         []TemporalPattern     `json:"temporal_patterns"`
	CrisisAssessment *CrisisRiskAssessment `json:"crisis_risk_assessment"`
	Summary          AnalysisSummary       `json:"summary"`
	GeneratedAt      time.Time             `json:"generated_at"`
}
