package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/JonnyWalker81/moodtrack/internal/models"
	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	color.NoColor = true
}

func sampleReport() *models.AnalysisReport {
	at := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
	return &models.AnalysisReport{
		SubjectID:  "alice",
		WindowDays: 30,
		Evolution: &models.EvolutionSummary{
			SubjectID:       "alice",
			WindowDays:      30,
			TotalDataPoints: 9,
			Metrics: map[string]models.MetricStats{
				models.MetricValence:   {Count: 3, Mean: -20, Median: -20, StdDev: 10, Min: -30, Max: -10, Range: 20},
				models.MetricIntensity: {Count: 3, Mean: 60, Median: 60, StdDev: 5, Min: 55, Max: 65, Range: 10},
			},
			Trends: map[string]models.MetricTrend{
				models.MetricValence: {Score: -50, Direction: models.TrendDeclining, Strength: models.StrengthStrong},
			},
			OverallTrend:      models.TrendDeclining,
			OverallTrendScore: -50,
			TimeSpanDays:      2,
		},
		Patterns: []models.TemporalPattern{{
			PatternType:    models.PatternTypeWeekly,
			Metric:         models.MetricValence,
			Description:    "Patrón semanal en emotional_valence",
			Significance:   0.75,
			Confidence:     0.5,
			TrendDirection: models.TrendCyclical,
		}},
		CrisisAssessment: &models.CrisisRiskAssessment{
			ID:        "a-1",
			SubjectID: "alice",
			RiskLevel: models.RiskHigh,
			RiskScore: 72.5,
			SubScores: map[models.RiskIndicator]float64{
				models.IndicatorNegativeValence:    80,
				models.IndicatorEmotionalIntensity: 60,
			},
			RiskFactors:      []string{"Presencia reciente de ansiedad"},
			ImmediateActions: []string{"Contactar al terapeuta en las próximas 24 horas"},
			Confidence:       0.4,
			ModelVersion:     "1.0",
			AssessedAt:       at,
		},
		Summary: models.AnalysisSummary{
			TotalDataPoints:  9,
			PatternsDetected: 1,
			CurrentRiskLevel: models.RiskHigh,
			OverallTrend:     models.TrendDeclining,
			Recommendations:  []string{"Continuar con seguimiento regular y monitoreo de patrones"},
		},
		GeneratedAt: at,
	}
}

func TestWriteRendersAllSections(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleReport()))
	out := buf.String()

	assert.Contains(t, out, "alice")
	assert.Contains(t, out, models.MetricValence)
	assert.Contains(t, out, models.MetricIntensity)
	assert.Contains(t, out, "-20.00")
	assert.Contains(t, out, "strong")
	assert.Contains(t, out, "Overall trend: declining")
	assert.Contains(t, out, "Patrón semanal")
	assert.Contains(t, out, "0.75")
	assert.Contains(t, out, string(models.IndicatorNegativeValence))
	assert.Contains(t, out, "Risk level: high (score 72.5")
	assert.Contains(t, out, "Presencia reciente de ansiedad")
	assert.Contains(t, out, "Recommendations:")
	assert.NotContains(t, out, "Protective factors:", "empty lists are omitted")
}

func TestWriteMetricsSortedByName(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleReport()))
	out := buf.String()

	assert.Less(t, strings.Index(out, models.MetricIntensity), strings.Index(out, models.MetricValence))
}

func TestWriteNilReport(t *testing.T) {
	assert.Error(t, Write(&bytes.Buffer{}, nil))
}

func TestRiskLabelWithoutColor(t *testing.T) {
	for _, level := range []models.RiskLevel{models.RiskLow, models.RiskModerate, models.RiskHigh, models.RiskCritical, models.RiskUnknown} {
		assert.Equal(t, string(level), RiskLabel(level))
	}
}
