package service

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/JonnyWalker81/moodtrack/internal/models"
	"github.com/JonnyWalker81/moodtrack/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failingAssessmentRepository rejects every write
type failingAssessmentRepository struct {
	appendCalls int
}

func (f *failingAssessmentRepository) Append(ctx context.Context, assessment *models.CrisisRiskAssessment) error {
	f.appendCalls++
	return errors.New("disk full")
}

func (f *failingAssessmentRepository) ListBySubject(ctx context.Context, subjectID string, limit int) ([]models.CrisisRiskAssessment, error) {
	return nil, errors.New("disk full")
}

func (f *failingAssessmentRepository) GetByID(ctx context.Context, subjectID, id string) (*models.CrisisRiskAssessment, error) {
	return nil, errors.New("disk full")
}

func (f *failingAssessmentRepository) Close() error { return nil }

func distressedStates(n int) []models.EmotionalState {
	states := make([]models.EmotionalState, n)
	for i := range states {
		states[i] = models.EmotionalState{
			Timestamp:      fixedNow.Add(-time.Duration(n-i) * time.Hour),
			PrimaryEmotion: models.EmotionSadness,
			Valence:        -90,
			Intensity:      95,
			Arousal:        40,
		}
	}
	return states
}

// acceleratingPoints spreads the first half over nine days and packs the
// second half into a single day.
func acceleratingPoints() []models.DataPoint {
	var points []models.DataPoint
	start := fixedNow.AddDate(0, 0, -12)
	for i := 0; i < 10; i++ {
		points = append(points, metricPoint(models.MetricValence, start.AddDate(0, 0, i), -90))
	}
	for i := 0; i < 10; i++ {
		points = append(points, metricPoint(models.MetricValence, fixedNow.Add(-time.Duration(10-i)*time.Hour), -90))
	}
	return points
}

func decliningPatterns(n int) []models.TemporalPattern {
	patterns := make([]models.TemporalPattern, n)
	for i := range patterns {
		patterns[i] = models.TemporalPattern{
			PatternType:    models.PatternTypeDaily,
			Metric:         models.MetricValence,
			TrendDirection: models.TrendDeclining,
			Confidence:     0.5,
		}
	}
	return patterns
}

func TestAssessCriticalRisk(t *testing.T) {
	repo := repository.NewMemoryAssessmentRepository()
	e := NewCrisisEngine(repo, WithClock(fixedClock))

	a := e.Assess(context.Background(), "alice", acceleratingPoints(), distressedStates(10), decliningPatterns(4))

	require.NotNil(t, a)
	assert.Equal(t, models.RiskCritical, a.RiskLevel)
	assert.InDelta(t, 94.0, a.RiskScore, 1e-9)
	assert.Contains(t, a.RiskFactors, FactorHighIntensity)
	assert.Contains(t, a.RiskFactors, FactorNegativeValence)
	assert.Contains(t, a.RiskFactors, FactorPatternDisruption)
	assert.Contains(t, a.RiskFactors, FactorFrequencyIncrease)
	assert.Contains(t, a.RiskFactors, FactorDurationExtension)

	assert.Equal(t, []string{
		"Contactar inmediatamente con profesional de salud mental",
		"Implementar plan de seguridad personal",
		"Activar red de apoyo de emergencia",
		"Considerar evaluación presencial urgente",
		"Practicar ejercicios de respiración 3 veces al día",
		"Implementar actividades de activación conductual",
	}, a.ImmediateActions)

	assert.Equal(t, 95.0, a.SubScores[models.IndicatorEmotionalIntensity])
	assert.Equal(t, 90.0, a.SubScores[models.IndicatorNegativeValence])
	assert.Equal(t, 100.0, a.SubScores[models.IndicatorPatternDisruption])
	assert.Equal(t, 100.0, a.SubScores[models.IndicatorFrequencyIncrease])
	assert.Equal(t, 80.0, a.SubScores[models.IndicatorDurationExtension])

	assert.Equal(t, ModelVersion, a.ModelVersion)
	assert.Equal(t, fixedNow, a.AssessedAt)
	assert.NoError(t, ValidateAssessmentID(a.ID))

	history, err := e.History(context.Background(), "alice", 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, a.ID, history[0].ID)
}

func TestAssessDistressedStatesAlone(t *testing.T) {
	e := NewCrisisEngine(repository.NewMemoryAssessmentRepository(), WithClock(fixedClock))

	a := e.Assess(context.Background(), "alice", nil, distressedStates(10), nil)

	// 95*0.30 + 90*0.25 + 80*0.10
	assert.InDelta(t, 59.0, a.RiskScore, 1e-9)
	assert.Equal(t, models.RiskModerate, a.RiskLevel)
	assert.Contains(t, a.RiskFactors, FactorHighIntensity)
}

func TestAssessEmptyInputIsLowRisk(t *testing.T) {
	e := NewCrisisEngine(repository.NewMemoryAssessmentRepository(), WithClock(fixedClock))

	a := e.Assess(context.Background(), "alice", nil, nil, nil)

	assert.Equal(t, models.RiskLow, a.RiskLevel)
	assert.Equal(t, 0.0, a.RiskScore)
	assert.Equal(t, 0.0, a.Confidence)
	assert.Empty(t, a.RiskFactors)
	assert.Empty(t, a.ProtectiveFactors)
	assert.Len(t, a.ImmediateActions, 3)
}

func TestAssessRecoversFromNonFiniteInput(t *testing.T) {
	repo := repository.NewMemoryAssessmentRepository()
	e := NewCrisisEngine(repo, WithClock(fixedClock))

	states := distressedStates(3)
	states[1].Intensity = math.NaN()

	a := e.Assess(context.Background(), "alice", nil, states, nil)

	assert.Equal(t, models.RiskUnknown, a.RiskLevel)
	assert.Equal(t, 0.0, a.RiskScore)
	assert.Equal(t, 0.0, a.Confidence)
	assert.Equal(t, "alice", a.SubjectID)

	history, err := repo.ListBySubject(context.Background(), "alice", 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, models.RiskUnknown, history[0].RiskLevel)
}

func TestAssessSurvivesAuditFailure(t *testing.T) {
	repo := &failingAssessmentRepository{}
	e := NewCrisisEngine(repo, WithClock(fixedClock))

	a := e.Assess(context.Background(), "alice", nil, distressedStates(5), nil)
	require.NotNil(t, a)
	assert.NotEqual(t, models.RiskUnknown, a.RiskLevel)
	assert.Equal(t, 1, repo.appendCalls)

	_, err := e.History(context.Background(), "alice", 0)
	assert.Error(t, err)
}

func TestRiskScoreAlwaysInRange(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	e := NewCrisisEngine(repository.NewMemoryAssessmentRepository(), WithClock(fixedClock))
	directions := []models.TrendDirection{models.TrendDeclining, models.TrendImproving, models.TrendStable}

	for iter := 0; iter < 200; iter++ {
		states := make([]models.EmotionalState, rng.Intn(25))
		for i := range states {
			states[i] = models.EmotionalState{
				Timestamp:      fixedNow.Add(time.Duration(i) * time.Minute),
				PrimaryEmotion: models.EmotionContentment,
				Valence:        rng.Float64()*200 - 100,
				Intensity:      rng.Float64() * 100,
				Arousal:        rng.Float64() * 100,
			}
		}
		points := make([]models.DataPoint, rng.Intn(60))
		for i := range points {
			points[i] = metricPoint(models.MetricValence, fixedNow.Add(-time.Duration(rng.Intn(30*24))*time.Hour), rng.Float64()*200-100)
		}
		patterns := make([]models.TemporalPattern, rng.Intn(8))
		for i := range patterns {
			patterns[i] = models.TemporalPattern{
				TrendDirection: directions[rng.Intn(len(directions))],
				Significance:   rng.Float64(),
				Confidence:     rng.Float64(),
			}
		}

		a := e.Assess(context.Background(), "fuzz", points, states, patterns)
		require.GreaterOrEqual(t, a.RiskScore, 0.0)
		require.LessOrEqual(t, a.RiskScore, 100.0)
		require.GreaterOrEqual(t, a.Confidence, 0.0)
		require.LessOrEqual(t, a.Confidence, 1.0)
		for indicator, score := range a.SubScores {
			require.GreaterOrEqual(t, score, 0.0, indicator)
			require.LessOrEqual(t, score, 100.0, indicator)
		}
	}
}

func TestRiskLevelThresholds(t *testing.T) {
	tests := []struct {
		score float64
		want  models.RiskLevel
	}{
		{0, models.RiskLow},
		{39.99, models.RiskLow},
		{40, models.RiskModerate},
		{59.99, models.RiskModerate},
		{60, models.RiskHigh},
		{79.99, models.RiskHigh},
		{80, models.RiskCritical},
		{100, models.RiskCritical},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, riskLevel(tt.score), "score %v", tt.score)
	}
}

func TestPatternDisruptionScore(t *testing.T) {
	patterns := []models.TemporalPattern{
		{TrendDirection: models.TrendDeclining, Significance: 0.9},
		{TrendDirection: models.TrendVariable, Significance: 0.8},
		{TrendDirection: models.TrendStable, Significance: 0.2},
	}
	// a declining pattern counts once even when it is also significant
	assert.Equal(t, 50.0, patternDisruptionScore(patterns))
	assert.Equal(t, 0.0, patternDisruptionScore(nil))
	assert.Equal(t, 100.0, patternDisruptionScore(decliningPatterns(5)))
}

func TestFrequencyIncreaseScore(t *testing.T) {
	assert.Equal(t, 0.0, frequencyIncreaseScore(acceleratingPoints()[:9]))
	assert.Equal(t, 100.0, frequencyIncreaseScore(acceleratingPoints()))

	var steady []models.DataPoint
	for i := 0; i < 12; i++ {
		steady = append(steady, metricPoint(models.MetricValence, fixedNow.AddDate(0, 0, -12+i), 0))
	}
	assert.Equal(t, 0.0, frequencyIncreaseScore(steady))
}

func TestDurationExtensionScore(t *testing.T) {
	states := func(valences ...float64) []models.EmotionalState {
		out := make([]models.EmotionalState, len(valences))
		for i, v := range valences {
			out[i] = models.EmotionalState{Valence: v}
		}
		return out
	}

	assert.Equal(t, 0.0, durationExtensionScore(states(-50, -50, -50, -50)), "fewer than five states")
	assert.Equal(t, 25.0, durationExtensionScore(states(-50, -50, 10, 10, 10)))
	assert.Equal(t, 50.0, durationExtensionScore(states(10, -50, -50, -50, 10)))
	assert.Equal(t, 80.0, durationExtensionScore(states(-30, -30, -30, -30, -30)))
	assert.Equal(t, 0.0, durationExtensionScore(states(-50, 10, -50, 10, -50)))
}

func TestRecentStateRiskFactors(t *testing.T) {
	states := []models.EmotionalState{
		{PrimaryEmotion: models.EmotionAnger},
		{PrimaryEmotion: models.EmotionJoy},
		{PrimaryEmotion: models.EmotionAnxiety, ContradictoryEmotions: []string{"joy-sadness"}},
		{PrimaryEmotion: models.EmotionJoy, ContradictoryEmotions: []string{"anger-contentment"}},
		{PrimaryEmotion: models.EmotionJoy},
		{PrimaryEmotion: models.EmotionJoy},
	}
	factors := identifyRiskFactors(states, map[models.RiskIndicator]float64{})

	// the anger episode is outside the last five states
	assert.Equal(t, []string{FactorRecentAnxiety, FactorContradictory}, factors)
}

func TestProtectiveFactors(t *testing.T) {
	var states []models.EmotionalState
	for i, v := range []float64{-30, -10, 5, 25, 40, 60} {
		states = append(states, models.EmotionalState{
			Timestamp: fixedNow.Add(time.Duration(i) * time.Hour),
			Valence:   v,
			Intensity: 50 + float64(i),
		})
	}
	var points []models.DataPoint
	for i := 0; i < 10; i++ {
		p := metricPoint(models.MetricValence, fixedNow.Add(time.Duration(i)*time.Minute), 10)
		if i < 2 {
			p.Source = models.SourceDailyCheckin
		}
		points = append(points, p)
	}

	factors := identifyProtectiveFactors(points, states)
	assert.Equal(t, []string{
		ProtectivePositiveEmotions,
		ProtectiveStability,
		ProtectiveSelfRegulation,
		ProtectiveEngagement,
	}, factors)

	assert.Empty(t, identifyProtectiveFactors(points[:9], states[:1]))
}

func TestPredictionConfidence(t *testing.T) {
	full := []models.TemporalPattern{{Confidence: 1}, {Confidence: 1}}
	assert.InDelta(t, 1.0, predictionConfidence(50, 20, full), 1e-9)
	assert.InDelta(t, 1.0, predictionConfidence(500, 200, full), 1e-9)
	assert.InDelta(t, 0.2, predictionConfidence(10, 0, nil), 1e-9)
	assert.InDelta(t, 0.4, predictionConfidence(25, 0, nil), 1e-9)
	assert.InDelta(t, 0.2+0.15, predictionConfidence(0, 4, []models.TemporalPattern{{Confidence: 0.5}}), 1e-9)
}
