package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/JonnyWalker81/moodtrack/internal/logger"
	"github.com/JonnyWalker81/moodtrack/internal/metrics"
	"github.com/JonnyWalker81/moodtrack/internal/models"
	"github.com/JonnyWalker81/moodtrack/internal/repository"
)

// ModelVersion tags every assessment with the risk model that produced it
const ModelVersion = "1.0"

const (
	// States and points inspected by the recency rules
	recentStatesWindow = 10
	recentFactorWindow = 5
	recentPointsWindow = 10

	// Minimum inputs before the frequency and duration indicators score
	minPointsForFrequency = 10
	minStatesForDuration  = 5

	// Risk tier lower bounds
	moderateRiskThreshold = 40.0
	highRiskThreshold     = 60.0
	criticalRiskThreshold = 80.0
)

// riskWeights is ordered so the weighted sum is deterministic
var riskWeights = []struct {
	indicator models.RiskIndicator
	weight    float64
}{
	{models.IndicatorEmotionalIntensity, 0.30},
	{models.IndicatorNegativeValence, 0.25},
	{models.IndicatorPatternDisruption, 0.20},
	{models.IndicatorFrequencyIncrease, 0.15},
	{models.IndicatorDurationExtension, 0.10},
}

// Risk factor texts
const (
	FactorHighIntensity     = "Alta intensidad emocional sostenida"
	FactorNegativeValence   = "Predominio de emociones negativas"
	FactorPatternDisruption = "Disrupción de patrones emocionales establecidos"
	FactorFrequencyIncrease = "Aumento en frecuencia de episodios negativos"
	FactorDurationExtension = "Extensión de duración de estados negativos"
	FactorRecentAnxiety     = "Presencia reciente de ansiedad"
	FactorRecentAnger       = "Episodios de ira recientes"
	FactorContradictory     = "Emociones contradictorias frecuentes"
)

// Protective factor texts
const (
	ProtectivePositiveEmotions = "Presencia de emociones positivas recientes"
	ProtectiveStability        = "Estabilidad emocional general"
	ProtectiveSelfRegulation   = "Evidencia de autorregulación emocional"
	ProtectiveEngagement       = "Participación consistente en terapia"
)

var tierActions = map[models.RiskLevel][]string{
	models.RiskCritical: {
		"Contactar inmediatamente con profesional de salud mental",
		"Implementar plan de seguridad personal",
		"Activar red de apoyo de emergencia",
		"Considerar evaluación presencial urgente",
	},
	models.RiskHigh: {
		"Programar sesión de seguimiento en 24-48 horas",
		"Implementar técnicas de grounding inmediatas",
		"Contactar con persona de apoyo designada",
		"Iniciar protocolo de crisis preventiva",
	},
	models.RiskModerate: {
		"Aumentar frecuencia de check-ins",
		"Implementar técnicas de autorregulación",
		"Revisar y ajustar plan de tratamiento",
		"Programar sesión adicional esta semana",
	},
	models.RiskLow: {
		"Mantener rutina de autocuidado",
		"Continuar con plan de tratamiento actual",
		"Monitorear síntomas regularmente",
	},
}

// factorActions are appended when the keyed risk factor is present
var factorActions = []struct {
	factor string
	action string
}{
	{FactorHighIntensity, "Practicar ejercicios de respiración 3 veces al día"},
	{FactorNegativeValence, "Implementar actividades de activación conductual"},
}

// CrisisEngine scores crisis risk with a fixed weighted model and audits
// every assessment it produces.
type CrisisEngine struct {
	repo repository.AssessmentRepository
	now  func() time.Time
}

// NewCrisisEngine creates an engine that appends assessments to repo
func NewCrisisEngine(repo repository.AssessmentRepository, opts ...Option) *CrisisEngine {
	cfg := applyOptions(opts)
	return &CrisisEngine{
		repo: repo,
		now:  cfg.now,
	}
}

// Assess scores the subject's recent points, states and patterns. It never
// fails: internal errors produce a sentinel assessment at RiskUnknown.
func (e *CrisisEngine) Assess(ctx context.Context, subjectID string, points []models.DataPoint, states []models.EmotionalState, patterns []models.TemporalPattern) (assessment *models.CrisisRiskAssessment) {
	log := logger.Ctx(ctx)

	defer func() {
		if r := recover(); r != nil {
			log.Error("crisis assessment recovered from panic",
				logger.SubjectID(subjectID),
				logger.Any("panic", r),
			)
			assessment = e.sentinel(subjectID)
		}
		e.audit(ctx, assessment)
	}()

	result, err := e.assess(subjectID, points, states, patterns)
	if err != nil {
		log.Error("crisis assessment recovered from computation error",
			logger.SubjectID(subjectID),
			logger.Err(err),
		)
		return e.sentinel(subjectID)
	}
	return result
}

// History returns recent audited assessments for a subject, newest first
func (e *CrisisEngine) History(ctx context.Context, subjectID string, limit int) ([]models.CrisisRiskAssessment, error) {
	history, err := e.repo.ListBySubject(ctx, subjectID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list assessments: %w", err)
	}
	return history, nil
}

// Get returns one audited assessment. The ID must be a UUIDv7 as issued by
// the engine; malformed IDs fail with the ValidateAssessmentID errors.
func (e *CrisisEngine) Get(ctx context.Context, subjectID, assessmentID string) (*models.CrisisRiskAssessment, error) {
	if err := ValidateAssessmentID(assessmentID); err != nil {
		return nil, err
	}
	if e.repo == nil {
		return nil, ErrAssessmentNotFound
	}

	assessment, err := e.repo.GetByID(ctx, subjectID, assessmentID)
	if errors.Is(err, repository.ErrAssessmentNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrAssessmentNotFound, assessmentID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get assessment: %w", err)
	}
	return assessment, nil
}

func (e *CrisisEngine) assess(subjectID string, points []models.DataPoint, states []models.EmotionalState, patterns []models.TemporalPattern) (*models.CrisisRiskAssessment, error) {
	subScores := calculateRiskScores(points, states, patterns)

	var total float64
	for _, w := range riskWeights {
		total += subScores[w.indicator] * w.weight
	}
	if !finite(total) {
		return nil, fmt.Errorf("%w: risk score is %v", errInternalComputation, total)
	}
	total = clamp(total, 0, 100)

	level := riskLevel(total)
	factors := identifyRiskFactors(states, subScores)

	return &models.CrisisRiskAssessment{
		ID:                NewAssessmentID(),
		SubjectID:         subjectID,
		RiskLevel:         level,
		RiskScore:         total,
		SubScores:         subScores,
		RiskFactors:       factors,
		ProtectiveFactors: identifyProtectiveFactors(points, states),
		ImmediateActions:  immediateActions(level, factors),
		Confidence:        predictionConfidence(len(points), len(states), patterns),
		ModelVersion:      ModelVersion,
		AssessedAt:        e.now(),
	}, nil
}

func (e *CrisisEngine) sentinel(subjectID string) *models.CrisisRiskAssessment {
	return &models.CrisisRiskAssessment{
		ID:                NewAssessmentID(),
		SubjectID:         subjectID,
		RiskLevel:         models.RiskUnknown,
		RiskScore:         0,
		RiskFactors:       []string{},
		ProtectiveFactors: []string{},
		ImmediateActions:  []string{},
		Confidence:        0,
		ModelVersion:      ModelVersion,
		AssessedAt:        e.now(),
	}
}

func (e *CrisisEngine) audit(ctx context.Context, assessment *models.CrisisRiskAssessment) {
	if assessment == nil {
		return
	}
	metrics.RiskAssessments.WithLabelValues(string(assessment.RiskLevel)).Inc()
	metrics.LastRiskScore.Set(assessment.RiskScore)

	if e.repo == nil {
		return
	}
	if err := e.repo.Append(ctx, assessment); err != nil {
		logger.Ctx(ctx).Warn("failed to audit crisis assessment",
			logger.SubjectID(assessment.SubjectID),
			logger.String("assessment_id", assessment.ID),
			logger.Err(err),
		)
	}
}

// =============================================================================
// Sub-scores
// =============================================================================

func calculateRiskScores(points []models.DataPoint, states []models.EmotionalState, patterns []models.TemporalPattern) map[models.RiskIndicator]float64 {
	recent := lastStates(states, recentStatesWindow)

	var intensities, valences []float64
	for _, s := range recent {
		intensities = append(intensities, s.Intensity)
		valences = append(valences, s.Valence)
	}

	scores := map[models.RiskIndicator]float64{
		models.IndicatorEmotionalIntensity: 0,
		models.IndicatorNegativeValence:    0,
		models.IndicatorPatternDisruption:  patternDisruptionScore(patterns),
		models.IndicatorFrequencyIncrease:  frequencyIncreaseScore(points),
		models.IndicatorDurationExtension:  durationExtensionScore(states),
	}
	if len(recent) > 0 {
		scores[models.IndicatorEmotionalIntensity] = clamp(mean(intensities), 0, 100)
		scores[models.IndicatorNegativeValence] = clamp(-mean(valences), 0, 100)
	}
	return scores
}

// patternDisruptionScore counts declining patterns, else highly significant ones
func patternDisruptionScore(patterns []models.TemporalPattern) float64 {
	var score float64
	for _, p := range patterns {
		if p.TrendDirection == models.TrendDeclining {
			score += 30
		} else if p.Significance > 0.7 {
			score += 20
		}
	}
	return clamp(score, 0, 100)
}

// frequencyIncreaseScore compares arrival rates of the later half of points
// against the earlier half, by insertion order.
func frequencyIncreaseScore(points []models.DataPoint) float64 {
	if len(points) < minPointsForFrequency {
		return 0
	}
	cutoff := len(points) / 2
	older, recent := points[:cutoff], points[cutoff:]

	olderFreq := float64(len(older)) / float64(atLeastOneDay(spanDays(older)))
	recentFreq := float64(len(recent)) / float64(atLeastOneDay(spanDays(recent)))
	if olderFreq == 0 {
		return 0
	}
	return clamp(100*(recentFreq-olderFreq)/olderFreq, 0, 100)
}

func atLeastOneDay(days int) int {
	if days == 0 {
		return 1
	}
	return days
}

// durationExtensionScore scores the longest run of negative states
func durationExtensionScore(states []models.EmotionalState) float64 {
	if len(states) < minStatesForDuration {
		return 0
	}
	longest, current := 0, 0
	for _, s := range states {
		if s.Valence < -20 {
			current++
			longest = max(longest, current)
		} else {
			current = 0
		}
	}
	switch {
	case longest >= 5:
		return 80
	case longest >= 3:
		return 50
	case longest >= 2:
		return 25
	default:
		return 0
	}
}

func riskLevel(score float64) models.RiskLevel {
	switch {
	case score >= criticalRiskThreshold:
		return models.RiskCritical
	case score >= highRiskThreshold:
		return models.RiskHigh
	case score >= moderateRiskThreshold:
		return models.RiskModerate
	default:
		return models.RiskLow
	}
}

// =============================================================================
// Factors and actions
// =============================================================================

// identifyRiskFactors keeps its own thresholds, separate from the sub-score
// saturation points.
func identifyRiskFactors(states []models.EmotionalState, scores map[models.RiskIndicator]float64) []string {
	factors := make([]string, 0)

	if scores[models.IndicatorEmotionalIntensity] > 70 {
		factors = append(factors, FactorHighIntensity)
	}
	if scores[models.IndicatorNegativeValence] > 60 {
		factors = append(factors, FactorNegativeValence)
	}
	if scores[models.IndicatorPatternDisruption] > 50 {
		factors = append(factors, FactorPatternDisruption)
	}
	if scores[models.IndicatorFrequencyIncrease] > 40 {
		factors = append(factors, FactorFrequencyIncrease)
	}
	if scores[models.IndicatorDurationExtension] > 30 {
		factors = append(factors, FactorDurationExtension)
	}

	var anxiety, anger bool
	contradictory := 0
	for _, s := range lastStates(states, recentFactorWindow) {
		switch s.PrimaryEmotion {
		case models.EmotionAnxiety:
			anxiety = true
		case models.EmotionAnger:
			anger = true
		}
		if len(s.ContradictoryEmotions) > 0 {
			contradictory++
		}
	}
	if anxiety {
		factors = append(factors, FactorRecentAnxiety)
	}
	if anger {
		factors = append(factors, FactorRecentAnger)
	}
	if contradictory >= 2 {
		factors = append(factors, FactorContradictory)
	}

	return factors
}

func identifyProtectiveFactors(points []models.DataPoint, states []models.EmotionalState) []string {
	factors := make([]string, 0)

	if len(states) > 0 {
		recent := lastStates(states, recentStatesWindow)

		positive := 0
		intensities := make([]float64, 0, len(recent))
		for _, s := range recent {
			if s.Valence > 20 {
				positive++
			}
			intensities = append(intensities, s.Intensity)
		}
		if positive >= 3 {
			factors = append(factors, ProtectivePositiveEmotions)
		}
		if len(intensities) >= 2 && sampleStdDev(intensities) < 15 {
			factors = append(factors, ProtectiveStability)
		}

		// successive improvements among the last six states
		improving := 0
		for i := 1; i < min(len(states), 6); i++ {
			if states[len(states)-i].Valence > states[len(states)-i-1].Valence {
				improving++
			}
		}
		if improving >= 3 {
			factors = append(factors, ProtectiveSelfRegulation)
		}
	}

	if len(points) >= recentPointsWindow {
		sessions := 0
		for _, p := range points[len(points)-recentPointsWindow:] {
			if p.Source == models.SourceSession {
				sessions++
			}
		}
		if sessions >= 7 {
			factors = append(factors, ProtectiveEngagement)
		}
	}

	return factors
}

func immediateActions(level models.RiskLevel, factors []string) []string {
	tier := tierActions[level]
	actions := make([]string, 0, len(tier)+len(factorActions))
	actions = append(actions, tier...)
	for _, fa := range factorActions {
		if slices.Contains(factors, fa.factor) {
			actions = append(actions, fa.action)
		}
	}
	return actions
}

// predictionConfidence weighs data volume, state count and pattern confidence
func predictionConfidence(pointCount, stateCount int, patterns []models.TemporalPattern) float64 {
	confidence := math.Min(0.4, float64(pointCount)/50)
	confidence += math.Min(0.3, float64(stateCount)/20)

	var patternConfidence float64
	for _, p := range patterns {
		patternConfidence += p.Confidence
	}
	patternConfidence /= float64(max(len(patterns), 1))
	confidence += math.Min(0.3, patternConfidence*0.3)

	return math.Min(1, confidence)
}

func lastStates(states []models.EmotionalState, n int) []models.EmotionalState {
	if len(states) <= n {
		return states
	}
	return states[len(states)-n:]
}
