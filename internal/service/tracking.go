package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/JonnyWalker81/moodtrack/internal/logger"
	"github.com/JonnyWalker81/moodtrack/internal/metrics"
	"github.com/JonnyWalker81/moodtrack/internal/models"
	"github.com/JonnyWalker81/moodtrack/internal/repository"
)

const (
	// MaxRecommendations caps the recommendation list of a report
	MaxRecommendations = 5

	trackingContext = "Emotional state tracking"
	trackStatusOK   = "success"
)

// Recommendation texts
const (
	RecommendDeclining      = "Intensificar intervenciones terapéuticas debido a tendencia negativa"
	RecommendImproving      = "Mantener estrategias actuales que están mostrando mejora"
	RecommendPeakHoursFmt   = "Planificar actividades de autocuidado durante horas pico: %s"
	RecommendWeekend        = "Desarrollar estrategias específicas para manejo de fines de semana"
	RecommendCrisisProtocol = "Implementar protocolo de prevención de crisis inmediatamente"
	RecommendDefault        = "Continuar con seguimiento regular y monitoreo de patrones"
)

var trackedMetrics = []string{models.MetricValence, models.MetricIntensity, models.MetricArousal}

// subjectLister is implemented by stores that can enumerate their subjects
type subjectLister interface {
	Subjects() []string
}

type trackingService struct {
	store             repository.DataPointRepository
	evolution         *EvolutionAnalyzer
	patterns          *PatternDetector
	crisis            *CrisisEngine
	states            *stateBuffer
	defaultWindowDays int
	now               func() time.Time
}

// NewTrackingService creates the façade over the analysis pipeline. The
// evolution analyzer must read from the same store.
func NewTrackingService(
	store repository.DataPointRepository,
	evolution *EvolutionAnalyzer,
	patterns *PatternDetector,
	crisis *CrisisEngine,
	opts ...Option,
) TrackingService {
	cfg := applyOptions(opts)
	return &trackingService{
		store:             store,
		evolution:         evolution,
		patterns:          patterns,
		crisis:            crisis,
		states:            newStateBuffer(DefaultStateCapacity),
		defaultWindowDays: cfg.defaultWindowDays,
		now:               cfg.now,
	}
}

// Track records the valence, intensity and arousal of one emotional state
func (s *trackingService) Track(ctx context.Context, subjectID string, state models.EmotionalState) (*models.TrackResult, error) {
	if err := validateSubjectID(subjectID); err != nil {
		return nil, err
	}
	if err := state.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidState, err)
	}

	values := map[string]float64{
		models.MetricValence:   state.Valence,
		models.MetricIntensity: state.Intensity,
		models.MetricArousal:   state.Arousal,
	}
	for _, metric := range trackedMetrics {
		s.store.Record(subjectID, models.DataPoint{
			Timestamp:  state.Timestamp,
			MetricType: metric,
			Value:      values[metric],
			Context:    trackingContext,
			Source:     models.SourceSession,
		})
		metrics.DataPointsRecorded.WithLabelValues(metric).Inc()
	}
	s.states.record(subjectID, state)
	s.updateActiveSubjects()

	logger.Ctx(ctx).Debug("emotional state tracked",
		logger.SubjectID(subjectID),
		logger.String("primary_emotion", string(state.PrimaryEmotion)),
		logger.Time("timestamp", state.Timestamp),
	)

	return &models.TrackResult{
		SubjectID:       subjectID,
		TrackedMetrics:  append([]string(nil), trackedMetrics...),
		DataPointsAdded: len(trackedMetrics),
		Timestamp:       state.Timestamp,
		Status:          trackStatusOK,
	}, nil
}

// Analyze runs evolution, pattern detection and crisis assessment over one
// snapshot of the subject's window.
func (s *trackingService) Analyze(ctx context.Context, subjectID string, windowDays int) (*models.AnalysisReport, error) {
	if err := validateSubjectID(subjectID); err != nil {
		return nil, err
	}
	if windowDays <= 0 {
		windowDays = s.defaultWindowDays
	}

	start := time.Now()
	defer func() {
		metrics.AnalysisLatency.Observe(time.Since(start).Seconds())
	}()

	points, generation := s.evolution.snapshot(subjectID, s.evolution.since(windowDays))

	evolution, err := s.evolution.summarize(ctx, subjectID, windowDays, points, generation)
	if err != nil {
		if errors.Is(err, ErrNoData) {
			metrics.AnalysesTotal.WithLabelValues("no_data").Inc()
		} else {
			metrics.AnalysesTotal.WithLabelValues("error").Inc()
		}
		return nil, err
	}

	patterns := s.patterns.Detect(ctx, subjectID, points)
	states := s.states.overlay(subjectID, ReconstructStates(points))
	assessment := s.crisis.Assess(ctx, subjectID, points, states, patterns)

	report := &models.AnalysisReport{
		SubjectID:        subjectID,
		WindowDays:       windowDays,
		Evolution:        evolution,
		Patterns:         patterns,
		CrisisAssessment: assessment,
		Summary: models.AnalysisSummary{
			TotalDataPoints:  len(points),
			PatternsDetected: len(patterns),
			CurrentRiskLevel: assessment.RiskLevel,
			OverallTrend:     evolution.OverallTrend,
			Recommendations:  buildRecommendations(evolution, patterns, assessment),
		},
		GeneratedAt: s.now(),
	}

	metrics.AnalysesTotal.WithLabelValues("ok").Inc()
	logger.Ctx(ctx).Info("longitudinal analysis completed",
		logger.SubjectID(subjectID),
		logger.Int("window_days", windowDays),
		logger.Int("data_points", len(points)),
		logger.Int("patterns", len(patterns)),
		logger.String("risk_level", string(assessment.RiskLevel)),
		logger.Float64("risk_score", assessment.RiskScore),
		logger.Duration("duration", time.Since(start)),
	)

	return report, nil
}

// Reset tears down a subject's session: points, tracked states, cached summaries and pattern history
func (s *trackingService) Reset(ctx context.Context, subjectID string) error {
	if err := validateSubjectID(subjectID); err != nil {
		return err
	}
	s.store.Reset(subjectID)
	s.states.reset(subjectID)
	s.patterns.Reset(subjectID)
	s.updateActiveSubjects()

	logger.Ctx(ctx).Info("subject reset", logger.SubjectID(subjectID))
	return nil
}

// History returns the audited crisis assessments for a subject, newest first
func (s *trackingService) History(ctx context.Context, subjectID string, limit int) ([]models.CrisisRiskAssessment, error) {
	if err := validateSubjectID(subjectID); err != nil {
		return nil, err
	}
	return s.crisis.History(ctx, subjectID, limit)
}

// Assessment returns one audited crisis assessment of the subject
func (s *trackingService) Assessment(ctx context.Context, subjectID, assessmentID string) (*models.CrisisRiskAssessment, error) {
	if err := validateSubjectID(subjectID); err != nil {
		return nil, err
	}
	return s.crisis.Get(ctx, subjectID, assessmentID)
}

func (s *trackingService) updateActiveSubjects() {
	if lister, ok := s.store.(subjectLister); ok {
		metrics.ActiveSubjects.Set(float64(len(lister.Subjects())))
	}
}

func validateSubjectID(subjectID string) error {
	if strings.TrimSpace(subjectID) == "" {
		return fmt.Errorf("%w: subject ID is required", ErrInvalidSubject)
	}
	return nil
}

// ReconstructStates rebuilds approximate emotional states from points that
// share a timestamp. Timestamps without both valence and intensity are
// skipped; arousal defaults to 50. The result is ordered by timestamp.
func ReconstructStates(points []models.DataPoint) []models.EmotionalState {
	type reading struct {
		at      time.Time
		metrics map[string]float64
	}
	byTime := make(map[int64]*reading)
	order := make([]int64, 0)

	for _, p := range points {
		key := p.Timestamp.UnixNano()
		r, ok := byTime[key]
		if !ok {
			r = &reading{at: p.Timestamp, metrics: make(map[string]float64, 3)}
			byTime[key] = r
			order = append(order, key)
		}
		r.metrics[p.MetricType] = p.Value
	}

	states := make([]models.EmotionalState, 0, len(order))
	for _, key := range order {
		r := byTime[key]
		valence, hasValence := r.metrics[models.MetricValence]
		intensity, hasIntensity := r.metrics[models.MetricIntensity]
		if !hasValence || !hasIntensity {
			continue
		}
		arousal, ok := r.metrics[models.MetricArousal]
		if !ok {
			arousal = 50
		}

		states = append(states, models.EmotionalState{
			Timestamp:      r.at,
			PrimaryEmotion: inferPrimaryEmotion(valence, arousal),
			Intensity:      intensity,
			Valence:        valence,
			Arousal:        arousal,
		})
	}

	sort.SliceStable(states, func(i, j int) bool {
		return states[i].Timestamp.Before(states[j].Timestamp)
	})
	return states
}

func inferPrimaryEmotion(valence, arousal float64) models.EmotionCategory {
	switch {
	case valence > 20:
		return models.EmotionJoy
	case valence < -40 && arousal > 60:
		return models.EmotionAnxiety
	case valence < -40:
		return models.EmotionSadness
	default:
		return models.EmotionContentment
	}
}

func buildRecommendations(evolution *models.EvolutionSummary, patterns []models.TemporalPattern, assessment *models.CrisisRiskAssessment) []string {
	recs := make([]string, 0, MaxRecommendations)
	add := func(r string) {
		if !slices.Contains(recs, r) {
			recs = append(recs, r)
		}
	}

	switch evolution.OverallTrend {
	case models.TrendDeclining:
		add(RecommendDeclining)
	case models.TrendImproving:
		add(RecommendImproving)
	}

	for _, p := range patterns {
		switch {
		case p.PatternType == models.PatternTypeDaily && len(p.PeakLabels) > 0:
			add(fmt.Sprintf(RecommendPeakHoursFmt, strings.Join(p.PeakLabels, ", ")))
		case p.PatternType == models.PatternTypeWeekly:
			add(RecommendWeekend)
		}
	}

	if assessment.RiskLevel.AtLeast(models.RiskHigh) {
		add(RecommendCrisisProtocol)
		for _, action := range assessment.ImmediateActions[:min(3, len(assessment.ImmediateActions))] {
			add(action)
		}
	}

	if len(recs) == 0 {
		add(RecommendDefault)
	}
	if len(recs) > MaxRecommendations {
		recs = recs[:MaxRecommendations]
	}
	return recs
}
