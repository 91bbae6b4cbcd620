package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/JonnyWalker81/moodtrack/internal/logger"
	"github.com/JonnyWalker81/moodtrack/internal/metrics"
	"github.com/JonnyWalker81/moodtrack/internal/models"
	"github.com/JonnyWalker81/moodtrack/internal/repository"
)

const (
	// DefaultWindowDays is the lookback used when a caller passes no window
	DefaultWindowDays = 30

	// Minimum values a metric needs before a trend is fitted
	MinValuesForTrend = 3

	// Normalized trend score thresholds
	TrendThresholdStrong   = 15.0
	TrendThresholdModerate = 5.0
	// |score| at or below this is stable
	TrendThresholdStable = 5.0
)

// EvolutionAnalyzer computes per-metric statistics and trends for a subject
type EvolutionAnalyzer struct {
	store repository.DataPointRepository
	cache repository.SummaryCache
	now   func() time.Time
}

// NewEvolutionAnalyzer creates an analyzer over store. If store also caches
// summaries, results are reused until the subject is written to.
func NewEvolutionAnalyzer(store repository.DataPointRepository, opts ...Option) *EvolutionAnalyzer {
	cfg := applyOptions(opts)
	a := &EvolutionAnalyzer{
		store: store,
		now:   cfg.now,
	}
	if cache, ok := store.(repository.SummaryCache); ok {
		a.cache = cache
	}
	return a
}

// Summarize returns the evolution summary for the last windowDays days
func (a *EvolutionAnalyzer) Summarize(ctx context.Context, subjectID string, windowDays int) (*models.EvolutionSummary, error) {
	windowDays = normalizeWindow(windowDays)
	points, generation := a.snapshot(subjectID, a.since(windowDays))
	return a.summarize(ctx, subjectID, windowDays, points, generation)
}

func (a *EvolutionAnalyzer) since(windowDays int) time.Time {
	return a.now().AddDate(0, 0, -windowDays)
}

// snapshot reads the window together with the generation it was read at
func (a *EvolutionAnalyzer) snapshot(subjectID string, since time.Time) ([]models.DataPoint, uint64) {
	if a.cache != nil {
		return a.cache.Snapshot(subjectID, since)
	}
	return a.store.Query(subjectID, since), 0
}

func (a *EvolutionAnalyzer) summarize(ctx context.Context, subjectID string, windowDays int, points []models.DataPoint, generation uint64) (*models.EvolutionSummary, error) {
	log := logger.Ctx(ctx)
	key := strconv.Itoa(windowDays)

	if a.cache != nil {
		// A shorter snapshot means the window slid past points the cached
		// summary still counts.
		if cached, ok := a.cache.CachedSummary(subjectID, key); ok && cached.TotalDataPoints == len(points) {
			metrics.SummaryCacheRequests.WithLabelValues("hit").Inc()
			log.Debug("evolution summary served from cache",
				logger.SubjectID(subjectID),
				logger.Int("window_days", windowDays),
			)
			return cached, nil
		}
		metrics.SummaryCacheRequests.WithLabelValues("miss").Inc()
	}

	if len(points) == 0 {
		return nil, fmt.Errorf("%w: subject %s, last %d days", ErrNoData, subjectID, windowDays)
	}

	summary := buildEvolutionSummary(subjectID, windowDays, points, a.now())

	if a.cache != nil && !a.cache.StoreSummary(subjectID, key, generation, summary) {
		log.Debug("evolution summary not cached",
			logger.SubjectID(subjectID),
			logger.String("reason", "stale generation or caching disabled"),
		)
	}

	return summary, nil
}

func buildEvolutionSummary(subjectID string, windowDays int, points []models.DataPoint, now time.Time) *models.EvolutionSummary {
	series := make(map[string][]models.DataPoint)
	for _, p := range points {
		series[p.MetricType] = append(series[p.MetricType], p)
	}

	summary := &models.EvolutionSummary{
		SubjectID:       subjectID,
		WindowDays:      windowDays,
		TotalDataPoints: len(points),
		Metrics:         make(map[string]models.MetricStats, len(series)),
		Trends:          make(map[string]models.MetricTrend, len(series)),
		Series:          series,
		GeneratedAt:     now,
	}

	for metric, pts := range series {
		sort.SliceStable(pts, func(i, j int) bool {
			return pts[i].Timestamp.Before(pts[j].Timestamp)
		})
		values := make([]float64, len(pts))
		for i, p := range pts {
			values[i] = p.Value
		}
		summary.Metrics[metric] = describe(values)
		if len(values) >= MinValuesForTrend {
			summary.Trends[metric] = determineTrend(values)
		}
	}

	scores := make([]float64, 0, len(summary.Trends))
	for _, trend := range summary.Trends {
		scores = append(scores, trend.Score)
	}
	summary.OverallTrendScore = mean(scores)
	summary.OverallTrend = trendDirection(summary.OverallTrendScore)

	summary.TimeSpanDays = spanDays(points)
	if summary.TimeSpanDays > 0 {
		summary.AveragePointsPerDay = float64(len(points)) / float64(summary.TimeSpanDays)
	}

	return summary
}

func describe(values []float64) models.MetricStats {
	lo, hi := minMax(values)
	return models.MetricStats{
		Count:  len(values),
		Mean:   mean(values),
		Median: median(values),
		StdDev: sampleStdDev(values),
		Min:    lo,
		Max:    hi,
		Range:  hi - lo,
	}
}

// determineTrend normalizes the least-squares slope by the value range so
// that scores are comparable across metrics with different scales.
func determineTrend(values []float64) models.MetricTrend {
	lo, hi := minMax(values)
	valueRange := math.Max(hi-lo, 1)
	score := linearSlope(values) * (100 / valueRange)
	if !finite(score) {
		score = 0
	}

	trend := models.MetricTrend{
		Score:     score,
		Direction: trendDirection(score),
	}

	switch abs := math.Abs(score); {
	case abs > TrendThresholdStrong:
		trend.Strength = models.StrengthStrong
	case abs > TrendThresholdModerate:
		trend.Strength = models.StrengthModerate
	default:
		trend.Strength = models.StrengthWeak
	}

	return trend
}

func trendDirection(score float64) models.TrendDirection {
	switch {
	case score > TrendThresholdStable:
		return models.TrendImproving
	case score < -TrendThresholdStable:
		return models.TrendDeclining
	default:
		return models.TrendStable
	}
}

func normalizeWindow(windowDays int) int {
	if windowDays <= 0 {
		return DefaultWindowDays
	}
	return windowDays
}
