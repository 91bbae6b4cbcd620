package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/JonnyWalker81/moodtrack/internal/logger"
	"github.com/JonnyWalker81/moodtrack/internal/metrics"
	"github.com/JonnyWalker81/moodtrack/internal/models"
)

const (
	// Minimum distinct buckets before a pattern is attempted
	MinHoursForDailyPattern     = 3
	MinDaysForWeeklyPattern     = 3
	MinMonthsForSeasonalPattern = 6

	// Data must cover at least this many days before seasonal detection runs
	MinSpanDaysForSeasonal = 180

	// Minimum absolute gap between the compared bucket groups
	WeeklyDifferenceThreshold   = 10.0
	SeasonalDifferenceThreshold = 15.0

	// Relative change between halves that counts as a daily trend
	DailyTrendTolerance = 0.1

	// DefaultPatternHistoryLimit bounds the audit history kept per subject
	DefaultPatternHistoryLimit = 500
)

var weekdayNames = [7]string{"Lunes", "Martes", "Miércoles", "Jueves", "Viernes", "Sábado", "Domingo"}

var monthNames = [12]string{
	"Enero", "Febrero", "Marzo", "Abril", "Mayo", "Junio",
	"Julio", "Agosto", "Septiembre", "Octubre", "Noviembre", "Diciembre",
}

// PatternDetector finds recurring daily, weekly and seasonal highs and lows
type PatternDetector struct {
	mu           sync.Mutex
	history      map[string][]models.TemporalPattern
	historyLimit int
	now          func() time.Time
}

// NewPatternDetector creates a detector with an empty history
func NewPatternDetector(opts ...Option) *PatternDetector {
	cfg := applyOptions(opts)
	return &PatternDetector{
		history:      make(map[string][]models.TemporalPattern),
		historyLimit: cfg.historyLimit,
		now:          cfg.now,
	}
}

// Detect analyzes points and returns every pattern found. Metrics without
// enough buckets are skipped, so the result may be empty but never nil.
func (d *PatternDetector) Detect(ctx context.Context, subjectID string, points []models.DataPoint) []models.TemporalPattern {
	detectedAt := d.now()
	patterns := make([]models.TemporalPattern, 0)

	patterns = append(patterns, detectDailyPatterns(points, detectedAt)...)
	patterns = append(patterns, detectWeeklyPatterns(points, detectedAt)...)
	if spanDays(points) >= MinSpanDaysForSeasonal {
		patterns = append(patterns, detectSeasonalPatterns(points, detectedAt)...)
	}

	d.remember(subjectID, patterns)
	for _, p := range patterns {
		metrics.PatternsDetected.WithLabelValues(string(p.PatternType)).Inc()
	}

	logger.Ctx(ctx).Debug("temporal patterns detected",
		logger.SubjectID(subjectID),
		logger.Int("points", len(points)),
		logger.Int("patterns", len(patterns)),
	)

	return patterns
}

// History returns a copy of the patterns detected for a subject, oldest first
func (d *PatternDetector) History(subjectID string) []models.TemporalPattern {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]models.TemporalPattern, len(d.history[subjectID]))
	copy(out, d.history[subjectID])
	return out
}

// Reset drops the pattern history for a subject
func (d *PatternDetector) Reset(subjectID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.history, subjectID)
}

func (d *PatternDetector) remember(subjectID string, patterns []models.TemporalPattern) {
	if len(patterns) == 0 {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	h := append(d.history[subjectID], patterns...)
	if over := len(h) - d.historyLimit; over > 0 {
		h = append([]models.TemporalPattern(nil), h[over:]...)
	}
	d.history[subjectID] = h
}

// =============================================================================
// Bucketing
// =============================================================================

// buckets maps metric -> bucket index -> values
type buckets map[string]map[int][]float64

func bucketBy(points []models.DataPoint, key func(time.Time) int) buckets {
	b := make(buckets)
	for _, p := range points {
		if b[p.MetricType] == nil {
			b[p.MetricType] = make(map[int][]float64)
		}
		k := key(p.Timestamp)
		b[p.MetricType][k] = append(b[p.MetricType][k], p.Value)
	}
	return b
}

func (b buckets) metrics() []string {
	out := make([]string, 0, len(b))
	for m := range b {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

// bucketMeans returns the sorted bucket indexes and the mean of each
func bucketMeans(groups map[int][]float64) ([]int, []float64) {
	keys := make([]int, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	means := make([]float64, len(keys))
	for i, k := range keys {
		means[i] = mean(groups[k])
	}
	return keys, means
}

// mondayFirst converts Go's Sunday=0 weekday to 0=Monday..6=Sunday
func mondayFirst(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// =============================================================================
// Detectors
// =============================================================================

func detectDailyPatterns(points []models.DataPoint, detectedAt time.Time) []models.TemporalPattern {
	var patterns []models.TemporalPattern
	hourly := bucketBy(points, func(t time.Time) int { return t.Hour() })

	for _, metric := range hourly.metrics() {
		groups := hourly[metric]
		if len(groups) < MinHoursForDailyPattern {
			continue
		}
		hours, means := bucketMeans(groups)
		m, sd := mean(means), sampleStdDev(means)

		peaks, lows := make([]string, 0), make([]string, 0)
		for i, h := range hours {
			label := fmt.Sprintf("%d:00", h)
			switch {
			case means[i] > m+sd:
				peaks = append(peaks, label)
			case means[i] < m-sd:
				lows = append(lows, label)
			}
		}
		if len(peaks) == 0 && len(lows) == 0 {
			continue
		}

		patterns = append(patterns, models.TemporalPattern{
			PatternType:    models.PatternTypeDaily,
			Metric:         metric,
			Description:    fmt.Sprintf("Patrón diario en %s", metric),
			Confidence:     math.Min(1, float64(len(hours))/24),
			PeakLabels:     peaks,
			LowLabels:      lows,
			TrendDirection: halvesDirection(means),
			Significance:   bucketSignificance(groups),
			DetectedAt:     detectedAt,
		})
	}
	return patterns
}

func detectWeeklyPatterns(points []models.DataPoint, detectedAt time.Time) []models.TemporalPattern {
	var patterns []models.TemporalPattern
	weekly := bucketBy(points, mondayFirst)

	for _, metric := range weekly.metrics() {
		groups := weekly[metric]
		if len(groups) < MinDaysForWeeklyPattern {
			continue
		}
		days, means := bucketMeans(groups)

		var workdays, weekend []float64
		for i, day := range days {
			if day < 5 {
				workdays = append(workdays, means[i])
			} else {
				weekend = append(weekend, means[i])
			}
		}
		if len(workdays) == 0 || len(weekend) == 0 {
			continue
		}

		workdayMean, weekendMean := mean(workdays), mean(weekend)
		if math.Abs(workdayMean-weekendMean) <= WeeklyDifferenceThreshold {
			continue
		}

		description := fmt.Sprintf("Diferencia significativa entre días laborables y fines de semana en %s", metric)
		if workdayMean > weekendMean {
			description += " (mayor en días laborables)"
		} else {
			description += " (mayor en fines de semana)"
		}

		peaks, lows := splitAroundMean(days, means, func(day int) string { return weekdayNames[day] })
		patterns = append(patterns, models.TemporalPattern{
			PatternType:    models.PatternTypeWeekly,
			Metric:         metric,
			Description:    description,
			Confidence:     math.Min(1, float64(len(days))/7),
			PeakLabels:     peaks,
			LowLabels:      lows,
			TrendDirection: models.TrendVariable,
			Significance:   relativeDifference(workdayMean, weekendMean),
			DetectedAt:     detectedAt,
		})
	}
	return patterns
}

func detectSeasonalPatterns(points []models.DataPoint, detectedAt time.Time) []models.TemporalPattern {
	var patterns []models.TemporalPattern
	monthly := bucketBy(points, func(t time.Time) int { return int(t.Month()) })

	for _, metric := range monthly.metrics() {
		groups := monthly[metric]
		if len(groups) < MinMonthsForSeasonalPattern {
			continue
		}
		months, means := bucketMeans(groups)

		var winter, summer []float64
		for i, month := range months {
			switch month {
			case 12, 1, 2:
				winter = append(winter, means[i])
			case 6, 7, 8:
				summer = append(summer, means[i])
			}
		}
		if len(winter) == 0 || len(summer) == 0 {
			continue
		}

		winterMean, summerMean := mean(winter), mean(summer)
		if math.Abs(winterMean-summerMean) <= SeasonalDifferenceThreshold {
			continue
		}

		description := fmt.Sprintf("Patrón estacional en %s", metric)
		if winterMean > summerMean {
			description += " (mayor en invierno)"
		} else {
			description += " (mayor en verano)"
		}

		peaks, lows := splitAroundMean(months, means, func(month int) string { return monthNames[month-1] })
		patterns = append(patterns, models.TemporalPattern{
			PatternType:    models.PatternTypeSeasonal,
			Metric:         metric,
			Description:    description,
			Confidence:     math.Min(1, float64(len(months))/12),
			PeakLabels:     peaks,
			LowLabels:      lows,
			TrendDirection: models.TrendCyclical,
			Significance:   relativeDifference(winterMean, summerMean),
			DetectedAt:     detectedAt,
		})
	}
	return patterns
}

// =============================================================================
// Helpers
// =============================================================================

// splitAroundMean labels buckets above and below the mean of bucket means
func splitAroundMean(keys []int, means []float64, label func(int) string) (peaks, lows []string) {
	peaks, lows = make([]string, 0), make([]string, 0)
	m := mean(means)
	for i, k := range keys {
		switch {
		case means[i] > m:
			peaks = append(peaks, label(k))
		case means[i] < m:
			lows = append(lows, label(k))
		}
	}
	return peaks, lows
}

// halvesDirection compares the second half of ordered bucket means to the first
func halvesDirection(means []float64) models.TrendDirection {
	if len(means) < 2 {
		return models.TrendStable
	}
	half := len(means) / 2
	first, second := mean(means[:half]), mean(means[half:])
	tolerance := math.Abs(first) * DailyTrendTolerance

	switch {
	case second > first+tolerance:
		return models.TrendImproving
	case second < first-tolerance:
		return models.TrendDeclining
	default:
		return models.TrendStable
	}
}

// relativeDifference is |a-b| scaled by the larger of the two means, clamped
// to [0,1]. When neither mean is positive the ratio is undefined and 0.
func relativeDifference(a, b float64) float64 {
	denom := math.Max(a, b)
	if denom <= 0 {
		return 0
	}
	return clamp(math.Abs(a-b)/denom, 0, 1)
}

// bucketSignificance is the spread of bucket means relative to the spread of
// all values, clamped to [0,1]. Zero when there is too little data to tell.
func bucketSignificance(groups map[int][]float64) float64 {
	var all []float64
	for _, values := range groups {
		all = append(all, values...)
	}
	if len(all) < 3 {
		return 0
	}
	overall := sampleStdDev(all)
	if overall == 0 {
		return 0
	}
	_, means := bucketMeans(groups)
	if len(means) < 2 {
		return 0
	}
	return clamp(sampleStdDev(means)/overall, 0, 1)
}
