// Package report renders analysis reports as terminal tables.
package report

import (
	"fmt"
	"io"
	"slices"
	"strconv"

	"github.com/JonnyWalker81/moodtrack/internal/models"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

var (
	criticalColor = color.New(color.FgRed, color.Bold)
	highColor     = color.New(color.FgMagenta, color.Bold)
	moderateColor = color.New(color.FgYellow)
	lowColor      = color.New(color.FgGreen)
	unknownColor  = color.New(color.FgHiBlack)
)

// indicatorOrder fixes the row order of the risk breakdown
var indicatorOrder = []models.RiskIndicator{
	models.IndicatorEmotionalIntensity,
	models.IndicatorNegativeValence,
	models.IndicatorPatternDisruption,
	models.IndicatorFrequencyIncrease,
	models.IndicatorDurationExtension,
}

// RiskLabel returns the risk level colored by severity
func RiskLabel(level models.RiskLevel) string {
	switch level {
	case models.RiskCritical:
		return criticalColor.Sprint(string(level))
	case models.RiskHigh:
		return highColor.Sprint(string(level))
	case models.RiskModerate:
		return moderateColor.Sprint(string(level))
	case models.RiskLow:
		return lowColor.Sprint(string(level))
	default:
		return unknownColor.Sprint(string(level))
	}
}

// TrendLabel colors a trend direction
func TrendLabel(direction models.TrendDirection) string {
	switch direction {
	case models.TrendImproving:
		return color.New(color.FgGreen).Sprint(string(direction))
	case models.TrendDeclining:
		return color.New(color.FgRed).Sprint(string(direction))
	default:
		return string(direction)
	}
}

// Write renders the full report: metrics, patterns, risk and recommendations
func Write(w io.Writer, r *models.AnalysisReport) error {
	if r == nil {
		return fmt.Errorf("nil report")
	}

	bold := color.New(color.Bold).SprintFunc()
	fmt.Fprintf(w, "%s %s (last %d days, %d data points)\n\n",
		bold("Subject"), r.SubjectID, r.WindowDays, r.Summary.TotalDataPoints)

	if r.Evolution != nil {
		if err := writeMetrics(w, r.Evolution); err != nil {
			return fmt.Errorf("error writing metrics table: %w", err)
		}
		fmt.Fprintf(w, "Overall trend: %s (score %.2f), span %d days, %.2f points/day\n\n",
			TrendLabel(r.Evolution.OverallTrend), r.Evolution.OverallTrendScore,
			r.Evolution.TimeSpanDays, r.Evolution.AveragePointsPerDay)
	}

	if len(r.Patterns) > 0 {
		if err := writePatterns(w, r.Patterns); err != nil {
			return fmt.Errorf("error writing patterns table: %w", err)
		}
		fmt.Fprintln(w)
	}

	if a := r.CrisisAssessment; a != nil {
		if err := writeRisk(w, a); err != nil {
			return fmt.Errorf("error writing risk table: %w", err)
		}
		fmt.Fprintf(w, "Risk level: %s (score %.1f, confidence %.2f, model %s)\n",
			RiskLabel(a.RiskLevel), a.RiskScore, a.Confidence, a.ModelVersion)
		writeList(w, "Risk factors", a.RiskFactors)
		writeList(w, "Protective factors", a.ProtectiveFactors)
		writeList(w, "Immediate actions", a.ImmediateActions)
		fmt.Fprintln(w)
	}

	writeList(w, "Recommendations", r.Summary.Recommendations)
	return nil
}

func writeMetrics(w io.Writer, e *models.EvolutionSummary) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Metric", "Count", "Mean", "Median", "StdDev", "Min", "Max", "Trend", "Strength"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	names := make([]string, 0, len(e.Metrics))
	for name := range e.Metrics {
		names = append(names, name)
	}
	slices.Sort(names)

	var data [][]string
	for _, name := range names {
		stats := e.Metrics[name]
		trend, strength := "-", "-"
		if t, ok := e.Trends[name]; ok {
			trend = TrendLabel(t.Direction) + " " + formatFloat(t.Score)
			strength = string(t.Strength)
		}
		data = append(data, []string{
			name,
			strconv.Itoa(stats.Count),
			formatFloat(stats.Mean),
			formatFloat(stats.Median),
			formatFloat(stats.StdDev),
			formatFloat(stats.Min),
			formatFloat(stats.Max),
			trend,
			strength,
		})
	}

	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

func writePatterns(w io.Writer, patterns []models.TemporalPattern) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Type", "Metric", "Significance", "Confidence", "Direction", "Description"})

	var data [][]string
	for _, p := range patterns {
		data = append(data, []string{
			string(p.PatternType),
			p.Metric,
			formatFloat(p.Significance),
			formatFloat(p.Confidence),
			TrendLabel(p.TrendDirection),
			p.Description,
		})
	}

	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

func writeRisk(w io.Writer, a *models.CrisisRiskAssessment) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Indicator", "Score"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	var data [][]string
	for _, indicator := range indicatorOrder {
		score, ok := a.SubScores[indicator]
		if !ok {
			continue
		}
		data = append(data, []string{string(indicator), formatFloat(score)})
	}

	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

func writeList(w io.Writer, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(w, "%s:\n", title)
	for _, item := range items {
		fmt.Fprintf(w, "  - %s\n", item)
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
