package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/JonnyWalker81/moodtrack/internal/config"
	"github.com/JonnyWalker81/moodtrack/internal/models"
	"github.com/JonnyWalker81/moodtrack/internal/report"
	"github.com/JonnyWalker81/moodtrack/internal/repository"
	"github.com/spf13/cobra"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Analyze a file of emotional states",
	Long: `Replay a JSON array of emotional states through the tracking pipeline
in memory and print the resulting analysis report.`,
	RunE: runReport,
}

var (
	reportInput   string
	reportSubject string
	reportWindow  int
	reportFormat  string
)

func init() {
	reportCmd.Flags().StringVarP(&reportInput, "input", "i", "-", "JSON file of emotional states (- for stdin)")
	reportCmd.Flags().StringVarP(&reportSubject, "subject", "s", "local", "Subject ID to attribute the states to")
	reportCmd.Flags().IntVarP(&reportWindow, "window", "w", 0, "Analysis window in days (0 uses the configured default)")
	reportCmd.Flags().StringVarP(&reportFormat, "format", "f", "table", "Output format: table or json")
}

func runReport(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	newLogger(cfg)

	states, err := readStates(reportInput)
	if err != nil {
		return err
	}

	tracking := newPipeline(cfg, repository.NewMemoryAssessmentRepository())

	ctx := cmd.Context()
	for i, state := range states {
		if _, err := tracking.Track(ctx, reportSubject, state); err != nil {
			return fmt.Errorf("state %d: %w", i, err)
		}
	}

	result, err := tracking.Analyze(ctx, reportSubject, reportWindow)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	out := cmd.OutOrStdout()
	switch reportFormat {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	case "table":
		return report.Write(out, result)
	default:
		return fmt.Errorf("unknown format %q (want table or json)", reportFormat)
	}
}

func readStates(path string) ([]models.EmotionalState, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("error opening input: %w", err)
		}
		defer f.Close()
		r = f
	}

	var states []models.EmotionalState
	if err := json.NewDecoder(r).Decode(&states); err != nil {
		return nil, fmt.Errorf("error decoding states: %w", err)
	}
	return states, nil
}
