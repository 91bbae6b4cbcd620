package service

import (
	"context"

	"github.com/JonnyWalker81/moodtrack/internal/models"
)

// TrackingService defines the interface for longitudinal emotional tracking
type TrackingService interface {
	Track(ctx context.Context, subjectID string, state models.EmotionalState) (*models.TrackResult, error)
	Analyze(ctx context.Context, subjectID string, windowDays int) (*models.AnalysisReport, error)
	Reset(ctx context.Context, subjectID string) error
	History(ctx context.Context, subjectID string, limit int) ([]models.CrisisRiskAssessment, error)
	Assessment(ctx context.Context, subjectID, assessmentID string) (*models.CrisisRiskAssessment, error)
}

// EvolutionService summarizes how a subject's metrics changed over a window
type EvolutionService interface {
	Summarize(ctx context.Context, subjectID string, windowDays int) (*models.EvolutionSummary, error)
}
