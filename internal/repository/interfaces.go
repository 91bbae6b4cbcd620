package repository

import (
	"context"
	"errors"
	"time"

	"github.com/JonnyWalker81/moodtrack/internal/models"
)

// DataPointRepository defines the interface for the per-subject longitudinal buffer
type DataPointRepository interface {
	Record(subjectID string, point models.DataPoint)
	Query(subjectID string, since time.Time) []models.DataPoint
	Reset(subjectID string)
}

// SummaryCache caches evolution summaries alongside the buffer they were
// computed from. Entries are tagged with the subject generation observed at
// read time and are never served once the subject has been written to.
type SummaryCache interface {
	Snapshot(subjectID string, since time.Time) ([]models.DataPoint, uint64)
	CachedSummary(subjectID, key string) (*models.EvolutionSummary, bool)
	StoreSummary(subjectID, key string, generation uint64, summary *models.EvolutionSummary) bool
}

// ErrAssessmentNotFound is returned when no audited assessment matches
var ErrAssessmentNotFound = errors.New("assessment not found")

// AssessmentRepository defines the append-only audit log of crisis assessments
type AssessmentRepository interface {
	Append(ctx context.Context, assessment *models.CrisisRiskAssessment) error
	// ListBySubject returns up to limit assessments, newest first. limit <= 0 means all.
	ListBySubject(ctx context.Context, subjectID string, limit int) ([]models.CrisisRiskAssessment, error)
	// GetByID returns ErrAssessmentNotFound unless the assessment belongs to subjectID
	GetByID(ctx context.Context, subjectID, id string) (*models.CrisisRiskAssessment, error)
	Close() error
}
