package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/JonnyWalker81/moodtrack/internal/models"
)

// Backend selects where crisis assessments are audited
type Backend string

const (
	BackendNone     Backend = "none"
	BackendMemory   Backend = "memory"
	BackendSQLite   Backend = "sqlite"
	BackendPostgres Backend = "postgres"
	BackendMySQL    Backend = "mysql"
)

// Valid reports whether b is a supported backend
func (b Backend) Valid() bool {
	switch b {
	case BackendNone, BackendMemory, BackendSQLite, BackendPostgres, BackendMySQL:
		return true
	}
	return false
}

// NewAssessmentRepository creates the audit log for the given backend
func NewAssessmentRepository(backend Backend, dsn string) (AssessmentRepository, error) {
	switch backend {
	case BackendNone:
		return noopAssessmentRepository{}, nil
	case BackendMemory, "":
		return NewMemoryAssessmentRepository(), nil
	case BackendSQLite, BackendPostgres, BackendMySQL:
		repo, err := NewSQLAssessmentRepository(backend, dsn)
		if err != nil {
			return nil, err
		}
		return repo, nil
	default:
		return nil, fmt.Errorf("unsupported storage backend: %s", backend)
	}
}

type memoryAssessmentRepository struct {
	mu      sync.RWMutex
	history map[string][]models.CrisisRiskAssessment
}

// NewMemoryAssessmentRepository creates an in-process audit log
func NewMemoryAssessmentRepository() AssessmentRepository {
	return &memoryAssessmentRepository{
		history: make(map[string][]models.CrisisRiskAssessment),
	}
}

func (r *memoryAssessmentRepository) Append(ctx context.Context, assessment *models.CrisisRiskAssessment) error {
	if assessment == nil {
		return fmt.Errorf("nil assessment")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.history[assessment.SubjectID] = append(r.history[assessment.SubjectID], *assessment)
	return nil
}

func (r *memoryAssessmentRepository) ListBySubject(ctx context.Context, subjectID string, limit int) ([]models.CrisisRiskAssessment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	src := r.history[subjectID]
	n := len(src)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]models.CrisisRiskAssessment, 0, n)
	for i := len(src) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, src[i])
	}
	return out, nil
}

func (r *memoryAssessmentRepository) GetByID(ctx context.Context, subjectID, id string) (*models.CrisisRiskAssessment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, a := range r.history[subjectID] {
		if a.ID == id {
			found := a
			return &found, nil
		}
	}
	return nil, ErrAssessmentNotFound
}

func (r *memoryAssessmentRepository) Close() error { return nil }

// noopAssessmentRepository discards assessments when auditing is disabled
type noopAssessmentRepository struct{}

func (noopAssessmentRepository) Append(ctx context.Context, assessment *models.CrisisRiskAssessment) error {
	return nil
}

func (noopAssessmentRepository) ListBySubject(ctx context.Context, subjectID string, limit int) ([]models.CrisisRiskAssessment, error) {
	return []models.CrisisRiskAssessment{}, nil
}

func (noopAssessmentRepository) GetByID(ctx context.Context, subjectID, id string) (*models.CrisisRiskAssessment, error) {
	return nil, ErrAssessmentNotFound
}

func (noopAssessmentRepository) Close() error { return nil }
