package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/JonnyWalker81/moodtrack/internal/models"

	_ "github.com/go-sql-driver/mysql"  // MySQL driver
	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	_ "modernc.org/sqlite"             // SQLite driver
)

const assessmentsTable = "crisis_assessments"

// SQLAssessmentRepository audits assessments into a SQL database. The full
// assessment is kept as a JSON payload next to a few indexed columns.
type SQLAssessmentRepository struct {
	db      *sql.DB
	backend Backend
}

var _ AssessmentRepository = (*SQLAssessmentRepository)(nil)

// NewSQLAssessmentRepository opens the database and ensures the table exists
func NewSQLAssessmentRepository(backend Backend, dsn string) (*SQLAssessmentRepository, error) {
	var driverName string
	switch backend {
	case BackendSQLite:
		driverName = "sqlite"
		if dsn == "" {
			dsn = "moodtrack.db"
		}
	case BackendPostgres:
		driverName = "pgx"
	case BackendMySQL:
		driverName = "mysql"
	default:
		return nil, fmt.Errorf("unsupported SQL backend: %s", backend)
	}
	if dsn == "" {
		return nil, fmt.Errorf("a DSN is required for the %s backend", backend)
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", backend, err)
	}
	if backend == BackendSQLite {
		// A single connection avoids "database is locked" and keeps
		// ":memory:" databases alive for the lifetime of the pool.
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to %s database: %w", backend, err)
	}

	if _, err := db.Exec(createAssessmentsQuery(backend)); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create table %s: %w", assessmentsTable, err)
	}

	return &SQLAssessmentRepository{db: db, backend: backend}, nil
}

func createAssessmentsQuery(backend Backend) string {
	switch backend {
	case BackendPostgres:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				seq BIGSERIAL PRIMARY KEY,
				id TEXT NOT NULL,
				subject_id TEXT NOT NULL,
				risk_level TEXT NOT NULL,
				risk_score DOUBLE PRECISION NOT NULL,
				confidence DOUBLE PRECISION NOT NULL,
				assessed_at_unix BIGINT NOT NULL,
				payload TEXT NOT NULL
			);`, assessmentsTable)
	case BackendMySQL:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				seq BIGINT AUTO_INCREMENT PRIMARY KEY,
				id VARCHAR(64) NOT NULL,
				subject_id VARCHAR(255) NOT NULL,
				risk_level VARCHAR(16) NOT NULL,
				risk_score DOUBLE NOT NULL,
				confidence DOUBLE NOT NULL,
				assessed_at_unix BIGINT NOT NULL,
				payload TEXT NOT NULL,
				INDEX idx_subject (subject_id)
			);`, assessmentsTable)
	default:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				seq INTEGER PRIMARY KEY AUTOINCREMENT,
				id TEXT NOT NULL,
				subject_id TEXT NOT NULL,
				risk_level TEXT NOT NULL,
				risk_score REAL NOT NULL,
				confidence REAL NOT NULL,
				assessed_at_unix INTEGER NOT NULL,
				payload TEXT NOT NULL
			);`, assessmentsTable)
	}
}

// placeholder returns the n-th (1-based) bind parameter for the backend
func (r *SQLAssessmentRepository) placeholder(n int) string {
	if r.backend == BackendPostgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// Append inserts one assessment
func (r *SQLAssessmentRepository) Append(ctx context.Context, assessment *models.CrisisRiskAssessment) error {
	if assessment == nil {
		return fmt.Errorf("nil assessment")
	}
	payload, err := json.Marshal(assessment)
	if err != nil {
		return fmt.Errorf("failed to marshal assessment: %w", err)
	}

	query := fmt.Sprintf(
		`INSERT INTO %s (id, subject_id, risk_level, risk_score, confidence, assessed_at_unix, payload) VALUES (%s, %s, %s, %s, %s, %s, %s)`,
		assessmentsTable,
		r.placeholder(1), r.placeholder(2), r.placeholder(3), r.placeholder(4),
		r.placeholder(5), r.placeholder(6), r.placeholder(7),
	)
	_, err = r.db.ExecContext(ctx, query,
		assessment.ID,
		assessment.SubjectID,
		string(assessment.RiskLevel),
		assessment.RiskScore,
		assessment.Confidence,
		assessment.AssessedAt.Unix(),
		string(payload),
	)
	if err != nil {
		return fmt.Errorf("failed to insert assessment: %w", err)
	}
	return nil
}

// ListBySubject returns the subject's assessments, newest first
func (r *SQLAssessmentRepository) ListBySubject(ctx context.Context, subjectID string, limit int) ([]models.CrisisRiskAssessment, error) {
	query := fmt.Sprintf(`SELECT payload FROM %s WHERE subject_id = %s ORDER BY seq DESC`,
		assessmentsTable, r.placeholder(1))
	args := []any{subjectID}
	if limit > 0 {
		query += " LIMIT " + r.placeholder(2)
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query assessments: %w", err)
	}
	defer rows.Close()

	out := make([]models.CrisisRiskAssessment, 0)
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan assessment: %w", err)
		}
		var a models.CrisisRiskAssessment
		if err := json.Unmarshal([]byte(payload), &a); err != nil {
			return nil, fmt.Errorf("failed to unmarshal assessment: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate assessments: %w", err)
	}
	return out, nil
}

// GetByID looks up one assessment of the subject
func (r *SQLAssessmentRepository) GetByID(ctx context.Context, subjectID, id string) (*models.CrisisRiskAssessment, error) {
	query := fmt.Sprintf(`SELECT payload FROM %s WHERE subject_id = %s AND id = %s`,
		assessmentsTable, r.placeholder(1), r.placeholder(2))

	var payload string
	err := r.db.QueryRowContext(ctx, query, subjectID, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAssessmentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query assessment: %w", err)
	}

	var a models.CrisisRiskAssessment
	if err := json.Unmarshal([]byte(payload), &a); err != nil {
		return nil, fmt.Errorf("failed to unmarshal assessment: %w", err)
	}
	return &a, nil
}

// Close closes the underlying database
func (r *SQLAssessmentRepository) Close() error {
	return r.db.Close()
}
