package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/JonnyWalker81/moodtrack/internal/apierror"
	"github.com/JonnyWalker81/moodtrack/internal/middleware"
	"github.com/JonnyWalker81/moodtrack/internal/models"
	"github.com/JonnyWalker81/moodtrack/internal/repository"
	"github.com/JonnyWalker81/moodtrack/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()

	clock := service.WithClock(func() time.Time { return now })
	store := repository.NewPointStore()
	audit := repository.NewMemoryAssessmentRepository()
	tracking := service.NewTrackingService(
		store,
		service.NewEvolutionAnalyzer(store, clock),
		service.NewPatternDetector(clock),
		service.NewCrisisEngine(audit, clock),
		clock,
	)

	h := NewTrackingHandler(tracking, 30)
	h.now = func() time.Time { return now }

	r := gin.New()
	r.NoRoute(NotFound)
	limiter := middleware.NewRateLimiter(1000, time.Minute, "test")
	t.Cleanup(limiter.Stop)
	h.Register(r.Group("/api/v1"), middleware.Handler(limiter))
	return r
}

func do(r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func sadState(at time.Time) models.EmotionalState {
	return models.EmotionalState{
		Timestamp:      at,
		PrimaryEmotion: models.EmotionSadness,
		Valence:        -50,
		Intensity:      70,
		Arousal:        40,
		Confidence:     0.9,
	}
}

func decodeProblem(t *testing.T, w *httptest.ResponseRecorder) apierror.ProblemDetails {
	t.Helper()
	assert.Equal(t, apierror.ContentTypeProblemJSON, w.Header().Get("Content-Type"))
	var problem apierror.ProblemDetails
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &problem))
	return problem
}

func TestTrackState(t *testing.T) {
	r := newTestRouter(t)

	w := do(r, http.MethodPost, "/api/v1/subjects/alice/states", sadState(now.Add(-time.Hour)))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var result models.TrackResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, "alice", result.SubjectID)
	assert.Equal(t, 3, result.DataPointsAdded)
	assert.Equal(t, "success", result.Status)
}

func TestTrackStateRejections(t *testing.T) {
	tests := []struct {
		name     string
		body     any
		wantType string
	}{
		{
			name:     "malformed json",
			body:     "not an object",
			wantType: apierror.TypeBadRequest,
		},
		{
			name: "out of range valence",
			body: func() models.EmotionalState {
				s := sadState(now.Add(-time.Hour))
				s.Valence = -150
				return s
			}(),
			wantType: apierror.TypeValidation,
		},
		{
			name:     "future timestamp",
			body:     sadState(now.Add(10 * time.Minute)),
			wantType: apierror.TypeFutureTimestamp,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRouter(t)
			w := do(r, http.MethodPost, "/api/v1/subjects/alice/states", tt.body)

			require.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tt.wantType, decodeProblem(t, w).Type)
		})
	}
}

func TestGetAnalysisWithoutHistory(t *testing.T) {
	r := newTestRouter(t)

	w := do(r, http.MethodGet, "/api/v1/subjects/nobody/analysis?window_days=7", nil)

	require.Equal(t, http.StatusNotFound, w.Code)
	problem := decodeProblem(t, w)
	assert.Equal(t, apierror.TypeInsufficientHistory, problem.Type)
	assert.Contains(t, problem.Detail, "nobody")
}

func TestGetAnalysisRejectsBadWindow(t *testing.T) {
	r := newTestRouter(t)

	for _, q := range []string{"abc", "0", "-3"} {
		w := do(r, http.MethodGet, "/api/v1/subjects/alice/analysis?window_days="+q, nil)
		require.Equal(t, http.StatusBadRequest, w.Code, q)
		assert.Equal(t, apierror.TypeValidation, decodeProblem(t, w).Type)
	}
}

func TestAnalysisRoundTrip(t *testing.T) {
	r := newTestRouter(t)

	for i := 0; i < 4; i++ {
		w := do(r, http.MethodPost, "/api/v1/subjects/alice/states", sadState(now.Add(-time.Duration(i+1)*time.Hour)))
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := do(r, http.MethodGet, "/api/v1/subjects/alice/analysis", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var report models.AnalysisReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Equal(t, "alice", report.SubjectID)
	assert.Equal(t, 30, report.WindowDays)
	assert.Equal(t, 12, report.Summary.TotalDataPoints)
	require.NotNil(t, report.CrisisAssessment)
	assert.NotEmpty(t, report.CrisisAssessment.ID)
	assert.NotEmpty(t, report.Summary.Recommendations)

	w = do(r, http.MethodGet, "/api/v1/subjects/alice/assessments?limit=5", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var history struct {
		SubjectID   string                        `json:"subject_id"`
		Assessments []models.CrisisRiskAssessment `json:"assessments"`
		Count       int                           `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &history))
	assert.Equal(t, 1, history.Count)
	assert.Equal(t, report.CrisisAssessment.ID, history.Assessments[0].ID)
}

func TestGetAssessment(t *testing.T) {
	r := newTestRouter(t)

	w := do(r, http.MethodPost, "/api/v1/subjects/alice/states", sadState(now.Add(-time.Hour)))
	require.Equal(t, http.StatusCreated, w.Code)
	w = do(r, http.MethodGet, "/api/v1/subjects/alice/analysis", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var report models.AnalysisReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	id := report.CrisisAssessment.ID

	w = do(r, http.MethodGet, "/api/v1/subjects/alice/assessments/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var got models.CrisisRiskAssessment
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, id, got.ID)
	assert.Equal(t, report.CrisisAssessment.RiskLevel, got.RiskLevel)

	tests := []struct {
		name     string
		path     string
		status   int
		typ      string
		errField string
	}{
		{"malformed id", "/api/v1/subjects/alice/assessments/not-a-uuid", http.StatusBadRequest, apierror.TypeInvalidUUID, "assessment_id"},
		{"version 4 id", "/api/v1/subjects/alice/assessments/" + uuid.NewString(), http.StatusBadRequest, apierror.TypeInvalidUUID, "assessment_id"},
		{"unknown id", "/api/v1/subjects/alice/assessments/" + service.NewAssessmentID(), http.StatusNotFound, apierror.TypeNotFound, ""},
		{"other subject", "/api/v1/subjects/bob/assessments/" + id, http.StatusNotFound, apierror.TypeNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(r, http.MethodGet, tt.path, nil)
			require.Equal(t, tt.status, w.Code, w.Body.String())
			problem := decodeProblem(t, w)
			assert.Equal(t, tt.typ, problem.Type)
			if tt.errField != "" {
				require.Len(t, problem.Errors, 1)
				assert.Equal(t, tt.errField, problem.Errors[0].Field)
			}
		})
	}
}

func TestGetAssessmentFutureID(t *testing.T) {
	r := newTestRouter(t)

	future, err := uuid.NewV7FromReader(bytes.NewReader(make([]byte, 16)))
	require.NoError(t, err)
	// stamp the first 48 bits with a time an hour ahead
	ms := uint64(time.Now().Add(time.Hour).UnixMilli())
	for i := 0; i < 6; i++ {
		future[i] = byte(ms >> (40 - 8*i))
	}

	w := do(r, http.MethodGet, "/api/v1/subjects/alice/assessments/"+future.String(), nil)

	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	assert.Equal(t, apierror.TypeFutureTimestamp, decodeProblem(t, w).Type)
}

func TestGetAssessmentsRejectsBadLimit(t *testing.T) {
	r := newTestRouter(t)

	w := do(r, http.MethodGet, "/api/v1/subjects/alice/assessments?limit=-1", nil)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apierror.TypeValidation, decodeProblem(t, w).Type)
}

func TestResetSubject(t *testing.T) {
	r := newTestRouter(t)

	w := do(r, http.MethodPost, "/api/v1/subjects/alice/states", sadState(now.Add(-time.Hour)))
	require.Equal(t, http.StatusCreated, w.Code)

	w = do(r, http.MethodDelete, "/api/v1/subjects/alice", nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = do(r, http.MethodGet, "/api/v1/subjects/alice/analysis", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestResetRejectsBlankSubject(t *testing.T) {
	r := newTestRouter(t)

	w := do(r, http.MethodDelete, "/api/v1/subjects/%20", nil)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apierror.TypeValidation, decodeProblem(t, w).Type)
}

func TestUnknownRoute(t *testing.T) {
	r := newTestRouter(t)

	w := do(r, http.MethodGet, "/api/v1/nope", nil)

	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, apierror.TypeNotFound, decodeProblem(t, w).Type)
}
