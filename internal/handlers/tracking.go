package handlers

import (
	"errors"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/JonnyWalker81/moodtrack/internal/apierror"
	"github.com/JonnyWalker81/moodtrack/internal/logger"
	"github.com/JonnyWalker81/moodtrack/internal/models"
	"github.com/JonnyWalker81/moodtrack/internal/service"
	"github.com/gin-gonic/gin"
)

// maxFutureSkew is how far ahead of the server clock a tracked state may be
const maxFutureSkew = time.Minute

type TrackingHandler struct {
	trackingService   service.TrackingService
	defaultWindowDays int
	now               func() time.Time
}

// NewTrackingHandler creates a new tracking handler
func NewTrackingHandler(trackingService service.TrackingService, defaultWindowDays int) *TrackingHandler {
	if defaultWindowDays <= 0 {
		defaultWindowDays = service.DefaultWindowDays
	}
	return &TrackingHandler{
		trackingService:   trackingService,
		defaultWindowDays: defaultWindowDays,
		now:               time.Now,
	}
}

// Register mounts the subject routes on the given group. Write routes go
// through the supplied middleware.
func (h *TrackingHandler) Register(rg *gin.RouterGroup, writeMiddleware ...gin.HandlerFunc) {
	writes := func(handler gin.HandlerFunc) []gin.HandlerFunc {
		return append(slices.Clone(writeMiddleware), handler)
	}

	subjects := rg.Group("/subjects/:subject_id")
	subjects.POST("/states", writes(h.TrackState)...)
	subjects.GET("/analysis", h.GetAnalysis)
	subjects.GET("/assessments", h.GetAssessments)
	subjects.GET("/assessments/:assessment_id", h.GetAssessment)
	subjects.DELETE("", writes(h.ResetSubject)...)
}

// TrackState handles POST /api/v1/subjects/:subject_id/states
func (h *TrackingHandler) TrackState(c *gin.Context) {
	subjectID := h.subject(c)
	requestID := apierror.GetRequestID(c)

	var state models.EmotionalState
	if err := c.ShouldBindJSON(&state); err != nil {
		apierror.WriteProblem(c, apierror.NewBadRequestError(requestID, err.Error(), "Invalid JSON format"))
		return
	}

	if state.Timestamp.After(h.now().Add(maxFutureSkew)) {
		apierror.WriteProblem(c, apierror.NewFutureTimestampError(requestID, "timestamp"))
		return
	}

	result, err := h.trackingService.Track(c.Request.Context(), subjectID, state)
	if err != nil {
		h.writeError(c, subjectID, 0, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

// GetAnalysis handles GET /api/v1/subjects/:subject_id/analysis
func (h *TrackingHandler) GetAnalysis(c *gin.Context) {
	subjectID := h.subject(c)

	windowDays := h.defaultWindowDays
	if raw := c.Query("window_days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			apierror.WriteProblem(c, apierror.NewValidationError(apierror.GetRequestID(c), []apierror.FieldError{
				{Field: "window_days", Message: "must be a positive integer", Code: "invalid_value"},
			}))
			return
		}
		windowDays = n
	}

	report, err := h.trackingService.Analyze(c.Request.Context(), subjectID, windowDays)
	if err != nil {
		h.writeError(c, subjectID, windowDays, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// GetAssessments handles GET /api/v1/subjects/:subject_id/assessments
func (h *TrackingHandler) GetAssessments(c *gin.Context) {
	subjectID := h.subject(c)

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			apierror.WriteProblem(c, apierror.NewValidationError(apierror.GetRequestID(c), []apierror.FieldError{
				{Field: "limit", Message: "must be a non-negative integer", Code: "invalid_value"},
			}))
			return
		}
		limit = n
	}

	history, err := h.trackingService.History(c.Request.Context(), subjectID, limit)
	if err != nil {
		h.writeError(c, subjectID, 0, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"subject_id":  subjectID,
		"assessments": history,
		"count":       len(history),
	})
}

// GetAssessment handles GET /api/v1/subjects/:subject_id/assessments/:assessment_id
func (h *TrackingHandler) GetAssessment(c *gin.Context) {
	subjectID := h.subject(c)
	assessmentID := c.Param("assessment_id")
	requestID := apierror.GetRequestID(c)

	assessment, err := h.trackingService.Assessment(c.Request.Context(), subjectID, assessmentID)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, assessment)
	case errors.Is(err, service.ErrInvalidUUID), errors.Is(err, service.ErrNotUUIDv7):
		apierror.WriteProblem(c, apierror.NewInvalidUUIDError(requestID, "assessment_id", assessmentID))
	case errors.Is(err, service.ErrFutureTimestamp):
		apierror.WriteProblem(c, apierror.NewFutureTimestampError(requestID, "assessment_id"))
	case errors.Is(err, service.ErrAssessmentNotFound):
		apierror.WriteProblem(c, apierror.NewNotFoundError(requestID, "assessment", assessmentID))
	default:
		h.writeError(c, subjectID, 0, err)
	}
}

// ResetSubject handles DELETE /api/v1/subjects/:subject_id
func (h *TrackingHandler) ResetSubject(c *gin.Context) {
	subjectID := h.subject(c)

	if err := h.trackingService.Reset(c.Request.Context(), subjectID); err != nil {
		h.writeError(c, subjectID, 0, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// NotFound answers unmatched routes with a problem document
func NotFound(c *gin.Context) {
	apierror.WriteProblem(c, apierror.NewNotFoundError(apierror.GetRequestID(c), "route", c.Request.URL.Path))
}

// subject reads the path parameter and tags the request context with it
func (h *TrackingHandler) subject(c *gin.Context) string {
	subjectID := c.Param("subject_id")
	ctx := logger.WithSubjectID(c.Request.Context(), subjectID)
	c.Request = c.Request.WithContext(ctx)
	return subjectID
}

func (h *TrackingHandler) writeError(c *gin.Context, subjectID string, windowDays int, err error) {
	requestID := apierror.GetRequestID(c)

	switch {
	case errors.Is(err, service.ErrInvalidSubject):
		apierror.WriteProblem(c, apierror.NewValidationError(requestID, []apierror.FieldError{
			{Field: "subject_id", Message: "must not be empty", Code: "required"},
		}))
	case errors.Is(err, service.ErrInvalidState):
		apierror.WriteProblem(c, apierror.NewValidationError(requestID, []apierror.FieldError{
			{Field: "state", Message: err.Error(), Code: "invalid_value"},
		}))
	case errors.Is(err, service.ErrNoData):
		apierror.WriteProblem(c, apierror.NewInsufficientHistoryError(requestID, subjectID, windowDays))
	default:
		logger.Ctx(c.Request.Context()).Error("tracking request failed", logger.Err(err))
		apierror.WriteProblem(c, apierror.NewInternalError(requestID))
	}
}
