package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/Ayash-Bera/mathgate/backend/internal/feedback"
	"github.com/Ayash-Bera/mathgate/backend/internal/gateway"
	"github.com/Ayash-Bera/mathgate/backend/internal/models"
	"github.com/Ayash-Bera/mathgate/backend/internal/services"
	"github.com/Ayash-Bera/mathgate/backend/pkg/utils"
)

const (
	solveTimeout   = 90 * time.Second
	defaultLogSize = 10

	logSourceMemory = "memory"
	logSourceAudit  = "audit"

	defaultAuditWindow = "24h"
)

// Tutor is the application service behind the HTTP API.
type Tutor interface {
	Ask(ctx context.Context, question string, opts ...gateway.Option) (*gateway.Response, error)
	Metrics() gateway.Metrics
	RecentLogs(limit int) []gateway.LogEntry
	ResetMetrics()
	SubmitFeedback(ctx context.Context, req models.FeedbackRequest) (feedback.Record, error)
	FeedbackStats(ctx context.Context) (feedback.Stats, error)
	SimilarFeedback(ctx context.Context, question string, threshold float64) ([]models.SimilarFeedback, error)
	SearchKnowledge(ctx context.Context, query string, k int) ([]models.KBSearchResult, error)
	AuditLogs(ctx context.Context, limit int) ([]models.RequestAudit, error)
	AuditEntry(ctx context.Context, requestID string) (*models.RequestAudit, error)
	AuditSummary(ctx context.Context, window time.Duration) (*models.AuditSummary, error)
}

type TutorHandler struct {
	tutor  Tutor
	logger *logrus.Logger
}

func NewTutorHandler(tutor Tutor, logger *logrus.Logger) *TutorHandler {
	return &TutorHandler{
		tutor:  tutor,
		logger: logger,
	}
}

// HandleSolve runs a question through the gateway
func (h *TutorHandler) HandleSolve(c *gin.Context) {
	var req models.SolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.WithError(err).Error("Invalid solve request")
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request format", err)
		return
	}

	question := strings.TrimSpace(req.Question)
	if question == "" {
		utils.ErrorResponse(c, http.StatusBadRequest, "Question cannot be empty", nil)
		return
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = h.getUserSession(c)
	}

	h.logger.WithFields(logrus.Fields{
		"question_length": len(question),
		"user_session":    sessionID,
		"ip_address":      c.ClientIP(),
	}).Info("Processing solve request")

	ctx, cancel := context.WithTimeout(c.Request.Context(), solveTimeout)
	defer cancel()

	resp, err := h.tutor.Ask(ctx, question,
		gateway.WithUserID(req.UserID),
		gateway.WithSessionID(sessionID),
		gateway.WithMetadata("ip_address", c.ClientIP()),
	)
	if err != nil {
		if errors.Is(err, services.ErrQuestionTooLong) {
			utils.ErrorResponse(c, http.StatusBadRequest, "Question too long", err)
			return
		}
		h.logger.WithError(err).Error("Solve failed")
		utils.ErrorResponse(c, http.StatusInternalServerError, "Solve failed", err)
		return
	}

	out := services.SolveResponseFrom(resp)
	switch {
	case resp.Blocked:
		utils.FailureResponse(c, http.StatusUnprocessableEntity, "Question rejected by guardrails", out)
	case !resp.Success:
		utils.FailureResponse(c, http.StatusOK, "No solution found", out)
	default:
		utils.SuccessResponse(c, http.StatusOK, "Question answered", out)
	}
}

func (h *TutorHandler) HandleMetrics(c *gin.Context) {
	utils.SuccessResponse(c, http.StatusOK, "Metrics retrieved", h.tutor.Metrics())
}

// HandleLogs returns the newest request log entries. limit=0 returns all.
// source=audit reads the persisted history instead of the in-memory log.
func (h *TutorHandler) HandleLogs(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultLogSize)))
	if err != nil || limit < 0 {
		utils.ErrorResponse(c, http.StatusBadRequest, "limit must be a non-negative integer", err)
		return
	}

	switch c.DefaultQuery("source", logSourceMemory) {
	case logSourceMemory:
		utils.SuccessResponse(c, http.StatusOK, "Logs retrieved", h.tutor.RecentLogs(limit))
	case logSourceAudit:
		audits, err := h.tutor.AuditLogs(c.Request.Context(), limit)
		if err != nil {
			h.auditError(c, err)
			return
		}
		utils.SuccessResponse(c, http.StatusOK, "Audit logs retrieved", audits)
	default:
		utils.ErrorResponse(c, http.StatusBadRequest, "source must be memory or audit", nil)
	}
}

// HandleLogEntry returns one persisted request by id.
func (h *TutorHandler) HandleLogEntry(c *gin.Context) {
	audit, err := h.tutor.AuditEntry(c.Request.Context(), c.Param("request_id"))
	if err != nil {
		h.auditError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Audit log retrieved", audit)
}

// HandleAuditSummary aggregates persisted requests over window (default 24h).
func (h *TutorHandler) HandleAuditSummary(c *gin.Context) {
	window, err := time.ParseDuration(c.DefaultQuery("window", defaultAuditWindow))
	if err != nil || window <= 0 {
		utils.ErrorResponse(c, http.StatusBadRequest, "window must be a positive duration such as 24h", err)
		return
	}

	summary, err := h.tutor.AuditSummary(c.Request.Context(), window)
	if err != nil {
		h.auditError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Audit summary retrieved", summary)
}

func (h *TutorHandler) auditError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrAuditUnavailable):
		utils.ErrorResponse(c, http.StatusServiceUnavailable, "Request audit log is not available", err)
	case errors.Is(err, models.ErrNotFound):
		utils.ErrorResponse(c, http.StatusNotFound, "Request not found", err)
	default:
		h.logger.WithError(err).Error("Audit query failed")
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to read audit log", err)
	}
}

func (h *TutorHandler) HandleResetMetrics(c *gin.Context) {
	h.tutor.ResetMetrics()
	h.logger.WithField("ip_address", c.ClientIP()).Info("Gateway metrics reset")
	utils.SuccessResponse(c, http.StatusOK, "Metrics reset", nil)
}

// HandleFeedback stores a rating for an answer
func (h *TutorHandler) HandleFeedback(c *gin.Context) {
	var req models.FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid feedback format", err)
		return
	}

	record, err := h.tutor.SubmitFeedback(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, feedback.ErrInvalidRating) || errors.Is(err, feedback.ErrEmptyQuestion) {
			utils.ErrorResponse(c, http.StatusBadRequest, "Invalid feedback", err)
			return
		}
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to save feedback", err)
		return
	}

	utils.SuccessResponse(c, http.StatusCreated, "Feedback recorded", models.FeedbackResponse{
		ID:      record.ID,
		Message: "Thank you for your feedback!",
	})
}

func (h *TutorHandler) HandleFeedbackStats(c *gin.Context) {
	stats, err := h.tutor.FeedbackStats(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to get feedback stats")
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to get feedback stats", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Feedback stats retrieved", stats)
}

// HandleSimilarFeedback lists stored feedback for questions like q
func (h *TutorHandler) HandleSimilarFeedback(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		utils.ErrorResponse(c, http.StatusBadRequest, "Query parameter 'q' is required", nil)
		return
	}

	threshold, err := strconv.ParseFloat(c.DefaultQuery("threshold", "0"), 64)
	if err != nil || threshold < 0 || threshold > 1 {
		utils.ErrorResponse(c, http.StatusBadRequest, "threshold must be within [0,1]", err)
		return
	}

	similar, err := h.tutor.SimilarFeedback(c.Request.Context(), query, threshold)
	if err != nil {
		h.logger.WithError(err).Error("Failed to query similar feedback")
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to query feedback", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Similar feedback retrieved", similar)
}

// HandleKnowledgeSearch is a debugging view of raw knowledge base matches
func (h *TutorHandler) HandleKnowledgeSearch(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		utils.ErrorResponse(c, http.StatusBadRequest, "Query parameter 'q' is required", nil)
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "5"))

	start := time.Now()
	results, err := h.tutor.SearchKnowledge(c.Request.Context(), query, limit)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, services.ErrKnowledgeUnavailable) {
			status = http.StatusServiceUnavailable
		}
		utils.ErrorResponse(c, status, "Knowledge base search failed", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Knowledge base searched", models.KBSearchResponse{
		Results:      results,
		Total:        len(results),
		ResponseTime: int(time.Since(start).Milliseconds()),
	})
}

func (h *TutorHandler) getUserSession(c *gin.Context) string {
	if session := c.GetHeader("X-Session-ID"); utils.IsSessionID(session) {
		return session
	}

	// basic fingerprint, rolls over hourly
	return utils.ClientSessionID(c.ClientIP(), c.GetHeader("User-Agent"))
}
