package services

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Ayash-Bera/mathgate/backend/internal/gateway"
	"github.com/Ayash-Bera/mathgate/backend/internal/models"
)

// AuditRecorder persists every gateway log entry as a RequestAudit row.
// Writes happen off the request path; Wait blocks until they are done.
type AuditRecorder struct {
	repo   models.RequestAuditRepository
	logger *logrus.Logger
	wg     sync.WaitGroup
}

func NewAuditRecorder(repo models.RequestAuditRepository, logger *logrus.Logger) *AuditRecorder {
	return &AuditRecorder{
		repo:   repo,
		logger: logger,
	}
}

func (a *AuditRecorder) ObserveRequest(ctx context.Context, req gateway.Request, resp *gateway.Response, entry gateway.LogEntry) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.persist(entry)
	}()
}

func (a *AuditRecorder) persist(entry gateway.LogEntry) {
	audit := &models.RequestAudit{
		RequestID:        entry.RequestID,
		UserQuery:        entry.UserQuery,
		ResponseLength:   entry.ResponseLength,
		ProcessingTime:   entry.ProcessingTime,
		GuardrailsPassed: entry.GuardrailsPassed,
		GuardrailsFailed: entry.GuardrailsFailed,
		Success:          entry.Success,
		Blocked:          entry.Blocked,
		AgentUsed:        entry.AgentUsed,
		Confidence:       entry.Confidence,
		States:           models.StringArray(entry.States),
		RequestedAt:      entry.Timestamp,
	}

	if err := a.repo.Create(audit); err != nil {
		a.logger.WithError(err).WithField("request_id", entry.RequestID).Error("Failed to persist request audit")
	}
}

// Wait blocks until every pending audit write has finished.
func (a *AuditRecorder) Wait() {
	a.wg.Wait()
}

// UseAuditLog enables the persisted request history. Without it the audit
// queries return ErrAuditUnavailable.
func (s *TutorService) UseAuditLog(repo models.RequestAuditRepository) {
	s.audits = repo
}

// AuditLogs returns persisted requests, newest first. limit <= 0 returns all.
func (s *TutorService) AuditLogs(ctx context.Context, limit int) ([]models.RequestAudit, error) {
	if s.audits == nil {
		return nil, ErrAuditUnavailable
	}
	return s.audits.GetRecent(limit)
}

// AuditEntry looks up one persisted request. Unknown ids give
// models.ErrNotFound.
func (s *TutorService) AuditEntry(ctx context.Context, requestID string) (*models.RequestAudit, error) {
	if s.audits == nil {
		return nil, ErrAuditUnavailable
	}
	return s.audits.GetByRequestID(requestID)
}

// AuditSummary aggregates the requests persisted during the last window.
func (s *TutorService) AuditSummary(ctx context.Context, window time.Duration) (*models.AuditSummary, error) {
	if s.audits == nil {
		return nil, ErrAuditUnavailable
	}
	to := time.Now()
	return s.audits.GetSummary(to.Add(-window), to)
}
