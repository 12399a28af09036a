package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/Ayash-Bera/mathgate/backend/internal/feedback"
	"github.com/Ayash-Bera/mathgate/backend/internal/gateway"
	"github.com/Ayash-Bera/mathgate/backend/internal/knowledge"
	"github.com/Ayash-Bera/mathgate/backend/internal/models"
)

const (
	MaxQuestionLength = 2000

	defaultSearchLimit = 5
	maxSearchLimit     = 20
)

var (
	ErrQuestionTooLong      = fmt.Errorf("question too long (max %d characters)", MaxQuestionLength)
	ErrKnowledgeUnavailable = errors.New("knowledge base is not configured")
	ErrAuditUnavailable     = errors.New("request audit log is not configured")
)

// Pipeline is the part of the gateway the service drives.
type Pipeline interface {
	Process(ctx context.Context, req gateway.Request) *gateway.Response
	GetMetrics() gateway.Metrics
	GetRecentLogs(limit int) []gateway.LogEntry
	ResetMetrics()
}

type KnowledgeSearcher interface {
	Search(ctx context.Context, query string, k int) ([]knowledge.Candidate, error)
}

// TutorService is the application facade shared by the HTTP API, the MCP
// server and the CLI.
type TutorService struct {
	pipeline  Pipeline
	feedback  feedback.Store
	knowledge KnowledgeSearcher
	audits    models.RequestAuditRepository
	logger    *logrus.Logger
}

func NewTutorService(
	pipeline Pipeline,
	store feedback.Store,
	kb KnowledgeSearcher,
	logger *logrus.Logger,
) *TutorService {
	return &TutorService{
		pipeline:  pipeline,
		feedback:  store,
		knowledge: kb,
		logger:    logger,
	}
}

// Ask runs a question through the gateway. Empty questions are left to the
// input guardrails.
func (s *TutorService) Ask(ctx context.Context, question string, opts ...gateway.Option) (*gateway.Response, error) {
	if len([]rune(question)) > MaxQuestionLength {
		return nil, ErrQuestionTooLong
	}

	s.logger.WithField("question_length", len(question)).Debug("Asking gateway")
	return s.pipeline.Process(ctx, gateway.NewRequest(question, opts...)), nil
}

func (s *TutorService) Metrics() gateway.Metrics {
	return s.pipeline.GetMetrics()
}

func (s *TutorService) RecentLogs(limit int) []gateway.LogEntry {
	return s.pipeline.GetRecentLogs(limit)
}

func (s *TutorService) ResetMetrics() {
	s.pipeline.ResetMetrics()
}

// SubmitFeedback validates and stores one rating.
func (s *TutorService) SubmitFeedback(ctx context.Context, req models.FeedbackRequest) (feedback.Record, error) {
	record, err := feedback.NewRecord(
		strings.TrimSpace(req.Question),
		req.OriginalResponse,
		req.Rating,
		req.FeedbackText,
		req.SuggestedCorrection,
	)
	if err != nil {
		return feedback.Record{}, err
	}

	if err := s.feedback.Append(ctx, record); err != nil {
		s.logger.WithError(err).Error("Failed to save feedback")
		return feedback.Record{}, err
	}

	s.logger.WithFields(logrus.Fields{
		"id":     record.ID,
		"rating": record.Rating,
	}).Info("Feedback recorded")

	return record, nil
}

func (s *TutorService) FeedbackStats(ctx context.Context) (feedback.Stats, error) {
	return s.feedback.Stats(ctx)
}

// SimilarFeedback lists stored feedback whose question overlaps the given
// one, most similar first.
func (s *TutorService) SimilarFeedback(ctx context.Context, question string, threshold float64) ([]models.SimilarFeedback, error) {
	if threshold <= 0 {
		threshold = feedback.DefaultThreshold
	}

	matches, err := s.feedback.QuerySimilar(ctx, question, threshold)
	if err != nil {
		return nil, err
	}

	out := make([]models.SimilarFeedback, 0, len(matches))
	for _, m := range matches {
		out = append(out, models.SimilarFeedback{
			ID:                  m.ID,
			Question:            m.Question,
			Rating:              m.Rating,
			FeedbackText:        m.FeedbackText,
			SuggestedCorrection: m.SuggestedCorrection,
			Similarity:          m.Similarity,
		})
	}
	return out, nil
}

// SearchKnowledge returns the top k knowledge base entries for a query with
// a coarse relevance label. It bypasses the gateway and its guardrails.
func (s *TutorService) SearchKnowledge(ctx context.Context, query string, k int) ([]models.KBSearchResult, error) {
	if s.knowledge == nil {
		return nil, ErrKnowledgeUnavailable
	}
	if k <= 0 {
		k = defaultSearchLimit
	}
	if k > maxSearchLimit {
		k = maxSearchLimit
	}

	candidates, err := s.knowledge.Search(ctx, query, k)
	if err != nil {
		s.logger.WithError(err).Error("Knowledge base search failed")
		return nil, fmt.Errorf("knowledge base search unavailable: %w", err)
	}

	results := make([]models.KBSearchResult, 0, len(candidates))
	for _, c := range candidates {
		results = append(results, models.KBSearchResult{
			ID:         c.ID,
			Question:   c.Question,
			Answer:     c.Answer,
			Score:      c.Similarity,
			Relevance:  determineRelevance(c.Similarity),
			Level:      c.Metadata.Level,
			Category:   c.Metadata.Category,
			Difficulty: c.Metadata.Difficulty,
		})
	}

	s.logger.WithFields(logrus.Fields{
		"query":   query,
		"results": len(results),
	}).Debug("Knowledge base search completed")

	return results, nil
}

func determineRelevance(score float64) string {
	if score >= 0.8 {
		return "high"
	} else if score >= 0.6 {
		return "medium"
	}
	return "low"
}

// SolveResponseFrom converts a gateway response into its API shape.
func SolveResponseFrom(resp *gateway.Response) models.SolveResponse {
	guardrails := make([]models.GuardrailResult, 0, len(resp.GuardrailVerdicts))
	for _, v := range resp.GuardrailVerdicts {
		guardrails = append(guardrails, models.GuardrailResult{
			Name:       v.Guardrail,
			Passed:     v.Passed,
			Action:     string(v.Action),
			Confidence: v.Confidence,
			Message:    v.Message,
		})
	}

	return models.SolveResponse{
		RequestID:      resp.RequestID,
		Content:        resp.Content,
		Success:        resp.Success,
		Blocked:        resp.Blocked,
		Confidence:     resp.Confidence,
		ProcessingTime: resp.ProcessingTime,
		AgentUsed:      resp.Agent(),
		Guardrails:     guardrails,
		Metadata:       resp.Metadata,
	}
}
