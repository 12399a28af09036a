package feedback

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/Ayash-Bera/mathgate/backend/internal/models"
)

// DBStore keeps feedback in Postgres through the feedback repository.
type DBStore struct {
	repo   models.FeedbackRepository
	logger *logrus.Logger
}

func NewDBStore(repo models.FeedbackRepository, logger *logrus.Logger) *DBStore {
	return &DBStore{
		repo:   repo,
		logger: logger,
	}
}

func (s *DBStore) Append(ctx context.Context, r Record) error {
	entry := &models.FeedbackEntry{
		RecordID:            r.ID,
		Question:            r.Question,
		OriginalResponse:    r.OriginalResponse,
		Rating:              r.Rating,
		FeedbackText:        r.FeedbackText,
		SuggestedCorrection: r.SuggestedCorrection,
		IssuedAt:            r.IssuedAt,
	}
	if err := s.repo.Create(entry); err != nil {
		return fmt.Errorf("failed to store feedback: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"id":     r.ID,
		"rating": r.Rating,
	}).Info("Feedback stored")
	return nil
}

func (s *DBStore) All(ctx context.Context) ([]Record, error) {
	entries, err := s.repo.GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to load feedback: %w", err)
	}

	records := make([]Record, 0, len(entries))
	for _, e := range entries {
		records = append(records, Record{
			ID:                  e.RecordID,
			Question:            e.Question,
			OriginalResponse:    e.OriginalResponse,
			Rating:              e.Rating,
			FeedbackText:        e.FeedbackText,
			SuggestedCorrection: e.SuggestedCorrection,
			IssuedAt:            e.IssuedAt,
		})
	}
	return records, nil
}

func (s *DBStore) QuerySimilar(ctx context.Context, question string, threshold float64) ([]Match, error) {
	records, err := s.All(ctx)
	if err != nil {
		return nil, err
	}
	return rankSimilar(records, question, threshold), nil
}

func (s *DBStore) Stats(ctx context.Context) (Stats, error) {
	records, err := s.All(ctx)
	if err != nil {
		return Stats{}, err
	}
	return computeStats(records), nil
}
