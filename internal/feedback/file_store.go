package feedback

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"
)

// FileStore keeps every record in a single JSON array file. The whole
// file is rewritten on each append.
type FileStore struct {
	path    string
	mu      sync.RWMutex
	records []Record
	logger  *logrus.Logger
}

// OpenFileStore loads path if it exists. An unreadable file is logged and
// treated as empty.
func OpenFileStore(path string, logger *logrus.Logger) (*FileStore, error) {
	s := &FileStore{path: path, logger: logger}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("failed to read feedback file: %w", err)
	}

	if len(data) > 0 {
		if err := json.Unmarshal(data, &s.records); err != nil {
			logger.WithError(err).WithField("path", path).Warn("Feedback file is corrupt, starting empty")
			s.records = nil
		}
	}

	logger.WithFields(logrus.Fields{
		"path":    path,
		"records": len(s.records),
	}).Info("Feedback store loaded")

	return s, nil
}

func (s *FileStore) Append(ctx context.Context, r Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := append(append([]Record(nil), s.records...), r)
	if err := s.write(next); err != nil {
		return err
	}
	s.records = next

	s.logger.WithFields(logrus.Fields{
		"id":     r.ID,
		"rating": r.Rating,
	}).Info("Feedback stored")
	return nil
}

func (s *FileStore) write(records []Record) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal feedback: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".feedback-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write feedback: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace feedback file: %w", err)
	}
	return nil
}

func (s *FileStore) QuerySimilar(ctx context.Context, question string, threshold float64) ([]Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return rankSimilar(s.records, question, threshold), nil
}

func (s *FileStore) All(ctx context.Context) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Record(nil), s.records...), nil
}

func (s *FileStore) Stats(ctx context.Context) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return computeStats(s.records), nil
}
