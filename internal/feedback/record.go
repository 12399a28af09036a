package feedback

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Ayash-Bera/mathgate/backend/pkg/utils"
)

var (
	ErrInvalidRating = errors.New("rating must be between 1 and 5")
	ErrEmptyQuestion = errors.New("question is required")
)

// Record is one student rating of an answer. Records are append-only.
type Record struct {
	ID                  string    `json:"id"`
	Question            string    `json:"question"`
	OriginalResponse    string    `json:"original_response"`
	Rating              int       `json:"rating"`
	FeedbackText        string    `json:"feedback_text"`
	SuggestedCorrection string    `json:"suggested_correction"`
	IssuedAt            time.Time `json:"timestamp"`
}

func NewRecord(question, originalResponse string, rating int, feedbackText, suggestedCorrection string) (Record, error) {
	return newRecordAt(question, originalResponse, rating, feedbackText, suggestedCorrection, time.Now())
}

func newRecordAt(question, originalResponse string, rating int, feedbackText, suggestedCorrection string, at time.Time) (Record, error) {
	if strings.TrimSpace(question) == "" {
		return Record{}, ErrEmptyQuestion
	}
	if rating < 1 || rating > 5 {
		return Record{}, fmt.Errorf("%w: got %d", ErrInvalidRating, rating)
	}

	return Record{
		ID:                  recordID(question, at, rating),
		Question:            question,
		OriginalResponse:    originalResponse,
		Rating:              rating,
		FeedbackText:        feedbackText,
		SuggestedCorrection: suggestedCorrection,
		IssuedAt:            at,
	}, nil
}

// recordID hashes the question with the fractional unix time and rating.
func recordID(question string, at time.Time, rating int) string {
	seconds := strconv.FormatFloat(float64(at.UnixNano())/1e9, 'f', -1, 64)
	return utils.MD5Hash(question + seconds + strconv.Itoa(rating))
}
