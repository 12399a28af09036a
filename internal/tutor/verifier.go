package tutor

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/Ayash-Bera/mathgate/backend/internal/llm"
)

const AccurateScore = 7

// Verification is a best-effort quality classification of a generated
// solution. It is derived from keywords in free-form text and is not a
// proof of correctness.
type Verification struct {
	IsAccurate   bool   `json:"is_accurate"`
	QualityScore int    `json:"quality_score"`
	Report       string `json:"verification"`
}

// ScoreReport maps a verification report onto 0..10. Checks run in order
// and the first match wins.
func ScoreReport(report string) int {
	lower := strings.ToLower(report)
	switch {
	case strings.Contains(report, "10") || strings.Contains(lower, "excellent"):
		return 10
	case strings.Contains(report, "9") || strings.Contains(lower, "very good"):
		return 9
	case strings.Contains(report, "8") || strings.Contains(lower, "good"):
		return 8
	case strings.Contains(lower, "error") || strings.Contains(lower, "incorrect"):
		return 4
	default:
		return AccurateScore
	}
}

type Verifier struct {
	generator llm.Generator
	logger    *logrus.Logger
}

func NewVerifier(generator llm.Generator, logger *logrus.Logger) *Verifier {
	return &Verifier{
		generator: generator,
		logger:    logger,
	}
}

// Verify asks the generator to review candidate. A failed call yields a
// zero score.
func (v *Verifier) Verify(ctx context.Context, candidate, question string) Verification {
	prompt := fmt.Sprintf(`You are a mathematics expert. Please verify the accuracy of the following solution.

Original Question: %s

Solution to Verify:
%s

Please analyze:
1. Are the mathematical steps correct?
2. Is the final answer accurate?
3. Are there any errors or missing steps?
4. Rate the solution quality (1-10)

Provide your verification in a structured format.`, question, candidate)

	report, err := llm.GenerateText(ctx, v.generator, prompt)
	if err != nil {
		v.logger.WithError(err).Warn("Verification failed")
		return Verification{IsAccurate: false, QualityScore: 0}
	}

	score := ScoreReport(report)
	v.logger.WithField("quality_score", score).Debug("Solution verified")

	return Verification{
		IsAccurate:   score >= AccurateScore,
		QualityScore: score,
		Report:       report,
	}
}
