package guardrail

import (
	"context"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"
)

const (
	SafetyBlockedMessage = "Response blocked by safety guardrails. Please try rephrasing your question."
	outputSafetyPassed   = "Output safety check: PASSED"
	outputSafetyFailed   = "Output failed safety validation"
	accuracyPassed       = "Mathematical accuracy check: PASSED"
	accuracyWarnings     = "Mathematical accuracy check: WARNINGS"
	formatPassed         = "Output format check: PASSED"
	formatFailed         = "Output needs reformatting"
)

var outputSafetyPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(hack|cheat|plagiarize)`),
	regexp.MustCompile(`(inappropriate|explicit|adult)`),
	regexp.MustCompile(`(illegal|fraud|scam)`),
	regexp.MustCompile(`(violent|harmful|dangerous)`),
}

var (
	reVariableAssignment = regexp.MustCompile(`[a-z]\s*=\s*[a-z]`)
	reStepOrNumbered     = regexp.MustCompile(`(step|Step|\d+\.)`)
	accuracySymbols      = []string{"=", "+", "-", "*", "/", "^", "√", "²", "³"}
)

type OutputValidator struct {
	logger *logrus.Logger
}

func NewOutputValidator(logger *logrus.Logger) *OutputValidator {
	return &OutputValidator{logger: logger}
}

// ValidateSafety reports whether the response is fit for a student.
func (v *OutputValidator) ValidateSafety(text string) bool {
	lower := strings.ToLower(text)
	for _, p := range outputSafetyPatterns {
		if p.MatchString(lower) {
			v.logger.WithField("pattern", p.String()).Warn("Output safety pattern matched")
			return false
		}
	}
	return true
}

// ValidateAccuracy is a notation heuristic, not a check of mathematical
// truth. The response is always reported as sound; the confidence carries
// the signal.
func (v *OutputValidator) ValidateAccuracy(text string) Result {
	confidence := 0.8
	var warnings, suggestions []string

	if reVariableAssignment.MatchString(text) {
		confidence += 0.1
	}

	if reStepOrNumbered.MatchString(text) {
		confidence += 0.1
		suggestions = append(suggestions, "Good step-by-step structure detected")
	} else {
		warnings = append(warnings, "Consider adding more step-by-step explanation")
	}

	symbolCount := 0
	for _, s := range accuracySymbols {
		if strings.Contains(text, s) {
			symbolCount++
		}
	}
	if symbolCount == 0 {
		warnings = append(warnings, "No mathematical symbols detected - may need more detailed calculations")
		confidence -= 0.2
	}

	return Structured(true, confidence, "", map[string]interface{}{
		"is_mathematically_sound": true,
		"warnings":                warnings,
		"suggestions":             suggestions,
		"raw_confidence":          confidence,
	})
}

// ValidateFormat fails text that Simplify would change materially.
func (v *OutputValidator) ValidateFormat(text string) Result {
	return Simple(!NeedsFormatting(text))
}

// Descriptors returns the default output guardrails.
func (v *OutputValidator) Descriptors() []Descriptor {
	return []Descriptor{
		{
			Name: "safety_validator",
			Evaluate: func(ctx context.Context, text string) (Result, error) {
				return Simple(v.ValidateSafety(text)), nil
			},
			OnFail:      ActionBlock,
			Priority:    1,
			PassMessage: outputSafetyPassed,
			FailMessage: outputSafetyFailed,
		},
		{
			Name: "accuracy_validator",
			Evaluate: func(ctx context.Context, text string) (Result, error) {
				return v.ValidateAccuracy(text), nil
			},
			OnFail:      ActionWarn,
			Priority:    2,
			PassMessage: accuracyPassed,
			FailMessage: accuracyWarnings,
		},
		{
			Name: "format_validator",
			Evaluate: func(ctx context.Context, text string) (Result, error) {
				return v.ValidateFormat(text), nil
			},
			OnFail:      ActionModify,
			Priority:    3,
			PassMessage: formatPassed,
			FailMessage: formatFailed,
		},
	}
}
