package guardrail

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/Ayash-Bera/mathgate/backend/internal/llm"
)

const (
	InvalidInputMessage = "Invalid input: Please ask a mathematics-related question only."
	InputPassedMessage  = "Input validation passed"
)

var nonMathPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^(hi|hello|hey|how are you|what's up|good morning|good afternoon)`),
	regexp.MustCompile(`(weather|news|sports|politics|food|music|movie)`),
	regexp.MustCompile(`^(thank you|thanks|bye|goodbye|see you)`),
	regexp.MustCompile(`(tell me a joke|story|poem)`),
}

var inputSafetyPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(hack|cheat|exploit|bypass)`),
	regexp.MustCompile(`(illegal|fraud|scam)`),
	regexp.MustCompile(`(violent|harmful|dangerous)`),
	regexp.MustCompile(`(explicit|inappropriate|adult)`),
}

var mathKeywords = []string{
	"solve", "equation", "derivative", "integral", "limit", "function",
	"calculate", "find", "simplify", "expand", "factor", "graph",
	"algebra", "calculus", "geometry", "trigonometry", "statistics",
	"polynomial", "logarithm", "exponential", "matrix", "vector",
	"theorem", "proof", "formula", "inequality", "system",
}

var mathSymbols = []string{"+", "-", "*", "/", "=", "^", "√", "∫", "∂", "x", "y", "z"}

const classifierPrompt = `You are a strict math question classifier for an educational system.

Analyze this input and determine if it's a mathematics-related question or request.

Input: "%s"

Consider it valid ONLY if it's asking about:
- Solving equations or mathematical problems
- Mathematical concepts, theories, or explanations
- Calculations, derivatives, integrals, etc.
- Geometry, algebra, calculus, statistics, etc.
- Mathematical proofs or formulas

Consider it INVALID if it's:
- General conversation (greetings, how are you, etc.)
- Non-math subjects (weather, news, sports, etc.)
- Personal questions or casual chat
- Requests for stories, jokes, or non-educational content

Respond with exactly 'VALID' or 'INVALID' - nothing else.`

// InputValidator classifies questions before any retrieval happens.
// The classifier is only consulted when the fast paths are inconclusive and
// may be nil.
type InputValidator struct {
	classifier llm.Generator
	logger     *logrus.Logger
}

func NewInputValidator(classifier llm.Generator, logger *logrus.Logger) *InputValidator {
	return &InputValidator{
		classifier: classifier,
		logger:     logger,
	}
}

func isTooShort(text string) bool {
	return len([]rune(strings.TrimSpace(text))) < 2
}

func matchNonMath(lower string) (string, bool) {
	for _, p := range nonMathPatterns {
		if p.MatchString(lower) {
			return p.String(), true
		}
	}
	return "", false
}

// HasMathIndicators reports whether text contains a math keyword or symbol.
func HasMathIndicators(text string) bool {
	lower := strings.ToLower(strings.TrimSpace(text))
	for _, kw := range mathKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	for _, sym := range mathSymbols {
		if strings.Contains(text, sym) {
			return true
		}
	}
	return false
}

// IsValidMathInput rejects short and conversational input, accepts anything
// with math keywords or symbols, and asks the classifier otherwise. Without
// a classifier the input is accepted; a failed classifier call rejects it.
func (v *InputValidator) IsValidMathInput(ctx context.Context, text string) bool {
	if isTooShort(text) {
		v.logger.Debug("Input rejected: too short or empty")
		return false
	}

	lower := strings.ToLower(strings.TrimSpace(text))
	if pattern, found := matchNonMath(lower); found {
		v.logger.WithField("pattern", pattern).Debug("Input rejected: non-math pattern")
		return false
	}

	if HasMathIndicators(text) {
		return true
	}

	if v.classifier == nil {
		return true
	}

	answer, err := llm.GenerateText(ctx, v.classifier, fmt.Sprintf(classifierPrompt, text))
	if err != nil {
		v.logger.WithError(err).Warn("Input classifier failed, rejecting input")
		return false
	}

	answer = strings.ToUpper(strings.TrimSpace(answer))
	valid := strings.Contains(answer, "VALID") && !strings.Contains(answer, "INVALID")

	v.logger.WithFields(logrus.Fields{
		"answer": answer,
		"valid":  valid,
	}).Debug("Input classifier answered")

	return valid
}

// IsSafe checks the input against the safety pattern list.
func IsSafe(text string) bool {
	lower := strings.ToLower(text)
	for _, p := range inputSafetyPatterns {
		if p.MatchString(lower) {
			return false
		}
	}
	return true
}

// ComprehensiveValidation runs safety and math-relevance checks without the
// classifier, so the classifier is called at most once per request.
func (v *InputValidator) ComprehensiveValidation(ctx context.Context, text string) Result {
	details := map[string]interface{}{
		"is_math_related": false,
		"is_safe":         false,
	}

	if !IsSafe(text) {
		return Structured(false, 0.0, "Content failed safety validation", details)
	}
	details["is_safe"] = true

	lower := strings.ToLower(strings.TrimSpace(text))
	if _, found := matchNonMath(lower); found || isTooShort(text) {
		return Structured(false, 0.0, "Input is not mathematics-related", details)
	}
	details["is_math_related"] = true

	return Structured(true, 0.95, "Input passed all validation checks", details)
}

// Descriptors returns the default input guardrails.
func (v *InputValidator) Descriptors() []Descriptor {
	return []Descriptor{
		{
			Name: "math_content_validator",
			Evaluate: func(ctx context.Context, text string) (Result, error) {
				return Simple(v.IsValidMathInput(ctx, text)), nil
			},
			OnFail:      ActionBlock,
			Priority:    1,
			PassMessage: InputPassedMessage,
			FailMessage: InvalidInputMessage,
		},
		{
			Name: "comprehensive_validator",
			Evaluate: func(ctx context.Context, text string) (Result, error) {
				return v.ComprehensiveValidation(ctx, text), nil
			},
			OnFail:      ActionBlock,
			Priority:    2,
			PassMessage: InputPassedMessage,
		},
	}
}
