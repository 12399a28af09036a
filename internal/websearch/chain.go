package websearch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Ayash-Bera/mathgate/backend/internal/tutor"
)

// NoSolutionMessage is the content returned when every strategy failed.
const NoSolutionMessage = "Could not find a solution to this math problem. Please try rephrasing or ask a different question."

// Attempt stages.
const (
	StageSearch     = "search"
	StageExtract    = "extract"
	StageSynthesize = "synthesize"
	StageVerify     = "verify"
	StageAccepted   = "accepted"
)

type Synthesizer interface {
	Synthesize(ctx context.Context, query string, m tutor.Material, feedbackContext string) string
}

type Verifier interface {
	Verify(ctx context.Context, candidate, question string) tutor.Verification
}

// OutcomeCache stores solved outcomes keyed by question.
type OutcomeCache interface {
	CacheOutcome(ctx context.Context, query string, outcome interface{}) error
	GetCachedOutcome(ctx context.Context, query string, dest interface{}) (bool, error)
}

// Strategy is one provider in the chain. Verify enables the accuracy check
// for its candidates.
type Strategy struct {
	Provider Provider
	Verify   bool
}

// Attempt records how far one strategy got.
type Attempt struct {
	Provider     string `json:"provider"`
	Stage        string `json:"stage"`
	Error        string `json:"error,omitempty"`
	QualityScore int    `json:"quality_score,omitempty"`
}

type Outcome struct {
	Solved       bool                `json:"solved"`
	Solution     string              `json:"solution"`
	Explanation  string              `json:"explanation,omitempty"`
	Provider     string              `json:"provider,omitempty"`
	Verification *tutor.Verification `json:"verification,omitempty"`
	Evidence     string              `json:"evidence,omitempty"`
	Attempts     []Attempt           `json:"attempts"`
	Cached       bool                `json:"cached"`
}

// Chain tries its strategies strictly in order and stops at the first
// accepted candidate. Providers are never raced.
type Chain struct {
	strategies      []Strategy
	synth           Synthesizer
	verifier        Verifier
	verifyThreshold int
	cache           OutcomeCache
	logger          *logrus.Logger
}

func NewChain(synth Synthesizer, verifier Verifier, verifyThreshold int, logger *logrus.Logger, strategies ...Strategy) *Chain {
	if verifyThreshold <= 0 {
		verifyThreshold = tutor.AccurateScore
	}
	return &Chain{
		strategies:      strategies,
		synth:           synth,
		verifier:        verifier,
		verifyThreshold: verifyThreshold,
		logger:          logger,
	}
}

// DefaultStrategies returns Tavily (verified) then Serper (unverified),
// skipping providers without an API key.
func DefaultStrategies(tavilyKey, serperKey string, timeout time.Duration, logger *logrus.Logger) []Strategy {
	var strategies []Strategy
	if tavilyKey != "" {
		strategies = append(strategies, Strategy{Provider: NewTavilyClient("", tavilyKey, timeout, logger), Verify: true})
	}
	if serperKey != "" {
		strategies = append(strategies, Strategy{Provider: NewSerperClient("", serperKey, timeout, logger), Verify: false})
	}
	return strategies
}

// SetCache enables outcome caching. A nil cache disables it.
func (c *Chain) SetCache(cache OutcomeCache) {
	c.cache = cache
}

// Provider returns the configured provider with the given name.
func (c *Chain) Provider(name string) (Provider, bool) {
	for _, s := range c.strategies {
		if s.Provider.Name() == name {
			return s.Provider, true
		}
	}
	return nil, false
}

func (c *Chain) Providers() []string {
	names := make([]string, 0, len(c.strategies))
	for _, s := range c.strategies {
		names = append(names, s.Provider.Name())
	}
	return names
}

// SearchAndSolve runs the strategies in order. Cached outcomes are only
// consulted when no feedback context shapes the answer.
func (c *Chain) SearchAndSolve(ctx context.Context, query, feedbackContext string) Outcome {
	useCache := c.cache != nil && feedbackContext == ""
	if useCache {
		var cached Outcome
		found, err := c.cache.GetCachedOutcome(ctx, query, &cached)
		if err != nil {
			c.logger.WithError(err).Warn("Failed to read cached search outcome")
		} else if found && cached.Solved {
			cached.Cached = true
			c.logger.WithField("provider", cached.Provider).Info("Search outcome served from cache")
			return cached
		}
	}

	outcome := Outcome{Attempts: make([]Attempt, 0, len(c.strategies))}

	for _, strategy := range c.strategies {
		attempt, solved := c.try(ctx, strategy, query, feedbackContext, &outcome)
		outcome.Attempts = append(outcome.Attempts, attempt)
		if solved {
			outcome.Solved = true
			break
		}
	}

	if !outcome.Solved {
		outcome.Solution = NoSolutionMessage
		c.logger.WithField("attempts", len(outcome.Attempts)).Warn("All search providers exhausted")
		return outcome
	}

	if useCache {
		if err := c.cache.CacheOutcome(ctx, query, outcome); err != nil {
			c.logger.WithError(err).Warn("Failed to cache search outcome")
		}
	}

	return outcome
}

func (c *Chain) try(ctx context.Context, s Strategy, query, feedbackContext string, outcome *Outcome) (Attempt, bool) {
	name := s.Provider.Name()
	attempt := Attempt{Provider: name, Stage: StageSearch}
	log := c.logger.WithField("provider", name)

	result := s.Provider.Search(ctx, query)
	if !result.Success {
		attempt.Error = result.Error
		return attempt, false
	}

	attempt.Stage = StageExtract
	evidence := strings.TrimSpace(Evidence(Extract(result)))
	if evidence == "" {
		attempt.Error = ErrNoContent.Error()
		log.Info("No usable content, trying next provider")
		return attempt, false
	}

	attempt.Stage = StageSynthesize
	explanation := c.synth.Synthesize(ctx, query, tutor.SearchMaterial(name, evidence), feedbackContext)
	if tutor.IsNoExplanation(explanation) || strings.TrimSpace(explanation) == "" {
		attempt.Error = "synthesis produced no explanation"
		return attempt, false
	}

	var verification *tutor.Verification
	quality := 0
	if s.Verify && c.verifier != nil {
		attempt.Stage = StageVerify
		v := c.verifier.Verify(ctx, explanation, query)
		attempt.QualityScore = v.QualityScore
		if v.QualityScore < c.verifyThreshold {
			attempt.Error = fmt.Sprintf("quality score %d below threshold %d", v.QualityScore, c.verifyThreshold)
			log.WithField("quality_score", v.QualityScore).Info("Candidate rejected by verification")
			return attempt, false
		}
		verification = &v
		quality = v.QualityScore
	}

	attempt.Stage = StageAccepted
	outcome.Provider = name
	outcome.Explanation = explanation
	outcome.Evidence = evidence
	outcome.Verification = verification
	outcome.Solution = tutor.FormatSearchAnswer(query, explanation, sourceLabel(name), quality)

	log.WithField("verified", verification != nil).Info("Search candidate accepted")
	return attempt, true
}

func sourceLabel(provider string) string {
	switch provider {
	case TavilyName:
		return "Tavily"
	case SerperName:
		return "Serper"
	default:
		return provider
	}
}
