package tutor

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/Ayash-Bera/mathgate/backend/internal/knowledge"
	"github.com/Ayash-Bera/mathgate/backend/internal/llm"
)

// NoExplanation is returned whenever generation fails or yields no text.
const NoExplanation = "Could not generate explanation."

const SourceKnowledgeBase = "knowledge_base"

// Material is what an explanation is built from: either a knowledge base
// match or evidence extracted from a web search.
type Material struct {
	Source    string
	Candidate *knowledge.Candidate
	Evidence  string
}

func KnowledgeMaterial(c *knowledge.Candidate) Material {
	return Material{Source: SourceKnowledgeBase, Candidate: c}
}

func SearchMaterial(provider, evidence string) Material {
	return Material{Source: provider, Evidence: evidence}
}

// IsNoExplanation reports whether text is the synthesis failure sentinel.
func IsNoExplanation(text string) bool {
	return strings.TrimSpace(text) == NoExplanation
}

type Synthesizer struct {
	generator llm.Generator
	logger    *logrus.Logger
}

func NewSynthesizer(generator llm.Generator, logger *logrus.Logger) *Synthesizer {
	return &Synthesizer{
		generator: generator,
		logger:    logger,
	}
}

// Synthesize makes a single generation attempt. It never returns an error:
// failures produce NoExplanation.
func (s *Synthesizer) Synthesize(ctx context.Context, query string, m Material, feedbackContext string) string {
	var prompt string
	if m.Candidate != nil {
		prompt = knowledgePrompt(query, m.Candidate, feedbackContext)
	} else {
		prompt = searchPrompt(query, m.Evidence, feedbackContext)
	}

	text, err := llm.GenerateText(ctx, s.generator, prompt)
	if err != nil {
		s.logger.WithError(err).WithField("source", m.Source).Warn("Explanation generation failed")
		return NoExplanation
	}

	s.logger.WithFields(logrus.Fields{
		"source": m.Source,
		"length": len(text),
	}).Debug("Explanation generated")

	return text
}

func knowledgePrompt(query string, c *knowledge.Candidate, feedbackContext string) string {
	var b strings.Builder
	b.WriteString("You are a helpful math tutor explaining to a student.\n\n")
	b.WriteString("Please provide a clear, step-by-step explanation for this math problem:\n\n")
	fmt.Fprintf(&b, "Question: %s\n", c.Question)
	fmt.Fprintf(&b, "User's Query: %s\n", query)
	fmt.Fprintf(&b, "Known Answer: %s\n", c.Answer)
	fmt.Fprintf(&b, "Additional Steps: %s\n\n", c.Steps)
	if feedbackContext != "" {
		b.WriteString(feedbackContext)
		b.WriteString("\n\n")
	}
	b.WriteString(`Please format your response as follows:
1. Start with "Let me solve this step by step:"
2. Break down the solution into numbered steps
3. Use simple language appropriate for students
4. Show all calculations clearly
5. End with a clear final answer
6. If there was previous feedback, incorporate those suggestions

Make sure each step is easy to understand and follow.`)
	return b.String()
}

func searchPrompt(query, evidence, feedbackContext string) string {
	var b strings.Builder
	b.WriteString("You are a mathematics tutor. Based on the web search results below, provide a clear, step-by-step solution.\n\n")
	fmt.Fprintf(&b, "Question: %s\n\n", query)
	fmt.Fprintf(&b, "Search Results:\n%s\n\n", evidence)
	if feedbackContext != "" {
		b.WriteString(feedbackContext)
		b.WriteString("\n\n")
	}
	b.WriteString(`Provide:
1. Clear step-by-step solution
2. Explanations for each step
3. Final answer
4. Use simple, educational language

If the search results don't provide complete information, clearly state what's missing.`)
	return b.String()
}
