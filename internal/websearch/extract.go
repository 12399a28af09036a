package websearch

import (
	"fmt"
	"strings"
)

const (
	maxSnippets       = 3
	maxSnippetContent = 400
)

const knowledgeGraphLabel = "Knowledge Graph"

var solutionKeywords = []string{"step", "solve", "solution", "equation", "formula"}

// Extract keeps the provider's direct answer, its knowledge graph entry and
// the documents that look like worked solutions, capped at three snippets.
func Extract(result SearchResult) []string {
	if !result.Success {
		return nil
	}

	var snippets []string
	answer := strings.TrimSpace(result.DirectAnswer)
	graph := strings.TrimSpace(result.KnowledgeGraph)
	switch {
	case answer != "" && answer == graph:
		snippets = append(snippets, knowledgeGraphLabel+": "+graph)
	case answer != "":
		snippets = append(snippets, fmt.Sprintf("%s: %s", answerLabel(result.Provider), answer))
		if graph != "" {
			snippets = append(snippets, knowledgeGraphLabel+": "+graph)
		}
	case graph != "":
		snippets = append(snippets, knowledgeGraphLabel+": "+graph)
	}

	for _, doc := range result.Documents {
		if len(snippets) >= maxSnippets {
			break
		}
		content := strings.TrimSpace(doc.Content)
		if !mentionsSolution(content) {
			continue
		}
		snippet := fmt.Sprintf("Source: %s\nContent: %s", doc.Title, truncate(content, maxSnippetContent))
		if doc.URL != "" {
			snippet += "\nURL: " + doc.URL
		}
		snippets = append(snippets, snippet)
	}

	return snippets
}

// Evidence joins extracted snippets into synthesis input.
func Evidence(snippets []string) string {
	return strings.Join(snippets, "\n\n")
}

func mentionsSolution(content string) bool {
	lower := strings.ToLower(content)
	for _, kw := range solutionKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func answerLabel(provider string) string {
	if provider == SerperName {
		return "Answer Box"
	}
	return "Direct Answer"
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
