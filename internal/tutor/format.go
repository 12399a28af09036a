package tutor

import (
	"fmt"
	"strings"
)

const divider = "==========================="

// FormatKnowledgeAnswer lays out a knowledge base hit for a student.
func FormatKnowledgeAnswer(question, answer, explanation string, score float64, source string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "MATH PROBLEM SOLUTION | Source: %s\n", source)
	b.WriteString(divider + "\n\n")
	fmt.Fprintf(&b, "Question: %s\n\n", question)
	fmt.Fprintf(&b, "Final Answer: %s\n\n", answer)
	fmt.Fprintf(&b, "Step-by-Step Explanation:\n%s\n\n", explanation)
	fmt.Fprintf(&b, "Confidence Score: %.2f (Higher is better)\n\n", score)
	b.WriteString(divider + "\n")
	b.WriteString("Hope this helps with your math studies!")
	return b.String()
}

// FormatSearchAnswer lays out a solution produced from web search results.
// A zero quality means the provider was not verified.
func FormatSearchAnswer(question, solution, source string, quality int) string {
	var b strings.Builder
	b.WriteString("MATH SOLUTION FROM WEB SEARCH\n")
	b.WriteString(divider + "\n\n")
	fmt.Fprintf(&b, "Question: %s\n\n", question)
	fmt.Fprintf(&b, "Search Source: %s\n", source)
	if quality > 0 {
		fmt.Fprintf(&b, "Quality Score: %d/10\n", quality)
	}
	fmt.Fprintf(&b, "\nStep-by-Step Solution:\n%s\n\n", solution)
	b.WriteString("Note: This solution was generated from web search results. Please verify the steps and calculations.\n\n")
	b.WriteString(divider + "\n")
	b.WriteString("Hope this helps with your math studies!")
	return b.String()
}
