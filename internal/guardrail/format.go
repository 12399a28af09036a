package guardrail

import (
	"regexp"
	"strings"
)

const EmptyOutputMessage = "Sorry, I couldn't generate a proper explanation for this math question."

var (
	reBlankRun      = regexp.MustCompile(`\n\s*\n\s*\n`)
	reSpaces        = regexp.MustCompile(`[ \t]+`)
	reListNumber    = regexp.MustCompile(`(?m)^(\d+)\s*\.\s*(\w)`)
	reColonSpacing  = regexp.MustCompile(`([a-z])\s*:\s*([A-Z])`)
	reNewlineRun    = regexp.MustCompile(`\n{3,}`)
	reStepWord      = regexp.MustCompile(`(step|Step|STEP)`)
	reNumberedLine  = regexp.MustCompile(`(?m)^\s*\d+\.`)
	reFinalAnswer   = regexp.MustCompile(`(?i)(final answer|answer is|answer:)`)
	reAssignmentRaw = regexp.MustCompile(`[a-z]\s*=\s*[^,\n\s*]+`)

	debugPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)DEBUG:.*?\n`),
		regexp.MustCompile(`(?i)Retrieved Answer:.*?\n`),
		regexp.MustCompile(`(?i)Match score:.*?\n`),
		regexp.MustCompile(`(?i)Explanation:\s*\n`),
	}
	debugLine = regexp.MustCompile(`(?im)^\s*(DEBUG:|Retrieved Answer:|Match score:)`)

	answerPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)([a-z]\s*=\s*[^,\n]+)`),
		regexp.MustCompile(`(?i)(therefore[^.]*\.)`),
		regexp.MustCompile(`(?i)(the result is[^.]*\.)`),
	}
)

// Clean normalizes whitespace, fixes list and colon spacing and strips
// debug lines.
func Clean(text string) string {
	text = reBlankRun.ReplaceAllString(text, "\n\n")
	text = reSpaces.ReplaceAllString(text, " ")
	text = strings.TrimSpace(text)

	text = reListNumber.ReplaceAllString(text, "$1. $2")
	text = reColonSpacing.ReplaceAllString(text, "$1: $2")

	// debug patterns need a trailing newline to match the last line
	text += "\n"
	for _, p := range debugPatterns {
		text = p.ReplaceAllString(text, "")
	}

	return strings.TrimSpace(text)
}

func hasStepStructure(text string) bool {
	return reStepWord.MatchString(text) || reNumberedLine.MatchString(text)
}

// EnsureEducationalFormat adds a step-by-step lead-in when the text has no
// structure and appends a final answer line when one can be found.
func EnsureEducationalFormat(text string) string {
	if !reStepWord.MatchString(text) && !strings.Contains(text, "1.") && !strings.Contains(text, "2.") {
		text = "Let me solve this step by step:\n\n" + text
	}

	if reFinalAnswer.MatchString(text) {
		return text
	}

	for _, p := range answerPatterns {
		if m := p.FindStringSubmatch(text); m != nil {
			if !strings.HasSuffix(text, "\n") {
				text += "\n"
			}
			text += "\n**Final Answer:** " + strings.TrimSpace(m[1])
			break
		}
	}

	return text
}

// AddStudentFormatting bolds variable assignments and collapses blank runs.
// Already bolded assignments are left alone.
func AddStudentFormatting(text string) string {
	matches := reAssignmentRaw.FindAllStringIndex(text, -1)
	if len(matches) > 0 {
		var b strings.Builder
		last := 0
		for _, m := range matches {
			start, end := m[0], m[1]
			if start > 0 && text[start-1] == '*' {
				continue
			}
			b.WriteString(text[last:start])
			b.WriteString("**")
			b.WriteString(text[start:end])
			b.WriteString("**")
			last = end
		}
		b.WriteString(text[last:])
		text = b.String()
	}

	text = reNewlineRun.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// Simplify is the full cleanup applied when an output guardrail asks for a
// modification.
func Simplify(text string) string {
	if strings.TrimSpace(text) == "" {
		return EmptyOutputMessage
	}
	return AddStudentFormatting(EnsureEducationalFormat(Clean(text)))
}

// NeedsFormatting reports whether the text has debug residue, blank runs, or
// neither a step structure nor a final answer.
func NeedsFormatting(text string) bool {
	if debugLine.MatchString(text) {
		return true
	}
	if reBlankRun.MatchString(text) {
		return true
	}
	return !hasStepStructure(text) && !reFinalAnswer.MatchString(text)
}
