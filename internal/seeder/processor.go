package seeder

import (
	"regexp"
	"strings"
	"unicode"
)

// WorkedExample is a problem statement with its solution as found on a
// tutorial page.
type WorkedExample struct {
	Problem  string
	Solution string
	Answer   string
}

// ContentProcessor handles text processing and cleanup of scraped tutorial
// pages.
type ContentProcessor struct {
	multiWhitespace *regexp.Regexp
	htmlTags        *regexp.Regexp
	mathDelimiters  *regexp.Regexp
	exampleMarker   *regexp.Regexp
	solutionMarker  *regexp.Regexp
	sentenceEnd     *regexp.Regexp
}

func NewContentProcessor() *ContentProcessor {
	return &ContentProcessor{
		multiWhitespace: regexp.MustCompile(`[ \t\r\f\v]+`),
		htmlTags:        regexp.MustCompile(`<[^>]*>`),
		mathDelimiters:  regexp.MustCompile(`\\[\(\)\[\]]|\$\$?`),
		exampleMarker:   regexp.MustCompile(`(?i)\bexample\s*\d+\s*[:.)]?`),
		solutionMarker:  regexp.MustCompile(`(?i)\bsolution\s*[:.]?`),
		sentenceEnd:     regexp.MustCompile(`[.!?]+\s+`),
	}
}

// CleanContent strips markup and MathJax delimiters and normalizes
// whitespace. At most two consecutive empty lines are kept.
func (cp *ContentProcessor) CleanContent(content string) string {
	content = cp.htmlTags.ReplaceAllString(content, "")
	content = cp.mathDelimiters.ReplaceAllString(content, "")
	content = cp.multiWhitespace.ReplaceAllString(content, " ")

	lines := strings.Split(content, "\n")
	var cleaned []string
	emptyLines := 0

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			emptyLines++
			if emptyLines <= 2 {
				cleaned = append(cleaned, "")
			}
		} else {
			emptyLines = 0
			cleaned = append(cleaned, line)
		}
	}

	return strings.TrimSpace(strings.Join(cleaned, "\n"))
}

// ExtractWorkedExamples splits text on "Example N" markers and keeps the
// blocks that carry a "Solution" part.
func (cp *ContentProcessor) ExtractWorkedExamples(content string) []WorkedExample {
	markers := cp.exampleMarker.FindAllStringIndex(content, -1)
	var examples []WorkedExample

	for i, m := range markers {
		end := len(content)
		if i+1 < len(markers) {
			end = markers[i+1][0]
		}
		block := content[m[1]:end]

		loc := cp.solutionMarker.FindStringIndex(block)
		if loc == nil {
			continue
		}

		problem := strings.TrimSpace(block[:loc[0]])
		solution := strings.TrimSpace(block[loc[1]:])
		if len(problem) < 5 || len(solution) < 5 {
			continue
		}

		examples = append(examples, WorkedExample{
			Problem:  problem,
			Solution: solution,
			Answer:   FinalAnswer(solution),
		})
	}

	return examples
}

// FinalAnswer picks the last line that states a value, falling back to the
// last non-empty line.
func FinalAnswer(solution string) string {
	lines := strings.Split(strings.TrimSpace(solution), "\n")
	last := ""
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}
		if last == "" {
			last = line
		}
		if strings.Contains(line, "=") {
			return line
		}
	}
	return last
}

var categoryKeywords = []struct {
	category string
	words    []string
}{
	{"Calculus", []string{"derivative", "integral", "limit", "differentiat", "integrat"}},
	{"Trigonometry", []string{"sin(", "cos(", "tan(", "sine", "trigonometr"}},
	{"Geometry", []string{"triangle", "circle", "angle", "area", "perimeter"}},
	{"Statistics", []string{"mean", "median", "probability", "variance"}},
	{"Algebra", []string{"equation", "solve", "factor", "quadratic", "polynomial"}},
}

// ClassifyCategory guesses the subject of a problem from keywords.
func (cp *ContentProcessor) ClassifyCategory(text string) string {
	lower := strings.ToLower(text)
	for _, c := range categoryKeywords {
		for _, w := range c.words {
			if strings.Contains(lower, w) {
				return c.category
			}
		}
	}
	return "General"
}

// EstimateDifficulty maps the length of a worked solution onto 1..5.
func (cp *ContentProcessor) EstimateDifficulty(solution string) int {
	words := cp.CountWords(solution)
	switch {
	case words > 300:
		return 5
	case words > 150:
		return 4
	case words > 80:
		return 3
	case words > 30:
		return 2
	default:
		return 1
	}
}

// SplitIntoChunks splits content into paragraphs of at most maxChunkSize
// bytes, falling back to sentences for long paragraphs.
func (cp *ContentProcessor) SplitIntoChunks(content string, maxChunkSize int) []string {
	if len(content) <= maxChunkSize {
		return []string{content}
	}

	var chunks []string
	var currentChunk strings.Builder

	for _, paragraph := range strings.Split(content, "\n\n") {
		paragraph = strings.TrimSpace(paragraph)
		if paragraph == "" {
			continue
		}

		if currentChunk.Len() > 0 && currentChunk.Len()+len(paragraph)+2 > maxChunkSize {
			chunks = append(chunks, strings.TrimSpace(currentChunk.String()))
			currentChunk.Reset()
		}

		if currentChunk.Len() > 0 {
			currentChunk.WriteString("\n\n")
		}
		currentChunk.WriteString(paragraph)
	}

	if currentChunk.Len() > 0 {
		chunks = append(chunks, strings.TrimSpace(currentChunk.String()))
	}

	var finalChunks []string
	for _, chunk := range chunks {
		if len(chunk) <= maxChunkSize {
			finalChunks = append(finalChunks, chunk)
		} else {
			finalChunks = append(finalChunks, cp.splitBySentences(chunk, maxChunkSize)...)
		}
	}

	return finalChunks
}

func (cp *ContentProcessor) splitBySentences(text string, maxSize int) []string {
	var chunks []string
	var currentChunk strings.Builder

	for _, sentence := range cp.sentenceEnd.Split(text, -1) {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" {
			continue
		}

		if currentChunk.Len() > 0 && currentChunk.Len()+len(sentence)+2 > maxSize {
			chunks = append(chunks, strings.TrimSpace(currentChunk.String()))
			currentChunk.Reset()
		}

		if currentChunk.Len() > 0 {
			currentChunk.WriteString(". ")
		}
		currentChunk.WriteString(sentence)
	}

	if currentChunk.Len() > 0 {
		chunks = append(chunks, strings.TrimSpace(currentChunk.String()))
	}

	return chunks
}

// CountWords counts tokens longer than one character.
func (cp *ContentProcessor) CountWords(text string) int {
	if text == "" {
		return 0
	}

	words := strings.FieldsFunc(text, func(c rune) bool {
		return unicode.IsSpace(c) || unicode.IsPunct(c)
	})

	count := 0
	for _, word := range words {
		if len(strings.TrimSpace(word)) > 1 {
			count++
		}
	}

	return count
}
