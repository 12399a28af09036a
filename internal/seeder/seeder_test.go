package seeder

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ayash-Bera/mathgate/backend/internal/knowledge"
	"github.com/Ayash-Bera/mathgate/backend/pkg/utils"
)

const tutorialHTML = `<html><body>
<nav><p>Example 9 navigation Solution noise</p></nav>
<div id="content">
<h1>Practice</h1>
<p>Example 1 Solve 2x + 3 = 7.</p>
<p>Solution</p>
<p>Subtract 3 from both sides.</p>
<p>2x = 4 so x = 2</p>
<p>Example 2 Find the derivative of x^2.</p>
<p>Solution</p>
<p>Use the power rule.</p>
<p>d/dx x^2 = 2x</p>
<script>var ignored = "Example 3";</script>
</div>
</body></html>`

func tutorialServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/ok", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, tutorialHTML)
	})
	mux.HandleFunc("/empty", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, "<html><body><p>nothing here</p></body></html>")
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestScraper() *Scraper {
	return NewScraper(ScraperConfig{Parallelism: 2}, utils.NopLogger())
}

func TestContentProcessor_CleanContent(t *testing.T) {
	cp := NewContentProcessor()
	got := cp.CleanContent("<b>Solve</b>   \\(x^2 = 4\\)\n\n\n\n\nnext  line ")
	assert.Equal(t, "Solve x^2 = 4\n\n\nnext line", got)
}

func TestContentProcessor_ExtractWorkedExamples(t *testing.T) {
	cp := NewContentProcessor()
	text := "Intro\nExample 1: Solve x + 1 = 3.\nSolution: x = 2\nExample 2 No solution marker here\nExample 3. Evaluate 3 * 4.\nSolution\nMultiply.\n3 * 4 = 12\nDone"

	examples := cp.ExtractWorkedExamples(text)
	require.Len(t, examples, 2)
	assert.Equal(t, "Solve x + 1 = 3.", examples[0].Problem)
	assert.Equal(t, "x = 2", examples[0].Answer)
	assert.Equal(t, "Evaluate 3 * 4.", examples[1].Problem)
	assert.Equal(t, "3 * 4 = 12", examples[1].Answer)
}

func TestFinalAnswer(t *testing.T) {
	assert.Equal(t, "x = 3", FinalAnswer("first\nx = 3\ncheck the work\n"))
	assert.Equal(t, "last line", FinalAnswer("no value\nlast line"))
	assert.Equal(t, "", FinalAnswer("  "))
}

func TestContentProcessor_ClassifyCategory(t *testing.T) {
	cp := NewContentProcessor()
	tests := map[string]string{
		"Find the derivative of x^3":    "Calculus",
		"Evaluate sin(x) at pi":         "Trigonometry",
		"Find the area of the triangle": "Geometry",
		"Compute the median":            "Statistics",
		"Solve the quadratic":           "Algebra",
		"What is 2 + 2":                 "General",
		"Use the distance formula":      "General",
	}
	for text, want := range tests {
		assert.Equal(t, want, cp.ClassifyCategory(text), text)
	}
}

func TestContentProcessor_EstimateDifficulty(t *testing.T) {
	cp := NewContentProcessor()
	assert.Equal(t, 1, cp.EstimateDifficulty("x = 2"))
	assert.Equal(t, 2, cp.EstimateDifficulty(strings.Repeat("word ", 40)))
	assert.Equal(t, 5, cp.EstimateDifficulty(strings.Repeat("word ", 400)))
}

func TestContentProcessor_SplitIntoChunks(t *testing.T) {
	cp := NewContentProcessor()
	assert.Equal(t, []string{"short"}, cp.SplitIntoChunks("short", 100))

	long := strings.Repeat("a", 30) + "\n\n" + strings.Repeat("b", 30) + "\n\n" + strings.Repeat("c", 30)
	chunks := cp.SplitIntoChunks(long, 70)
	require.Len(t, chunks, 2)
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c), 70)
	}
}

func TestScraper_ScrapePage(t *testing.T) {
	srv := tutorialServer(t)
	s := newTestScraper()

	records, err := s.ScrapePage(context.Background(), PageConfig{
		Title: "Practice_Page",
		URL:   srv.URL + "/ok",
		Level: "Level 2",
	})
	require.NoError(t, err)
	require.Len(t, records, 2)

	first := records[0]
	assert.Equal(t, "scrape:Practice_Page#1", first.StringID)
	assert.Equal(t, first.StringID, first.OriginalID)
	assert.Equal(t, "Solve 2x + 3 = 7.", first.Question)
	assert.Equal(t, "2x = 4 so x = 2", first.Answer)
	assert.Contains(t, first.Steps, "Subtract 3")
	assert.Equal(t, "Algebra", first.Category)
	assert.Equal(t, "Level 2", first.Level)
	assert.Equal(t, "worked_example", first.Type)
	assert.Equal(t, 1, first.Difficulty)

	assert.Equal(t, "Calculus", records[1].Category)
	assert.Equal(t, "d/dx x^2 = 2x", records[1].Answer)
}

func TestScraper_ScrapePageWithoutContent(t *testing.T) {
	srv := tutorialServer(t)
	_, err := newTestScraper().ScrapePage(context.Background(), PageConfig{Title: "Empty", URL: srv.URL + "/empty"})
	assert.Error(t, err)
}

func TestScraper_ScrapePageCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newTestScraper().ScrapePage(ctx, PageConfig{Title: "X", URL: "http://127.0.0.1:1/"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestScraper_ScrapeAllKeepsPageOrder(t *testing.T) {
	srv := tutorialServer(t)
	pages := []PageConfig{
		{Title: "A", URL: srv.URL + "/ok"},
		{Title: "Missing", URL: srv.URL + "/missing"},
		{Title: "B", URL: srv.URL + "/ok"},
	}

	records, errs := newTestScraper().ScrapeAll(context.Background(), pages)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "Missing")
	require.Len(t, records, 4)
	assert.Equal(t, "scrape:A#1", records[0].StringID)
	assert.Equal(t, "scrape:B#2", records[3].StringID)
}

func TestSortByPriority(t *testing.T) {
	pages := []PageConfig{{Title: "low", Priority: 1}, {Title: "high", Priority: 9}, {Title: "mid", Priority: 5}}
	sorted := SortByPriority(pages)
	assert.Equal(t, "high", sorted[0].Title)
	assert.Equal(t, "low", sorted[2].Title)
	assert.Equal(t, "low", pages[0].Title)
}

type recordingPopulator struct {
	records []knowledge.Record
	err     error
}

func (p *recordingPopulator) Populate(ctx context.Context, records []knowledge.Record, offset int) (knowledge.PopulateStats, error) {
	p.records = append(p.records, records...)
	return knowledge.PopulateStats{Total: len(records), Upserted: len(records), Batches: 1}, p.err
}

func writeDataset(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sample.json")
	data := `[
		{"id": "alg-1", "question": "Solve x + 2 = 5", "answer": "x = 3", "steps": ["Subtract 2"], "category": "Algebra", "difficulty": 1},
		{"id": 7, "question": "What is 3 * 4?", "answer": "12"}
	]`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	return path
}

func TestSeeder_RunDataset(t *testing.T) {
	sample := writeDataset(t)
	pop := &recordingPopulator{}

	report, err := NewSeeder(pop, nil, utils.NopLogger()).Run(context.Background(), Options{
		DatasetPath: filepath.Join(t.TempDir(), "missing.json"),
		SamplePath:  sample,
	})
	require.NoError(t, err)
	assert.Equal(t, sample, report.Source)
	assert.Equal(t, 2, report.DatasetRecords)
	assert.Equal(t, 2, report.Stats.Upserted)
	require.Len(t, pop.records, 2)
	assert.Equal(t, "alg-1", pop.records[0].StringID)
}

func TestSeeder_RunWithScrape(t *testing.T) {
	srv := tutorialServer(t)
	pop := &recordingPopulator{}

	report, err := NewSeeder(pop, newTestScraper(), utils.NopLogger()).Run(context.Background(), Options{
		SamplePath: writeDataset(t),
		Scrape:     true,
		Pages: []PageConfig{
			{Title: "Low", Priority: 1, URL: srv.URL + "/missing"},
			{Title: "High", Priority: 9, URL: srv.URL + "/ok"},
		},
		Limit: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, report.ScrapedRecords)
	assert.Equal(t, 0, report.PagesFailed)
	require.Len(t, pop.records, 4)
	assert.Equal(t, "scrape:High#1", pop.records[2].StringID)
}

func TestSeeder_DryRunSkipsPopulation(t *testing.T) {
	report, err := NewSeeder(nil, nil, utils.NopLogger()).Run(context.Background(), Options{
		SamplePath: writeDataset(t),
		DryRun:     true,
	})
	require.NoError(t, err)
	assert.True(t, report.DryRun)
	assert.Equal(t, 2, report.Stats.Total)
	assert.Zero(t, report.Stats.Upserted)
}

func TestSeeder_Errors(t *testing.T) {
	s := NewSeeder(nil, nil, utils.NopLogger())

	_, err := s.Run(context.Background(), Options{DatasetPath: filepath.Join(t.TempDir(), "none.json")})
	assert.Error(t, err)

	_, err = s.Run(context.Background(), Options{SamplePath: writeDataset(t), Scrape: true})
	assert.ErrorContains(t, err, "no scraper")

	_, err = s.Run(context.Background(), Options{SamplePath: writeDataset(t)})
	assert.ErrorContains(t, err, "no populator")

	pop := &recordingPopulator{err: fmt.Errorf("index down")}
	_, err = NewSeeder(pop, nil, utils.NopLogger()).Run(context.Background(), Options{SamplePath: writeDataset(t)})
	assert.ErrorContains(t, err, "index down")
}
