package seeder

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	"github.com/gocolly/colly/v2/debug"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/Ayash-Bera/mathgate/backend/internal/knowledge"
)

const (
	DefaultUserAgent       = "MathGate-Seeder/1.0"
	DefaultContentSelector = "#content, .content, article, main"

	blockSelector = "h1, h2, h3, h4, p, li, pre, td"
	maxStepsSize  = 2000
)

// PageConfig describes one tutorial page to scrape.
type PageConfig struct {
	Title    string
	URL      string
	Priority int
	Level    string
}

// TutorialPages are worked-example pages with an "Example N ... Solution"
// layout.
var TutorialPages = []PageConfig{
	{Title: "Solving_Linear_Equations", Priority: 10, Level: "Level 1", URL: "https://tutorial.math.lamar.edu/Classes/Alg/SolveLinearEqns.aspx"},
	{Title: "Quadratic_Equations_Part_I", Priority: 10, Level: "Level 2", URL: "https://tutorial.math.lamar.edu/Classes/Alg/SolveQuadraticEqnsPtI.aspx"},
	{Title: "Quadratic_Equations_Part_II", Priority: 9, Level: "Level 2", URL: "https://tutorial.math.lamar.edu/Classes/Alg/SolveQuadraticEqnsPtII.aspx"},
	{Title: "Linear_Systems_Two_Variables", Priority: 8, Level: "Level 2", URL: "https://tutorial.math.lamar.edu/Classes/Alg/SystemsTwoVrble.aspx"},
	{Title: "Computing_Limits", Priority: 8, Level: "Level 3", URL: "https://tutorial.math.lamar.edu/Classes/CalcI/ComputingLimits.aspx"},
	{Title: "Differentiation_Formulas", Priority: 9, Level: "Level 3", URL: "https://tutorial.math.lamar.edu/Classes/CalcI/DiffFormulas.aspx"},
	{Title: "Product_and_Quotient_Rule", Priority: 7, Level: "Level 3", URL: "https://tutorial.math.lamar.edu/Classes/CalcI/ProductQuotientRule.aspx"},
	{Title: "Chain_Rule", Priority: 7, Level: "Level 4", URL: "https://tutorial.math.lamar.edu/Classes/CalcI/ChainRule.aspx"},
	{Title: "Indefinite_Integrals", Priority: 8, Level: "Level 3", URL: "https://tutorial.math.lamar.edu/Classes/CalcI/ComputingIndefiniteIntegrals.aspx"},
	{Title: "Substitution_Rule", Priority: 6, Level: "Level 4", URL: "https://tutorial.math.lamar.edu/Classes/CalcI/SubstitutionRuleIndefinite.aspx"},
}

type ScraperConfig struct {
	UserAgent       string
	ContentSelector string
	Parallelism     int
	Delay           time.Duration
	Timeout         time.Duration
	// Debug logs every collector event to stderr.
	Debug bool
}

// Scraper turns tutorial pages into knowledge base records with colly.
type Scraper struct {
	cfg       ScraperConfig
	processor *ContentProcessor
	logger    *logrus.Logger
}

func NewScraper(cfg ScraperConfig, logger *logrus.Logger) *Scraper {
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.ContentSelector == "" {
		cfg.ContentSelector = DefaultContentSelector
	}
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Scraper{
		cfg:       cfg,
		processor: NewContentProcessor(),
		logger:    logger,
	}
}

// SortByPriority returns a copy of pages ordered by descending priority.
func SortByPriority(pages []PageConfig) []PageConfig {
	sorted := make([]PageConfig, len(pages))
	copy(sorted, pages)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority > sorted[j].Priority
	})
	return sorted
}

func (s *Scraper) newCollector() *colly.Collector {
	c := colly.NewCollector(
		colly.UserAgent(s.cfg.UserAgent),
		colly.AllowURLRevisit(),
	)
	c.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: 1,
		Delay:       s.cfg.Delay,
	})
	c.SetRequestTimeout(s.cfg.Timeout)
	if s.cfg.Debug {
		c.SetDebugger(&debug.LogDebugger{})
	}
	return c
}

// ScrapePage fetches one page and returns a record per worked example.
func (s *Scraper) ScrapePage(ctx context.Context, page PageConfig) ([]knowledge.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var content string
	var processingError error

	c := s.newCollector()
	c.OnHTML(s.cfg.ContentSelector, func(e *colly.HTMLElement) {
		if content != "" {
			return
		}
		content = s.extractText(e.DOM)
	})
	c.OnError(func(r *colly.Response, err error) {
		processingError = err
	})

	if err := c.Visit(page.URL); err != nil {
		return nil, fmt.Errorf("failed to visit page: %w", err)
	}
	if processingError != nil {
		return nil, fmt.Errorf("processing error: %w", processingError)
	}
	if content == "" {
		return nil, fmt.Errorf("no content extracted from page")
	}

	examples := s.processor.ExtractWorkedExamples(content)
	records := make([]knowledge.Record, 0, len(examples))
	for i, ex := range examples {
		steps := ex.Solution
		if chunks := s.processor.SplitIntoChunks(steps, maxStepsSize); len(chunks) > 0 {
			steps = chunks[0]
		}
		id := fmt.Sprintf("scrape:%s#%d", page.Title, i+1)
		records = append(records, knowledge.Record{
			StringID:   id,
			OriginalID: id,
			Question:   ex.Problem,
			Answer:     ex.Answer,
			Steps:      steps,
			Level:      page.Level,
			Type:       "worked_example",
			Category:   s.processor.ClassifyCategory(ex.Problem + " " + page.Title),
			Difficulty: s.processor.EstimateDifficulty(ex.Solution),
		})
	}

	s.logger.WithFields(logrus.Fields{
		"page":           page.Title,
		"content_length": len(content),
		"examples":       len(records),
	}).Debug("Content extracted")

	return records, nil
}

func (s *Scraper) extractText(root *goquery.Selection) string {
	root.Find("script, style, nav, .navbox, .noprint").Remove()

	var b strings.Builder
	root.Find(blockSelector).Each(func(i int, sel *goquery.Selection) {
		text := strings.TrimSpace(sel.Text())
		if text != "" {
			b.WriteString(text)
			b.WriteString("\n")
		}
	})
	if b.Len() == 0 {
		b.WriteString(root.Text())
	}
	return s.processor.CleanContent(b.String())
}

// ScrapeAll scrapes pages with bounded parallelism. Failed pages are
// logged and reported; the records of every other page are returned in
// page order.
func (s *Scraper) ScrapeAll(ctx context.Context, pages []PageConfig) ([]knowledge.Record, []error) {
	results := make([][]knowledge.Record, len(pages))
	var (
		mu   sync.Mutex
		errs []error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Parallelism)

	for i, page := range pages {
		i, page := i, page
		g.Go(func() error {
			s.logger.WithFields(logrus.Fields{
				"page":     page.Title,
				"priority": page.Priority,
				"progress": fmt.Sprintf("%d/%d", i+1, len(pages)),
			}).Info("Processing page")

			records, err := s.ScrapePage(gctx, page)
			if err != nil {
				s.logger.WithError(err).WithField("page", page.Title).Error("Failed to process page")
				mu.Lock()
				errs = append(errs, fmt.Errorf("failed to process %s: %w", page.Title, err))
				mu.Unlock()
				return nil
			}
			results[i] = records
			return nil
		})
	}
	_ = g.Wait()

	var all []knowledge.Record
	for _, r := range results {
		all = append(all, r...)
	}

	s.logger.WithFields(logrus.Fields{
		"pages":   len(pages),
		"records": len(all),
		"errors":  len(errs),
	}).Info("Scraping completed")

	return all, errs
}
