package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/Ayash-Bera/mathgate/backend/internal/bootstrap"
	"github.com/Ayash-Bera/mathgate/backend/internal/config"
	"github.com/Ayash-Bera/mathgate/backend/internal/knowledge"
	"github.com/Ayash-Bera/mathgate/backend/internal/seeder"
	"github.com/Ayash-Bera/mathgate/backend/pkg/utils"
)

var (
	datasetPath = flag.String("dataset", "math_dataset.json", "Path to the math dataset")
	samplePath  = flag.String("sample", "sample_math_dataset.json", "Dataset used when -dataset does not exist")
	scrape      = flag.Bool("scrape", false, "Also scrape worked examples from tutorial pages")
	recreate    = flag.Bool("recreate", false, "Drop and recreate the collection before seeding")
	dryRun      = flag.Bool("dry-run", false, "Don't write to the knowledge base, just print what would be written")
	verbose     = flag.Bool("verbose", false, "Enable verbose logging")
	pageLimit   = flag.Int("limit", 0, "Limit number of pages to scrape (0 = all)")
	concurrent  = flag.Int("concurrent", 2, "Number of pages scraped concurrently")
	delay       = flag.Duration("delay", 2*time.Second, "Delay between requests")
)

func main() {
	flag.Parse()

	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found: %v", err)
	}

	logger := utils.GetLogger()
	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	logger.Info("Starting knowledge base seeder...")

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var populator seeder.Populator
	if !*dryRun {
		embedder, index, qdrantIndex, err := bootstrap.OpenKnowledgeBase(cfg, logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to open knowledge base")
		}
		if qdrantIndex == nil {
			logger.Fatal("QDRANT_URL is required to seed the knowledge base")
		}
		defer qdrantIndex.Close()

		if err := qdrantIndex.EnsureCollection(ctx, *recreate); err != nil {
			logger.WithError(err).Fatal("Failed to prepare collection")
		}
		populator = knowledge.NewPopulator(embedder, index, knowledge.DefaultRetryConfig(), logger)
	}

	var scraper *seeder.Scraper
	if *scrape {
		scraper = seeder.NewScraper(seeder.ScraperConfig{
			Parallelism: *concurrent,
			Delay:       *delay,
			Debug:       *verbose,
		}, logger)
	}

	report, err := seeder.NewSeeder(populator, scraper, logger).Run(ctx, seeder.Options{
		DatasetPath: *datasetPath,
		SamplePath:  *samplePath,
		Scrape:      *scrape,
		Limit:       *pageLimit,
		DryRun:      *dryRun,
	})
	if err != nil {
		logger.WithError(err).Fatal("Knowledge base seeding failed")
	}

	logger.WithFields(logrus.Fields{
		"source":       report.Source,
		"dataset":      report.DatasetRecords,
		"scraped":      report.ScrapedRecords,
		"pages_failed": report.PagesFailed,
		"upserted":     report.Stats.Upserted,
		"skipped":      report.Stats.Skipped,
		"collisions":   report.Stats.Collisions,
		"dry_run":      report.DryRun,
	}).Info("Knowledge base seeding completed successfully!")
}
