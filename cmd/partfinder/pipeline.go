package main

import (
	"context"
	"fmt"
	"time"

	"github.com/ggorockee/partfinder/internal/analogs"
	"github.com/ggorockee/partfinder/internal/cache"
	"github.com/ggorockee/partfinder/internal/catalog"
	"github.com/ggorockee/partfinder/internal/config"
	"github.com/ggorockee/partfinder/internal/db"
	"github.com/ggorockee/partfinder/internal/history"
	"github.com/ggorockee/partfinder/internal/logger"
	"github.com/ggorockee/partfinder/internal/ocr"
	"github.com/ggorockee/partfinder/internal/ocr/tesseract"
	"github.com/ggorockee/partfinder/internal/search"
	"github.com/ggorockee/partfinder/internal/telemetry"
)

// pipeline wired lookup components shared by the subcommands
type pipeline struct {
	db        *db.DB
	telemetry *telemetry.Telemetry
	history   *history.Store
	search    *search.Orchestrator
	extractor *ocr.Extractor
}

// newPipeline connects to the database and wires the lookup pipeline.
// A database failure is returned to the caller, which exits.
func newPipeline(ctx context.Context, cfg *config.Config) (*pipeline, error) {
	log := logger.GetLogger("main")

	tel, err := telemetry.New(ctx, &cfg.Telemetry)
	if err != nil {
		log.Warnf("Telemetry init failed, continuing without export: %v", err)
		tel = telemetry.NewNoOp()
	}

	database, err := db.New(ctx, &cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	fetcher, err := catalog.NewFetcher(&cfg.Catalog)
	if err != nil {
		database.Close()
		return nil, err
	}

	resolver, err := analogs.LoadFile(cfg.Catalog.AnalogsFile)
	if err != nil {
		log.Warnf("Failed to load analogs table %q, using built-in: %v", cfg.Catalog.AnalogsFile, err)
		resolver = analogs.New()
	}

	hist := history.New(database.SQL)
	client := catalog.NewClient(fetcher, catalog.Options{
		MaxListings: cfg.Catalog.MaxListings,
		Timeout:     cfg.Catalog.Timeout,
	}, tel)

	orchestrator := search.New(search.Deps{
		Cache:       cache.New(database.SQL, cfg.Catalog.CacheTTL),
		Catalog:     client,
		Analogs:     resolver,
		History:     hist,
		Telemetry:   tel,
		DefaultCity: cfg.Catalog.DefaultCity,
	})

	extractor := ocr.NewExtractor(
		&ocr.Preprocessor{TempDir: cfg.OCR.TempDir},
		tesseract.New(cfg.OCR.Languages),
		cfg.OCR.MinTokenLength,
		tel,
	)

	return &pipeline{
		db:        database,
		telemetry: tel,
		history:   hist,
		search:    orchestrator,
		extractor: extractor,
	}, nil
}

func (p *pipeline) Close() {
	log := logger.GetLogger("main")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.telemetry.Shutdown(shutdownCtx); err != nil {
		log.Warnf("Telemetry shutdown failed: %v", err)
	}
	p.db.Close()
}
