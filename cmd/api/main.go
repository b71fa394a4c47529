package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"filing_analyzer/pkg/api/analysis"
	coreAnalysis "filing_analyzer/pkg/core/analysis"
	"filing_analyzer/pkg/core/config"
	"filing_analyzer/pkg/core/search"
	"filing_analyzer/pkg/core/store"
)

func main() {
	// Load .env and environment variables
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("[FATAL] Invalid configuration: %v\n", err)
		os.Exit(1)
	}
	logger := cfg.Logger(os.Stderr)

	// Scoring and search setup
	scoring, err := cfg.Scoring()
	if err != nil {
		logger.Error("failed to load scoring config", "path", cfg.ScoringConfig, "error", err)
		os.Exit(1)
	}
	searcher, err := search.NewEngine(cfg.SearchOptions())
	if err != nil {
		logger.Error("failed to create search engine", "error", err)
		os.Exit(1)
	}

	// Filing store: Postgres when DATABASE_URL is set, JSON files otherwise
	repo, err := store.Open(context.Background(), cfg.DatabaseURL, cfg.FilingsDir, logger)
	if err != nil {
		logger.Error("failed to open filing store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	engine := coreAnalysis.NewEngine(repo, scoring, searcher, logger)
	engine.Company = cfg.CompanyName
	engine.Ticker = cfg.CompanyTicker

	mux := http.NewServeMux()
	analysis.NewHandler(engine, logger).Register(mux)

	logger.Info("API server starting", "addr", cfg.APIAddr)
	fmt.Println("  - GET  /api/summary")
	fmt.Println("  - GET  /api/metrics         (?format=csv)")
	fmt.Println("  - GET  /api/trends          (?metric=revenue)")
	fmt.Println("  - GET  /api/health-score")
	fmt.Println("  - GET  /api/search          (?q=...&case_sensitive=&whole_word=)")
	fmt.Println("  - GET  /api/keywords/trend  (?keywords=|group=&granularity=&by=category)")
	fmt.Println("  - GET  /api/report          (?format=markdown|html|json)")

	if err := http.ListenAndServe(cfg.APIAddr, mux); err != nil {
		logger.Error("server failed", "error", err)
		store.Close()
		os.Exit(1)
	}
}
