// Package analysis orchestrates the engine packages over a filing store:
// normalization, trends, R&D and cash analyses, health scoring and the
// text search entry points used by the CLI and the HTTP API.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"filing_analyzer/pkg/core/filing"
	"filing_analyzer/pkg/core/health"
	"filing_analyzer/pkg/core/metrics"
	"filing_analyzer/pkg/core/search"
	"filing_analyzer/pkg/core/trend"
)

// Engine runs analyses against a filing store.
type Engine struct {
	store   filing.Store
	scoring health.Config
	search  *search.Engine
	logger  *slog.Logger

	Company string
	Ticker  string
}

// NewEngine creates an engine. A nil logger uses slog.Default.
func NewEngine(store filing.Store, scoring health.Config, searcher *search.Engine, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{store: store, scoring: scoring, search: searcher, logger: logger}
}

// Searcher returns the text search engine.
func (e *Engine) Searcher() *search.Engine { return e.search }

// Records lists the filings passing filter.
func (e *Engine) Records(ctx context.Context, filter filing.Filter) ([]filing.Record, error) {
	records, err := e.store.ListFilings(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list filings: %w", err)
	}
	return records, nil
}

// Analyze computes the numeric analysis of the filings passing filter.
// Filings that cannot be normalized are reported in Diagnostics; a company
// without any scorable data gets an insufficient-data health score rather
// than an error.
func (e *Engine) Analyze(ctx context.Context, filter filing.Filter) (*CompanyAnalysis, error) {
	// 1. Load filings
	records, err := e.Records(ctx, filter)
	if err != nil {
		return nil, err
	}

	out := &CompanyAnalysis{
		Company:      e.Company,
		Ticker:       e.Ticker,
		LastAnalyzed: time.Now().UTC(),
		Summary:      Summarize(records),
		Trends:       map[metrics.Metric]trend.Result{},
		Ratios:       []metrics.Ratios{},
		Health:       health.Score{Status: health.StatusInsufficientData},
	}

	// 2. Normalize into a period series
	series, diags := metrics.Normalize(records)
	out.Series = series
	out.Diagnostics = diags
	for _, d := range diags {
		if d.Level == metrics.LevelWarning {
			e.logger.Warn("filing dropped", "filing_id", d.FilingID, "reason", d.Reason)
		} else {
			e.logger.Debug("filing superseded", "filing_id", d.FilingID, "reason", d.Reason)
		}
	}

	latest, ok := series.Latest()
	if !ok {
		e.logger.Info("no normalized periods", "filings", len(records))
		return out, nil
	}
	out.Latest = &latest
	view := series.ViewOf(latest)
	out.View = latest.Period.Kind
	for _, r := range view {
		out.Ratios = append(out.Ratios, r.Ratios())
	}

	// 3. Trends, one goroutine per metric
	trends, err := e.computeTrends(ctx, view)
	if err != nil {
		return nil, err
	}
	out.Trends = trends

	// 4. R&D and cash analyses
	if rd, ok := trend.AnalyzeRD(view); ok {
		out.RD = &rd
	}
	if cash, ok := trend.AnalyzeCash(view); ok {
		out.Cash = &cash
	}

	// 5. Health score
	score, err := health.Compute(latest, trends, e.scoring)
	switch {
	case errors.Is(err, filing.ErrInsufficientData):
		e.logger.Info("health score unavailable", "as_of", latest.Label(), "error", err)
	case err != nil:
		return nil, fmt.Errorf("failed to score health: %w", err)
	}
	out.Health = score

	e.logger.Info("analysis complete",
		"filings", len(records),
		"periods", len(series),
		"view", out.View,
		"as_of", latest.Label(),
		"health_status", score.Status,
	)
	return out, nil
}

// HealthScore returns only the health score of the filings passing filter.
// The error wraps filing.ErrInsufficientData when nothing could be scored.
func (e *Engine) HealthScore(ctx context.Context, filter filing.Filter) (health.Score, error) {
	a, err := e.Analyze(ctx, filter)
	if err != nil {
		return health.Score{}, err
	}
	if a.Health.Status != health.StatusOK {
		return a.Health, fmt.Errorf("%w: no health component computable", filing.ErrInsufficientData)
	}
	return a.Health, nil
}

func (e *Engine) computeTrends(ctx context.Context, series metrics.Series) (map[metrics.Metric]trend.Result, error) {
	results := make([]trend.Result, len(TrendMetrics))
	g, gctx := errgroup.WithContext(ctx)
	for i, m := range TrendMetrics {
		i, m := i, m
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = trend.Compute(series, m)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to compute trends: %w", err)
	}

	out := make(map[metrics.Metric]trend.Result, len(results))
	for i, m := range TrendMetrics {
		out[m] = results[i]
	}
	return out, nil
}

// =============================================================================
// TEXT SEARCH
// =============================================================================

// Search runs a phrase search over the filings passing filter.
func (e *Engine) Search(ctx context.Context, query string, filter filing.Filter) ([]search.Match, error) {
	records, err := e.Records(ctx, filter)
	if err != nil {
		return nil, err
	}
	return e.search.Search(records, query, filter)
}

// KeywordTrends counts keyword mentions per bucket over all filings.
func (e *Engine) KeywordTrends(ctx context.Context, keywords []string, g search.Granularity) ([]search.KeywordTrend, error) {
	records, err := e.Records(ctx, filing.Filter{})
	if err != nil {
		return nil, err
	}
	return e.search.KeywordTrend(records, keywords, g)
}

// CategoryTrends counts mentions per keyword category and bucket.
func (e *Engine) CategoryTrends(ctx context.Context, keywords []string, g search.Granularity) ([]search.KeywordTrend, error) {
	records, err := e.Records(ctx, filing.Filter{})
	if err != nil {
		return nil, err
	}
	return e.search.CategoryTrend(records, keywords, g)
}

// GroupSummary ranks filings by mentions of a named keyword group.
func (e *Engine) GroupSummary(ctx context.Context, group string, filter filing.Filter) ([]search.FilingMentions, error) {
	keywords, err := search.KeywordGroup(group)
	if err != nil {
		return nil, err
	}
	records, err := e.Records(ctx, filter)
	if err != nil {
		return nil, err
	}
	return e.search.GroupSummary(records, keywords, filter)
}
