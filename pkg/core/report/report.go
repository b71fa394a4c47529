// Package report renders a company analysis as Markdown, HTML or CSV.
package report

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"filing_analyzer/pkg/core/analysis"
	"filing_analyzer/pkg/core/filing"
	"filing_analyzer/pkg/core/search"
)

// GroupSection is the per-filing mention summary of one keyword group.
type GroupSection struct {
	Name    string                  `json:"name"`
	Filings []search.FilingMentions `json:"filings"`
}

// Report is one rendered analysis run.
type Report struct {
	ID            string                    `json:"run_id"`
	GeneratedAt   time.Time                 `json:"generated_at"`
	Analysis      *analysis.CompanyAnalysis `json:"analysis"`
	Granularity   search.Granularity        `json:"granularity,omitempty"`
	KeywordTrends []search.KeywordTrend     `json:"keyword_trends"`
	Groups        []GroupSection            `json:"keyword_groups"`
}

// Build assembles a report with a fresh run id.
func Build(a *analysis.CompanyAnalysis, g search.Granularity, trends []search.KeywordTrend, groups []GroupSection) *Report {
	if trends == nil {
		trends = []search.KeywordTrend{}
	}
	if groups == nil {
		groups = []GroupSection{}
	}
	return &Report{
		ID:            uuid.New().String(),
		GeneratedAt:   time.Now().UTC(),
		Analysis:      a,
		Granularity:   g,
		KeywordTrends: trends,
		Groups:        groups,
	}
}

// DefaultGroups are the keyword groups summarized by Generate.
var DefaultGroups = []string{search.GroupPipeline, search.GroupRisk, search.GroupPartnership}

// Generate runs the analysis, the keyword trends of keywords (the biotech
// list when empty) and the default group summaries, and builds a report.
func Generate(ctx context.Context, e *analysis.Engine, filter filing.Filter, keywords []string, g search.Granularity) (*Report, error) {
	// 1. Numeric analysis
	a, err := e.Analyze(ctx, filter)
	if err != nil {
		return nil, err
	}

	// 2. Keyword trends
	if len(keywords) == 0 {
		keywords = append([]string(nil), search.BiotechKeywords...)
	}
	trends, err := e.KeywordTrends(ctx, keywords, g)
	if err != nil {
		return nil, fmt.Errorf("failed to compute keyword trends: %w", err)
	}

	// 3. Keyword groups
	groups := make([]GroupSection, 0, len(DefaultGroups))
	for _, name := range DefaultGroups {
		fm, err := e.GroupSummary(ctx, name, filter)
		if err != nil {
			return nil, fmt.Errorf("failed to summarize %s keywords: %w", name, err)
		}
		groups = append(groups, GroupSection{Name: name, Filings: fm})
	}

	return Build(a, g, trends, groups), nil
}
