package analysis

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"filing_analyzer/pkg/core/filing"
	"filing_analyzer/pkg/core/health"
	"filing_analyzer/pkg/core/metrics"
	"filing_analyzer/pkg/core/search"
	"filing_analyzer/pkg/core/store"
)

func day(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func fixtures() []filing.Record {
	return []filing.Record{
		{
			ID:          "q2-2022",
			Form:        filing.Form10Q,
			FilingDate:  day("2022-08-05"),
			PeriodLabel: "Q2 2022",
			Fields:      filing.Fields{filing.FieldRevenue: 80},
		},
		{
			ID:          "q2-2023",
			Form:        filing.Form10Q,
			FilingDate:  day("2023-08-04"),
			PeriodLabel: "Q2 2023",
			Fields: filing.Fields{
				filing.FieldRevenue:     100,
				filing.FieldNetIncome:   10,
				filing.FieldTotalAssets: 1000,
				filing.FieldCash:        250,
				filing.FieldRDExpense:   20,
			},
			Sections: []filing.Section{
				{Name: "Risk Factors", Text: "Our siRNA pipeline faces regulatory risk."},
			},
		},
		{
			ID:         "8k-2023",
			Form:       filing.Form8K,
			FilingDate: day("2023-09-12"),
			Sections: []filing.Section{
				{Name: "Item 8.01", Text: "We announced a collaboration on an RNAi therapeutic."},
			},
		},
	}
}

func newTestEngine(t *testing.T, records ...filing.Record) *Engine {
	t.Helper()
	searcher, err := search.NewEngine(search.DefaultOptions())
	if err != nil {
		t.Fatalf("search engine: %v", err)
	}
	return NewEngine(store.NewMemoryStore(records...), health.DefaultConfig(), searcher, nil)
}

func TestAnalyze(t *testing.T) {
	e := newTestEngine(t, fixtures()...)
	e.Company = "Example Therapeutics"

	a, err := e.Analyze(context.Background(), filing.Filter{})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if a.Company != "Example Therapeutics" {
		t.Errorf("company = %q", a.Company)
	}
	if a.Summary.TotalFilings != 3 || a.Summary.FormCounts[filing.Form10Q] != 2 || a.Summary.FormCounts[filing.Form8K] != 1 {
		t.Errorf("unexpected summary %+v", a.Summary)
	}
	if a.Summary.WithFinancials != 2 || a.Summary.WithText != 2 {
		t.Errorf("financials/text counts = %d/%d", a.Summary.WithFinancials, a.Summary.WithText)
	}
	if a.Summary.FirstFiled == nil || !a.Summary.FirstFiled.Equal(day("2022-08-05")) {
		t.Errorf("first filed = %v", a.Summary.FirstFiled)
	}
	if a.Summary.LastFiled == nil || !a.Summary.LastFiled.Equal(day("2023-09-12")) {
		t.Errorf("last filed = %v", a.Summary.LastFiled)
	}

	if len(a.Series) != 2 || a.View != metrics.Quarterly {
		t.Fatalf("series len %d view %s", len(a.Series), a.View)
	}
	if a.Latest == nil || a.Latest.Label() != "Q2 2023" {
		t.Fatalf("latest = %+v", a.Latest)
	}
	if len(a.Ratios) != 2 {
		t.Errorf("expected 2 ratio rows, got %d", len(a.Ratios))
	}
	if len(a.Trends) != len(TrendMetrics) {
		t.Errorf("expected %d trends, got %d", len(TrendMetrics), len(a.Trends))
	}
	rev := a.Trends[metrics.Revenue]
	// Q2 2022 has no prior year; Q2 2023 compares against it
	yoy := rev.YearOverYear
	if len(yoy) != 2 || yoy[0].Pct != nil || yoy[1].Pct == nil || math.Abs(*yoy[1].Pct-25) > 1e-9 {
		t.Errorf("unexpected revenue YoY %+v", yoy)
	}

	// The 8-K carries no numbers and is reported, not fatal.
	found := false
	for _, d := range a.Diagnostics {
		if d.FilingID == "8k-2023" && d.Level == metrics.LevelWarning {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a warning for the 8-K, got %+v", a.Diagnostics)
	}

	if a.Health.Status != health.StatusOK || a.Health.Overall == nil {
		t.Fatalf("unexpected health %+v", a.Health)
	}
	if math.Abs(*a.Health.Overall-81.1) > 1e-9 || a.Health.Grade != "B" {
		t.Errorf("health = %v %s, want 81.1 B", *a.Health.Overall, a.Health.Grade)
	}
	if a.RD == nil || a.Cash == nil {
		t.Errorf("expected R&D and cash analyses")
	}
}

func TestAnalyze_FilterByForm(t *testing.T) {
	e := newTestEngine(t, fixtures()...)
	a, err := e.Analyze(context.Background(), filing.Filter{FormTypes: []filing.FormType{filing.Form8K}})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if a.Summary.TotalFilings != 1 || a.Latest != nil {
		t.Errorf("expected one 8-K and no periods, got %+v", a.Summary)
	}
	if a.Health.Status != health.StatusInsufficientData || a.Health.Overall != nil {
		t.Errorf("expected insufficient data, got %+v", a.Health)
	}
}

func TestAnalyze_EmptyStore(t *testing.T) {
	e := newTestEngine(t)
	a, err := e.Analyze(context.Background(), filing.Filter{})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if a.Summary.TotalFilings != 0 || len(a.Series) != 0 || len(a.Trends) != 0 {
		t.Errorf("expected empty analysis, got %+v", a)
	}

	if _, err := e.HealthScore(context.Background(), filing.Filter{}); !errors.Is(err, filing.ErrInsufficientData) {
		t.Errorf("expected ErrInsufficientData, got %v", err)
	}
}

func TestAnalyze_CanceledContext(t *testing.T) {
	e := newTestEngine(t, fixtures()...)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := e.Analyze(ctx, filing.Filter{}); err == nil {
		t.Error("expected an error for a canceled context")
	}
}

func TestHealthScore(t *testing.T) {
	e := newTestEngine(t, fixtures()...)
	s, err := e.HealthScore(context.Background(), filing.Filter{})
	if err != nil {
		t.Fatalf("HealthScore failed: %v", err)
	}
	if s.AsOf != "Q2 2023" || s.Grade != "B" {
		t.Errorf("unexpected score %+v", s)
	}
}

func TestSearchFacade(t *testing.T) {
	e := newTestEngine(t, fixtures()...)
	ctx := context.Background()

	matches, err := e.Search(ctx, "siRNA", filing.Filter{})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(matches) != 1 || matches[0].FilingID != "q2-2023" || matches[0].Section != "Risk Factors" {
		t.Errorf("unexpected matches %+v", matches)
	}

	if _, err := e.Search(ctx, "", filing.Filter{}); !errors.Is(err, filing.ErrInvalidConfiguration) {
		t.Errorf("expected ErrInvalidConfiguration for an empty query, got %v", err)
	}

	trends, err := e.KeywordTrends(ctx, []string{"RNAi", "siRNA"}, search.GranularityYear)
	if err != nil {
		t.Fatalf("KeywordTrends failed: %v", err)
	}
	if len(trends) != 2 {
		t.Fatalf("expected 2 keyword trends, got %d", len(trends))
	}
	for _, kt := range trends {
		if kt.Total != 1 {
			t.Errorf("%s total = %d, want 1", kt.Key, kt.Total)
		}
	}

	summary, err := e.GroupSummary(ctx, search.GroupPartnership, filing.Filter{})
	if err != nil {
		t.Fatalf("GroupSummary failed: %v", err)
	}
	if len(summary) != 1 || summary[0].FilingID != "8k-2023" {
		t.Errorf("unexpected group summary %+v", summary)
	}

	if _, err := e.GroupSummary(ctx, "nope", filing.Filter{}); !errors.Is(err, filing.ErrInvalidConfiguration) {
		t.Errorf("expected ErrInvalidConfiguration for an unknown group, got %v", err)
	}
}
