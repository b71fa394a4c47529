package health

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"filing_analyzer/pkg/core/filing"
	"filing_analyzer/pkg/core/metrics"
	"filing_analyzer/pkg/core/trend"
)

func f(v float64) *float64 { return &v }

func quarterRecord(year, q int) metrics.Record {
	p := metrics.Period{Kind: metrics.Quarterly, Year: year, Quarter: q}
	return metrics.Record{Period: p, PeriodEnd: p.End()}
}

// fullSeries returns Q2 2022 and a fully populated Q2 2023 whose statistics
// are: revenue YoY 25%, R&D intensity 20%, cash ratio 25%, net margin 10%,
// asset turnover 10% (40% annualized).
func fullSeries() metrics.Series {
	prior := quarterRecord(2022, 2)
	prior.Revenue = f(80)

	latest := quarterRecord(2023, 2)
	latest.Revenue = f(100)
	latest.NetIncome = f(10)
	latest.TotalAssets = f(1000)
	latest.Cash = f(250)
	latest.RDExpense = f(20)
	return metrics.Series{prior, latest}
}

func trendsOf(series metrics.Series) map[metrics.Metric]trend.Result {
	return trend.ComputeAll(series, metrics.Revenue, metrics.RDIntensity, metrics.CashRatio,
		metrics.NetMargin, metrics.AssetTurnover)
}

func TestCurve_Eval(t *testing.T) {
	c := Curve{{0, 10}, {10, 50}, {20, 75}}
	cases := []struct{ x, want float64 }{
		{-5, 10}, {0, 10}, {5, 30}, {10, 50}, {15, 62.5}, {20, 75}, {1000, 75},
	}
	for _, tc := range cases {
		if got := c.Eval(tc.x); math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("Eval(%v) = %v, want %v", tc.x, got, tc.want)
		}
	}
}

func TestCompute_AllComponents(t *testing.T) {
	series := fullSeries()
	latest, _ := series.Latest()

	score, err := Compute(latest, trendsOf(series), DefaultConfig())
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	if score.Status != StatusOK || score.AsOf != "Q2 2023" {
		t.Errorf("unexpected status %s as of %s", score.Status, score.AsOf)
	}

	wantScores := map[Component]float64{
		RevenueGrowth:   92.5,
		RDInvestment:    75,
		CashPosition:    70,
		Profitability:   85,
		AssetEfficiency: 80,
	}
	var weighted, weightSum float64
	for comp, want := range wantScores {
		cs := score.Components[comp]
		if !cs.Computed {
			t.Fatalf("%s should be computed", comp)
		}
		if math.Abs(cs.Score-want) > 1e-6 {
			t.Errorf("%s score = %v, want %v", comp, cs.Score, want)
		}
		if math.Abs(cs.EffectiveWeight-cs.Weight) > 1e-9 {
			t.Errorf("%s weight should not change when all components computed", comp)
		}
		weighted += cs.Score * cs.Weight
		weightSum += cs.EffectiveWeight
	}
	if math.Abs(weightSum-1) > 1e-9 {
		t.Errorf("effective weights sum to %v", weightSum)
	}
	if score.Overall == nil || math.Abs(*score.Overall-weighted) > 0.05 {
		t.Errorf("overall %v should equal weighted sum %v within rounding", score.Overall, weighted)
	}
	if *score.Overall != 81.1 || score.Grade != "B" {
		t.Errorf("overall = %v grade %s, want 81.1 B", *score.Overall, score.Grade)
	}
	if in := score.Components[AssetEfficiency].Input; in == nil || math.Abs(*in-40) > 1e-9 {
		t.Errorf("quarterly asset turnover should be annualized to 40, got %v", in)
	}
}

func TestCompute_MissingComponentRenormalizes(t *testing.T) {
	series := fullSeries()
	series[1].RDExpense = nil
	latest, _ := series.Latest()

	score, err := Compute(latest, trendsOf(series), DefaultConfig())
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}

	rd := score.Components[RDInvestment]
	if rd.Computed || rd.Input != nil || rd.EffectiveWeight != 0 {
		t.Errorf("R&D should be excluded, got %+v", rd)
	}
	var sum float64
	for _, cs := range score.Components {
		sum += cs.EffectiveWeight
	}
	if math.Abs(sum-1) > 1e-9 {
		t.Errorf("renormalized weights sum to %v", sum)
	}
	// (23.125 + 14 + 17 + 12) / 0.8
	if score.Overall == nil || *score.Overall != 82.7 {
		t.Errorf("overall = %v, want 82.7", score.Overall)
	}
}

func TestCompute_StableAcrossRuns(t *testing.T) {
	series := fullSeries()
	series[1].RDExpense = nil
	latest, _ := series.Latest()
	trends := trendsOf(series)

	first, err := Compute(latest, trends, DefaultConfig())
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	for i := 0; i < 50; i++ {
		again, _ := Compute(latest, trends, DefaultConfig())
		if *again.Overall != *first.Overall {
			t.Fatalf("run %d: overall %v, first run %v", i, *again.Overall, *first.Overall)
		}
		for _, comp := range Components {
			a, b := again.Components[comp], first.Components[comp]
			if a.Score != b.Score || a.EffectiveWeight != b.EffectiveWeight {
				t.Fatalf("run %d: component %s differs: %+v vs %+v", i, comp, a, b)
			}
		}
	}
}

func TestCompute_RevenueGrowthFallsBackToPeriodOverPeriod(t *testing.T) {
	q1 := quarterRecord(2023, 1)
	q1.Revenue = f(100)
	q2 := quarterRecord(2023, 2)
	q2.Revenue = f(110)
	series := metrics.Series{q1, q2}

	score, err := Compute(q2, trendsOf(series), DefaultConfig())
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	rg := score.Components[RevenueGrowth]
	if !rg.Computed || math.Abs(*rg.Input-10) > 1e-9 || math.Abs(rg.Score-70) > 1e-9 {
		t.Errorf("expected 10%% PoP growth scored 70, got %+v", rg)
	}
	if score.Components[RevenueGrowth].EffectiveWeight != 1 {
		t.Errorf("single component should carry full weight")
	}
}

func TestCompute_AnnualAssetTurnoverNotAnnualized(t *testing.T) {
	p := metrics.Period{Kind: metrics.Annual, Year: 2023}
	latest := metrics.Record{Period: p, Revenue: f(400), TotalAssets: f(1000)}

	score, err := Compute(latest, nil, DefaultConfig())
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	ae := score.Components[AssetEfficiency]
	if ae.Input == nil || math.Abs(*ae.Input-40) > 1e-9 {
		t.Errorf("annual asset turnover should be 40, got %v", ae.Input)
	}
}

func TestCompute_InsufficientData(t *testing.T) {
	latest := quarterRecord(2023, 2)
	latest.OperatingExpense = f(50)

	score, err := Compute(latest, nil, DefaultConfig())
	if !errors.Is(err, filing.ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}
	if score.Status != StatusInsufficientData || score.Overall != nil || score.Grade != "" {
		t.Errorf("insufficient score must not carry a number, got %+v", score)
	}
}

func TestGradeBoundaries(t *testing.T) {
	cfg := DefaultConfig()
	cases := []struct {
		score float64
		want  string
	}{
		{100, "A"}, {90, "A"}, {89.9, "B"}, {80, "B"}, {79.9, "C"},
		{70, "C"}, {69.9, "D"}, {60, "D"}, {59.9, "F"}, {0, "F"},
	}
	for _, tc := range cases {
		if got := cfg.Grade(tc.score); got != tc.want {
			t.Errorf("Grade(%v) = %s, want %s", tc.score, got, tc.want)
		}
	}
}

func TestNewConfig_Invalid(t *testing.T) {
	badSum := DefaultWeights()
	badSum[RevenueGrowth] = 0.3

	zero := DefaultWeights()
	zero[AssetEfficiency] = 0
	zero[RevenueGrowth] = 0.40

	missing := DefaultWeights()
	delete(missing, CashPosition)

	decreasing := DefaultCurves()
	decreasing[CashPosition] = Curve{{0, 50}, {10, 40}}

	flatX := DefaultCurves()
	flatX[RDInvestment] = Curve{{0, 10}, {0, 20}}

	outOfRange := DefaultCurves()
	outOfRange[Profitability] = Curve{{0, 10}, {10, 120}}

	cases := []struct {
		name    string
		weights map[Component]float64
		curves  map[Component]Curve
		grades  []GradeThreshold
	}{
		{"weights sum", badSum, DefaultCurves(), DefaultGrades},
		{"zero weight", zero, DefaultCurves(), DefaultGrades},
		{"missing weight", missing, DefaultCurves(), DefaultGrades},
		{"decreasing curve", DefaultWeights(), decreasing, DefaultGrades},
		{"repeated x", DefaultWeights(), flatX, DefaultGrades},
		{"score out of range", DefaultWeights(), outOfRange, DefaultGrades},
		{"ascending grades", DefaultWeights(), DefaultCurves(), []GradeThreshold{{"A", 60}, {"B", 70}}},
		{"no grades", DefaultWeights(), DefaultCurves(), nil},
	}
	for _, tc := range cases {
		if _, err := NewConfig(tc.weights, tc.curves, tc.grades); !errors.Is(err, filing.ErrInvalidConfiguration) {
			t.Errorf("%s: expected ErrInvalidConfiguration, got %v", tc.name, err)
		}
	}
}

func TestConfig_IsolatedFromCaller(t *testing.T) {
	curves := DefaultCurves()
	cfg, err := NewConfig(DefaultWeights(), curves, DefaultGrades)
	if err != nil {
		t.Fatal(err)
	}
	curves[RevenueGrowth][0].Y = 99
	if cfg.Curve(RevenueGrowth)[0].Y != 0 {
		t.Error("config must not share curve storage with the caller")
	}
}

func TestLoadConfig_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scoring.yaml")
	content := `
weights:
  revenue_growth: 0.30
  rd_investment: 0.30
  cash_position: 0.20
  profitability: 0.10
  asset_efficiency: 0.10
curves:
  cash_position:
    - {x: 0, y: 0}
    - {x: 100, y: 100}
grades:
  - {grade: PASS, min: 50}
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Weight(RDInvestment) != 0.30 {
		t.Errorf("rd weight = %v", cfg.Weight(RDInvestment))
	}
	if got := cfg.Curve(CashPosition).Eval(42); math.Abs(got-42) > 1e-9 {
		t.Errorf("custom cash curve Eval(42) = %v", got)
	}
	if got := cfg.Curve(RevenueGrowth).Eval(10); got != 70 {
		t.Errorf("default revenue curve should be kept, got %v", got)
	}
	if cfg.Grade(55) != "PASS" || cfg.Grade(10) != FallbackGrade {
		t.Error("custom grades not applied")
	}
}

func TestLoadConfig_HJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scoring.hjson")
	content := `{
  # only weights are overridden
  weights: {
    revenue_growth: 0.2
    rd_investment: 0.2
    cash_position: 0.2
    profitability: 0.2
    asset_efficiency: 0.2
  }
}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Weight(AssetEfficiency) != 0.2 {
		t.Errorf("asset weight = %v", cfg.Weight(AssetEfficiency))
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	dir := t.TempDir()

	badSum := filepath.Join(dir, "bad.yml")
	os.WriteFile(badSum, []byte("weights:\n  revenue_growth: 0.9\n"), 0644)
	if _, err := LoadConfig(badSum); !errors.Is(err, filing.ErrInvalidConfiguration) {
		t.Errorf("weights not summing to 1 should be invalid, got %v", err)
	}

	unknown := filepath.Join(dir, "scoring.toml")
	os.WriteFile(unknown, []byte("x = 1"), 0644)
	if _, err := LoadConfig(unknown); !errors.Is(err, filing.ErrInvalidConfiguration) {
		t.Errorf("unsupported format should be invalid, got %v", err)
	}

	if _, err := LoadConfig(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("missing file should fail")
	}
}
