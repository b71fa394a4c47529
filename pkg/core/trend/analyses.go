package trend

import "filing_analyzer/pkg/core/metrics"

// Movement compares the last observation of a metric with the first.
type Movement string

const (
	Increasing Movement = "increasing"
	Decreasing Movement = "decreasing"
	Flat       Movement = "flat"
)

// RDAnalysis summarizes research and development investment.
type RDAnalysis struct {
	Periods             int      `json:"periods"`
	TotalRD             float64  `json:"total_rd_investment"`
	AverageRD           float64  `json:"average_rd"`
	AverageGrowthPct    *float64 `json:"rd_growth_pct"`
	AverageIntensityPct *float64 `json:"rd_as_percentage_of_revenue"`
	Movement            Movement `json:"rd_trend"`
}

// AnalyzeRD summarizes R&D spend over the records that report it. The
// second return is false when no record carries R&D expense.
func AnalyzeRD(series metrics.Series) (RDAnalysis, bool) {
	var values, intensities []float64
	for _, r := range series {
		if r.RDExpense == nil {
			continue
		}
		values = append(values, *r.RDExpense)
		if in := r.Value(metrics.RDIntensity); in != nil {
			intensities = append(intensities, *in)
		}
	}
	if len(values) == 0 {
		return RDAnalysis{}, false
	}

	var total float64
	for _, v := range values {
		total += v
	}
	a := RDAnalysis{
		Periods:          len(values),
		TotalRD:          total,
		AverageRD:        total / float64(len(values)),
		AverageGrowthPct: averageGrowth(values),
		Movement:         movement(values),
	}
	if len(intensities) > 0 {
		avg := mean(intensities)
		a.AverageIntensityPct = &avg
	}
	return a, true
}

// CashAnalysis summarizes the cash and liquidity position.
type CashAnalysis struct {
	Periods          int      `json:"periods"`
	CurrentCash      float64  `json:"current_cash"`
	CurrentPeriod    string   `json:"current_period"`
	AverageCash      float64  `json:"average_cash"`
	StdDev           *float64 `json:"cash_volatility"`
	AverageGrowthPct *float64 `json:"cash_growth_pct"`
	Movement         Movement `json:"cash_trend"`
}

// AnalyzeCash summarizes cash and equivalents over the records that report
// them. StdDev is the sample deviation and needs at least two observations.
func AnalyzeCash(series metrics.Series) (CashAnalysis, bool) {
	var values []float64
	var lastPeriod string
	for _, r := range series {
		if r.Cash == nil {
			continue
		}
		values = append(values, *r.Cash)
		lastPeriod = r.Label()
	}
	if len(values) == 0 {
		return CashAnalysis{}, false
	}

	a := CashAnalysis{
		Periods:          len(values),
		CurrentCash:      values[len(values)-1],
		CurrentPeriod:    lastPeriod,
		AverageCash:      mean(values),
		AverageGrowthPct: averageGrowth(values),
		Movement:         movement(values),
	}
	if len(values) > 1 {
		sd := sampleStdDev(values)
		a.StdDev = &sd
	}
	return a, true
}

// averageGrowth averages the defined step-to-step growth rates of values.
func averageGrowth(values []float64) *float64 {
	var rates []float64
	for i := 1; i < len(values); i++ {
		if g := GrowthPct(&values[i], &values[i-1]); g != nil {
			rates = append(rates, *g)
		}
	}
	if len(rates) == 0 {
		return nil
	}
	avg := mean(rates)
	return &avg
}

func movement(values []float64) Movement {
	first, last := values[0], values[len(values)-1]
	switch {
	case last > first:
		return Increasing
	case last < first:
		return Decreasing
	}
	return Flat
}
