// Package trend computes period-over-period and year-over-year growth,
// volatility and direction for one metric of a metrics series.
package trend

import (
	"math"

	"filing_analyzer/pkg/core/metrics"
)

// Direction classifies the recent movement of a metric.
type Direction string

const (
	Improving        Direction = "improving"
	Declining        Direction = "declining"
	Stable           Direction = "stable"
	InsufficientData Direction = "insufficient-data"
)

// Status qualifies a statistic that needs a minimum amount of data.
type Status string

const (
	StatusOK               Status = "ok"
	StatusInsufficientData Status = "insufficient-data"
)

const (
	// MinVolatilityRates is the number of defined growth rates required
	// before volatility is reported.
	MinVolatilityRates = 3
	// MinDirectionRates is the number of defined growth rates required
	// before a direction is classified.
	MinDirectionRates = 2
)

// Point is a metric value for one period; Value is nil when absent.
type Point struct {
	Period string   `json:"period"`
	Value  *float64 `json:"value"`
}

// GrowthPoint is a growth rate in percent; Pct is nil when undefined.
type GrowthPoint struct {
	Period string   `json:"period"`
	Pct    *float64 `json:"pct"`
}

// Summary carries the headline numbers of a trend.
type Summary struct {
	LatestValue      *float64 `json:"latest_value"`
	LatestPeriod     string   `json:"latest_period"`
	LatestGrowthPct  *float64 `json:"latest_growth_pct"`
	AverageGrowthPct *float64 `json:"average_growth_pct"`
	DataPoints       int      `json:"data_points"`
}

// Result is the trend of one metric over a series.
type Result struct {
	Metric           metrics.Metric `json:"metric"`
	Values           []Point        `json:"values"`
	PeriodOverPeriod []GrowthPoint  `json:"period_over_period"`
	YearOverYear     []GrowthPoint  `json:"year_over_year"`
	Volatility       *float64       `json:"volatility"`
	VolatilityStatus Status         `json:"volatility_status"`
	Direction        Direction      `json:"direction"`
	Summary          Summary        `json:"summary"`
}

// GrowthPct returns (current-previous)/|previous| in percent, or nil when
// either value is absent or previous is zero.
func GrowthPct(current, previous *float64) *float64 {
	if current == nil || previous == nil || *previous == 0 {
		return nil
	}
	g := (*current - *previous) / math.Abs(*previous) * 100
	return &g
}

// Compute derives the trend of metric m over series, which must be ordered
// ascending as returned by metrics.Normalize. A series with no value for m
// yields empty sequences and insufficient-data classifications.
func Compute(series metrics.Series, m metrics.Metric) Result {
	res := Result{
		Metric:           m,
		Values:           []Point{},
		PeriodOverPeriod: []GrowthPoint{},
		YearOverYear:     []GrowthPoint{},
		VolatilityStatus: StatusInsufficientData,
		Direction:        InsufficientData,
	}

	defined := 0
	for _, r := range series {
		if r.Value(m) != nil {
			defined++
		}
	}
	if defined == 0 {
		return res
	}

	// 1. Values and period-over-period growth against the preceding record
	for i, r := range series {
		v := r.Value(m)
		res.Values = append(res.Values, Point{Period: r.Label(), Value: v})
		if v != nil {
			res.Summary.LatestValue = v
			res.Summary.LatestPeriod = r.Label()
			res.Summary.DataPoints++
		}
		if i > 0 {
			res.PeriodOverPeriod = append(res.PeriodOverPeriod, GrowthPoint{
				Period: r.Label(),
				Pct:    GrowthPct(v, series[i-1].Value(m)),
			})
		}
	}

	// 2. Year-over-year growth against the same period one year earlier
	for _, r := range series {
		prior, ok := series.Lookup(r.Period.PriorYear().Label())
		if !ok {
			res.YearOverYear = append(res.YearOverYear, GrowthPoint{Period: r.Label()})
			continue
		}
		res.YearOverYear = append(res.YearOverYear, GrowthPoint{
			Period: r.Label(),
			Pct:    GrowthPct(r.Value(m), prior.Value(m)),
		})
	}

	// 3. Statistics over defined growth rates
	rates := DefinedRates(res.PeriodOverPeriod)
	if len(rates) > 0 {
		last := rates[len(rates)-1]
		avg := mean(rates)
		res.Summary.LatestGrowthPct = &last
		res.Summary.AverageGrowthPct = &avg
	}
	if len(rates) >= MinVolatilityRates {
		vol := populationStdDev(rates)
		res.Volatility = &vol
		res.VolatilityStatus = StatusOK
	}
	res.Direction = classify(rates)

	return res
}

// ComputeAll computes the trend of each metric over the same series.
func ComputeAll(series metrics.Series, ms ...metrics.Metric) map[metrics.Metric]Result {
	out := make(map[metrics.Metric]Result, len(ms))
	for _, m := range ms {
		out[m] = Compute(series, m)
	}
	return out
}

// DefinedRates returns the defined growth rates in order.
func DefinedRates(points []GrowthPoint) []float64 {
	rates := make([]float64, 0, len(points))
	for _, p := range points {
		if p.Pct != nil {
			rates = append(rates, *p.Pct)
		}
	}
	return rates
}

// Latest returns the most recent point of a growth sequence, defined or not.
func Latest(points []GrowthPoint) (GrowthPoint, bool) {
	if len(points) == 0 {
		return GrowthPoint{}, false
	}
	return points[len(points)-1], true
}

// classify looks at the two most recent defined rates: both positive with
// non-decreasing magnitude is improving, both negative is declining.
func classify(rates []float64) Direction {
	if len(rates) < MinDirectionRates {
		return InsufficientData
	}
	prev, last := rates[len(rates)-2], rates[len(rates)-1]
	switch {
	case prev > 0 && last > 0 && math.Abs(last) >= math.Abs(prev):
		return Improving
	case prev < 0 && last < 0:
		return Declining
	}
	return Stable
}

func mean(xs []float64) float64 {
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func populationStdDev(xs []float64) float64 {
	m := mean(xs)
	var ss float64
	for _, x := range xs {
		ss += (x - m) * (x - m)
	}
	return math.Sqrt(ss / float64(len(xs)))
}

func sampleStdDev(xs []float64) float64 {
	m := mean(xs)
	var ss float64
	for _, x := range xs {
		ss += (x - m) * (x - m)
	}
	return math.Sqrt(ss / float64(len(xs)-1))
}
