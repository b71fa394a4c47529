// Package health combines the latest metrics and their trends into a
// weighted 0-100 health score with a letter grade.
package health

import (
	"fmt"

	"github.com/shopspring/decimal"

	"filing_analyzer/pkg/core/filing"
	"filing_analyzer/pkg/core/metrics"
	"filing_analyzer/pkg/core/trend"
)

// Status reports whether a score could be computed.
type Status string

const (
	StatusOK               Status = "ok"
	StatusInsufficientData Status = "insufficient-data"
)

// quartersPerYear annualizes quarterly asset turnover.
const quartersPerYear = 4

// ComponentScore is the contribution of one component. Score, Input and
// EffectiveWeight are only meaningful when Computed is true.
type ComponentScore struct {
	Component       Component `json:"component"`
	Computed        bool      `json:"computed"`
	Score           float64   `json:"score"`
	Input           *float64  `json:"input"`
	InputPeriod     string    `json:"input_period,omitempty"`
	Weight          float64   `json:"weight"`
	EffectiveWeight float64   `json:"effective_weight"`
}

// Score is a composite health score. Overall is nil when no component
// could be computed.
type Score struct {
	Overall    *float64                     `json:"overall"`
	Grade      string                       `json:"grade,omitempty"`
	Status     Status                       `json:"status"`
	AsOf       string                       `json:"as_of"`
	Components map[Component]ComponentScore `json:"components"`
}

// Compute scores latest using the trends computed over its series. trends
// may be nil or partial; statistics that need a missing trend fall back to
// the latest record or are left uncomputed. When no component can be
// computed the returned error wraps filing.ErrInsufficientData.
func Compute(latest metrics.Record, trends map[metrics.Metric]trend.Result, cfg Config) (Score, error) {
	if err := cfg.Validate(); err != nil {
		return Score{}, err
	}

	s := Score{
		Status:     StatusInsufficientData,
		AsOf:       latest.Label(),
		Components: make(map[Component]ComponentScore, len(Components)),
	}

	// 1. Input statistics and curve scores
	var totalWeight float64
	for _, comp := range Components {
		cs := ComponentScore{Component: comp, Weight: cfg.Weight(comp)}
		if in, period, ok := statistic(comp, latest, trends); ok {
			v := in
			cs.Input = &v
			cs.InputPeriod = period
			cs.Score = cfg.curves[comp].Eval(in)
			cs.Computed = true
			totalWeight += cs.Weight
		}
		s.Components[comp] = cs
	}
	if totalWeight == 0 {
		return s, fmt.Errorf("%w: no health component computable as of %s", filing.ErrInsufficientData, s.AsOf)
	}

	// 2. Renormalize weights over computed components
	var overall float64
	for _, comp := range Components {
		cs, ok := s.Components[comp]
		if !ok || !cs.Computed {
			continue
		}
		cs.EffectiveWeight = cs.Weight / totalWeight
		overall += cs.Score * cs.EffectiveWeight
		s.Components[comp] = cs
	}

	// 3. Round half away from zero to one decimal
	rounded, _ := decimal.NewFromFloat(overall).Round(1).Float64()
	s.Overall = &rounded
	s.Grade = cfg.Grade(rounded)
	s.Status = StatusOK
	return s, nil
}

// statistic returns the input of comp, the period it was observed in, and
// whether it could be determined.
func statistic(comp Component, latest metrics.Record, trends map[metrics.Metric]trend.Result) (float64, string, bool) {
	switch comp {
	case RevenueGrowth:
		return revenueGrowth(latest, trends)
	case RDInvestment:
		return current(metrics.RDIntensity, latest, trends)
	case CashPosition:
		return current(metrics.CashRatio, latest, trends)
	case Profitability:
		return current(metrics.NetMargin, latest, trends)
	case AssetEfficiency:
		v, period, ok := current(metrics.AssetTurnover, latest, trends)
		if !ok {
			return 0, "", false
		}
		if p, parsed := metrics.ParsePeriod(period); parsed && p.Kind == metrics.Quarterly {
			v *= quartersPerYear
		}
		return v, period, true
	}
	return 0, "", false
}

// revenueGrowth prefers year-over-year growth for the latest period and
// falls back to period-over-period growth.
func revenueGrowth(latest metrics.Record, trends map[metrics.Metric]trend.Result) (float64, string, bool) {
	res, ok := trends[metrics.Revenue]
	if !ok {
		return 0, "", false
	}
	label := latest.Label()
	for _, seq := range [][]trend.GrowthPoint{res.YearOverYear, res.PeriodOverPeriod} {
		for i := len(seq) - 1; i >= 0; i-- {
			if seq[i].Period == label && seq[i].Pct != nil {
				return *seq[i].Pct, label, true
			}
		}
	}
	return 0, "", false
}

// current reads m from the latest record, falling back to the most recent
// defined value of its trend.
func current(m metrics.Metric, latest metrics.Record, trends map[metrics.Metric]trend.Result) (float64, string, bool) {
	if v := latest.Value(m); v != nil {
		return *v, latest.Label(), true
	}
	if res, ok := trends[m]; ok && res.Summary.LatestValue != nil {
		return *res.Summary.LatestValue, res.Summary.LatestPeriod, true
	}
	return 0, "", false
}
