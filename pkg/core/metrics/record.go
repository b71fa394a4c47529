// Package metrics converts raw per-filing financial fields into a uniform,
// chronologically ordered series of per-period metrics records.
package metrics

import (
	"time"

	"filing_analyzer/pkg/core/filing"
)

// Metric selects a raw or derived value from a Record.
type Metric string

const (
	Revenue          Metric = "revenue"
	NetIncome        Metric = "net_income"
	TotalAssets      Metric = "total_assets"
	Cash             Metric = "cash_and_equivalents"
	RDExpense        Metric = "research_development"
	OperatingExpense Metric = "operating_expenses"

	// Derived ratios, all expressed in percent.
	RDIntensity   Metric = "rd_intensity"
	NetMargin     Metric = "net_margin"
	AssetTurnover Metric = "asset_turnover"
	CashRatio     Metric = "cash_ratio"
)

// RawMetrics are the metrics read directly from filing fields.
var RawMetrics = []Metric{Revenue, NetIncome, TotalAssets, Cash, RDExpense, OperatingExpense}

// DerivedMetrics are ratios computed from the raw metrics of one record.
var DerivedMetrics = []Metric{RDIntensity, NetMargin, AssetTurnover, CashRatio}

// ParseMetric resolves a metric name; the second return is false when unknown.
func ParseMetric(name string) (Metric, bool) {
	for _, m := range append(append([]Metric{}, RawMetrics...), DerivedMetrics...) {
		if string(m) == name {
			return m, true
		}
	}
	if f, ok := filing.ParseField(name); ok {
		return Metric(f), true
	}
	return "", false
}

// Record is the normalized metrics of one fiscal period. Nil values are
// absent, which is never the same as zero.
type Record struct {
	Period     Period          `json:"period"`
	PeriodEnd  time.Time       `json:"period_end"`
	Form       filing.FormType `json:"form_type"`
	FilingID   string          `json:"filing_id"`
	FilingDate time.Time       `json:"filing_date"`

	Revenue          *float64 `json:"revenue"`
	NetIncome        *float64 `json:"net_income"`
	TotalAssets      *float64 `json:"total_assets"`
	Cash             *float64 `json:"cash_and_equivalents"`
	RDExpense        *float64 `json:"research_development"`
	OperatingExpense *float64 `json:"operating_expenses"`
}

// Label is shorthand for r.Period.Label().
func (r Record) Label() string { return r.Period.Label() }

// Value returns the selected metric, or nil when it cannot be determined.
func (r Record) Value(m Metric) *float64 {
	switch m {
	case Revenue:
		return r.Revenue
	case NetIncome:
		return r.NetIncome
	case TotalAssets:
		return r.TotalAssets
	case Cash:
		return r.Cash
	case RDExpense:
		return r.RDExpense
	case OperatingExpense:
		return r.OperatingExpense
	case RDIntensity:
		return percentOf(r.RDExpense, r.Revenue)
	case NetMargin:
		return percentOf(r.NetIncome, r.Revenue)
	case AssetTurnover:
		return percentOf(r.Revenue, r.TotalAssets)
	case CashRatio:
		return percentOf(r.Cash, r.TotalAssets)
	}
	return nil
}

// percentOf returns num/den*100, or nil when either side is absent or den is zero.
func percentOf(num, den *float64) *float64 {
	if num == nil || den == nil || *den == 0 {
		return nil
	}
	v := *num / *den * 100
	return &v
}

// Ratios summarizes the derived ratios of a single record.
type Ratios struct {
	Period           string   `json:"period"`
	AssetTurnoverPct *float64 `json:"asset_turnover_pct"`
	NetMarginPct     *float64 `json:"net_profit_margin_pct"`
	RDIntensityPct   *float64 `json:"rd_intensity_pct"`
	CashRatioPct     *float64 `json:"cash_ratio_pct"`
}

// Ratios computes the financial ratios available for r.
func (r Record) Ratios() Ratios {
	return Ratios{
		Period:           r.Label(),
		AssetTurnoverPct: r.Value(AssetTurnover),
		NetMarginPct:     r.Value(NetMargin),
		RDIntensityPct:   r.Value(RDIntensity),
		CashRatioPct:     r.Value(CashRatio),
	}
}

// Series is an ordered (ascending by period end) run of metrics records with
// unique period labels.
type Series []Record

// Latest returns the most recent record.
func (s Series) Latest() (Record, bool) {
	if len(s) == 0 {
		return Record{}, false
	}
	return s[len(s)-1], true
}

// Lookup finds the record for a canonical period label.
func (s Series) Lookup(label string) (Record, bool) {
	for _, r := range s {
		if r.Label() == label {
			return r, true
		}
	}
	return Record{}, false
}

// Quarterly returns the quarterly periods, keeping order.
func (s Series) Quarterly() Series { return s.ofKind(Quarterly) }

// Annual returns the annual periods, keeping order.
func (s Series) Annual() Series { return s.ofKind(Annual) }

// ViewOf returns the quarterly or annual view matching the kind of r.
func (s Series) ViewOf(r Record) Series { return s.ofKind(r.Period.Kind) }

func (s Series) ofKind(kind PeriodKind) Series {
	out := make(Series, 0, len(s))
	for _, r := range s {
		if r.Period.Kind == kind {
			out = append(out, r)
		}
	}
	return out
}
