package analysis

import (
	"time"

	"filing_analyzer/pkg/core/filing"
	"filing_analyzer/pkg/core/health"
	"filing_analyzer/pkg/core/metrics"
	"filing_analyzer/pkg/core/trend"
)

// CompanyAnalysis is the full numeric analysis of one issuer's filings.
type CompanyAnalysis struct {
	Company      string    `json:"company,omitempty"`
	Ticker       string    `json:"ticker,omitempty"`
	LastAnalyzed time.Time `json:"last_analyzed"`

	// Summary describes the filings the analysis was computed from.
	Summary DataSummary `json:"data_summary"`

	// Series holds every normalized period; View is the period kind of
	// the latest record, which trends and scores are computed over.
	Series metrics.Series                  `json:"series"`
	View   metrics.PeriodKind              `json:"view,omitempty"`
	Latest *metrics.Record                 `json:"latest,omitempty"`
	Ratios []metrics.Ratios                `json:"ratios"`
	Trends map[metrics.Metric]trend.Result `json:"trends"`

	RD   *trend.RDAnalysis   `json:"rd_analysis,omitempty"`
	Cash *trend.CashAnalysis `json:"cash_analysis,omitempty"`

	Health health.Score `json:"health_score"`

	Diagnostics []metrics.Diagnostic `json:"diagnostics"`
}

// DataSummary counts the filings behind an analysis.
type DataSummary struct {
	TotalFilings   int                     `json:"total_filings"`
	FormCounts     map[filing.FormType]int `json:"filing_types"`
	FirstFiled     *time.Time              `json:"first_filed,omitempty"`
	LastFiled      *time.Time              `json:"last_filed,omitempty"`
	WithFinancials int                     `json:"financial_metrics_available"`
	WithText       int                     `json:"text_available"`
}

// TrendMetrics are the metrics trended for every analysis.
var TrendMetrics = []metrics.Metric{
	metrics.Revenue,
	metrics.NetIncome,
	metrics.TotalAssets,
	metrics.Cash,
	metrics.RDExpense,
	metrics.OperatingExpense,
	metrics.RDIntensity,
	metrics.NetMargin,
	metrics.AssetTurnover,
	metrics.CashRatio,
}
