package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/gocarina/gocsv"

	"filing_analyzer/pkg/core/metrics"
	"filing_analyzer/pkg/core/search"
)

// MetricsRow is one period of the metrics export. Absent values are empty.
type MetricsRow struct {
	Period           string `csv:"period"`
	PeriodEnd        string `csv:"period_end"`
	Form             string `csv:"form_type"`
	FilingID         string `csv:"filing_id"`
	Revenue          string `csv:"revenue"`
	NetIncome        string `csv:"net_income"`
	TotalAssets      string `csv:"total_assets"`
	Cash             string `csv:"cash_and_equivalents"`
	RDExpense        string `csv:"research_development"`
	OperatingExpense string `csv:"operating_expenses"`
	RDIntensity      string `csv:"rd_intensity_pct"`
	NetMargin        string `csv:"net_profit_margin_pct"`
	AssetTurnover    string `csv:"asset_turnover_pct"`
	CashRatio        string `csv:"cash_ratio_pct"`
}

// KeywordTrendRow is one bucket of one keyword (or category) trend.
type KeywordTrendRow struct {
	Key      string `csv:"keyword"`
	Category string `csv:"category"`
	Bucket   string `csv:"bucket"`
	Mentions int    `csv:"mentions"`
	Filings  int    `csv:"filings_with_mentions"`
	Scanned  int    `csv:"filings_scanned"`
}

// MetricsRows flattens a series into export rows.
func MetricsRows(series metrics.Series) []*MetricsRow {
	rows := make([]*MetricsRow, 0, len(series))
	for _, r := range series {
		rows = append(rows, &MetricsRow{
			Period:           r.Label(),
			PeriodEnd:        r.PeriodEnd.Format("2006-01-02"),
			Form:             string(r.Form),
			FilingID:         r.FilingID,
			Revenue:          number(r.Value(metrics.Revenue)),
			NetIncome:        number(r.Value(metrics.NetIncome)),
			TotalAssets:      number(r.Value(metrics.TotalAssets)),
			Cash:             number(r.Value(metrics.Cash)),
			RDExpense:        number(r.Value(metrics.RDExpense)),
			OperatingExpense: number(r.Value(metrics.OperatingExpense)),
			RDIntensity:      number(r.Value(metrics.RDIntensity)),
			NetMargin:        number(r.Value(metrics.NetMargin)),
			AssetTurnover:    number(r.Value(metrics.AssetTurnover)),
			CashRatio:        number(r.Value(metrics.CashRatio)),
		})
	}
	return rows
}

// KeywordTrendRows flattens keyword trends, one row per keyword and bucket.
func KeywordTrendRows(trends []search.KeywordTrend) []*KeywordTrendRow {
	rows := []*KeywordTrendRow{}
	for _, kt := range trends {
		for _, p := range kt.Points {
			rows = append(rows, &KeywordTrendRow{
				Key:      kt.Key,
				Category: string(kt.Category),
				Bucket:   p.Bucket,
				Mentions: p.Mentions,
				Filings:  p.Filings,
				Scanned:  p.Scanned,
			})
		}
	}
	return rows
}

// WriteMetricsCSV writes the series as CSV with a header row.
func WriteMetricsCSV(w io.Writer, series metrics.Series) error {
	if err := gocsv.Marshal(MetricsRows(series), w); err != nil {
		return fmt.Errorf("failed to write metrics csv: %w", err)
	}
	return nil
}

// WriteKeywordTrendsCSV writes keyword trends as CSV with a header row.
func WriteKeywordTrendsCSV(w io.Writer, trends []search.KeywordTrend) error {
	if err := gocsv.Marshal(KeywordTrendRows(trends), w); err != nil {
		return fmt.Errorf("failed to write keyword trend csv: %w", err)
	}
	return nil
}

func number(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
